package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/aws/aws-lambda-go/lambdacontext"
)

// New creates the JSON logger used by every function, writing to stdout
// at the level selected by LOG_LEVEL.
func New() *slog.Logger {
	return NewWithWriter(os.Stdout)
}

// NewWithWriter creates a JSON logger writing to w. Records logged with a
// Lambda invocation context carry its request id.
func NewWithWriter(w io.Writer) *slog.Logger {
	logger := slog.New(invocationHandler{slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: Level(),
	})})
	if lambdacontext.FunctionName != "" {
		logger = logger.With(slog.String("function_name", lambdacontext.FunctionName))
	}
	return logger
}

// Level reads LOG_LEVEL. It accepts the slog level names in any case,
// WARNING as an alias for WARN and offsets such as "INFO+2". Anything
// else is Info.
func Level() slog.Level {
	v := strings.ToUpper(strings.TrimSpace(os.Getenv("LOG_LEVEL")))
	if v == "WARNING" {
		v = "WARN"
	}

	var level slog.Level
	if v == "" || level.UnmarshalText([]byte(v)) != nil {
		return slog.LevelInfo
	}
	return level
}

// invocationHandler adds the Lambda request id to every record logged
// with a context that carries one.
type invocationHandler struct {
	slog.Handler
}

func (h invocationHandler) Handle(ctx context.Context, r slog.Record) error {
	if ctx != nil {
		if lc, ok := lambdacontext.FromContext(ctx); ok {
			r.AddAttrs(slog.String("request_id", lc.AwsRequestID))
		}
	}
	return h.Handler.Handle(ctx, r)
}

func (h invocationHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return invocationHandler{h.Handler.WithAttrs(attrs)}
}

func (h invocationHandler) WithGroup(name string) slog.Handler {
	return invocationHandler{h.Handler.WithGroup(name)}
}

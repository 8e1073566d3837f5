package agentruntime

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/aws-sdk-go-v2/service/bedrockagentruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockagentruntime/types"
)

const maxAttempts = 3

// RuntimeAPI is the subset of the Bedrock Agent runtime client used here
type RuntimeAPI interface {
	InvokeAgent(ctx context.Context, params *bedrockagentruntime.InvokeAgentInput, optFns ...func(*bedrockagentruntime.Options)) (*bedrockagentruntime.InvokeAgentOutput, error)
}

// NewRuntimeClient creates an agent runtime client with adaptive retries
// and a read timeout suited to long agent turns.
func NewRuntimeClient(cfg aws.Config, readTimeout time.Duration) *bedrockagentruntime.Client {
	return bedrockagentruntime.NewFromConfig(cfg, func(o *bedrockagentruntime.Options) {
		o.RetryMode = aws.RetryModeAdaptive
		o.RetryMaxAttempts = maxAttempts
		o.HTTPClient = awshttp.NewBuildableClient().WithTimeout(readTimeout)
	})
}

// Request describes one agent turn
type Request struct {
	SessionID        string
	InputText        string
	EndSession       bool
	EnableTrace      bool
	PromptAttributes map[string]string
}

// openFunc starts an agent turn and returns its event stream with a close function
type openFunc func(ctx context.Context, input *bedrockagentruntime.InvokeAgentInput) (EventSource, func() error, error)

// Invoker sends prompts to a fixed agent alias
type Invoker struct {
	open    openFunc
	agentID string
	aliasID string
	logger  *slog.Logger
}

// NewInvoker creates an Invoker for the given agent alias
func NewInvoker(api RuntimeAPI, agentID, aliasID string, logger *slog.Logger) *Invoker {
	return &Invoker{
		open:    sdkOpener(api),
		agentID: agentID,
		aliasID: aliasID,
		logger:  logger,
	}
}

func sdkOpener(api RuntimeAPI) openFunc {
	return func(ctx context.Context, input *bedrockagentruntime.InvokeAgentInput) (EventSource, func() error, error) {
		out, err := api.InvokeAgent(ctx, input)
		if err != nil {
			return nil, nil, err
		}
		stream := out.GetStream()
		return &sdkSource{events: stream.Events(), err: stream.Err}, stream.Close, nil
	}
}

// Invoke runs one agent turn and accumulates the streamed response
func (i *Invoker) Invoke(ctx context.Context, req Request, mode Mode) (*Result, error) {
	input := &bedrockagentruntime.InvokeAgentInput{
		AgentId:      aws.String(i.agentID),
		AgentAliasId: aws.String(i.aliasID),
		SessionId:    aws.String(req.SessionID),
		InputText:    aws.String(req.InputText),
		EnableTrace:  aws.Bool(req.EnableTrace),
		EndSession:   aws.Bool(req.EndSession),
	}
	if len(req.PromptAttributes) > 0 {
		input.SessionState = &types.SessionState{PromptSessionAttributes: req.PromptAttributes}
	}

	i.logger.InfoContext(ctx, "invoking agent",
		slog.String("agent_id", i.agentID),
		slog.String("session_id", req.SessionID),
		slog.Bool("end_session", req.EndSession),
		slog.String("mode", mode.String()),
	)

	src, closeStream, err := i.open(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("failed to invoke agent %s: %w", i.agentID, err)
	}
	defer closeStream()

	res, err := Accumulate(ctx, src, mode)
	if err != nil {
		return nil, err
	}

	i.logger.InfoContext(ctx, "agent response received",
		slog.String("session_id", req.SessionID),
		slog.Int("chunks", res.Chunks),
		slog.Int("traces", len(res.Traces)),
		slog.Int("response_size", len(res.Text)),
	)
	return res, nil
}

// sdkSource adapts the SDK event stream channel to EventSource
type sdkSource struct {
	events <-chan types.ResponseStream
	err    func() error
}

func (s *sdkSource) Next(ctx context.Context) (Event, bool, error) {
	select {
	case <-ctx.Done():
		return Event{}, false, ctx.Err()
	case ev, ok := <-s.events:
		if !ok {
			return Event{}, false, s.err()
		}
		return convertEvent(ev), true, nil
	}
}

func convertEvent(ev types.ResponseStream) Event {
	switch v := ev.(type) {
	case *types.ResponseStreamMemberChunk:
		return Event{Kind: EventChunk, Bytes: v.Value.Bytes}
	case *types.ResponseStreamMemberTrace:
		return Event{Kind: EventTrace, Trace: traceToMap(v.Value)}
	default:
		return Event{Kind: EventUnknown, Name: fmt.Sprintf("%T", ev)}
	}
}

func traceToMap(part types.TracePart) map[string]any {
	m := map[string]any{
		"agentId":      aws.ToString(part.AgentId),
		"agentAliasId": aws.ToString(part.AgentAliasId),
		"sessionId":    aws.ToString(part.SessionId),
	}
	if part.Trace != nil {
		if b, err := json.Marshal(part.Trace); err == nil {
			var trace any
			if json.Unmarshal(b, &trace) == nil {
				m["trace"] = trace
			}
		}
	}
	return m
}

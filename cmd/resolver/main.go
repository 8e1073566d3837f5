package main

import (
	"fmt"
	"log/slog"

	"github.com/aws/aws-lambda-go/lambda"

	"github.com/jrzesz33/bedrock_mac/internal/app"
)

func main() {
	rt := app.MustLoad("agent resolver")

	handler, err := rt.Resolver()
	if err != nil {
		rt.Logger.Error("failed to create resolver", slog.String("error", err.Error()))
		panic(fmt.Sprintf("failed to create resolver: %v", err))
	}

	rt.Logger.Info("agent resolver ready",
		slog.String("agent_id", rt.Config.AgentID),
		slog.String("agent_alias_id", rt.Config.AgentAliasID),
		slog.Duration("read_timeout", rt.Config.AgentReadTimeout),
	)

	lambda.Start(handler.HandleEvent)
}

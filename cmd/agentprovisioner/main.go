package main

import (
	"fmt"
	"log/slog"

	"github.com/aws/aws-lambda-go/lambda"

	"github.com/jrzesz33/bedrock_mac/internal/app"
	"github.com/jrzesz33/bedrock_mac/internal/models"
)

func main() {
	rt := app.MustLoad("bedrock agent")

	handler, err := rt.ProvisioningHandler(models.ResourceKindAgent)
	if err != nil {
		rt.Logger.Error("failed to create handler", slog.String("error", err.Error()))
		panic(fmt.Sprintf("failed to create handler: %v", err))
	}

	rt.Logger.Info("agent provisioner ready",
		slog.Bool("rollback_on_failure", rt.Config.RollbackOnFailure),
		slog.Int("poll_max_attempts", rt.Config.PollMaxAttempts),
	)

	lambda.Start(handler.HandleEvent)
}

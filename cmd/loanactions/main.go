package main

import (
	"fmt"
	"log/slog"

	"github.com/aws/aws-lambda-go/lambda"

	"github.com/jrzesz33/bedrock_mac/internal/app"
)

func main() {
	rt := app.MustLoad("loan action group")

	actions, err := rt.LoanActions()
	if err != nil {
		rt.Logger.Error("failed to create loan actions", slog.String("error", err.Error()))
		panic(fmt.Sprintf("failed to create loan actions: %v", err))
	}

	rt.Logger.Info("loan action group ready",
		slog.String("bucket", rt.Config.DataBucket),
	)

	lambda.Start(actions.HandleEvent)
}

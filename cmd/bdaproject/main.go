package main

import (
	"fmt"
	"log/slog"

	"github.com/aws/aws-lambda-go/lambda"

	"github.com/jrzesz33/bedrock_mac/internal/app"
	"github.com/jrzesz33/bedrock_mac/internal/models"
)

func main() {
	rt := app.MustLoad("data automation project")

	handler, err := rt.ProvisioningHandler(models.ResourceKindDataAutomationProject)
	if err != nil {
		rt.Logger.Error("failed to create handler", slog.String("error", err.Error()))
		panic(fmt.Sprintf("failed to create handler: %v", err))
	}

	lambda.Start(handler.HandleEvent)
}

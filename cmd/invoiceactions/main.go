package main

import (
	"fmt"
	"log/slog"

	"github.com/aws/aws-lambda-go/lambda"

	"github.com/jrzesz33/bedrock_mac/internal/app"
)

func main() {
	rt := app.MustLoad("invoice action group")

	actions, err := rt.InvoiceActions()
	if err != nil {
		rt.Logger.Error("failed to create invoice actions", slog.String("error", err.Error()))
		panic(fmt.Sprintf("failed to create invoice actions: %v", err))
	}

	lambda.Start(actions.HandleEvent)
}

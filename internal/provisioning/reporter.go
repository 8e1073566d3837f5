package provisioning

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/aws/aws-lambda-go/cfn"
	"github.com/aws/aws-lambda-go/lambdacontext"

	"github.com/jrzesz33/bedrock_mac/internal/httpclient"
)

// Outcome is the value returned from the custom resource function
type Outcome struct {
	PhysicalResourceID string         `json:"PhysicalResourceId"`
	Data               map[string]any `json:"Data"`
}

// Reporter acknowledges a custom resource request to CloudFormation
type Reporter interface {
	Report(ctx context.Context, event cfn.Event, status cfn.StatusType, data map[string]any, reason string) error
}

// ResponseReporter PUTs the response document to the pre-signed ResponseURL
type ResponseReporter struct {
	client *httpclient.Client
	logger *slog.Logger
}

// NewResponseReporter creates a ResponseReporter
func NewResponseReporter(client *httpclient.Client, logger *slog.Logger) *ResponseReporter {
	return &ResponseReporter{
		client: client,
		logger: logger,
	}
}

// Report sends the response. The logical resource id is always reported as
// the physical resource id.
func (r *ResponseReporter) Report(ctx context.Context, event cfn.Event, status cfn.StatusType, data map[string]any, reason string) error {
	if event.ResponseURL == "" {
		return fmt.Errorf("event has no ResponseURL")
	}

	resp := cfn.Response{
		Status:             status,
		RequestID:          event.RequestID,
		LogicalResourceID:  event.LogicalResourceID,
		StackID:            event.StackID,
		PhysicalResourceID: event.LogicalResourceID,
		Reason:             withLogStream(reason),
		Data:               data,
	}

	body, err := json.Marshal(resp)
	if err != nil {
		return fmt.Errorf("failed to marshal custom resource response: %w", err)
	}

	if _, err := r.client.Do(ctx, httpclient.RequestConfig{
		Method:  http.MethodPut,
		URL:     event.ResponseURL,
		RawBody: body,
	}); err != nil {
		return fmt.Errorf("failed to send custom resource response: %w", err)
	}

	r.logger.InfoContext(ctx, "custom resource response sent",
		slog.String("status", string(status)),
		slog.String("logical_resource_id", event.LogicalResourceID),
	)
	return nil
}

func withLogStream(reason string) string {
	if lambdacontext.LogStreamName == "" {
		return reason
	}
	pointer := "See the details in CloudWatch Log Stream: " + lambdacontext.LogStreamName
	if reason == "" {
		return pointer
	}
	return reason + ". " + pointer
}

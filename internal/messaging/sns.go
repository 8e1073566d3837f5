package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"

	"github.com/jrzesz33/bedrock_mac/internal/models"
)

// SNSAPI is the subset of the SNS client used by the publisher
type SNSAPI interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// RecordPublisher defines the interface for announcing provisioning outcomes
type RecordPublisher interface {
	PublishRecord(ctx context.Context, record *models.ProvisioningRecord) error
}

// SNSClient implements RecordPublisher using AWS SNS
type SNSClient struct {
	client   SNSAPI
	topicArn string
	logger   *slog.Logger
}

// NewSNSClient creates a new SNS client instance
func NewSNSClient(client SNSAPI, topicArn string, logger *slog.Logger) *SNSClient {
	if logger == nil {
		logger = slog.Default()
	}

	return &SNSClient{
		client:   client,
		topicArn: topicArn,
		logger:   logger,
	}
}

// PublishRecord publishes a provisioning record to the SNS topic. The
// attributes let subscribers filter on kind and outcome.
func (s *SNSClient) PublishRecord(ctx context.Context, record *models.ProvisioningRecord) error {
	recordBytes, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal provisioning record to JSON: %w", err)
	}

	input := &sns.PublishInput{
		TopicArn: aws.String(s.topicArn),
		Subject:  aws.String(subject(record)),
		Message:  aws.String(string(recordBytes)),
		MessageAttributes: map[string]types.MessageAttributeValue{
			"stage": {
				DataType:    aws.String("String"),
				StringValue: aws.String(record.Stage.String()),
			},
			"kind": {
				DataType:    aws.String("String"),
				StringValue: aws.String(record.Kind.String()),
			},
			"request_type": {
				DataType:    aws.String("String"),
				StringValue: aws.String(record.RequestType),
			},
			"status": {
				DataType:    aws.String("String"),
				StringValue: aws.String(record.Status.String()),
			},
		},
	}

	result, err := s.client.Publish(ctx, input)
	if err != nil {
		return fmt.Errorf("failed to publish provisioning record to SNS: %w", err)
	}

	s.logger.InfoContext(ctx, "provisioning record published to SNS",
		slog.String("record_id", record.ID),
		slog.String("sns_message_id", aws.ToString(result.MessageId)),
		slog.String("topic_arn", s.topicArn),
	)

	return nil
}

// subject stays under the 100 character SNS limit
func subject(record *models.ProvisioningRecord) string {
	s := fmt.Sprintf("%s %s %s", record.RequestType, record.LogicalResourceID, record.Status)
	if len(s) > 100 {
		s = s[:100]
	}
	return s
}

package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
)

const (
	applicationPrefix = "applications"
	resultPrefix      = "bda-result"
)

// ErrNotFound is returned when the requested object does not exist
var ErrNotFound = errors.New("object not found")

// S3API is the subset of the S3 client used here
type S3API interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// ApplicationStore keeps loan application records and document extraction
// results as JSON objects in one bucket. Writes are read-merge-write with
// no concurrency control.
type ApplicationStore struct {
	client S3API
	bucket string
	logger *slog.Logger
}

// NewApplicationStore creates an ApplicationStore on bucket
func NewApplicationStore(client S3API, bucket string, logger *slog.Logger) *ApplicationStore {
	return &ApplicationStore{
		client: client,
		bucket: bucket,
		logger: logger,
	}
}

// ApplicationKey is the object key of an application record
func ApplicationKey(applicationID string) string {
	return fmt.Sprintf("%s/%s.json", applicationPrefix, applicationID)
}

// ResultKey is the object key of a document extraction result
func ResultKey(document string) string {
	return fmt.Sprintf("%s/%s-result.json", resultPrefix, document)
}

// GetApplication reads an application record
func (s *ApplicationStore) GetApplication(ctx context.Context, applicationID string) (map[string]any, error) {
	var record map[string]any
	if err := s.getJSON(ctx, ApplicationKey(applicationID), &record); err != nil {
		return nil, err
	}
	return record, nil
}

// PutApplication writes an application record
func (s *ApplicationStore) PutApplication(ctx context.Context, applicationID string, record map[string]any) error {
	body, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal application %s: %w", applicationID, err)
	}

	key := ApplicationKey(applicationID)
	if _, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
	}); err != nil {
		return fmt.Errorf("failed to write s3://%s/%s: %w", s.bucket, key, err)
	}

	s.logger.InfoContext(ctx, "application saved",
		slog.String("application_id", applicationID),
		slog.Int("size", len(body)),
	)
	return nil
}

// UpdateApplication reads a record, applies mutate and writes it back
func (s *ApplicationStore) UpdateApplication(ctx context.Context, applicationID string, mutate func(record map[string]any) error) (map[string]any, error) {
	record, err := s.GetApplication(ctx, applicationID)
	if err != nil {
		return nil, err
	}
	if record == nil {
		record = map[string]any{}
	}
	if err := mutate(record); err != nil {
		return nil, err
	}
	if err := s.PutApplication(ctx, applicationID, record); err != nil {
		return nil, err
	}
	return record, nil
}

// GetDocumentResult reads the extraction result of a document
func (s *ApplicationStore) GetDocumentResult(ctx context.Context, document string) (any, error) {
	var result any
	if err := s.getJSON(ctx, ResultKey(document), &result); err != nil {
		return nil, err
	}
	return result, nil
}

func (s *ApplicationStore) getJSON(ctx context.Context, key string, out any) error {
	obj, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNoSuchKey(err) {
			return fmt.Errorf("s3://%s/%s: %w", s.bucket, key, ErrNotFound)
		}
		return fmt.Errorf("failed to read s3://%s/%s: %w", s.bucket, key, err)
	}
	defer obj.Body.Close()

	body, err := io.ReadAll(obj.Body)
	if err != nil {
		return fmt.Errorf("failed to read s3://%s/%s: %w", s.bucket, key, err)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to parse s3://%s/%s: %w", s.bucket, key, err)
	}
	return nil
}

func isNoSuchKey(err error) bool {
	var nsk *types.NoSuchKey
	if errors.As(err, &nsk) {
		return true
	}
	var apiErr smithy.APIError
	return errors.As(err, &apiErr) && (apiErr.ErrorCode() == "NoSuchKey" || apiErr.ErrorCode() == "NotFound")
}

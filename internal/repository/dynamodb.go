package repository

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/jrzesz33/bedrock_mac/internal/models"
)

const defaultListLimit = 100

// ErrRecordNotFound is returned when no record has the requested id
var ErrRecordNotFound = errors.New("provisioning record not found")

// ProvisioningRepository defines the persistence operations of the provisioning journal
type ProvisioningRepository interface {
	SaveRecord(ctx context.Context, record *models.ProvisioningRecord) error
	GetRecord(ctx context.Context, id string) (*models.ProvisioningRecord, error)
	ListRecords(ctx context.Context, kind *models.ResourceKind, status *models.ProvisioningStatus, limit int) ([]*models.ProvisioningRecord, error)
	UpdateStatus(ctx context.Context, id string, status models.ProvisioningStatus, errorMessage string) error
}

// DynamoDBAPI is the subset of the DynamoDB client used here
type DynamoDBAPI interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
}

// DynamoDBProvisioningRepository implements ProvisioningRepository using DynamoDB
type DynamoDBProvisioningRepository struct {
	client    DynamoDBAPI
	tableName string
	now       func() time.Time
}

// NewDynamoDBProvisioningRepository creates a new DynamoDB repository instance
func NewDynamoDBProvisioningRepository(client DynamoDBAPI, tableName string) *DynamoDBProvisioningRepository {
	return &DynamoDBProvisioningRepository{
		client:    client,
		tableName: tableName,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// SaveRecord writes the full record, replacing any previous version
func (r *DynamoDBProvisioningRepository) SaveRecord(ctx context.Context, record *models.ProvisioningRecord) error {
	av, err := attributevalue.MarshalMap(record)
	if err != nil {
		return fmt.Errorf("failed to marshal provisioning record: %w", err)
	}

	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      av,
	})
	if err != nil {
		return fmt.Errorf("failed to save provisioning record to DynamoDB: %w", err)
	}

	return nil
}

// GetRecord retrieves a record by request id
func (r *DynamoDBProvisioningRepository) GetRecord(ctx context.Context, id string) (*models.ProvisioningRecord, error) {
	result, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key: map[string]types.AttributeValue{
			"id": &types.AttributeValueMemberS{Value: id},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get provisioning record from DynamoDB: %w", err)
	}

	if result.Item == nil {
		return nil, fmt.Errorf("%w: %s", ErrRecordNotFound, id)
	}

	var record models.ProvisioningRecord
	if err := attributevalue.UnmarshalMap(result.Item, &record); err != nil {
		return nil, fmt.Errorf("failed to unmarshal provisioning record: %w", err)
	}

	return &record, nil
}

// ListRecords retrieves records with optional filtering by kind and status,
// newest first.
func (r *DynamoDBProvisioningRepository) ListRecords(ctx context.Context, kind *models.ResourceKind, status *models.ProvisioningStatus, limit int) ([]*models.ProvisioningRecord, error) {
	var filterExpression string
	expressionAttributeValues := make(map[string]types.AttributeValue)
	expressionAttributeNames := make(map[string]string)

	if kind != nil {
		filterExpression = "#kind = :kind"
		expressionAttributeNames["#kind"] = "kind"
		expressionAttributeValues[":kind"] = &types.AttributeValueMemberS{Value: kind.String()}
	}

	if status != nil {
		if filterExpression != "" {
			filterExpression += " AND "
		}
		filterExpression += "#status = :status"
		expressionAttributeNames["#status"] = "status"
		expressionAttributeValues[":status"] = &types.AttributeValueMemberS{Value: status.String()}
	}

	if limit <= 0 {
		limit = defaultListLimit
	}

	input := &dynamodb.ScanInput{
		TableName: aws.String(r.tableName),
	}
	if filterExpression != "" {
		input.FilterExpression = aws.String(filterExpression)
		input.ExpressionAttributeValues = expressionAttributeValues
		input.ExpressionAttributeNames = expressionAttributeNames
	}

	// Scan order is arbitrary, so every page is read before the newest
	// records are kept.
	var records []*models.ProvisioningRecord
	for {
		result, err := r.client.Scan(ctx, input)
		if err != nil {
			return nil, fmt.Errorf("failed to scan provisioning records from DynamoDB: %w", err)
		}

		for _, item := range result.Items {
			var record models.ProvisioningRecord
			if err := attributevalue.UnmarshalMap(item, &record); err != nil {
				return nil, fmt.Errorf("failed to unmarshal provisioning record: %w", err)
			}
			records = append(records, &record)
		}

		if len(result.LastEvaluatedKey) == 0 {
			break
		}
		input.ExclusiveStartKey = result.LastEvaluatedKey
	}

	sort.Slice(records, func(i, j int) bool {
		return records[i].CreatedDate.After(records[j].CreatedDate)
	})
	if len(records) > limit {
		records = records[:limit]
	}
	return records, nil
}

// UpdateStatus updates the status of a record
func (r *DynamoDBProvisioningRepository) UpdateStatus(ctx context.Context, id string, status models.ProvisioningStatus, errorMessage string) error {
	updatedDate, err := attributevalue.Marshal(r.now())
	if err != nil {
		return fmt.Errorf("failed to marshal updated date: %w", err)
	}

	updateExpression := "SET #status = :status, updated_date = :updated_date"
	expressionAttributeNames := map[string]string{
		"#status": "status",
	}
	expressionAttributeValues := map[string]types.AttributeValue{
		":status":       &types.AttributeValueMemberS{Value: status.String()},
		":updated_date": updatedDate,
	}

	if errorMessage != "" {
		updateExpression += ", error_message = :error_message"
		expressionAttributeValues[":error_message"] = &types.AttributeValueMemberS{Value: errorMessage}
	}

	_, err = r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(r.tableName),
		Key: map[string]types.AttributeValue{
			"id": &types.AttributeValueMemberS{Value: id},
		},
		UpdateExpression:          aws.String(updateExpression),
		ExpressionAttributeNames:  expressionAttributeNames,
		ExpressionAttributeValues: expressionAttributeValues,
	})
	if err != nil {
		return fmt.Errorf("failed to update provisioning record status in DynamoDB: %w", err)
	}

	return nil
}

package models

import (
	"time"
)

// ProvisioningStatus represents the lifecycle state of a custom resource request
type ProvisioningStatus string

const (
	// ProvisioningStatusReceived indicates the request was accepted by the handler
	ProvisioningStatusReceived ProvisioningStatus = "received"
	// ProvisioningStatusProcessing indicates the reconciler is running
	ProvisioningStatusProcessing ProvisioningStatus = "processing"
	// ProvisioningStatusSucceeded indicates SUCCESS was reported to CloudFormation
	ProvisioningStatusSucceeded ProvisioningStatus = "succeeded"
	// ProvisioningStatusFailed indicates FAILED was reported to CloudFormation
	ProvisioningStatusFailed ProvisioningStatus = "failed"
)

// IsValid checks if the status value is valid
func (s ProvisioningStatus) IsValid() bool {
	switch s {
	case ProvisioningStatusReceived, ProvisioningStatusProcessing, ProvisioningStatusSucceeded, ProvisioningStatusFailed:
		return true
	default:
		return false
	}
}

// IsTerminal reports whether no further transitions are expected
func (s ProvisioningStatus) IsTerminal() bool {
	return s == ProvisioningStatusSucceeded || s == ProvisioningStatusFailed
}

// String returns the string representation of the status
func (s ProvisioningStatus) String() string {
	return string(s)
}

// ResourceKind identifies which custom resource a request targets
type ResourceKind string

const (
	// ResourceKindDataAutomationProject is a Bedrock Data Automation project
	ResourceKindDataAutomationProject ResourceKind = "data_automation_project"
	// ResourceKindAgent is a Bedrock Agent (optionally a supervisor with collaborators)
	ResourceKindAgent ResourceKind = "agent"
)

// IsValid checks if the resource kind value is valid
func (k ResourceKind) IsValid() bool {
	switch k {
	case ResourceKindDataAutomationProject, ResourceKindAgent:
		return true
	default:
		return false
	}
}

// String returns the string representation of the resource kind
func (k ResourceKind) String() string {
	return string(k)
}

// ProvisioningRecord is the journal entry kept for one CloudFormation custom resource request
type ProvisioningRecord struct {
	// ID is the CloudFormation request id
	ID string `json:"id" dynamodbav:"id"`

	// Kind is the resource kind handled by the function
	Kind ResourceKind `json:"kind" dynamodbav:"kind"`

	// RequestType is Create, Update or Delete
	RequestType string `json:"request_type" dynamodbav:"request_type"`

	// ResourceType is the CloudFormation resource type, e.g. Custom::BedrockAgent
	ResourceType string `json:"resource_type" dynamodbav:"resource_type"`

	// LogicalResourceID doubles as the physical resource id reported back
	LogicalResourceID string `json:"logical_resource_id" dynamodbav:"logical_resource_id"`

	// StackID is the owning stack
	StackID string `json:"stack_id" dynamodbav:"stack_id"`

	// Stage is the environment the function runs in
	Stage Stage `json:"stage" dynamodbav:"stage"`

	// Status is the current lifecycle state
	Status ProvisioningStatus `json:"status" dynamodbav:"status"`

	// Data is the result data reported on success
	Data map[string]any `json:"data,omitempty" dynamodbav:"data,omitempty"`

	// ErrorMessage contains error details if Status is failed
	ErrorMessage string `json:"error_message,omitempty" dynamodbav:"error_message,omitempty"`

	// CreatedDate is when the request was received
	CreatedDate time.Time `json:"created_date" dynamodbav:"created_date"`

	// UpdatedDate is when the record last changed
	UpdatedDate time.Time `json:"updated_date,omitempty" dynamodbav:"updated_date,omitempty"`
}

// NewProvisioningRecord creates a record in the received state
func NewProvisioningRecord(requestID string, kind ResourceKind, stage Stage, requestType, resourceType, logicalResourceID, stackID string) *ProvisioningRecord {
	now := time.Now().UTC()
	return &ProvisioningRecord{
		ID:                requestID,
		Kind:              kind,
		RequestType:       requestType,
		ResourceType:      resourceType,
		LogicalResourceID: logicalResourceID,
		StackID:           stackID,
		Stage:             stage,
		Status:            ProvisioningStatusReceived,
		CreatedDate:       now,
		UpdatedDate:       now,
	}
}

// MarkProcessing updates the record status to processing
func (r *ProvisioningRecord) MarkProcessing() {
	r.Status = ProvisioningStatusProcessing
	r.UpdatedDate = time.Now().UTC()
}

// MarkSucceeded records the reported data and moves the record to succeeded
func (r *ProvisioningRecord) MarkSucceeded(data map[string]any) {
	r.Status = ProvisioningStatusSucceeded
	r.Data = data
	r.UpdatedDate = time.Now().UTC()
}

// MarkFailed updates the record status to failed with an error message
func (r *ProvisioningRecord) MarkFailed(errorMessage string) {
	r.Status = ProvisioningStatusFailed
	r.ErrorMessage = errorMessage
	r.UpdatedDate = time.Now().UTC()
}

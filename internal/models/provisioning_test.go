package models

import (
	"testing"
	"time"
)

func TestStage_IsValid(t *testing.T) {
	tests := []struct {
		name  string
		stage Stage
		want  bool
	}{
		{"dev is valid", StageDev, true},
		{"stage is valid", StageStage, true},
		{"prod is valid", StageProd, true},
		{"invalid stage", Stage("invalid"), false},
		{"empty stage", Stage(""), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.stage.IsValid(); got != tt.want {
				t.Errorf("Stage.IsValid() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestProvisioningStatus_IsValid(t *testing.T) {
	tests := []struct {
		name     string
		status   ProvisioningStatus
		want     bool
		terminal bool
	}{
		{"received is valid", ProvisioningStatusReceived, true, false},
		{"processing is valid", ProvisioningStatusProcessing, true, false},
		{"succeeded is valid", ProvisioningStatusSucceeded, true, true},
		{"failed is valid", ProvisioningStatusFailed, true, true},
		{"invalid status", ProvisioningStatus("invalid"), false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.status.IsValid(); got != tt.want {
				t.Errorf("ProvisioningStatus.IsValid() = %v, want %v", got, tt.want)
			}
			if got := tt.status.IsTerminal(); got != tt.terminal {
				t.Errorf("ProvisioningStatus.IsTerminal() = %v, want %v", got, tt.terminal)
			}
		})
	}
}

func TestResourceKind_IsValid(t *testing.T) {
	tests := []struct {
		name string
		kind ResourceKind
		want bool
	}{
		{"project is valid", ResourceKindDataAutomationProject, true},
		{"agent is valid", ResourceKindAgent, true},
		{"unknown kind", ResourceKind("bucket"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.kind.IsValid(); got != tt.want {
				t.Errorf("ResourceKind.IsValid() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNewProvisioningRecord(t *testing.T) {
	rec := NewProvisioningRecord("req-1", ResourceKindAgent, StageDev, "Create", "Custom::BedrockAgent", "SupervisorAgent", "stack-1")

	if rec.ID != "req-1" {
		t.Errorf("NewProvisioningRecord() ID = %v, want %v", rec.ID, "req-1")
	}
	if rec.Status != ProvisioningStatusReceived {
		t.Errorf("NewProvisioningRecord() Status = %v, want %v", rec.Status, ProvisioningStatusReceived)
	}
	if rec.LogicalResourceID != "SupervisorAgent" {
		t.Errorf("NewProvisioningRecord() LogicalResourceID = %v, want %v", rec.LogicalResourceID, "SupervisorAgent")
	}
	if rec.CreatedDate.IsZero() {
		t.Error("NewProvisioningRecord() CreatedDate is zero")
	}
}

func TestProvisioningRecord_Transitions(t *testing.T) {
	rec := NewProvisioningRecord("req-1", ResourceKindDataAutomationProject, StageDev, "Create", "Custom::DataAutomationProject", "Project", "stack-1")
	originalUpdated := rec.UpdatedDate

	time.Sleep(10 * time.Millisecond)
	rec.MarkProcessing()
	if rec.Status != ProvisioningStatusProcessing {
		t.Errorf("MarkProcessing() Status = %v, want %v", rec.Status, ProvisioningStatusProcessing)
	}
	if !rec.UpdatedDate.After(originalUpdated) {
		t.Error("MarkProcessing() did not update UpdatedDate")
	}

	rec.MarkSucceeded(map[string]any{"ProjectArn": "arn:project"})
	if rec.Status != ProvisioningStatusSucceeded {
		t.Errorf("MarkSucceeded() Status = %v, want %v", rec.Status, ProvisioningStatusSucceeded)
	}
	if rec.Data["ProjectArn"] != "arn:project" {
		t.Errorf("MarkSucceeded() Data = %v", rec.Data)
	}

	rec.MarkFailed("boom")
	if rec.Status != ProvisioningStatusFailed || rec.ErrorMessage != "boom" {
		t.Errorf("MarkFailed() = %v/%v, want failed/boom", rec.Status, rec.ErrorMessage)
	}
}

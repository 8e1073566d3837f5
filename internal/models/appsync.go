package models

import (
	"encoding/json"
	"fmt"
)

// Resolver operations
const (
	OperationChat        = "chat"
	OperationGenerateCSV = "generate_csv"
)

// ResolverArguments holds the GraphQL field arguments. Args is either a JSON
// string or a JSON object, depending on how the schema declares it.
type ResolverArguments struct {
	Args json.RawMessage `json:"args"`
}

// ResolverRequest is the request section of an AppSync Lambda resolver event
type ResolverRequest struct {
	Headers map[string]string `json:"headers"`
}

// ResolverEvent is the AppSync direct Lambda resolver payload
type ResolverEvent struct {
	Arguments ResolverArguments `json:"arguments"`
	Request   ResolverRequest   `json:"request"`
}

// ResolverResponse is returned to AppSync for every operation
type ResolverResponse struct {
	Success      bool   `json:"success"`
	Result       string `json:"result,omitempty"`
	ErrorMessage string `json:"errorMessage,omitempty"`
	StatusCode   string `json:"statusCode"`
}

// SuccessResponse wraps a successful result
func SuccessResponse(result string) *ResolverResponse {
	return &ResolverResponse{Success: true, Result: result, StatusCode: "200"}
}

// FailureResponse wraps an error message
func FailureResponse(message string) *ResolverResponse {
	return &ResolverResponse{Success: false, ErrorMessage: message, StatusCode: "400"}
}

// ChatPayload is the structured part of a chat turn
type ChatPayload struct {
	Metrics   map[string]any `json:"metrics"`
	Documents []any          `json:"documents"`
}

// Encode renders the payload as the AWSJSON string the schema expects
func (p ChatPayload) Encode() (string, error) {
	if p.Metrics == nil {
		p.Metrics = map[string]any{}
	}
	if p.Documents == nil {
		p.Documents = []any{}
	}
	b, err := json.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("failed to encode chat payload: %w", err)
	}
	return string(b), nil
}

// ChatUpdate is the input of the updateChat mutation. Payload holds an
// encoded ChatPayload.
type ChatUpdate struct {
	ID      string `json:"id"`
	UserID  string `json:"userID"`
	Human   string `json:"human"`
	Bot     string `json:"bot"`
	Payload string `json:"payload"`
}

// Chat is a stored chat record
type Chat struct {
	ID        string `json:"id"`
	UserID    string `json:"userID"`
	Human     string `json:"human"`
	Bot       string `json:"bot"`
	Payload   string `json:"payload"`
	CreatedAt string `json:"createdAt"`
	UpdatedAt string `json:"updatedAt"`
}

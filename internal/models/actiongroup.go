package models

import (
	"encoding/json"
	"fmt"
)

// ActionGroupMessageVersion is the envelope version Bedrock Agents expect
const ActionGroupMessageVersion = "1.0"

// AgentInfo identifies the agent that invoked an action group
type AgentInfo struct {
	Name    string `json:"name"`
	ID      string `json:"id"`
	Alias   string `json:"alias"`
	Version string `json:"version"`
}

// ActionParameter is a single named parameter passed by the agent
type ActionParameter struct {
	Name  string `json:"name"`
	Type  string `json:"type"`
	Value string `json:"value"`
}

// APIRequestContent holds the properties of one request body media type
type APIRequestContent struct {
	Properties []ActionParameter `json:"properties"`
}

// APIRequestBody is the request body of an apiPath action group call.
// Parameters is the flat form; Content is the OpenAPI form keyed by media type.
type APIRequestBody struct {
	Parameters map[string]any               `json:"parameters,omitempty"`
	Content    map[string]APIRequestContent `json:"content,omitempty"`
}

// APIActionEvent is the event of an action group defined by an OpenAPI schema
type APIActionEvent struct {
	MessageVersion          string            `json:"messageVersion"`
	Agent                   AgentInfo         `json:"agent"`
	InputText               string            `json:"inputText"`
	SessionID               string            `json:"sessionId"`
	ActionGroup             string            `json:"actionGroup"`
	APIPath                 string            `json:"apiPath"`
	HTTPMethod              string            `json:"httpMethod"`
	Parameters              []ActionParameter `json:"parameters,omitempty"`
	RequestBody             APIRequestBody    `json:"requestBody"`
	SessionAttributes       map[string]string `json:"sessionAttributes,omitempty"`
	PromptSessionAttributes map[string]string `json:"promptSessionAttributes,omitempty"`
}

// Param resolves a parameter from the flat request body, then the typed
// request body content, then the path/query parameters.
func (e APIActionEvent) Param(name string) (string, bool) {
	if v, ok := e.RequestBody.Parameters[name]; ok && v != nil {
		return stringifyParam(v), true
	}
	for _, content := range e.RequestBody.Content {
		for _, p := range content.Properties {
			if p.Name == name {
				return p.Value, true
			}
		}
	}
	for _, p := range e.Parameters {
		if p.Name == name {
			return p.Value, true
		}
	}
	return "", false
}

func stringifyParam(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case bool, float64, int, int64:
		return fmt.Sprint(t)
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprint(t)
		}
		return string(b)
	}
}

// APIResponseBody is the response of an apiPath action group call.
// Error is set instead of Content when the handler faulted.
type APIResponseBody struct {
	ActionGroup    string `json:"actionGroup,omitempty"`
	APIPath        string `json:"apiPath,omitempty"`
	HTTPMethod     string `json:"httpMethod,omitempty"`
	HTTPStatusCode int    `json:"httpStatusCode,omitempty"`
	Content        string `json:"content,omitempty"`
	ContentType    string `json:"contentType,omitempty"`
	Error          string `json:"error,omitempty"`
}

// APIActionResponse is the envelope returned to the agent for apiPath calls
type APIActionResponse struct {
	MessageVersion string          `json:"messageVersion"`
	Response       APIResponseBody `json:"response"`
}

// FunctionActionEvent is the event of an action group defined by function details
type FunctionActionEvent struct {
	MessageVersion          string            `json:"messageVersion"`
	Agent                   AgentInfo         `json:"agent"`
	InputText               string            `json:"inputText"`
	SessionID               string            `json:"sessionId"`
	ActionGroup             string            `json:"actionGroup"`
	Function                string            `json:"function"`
	Parameters              []ActionParameter `json:"parameters,omitempty"`
	SessionAttributes       map[string]string `json:"sessionAttributes,omitempty"`
	PromptSessionAttributes map[string]string `json:"promptSessionAttributes,omitempty"`
}

// Param returns the value of the named parameter
func (e FunctionActionEvent) Param(name string) (string, bool) {
	for _, p := range e.Parameters {
		if p.Name == name {
			return p.Value, true
		}
	}
	return "", false
}

// Function response states understood by Bedrock Agents
const (
	FunctionResponseStateFailure  = "FAILURE"
	FunctionResponseStateReprompt = "REPROMPT"
)

// TextBody is a plain text response body
type TextBody struct {
	Body string `json:"body"`
}

// FunctionResponse carries the result of a function action
type FunctionResponse struct {
	ResponseState string              `json:"responseState,omitempty"`
	ResponseBody  map[string]TextBody `json:"responseBody"`
}

// FunctionResponseBody is the response of a function action group call
type FunctionResponseBody struct {
	ActionGroup      string           `json:"actionGroup"`
	Function         string           `json:"function"`
	FunctionResponse FunctionResponse `json:"functionResponse"`
}

// FunctionActionResponse is the envelope returned to the agent for function calls
type FunctionActionResponse struct {
	MessageVersion string               `json:"messageVersion"`
	Response       FunctionResponseBody `json:"response"`
}

// NewFunctionTextResponse builds a TEXT function response
func NewFunctionTextResponse(actionGroup, function, body string) *FunctionActionResponse {
	return &FunctionActionResponse{
		MessageVersion: ActionGroupMessageVersion,
		Response: FunctionResponseBody{
			ActionGroup: actionGroup,
			Function:    function,
			FunctionResponse: FunctionResponse{
				ResponseBody: map[string]TextBody{"TEXT": {Body: body}},
			},
		},
	}
}

package graphql

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jrzesz33/bedrock_mac/internal/httpclient"
	"github.com/jrzesz33/bedrock_mac/internal/models"
)

// Auth carries the credentials for one GraphQL call. A bearer token takes
// the caller's identity and is sent with the original Host header; the API
// key is used for service-to-service calls.
type Auth struct {
	BearerToken string
	Host        string
	APIKey      string
}

// Request is a GraphQL operation
type Request struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

// Error is one entry of the GraphQL errors array
type Error struct {
	Message   string `json:"message"`
	ErrorType string `json:"errorType,omitempty"`
	Path      []any  `json:"path,omitempty"`
}

// Response is a GraphQL response envelope
type Response struct {
	Data   json.RawMessage `json:"data"`
	Errors []Error         `json:"errors,omitempty"`
}

// ResponseError is returned when the endpoint answered with GraphQL errors
type ResponseError struct {
	Errors []Error
}

func (e *ResponseError) Error() string {
	msgs := make([]string, 0, len(e.Errors))
	for _, err := range e.Errors {
		msgs = append(msgs, err.Message)
	}
	return "graphql errors: " + strings.Join(msgs, "; ")
}

// Client posts GraphQL operations to an AppSync endpoint
type Client struct {
	endpoint string
	http     *httpclient.Client
	logger   *slog.Logger
}

// NewClient creates a Client for endpoint
func NewClient(endpoint string, httpClient *httpclient.Client, logger *slog.Logger) *Client {
	return &Client{
		endpoint: endpoint,
		http:     httpClient,
		logger:   logger,
	}
}

// Execute posts req and returns the response. GraphQL errors in the body
// are reported as a *ResponseError alongside the decoded response.
func (c *Client) Execute(ctx context.Context, req Request, auth Auth) (*Response, error) {
	headers := map[string]string{
		"Accept":       "application/json",
		"Content-Type": "application/json",
	}
	if auth.BearerToken != "" {
		headers["Authorization"] = "Bearer " + strings.TrimPrefix(auth.BearerToken, "Bearer ")
		if auth.Host != "" {
			headers["Host"] = auth.Host
		}
	}
	if auth.APIKey != "" {
		headers["x-api-key"] = auth.APIKey
	}

	resp, err := c.http.Do(ctx, httpclient.RequestConfig{
		Method:  "POST",
		URL:     c.endpoint,
		Headers: headers,
		Body:    req,
	})
	if err != nil {
		return nil, fmt.Errorf("graphql request failed: %w", err)
	}

	var out Response
	if err := json.Unmarshal([]byte(resp.Body), &out); err != nil {
		return nil, fmt.Errorf("failed to decode graphql response: %w", err)
	}

	if len(out.Errors) > 0 {
		rerr := &ResponseError{Errors: out.Errors}
		c.logger.ErrorContext(ctx, "graphql errors",
			slog.String("error", rerr.Error()),
		)
		return &out, rerr
	}
	return &out, nil
}

// UpdateChat publishes a chat update through the updateChat mutation
func (c *Client) UpdateChat(ctx context.Context, update models.ChatUpdate, auth Auth) (*models.Chat, error) {
	resp, err := c.Execute(ctx, Request{
		Query:     UpdateChat,
		Variables: map[string]any{"input": update},
	}, auth)
	if err != nil {
		return nil, err
	}

	var data struct {
		UpdateChat *models.Chat `json:"updateChat"`
	}
	if err := json.Unmarshal(resp.Data, &data); err != nil {
		return nil, fmt.Errorf("failed to decode updateChat result: %w", err)
	}
	return data.UpdateChat, nil
}

// ChatsByUser returns one page of a user's chat history
func (c *Client) ChatsByUser(ctx context.Context, userID string, limit int, nextToken string, auth Auth) ([]models.Chat, string, error) {
	vars := map[string]any{"userID": userID}
	if limit > 0 {
		vars["limit"] = limit
	}
	if nextToken != "" {
		vars["nextToken"] = nextToken
	}

	resp, err := c.Execute(ctx, Request{Query: ChatsByUserID, Variables: vars}, auth)
	if err != nil {
		return nil, "", err
	}

	var data struct {
		ChatsByUserID struct {
			Items     []models.Chat `json:"items"`
			NextToken *string       `json:"nextToken"`
		} `json:"chatsByUserID"`
	}
	if err := json.Unmarshal(resp.Data, &data); err != nil {
		return nil, "", fmt.Errorf("failed to decode chatsByUserID result: %w", err)
	}

	token := ""
	if data.ChatsByUserID.NextToken != nil {
		token = *data.ChatsByUserID.NextToken
	}
	return data.ChatsByUserID.Items, token, nil
}

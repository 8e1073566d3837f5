package dataautomation

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/smithy-go"

	"github.com/jrzesz33/bedrock_mac/internal/httpclient"
)

// signingName is the SigV4 service name of the Data Automation control plane
const signingName = "bedrock"

const listPageSize = 100

// ProjectRef is returned by create and update calls
type ProjectRef struct {
	ProjectArn   string `json:"projectArn"`
	ProjectStage string `json:"projectStage,omitempty"`
	Status       string `json:"status,omitempty"`
}

// Project is the detailed description of a project
type Project struct {
	ProjectArn         string `json:"projectArn"`
	ProjectName        string `json:"projectName"`
	ProjectStage       string `json:"projectStage,omitempty"`
	ProjectDescription string `json:"projectDescription,omitempty"`
	Status             string `json:"status"`
}

// ProjectSummary is one entry of a project listing
type ProjectSummary struct {
	ProjectArn   string `json:"projectArn"`
	ProjectName  string `json:"projectName"`
	ProjectStage string `json:"projectStage,omitempty"`
}

// Client calls the Bedrock Data Automation REST API with SigV4 signed requests
type Client struct {
	http        *httpclient.Client
	endpoint    string
	region      string
	credentials aws.CredentialsProvider
	signer      *v4.Signer
	now         func() time.Time
}

// ClientOption customises a Client
type ClientOption func(*Client)

// WithEndpoint overrides the regional endpoint
func WithEndpoint(endpoint string) ClientOption {
	return func(c *Client) {
		c.endpoint = strings.TrimRight(endpoint, "/")
	}
}

// NewClient creates a Client for the region and credentials of cfg
func NewClient(cfg aws.Config, httpClient *httpclient.Client, opts ...ClientOption) *Client {
	c := &Client{
		http:        httpClient,
		endpoint:    fmt.Sprintf("https://bedrock-data-automation.%s.amazonaws.com", cfg.Region),
		region:      cfg.Region,
		credentials: cfg.Credentials,
		signer:      v4.NewSigner(),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// CreateProject creates a project from the given request body
func (c *Client) CreateProject(ctx context.Context, params map[string]any) (*ProjectRef, error) {
	var out ProjectRef
	if err := c.call(ctx, http.MethodPut, "/data-automation-projects/", params, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetProject describes the project
func (c *Client) GetProject(ctx context.Context, projectArn string) (*Project, error) {
	var out struct {
		Project Project `json:"project"`
	}
	if err := c.call(ctx, http.MethodPost, projectPath(projectArn), map[string]any{}, &out); err != nil {
		return nil, err
	}
	return &out.Project, nil
}

// ListProjects returns one page of projects starting at token
func (c *Client) ListProjects(ctx context.Context, token *string) ([]ProjectSummary, *string, error) {
	body := map[string]any{"maxResults": listPageSize}
	if token != nil {
		body["nextToken"] = *token
	}
	var out struct {
		Projects  []ProjectSummary `json:"projects"`
		NextToken *string          `json:"nextToken"`
	}
	if err := c.call(ctx, http.MethodPost, "/data-automation-projects/", body, &out); err != nil {
		return nil, nil, err
	}
	return out.Projects, out.NextToken, nil
}

// UpdateProject replaces the configuration of the project
func (c *Client) UpdateProject(ctx context.Context, projectArn string, params map[string]any) (*ProjectRef, error) {
	var out ProjectRef
	if err := c.call(ctx, http.MethodPut, projectPath(projectArn), params, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteProject deletes the project
func (c *Client) DeleteProject(ctx context.Context, projectArn string) error {
	return c.call(ctx, http.MethodDelete, projectPath(projectArn), nil, nil)
}

func (c *Client) call(ctx context.Context, method, path string, body any, out any) error {
	resp, err := c.http.Do(ctx, httpclient.RequestConfig{
		Method: method,
		URL:    c.endpoint + path,
		Body:   body,
		Sign:   c.sign,
	})
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, toAPIError(err))
	}
	if out == nil || strings.TrimSpace(resp.Body) == "" {
		return nil
	}
	if err := json.Unmarshal([]byte(resp.Body), out); err != nil {
		return fmt.Errorf("failed to decode %s %s response: %w", method, path, err)
	}
	return nil
}

func (c *Client) sign(req *http.Request, payload []byte) error {
	if c.credentials == nil {
		return errors.New("no AWS credentials configured")
	}
	creds, err := c.credentials.Retrieve(req.Context())
	if err != nil {
		return fmt.Errorf("failed to retrieve credentials: %w", err)
	}
	sum := sha256.Sum256(payload)
	return c.signer.SignHTTP(req.Context(), creds, req, hex.EncodeToString(sum[:]), signingName, c.region, c.now())
}

// toAPIError turns an HTTP error response into a smithy API error so callers
// can match error codes the same way they do for SDK clients.
func toAPIError(err error) error {
	var statusErr *httpclient.StatusError
	if !errors.As(err, &statusErr) {
		return err
	}

	var body struct {
		Type         string `json:"__type"`
		Message      string `json:"message"`
		MessageUpper string `json:"Message"`
	}
	_ = json.Unmarshal([]byte(statusErr.Body), &body)

	code := statusErr.Headers.Get("X-Amzn-ErrorType")
	if code == "" {
		code = body.Type
	}
	if i := strings.Index(code, ":"); i >= 0 {
		code = code[:i]
	}
	if i := strings.LastIndex(code, "#"); i >= 0 {
		code = code[i+1:]
	}
	if code == "" {
		code = fmt.Sprintf("HTTP%d", statusErr.StatusCode)
	}

	msg := body.Message
	if msg == "" {
		msg = body.MessageUpper
	}

	fault := smithy.FaultClient
	if statusErr.StatusCode >= 500 {
		fault = smithy.FaultServer
	}
	return &smithy.GenericAPIError{Code: code, Message: msg, Fault: fault}
}

func projectPath(projectArn string) string {
	return "/data-automation-projects/" + escapeLabel(projectArn) + "/"
}

// escapeLabel percent-encodes every byte outside the RFC 3986 unreserved set,
// including '/' and ':', the way REST path labels are encoded.
func escapeLabel(s string) string {
	const hexDigits = "0123456789ABCDEF"
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		ch := s[i]
		if ('A' <= ch && ch <= 'Z') || ('a' <= ch && ch <= 'z') || ('0' <= ch && ch <= '9') ||
			ch == '-' || ch == '_' || ch == '.' || ch == '~' {
			b.WriteByte(ch)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(hexDigits[ch>>4])
		b.WriteByte(hexDigits[ch&0x0F])
	}
	return b.String()
}

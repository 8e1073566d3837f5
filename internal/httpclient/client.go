package httpclient

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"
)

const (
	defaultMaxAttempts = 3
	defaultBaseDelay   = time.Second
	userAgent          = "bedrock-mac/1.0"
)

// SignFunc signs a fully built request right before it is sent. It is
// called once per attempt so every retry carries a fresh signature.
type SignFunc func(req *http.Request, payload []byte) error

// Client wraps http.Client with security features and retry logic
type Client struct {
	httpClient  *http.Client
	logger      *slog.Logger
	maxAttempts int
	baseDelay   time.Duration
}

// Option customises a Client
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithRetry sets the number of attempts and the base of the exponential delay
func WithRetry(maxAttempts int, baseDelay time.Duration) Option {
	return func(c *Client) {
		if maxAttempts > 0 {
			c.maxAttempts = maxAttempts
		}
		c.baseDelay = baseDelay
	}
}

// NewClient creates a new HTTP client with security configuration
func NewClient(logger *slog.Logger, opts ...Option) *Client {
	// SECURITY: Configure TLS 1.2+ only
	tlsConfig := &tls.Config{
		MinVersion: tls.VersionTLS12,
		MaxVersion: tls.VersionTLS13,
	}

	transport := &http.Transport{
		TLSClientConfig: tlsConfig,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:          10,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		ForceAttemptHTTP2:     true,
	}

	c := &Client{
		httpClient: &http.Client{
			Transport: transport,
			Timeout:   30 * time.Second,
			// SECURITY: Do NOT follow redirects automatically (prevent open redirect)
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		logger:      logger,
		maxAttempts: defaultMaxAttempts,
		baseDelay:   defaultBaseDelay,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// RequestConfig contains configuration for an HTTP request.
// Body is JSON encoded; RawBody is sent as is and takes precedence.
type RequestConfig struct {
	Method  string
	URL     string
	Headers map[string]string
	Body    interface{}
	RawBody []byte
	Timeout time.Duration
	Sign    SignFunc
}

// Response represents an HTTP response
type Response struct {
	StatusCode int
	Body       string
	Headers    http.Header
}

// StatusError is returned for responses with a 4xx or 5xx status
type StatusError struct {
	StatusCode int
	Body       string
	Headers    http.Header
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP error %d: %s", e.StatusCode, truncateBody(e.Body, 200))
}

// Do executes an HTTP request with retry logic. On failure the last
// response received, if any, is returned alongside the error.
func (c *Client) Do(ctx context.Context, config RequestConfig) (*Response, error) {
	if config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, config.Timeout)
		defer cancel()
	}

	payload, err := encodeBody(config)
	if err != nil {
		return nil, err
	}

	var (
		lastErr  error
		lastResp *Response
	)

	for attempt := 0; attempt < c.maxAttempts; attempt++ {
		if attempt > 0 {
			// Exponential backoff: base * 2^attempt
			backoff := c.baseDelay * time.Duration(1<<uint(attempt))
			c.logger.Info("retrying HTTP request",
				slog.Int("attempt", attempt+1),
				slog.Int("max_retries", c.maxAttempts),
				slog.Duration("backoff", backoff),
			)

			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return lastResp, ctx.Err()
			}
		}

		resp, err := c.doRequest(ctx, config, payload)
		if err == nil {
			return resp, nil
		}

		lastErr = err
		lastResp = resp

		if !isRetryableError(err) {
			c.logger.Warn("non-retryable error, aborting",
				slog.String("error", err.Error()),
			)
			return lastResp, err
		}

		c.logger.Warn("retryable error occurred",
			slog.String("error", err.Error()),
			slog.Int("attempt", attempt+1),
		)
	}

	return lastResp, fmt.Errorf("request failed after %d attempts: %w", c.maxAttempts, lastErr)
}

func encodeBody(config RequestConfig) ([]byte, error) {
	if config.RawBody != nil {
		return config.RawBody, nil
	}
	if config.Body == nil {
		return nil, nil
	}
	b, err := json.Marshal(config.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request body: %w", err)
	}
	return b, nil
}

// doRequest performs a single HTTP request
func (c *Client) doRequest(ctx context.Context, config RequestConfig, payload []byte) (*Response, error) {
	var bodyReader io.Reader
	if payload != nil {
		bodyReader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, config.Method, config.URL, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	for key, value := range config.Headers {
		// net/http ignores a Host entry in the header map
		if strings.EqualFold(key, "Host") {
			req.Host = value
			continue
		}
		req.Header.Set(key, value)
	}

	if req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", userAgent)
	}
	if config.Body != nil && config.RawBody == nil && req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", "application/json")
	}

	if config.Sign != nil {
		if err := config.Sign(req, payload); err != nil {
			return nil, fmt.Errorf("failed to sign request: %w", err)
		}
	}

	// SECURITY: Log request without sensitive headers
	c.logRequest(req)

	startTime := time.Now()
	resp, err := c.httpClient.Do(req)
	duration := time.Since(startTime)

	if err != nil {
		c.logger.Error("HTTP request failed",
			slog.String("method", config.Method),
			slog.String("url", redactURL(req)),
			slog.Duration("duration", duration),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	response := &Response{
		StatusCode: resp.StatusCode,
		Body:       string(bodyBytes),
		Headers:    resp.Header,
	}

	c.logger.Info("HTTP request completed",
		slog.String("method", config.Method),
		slog.String("url", redactURL(req)),
		slog.Int("status_code", resp.StatusCode),
		slog.Duration("duration", duration),
		slog.Int("response_size", len(bodyBytes)),
	)

	if resp.StatusCode >= 400 {
		return response, &StatusError{
			StatusCode: resp.StatusCode,
			Body:       response.Body,
			Headers:    resp.Header,
		}
	}

	return response, nil
}

// logRequest logs HTTP request without sensitive information
func (c *Client) logRequest(req *http.Request) {
	// SECURITY: Redact sensitive headers
	redactedHeaders := make(map[string]string)
	for key := range req.Header {
		lowerKey := strings.ToLower(key)
		if strings.Contains(lowerKey, "auth") ||
			strings.Contains(lowerKey, "token") ||
			strings.Contains(lowerKey, "key") ||
			strings.Contains(lowerKey, "secret") ||
			strings.Contains(lowerKey, "password") ||
			strings.Contains(lowerKey, "security") {
			redactedHeaders[key] = "[REDACTED]"
		} else {
			redactedHeaders[key] = req.Header.Get(key)
		}
	}

	c.logger.Debug("HTTP request",
		slog.String("method", req.Method),
		slog.String("url", redactURL(req)),
		slog.Any("headers", redactedHeaders),
	)
}

// redactURL drops the query string, which carries the signature of pre-signed URLs
func redactURL(req *http.Request) string {
	u := *req.URL
	if u.RawQuery != "" {
		u.RawQuery = "[REDACTED]"
	}
	return u.String()
}

// isRetryableError determines if an error should trigger a retry
func isRetryableError(err error) bool {
	if err == nil {
		return false
	}

	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		// HTTP 5xx and 429 (Too Many Requests) are retryable
		return statusErr.StatusCode >= 500 || statusErr.StatusCode == http.StatusTooManyRequests
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	msg := err.Error()
	return strings.Contains(msg, "timeout") ||
		strings.Contains(msg, "deadline exceeded") ||
		strings.Contains(msg, "connection") ||
		strings.Contains(msg, "EOF")
}

// truncateBody truncates a response body for logging
func truncateBody(body string, maxLen int) string {
	if len(body) <= maxLen {
		return body
	}
	return body[:maxLen] + "..."
}

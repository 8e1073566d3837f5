package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"

	"github.com/jrzesz33/bedrock_mac/internal/app"
	"github.com/jrzesz33/bedrock_mac/internal/graphql"
	"github.com/jrzesz33/bedrock_mac/internal/models"
	"github.com/jrzesz33/bedrock_mac/internal/repository"
	appconfig "github.com/jrzesz33/bedrock_mac/pkg/config"
)

const (
	defaultLimit = 100
	maxLimit     = 1000
	helloMessage = "Hello from Go Lambda!"
)

// RecordReader is the read side of the provisioning journal
type RecordReader interface {
	GetRecord(ctx context.Context, id string) (*models.ProvisioningRecord, error)
	ListRecords(ctx context.Context, kind *models.ResourceKind, status *models.ProvisioningStatus, limit int) ([]*models.ProvisioningRecord, error)
}

// ChatHistory pages through a user's chats
type ChatHistory interface {
	ChatsByUser(ctx context.Context, userID string, limit int, nextToken string, auth graphql.Auth) ([]models.Chat, string, error)
}

// WebAPIHandler handles API Gateway requests
type WebAPIHandler struct {
	config  *appconfig.Config
	records RecordReader
	chats   ChatHistory
	logger  *slog.Logger
}

// NewWebAPIHandler creates a new web API handler instance. records and
// chats may be nil when the backing resource is not configured.
func NewWebAPIHandler(
	cfg *appconfig.Config,
	records RecordReader,
	chats ChatHistory,
	logger *slog.Logger,
) *WebAPIHandler {
	return &WebAPIHandler{
		config:  cfg,
		records: records,
		chats:   chats,
		logger:  logger,
	}
}

// HandleRequest routes API Gateway V2 requests to appropriate handlers
func (h *WebAPIHandler) HandleRequest(ctx context.Context, request events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
	h.logger.DebugContext(ctx, "received API request",
		slog.String("method", request.RequestContext.HTTP.Method),
		slog.String("path", request.RawPath),
	)

	headers := map[string]string{
		"Content-Type":                 "application/json",
		"Access-Control-Allow-Origin":  "*",
		"Access-Control-Allow-Methods": "GET, OPTIONS",
		"Access-Control-Allow-Headers": "Content-Type, Authorization",
	}

	// Handle OPTIONS for CORS preflight
	if request.RequestContext.HTTP.Method == "OPTIONS" {
		return events.APIGatewayV2HTTPResponse{
			StatusCode: http.StatusOK,
			Headers:    headers,
		}, nil
	}

	var response events.APIGatewayV2HTTPResponse
	var err error

	path := request.RawPath
	if path == "" {
		path = request.RequestContext.HTTP.Path
	}
	path = strings.TrimSuffix(path, "/")
	method := request.RequestContext.HTTP.Method

	switch {
	case path == "/api/health" && method == "GET":
		response, err = h.handleHealth(ctx)
	case path == "/api/hello" && method == "GET":
		response, err = h.jsonResponse(http.StatusOK, map[string]string{"message": helloMessage})
	case path == "/api/provisioning" && method == "GET":
		response, err = h.handleListRecords(ctx, request)
	case strings.HasPrefix(path, "/api/provisioning/") && method == "GET":
		response, err = h.handleGetRecord(ctx, strings.TrimPrefix(path, "/api/provisioning/"))
	case path == "/api/chats" && method == "GET":
		response, err = h.handleListChats(ctx, request)
	default:
		response = h.createErrorResponse(http.StatusNotFound, "endpoint not found")
	}

	if err != nil {
		h.logger.ErrorContext(ctx, "request handler error",
			slog.String("error", err.Error()),
		)
	}

	if response.Headers == nil {
		response.Headers = headers
	} else {
		for k, v := range headers {
			response.Headers[k] = v
		}
	}

	// Failures are already rendered into the response
	return response, nil
}

// handleHealth returns the health status of the API
func (h *WebAPIHandler) handleHealth(_ context.Context) (events.APIGatewayV2HTTPResponse, error) {
	return h.jsonResponse(http.StatusOK, map[string]any{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"stage":     h.config.Stage.String(),
	})
}

// handleListRecords returns journal records with optional filtering
func (h *WebAPIHandler) handleListRecords(ctx context.Context, request events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
	if h.records == nil {
		return h.createErrorResponse(http.StatusServiceUnavailable, "provisioning journal not configured"), nil
	}

	var kind *models.ResourceKind
	var status *models.ProvisioningStatus

	if kindParam := request.QueryStringParameters["kind"]; kindParam != "" {
		k := models.ResourceKind(kindParam)
		if !k.IsValid() {
			return h.createErrorResponse(http.StatusBadRequest, "invalid kind value"), nil
		}
		kind = &k
	}

	if statusParam := request.QueryStringParameters["status"]; statusParam != "" {
		st := models.ProvisioningStatus(statusParam)
		if !st.IsValid() {
			return h.createErrorResponse(http.StatusBadRequest, "invalid status value"), nil
		}
		status = &st
	}

	limit := parseLimit(request.QueryStringParameters["limit"])

	h.logger.DebugContext(ctx, "listing provisioning records",
		slog.Any("kind", kind),
		slog.Any("status", status),
		slog.Int("limit", limit),
	)

	records, err := h.records.ListRecords(ctx, kind, status, limit)
	if err != nil {
		return h.createErrorResponse(http.StatusInternalServerError, "failed to retrieve provisioning records"), err
	}

	return h.jsonResponse(http.StatusOK, map[string]any{
		"records": records,
		"count":   len(records),
	})
}

// handleGetRecord returns one journal record
func (h *WebAPIHandler) handleGetRecord(ctx context.Context, id string) (events.APIGatewayV2HTTPResponse, error) {
	if h.records == nil {
		return h.createErrorResponse(http.StatusServiceUnavailable, "provisioning journal not configured"), nil
	}

	record, err := h.records.GetRecord(ctx, id)
	if errors.Is(err, repository.ErrRecordNotFound) {
		return h.createErrorResponse(http.StatusNotFound, "provisioning record not found"), nil
	}
	if err != nil {
		return h.createErrorResponse(http.StatusInternalServerError, "failed to retrieve provisioning record"), err
	}

	return h.jsonResponse(http.StatusOK, record)
}

// handleListChats proxies a chat history page using the caller's token
func (h *WebAPIHandler) handleListChats(ctx context.Context, request events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
	if h.chats == nil {
		return h.createErrorResponse(http.StatusServiceUnavailable, "graphql endpoint not configured"), nil
	}

	userID := request.QueryStringParameters["userId"]
	if userID == "" {
		return h.createErrorResponse(http.StatusBadRequest, "userId is required"), nil
	}

	token := request.Headers["authorization"]
	if token == "" {
		token = request.Headers["Authorization"]
	}
	if token == "" {
		return h.createErrorResponse(http.StatusUnauthorized, "authorization header is required"), nil
	}

	chats, next, err := h.chats.ChatsByUser(ctx, userID, parseLimit(request.QueryStringParameters["limit"]),
		request.QueryStringParameters["nextToken"], graphql.Auth{BearerToken: token})
	if err != nil {
		return h.createErrorResponse(http.StatusBadGateway, "failed to retrieve chats"), err
	}

	return h.jsonResponse(http.StatusOK, map[string]any{
		"chats":     chats,
		"count":     len(chats),
		"nextToken": next,
	})
}

func parseLimit(v string) int {
	if l, err := strconv.Atoi(v); err == nil && l > 0 && l <= maxLimit {
		return l
	}
	return defaultLimit
}

func (h *WebAPIHandler) jsonResponse(statusCode int, v any) (events.APIGatewayV2HTTPResponse, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return h.createErrorResponse(http.StatusInternalServerError, "failed to marshal response"), err
	}
	return events.APIGatewayV2HTTPResponse{
		StatusCode: statusCode,
		Body:       string(body),
	}, nil
}

// createErrorResponse creates a standardized error response
func (h *WebAPIHandler) createErrorResponse(statusCode int, message string) events.APIGatewayV2HTTPResponse {
	errorBody := map[string]string{
		"error":  message,
		"status": strconv.Itoa(statusCode),
	}
	body, _ := json.Marshal(errorBody)

	return events.APIGatewayV2HTTPResponse{
		StatusCode: statusCode,
		Body:       string(body),
	}
}

func main() {
	rt := app.MustLoad("web api")

	var records RecordReader
	if repo := rt.ProvisioningRepository(); repo != nil {
		records = repo
	}

	var chats ChatHistory
	if rt.Config.GraphQLEndpoint != "" {
		chats = rt.GraphQL()
	}

	handler := NewWebAPIHandler(rt.Config, records, chats, rt.Logger)

	lambda.Start(handler.HandleRequest)
}

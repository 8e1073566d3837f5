package resolver

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"

	"github.com/jrzesz33/bedrock_mac/internal/agentruntime"
	"github.com/jrzesz33/bedrock_mac/internal/graphql"
	"github.com/jrzesz33/bedrock_mac/internal/models"
)

const (
	endSessionMarker = "end_session"
	promptDateKey    = "today's date"
	csvInstruction   = "Generate production-ready CSV file with vendor mapping and enriched supplier information for SAP data input: "
	chatFailure      = "Appsync resolver error"
)

// AgentInvoker runs one agent turn
type AgentInvoker interface {
	Invoke(ctx context.Context, req agentruntime.Request, mode agentruntime.Mode) (*agentruntime.Result, error)
}

// ChatPublisher publishes chat updates to subscribed clients
type ChatPublisher interface {
	UpdateChat(ctx context.Context, update models.ChatUpdate, auth graphql.Auth) (*models.Chat, error)
}

// APIKeySource resolves the GraphQL API key
type APIKeySource interface {
	GetAPIKey(ctx context.Context, secretName string) (string, error)
}

// Handler serves the AppSync agent resolver
type Handler struct {
	agent        AgentInvoker
	publisher    ChatPublisher
	apiKeys      APIKeySource
	apiKeySecret string
	logger       *slog.Logger
	now          func() time.Time
	newID        func() string
}

// Option customises a Handler
type Option func(*Handler)

// WithAPIKeySecret makes the handler authenticate mutations with the API
// key stored in secretName when the caller did not forward a token.
func WithAPIKeySecret(source APIKeySource, secretName string) Option {
	return func(h *Handler) {
		h.apiKeys = source
		h.apiKeySecret = secretName
	}
}

// NewHandler creates a resolver Handler
func NewHandler(agent AgentInvoker, publisher ChatPublisher, logger *slog.Logger, opts ...Option) *Handler {
	h := &Handler{
		agent:     agent,
		publisher: publisher,
		logger:    logger,
		now:       time.Now,
		newID:     uuid.NewString,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// HandleEvent dispatches on args.opr. Faults never escape as errors; they
// are returned as failure responses.
func (h *Handler) HandleEvent(ctx context.Context, event models.ResolverEvent) (*models.ResolverResponse, error) {
	args, err := parseArgs(event.Arguments.Args)
	if err != nil {
		h.logger.ErrorContext(ctx, "invalid resolver arguments", slog.String("error", err.Error()))
		return models.FailureResponse(chatFailure), nil
	}

	opr := args.Get("opr").String()
	h.logger.InfoContext(ctx, "resolver invoked", slog.String("operation", opr))

	switch opr {
	case models.OperationChat:
		reply, err := h.chat(ctx, args, event.Request.Headers)
		if err != nil {
			h.logger.ErrorContext(ctx, "chat failed", slog.String("error", err.Error()))
			return models.FailureResponse(chatFailure), nil
		}
		return models.SuccessResponse(reply), nil
	case models.OperationGenerateCSV:
		csv, err := h.generateCSV(ctx, args)
		if err != nil {
			h.logger.ErrorContext(ctx, "CSV generation failed", slog.String("error", err.Error()))
			return models.FailureResponse("Error generating CSV: " + err.Error()), nil
		}
		return models.SuccessResponse(csv), nil
	default:
		h.logger.WarnContext(ctx, "unsupported resolver operation", slog.String("operation", opr))
		return models.FailureResponse(fmt.Sprintf("unsupported operation %q", opr)), nil
	}
}

func (h *Handler) chat(ctx context.Context, args gjson.Result, headers map[string]string) (string, error) {
	message := args.Get("message").String()
	userID := args.Get("userID").String()

	token := header(headers, "authorization")
	if sub, err := callerFromToken(token); err == nil {
		h.logger.DebugContext(ctx, "resolved caller", slog.String("caller_sub", sub))
		if userID == "" {
			userID = sub
		}
	}
	if message == "" || userID == "" {
		return "", fmt.Errorf("message and userID are required")
	}

	input := message
	if titles := documentTitles(args); len(titles) > 0 {
		input += "\nAttached Documents:\n- " + strings.Join(titles, "\n- ")
	}

	res, err := h.agent.Invoke(ctx, agentruntime.Request{
		SessionID:        userID,
		InputText:        input,
		EndSession:       strings.Contains(message, endSessionMarker),
		PromptAttributes: map[string]string{promptDateKey: h.now().Format("2006-01-02")},
	}, agentruntime.ModeReplace)
	if err != nil {
		return "", err
	}

	documents, _ := valueOr(args, "documents", []any{}).([]any)
	payload, err := models.ChatPayload{Metrics: map[string]any{}, Documents: documents}.Encode()
	if err != nil {
		return "", err
	}

	auth, err := h.auth(ctx, headers, token)
	if err != nil {
		return "", err
	}

	if _, err := h.publisher.UpdateChat(ctx, models.ChatUpdate{
		ID:      args.Get("id").String(),
		UserID:  userID,
		Human:   message,
		Bot:     res.Text,
		Payload: payload,
	}, auth); err != nil {
		return "", fmt.Errorf("failed to publish chat update: %w", err)
	}
	return agentruntime.FormatBotReply(res.Text), nil
}

// auth prefers the caller's token, then the stored API key, then a
// forwarded API key header.
func (h *Handler) auth(ctx context.Context, headers map[string]string, token string) (graphql.Auth, error) {
	if token != "" {
		return graphql.Auth{BearerToken: token, Host: header(headers, "host")}, nil
	}
	if h.apiKeys != nil && h.apiKeySecret != "" {
		key, err := h.apiKeys.GetAPIKey(ctx, h.apiKeySecret)
		if err != nil {
			return graphql.Auth{}, err
		}
		return graphql.Auth{APIKey: key}, nil
	}
	return graphql.Auth{APIKey: header(headers, "x-api-key")}, nil
}

// invoiceInput keeps the field order the CSV agent instruction lists
type invoiceInput struct {
	Vendor             any `json:"vendor"`
	InvoiceDate        any `json:"invoiceDate"`
	PaymentTerms       any `json:"paymentTerms"`
	DueDate            any `json:"dueDate"`
	Currency           any `json:"currency"`
	InvoiceTotalAmount any `json:"invoiceTotalAmount"`
	InvoiceLineItems   any `json:"invoiceLineItems"`
	SpecialRemarks     any `json:"specialRemarks"`
	VendorBankAccount  any `json:"vendorBankAccount"`
	BankCode           any `json:"bankCode"`
	SwiftCode          any `json:"swiftCode"`
	MeterNumber        any `json:"meterNumber"`
	DeltaReadings      any `json:"deltaReadings"`
	Supplier           any `json:"supplier"`
	InvoiceID          any `json:"invoiceId"`
	DocumentClass      any `json:"documentClass"`
	Confidence         any `json:"confidence"`
}

func newInvoiceInput(args gjson.Result) invoiceInput {
	s := func(path string) any { return valueOr(args, path, "") }
	return invoiceInput{
		Vendor:             s("vendor"),
		InvoiceDate:        s("invoiceDate"),
		PaymentTerms:       s("paymentTerms"),
		DueDate:            s("dueDate"),
		Currency:           s("currency"),
		InvoiceTotalAmount: s("invoiceTotalAmount"),
		InvoiceLineItems:   valueOr(args, "invoiceLineItems", []any{}),
		SpecialRemarks:     s("specialRemarks"),
		VendorBankAccount:  s("vendorBankAccount"),
		BankCode:           s("bankCode"),
		SwiftCode:          s("swiftCode"),
		MeterNumber:        s("meterNumber"),
		DeltaReadings:      s("deltaReadings"),
		Supplier:           s("supplier"),
		InvoiceID:          s("invoiceId"),
		DocumentClass:      s("documentClass"),
		Confidence:         s("confidence"),
	}
}

func (h *Handler) generateCSV(ctx context.Context, args gjson.Result) (string, error) {
	message, err := agentruntime.SafeMessage(newInvoiceInput(args))
	if err != nil {
		return "", err
	}

	sessionID := fmt.Sprintf("csv-generation-%s-%s", h.now().Format("20060102150405"), h.newID()[:8])
	res, err := h.agent.Invoke(ctx, agentruntime.Request{
		SessionID: sessionID,
		InputText: message + csvInstruction,
	}, agentruntime.ModeAppend)
	if err != nil {
		return "", err
	}
	return res.Text, nil
}

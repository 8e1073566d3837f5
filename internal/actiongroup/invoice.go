package actiongroup

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jrzesz33/bedrock_mac/internal/models"
	"github.com/jrzesz33/bedrock_mac/pkg/catalog"
)

// Invoice processing api paths
const (
	PathVerifyInvoiceDocuments   = "verify_invoice_documents"
	PathRecordApplicationDetails = "record_application_details"
	PathRetrieveVendorList       = "retrieve_vendor_list"
	PathGenerateCSV              = "generate_csv"
)

const (
	contentTypeJSON = "application/json"
	contentTypeCSV  = "text/csv"
)

// Content is the payload an apiPath handler returns
type Content struct {
	Body        string
	ContentType string
}

// APIHandler serves one apiPath
type APIHandler func(ctx context.Context, event models.APIActionEvent) (Content, error)

// InvoiceActions serves the invoice processing action group. Its data
// comes from the embedded catalog.
type InvoiceActions struct {
	catalog  *catalog.Catalog
	registry *Registry[APIHandler]
	logger   *slog.Logger
	now      func() time.Time
}

// NewInvoiceActions creates the handler with every invoice path registered
func NewInvoiceActions(c *catalog.Catalog, logger *slog.Logger) *InvoiceActions {
	a := &InvoiceActions{
		catalog:  c,
		registry: NewRegistry[APIHandler](logger),
		logger:   logger,
		now:      time.Now,
	}
	a.registry.MustRegister(PathVerifyInvoiceDocuments, a.verifyInvoiceDocuments)
	a.registry.MustRegister(PathRecordApplicationDetails, a.recordApplicationDetails)
	a.registry.MustRegister(PathRetrieveVendorList, a.retrieveVendorList)
	a.registry.MustRegister(PathGenerateCSV, a.generateCSV)
	return a
}

// HandleEvent routes on apiPath. Faults are reported in the response
// error field rather than returned.
func (a *InvoiceActions) HandleEvent(ctx context.Context, event models.APIActionEvent) (*models.APIActionResponse, error) {
	a.logger.InfoContext(ctx, "invoice action invoked",
		slog.String("action_group", event.ActionGroup),
		slog.String("api_path", event.APIPath),
	)

	content, err := a.dispatch(ctx, event)
	if err != nil {
		a.logger.ErrorContext(ctx, "error processing request",
			slog.String("api_path", event.APIPath),
			slog.String("error", err.Error()),
		)
		return &models.APIActionResponse{
			MessageVersion: models.ActionGroupMessageVersion,
			Response:       models.APIResponseBody{Error: err.Error()},
		}, nil
	}

	return &models.APIActionResponse{
		MessageVersion: models.ActionGroupMessageVersion,
		Response: models.APIResponseBody{
			Content:     content.Body,
			ContentType: content.ContentType,
		},
	}, nil
}

func (a *InvoiceActions) dispatch(ctx context.Context, event models.APIActionEvent) (Content, error) {
	handler, err := a.registry.Get(strings.TrimPrefix(event.APIPath, "/"))
	if err != nil {
		return Content{}, fmt.Errorf("Unknown API path: %s", event.APIPath)
	}
	return handler(ctx, event)
}

func (a *InvoiceActions) verifyInvoiceDocuments(ctx context.Context, event models.APIActionEvent) (Content, error) {
	document, _ := event.Param("document")
	a.logger.InfoContext(ctx, "verifying invoice documents", slog.String("document", document))
	return jsonContent(a.catalog.Extraction)
}

func (a *InvoiceActions) recordApplicationDetails(ctx context.Context, event models.APIActionEvent) (Content, error) {
	invoiceData, _ := event.Param("invoice_data")
	invoiceID, _ := event.Param("invoice_id")
	a.logger.InfoContext(ctx, "recording invoice details", slog.String("invoice_id", invoiceID))

	if !json.Valid([]byte(invoiceData)) {
		return jsonContent(map[string]string{
			"status":  "error",
			"message": "Invalid JSON format in invoice_data",
		})
	}
	return jsonContent(map[string]string{
		"status":    "success",
		"message":   "Invoice details recorded successfully with ID: " + invoiceID,
		"timestamp": a.now().Format("2006-01-02T15:04:05.000000"),
	})
}

func (a *InvoiceActions) retrieveVendorList(ctx context.Context, event models.APIActionEvent) (Content, error) {
	criteria, _ := event.Param("search_criteria")
	a.logger.InfoContext(ctx, "retrieving vendor list", slog.String("search_criteria", criteria))
	return jsonContent(a.catalog.SearchVendors(criteria))
}

func (a *InvoiceActions) generateCSV(ctx context.Context, event models.APIActionEvent) (Content, error) {
	invoiceID, _ := event.Param("invoice_id")
	mapping, ok := event.Param("include_vendor_mapping")
	if !ok {
		mapping = "true"
	}
	a.logger.InfoContext(ctx, "generating CSV", slog.String("invoice_id", invoiceID))
	return Content{
		Body:        a.catalog.InvoiceCSV(invoiceID, strings.EqualFold(mapping, "true")),
		ContentType: contentTypeCSV,
	}, nil
}

func jsonContent(v any) (Content, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return Content{}, fmt.Errorf("failed to encode response: %w", err)
	}
	return Content{Body: string(b), ContentType: contentTypeJSON}, nil
}

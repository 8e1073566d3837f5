package actiongroup

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jrzesz33/bedrock_mac/internal/models"
	"github.com/jrzesz33/bedrock_mac/internal/storage"
)

// Loan application functions
const (
	FunctionRecordDTI                = "record_dti"
	FunctionRecordApplicationDetails = "record_application_details"
	FunctionRecordSummary            = "record_summary"
	FunctionVerifyApplicantDocuments = "verify_applicant_documents"
)

// NoDocumentMessage is returned when no document was named by the agent or the session
const NoDocumentMessage = "No document ID was provided as a parameter, and it was not passed in session state."

// Document verification statuses
const (
	DocumentSuccess       = "SUCCESS"
	DocumentMissingResult = "MISSING_RESULT"
	DocumentError         = "ERROR"
)

// ApplicationStore persists loan applications and reads extraction results
type ApplicationStore interface {
	PutApplication(ctx context.Context, applicationID string, record map[string]any) error
	UpdateApplication(ctx context.Context, applicationID string, mutate func(record map[string]any) error) (map[string]any, error)
	GetDocumentResult(ctx context.Context, document string) (any, error)
}

// FunctionHandler serves one function. The returned value is rendered as
// the TEXT response body.
type FunctionHandler func(ctx context.Context, event models.FunctionActionEvent) (any, error)

// LoanActions serves the loan application action group
type LoanActions struct {
	store    ApplicationStore
	registry *Registry[FunctionHandler]
	logger   *slog.Logger
	now      func() time.Time
}

// NewLoanActions creates the handler with every loan function registered
func NewLoanActions(store ApplicationStore, logger *slog.Logger) *LoanActions {
	a := &LoanActions{
		store:    store,
		registry: NewRegistry[FunctionHandler](logger),
		logger:   logger,
		now:      time.Now,
	}
	a.registry.MustRegister(FunctionRecordDTI, a.recordDTI)
	a.registry.MustRegister(FunctionRecordApplicationDetails, a.recordApplicationDetails)
	a.registry.MustRegister(FunctionRecordSummary, a.recordSummary)
	a.registry.MustRegister(FunctionVerifyApplicantDocuments, a.verifyApplicantDocuments)
	return a
}

// HandleEvent routes on function. An unknown function yields a FAILURE
// function response carrying the error text.
func (a *LoanActions) HandleEvent(ctx context.Context, event models.FunctionActionEvent) (*models.FunctionActionResponse, error) {
	a.logger.InfoContext(ctx, "loan action invoked",
		slog.String("action_group", event.ActionGroup),
		slog.String("function", event.Function),
	)

	handler, err := a.registry.Get(event.Function)
	if err != nil {
		msg := "Unrecognized function: " + event.Function
		a.logger.ErrorContext(ctx, "unrecognized function", slog.String("function", event.Function))
		resp := models.NewFunctionTextResponse(event.ActionGroup, event.Function, msg)
		resp.Response.FunctionResponse.ResponseState = models.FunctionResponseStateFailure
		return resp, nil
	}

	result, err := handler(ctx, event)
	if err != nil {
		return nil, err
	}

	body, err := renderBody(result)
	if err != nil {
		return nil, err
	}
	return models.NewFunctionTextResponse(event.ActionGroup, event.Function, body), nil
}

func renderBody(result any) (string, error) {
	if s, ok := result.(string); ok {
		return s, nil
	}
	b, err := json.Marshal(result)
	if err != nil {
		return "", fmt.Errorf("failed to encode function result: %w", err)
	}
	return string(b), nil
}

// statusResult is the outcome of a record_* function
type statusResult struct {
	Status        string `json:"status"`
	Message       string `json:"message"`
	ApplicationID string `json:"application_id,omitempty"`
	Data          any    `json:"data,omitempty"`
	Summary       string `json:"summary,omitempty"`
}

func failed(format string, err error) statusResult {
	return statusResult{Status: "error", Message: fmt.Sprintf(format, err)}
}

func (a *LoanActions) recordDTI(ctx context.Context, event models.FunctionActionEvent) (any, error) {
	dti, ok := event.Param("dti_value")
	if !ok {
		return "Missing dti_value", nil
	}

	now := a.now()
	applicationID := "ML_" + now.Format("20060102150405")
	record := map[string]any{
		"application_id": applicationID,
		"timestamp":      now.Format("2006-01-02T15:04:05.000000"),
		"debt_to_income": dti,
	}

	if err := a.store.PutApplication(ctx, applicationID, record); err != nil {
		a.logger.ErrorContext(ctx, "failed to create application", slog.String("error", err.Error()))
		return failed("Error creating application with DTI: %v", err), nil
	}
	return statusResult{
		Status:        "success",
		Message:       "Application created with DTI successfully",
		ApplicationID: applicationID,
		Data:          record,
	}, nil
}

func (a *LoanActions) recordApplicationDetails(ctx context.Context, event models.FunctionActionEvent) (any, error) {
	applicationID, _ := event.Param("application_id")
	raw, _ := event.Param("application_data")
	if applicationID == "" || raw == "" {
		return "Missing application_id or application_data", nil
	}

	record, err := a.store.UpdateApplication(ctx, applicationID, func(record map[string]any) error {
		var details map[string]any
		if err := json.Unmarshal([]byte(raw), &details); err != nil {
			return fmt.Errorf("application_data is not valid JSON: %w", err)
		}
		for _, key := range []string{"property_details", "applicant_details"} {
			v, ok := details[key]
			if !ok {
				return fmt.Errorf("application_data is missing %s", key)
			}
			record[key] = v
		}
		return nil
	})
	if err != nil {
		a.logger.ErrorContext(ctx, "failed to update application details",
			slog.String("application_id", applicationID),
			slog.String("error", err.Error()),
		)
		return failed("Error updating application details: %v", err), nil
	}
	return statusResult{
		Status:        "success",
		Message:       "Application details updated successfully",
		ApplicationID: applicationID,
		Data:          record,
	}, nil
}

func (a *LoanActions) recordSummary(ctx context.Context, event models.FunctionActionEvent) (any, error) {
	applicationID, _ := event.Param("application_id")
	summary, _ := event.Param("summary")
	if applicationID == "" || summary == "" {
		return "Missing application_id or summary", nil
	}

	if _, err := a.store.UpdateApplication(ctx, applicationID, func(record map[string]any) error {
		record["summary"] = map[string]any{"analysis": summary}
		return nil
	}); err != nil {
		a.logger.ErrorContext(ctx, "failed to update summary",
			slog.String("application_id", applicationID),
			slog.String("error", err.Error()),
		)
		return failed("Error updating summary: %v", err), nil
	}
	return statusResult{
		Status:        "success",
		Message:       "Summary updated successfully",
		ApplicationID: applicationID,
		Summary:       summary,
	}, nil
}

// DocumentResult is the verification outcome of one document
type DocumentResult struct {
	Status string `json:"status"`
	Data   any    `json:"data,omitempty"`
	Error  string `json:"error,omitempty"`
}

// VerificationSummary counts verification outcomes
type VerificationSummary struct {
	Total      int `json:"total"`
	Successful int `json:"successful"`
	Failed     int `json:"failed"`
}

// VerificationReport is the result of verify_applicant_documents
type VerificationReport struct {
	Status    string                    `json:"status"`
	Documents map[string]DocumentResult `json:"documents"`
	Summary   VerificationSummary       `json:"summary"`
}

func (a *LoanActions) verifyApplicantDocuments(ctx context.Context, event models.FunctionActionEvent) (any, error) {
	documents, _ := event.Param("document")
	if documents == "" {
		documents = event.SessionAttributes["document"]
		if documents == "" {
			return NoDocumentMessage, nil
		}
		a.logger.InfoContext(ctx, "document taken from session state", slog.String("document", documents))
	}

	names := strings.Split(documents, ",")
	report := VerificationReport{
		Status:    "COMPLETED",
		Documents: make(map[string]DocumentResult, len(names)),
	}

	for _, name := range names {
		doc := NormalizeDocumentName(name)
		report.Summary.Total++

		data, err := a.store.GetDocumentResult(ctx, doc)
		var result DocumentResult
		switch {
		case err == nil:
			result = DocumentResult{Status: DocumentSuccess, Data: data}
		case errors.Is(err, storage.ErrNotFound):
			result = DocumentResult{Status: DocumentMissingResult, Error: "No analysis result found for document: " + doc}
		default:
			result = DocumentResult{Status: DocumentError, Error: fmt.Sprintf("Error accessing S3 for document %s: %v", doc, err)}
		}
		a.logger.InfoContext(ctx, "document verified",
			slog.String("document", doc),
			slog.String("status", result.Status),
		)
		report.Documents[doc] = result
	}

	for _, r := range report.Documents {
		if r.Status == DocumentSuccess {
			report.Summary.Successful++
		} else {
			report.Summary.Failed++
		}
	}
	return report, nil
}

var coBorrowerW2 = []string{"co borrower w2", "w2 co borrower", "coborrower w2", "w2 coborrower"}

// NormalizeDocumentName maps a free-form document name to its result key.
// Any W2 variant becomes "w2" or "co-borrower-w2"; other names are
// lower-cased with spaces turned into hyphens.
func NormalizeDocumentName(name string) string {
	doc := strings.ToLower(strings.TrimSpace(name))
	normalized := strings.NewReplacer("-", " ", "_", " ").Replace(doc)

	for _, phrase := range coBorrowerW2 {
		if strings.Contains(normalized, phrase) {
			return "co-borrower-w2"
		}
	}
	if strings.Contains(normalized, "w2") {
		return "w2"
	}
	return strings.ReplaceAll(doc, " ", "-")
}

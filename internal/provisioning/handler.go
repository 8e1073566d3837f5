package provisioning

import (
	"context"
	"log/slog"
	"time"

	"github.com/aws/aws-lambda-go/cfn"

	"github.com/jrzesz33/bedrock_mac/internal/models"
)

// Journal persists the lifecycle of custom resource requests
type Journal interface {
	SaveRecord(ctx context.Context, record *models.ProvisioningRecord) error
	UpdateStatus(ctx context.Context, id string, status models.ProvisioningStatus, errorMessage string) error
}

// Notifier announces the final outcome of a custom resource request
type Notifier interface {
	PublishRecord(ctx context.Context, record *models.ProvisioningRecord) error
}

const (
	defaultDeadlineReserve = 10 * time.Second
	defaultReportTimeout   = 8 * time.Second
)

// HandlerOption customises a Handler
type HandlerOption func(*Handler)

// WithJournal records every request in j
func WithJournal(j Journal) HandlerOption {
	return func(h *Handler) {
		h.journal = j
	}
}

// WithNotifier publishes every final outcome to n
func WithNotifier(n Notifier) HandlerOption {
	return func(h *Handler) {
		h.notifier = n
	}
}

// WithDeadlineReserve stops reconciling d before the invocation deadline
// and gives every post-reconcile call (report, journal, notify) at most
// reportTimeout.
func WithDeadlineReserve(d, reportTimeout time.Duration) HandlerOption {
	return func(h *Handler) {
		h.reserve = d
		h.reportTimeout = reportTimeout
	}
}

// Handler is the custom resource entry point shared by every resource kind
type Handler struct {
	kind          models.ResourceKind
	stage         models.Stage
	reconciler    Reconciler
	reporter      Reporter
	journal       Journal
	notifier      Notifier
	logger        *slog.Logger
	reserve       time.Duration
	reportTimeout time.Duration
}

// NewHandler creates a Handler for one resource kind
func NewHandler(kind models.ResourceKind, stage models.Stage, reconciler Reconciler, reporter Reporter, logger *slog.Logger, opts ...HandlerOption) *Handler {
	h := &Handler{
		kind:          kind,
		stage:         stage,
		reconciler:    reconciler,
		reporter:      reporter,
		logger:        logger,
		reserve:       defaultDeadlineReserve,
		reportTimeout: defaultReportTimeout,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// HandleEvent reconciles the resource, reports the outcome to CloudFormation
// and returns the outcome. Failures are reported, never returned, so the
// function invocation itself always succeeds.
func (h *Handler) HandleEvent(ctx context.Context, event cfn.Event) (Outcome, error) {
	logger := h.logger.With(
		slog.String("request_type", string(event.RequestType)),
		slog.String("logical_resource_id", event.LogicalResourceID),
		slog.String("resource_type", event.ResourceType),
	)
	logger.InfoContext(ctx, "custom resource request received")

	record := models.NewProvisioningRecord(event.RequestID, h.kind, h.stage,
		string(event.RequestType), event.ResourceType, event.LogicalResourceID, event.StackID)
	h.saveRecord(ctx, logger, record)

	record.MarkProcessing()
	h.updateStatus(ctx, logger, record)

	reconcileCtx, cancel := h.reconcileContext(ctx)
	data, err := Dispatch(reconcileCtx, h.reconciler, event.RequestType, Properties(event.ResourceProperties))
	cancel()

	// The outcome is sent even after the invocation context has expired.
	ctx, cancel = context.WithTimeout(context.WithoutCancel(ctx), h.reportTimeout)
	defer cancel()

	status := cfn.StatusSuccess
	reason := ""
	if err != nil {
		logger.ErrorContext(ctx, "custom resource request failed",
			slog.String("error", err.Error()),
		)
		status = cfn.StatusFailed
		reason = err.Error()
		data = map[string]any{}
		record.MarkFailed(reason)
	} else {
		if data == nil {
			data = map[string]any{}
		}
		logger.InfoContext(ctx, "custom resource request succeeded",
			slog.Any("data", data),
		)
		record.MarkSucceeded(data)
	}

	if reportErr := h.reporter.Report(ctx, event, status, data, reason); reportErr != nil {
		logger.ErrorContext(ctx, "failed to report custom resource outcome",
			slog.String("error", reportErr.Error()),
		)
	}

	h.saveRecord(ctx, logger, record)
	if h.notifier != nil {
		if pubErr := h.notifier.PublishRecord(ctx, record); pubErr != nil {
			logger.WarnContext(ctx, "failed to publish provisioning outcome",
				slog.String("error", pubErr.Error()),
			)
		}
	}

	return Outcome{
		PhysicalResourceID: event.LogicalResourceID,
		Data:               data,
	}, nil
}

// reconcileContext ends reconciliation h.reserve before the invocation
// deadline so a failure can still be reported.
func (h *Handler) reconcileContext(ctx context.Context) (context.Context, context.CancelFunc) {
	deadline, ok := ctx.Deadline()
	if !ok {
		return context.WithCancel(ctx)
	}
	return context.WithDeadline(ctx, deadline.Add(-h.reserve))
}

func (h *Handler) saveRecord(ctx context.Context, logger *slog.Logger, record *models.ProvisioningRecord) {
	if h.journal == nil {
		return
	}
	if err := h.journal.SaveRecord(ctx, record); err != nil {
		logger.WarnContext(ctx, "failed to save provisioning record",
			slog.String("error", err.Error()),
		)
	}
}

func (h *Handler) updateStatus(ctx context.Context, logger *slog.Logger, record *models.ProvisioningRecord) {
	if h.journal == nil {
		return
	}
	if err := h.journal.UpdateStatus(ctx, record.ID, record.Status, record.ErrorMessage); err != nil {
		logger.WarnContext(ctx, "failed to update provisioning record",
			slog.String("error", err.Error()),
		)
	}
}

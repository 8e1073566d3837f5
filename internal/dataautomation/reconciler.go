package dataautomation

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jrzesz33/bedrock_mac/internal/provisioning"
)

// Project statuses
const (
	StatusCompleted  = "COMPLETED"
	StatusInProgress = "IN_PROGRESS"
	StatusFailed     = "FAILED"
)

// API is the subset of the Data Automation control plane the reconciler uses
type API interface {
	CreateProject(ctx context.Context, params map[string]any) (*ProjectRef, error)
	GetProject(ctx context.Context, projectArn string) (*Project, error)
	ListProjects(ctx context.Context, token *string) ([]ProjectSummary, *string, error)
	UpdateProject(ctx context.Context, projectArn string, params map[string]any) (*ProjectRef, error)
	DeleteProject(ctx context.Context, projectArn string) error
}

// Reconciler provisions Data Automation projects for Custom::DataAutomationProject
type Reconciler struct {
	api    API
	poller *provisioning.Poller
	logger *slog.Logger
}

// NewReconciler creates a Reconciler
func NewReconciler(api API, poller *provisioning.Poller, logger *slog.Logger) *Reconciler {
	return &Reconciler{
		api:    api,
		poller: poller,
		logger: logger,
	}
}

// Create creates the project, or adopts an existing project of the same
// name, and waits until it is COMPLETED.
func (r *Reconciler) Create(ctx context.Context, props provisioning.Properties) (map[string]any, error) {
	params, err := provisioning.Merge(
		map[string]any{
			"projectName":                 props.OptionalString("projectName"),
			"standardOutputConfiguration": props.Object("standardOutputConfiguration"),
		},
		map[string]any{
			"projectDescription":        props.OptionalString("projectDescription"),
			"projectStage":              props.OptionalString("projectStage"),
			"customOutputConfiguration": props.Object("customOutputConfiguration"),
			"overrideConfiguration":     props.Object("overrideConfiguration"),
			"clientToken":               props.OptionalString("clientToken"),
			"encryptionConfiguration":   props.Object("encryptionConfiguration"),
			"tags":                      props.Value("tags"),
		},
	)
	if err != nil {
		return nil, err
	}

	name := props.String("projectName")
	existing, found, err := r.findProject(ctx, name)
	if err != nil {
		return nil, err
	}
	if found {
		r.logger.InfoContext(ctx, "data automation project already exists",
			slog.String("project_name", name),
			slog.String("project_arn", existing),
		)
		return map[string]any{"ProjectArn": existing}, nil
	}

	created, err := r.api.CreateProject(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("failed to create data automation project %q: %w", name, err)
	}
	r.logger.InfoContext(ctx, "created data automation project",
		slog.String("project_arn", created.ProjectArn),
		slog.String("status", created.Status),
	)

	status, err := r.poller.AwaitTerminal(ctx, "data automation project "+name,
		func(ctx context.Context) (string, error) {
			p, err := r.api.GetProject(ctx, created.ProjectArn)
			if err != nil {
				return "", err
			}
			return p.Status, nil
		},
		func(s string) bool { return s != StatusCompleted && s != StatusFailed },
		false,
	)
	if err != nil {
		return nil, err
	}
	if status != StatusCompleted {
		return nil, fmt.Errorf("data automation project %q ended in status %s", name, status)
	}

	r.logger.InfoContext(ctx, "data automation project created successfully",
		slog.String("project_arn", created.ProjectArn),
	)
	return map[string]any{"ProjectArn": created.ProjectArn}, nil
}

// Update resolves the project by name and replaces its configuration
func (r *Reconciler) Update(ctx context.Context, props provisioning.Properties) (map[string]any, error) {
	name := props.String("projectName")
	arn, found, err := r.findProject(ctx, name)
	if err != nil {
		return nil, err
	}

	var projectArn any
	if found {
		projectArn = arn
	}

	params, err := provisioning.Merge(
		map[string]any{
			"projectArn":                  projectArn,
			"standardOutputConfiguration": props.Object("standardOutputConfiguration"),
		},
		map[string]any{
			"projectDescription":        props.OptionalString("projectDescription"),
			"projectStage":              props.OptionalString("projectStage"),
			"customOutputConfiguration": props.Object("customOutputConfiguration"),
			"overrideConfiguration":     props.Object("overrideConfiguration"),
			"encryptionConfiguration":   props.Object("encryptionConfiguration"),
		},
	)
	if err != nil {
		return nil, fmt.Errorf("cannot update data automation project %q: %w", name, err)
	}

	updated, err := r.api.UpdateProject(ctx, arn, params.Without("projectArn"))
	if err != nil {
		return nil, fmt.Errorf("failed to update data automation project %q: %w", name, err)
	}
	r.logger.InfoContext(ctx, "updated data automation project",
		slog.String("project_arn", arn),
		slog.String("status", updated.Status),
	)

	if updated.ProjectArn != "" {
		arn = updated.ProjectArn
	}
	return map[string]any{"ProjectArn": arn}, nil
}

// Delete deletes the project named in props. A project that cannot be found
// is already gone.
func (r *Reconciler) Delete(ctx context.Context, props provisioning.Properties) error {
	name := props.String("projectName")
	arn, found, err := r.findProject(ctx, name)
	if err != nil {
		return err
	}
	if !found {
		r.logger.InfoContext(ctx, "data automation project not found, nothing to delete",
			slog.String("project_name", name),
		)
		return nil
	}

	if err := r.api.DeleteProject(ctx, arn); err != nil {
		if provisioning.IsNotFound(err) {
			r.logger.InfoContext(ctx, "data automation project already deleted",
				slog.String("project_arn", arn),
			)
			return nil
		}
		return fmt.Errorf("failed to delete data automation project %q: %w", name, err)
	}

	if _, err := r.poller.AwaitTerminal(ctx, "data automation project "+name,
		func(ctx context.Context) (string, error) {
			p, err := r.api.GetProject(ctx, arn)
			if err != nil {
				return "", err
			}
			return p.Status, nil
		},
		func(s string) bool { return s != provisioning.StatusDeleted },
		true,
	); err != nil {
		return err
	}

	r.logger.InfoContext(ctx, "deleted data automation project",
		slog.String("project_arn", arn),
	)
	return nil
}

func (r *Reconciler) findProject(ctx context.Context, name string) (string, bool, error) {
	return provisioning.FindByName[ProjectSummary](ctx,
		provisioning.NewPages[ProjectSummary](r.api.ListProjects),
		name,
		func(p ProjectSummary) string { return p.ProjectName },
		func(p ProjectSummary) string { return p.ProjectArn },
	)
}

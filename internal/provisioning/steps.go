package provisioning

import (
	"context"
	"log/slog"
)

// Step is one unit of a provisioning sequence. Compensate undoes Run and
// may be nil when there is nothing to undo.
type Step struct {
	Name       string
	Run        func(ctx context.Context) error
	Compensate func(ctx context.Context) error
}

// Sequence runs dependent steps in order. A failure stops the sequence and
// logs a partial-state marker naming the steps that completed. When
// Rollback is set, completed steps are compensated in reverse order.
type Sequence struct {
	Name     string
	Steps    []Step
	Rollback bool
	Logger   *slog.Logger
}

// Run executes the sequence and returns a *StepError on failure
func (s *Sequence) Run(ctx context.Context) error {
	completed := make([]string, 0, len(s.Steps))
	for i, step := range s.Steps {
		s.Logger.DebugContext(ctx, "running provisioning step",
			slog.String("sequence", s.Name),
			slog.String("step", step.Name),
		)

		if err := step.Run(ctx); err != nil {
			s.Logger.ErrorContext(ctx, "provisioning left in partial state",
				slog.String("sequence", s.Name),
				slog.String("failed_step", step.Name),
				slog.Any("completed_steps", completed),
				slog.Bool("rollback", s.Rollback),
				slog.String("error", err.Error()),
			)
			if s.Rollback {
				s.compensate(ctx, s.Steps[:i])
			}
			return &StepError{
				Sequence:  s.Name,
				Step:      step.Name,
				Completed: completed,
				Err:       err,
			}
		}
		completed = append(completed, step.Name)
	}
	return nil
}

func (s *Sequence) compensate(ctx context.Context, done []Step) {
	for i := len(done) - 1; i >= 0; i-- {
		step := done[i]
		if step.Compensate == nil {
			continue
		}
		if err := step.Compensate(ctx); err != nil {
			s.Logger.ErrorContext(ctx, "compensation failed",
				slog.String("sequence", s.Name),
				slog.String("step", step.Name),
				slog.String("error", err.Error()),
			)
			continue
		}
		s.Logger.InfoContext(ctx, "compensated provisioning step",
			slog.String("sequence", s.Name),
			slog.String("step", step.Name),
		)
	}
}

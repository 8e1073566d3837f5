package provisioning

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff"
)

// StatusDeleted is the terminal status reported when a polled resource no
// longer exists and the caller treats that as terminal.
const StatusDeleted = "DELETED"

var errStillInProgress = errors.New("resource still in progress")

// StatusFunc fetches the current status of a resource
type StatusFunc func(ctx context.Context) (string, error)

// Poller waits for a resource to leave its transitional states. Attempts
// are spaced by a constant interval and bounded by MaxAttempts and the
// context deadline.
type Poller struct {
	interval    time.Duration
	maxAttempts int
	logger      *slog.Logger
}

// NewPoller creates a Poller. maxAttempts below one is treated as one.
func NewPoller(interval time.Duration, maxAttempts int, logger *slog.Logger) *Poller {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &Poller{
		interval:    interval,
		maxAttempts: maxAttempts,
		logger:      logger,
	}
}

// AwaitTerminal fetches the status until inProgress reports false and
// returns that status. When notFoundIsTerminal is set a "not found" error
// ends the wait with StatusDeleted; every other fetch error is returned
// immediately. ErrPollTimeout is returned when attempts run out.
func (p *Poller) AwaitTerminal(ctx context.Context, resource string, fetch StatusFunc, inProgress func(string) bool, notFoundIsTerminal bool) (string, error) {
	var (
		status   string
		attempts int
	)

	operation := func() error {
		attempts++
		s, err := fetch(ctx)
		if err != nil {
			if notFoundIsTerminal && IsNotFound(err) {
				status = StatusDeleted
				p.logger.InfoContext(ctx, "resource not found, treating as deleted",
					slog.String("resource", resource),
					slog.Int("attempt", attempts),
				)
				return nil
			}
			return backoff.Permanent(err)
		}

		status = s
		p.logger.InfoContext(ctx, "polled resource status",
			slog.String("resource", resource),
			slog.String("status", status),
			slog.Int("attempt", attempts),
		)
		if inProgress(status) {
			return errStillInProgress
		}
		return nil
	}

	b := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(p.interval), uint64(p.maxAttempts-1)),
		ctx,
	)

	err := backoff.RetryNotify(operation, b, func(error, time.Duration) {})
	switch {
	case err == nil:
		return status, nil
	case errors.Is(err, errStillInProgress):
		if ctxErr := ctx.Err(); ctxErr != nil {
			return status, fmt.Errorf("waiting for %s (last status %s): %w", resource, status, ctxErr)
		}
		return status, fmt.Errorf("%w: %s still %s after %d polls", ErrPollTimeout, resource, status, attempts)
	default:
		return status, fmt.Errorf("failed to fetch status of %s: %w", resource, err)
	}
}

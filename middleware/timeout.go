package middleware

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/ZEDDEV1/nozesia-sub005/job"
)

// Timeout bounds an attempt by the job's Timeout (see job.WithTimeout).
// Jobs without one run until the handler returns.
//
// When the deadline passes, the attempt context is cancelled. If the
// handler then fails, its error is annotated with the limit and still
// wraps context.DeadlineExceeded; the attempt counts as an ordinary
// failure and is retried while attempts remain. A handler that ignores
// ctx and returns nil after the deadline still succeeds.
func Timeout(logger *slog.Logger) Middleware {
	return func(ctx context.Context, j *job.Job, next Handler) error {
		if j.Timeout <= 0 {
			return next(ctx)
		}
		ctx, cancel := context.WithTimeout(ctx, j.Timeout)
		defer cancel()

		err := next(ctx)
		if err == nil || !errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return err
		}
		logger.Warn("job attempt timed out",
			slog.String("job_id", j.ID.String()),
			slog.String("job_type", string(j.Type)),
			slog.String("company_id", j.CompanyID),
			slog.Int("attempt", j.Attempts),
			slog.Duration("timeout", j.Timeout),
		)
		if !errors.Is(err, context.DeadlineExceeded) {
			err = errors.Join(err, context.DeadlineExceeded)
		}
		return fmt.Errorf("%s timed out after %s: %w", j.Type, j.Timeout, err)
	}
}

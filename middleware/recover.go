package middleware

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"

	"github.com/ZEDDEV1/nozesia-sub005/job"
)

// ErrPanic wraps every error produced from a recovered handler panic.
var ErrPanic = errors.New("job handler panicked")

// Recover turns a handler panic into an attempt error wrapping ErrPanic,
// so the engine retries or fails the job like any other error. The stack
// is logged once with the job's type, company and attempt.
func Recover(logger *slog.Logger) Middleware {
	return func(ctx context.Context, j *job.Job, next Handler) (err error) {
		defer func() {
			r := recover()
			if r == nil {
				return
			}
			logger.Error("job handler panicked",
				slog.String("job_id", j.ID.String()),
				slog.String("job_type", string(j.Type)),
				slog.String("company_id", j.CompanyID),
				slog.Int("attempt", j.Attempts),
				slog.Any("panic", r),
				slog.String("stack", string(debug.Stack())),
			)
			err = fmt.Errorf("%w: %s attempt %d: %v", ErrPanic, j.Type, j.Attempts, r)
		}()
		return next(ctx)
	}
}

// Package worker runs a single job attempt: it looks up the registered
// handler and invokes it through the middleware chain.
//
// The Executor never changes job state. The engine's processing loop
// decides what an attempt's outcome means for the job.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	taskq "github.com/ZEDDEV1/nozesia-sub005"
	"github.com/ZEDDEV1/nozesia-sub005/job"
	"github.com/ZEDDEV1/nozesia-sub005/middleware"
)

// Outcome is the result of one attempt.
type Outcome struct {
	// Err is nil on success. It wraps taskq.ErrNoHandler when no handler
	// is registered for the job type.
	Err error

	// Elapsed is the time spent in the middleware chain and handler.
	Elapsed time.Duration
}

// Succeeded reports whether the attempt succeeded.
func (o Outcome) Succeeded() bool { return o.Err == nil }

// Executor runs a single job attempt through middleware and the
// registered handler.
type Executor struct {
	registry *job.Registry
	mw       middleware.Middleware
	logger   *slog.Logger
}

// NewExecutor creates an Executor with the given dependencies.
func NewExecutor(registry *job.Registry, logger *slog.Logger, mws ...middleware.Middleware) *Executor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Executor{
		registry: registry,
		mw:       middleware.Chain(mws...),
		logger:   logger,
	}
}

// Execute runs one attempt of j. The handler is looked up now, not at
// enqueue time, so registrations made after enqueueing are honoured.
// A missing handler short-circuits before the middleware chain runs.
func (e *Executor) Execute(ctx context.Context, j *job.Job) Outcome {
	handler, ok := e.registry.Get(j.Type)
	if !ok {
		e.logger.Error("no handler registered for job type",
			slog.String("job_id", j.ID.String()),
			slog.String("job_type", string(j.Type)),
		)
		return Outcome{Err: fmt.Errorf("%w for job type %q", taskq.ErrNoHandler, j.Type)}
	}

	start := time.Now()

	// The terminal handler that calls the registered job handler.
	terminal := func(ctx context.Context) error {
		return handler(ctx, j.Payload)
	}

	err := e.mw(ctx, j, terminal)
	return Outcome{Err: err, Elapsed: time.Since(start)}
}

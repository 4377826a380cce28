package middleware

import (
	"context"
	"slices"

	"github.com/ZEDDEV1/nozesia-sub005/job"
)

// Handler runs one attempt of a job.
type Handler func(ctx context.Context) error

// Middleware runs around a single attempt. The job is a snapshot owned by
// the engine and must not be modified; a middleware that returns without
// calling next turns the attempt into a failure (or a success, if it
// returns nil) without running the handler.
type Middleware func(ctx context.Context, j *job.Job, next Handler) error

// Chain composes middleware so that mws[0] is outermost. The engine's
// default chain is Recover, Tracing, Metrics, Logging, Scope, Timeout,
// followed by any middleware passed with engine.WithMiddleware.
func Chain(mws ...Middleware) Middleware {
	return func(ctx context.Context, j *job.Job, next Handler) error {
		h := next
		for i := len(mws) - 1; i >= 0; i-- {
			m, inner := mws[i], h
			h = func(ctx context.Context) error {
				return m(ctx, j, inner)
			}
		}
		return h(ctx)
	}
}

// ForTypes applies m only to jobs of the listed types; attempts of any
// other type go straight to next. It is how a middleware such as a
// WhatsApp send guard is limited to send_ai_response jobs.
func ForTypes(m Middleware, types ...job.Type) Middleware {
	types = slices.Clone(types)
	return func(ctx context.Context, j *job.Job, next Handler) error {
		if !slices.Contains(types, j.Type) {
			return next(ctx)
		}
		return m(ctx, j, next)
	}
}

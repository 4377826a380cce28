// Package middleware provides composable middleware for job attempts.
//
// A [Middleware] wraps one attempt of a job. [Chain] composes several, the
// first being outermost, and [ForTypes] restricts one to some job types:
//
//	guard := middleware.ForTypes(sessionGuard, job.TypeSendAIResponse)
//	eng, _ := engine.New(engine.WithMiddleware(guard))
//
// # Built-in Middleware
//
//   - [Logging]: logs job type, attempt, duration and outcome of each attempt
//   - [Recover]: turns panics into errors wrapping [ErrPanic]
//   - [Timeout]: cancels the attempt context after the job's Timeout and
//     marks the resulting error as a timeout
//   - [Tracing]: wraps each attempt in an OpenTelemetry span
//   - [Metrics]: records per-attempt duration and outcome counters
//   - [Scope]: restores the job's company ID into the context
//
// # Writing Middleware
//
// A middleware that returns without calling next fails the attempt (or
// completes it, when it returns nil) without running the handler:
//
//	sessionGuard := func(ctx context.Context, j *job.Job, next middleware.Handler) error {
//	    if !sessions.Connected(j.CompanyID) {
//	        return fmt.Errorf("whatsapp session offline for %s", j.CompanyID)
//	    }
//	    return next(ctx)
//	}
package middleware

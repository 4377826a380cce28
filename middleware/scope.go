package middleware

import (
	"context"

	"github.com/ZEDDEV1/nozesia-sub005/job"
	"github.com/ZEDDEV1/nozesia-sub005/scope"
)

// Scope returns middleware that restores the owning company from the job
// into the context.
func Scope() Middleware {
	return func(ctx context.Context, j *job.Job, next Handler) error {
		return next(scope.WithCompany(ctx, j.CompanyID))
	}
}

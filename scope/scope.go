// Package scope carries the owning company of a job through
// context.Context, so handlers see the same tenant as the code that
// enqueued the work.
package scope

import "context"

type companyKey struct{}

// WithCompany returns a context tagged with the given company ID. An empty
// ID returns ctx unchanged.
func WithCompany(ctx context.Context, companyID string) context.Context {
	if companyID == "" {
		return ctx
	}
	return context.WithValue(ctx, companyKey{}, companyID)
}

// Company returns the company ID carried by ctx.
func Company(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(companyKey{}).(string)
	return v, ok && v != ""
}

// Capture returns the company ID from ctx, or "" when none is set.
func Capture(ctx context.Context) string {
	v, _ := Company(ctx)
	return v
}

package job

import "time"

// Options configures per-job behavior.
type Options struct {
	// MaxAttempts is the number of tries before the job fails permanently.
	MaxAttempts int

	// CompanyID is the tenant that owns the job. Empty means none.
	CompanyID string

	// Timeout is the maximum duration of a single attempt. Zero means
	// the handler runs until it returns.
	Timeout time.Duration
}

// DefaultOptions returns Options with sensible defaults.
func DefaultOptions() Options {
	return Options{
		MaxAttempts: 3,
	}
}

// Option is a functional option for configuring a job.
type Option func(*Options)

// WithMaxAttempts sets the attempt budget.
func WithMaxAttempts(n int) Option {
	return func(o *Options) {
		o.MaxAttempts = n
	}
}

// WithCompany tags the job with the owning company.
func WithCompany(companyID string) Option {
	return func(o *Options) {
		o.CompanyID = companyID
	}
}

// WithTimeout sets the maximum execution duration of each attempt.
func WithTimeout(d time.Duration) Option {
	return func(o *Options) {
		o.Timeout = d
	}
}

// Apply returns base with opts applied in order.
func Apply(base Options, opts ...Option) Options {
	for _, opt := range opts {
		opt(&base)
	}
	return base
}

package taskq

import "time"

// Config holds configuration for a queue engine.
type Config struct {
	// MaxAttempts is the default attempt budget for a job. A job fails
	// permanently once it has been tried this many times.
	MaxAttempts int `json:"max_attempts" yaml:"max_attempts" mapstructure:"max_attempts"`

	// HistoryCapacity bounds the completed/failed history. The oldest
	// entries are evicted first.
	HistoryCapacity int `json:"history_capacity" yaml:"history_capacity" mapstructure:"history_capacity"`

	// RecentJobs is the number of history entries returned by Stats when
	// the caller does not ask for a specific count.
	RecentJobs int `json:"recent_jobs" yaml:"recent_jobs" mapstructure:"recent_jobs"`

	// Backoff selects the retry delay strategy.
	Backoff BackoffConfig `json:"backoff" yaml:"backoff" mapstructure:"backoff"`

	// ShutdownTimeout is the maximum time to wait for the in-flight job
	// during graceful shutdown.
	ShutdownTimeout time.Duration `json:"shutdown_timeout" yaml:"shutdown_timeout" mapstructure:"shutdown_timeout"`
}

// BackoffConfig describes a backoff.Strategy.
type BackoffConfig struct {
	// Kind is one of "exponential", "jitter", "linear" or "constant".
	Kind string `json:"kind" yaml:"kind" mapstructure:"kind"`

	// Initial is the delay after the first failed attempt.
	Initial time.Duration `json:"initial" yaml:"initial" mapstructure:"initial"`

	// Max caps the delay. Zero means uncapped.
	Max time.Duration `json:"max" yaml:"max" mapstructure:"max"`
}

// DefaultConfig returns a Config with sensible defaults: three attempts,
// a 100 entry history and 2s, 4s, 8s... retry delays.
func DefaultConfig() Config {
	return Config{
		MaxAttempts:     3,
		HistoryCapacity: 100,
		RecentJobs:      10,
		Backoff: BackoffConfig{
			Kind:    "exponential",
			Initial: 2 * time.Second,
		},
		ShutdownTimeout: 30 * time.Second,
	}
}

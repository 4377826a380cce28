package queue

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/time/rate"

	"github.com/ZEDDEV1/nozesia-sub005/job"
)

// Config defines per-type rate limiting.
type Config struct {
	// Type is the job type this config applies to.
	Type job.Type `json:"type" yaml:"type" mapstructure:"type"`

	// RateLimit is the maximum sustained attempts per second for jobs of
	// this type. Zero disables rate limiting.
	RateLimit float64 `json:"rate_limit" yaml:"rate_limit" mapstructure:"rate_limit"`

	// RateBurst is the burst size for the token-bucket rate limiter.
	// Defaults to 1 if RateLimit is set but RateBurst is zero.
	RateBurst int `json:"rate_burst" yaml:"rate_burst" mapstructure:"rate_burst"`
}

// Manager throttles job attempts per job type and per company.
// It is safe for concurrent use.
type Manager struct {
	mu      sync.Mutex
	types   map[job.Type]*rate.Limiter
	tenants map[string]*rate.Limiter
}

// NewManager creates a Manager with the given per-type configurations.
// Types not listed here have no limits.
func NewManager(configs ...Config) *Manager {
	m := &Manager{
		types:   make(map[job.Type]*rate.Limiter, len(configs)),
		tenants: make(map[string]*rate.Limiter),
	}
	for _, cfg := range configs {
		m.types[cfg.Type] = newLimiter(cfg.RateLimit, cfg.RateBurst)
	}
	return m
}

func newLimiter(limit float64, burst int) *rate.Limiter {
	if limit <= 0 {
		return nil
	}
	if burst <= 0 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(limit), burst)
}

// SetTypeConfig dynamically updates (or creates) a per-type limit.
func (m *Manager) SetTypeConfig(cfg Config) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.types[cfg.Type] = newLimiter(cfg.RateLimit, cfg.RateBurst)
}

// limiters returns the type and tenant limiters that apply to a job. Either
// may be nil.
func (m *Manager) limiters(t job.Type, companyID string) (*rate.Limiter, *rate.Limiter) {
	m.mu.Lock()
	defer m.mu.Unlock()

	typeLim := m.types[t]
	if companyID == "" {
		return typeLim, nil
	}
	tenantLim, ok := m.tenants[tenantKey(t, companyID)]
	if !ok {
		tenantLim = m.tenants[tenantKey("", companyID)]
	}
	return typeLim, tenantLim
}

// Wait blocks until both the type limit and the company limit allow one
// more attempt, or ctx is done.
func (m *Manager) Wait(ctx context.Context, t job.Type, companyID string) error {
	typeLim, tenantLim := m.limiters(t, companyID)
	if typeLim != nil {
		if err := typeLim.Wait(ctx); err != nil {
			return fmt.Errorf("queue: wait for %s limit: %w", t, err)
		}
	}
	if tenantLim != nil {
		if err := tenantLim.Wait(ctx); err != nil {
			return fmt.Errorf("queue: wait for company %s limit: %w", companyID, err)
		}
	}
	return nil
}

// Allow reports whether an attempt may start right now without waiting.
// A true result consumes a token from each applicable limiter.
func (m *Manager) Allow(t job.Type, companyID string) bool {
	typeLim, tenantLim := m.limiters(t, companyID)
	if typeLim != nil && !typeLim.Allow() {
		return false
	}
	if tenantLim != nil && !tenantLim.Allow() {
		return false
	}
	return true
}

// Limited reports whether any limit is configured for the job type.
func (m *Manager) Limited(t job.Type) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.types[t] != nil
}

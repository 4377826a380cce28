package queue

import (
	"fmt"

	"github.com/ZEDDEV1/nozesia-sub005/job"
)

// TenantConfig defines a rate limit for one company, optionally narrowed
// to a single job type.
type TenantConfig struct {
	// Type narrows the limit to one job type. Empty applies the limit to
	// every type that has no more specific entry for the company.
	Type job.Type `json:"type" yaml:"type" mapstructure:"type"`

	// CompanyID is the tenant identifier (job.CompanyID).
	CompanyID string `json:"company_id" yaml:"company_id" mapstructure:"company_id"`

	// RateLimit is the sustained attempts per second for this company.
	RateLimit float64 `json:"rate_limit" yaml:"rate_limit" mapstructure:"rate_limit"`

	// RateBurst is the burst size for the company's rate limiter.
	RateBurst int `json:"rate_burst" yaml:"rate_burst" mapstructure:"rate_burst"`
}

// tenantKey builds the map key for a type+company pair.
func tenantKey(t job.Type, companyID string) string {
	return fmt.Sprintf("%s:%s", t, companyID)
}

// SetTenantConfig configures the rate limit for a company. Calling this
// multiple times for the same type+company replaces the previous
// configuration; a zero RateLimit removes it.
func (m *Manager) SetTenantConfig(cfg TenantConfig) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := tenantKey(cfg.Type, cfg.CompanyID)
	lim := newLimiter(cfg.RateLimit, cfg.RateBurst)
	if lim == nil {
		delete(m.tenants, key)
		return
	}
	m.tenants[key] = lim
}

// TenantLimited reports whether a limit applies to the company for the
// given job type.
func (m *Manager) TenantLimited(t job.Type, companyID string) bool {
	_, lim := m.limiters(t, companyID)
	return lim != nil
}

package queue

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ZEDDEV1/nozesia-sub005/job"
)

// ---------------------------------------------------------------------------
// Manager basics
// ---------------------------------------------------------------------------

func TestNewManager_Empty(t *testing.T) {
	m := NewManager()
	if !m.Allow(job.TypeProcessMessage, "") {
		t.Fatal("expected Allow to succeed for unconfigured type")
	}
	if err := m.Wait(context.Background(), job.TypeProcessMessage, "acme"); err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if m.Limited(job.TypeProcessMessage) {
		t.Fatal("expected type to be unlimited")
	}
}

func TestNewManager_ZeroRateIsUnlimited(t *testing.T) {
	m := NewManager(Config{Type: job.TypeSyncWhatsApp})
	if m.Limited(job.TypeSyncWhatsApp) {
		t.Fatal("zero RateLimit should not install a limiter")
	}
	for range 100 {
		if !m.Allow(job.TypeSyncWhatsApp, "") {
			t.Fatal("Allow should always succeed without a limit")
		}
	}
}

// ---------------------------------------------------------------------------
// Rate limits
// ---------------------------------------------------------------------------

func TestManager_RateLimit_Throttles(t *testing.T) {
	m := NewManager(Config{
		Type:      job.TypeSendAIResponse,
		RateLimit: 1,
		RateBurst: 1,
	})

	if !m.Allow(job.TypeSendAIResponse, "") {
		t.Fatal("first Allow should succeed")
	}
	if m.Allow(job.TypeSendAIResponse, "") {
		t.Fatal("second Allow should be rate limited")
	}
	if !m.Allow(job.TypeSendNotification, "") {
		t.Fatal("other types must not be affected")
	}
}

func TestManager_RateLimit_BurstAllows(t *testing.T) {
	m := NewManager(Config{
		Type:      job.TypeSendNotification,
		RateLimit: 1,
		RateBurst: 3,
	})

	for i := range 3 {
		if !m.Allow(job.TypeSendNotification, "") {
			t.Fatalf("Allow %d should succeed within burst", i)
		}
	}
	if m.Allow(job.TypeSendNotification, "") {
		t.Fatal("Allow beyond burst should fail")
	}
}

func TestManager_Wait_BlocksUntilToken(t *testing.T) {
	m := NewManager(Config{
		Type:      job.TypeProcessMessage,
		RateLimit: 20,
		RateBurst: 1,
	})

	ctx := context.Background()
	if err := m.Wait(ctx, job.TypeProcessMessage, ""); err != nil {
		t.Fatalf("first Wait: %v", err)
	}

	start := time.Now()
	if err := m.Wait(ctx, job.TypeProcessMessage, ""); err != nil {
		t.Fatalf("second Wait: %v", err)
	}
	if elapsed := time.Since(start); elapsed < 25*time.Millisecond {
		t.Fatalf("expected Wait to block for a token, returned after %v", elapsed)
	}
}

func TestManager_Wait_ContextCancelled(t *testing.T) {
	m := NewManager(Config{
		Type:      job.TypeProcessMessage,
		RateLimit: 0.001,
		RateBurst: 1,
	})
	_ = m.Allow(job.TypeProcessMessage, "")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := m.Wait(ctx, job.TypeProcessMessage, "")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

// ---------------------------------------------------------------------------
// Tenant limits
// ---------------------------------------------------------------------------

func TestManager_TenantRateLimit(t *testing.T) {
	m := NewManager()
	m.SetTenantConfig(TenantConfig{
		Type:      job.TypeSendAIResponse,
		CompanyID: "acme",
		RateLimit: 1,
		RateBurst: 1,
	})

	if !m.Allow(job.TypeSendAIResponse, "acme") {
		t.Fatal("first Allow for tenant should succeed")
	}
	if m.Allow(job.TypeSendAIResponse, "acme") {
		t.Fatal("second Allow for tenant should be rate limited")
	}
	if !m.Allow(job.TypeSendAIResponse, "") {
		t.Fatal("untenanted jobs should not be limited")
	}
}

func TestManager_TenantIsolation(t *testing.T) {
	m := NewManager()
	m.SetTenantConfig(TenantConfig{CompanyID: "acme", RateLimit: 1, RateBurst: 1})

	if !m.Allow(job.TypeSyncWhatsApp, "acme") {
		t.Fatal("acme first Allow should succeed")
	}
	if m.Allow(job.TypeSyncWhatsApp, "acme") {
		t.Fatal("acme second Allow should be limited")
	}
	if !m.Allow(job.TypeSyncWhatsApp, "globex") {
		t.Fatal("globex must not share acme's limit")
	}
}

func TestManager_TenantTypedOverridesWildcard(t *testing.T) {
	m := NewManager()
	m.SetTenantConfig(TenantConfig{CompanyID: "acme", RateLimit: 1, RateBurst: 1})
	m.SetTenantConfig(TenantConfig{Type: job.TypeProcessMessage, CompanyID: "acme", RateLimit: 1, RateBurst: 5})

	for i := range 5 {
		if !m.Allow(job.TypeProcessMessage, "acme") {
			t.Fatalf("typed burst Allow %d should succeed", i)
		}
	}
	if !m.Allow(job.TypeSendNotification, "acme") {
		t.Fatal("wildcard limit should still allow its first token")
	}
	if m.Allow(job.TypeSendNotification, "acme") {
		t.Fatal("wildcard limit should throttle the second token")
	}
}

func TestManager_TenantLimited(t *testing.T) {
	m := NewManager()
	if m.TenantLimited(job.TypeProcessMessage, "acme") {
		t.Fatal("expected no tenant limit")
	}
	m.SetTenantConfig(TenantConfig{CompanyID: "acme", RateLimit: 2})
	if !m.TenantLimited(job.TypeProcessMessage, "acme") {
		t.Fatal("expected wildcard tenant limit to apply")
	}
	m.SetTenantConfig(TenantConfig{CompanyID: "acme"})
	if m.TenantLimited(job.TypeProcessMessage, "acme") {
		t.Fatal("zero RateLimit should remove the tenant limit")
	}
}

// ---------------------------------------------------------------------------
// Reconfiguration and concurrency
// ---------------------------------------------------------------------------

func TestManager_SetTypeConfig(t *testing.T) {
	m := NewManager()
	m.SetTypeConfig(Config{Type: job.TypeSendNotification, RateLimit: 1, RateBurst: 1})

	if !m.Limited(job.TypeSendNotification) {
		t.Fatal("expected type to be limited after SetTypeConfig")
	}
	_ = m.Allow(job.TypeSendNotification, "")
	if m.Allow(job.TypeSendNotification, "") {
		t.Fatal("expected throttle after reconfiguration")
	}

	m.SetTypeConfig(Config{Type: job.TypeSendNotification})
	if m.Limited(job.TypeSendNotification) {
		t.Fatal("expected limit removed")
	}
}

func TestManager_ConcurrentAccess(t *testing.T) {
	m := NewManager(Config{Type: job.TypeProcessMessage, RateLimit: 1000, RateBurst: 1000})
	m.SetTenantConfig(TenantConfig{CompanyID: "acme", RateLimit: 1000, RateBurst: 1000})

	var wg sync.WaitGroup
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = m.Allow(job.TypeProcessMessage, "acme")
			m.SetTenantConfig(TenantConfig{CompanyID: "globex", RateLimit: 10})
		}()
	}
	wg.Wait()
}

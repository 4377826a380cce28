// Package queue throttles job attempts per job type and per company.
//
// The processing loop calls [Manager.Wait] before every attempt. Jobs whose
// type and company carry no limit pass straight through.
//
// # Per-Type Configuration
//
//	queue.Config{
//	    Type:      job.TypeSendAIResponse,
//	    RateLimit: 5,  // at most 5 attempts/s
//	    RateBurst: 10, // allow bursts up to 10
//	}
//
// # Per-Company Configuration
//
//	m.SetTenantConfig(queue.TenantConfig{
//	    CompanyID: "acme",
//	    RateLimit: 1,
//	})
//
// A company limit with an empty Type covers every job type for that
// company; a typed entry takes precedence for its type.
//
// Limits use a token-bucket rate limiter (golang.org/x/time/rate). Since
// the loop runs one job at a time, a throttled job holds up the whole
// queue exactly like a retry backoff does.
package queue

// Package webhook turns a job type into an HTTP call. The returned
// job.HandlerFunc POSTs a JSON envelope with the job's payload to a fixed
// endpoint; any transport error or non-2xx response is a handler error,
// so the engine's retry policy applies.
//
// Envelope:
//
//	{"type":"send_ai_response","company_id":"company_123","payload":{...}}
//
// Usage:
//
//	hook := webhook.New("https://app.internal/api/jobs/send-ai-response",
//	    webhook.WithHeader("Authorization", "Bearer "+token))
//	eng.Register(job.TypeSendAIResponse, hook.For(job.TypeSendAIResponse))
package webhook

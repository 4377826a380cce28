// Package observability provides an OpenTelemetry metrics extension for
// taskq. The MetricsExtension implements lifecycle hooks to record
// system-wide counters for enqueue, completion, failure, retry, history
// purge and cron events.
//
// For per-attempt tracing and metrics, see the middleware package:
// middleware.Tracing() and middleware.Metrics().
package observability

package middleware

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/ZEDDEV1/nozesia-sub005/job"
)

// meterName is the instrumentation scope name for taskq metrics.
const meterName = "github.com/ZEDDEV1/nozesia-sub005"

// Attempt outcomes recorded in the "outcome" attribute.
const (
	OutcomeOK      = "ok"
	OutcomeError   = "error"
	OutcomeTimeout = "timeout"
	OutcomePanic   = "panic"
)

// Metrics returns middleware that records per-attempt metrics using the
// global OTel MeterProvider. Without a configured provider the
// instruments are noops.
//
// Instruments, both with job_type and outcome attributes:
//   - taskq.job.duration (Float64Histogram): attempt time in seconds
//   - taskq.job.executions (Int64Counter): attempts made
//
// The outcome is ok, error, timeout (the error wraps
// context.DeadlineExceeded) or panic. Panics are recorded and re-raised
// for Recover to handle.
func Metrics() Middleware {
	return MetricsWithMeter(otel.Meter(meterName))
}

// MetricsWithMeter returns metrics middleware using the provided meter.
func MetricsWithMeter(meter metric.Meter) Middleware {
	// On error the API returns noop instruments, so the errors are dropped.
	duration, _ := meter.Float64Histogram(
		"taskq.job.duration",
		metric.WithDescription("Duration of job attempts in seconds"),
		metric.WithUnit("s"),
	)
	executions, _ := meter.Int64Counter(
		"taskq.job.executions",
		metric.WithDescription("Total number of job attempts"),
		metric.WithUnit("{execution}"),
	)

	return func(ctx context.Context, j *job.Job, next Handler) (err error) {
		start := time.Now()
		panicked := true
		defer func() {
			attrs := metric.WithAttributes(
				attribute.String("job_type", string(j.Type)),
				attribute.String("outcome", outcome(err, panicked)),
			)
			duration.Record(ctx, time.Since(start).Seconds(), attrs)
			executions.Add(ctx, 1, attrs)
		}()
		err = next(ctx)
		panicked = false
		return err
	}
}

func outcome(err error, panicked bool) string {
	switch {
	case panicked, errors.Is(err, ErrPanic):
		return OutcomePanic
	case err == nil:
		return OutcomeOK
	case errors.Is(err, context.DeadlineExceeded):
		return OutcomeTimeout
	default:
		return OutcomeError
	}
}

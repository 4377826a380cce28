package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/ZEDDEV1/nozesia-sub005/ext"
	"github.com/ZEDDEV1/nozesia-sub005/id"
	"github.com/ZEDDEV1/nozesia-sub005/job"
)

// Compile-time interface checks.
var (
	_ ext.Extension      = (*MetricsExtension)(nil)
	_ ext.JobEnqueued    = (*MetricsExtension)(nil)
	_ ext.JobCompleted   = (*MetricsExtension)(nil)
	_ ext.JobFailed      = (*MetricsExtension)(nil)
	_ ext.JobRetrying    = (*MetricsExtension)(nil)
	_ ext.HistoryCleared = (*MetricsExtension)(nil)
	_ ext.CronFired      = (*MetricsExtension)(nil)
)

const meterName = "github.com/ZEDDEV1/nozesia-sub005/observability"

// MetricsExtension records system-wide lifecycle counters through an
// OpenTelemetry meter. Register it as an extension to track enqueue rates,
// completion counts, failure rates, retries, history purges and cron fires.
type MetricsExtension struct {
	JobEnqueued    metric.Int64Counter
	JobCompleted   metric.Int64Counter
	JobFailed      metric.Int64Counter
	JobRetried     metric.Int64Counter
	HistoryCleared metric.Int64Counter
	CronFired      metric.Int64Counter
	RetryDelay     metric.Float64Histogram
}

// NewMetricsExtension creates a MetricsExtension using the global
// MeterProvider.
func NewMetricsExtension() *MetricsExtension {
	return NewMetricsExtensionWithMeter(otel.Meter(meterName))
}

// NewMetricsExtensionWithMeter creates a MetricsExtension with the provided
// meter. Instrument creation errors fall back to the API's noop
// instruments.
func NewMetricsExtensionWithMeter(meter metric.Meter) *MetricsExtension {
	counter := func(name, desc string) metric.Int64Counter {
		c, _ := meter.Int64Counter(name, metric.WithDescription(desc))
		return c
	}
	delay, _ := meter.Float64Histogram("taskq.job.retry_delay",
		metric.WithDescription("Backoff applied before a retried job"),
		metric.WithUnit("s"),
	)
	return &MetricsExtension{
		JobEnqueued:    counter("taskq.job.enqueued", "Jobs accepted into the live queue"),
		JobCompleted:   counter("taskq.job.completed", "Jobs that finished successfully"),
		JobFailed:      counter("taskq.job.failed", "Jobs that failed permanently"),
		JobRetried:     counter("taskq.job.retried", "Failed attempts that were requeued"),
		HistoryCleared: counter("taskq.history.cleared", "History entries removed by a purge"),
		CronFired:      counter("taskq.cron.fired", "Cron entries that enqueued a job"),
		RetryDelay:     delay,
	}
}

// Name implements ext.Extension.
func (m *MetricsExtension) Name() string { return "observability-metrics" }

func typeAttr(j *job.Job) metric.MeasurementOption {
	return metric.WithAttributes(attribute.String("job_type", string(j.Type)))
}

// ── Job lifecycle hooks ─────────────────────────────

// OnJobEnqueued implements ext.JobEnqueued.
func (m *MetricsExtension) OnJobEnqueued(ctx context.Context, j *job.Job) error {
	m.JobEnqueued.Add(ctx, 1, typeAttr(j))
	return nil
}

// OnJobCompleted implements ext.JobCompleted.
func (m *MetricsExtension) OnJobCompleted(ctx context.Context, j *job.Job, _ time.Duration) error {
	m.JobCompleted.Add(ctx, 1, typeAttr(j))
	return nil
}

// OnJobFailed implements ext.JobFailed.
func (m *MetricsExtension) OnJobFailed(ctx context.Context, j *job.Job, _ error) error {
	m.JobFailed.Add(ctx, 1, typeAttr(j))
	return nil
}

// OnJobRetrying implements ext.JobRetrying.
func (m *MetricsExtension) OnJobRetrying(ctx context.Context, j *job.Job, _ int, delay time.Duration) error {
	m.JobRetried.Add(ctx, 1, typeAttr(j))
	m.RetryDelay.Record(ctx, delay.Seconds(), typeAttr(j))
	return nil
}

// OnHistoryCleared implements ext.HistoryCleared.
func (m *MetricsExtension) OnHistoryCleared(ctx context.Context, removed int) error {
	m.HistoryCleared.Add(ctx, int64(removed))
	return nil
}

// ── Cron lifecycle hooks ────────────────────────────

// OnCronFired implements ext.CronFired.
func (m *MetricsExtension) OnCronFired(ctx context.Context, entryName string, _ id.JobID) error {
	m.CronFired.Add(ctx, 1, metric.WithAttributes(attribute.String("entry", entryName)))
	return nil
}

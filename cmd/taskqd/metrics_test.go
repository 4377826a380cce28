package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/ZEDDEV1/nozesia-sub005/internal/config"
	"github.com/ZEDDEV1/nozesia-sub005/job"
)

func counterTotal(t *testing.T, reader *sdkmetric.ManualReader, name string) int64 {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	var total int64
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != name {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			require.True(t, ok, "%s: unexpected data %T", name, m.Data)
			for _, dp := range sum.DataPoints {
				total += dp.Value
			}
		}
	}
	return total
}

func TestBuild_LifecycleMetricsCountedOnce(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	prev := otel.GetMeterProvider()
	otel.SetMeterProvider(sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader)))
	t.Cleanup(func() { otel.SetMeterProvider(prev) })

	hook := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(hook.Close)

	cfg := config.Default()
	cfg.Webhooks = map[string]config.WebhookConfig{
		string(job.TypeProcessMessage): {URL: hook.URL},
	}

	d, err := build(context.Background(), &cfg, quietLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.shutdown() })

	enqueuedBefore := counterTotal(t, reader, "taskq.job.enqueued")
	completedBefore := counterTotal(t, reader, "taskq.job.completed")

	_, err = d.eng.AddJob(context.Background(), job.TypeProcessMessage, []byte(`{"message_id":"m-1"}`))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, d.eng.Drain(ctx))

	assert.Equal(t, int64(1), counterTotal(t, reader, "taskq.job.enqueued")-enqueuedBefore)
	assert.Equal(t, int64(1), counterTotal(t, reader, "taskq.job.completed")-completedBefore)
}

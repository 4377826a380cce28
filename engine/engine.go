// Package engine runs the job queue: a single cooperative processing loop
// over a FIFO live queue, with retry backoff and a bounded history of
// terminal jobs. It wires the job registry, middleware chain, extension
// hooks, rate limits and the optional archive together.
//
// The engine sits above every subsystem package and below the
// application layer.
package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/tidwall/gjson"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	taskq "github.com/ZEDDEV1/nozesia-sub005"
	"github.com/ZEDDEV1/nozesia-sub005/backoff"
	"github.com/ZEDDEV1/nozesia-sub005/ext"
	"github.com/ZEDDEV1/nozesia-sub005/history"
	"github.com/ZEDDEV1/nozesia-sub005/job"
	mw "github.com/ZEDDEV1/nozesia-sub005/middleware"
	"github.com/ZEDDEV1/nozesia-sub005/observability"
	"github.com/ZEDDEV1/nozesia-sub005/queue"
	"github.com/ZEDDEV1/nozesia-sub005/scope"
	"github.com/ZEDDEV1/nozesia-sub005/store"
	"github.com/ZEDDEV1/nozesia-sub005/worker"
)

// instrumentationName is the OTel scope used when a custom provider is set.
const instrumentationName = "github.com/ZEDDEV1/nozesia-sub005"

// WaitFunc suspends the processing loop for d. It must return early with
// ctx.Err() when ctx is done.
type WaitFunc func(ctx context.Context, d time.Duration) error

// sleep is the default WaitFunc.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Engine is an in-process job queue. Create one with New.
type Engine struct {
	cfg        taskq.Config
	registry   *job.Registry
	extensions *ext.Registry
	executor   *worker.Executor
	history    *history.Buffer
	bo         backoff.Strategy
	wait       WaitFunc
	archive    store.Archive
	logger     *slog.Logger
	mws        []mw.Middleware
	exts       []ext.Extension

	// Queue subsystem.
	queueConfigs  []queue.Config
	tenantConfigs []queue.TenantConfig
	queueManager  *queue.Manager

	// OpenTelemetry providers (optional; nil means use global).
	tracerProvider trace.TracerProvider
	meterProvider  metric.MeterProvider

	// stopCtx is cancelled when Close begins; it interrupts backoff and
	// rate-limit waits. runCtx is handed to handlers and is cancelled only
	// when the Close deadline expires.
	stopCtx    context.Context
	stopCancel context.CancelFunc
	runCtx     context.Context
	runCancel  context.CancelFunc
	loop       sync.WaitGroup

	mu      sync.Mutex
	live    []*job.Job
	running bool
	closed  bool
	idle    chan struct{}
}

// Option configures an Engine.
type Option func(*Engine)

// WithConfig replaces the engine configuration.
func WithConfig(cfg taskq.Config) Option {
	return func(eng *Engine) { eng.cfg = cfg }
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(eng *Engine) { eng.logger = l }
}

// WithExtension registers an extension with the engine.
func WithExtension(e ext.Extension) Option {
	return func(eng *Engine) {
		eng.exts = append(eng.exts, e)
	}
}

// WithMiddleware adds middleware to the engine's chain. User middleware
// runs inside the default stack.
func WithMiddleware(m mw.Middleware) Option {
	return func(eng *Engine) {
		eng.mws = append(eng.mws, m)
	}
}

// WithBackoff sets the retry backoff strategy, overriding Config.Backoff.
func WithBackoff(b backoff.Strategy) Option {
	return func(eng *Engine) {
		eng.bo = b
	}
}

// WithWaiter replaces the function used to suspend the loop between a
// failed attempt and the next job. Tests use it to record delays instead
// of sleeping.
func WithWaiter(w WaitFunc) Option {
	return func(eng *Engine) { eng.wait = w }
}

// WithQueueConfig registers per-type rate limits. Types not listed have no
// limits.
func WithQueueConfig(configs ...queue.Config) Option {
	return func(eng *Engine) {
		eng.queueConfigs = append(eng.queueConfigs, configs...)
	}
}

// WithTenantConfig registers per-company rate limits.
func WithTenantConfig(configs ...queue.TenantConfig) Option {
	return func(eng *Engine) {
		eng.tenantConfigs = append(eng.tenantConfigs, configs...)
	}
}

// WithArchive records every terminal job in a. The archive is also
// exposed through Archive for the admin API.
func WithArchive(a store.Archive) Option {
	return func(eng *Engine) { eng.archive = a }
}

// WithTracerProvider sets a custom OTel TracerProvider for the engine.
// If not set, the global otel.GetTracerProvider() is used.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(eng *Engine) {
		eng.tracerProvider = tp
	}
}

// WithMeterProvider sets a custom OTel MeterProvider for the engine.
// Both the metrics middleware and the observability extension use it.
// If not set, the global otel.GetMeterProvider() is used.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(eng *Engine) {
		eng.meterProvider = mp
	}
}

// New creates an idle Engine. The processing loop starts on the first
// AddJob.
func New(opts ...Option) (*Engine, error) {
	eng := &Engine{
		cfg:      taskq.DefaultConfig(),
		registry: job.NewRegistry(),
		wait:     sleep,
		logger:   slog.Default(),
	}

	for _, opt := range opts {
		opt(eng)
	}
	if eng.logger == nil {
		eng.logger = slog.Default()
	}
	if eng.wait == nil {
		eng.wait = sleep
	}
	if eng.cfg.MaxAttempts < 1 {
		eng.cfg.MaxAttempts = 1
	}

	if eng.bo == nil {
		bo, err := backoff.New(backoff.Kind(eng.cfg.Backoff.Kind), eng.cfg.Backoff.Initial, eng.cfg.Backoff.Max)
		if err != nil {
			return nil, fmt.Errorf("engine: %w", err)
		}
		eng.bo = bo
	}

	eng.history = history.New(eng.cfg.HistoryCapacity)

	eng.extensions = ext.NewRegistry(eng.logger)
	callerMetrics := false
	for _, e := range eng.exts {
		if _, ok := e.(*observability.MetricsExtension); ok {
			callerMetrics = true
		}
		eng.extensions.Register(e)
	}

	if len(eng.queueConfigs) > 0 || len(eng.tenantConfigs) > 0 {
		eng.queueManager = queue.NewManager(eng.queueConfigs...)
		for _, tc := range eng.tenantConfigs {
			eng.queueManager.SetTenantConfig(tc)
		}
	}

	// Build tracing middleware (custom provider or global).
	var tracingMw mw.Middleware
	if eng.tracerProvider != nil {
		tracingMw = mw.TracingWithTracer(eng.tracerProvider.Tracer(instrumentationName))
	} else {
		tracingMw = mw.Tracing()
	}

	// Build metrics middleware and the observability extension. A
	// MetricsExtension passed through WithExtension replaces the built-in
	// one so lifecycle counters are recorded once.
	var metricsMw mw.Middleware
	if eng.meterProvider != nil {
		metricsMw = mw.MetricsWithMeter(eng.meterProvider.Meter(instrumentationName))
	} else {
		metricsMw = mw.Metrics()
	}
	if !callerMetrics {
		if eng.meterProvider != nil {
			eng.extensions.Register(observability.NewMetricsExtensionWithMeter(eng.meterProvider.Meter(instrumentationName + "/observability")))
		} else {
			eng.extensions.Register(observability.NewMetricsExtension())
		}
	}

	if eng.archive != nil {
		eng.extensions.Register(store.NewRecorder(eng.archive, 5*time.Second))
	}

	// Default stack: recover, tracing, metrics, logging, scope, timeout.
	defaultMws := []mw.Middleware{
		mw.Recover(eng.logger),
		tracingMw,
		metricsMw,
		mw.Logging(eng.logger),
		mw.Scope(),
		mw.Timeout(eng.logger),
	}
	allMws := make([]mw.Middleware, 0, len(defaultMws)+len(eng.mws))
	allMws = append(allMws, defaultMws...)
	allMws = append(allMws, eng.mws...)

	eng.executor = worker.NewExecutor(eng.registry, eng.logger, allMws...)

	eng.stopCtx, eng.stopCancel = context.WithCancel(context.Background())
	eng.runCtx, eng.runCancel = context.WithCancel(context.Background())

	return eng, nil
}

// ──────────────────────────────────────────────────
// Registration
// ──────────────────────────────────────────────────

// Register binds a raw handler to a job type. A later registration for
// the same type replaces the earlier one.
func (eng *Engine) Register(t job.Type, h job.HandlerFunc) {
	eng.registry.Register(t, h)
}

// Register registers a typed job definition with the engine.
func Register[T any](eng *Engine, def *job.Definition[T]) {
	job.RegisterDefinition(eng.registry, def)
}

// ──────────────────────────────────────────────────
// Enqueueing
// ──────────────────────────────────────────────────

// Enqueue JSON-encodes payload and enqueues a job of type t.
func Enqueue[T any](ctx context.Context, eng *Engine, t job.Type, payload T, opts ...job.Option) (*job.Job, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload for job %q: %w", t, err)
	}
	return eng.AddJob(ctx, t, data, opts...)
}

// AddJob appends a pending job to the tail of the live queue and starts
// the processing loop if it is idle. It returns immediately; handler
// failures are never reported here. The returned job is owned by the
// engine: read its fields only after Done is closed.
//
// The company ID defaults to the one carried by ctx (see package scope).
// A non-empty payload must be valid JSON.
func (eng *Engine) AddJob(ctx context.Context, t job.Type, payload []byte, opts ...job.Option) (*job.Job, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("%w: %q", taskq.ErrUnknownJobType, t)
	}
	if len(payload) > 0 && !gjson.ValidBytes(payload) {
		return nil, fmt.Errorf("%w: job %q", taskq.ErrInvalidPayload, t)
	}

	base := job.Options{
		MaxAttempts: eng.cfg.MaxAttempts,
		CompanyID:   scope.Capture(ctx),
	}
	j := job.New(t, payload, job.Apply(base, opts...))

	eng.mu.Lock()
	if eng.closed {
		eng.mu.Unlock()
		return nil, taskq.ErrClosed
	}
	eng.live = append(eng.live, j)
	snap := j.Snapshot()
	start := !eng.running
	if start {
		eng.running = true
		eng.idle = make(chan struct{})
		eng.loop.Add(1)
	}
	eng.mu.Unlock()

	eng.logger.Info("job enqueued",
		slog.String("job_id", snap.ID.String()),
		slog.String("job_type", string(snap.Type)),
		slog.Int("max_attempts", snap.MaxAttempts),
	)
	eng.extensions.EmitJobEnqueued(ctx, snap)

	if start {
		go eng.run()
	}
	return j, nil
}

// ──────────────────────────────────────────────────
// Processing loop
// ──────────────────────────────────────────────────

// run drains the live queue one job at a time. Exactly one run goroutine
// exists while eng.running is true.
func (eng *Engine) run() {
	defer eng.loop.Done()

	for {
		eng.mu.Lock()
		if len(eng.live) == 0 || eng.stopCtx.Err() != nil {
			eng.running = false
			close(eng.idle)
			eng.mu.Unlock()
			return
		}
		j := eng.live[0]
		eng.mu.Unlock()

		if eng.queueManager != nil {
			if err := eng.queueManager.Wait(eng.stopCtx, j.Type, j.CompanyID); err != nil {
				continue
			}
		}

		eng.mu.Lock()
		j.Attempts++
		j.State = job.StateProcessing
		now := time.Now().UTC()
		j.StartedAt = &now
		snap := j.Snapshot()
		eng.mu.Unlock()

		eng.extensions.EmitJobStarted(eng.runCtx, snap)
		out := eng.executor.Execute(eng.runCtx, snap)

		if delay, retry := eng.settle(j, out); retry {
			if err := eng.wait(eng.stopCtx, delay); err != nil {
				eng.logger.Debug("backoff interrupted", slog.String("error", err.Error()))
			}
		}
	}
}

// settle applies the outcome of an attempt on the head job. It reports
// whether the job was requeued and, if so, the backoff delay to wait
// before the loop continues.
func (eng *Engine) settle(j *job.Job, out worker.Outcome) (time.Duration, bool) {
	hookCtx := context.WithoutCancel(eng.runCtx)
	now := time.Now().UTC()

	eng.mu.Lock()
	eng.live[0] = nil
	eng.live = eng.live[1:]

	var (
		retry bool
		delay time.Duration
	)
	switch {
	case out.Succeeded():
		j.Finish(job.StateCompleted, "", now)
	case errors.Is(out.Err, taskq.ErrNoHandler), j.Exhausted():
		j.Finish(job.StateFailed, out.Err.Error(), now)
	default:
		retry = true
		j.State = job.StatePending
		eng.live = append(eng.live, j)
		delay = eng.bo.Delay(j.Attempts)
	}

	var evicted *job.Job
	if !retry {
		evicted = eng.history.Push(j)
	}
	snap := j.Snapshot()
	eng.mu.Unlock()

	if evicted != nil {
		eng.logger.Debug("history entry evicted", slog.String("job_id", evicted.ID.String()))
	}

	switch {
	case retry:
		eng.logger.Warn("job retry scheduled",
			slog.String("job_id", snap.ID.String()),
			slog.String("job_type", string(snap.Type)),
			slog.Int("attempt", snap.Attempts),
			slog.Int("max_attempts", snap.MaxAttempts),
			slog.Duration("delay", delay),
			slog.String("error", out.Err.Error()),
		)
		eng.extensions.EmitJobRetrying(hookCtx, snap, snap.Attempts, delay)
	case snap.State == job.StateCompleted:
		eng.logger.Info("job completed",
			slog.String("job_id", snap.ID.String()),
			slog.String("job_type", string(snap.Type)),
			slog.Int("attempts", snap.Attempts),
			slog.Duration("elapsed", out.Elapsed),
		)
		eng.extensions.EmitJobCompleted(hookCtx, snap, out.Elapsed)
	default:
		eng.logger.Error("job failed",
			slog.String("job_id", snap.ID.String()),
			slog.String("job_type", string(snap.Type)),
			slog.Int("attempts", snap.Attempts),
			slog.String("error", snap.LastError),
		)
		eng.extensions.EmitJobFailed(hookCtx, snap, out.Err)
	}

	return delay, retry
}

// ──────────────────────────────────────────────────
// Lifecycle
// ──────────────────────────────────────────────────

// Drain blocks until the live queue is empty and the loop is idle, or ctx
// is done.
func (eng *Engine) Drain(ctx context.Context) error {
	for {
		eng.mu.Lock()
		if !eng.running {
			eng.mu.Unlock()
			return nil
		}
		idle := eng.idle
		eng.mu.Unlock()

		select {
		case <-idle:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Close stops accepting jobs and shuts the loop down. A backoff or rate
// limit wait is interrupted immediately; the in-flight handler may finish
// until ctx is done, after which its context is cancelled. Jobs still
// pending are failed with taskq.ErrClosed since the live queue is not
// persisted. Close is idempotent.
func (eng *Engine) Close(ctx context.Context) error {
	eng.mu.Lock()
	if eng.closed {
		eng.mu.Unlock()
		return nil
	}
	eng.closed = true
	eng.mu.Unlock()

	eng.logger.Info("queue engine stopping")
	eng.stopCancel()

	done := make(chan struct{})
	go func() {
		eng.loop.Wait()
		close(done)
	}()

	var err error
	select {
	case <-done:
	case <-ctx.Done():
		eng.logger.Warn("queue shutdown timed out, cancelling in-flight job")
		eng.runCancel()
		<-done
		err = ctx.Err()
	}
	eng.runCancel()

	eng.abandonPending()
	eng.extensions.EmitShutdown(context.WithoutCancel(ctx))
	eng.logger.Info("queue engine stopped")
	return err
}

// abandonPending fails every job left in the live queue after the loop
// has exited.
func (eng *Engine) abandonPending() {
	now := time.Now().UTC()

	eng.mu.Lock()
	dropped := eng.live
	eng.live = nil
	snaps := make([]*job.Job, 0, len(dropped))
	for _, j := range dropped {
		j.Finish(job.StateFailed, taskq.ErrClosed.Error(), now)
		eng.history.Push(j)
		snaps = append(snaps, j.Snapshot())
	}
	eng.mu.Unlock()

	if len(snaps) == 0 {
		return
	}
	eng.logger.Warn("pending jobs dropped at shutdown", slog.Int("count", len(snaps)))
	for _, s := range snaps {
		eng.extensions.EmitJobFailed(context.Background(), s, taskq.ErrClosed)
	}
}

// ──────────────────────────────────────────────────
// Introspection
// ──────────────────────────────────────────────────

// Stats is a point-in-time view of queue health.
type Stats struct {
	Pending    int        `json:"pending"`
	Processing int        `json:"processing"`
	Completed  int        `json:"completed"`
	Failed     int        `json:"failed"`
	RecentJobs []*job.Job `json:"recent_jobs"`
}

// Stats returns counts over the live queue and the history, plus up to
// limit history entries newest first. A non-positive limit uses
// Config.RecentJobs.
func (eng *Engine) Stats(limit int) Stats {
	if limit <= 0 {
		limit = eng.cfg.RecentJobs
	}

	eng.mu.Lock()
	defer eng.mu.Unlock()

	var s Stats
	for _, j := range eng.live {
		if j.State == job.StateProcessing {
			s.Processing++
		} else {
			s.Pending++
		}
	}
	c := eng.history.Counts()
	s.Completed, s.Failed = c.Completed, c.Failed
	s.RecentJobs = eng.history.Recent(limit)
	return s
}

// ClearCompleted empties the completed/failed history and returns how
// many entries were removed. The live queue is not touched.
func (eng *Engine) ClearCompleted(ctx context.Context) int {
	eng.mu.Lock()
	n := eng.history.Clear()
	eng.mu.Unlock()

	eng.logger.Info("job history cleared", slog.Int("removed", n))
	eng.extensions.EmitHistoryCleared(ctx, n)
	return n
}

// Closed reports whether Close has been called.
func (eng *Engine) Closed() bool {
	eng.mu.Lock()
	defer eng.mu.Unlock()
	return eng.closed
}

// Extensions returns the extension registry.
func (eng *Engine) Extensions() *ext.Registry { return eng.extensions }

// Registry returns the job registry.
func (eng *Engine) Registry() *job.Registry { return eng.registry }

// Archive returns the configured archive, or nil.
func (eng *Engine) Archive() store.Archive { return eng.archive }

// QueueManager returns the rate limit manager, or nil if no limits were
// configured.
func (eng *Engine) QueueManager() *queue.Manager { return eng.queueManager }

// Config returns the effective configuration.
func (eng *Engine) Config() taskq.Config { return eng.cfg }

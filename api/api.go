// Package api provides the admin HTTP surface for a taskq engine: queue
// stats, history clearing, manual enqueue, the job archive and cron
// entries.
package api

import (
	"context"
	"log/slog"
	"net/http"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/ZEDDEV1/nozesia-sub005/cron"
	"github.com/ZEDDEV1/nozesia-sub005/engine"
	"github.com/ZEDDEV1/nozesia-sub005/job"
	"github.com/ZEDDEV1/nozesia-sub005/store"
)

// Queue is the part of *engine.Engine the API drives.
type Queue interface {
	Stats(limit int) engine.Stats
	ClearCompleted(ctx context.Context) int
	AddJob(ctx context.Context, t job.Type, payload []byte, opts ...job.Option) (*job.Job, error)
	Archive() store.Archive
	Closed() bool
}

var _ Queue = (*engine.Engine)(nil)

// Option configures an API.
type Option func(*API)

// WithScheduler exposes cron entries under /api/admin/cron.
func WithScheduler(s *cron.Scheduler) Option {
	return func(a *API) { a.sched = s }
}

// WithLogger sets the logger used for handler errors.
func WithLogger(l *slog.Logger) Option {
	return func(a *API) { a.logger = l }
}

// API wires the admin HTTP handlers together.
type API struct {
	eng    Queue
	sched  *cron.Scheduler
	logger *slog.Logger
}

// New creates an API for eng.
func New(eng Queue, opts ...Option) *API {
	a := &API{eng: eng, logger: slog.Default()}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Handler returns the fully assembled http.Handler with all routes,
// instrumented with otelhttp.
func (a *API) Handler() http.Handler {
	mux := http.NewServeMux()
	a.RegisterRoutes(mux)
	return otelhttp.NewHandler(mux, "taskq.admin")
}

// RegisterRoutes registers all admin routes on mux.
func (a *API) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", a.healthz)

	mux.HandleFunc("GET /api/admin/queue", a.stats)
	mux.HandleFunc("DELETE /api/admin/queue", a.clearHistory)
	mux.HandleFunc("POST /api/admin/queue/jobs", a.enqueue)

	mux.HandleFunc("GET /api/admin/queue/archive", a.listArchive)
	mux.HandleFunc("GET /api/admin/queue/archive/{jobId}", a.getArchived)

	if a.sched != nil {
		mux.HandleFunc("GET /api/admin/cron", a.listCrons)
		mux.HandleFunc("POST /api/admin/cron/{name}/enable", a.enableCron)
		mux.HandleFunc("POST /api/admin/cron/{name}/disable", a.disableCron)
		mux.HandleFunc("DELETE /api/admin/cron/{name}", a.deleteCron)
	}
}

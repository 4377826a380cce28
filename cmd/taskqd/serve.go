package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/ZEDDEV1/nozesia-sub005/api"
	audithook "github.com/ZEDDEV1/nozesia-sub005/audit_hook"
	"github.com/ZEDDEV1/nozesia-sub005/cron"
	"github.com/ZEDDEV1/nozesia-sub005/engine"
	"github.com/ZEDDEV1/nozesia-sub005/internal/config"
	"github.com/ZEDDEV1/nozesia-sub005/job"
	"github.com/ZEDDEV1/nozesia-sub005/webhook"
)

func newServeCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the queue engine, cron scheduler and admin HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg, cfg.Log.NewLogger(cmd.ErrOrStderr()))
		},
	}

	f := cmd.Flags()
	f.String("addr", "", "admin HTTP listen address")
	f.String("archive", "", "archive backend: none, memory, sqlite, postgres, redis")
	f.String("archive-dsn", "", "SQLite DSN or Postgres URL for the archive")
	_ = opts.v.BindPFlag("http.addr", f.Lookup("addr"))
	_ = opts.v.BindPFlag("archive.backend", f.Lookup("archive"))
	_ = opts.v.BindPFlag("archive.dsn", f.Lookup("archive-dsn"))
	return cmd
}

// daemon holds the wired components of a running taskqd.
type daemon struct {
	cfg     *config.Config
	logger  *slog.Logger
	eng     *engine.Engine
	sched   *cron.Scheduler
	archive *archiveHandle
	server  *http.Server
}

func build(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*daemon, error) {
	d := &daemon{cfg: cfg, logger: logger}

	archive, err := openArchive(ctx, cfg.Archive, logger)
	if err != nil {
		return nil, err
	}
	d.archive = archive

	engOpts := []engine.Option{
		engine.WithConfig(cfg.Queue),
		engine.WithLogger(logger),
		engine.WithQueueConfig(cfg.RateLimits...),
		engine.WithTenantConfig(cfg.TenantLimits...),
	}
	if archive != nil {
		engOpts = append(engOpts, engine.WithArchive(archive))
	}
	if cfg.Audit.Enabled {
		engOpts = append(engOpts, engine.WithExtension(audithook.New(
			audithook.SlogRecorder(logger.With(slog.String("component", "audit"))),
			audithook.WithActions(cfg.Audit.Actions...),
			audithook.WithLogger(logger),
		)))
	}
	d.eng, err = engine.New(engOpts...)
	if err != nil {
		d.closeArchive()
		return nil, err
	}

	registerWebhooks(d.eng, cfg.Webhooks, logger)

	d.sched = cron.NewScheduler(cron.EnqueueVia(d.eng), d.eng.Extensions(), logger)
	for _, cc := range cfg.Crons {
		var payload []byte
		if cc.Payload != "" {
			payload = []byte(cc.Payload)
		}
		if _, err := d.sched.Add(&cron.Entry{
			Name:      cc.Name,
			Schedule:  cc.Schedule,
			JobType:   job.Type(cc.JobType),
			Payload:   payload,
			CompanyID: cc.CompanyID,
			Enabled:   !cc.Disabled,
		}); err != nil {
			_ = d.eng.Close(context.Background())
			d.closeArchive()
			return nil, err
		}
	}

	d.server = &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           api.New(d.eng, api.WithScheduler(d.sched), api.WithLogger(logger)).Handler(),
		ReadHeaderTimeout: cfg.HTTP.ReadHeaderTimeout,
	}
	return d, nil
}

func registerWebhooks(eng *engine.Engine, hooks map[string]config.WebhookConfig, logger *slog.Logger) {
	for _, t := range job.Types() {
		wh, ok := hooks[string(t)]
		if !ok {
			logger.Warn("no webhook configured; jobs of this type will fail",
				slog.String("job_type", string(t)),
			)
			continue
		}
		opts := []webhook.Option{webhook.WithLogger(logger)}
		if wh.Timeout > 0 {
			opts = append(opts, webhook.WithTimeout(wh.Timeout))
		}
		for k, v := range wh.Headers {
			opts = append(opts, webhook.WithHeader(k, v))
		}
		eng.Register(t, webhook.New(wh.URL, opts...).For(t))
		logger.Info("webhook bound",
			slog.String("job_type", string(t)),
			slog.String("url", wh.URL),
		)
	}
}

func serve(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	d, err := build(ctx, cfg, logger)
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("admin API listening", slog.String("addr", cfg.HTTP.Addr))
		if err := d.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("admin API: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		return d.sched.Start(gctx)
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		return d.shutdown()
	})

	return g.Wait()
}

// shutdown stops intake first, then lets the engine finish the job in
// flight within the queue's shutdown timeout.
func (d *daemon) shutdown() error {
	var errs []error

	httpCtx, cancel := context.WithTimeout(context.Background(), d.cfg.HTTP.ShutdownTimeout)
	defer cancel()
	if err := d.server.Shutdown(httpCtx); err != nil {
		errs = append(errs, fmt.Errorf("admin API shutdown: %w", err))
	}

	if err := d.sched.Stop(httpCtx); err != nil {
		errs = append(errs, fmt.Errorf("cron stop: %w", err))
	}

	engCtx, engCancel := context.WithTimeout(context.Background(), d.cfg.Queue.ShutdownTimeout)
	defer engCancel()
	if err := d.eng.Close(engCtx); err != nil {
		errs = append(errs, fmt.Errorf("engine close: %w", err))
	}

	d.closeArchive()
	return errors.Join(errs...)
}

func (d *daemon) closeArchive() {
	if d.archive == nil {
		return
	}
	if err := d.archive.Close(); err != nil {
		d.logger.Warn("archive close failed", slog.String("error", err.Error()))
	}
}

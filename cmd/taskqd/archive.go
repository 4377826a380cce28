package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/cenkalti/backoff/v4"
	goredis "github.com/redis/go-redis/v9"

	"github.com/ZEDDEV1/nozesia-sub005/internal/config"
	"github.com/ZEDDEV1/nozesia-sub005/store"
	"github.com/ZEDDEV1/nozesia-sub005/store/memory"
	"github.com/ZEDDEV1/nozesia-sub005/store/postgres"
	redisstore "github.com/ZEDDEV1/nozesia-sub005/store/redis"
	"github.com/ZEDDEV1/nozesia-sub005/store/sqlite"
)

// archiveHandle couples an archive with whatever else must be released
// on shutdown (the Redis client is owned here, not by the store).
type archiveHandle struct {
	store.Archive
	closers []func() error
}

func (h *archiveHandle) Close() error {
	errs := []error{h.Archive.Close()}
	for _, c := range h.closers {
		errs = append(errs, c())
	}
	return errors.Join(errs...)
}

// openArchive connects the configured backend, retrying the initial ping
// with exponential backoff until cfg.ConnectTimeout, then migrates it.
// It returns nil for the "none" backend.
func openArchive(ctx context.Context, cfg config.ArchiveConfig, logger *slog.Logger) (*archiveHandle, error) {
	ctx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()

	var h *archiveHandle
	switch cfg.Backend {
	case config.ArchiveNone, "":
		return nil, nil
	case config.ArchiveMemory:
		h = &archiveHandle{Archive: memory.New()}
	case config.ArchiveSQLite:
		s, err := sqlite.Open(ctx, cfg.DSN, sqlite.WithLogger(logger))
		if err != nil {
			return nil, err
		}
		h = &archiveHandle{Archive: s}
	case config.ArchivePostgres:
		s, err := postgres.New(ctx, cfg.DSN, postgres.WithLogger(logger))
		if err != nil {
			return nil, err
		}
		h = &archiveHandle{Archive: s}
	case config.ArchiveRedis:
		client := goredis.NewClient(&goredis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		h = &archiveHandle{
			Archive: redisstore.New(client, redisstore.WithLogger(logger)),
			closers: []func() error{client.Close},
		}
	default:
		return nil, fmt.Errorf("unknown archive backend %q", cfg.Backend)
	}

	ping := func() error {
		err := h.Ping(ctx)
		if err != nil {
			logger.Warn("archive not reachable yet",
				slog.String("backend", cfg.Backend),
				slog.String("error", err.Error()),
			)
		}
		return err
	}
	if err := backoff.Retry(ping, backoff.WithContext(backoff.NewExponentialBackOff(), ctx)); err != nil {
		_ = h.Close()
		return nil, fmt.Errorf("archive %s: ping: %w", cfg.Backend, err)
	}

	if err := h.Migrate(ctx); err != nil {
		_ = h.Close()
		return nil, fmt.Errorf("archive %s: %w", cfg.Backend, err)
	}

	logger.Info("archive ready", slog.String("backend", cfg.Backend))
	return h, nil
}

//go:build integration

package postgres_test

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	pgmodule "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/ZEDDEV1/nozesia-sub005/store"
	"github.com/ZEDDEV1/nozesia-sub005/store/postgres"
	"github.com/ZEDDEV1/nozesia-sub005/store/storetest"
)

// setupPool starts one Postgres container for the whole test.
func setupPool(t *testing.T) *pgxpool.Pool {
	t.Helper()

	ctx := context.Background()

	container, err := pgmodule.Run(ctx,
		"postgres:16-alpine",
		pgmodule.WithDatabase("taskq_test"),
		pgmodule.WithUsername("test"),
		pgmodule.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		t.Fatalf("start postgres container: %v", err)
	}
	t.Cleanup(func() {
		if termErr := container.Terminate(ctx); termErr != nil {
			t.Logf("terminate container: %v", termErr)
		}
	})

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("get connection string: %v", err)
	}

	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(pool.Close)
	return pool
}

func TestPostgresArchive(t *testing.T) {
	pool := setupPool(t)

	storetest.Run(t, func(t *testing.T) store.Archive {
		ctx := context.Background()
		s := postgres.NewFromPool(pool, postgres.WithLogger(slog.Default()))
		require.NoError(t, s.Migrate(ctx))

		_, err := pool.Exec(ctx, `TRUNCATE taskq_archived_jobs`)
		require.NoError(t, err)
		return s
	})
}

func TestPostgresMigrate_ConcurrentAndIdempotent(t *testing.T) {
	pool := setupPool(t)
	ctx := context.Background()

	errs := make(chan error, 3)
	for range 3 {
		go func() { errs <- postgres.NewFromPool(pool).Migrate(ctx) }()
	}
	for range 3 {
		require.NoError(t, <-errs)
	}

	var n int
	require.NoError(t, pool.QueryRow(ctx, `SELECT COUNT(*) FROM taskq_migrations`).Scan(&n))
	require.Equal(t, 2, n)

	require.NoError(t, postgres.NewFromPool(pool).Migrate(ctx))
	require.NoError(t, pool.QueryRow(ctx, `SELECT COUNT(*) FROM taskq_migrations`).Scan(&n))
	require.Equal(t, 2, n)
}

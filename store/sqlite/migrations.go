package sqlite

import (
	"context"
	"fmt"
)

// migration is one forward-only schema step. Versions apply in slice
// order and are recorded in taskq_migrations.
type migration struct {
	Version string
	Name    string
	SQL     string
}

var migrations = []migration{
	{
		Version: "20260301120000",
		Name:    "create_archived_jobs_table",
		SQL: `
			CREATE TABLE IF NOT EXISTS taskq_archived_jobs (
				id            TEXT PRIMARY KEY,
				type          TEXT NOT NULL,
				payload       BLOB,
				status        TEXT NOT NULL,
				attempts      INTEGER NOT NULL DEFAULT 0,
				max_attempts  INTEGER NOT NULL DEFAULT 1,
				last_error    TEXT NOT NULL DEFAULT '',
				company_id    TEXT NOT NULL DEFAULT '',
				timeout       INTEGER NOT NULL DEFAULT 0,
				created_at    INTEGER NOT NULL,
				started_at    INTEGER,
				processed_at  INTEGER,
				finished_at   INTEGER NOT NULL
			)`,
	},
	{
		Version: "20260301120100",
		Name:    "create_archived_jobs_indexes",
		SQL: `
			CREATE INDEX IF NOT EXISTS idx_taskq_archived_finished
				ON taskq_archived_jobs (finished_at DESC, id DESC);
			CREATE INDEX IF NOT EXISTS idx_taskq_archived_status
				ON taskq_archived_jobs (status, finished_at DESC);
			CREATE INDEX IF NOT EXISTS idx_taskq_archived_company
				ON taskq_archived_jobs (company_id, finished_at DESC)`,
	},
}

// Migrate applies every pending migration in order.
func (s *Store) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS taskq_migrations (
			version    TEXT PRIMARY KEY,
			name       TEXT NOT NULL,
			applied_at INTEGER NOT NULL DEFAULT (unixepoch())
		)`)
	if err != nil {
		return fmt.Errorf("taskq/sqlite: create migrations table: %w", err)
	}

	for _, m := range migrations {
		var applied bool
		err = s.db.QueryRowContext(ctx,
			`SELECT EXISTS(SELECT 1 FROM taskq_migrations WHERE version = ?)`,
			m.Version,
		).Scan(&applied)
		if err != nil {
			return fmt.Errorf("taskq/sqlite: check migration %s: %w", m.Version, err)
		}
		if applied {
			continue
		}

		if err := s.apply(ctx, m); err != nil {
			return err
		}
		s.logger.Info("applied migration", "version", m.Version, "name", m.Name)
	}
	return nil
}

func (s *Store) apply(ctx context.Context, m migration) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("taskq/sqlite: begin migration %s: %w", m.Version, err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, m.SQL); err != nil {
		return fmt.Errorf("taskq/sqlite: execute migration %s: %w", m.Version, err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO taskq_migrations (version, name) VALUES (?, ?)`,
		m.Version, m.Name,
	); err != nil {
		return fmt.Errorf("taskq/sqlite: record migration %s: %w", m.Version, err)
	}
	return tx.Commit()
}

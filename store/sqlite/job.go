package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	taskq "github.com/ZEDDEV1/nozesia-sub005"
	"github.com/ZEDDEV1/nozesia-sub005/id"
	"github.com/ZEDDEV1/nozesia-sub005/job"
	"github.com/ZEDDEV1/nozesia-sub005/store"
)

const jobColumns = `
	id, type, payload, status, attempts, max_attempts, last_error,
	company_id, timeout, created_at, started_at, processed_at, finished_at`

// ArchiveJob upserts a terminal job.
func (s *Store) ArchiveJob(ctx context.Context, j *job.Job) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO taskq_archived_jobs (`+jobColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			status       = excluded.status,
			attempts     = excluded.attempts,
			max_attempts = excluded.max_attempts,
			last_error   = excluded.last_error,
			started_at   = excluded.started_at,
			processed_at = excluded.processed_at,
			finished_at  = excluded.finished_at`,
		j.ID.String(), string(j.Type), []byte(j.Payload), string(j.State),
		j.Attempts, j.MaxAttempts, j.LastError, j.CompanyID,
		int64(j.Timeout), j.CreatedAt.UnixNano(),
		toNanos(j.StartedAt), toNanos(j.ProcessedAt), finishedNanos(j),
	)
	if err != nil {
		return fmt.Errorf("taskq/sqlite: archive job: %w", err)
	}
	return nil
}

// GetArchived retrieves an archived job by ID.
func (s *Store) GetArchived(ctx context.Context, jobID id.JobID) (*job.Job, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+jobColumns+` FROM taskq_archived_jobs WHERE id = ?`,
		jobID.String(),
	)
	j, err := scanJob(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, taskq.ErrArchiveNotFound
		}
		return nil, fmt.Errorf("taskq/sqlite: get archived: %w", err)
	}
	return j, nil
}

// filterClause builds the WHERE clause for the filters of opts.
func filterClause(opts store.ListOpts) (string, []any) {
	var (
		where []string
		args  []any
	)
	if opts.Status != "" {
		where = append(where, "status = ?")
		args = append(args, string(opts.Status))
	}
	if opts.Type != "" {
		where = append(where, "type = ?")
		args = append(args, string(opts.Type))
	}
	if opts.CompanyID != "" {
		where = append(where, "company_id = ?")
		args = append(args, opts.CompanyID)
	}
	if len(where) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(where, " AND "), args
}

// ListArchived returns archived jobs matching opts, newest first.
func (s *Store) ListArchived(ctx context.Context, opts store.ListOpts) ([]*job.Job, error) {
	where, args := filterClause(opts)
	query := `SELECT ` + jobColumns + ` FROM taskq_archived_jobs` + where
	query += " ORDER BY finished_at DESC, id DESC LIMIT ? OFFSET ?"
	args = append(args, opts.EffectiveLimit(), max(opts.Offset, 0))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("taskq/sqlite: list archived: %w", err)
	}
	defer rows.Close()

	var jobs []*job.Job
	for rows.Next() {
		j, scanErr := scanJob(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("taskq/sqlite: scan archived row: %w", scanErr)
		}
		jobs = append(jobs, j)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("taskq/sqlite: iterate archived rows: %w", err)
	}
	return jobs, nil
}

// CountArchived counts archived jobs matching the filters of opts.
func (s *Store) CountArchived(ctx context.Context, opts store.ListOpts) (int64, error) {
	where, args := filterClause(opts)
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM taskq_archived_jobs`+where, args...).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("taskq/sqlite: count archived: %w", err)
	}
	return count, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanJob(row scanner) (*job.Job, error) {
	var (
		j                          job.Job
		payload                    []byte
		rawID, typ, status         string
		timeout, created, finished int64
		started, processed         sql.NullInt64
	)
	err := row.Scan(
		&rawID, &typ, &payload, &status, &j.Attempts, &j.MaxAttempts,
		&j.LastError, &j.CompanyID, &timeout, &created,
		&started, &processed, &finished,
	)
	if err != nil {
		return nil, err
	}

	jobID, err := id.ParseJobID(rawID)
	if err != nil {
		return nil, err
	}
	j.ID = jobID
	j.Type = job.Type(typ)
	j.Payload = payload
	j.State = job.State(status)
	j.Timeout = time.Duration(timeout)
	j.CreatedAt = time.Unix(0, created).UTC()
	j.StartedAt = fromNanos(started)
	j.ProcessedAt = fromNanos(processed)
	finishedAt := time.Unix(0, finished).UTC()
	j.FinishedAt = &finishedAt
	return &j, nil
}

func toNanos(t *time.Time) sql.NullInt64 {
	if t == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: t.UnixNano(), Valid: true}
}

func fromNanos(n sql.NullInt64) *time.Time {
	if !n.Valid {
		return nil
	}
	t := time.Unix(0, n.Int64).UTC()
	return &t
}

func finishedNanos(j *job.Job) int64 {
	if j.FinishedAt != nil {
		return j.FinishedAt.UnixNano()
	}
	return time.Now().UTC().UnixNano()
}

package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	taskq "github.com/ZEDDEV1/nozesia-sub005"
	"github.com/ZEDDEV1/nozesia-sub005/id"
	"github.com/ZEDDEV1/nozesia-sub005/job"
	"github.com/ZEDDEV1/nozesia-sub005/store"
)

const jobColumns = `
	id, type, payload, status, attempts, max_attempts, last_error,
	company_id, timeout_ns, created_at, started_at, processed_at, finished_at`

// ArchiveJob upserts a terminal job.
func (s *Store) ArchiveJob(ctx context.Context, j *job.Job) error {
	finishedAt := time.Now().UTC()
	if j.FinishedAt != nil {
		finishedAt = *j.FinishedAt
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO taskq_archived_jobs (`+jobColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (id) DO UPDATE SET
			status       = EXCLUDED.status,
			attempts     = EXCLUDED.attempts,
			max_attempts = EXCLUDED.max_attempts,
			last_error   = EXCLUDED.last_error,
			started_at   = EXCLUDED.started_at,
			processed_at = EXCLUDED.processed_at,
			finished_at  = EXCLUDED.finished_at`,
		j.ID.String(), string(j.Type), []byte(j.Payload), string(j.State),
		j.Attempts, j.MaxAttempts, j.LastError, j.CompanyID,
		int64(j.Timeout), j.CreatedAt, j.StartedAt, j.ProcessedAt, finishedAt,
	)
	if err != nil {
		return fmt.Errorf("taskq/postgres: archive job: %w", err)
	}
	return nil
}

// GetArchived retrieves an archived job by ID.
func (s *Store) GetArchived(ctx context.Context, jobID id.JobID) (*job.Job, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+jobColumns+` FROM taskq_archived_jobs WHERE id = $1`,
		jobID.String(),
	)

	j, err := scanJob(row)
	if err != nil {
		if isNoRows(err) {
			return nil, taskq.ErrArchiveNotFound
		}
		return nil, fmt.Errorf("taskq/postgres: get archived: %w", err)
	}
	return j, nil
}

// filterQuery appends the filters of opts to query as $n placeholders and
// returns the extended query, its args and the next placeholder index.
func filterQuery(query string, opts store.ListOpts) (string, []interface{}, int) {
	args := []interface{}{}
	argIdx := 1

	if opts.Status != "" {
		query += fmt.Sprintf(" AND status = $%d", argIdx)
		args = append(args, string(opts.Status))
		argIdx++
	}
	if opts.Type != "" {
		query += fmt.Sprintf(" AND type = $%d", argIdx)
		args = append(args, string(opts.Type))
		argIdx++
	}
	if opts.CompanyID != "" {
		query += fmt.Sprintf(" AND company_id = $%d", argIdx)
		args = append(args, opts.CompanyID)
		argIdx++
	}
	return query, args, argIdx
}

// ListArchived returns archived jobs matching opts, newest first.
func (s *Store) ListArchived(ctx context.Context, opts store.ListOpts) ([]*job.Job, error) {
	query, args, argIdx := filterQuery(`SELECT `+jobColumns+` FROM taskq_archived_jobs WHERE 1=1`, opts)

	query += " ORDER BY finished_at DESC, id DESC"
	query += fmt.Sprintf(" LIMIT $%d", argIdx)
	args = append(args, opts.EffectiveLimit())
	argIdx++

	if opts.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argIdx)
		args = append(args, opts.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("taskq/postgres: list archived: %w", err)
	}
	defer rows.Close()

	var jobs []*job.Job
	for rows.Next() {
		j, scanErr := scanJob(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("taskq/postgres: scan archived row: %w", scanErr)
		}
		jobs = append(jobs, j)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("taskq/postgres: iterate archived rows: %w", err)
	}
	return jobs, nil
}

// CountArchived counts archived jobs matching the filters of opts.
func (s *Store) CountArchived(ctx context.Context, opts store.ListOpts) (int64, error) {
	query, args, _ := filterQuery(`SELECT COUNT(*) FROM taskq_archived_jobs WHERE 1=1`, opts)
	var count int64
	err := s.pool.QueryRow(ctx, query, args...).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("taskq/postgres: count archived: %w", err)
	}
	return count, nil
}

func scanJob(row pgx.Row) (*job.Job, error) {
	var (
		j                  job.Job
		payload            []byte
		rawID, typ, status string
		timeout            int64
		finishedAt         time.Time
	)
	err := row.Scan(
		&rawID, &typ, &payload, &status, &j.Attempts, &j.MaxAttempts,
		&j.LastError, &j.CompanyID, &timeout, &j.CreatedAt,
		&j.StartedAt, &j.ProcessedAt, &finishedAt,
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
	j.CreatedAt = j.CreatedAt.UTC()
	j.StartedAt = utcPtr(j.StartedAt)
	j.ProcessedAt = utcPtr(j.ProcessedAt)
	finishedAt = finishedAt.UTC()
	j.FinishedAt = &finishedAt
	return &j, nil
}

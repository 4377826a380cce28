// Package store defines the archive persistence interface. Terminal jobs
// leave the in-memory history once evicted or cleared; an Archive keeps a
// durable copy for later inspection. Backends: Postgres, SQLite, Redis and
// Memory.
package store

import (
	"context"

	"github.com/ZEDDEV1/nozesia-sub005/id"
	"github.com/ZEDDEV1/nozesia-sub005/job"
)

// ListOpts filters and paginates archived jobs. Zero values mean no
// filter.
type ListOpts struct {
	// Status limits results to completed or failed jobs.
	Status job.State

	// Type limits results to one job type.
	Type job.Type

	// CompanyID limits results to one tenant.
	CompanyID string

	// Limit is the maximum number of results. Zero uses DefaultListLimit.
	Limit int

	// Offset skips that many results.
	Offset int
}

// DefaultListLimit is the page size used when ListOpts.Limit is zero.
const DefaultListLimit = 50

// Archive is the persistence contract for terminal jobs. Results are
// ordered newest first by finish time.
type Archive interface {
	// ArchiveJob stores a terminal job. Archiving the same ID twice
	// replaces the earlier record.
	ArchiveJob(ctx context.Context, j *job.Job) error

	// GetArchived returns one archived job, or taskq.ErrArchiveNotFound.
	GetArchived(ctx context.Context, jobID id.JobID) (*job.Job, error)

	// ListArchived returns archived jobs matching opts.
	ListArchived(ctx context.Context, opts ListOpts) ([]*job.Job, error)

	// CountArchived counts archived jobs matching the filters of opts.
	// Limit and Offset are ignored.
	CountArchived(ctx context.Context, opts ListOpts) (int64, error)

	// Migrate runs all schema migrations.
	Migrate(ctx context.Context) error

	// Ping checks backend connectivity.
	Ping(ctx context.Context) error

	// Close closes the backend connection.
	Close() error
}

// EffectiveLimit returns the page size of opts, applying the default.
func (o ListOpts) EffectiveLimit() int {
	if o.Limit <= 0 {
		return DefaultListLimit
	}
	return o.Limit
}

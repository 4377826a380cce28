package store

import (
	"context"
	"fmt"
	"time"

	"github.com/ZEDDEV1/nozesia-sub005/ext"
	"github.com/ZEDDEV1/nozesia-sub005/job"
)

// Compile-time interface checks.
var (
	_ ext.Extension    = (*Recorder)(nil)
	_ ext.JobCompleted = (*Recorder)(nil)
	_ ext.JobFailed    = (*Recorder)(nil)
)

// Recorder is an extension that writes every terminal job to an Archive.
//
// Writes happen on the engine loop right after the job's terminal
// transition (and after its Done channel closes). The next job does not
// start until the write returns or its timeout expires. A failed write is
// logged by the engine and never changes the job's outcome.
type Recorder struct {
	archive Archive
	timeout time.Duration
}

// NewRecorder returns a Recorder writing to a. Each write is bounded by
// timeout; zero means no bound beyond the hook context.
func NewRecorder(a Archive, timeout time.Duration) *Recorder {
	return &Recorder{archive: a, timeout: timeout}
}

// Name implements ext.Extension.
func (r *Recorder) Name() string { return "archive-recorder" }

// OnJobCompleted implements ext.JobCompleted.
func (r *Recorder) OnJobCompleted(ctx context.Context, j *job.Job, _ time.Duration) error {
	return r.record(ctx, j)
}

// OnJobFailed implements ext.JobFailed.
func (r *Recorder) OnJobFailed(ctx context.Context, j *job.Job, _ error) error {
	return r.record(ctx, j)
}

func (r *Recorder) record(ctx context.Context, j *job.Job) error {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}
	if err := r.archive.ArchiveJob(ctx, j); err != nil {
		return fmt.Errorf("archive job %s: %w", j.ID, err)
	}
	return nil
}

// Package memory provides an in-memory Archive. Safe for concurrent
// access. Intended for unit testing and development.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	taskq "github.com/ZEDDEV1/nozesia-sub005"
	"github.com/ZEDDEV1/nozesia-sub005/id"
	"github.com/ZEDDEV1/nozesia-sub005/job"
	"github.com/ZEDDEV1/nozesia-sub005/store"
)

// Compile-time interface check.
var _ store.Archive = (*Store)(nil)

// Store is a fully in-memory implementation of store.Archive.
type Store struct {
	mu     sync.RWMutex
	jobs   map[string]*job.Job
	closed bool
}

// New returns a new empty Store.
func New() *Store {
	return &Store{jobs: make(map[string]*job.Job)}
}

// Migrate is a no-op for the memory store.
func (s *Store) Migrate(_ context.Context) error { return nil }

// Ping reports ErrStoreClosed once Close has been called.
func (s *Store) Ping(_ context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return taskq.ErrStoreClosed
	}
	return nil
}

// Close marks the store closed. Reads keep working; writes fail.
func (s *Store) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}

// ArchiveJob stores a snapshot of j, replacing any earlier record with
// the same ID.
func (s *Store) ArchiveJob(_ context.Context, j *job.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return taskq.ErrStoreClosed
	}
	s.jobs[j.ID.String()] = j.Snapshot()
	return nil
}

// GetArchived returns a copy of the archived job.
func (s *Store) GetArchived(_ context.Context, jobID id.JobID) (*job.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	j, ok := s.jobs[jobID.String()]
	if !ok {
		return nil, taskq.ErrArchiveNotFound
	}
	return j.Snapshot(), nil
}

// ListArchived returns archived jobs matching opts, newest first.
func (s *Store) ListArchived(_ context.Context, opts store.ListOpts) ([]*job.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*job.Job
	for _, j := range s.jobs {
		if !matches(j, opts) {
			continue
		}
		result = append(result, j.Snapshot())
	}

	sort.Slice(result, func(i, k int) bool {
		ti, tk := finishedAt(result[i]), finishedAt(result[k])
		if !ti.Equal(tk) {
			return ti.After(tk)
		}
		return result[i].ID.String() > result[k].ID.String()
	})

	if opts.Offset > 0 {
		if opts.Offset >= len(result) {
			return []*job.Job{}, nil
		}
		result = result[opts.Offset:]
	}
	if limit := opts.EffectiveLimit(); len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

// CountArchived counts archived jobs matching the filters of opts.
func (s *Store) CountArchived(_ context.Context, opts store.ListOpts) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int64
	for _, j := range s.jobs {
		if matches(j, opts) {
			n++
		}
	}
	return n, nil
}

func matches(j *job.Job, opts store.ListOpts) bool {
	if opts.Status != "" && j.State != opts.Status {
		return false
	}
	if opts.Type != "" && j.Type != opts.Type {
		return false
	}
	if opts.CompanyID != "" && j.CompanyID != opts.CompanyID {
		return false
	}
	return true
}

func finishedAt(j *job.Job) time.Time {
	if j.FinishedAt != nil {
		return *j.FinishedAt
	}
	return j.CreatedAt
}

package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	taskq "github.com/ZEDDEV1/nozesia-sub005"
	"github.com/ZEDDEV1/nozesia-sub005/id"
	"github.com/ZEDDEV1/nozesia-sub005/job"
	"github.com/ZEDDEV1/nozesia-sub005/store"
)

var terminalStates = []job.State{job.StateCompleted, job.StateFailed}

// ArchiveJob stores j as JSON and indexes it by finish time. Re-archiving
// moves the job between status indexes.
func (s *Store) ArchiveJob(ctx context.Context, j *job.Job) error {
	data, err := json.Marshal(j)
	if err != nil {
		return fmt.Errorf("taskq/redis: marshal job: %w", err)
	}

	jID := j.ID.String()
	finishedAt := time.Now().UTC()
	if j.FinishedAt != nil {
		finishedAt = *j.FinishedAt
	}
	member := goredis.Z{Score: score(finishedAt), Member: jID}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, archivedKey(jID), data, 0)
	pipe.ZAdd(ctx, archivedIndexKey, member)
	for _, st := range terminalStates {
		if st != j.State {
			pipe.ZRem(ctx, statusIndexKey(string(st)), jID)
		}
	}
	pipe.ZAdd(ctx, statusIndexKey(string(j.State)), member)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("taskq/redis: archive job: %w", err)
	}
	return nil
}

// GetArchived retrieves an archived job by ID.
func (s *Store) GetArchived(ctx context.Context, jobID id.JobID) (*job.Job, error) {
	data, err := s.client.Get(ctx, archivedKey(jobID.String())).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, taskq.ErrArchiveNotFound
		}
		return nil, fmt.Errorf("taskq/redis: get archived: %w", err)
	}
	return decode(data)
}

// ListArchived returns archived jobs matching opts, newest first. Status
// filters use a dedicated index; type and company filters are applied
// while scanning.
func (s *Store) ListArchived(ctx context.Context, opts store.ListOpts) ([]*job.Job, error) {
	index := archivedIndexKey
	if opts.Status != "" {
		index = statusIndexKey(string(opts.Status))
	}
	limit := opts.EffectiveLimit()
	offset := max(opts.Offset, 0)

	// Without residual filters the index can page directly.
	if opts.Type == "" && opts.CompanyID == "" {
		ids, err := s.client.ZRevRange(ctx, index, int64(offset), int64(offset+limit-1)).Result()
		if err != nil {
			return nil, fmt.Errorf("taskq/redis: list archived: %w", err)
		}
		return s.load(ctx, ids, func(*job.Job) bool { return true })
	}

	all, err := s.scan(ctx, index, opts)
	if err != nil {
		return nil, err
	}
	if offset >= len(all) {
		return nil, nil
	}
	all = all[offset:]
	if len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

// CountArchived counts archived jobs matching the filters of opts. A
// status-only count is the cardinality of its index; type and company
// filters need a scan.
func (s *Store) CountArchived(ctx context.Context, opts store.ListOpts) (int64, error) {
	index := archivedIndexKey
	if opts.Status != "" {
		index = statusIndexKey(string(opts.Status))
	}
	if opts.Type == "" && opts.CompanyID == "" {
		n, err := s.client.ZCard(ctx, index).Result()
		if err != nil {
			return 0, fmt.Errorf("taskq/redis: count archived: %w", err)
		}
		return n, nil
	}

	all, err := s.scan(ctx, index, opts)
	if err != nil {
		return 0, err
	}
	return int64(len(all)), nil
}

// scan loads every job of index, newest first, and applies the type and
// company filters of opts.
func (s *Store) scan(ctx context.Context, index string, opts store.ListOpts) ([]*job.Job, error) {
	ids, err := s.client.ZRevRange(ctx, index, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("taskq/redis: scan archived: %w", err)
	}
	return s.load(ctx, ids, func(j *job.Job) bool {
		return (opts.Type == "" || j.Type == opts.Type) &&
			(opts.CompanyID == "" || j.CompanyID == opts.CompanyID)
	})
}

// load fetches ids in order and keeps the jobs accepted by keep. IDs whose
// record has vanished are skipped.
func (s *Store) load(ctx context.Context, ids []string, keep func(*job.Job) bool) ([]*job.Job, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	keys := make([]string, len(ids))
	for i, jID := range ids {
		keys[i] = archivedKey(jID)
	}
	vals, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("taskq/redis: load archived: %w", err)
	}

	jobs := make([]*job.Job, 0, len(vals))
	for i, v := range vals {
		str, ok := v.(string)
		if !ok {
			s.logger.Warn("archived job index points at missing record", "job_id", ids[i])
			continue
		}
		j, decErr := decode([]byte(str))
		if decErr != nil {
			return nil, decErr
		}
		if keep(j) {
			jobs = append(jobs, j)
		}
	}
	return jobs, nil
}

func decode(data []byte) (*job.Job, error) {
	var j job.Job
	if err := json.Unmarshal(data, &j); err != nil {
		return nil, fmt.Errorf("taskq/redis: unmarshal job: %w", err)
	}
	return &j, nil
}

// score maps a finish time to a Sorted Set score. Millisecond resolution
// fits a float64 exactly; ties fall back to member order, which for
// UUIDv7 IDs is creation order.
func score(t time.Time) float64 {
	return float64(t.UnixMilli())
}

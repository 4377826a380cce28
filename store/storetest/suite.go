// Package storetest holds a conformance suite that every store.Archive
// backend runs from its own tests.
package storetest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	taskq "github.com/ZEDDEV1/nozesia-sub005"
	"github.com/ZEDDEV1/nozesia-sub005/id"
	"github.com/ZEDDEV1/nozesia-sub005/job"
	"github.com/ZEDDEV1/nozesia-sub005/store"
)

// Factory returns a fresh, migrated, empty archive for one subtest.
type Factory func(t *testing.T) store.Archive

// base anchors finish times so ordering does not depend on wall clock
// resolution.
var base = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

// NewTerminalJob builds a finished job of type typ whose FinishedAt is
// base plus offset.
func NewTerminalJob(typ job.Type, state job.State, company string, offset time.Duration) *job.Job {
	j := job.New(typ, []byte(`{"to":"5511999999999"}`), job.Options{MaxAttempts: 3, CompanyID: company})
	j.Attempts = 1
	started := base.Add(offset - time.Second)
	j.StartedAt = &started
	errMsg := ""
	if state == job.StateFailed {
		j.Attempts = 3
		errMsg = "whatsapp session offline"
	}
	j.Finish(state, errMsg, base.Add(offset))
	return j
}

// Run executes the full suite against archives built by newArchive.
func Run(t *testing.T, newArchive Factory) {
	t.Helper()

	t.Run("Lifecycle", func(t *testing.T) {
		a := newArchive(t)
		ctx := context.Background()
		require.NoError(t, a.Migrate(ctx), "second Migrate must be idempotent")
		require.NoError(t, a.Ping(ctx))
	})

	t.Run("ArchiveAndGet", func(t *testing.T) {
		a := newArchive(t)
		ctx := context.Background()

		j := NewTerminalJob(job.TypeSendAIResponse, job.StateFailed, "company_1", 0)
		require.NoError(t, a.ArchiveJob(ctx, j))

		got, err := a.GetArchived(ctx, j.ID)
		require.NoError(t, err)
		assert.Equal(t, j.ID, got.ID)
		assert.Equal(t, job.TypeSendAIResponse, got.Type)
		assert.Equal(t, job.StateFailed, got.State)
		assert.Equal(t, 3, got.Attempts)
		assert.Equal(t, 3, got.MaxAttempts)
		assert.Equal(t, "whatsapp session offline", got.LastError)
		assert.Equal(t, "company_1", got.CompanyID)
		assert.JSONEq(t, string(j.Payload), string(got.Payload))
		require.NotNil(t, got.FinishedAt)
		assert.True(t, j.FinishedAt.Equal(*got.FinishedAt), "finished_at = %v, want %v", got.FinishedAt, j.FinishedAt)
		require.NotNil(t, got.StartedAt)
	})

	t.Run("GetMissing", func(t *testing.T) {
		a := newArchive(t)
		_, err := a.GetArchived(context.Background(), id.NewJobID())
		assert.ErrorIs(t, err, taskq.ErrArchiveNotFound)
	})

	t.Run("ArchiveReplaces", func(t *testing.T) {
		a := newArchive(t)
		ctx := context.Background()

		j := NewTerminalJob(job.TypeSyncWhatsApp, job.StateCompleted, "", 0)
		require.NoError(t, a.ArchiveJob(ctx, j))
		j.Attempts = 2
		require.NoError(t, a.ArchiveJob(ctx, j))

		n, err := a.CountArchived(ctx, store.ListOpts{})
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)

		got, err := a.GetArchived(ctx, j.ID)
		require.NoError(t, err)
		assert.Equal(t, 2, got.Attempts)
	})

	t.Run("ListNewestFirst", func(t *testing.T) {
		a := newArchive(t)
		ctx := context.Background()

		oldest := NewTerminalJob(job.TypeProcessMessage, job.StateCompleted, "", 1*time.Second)
		middle := NewTerminalJob(job.TypeProcessMessage, job.StateFailed, "", 2*time.Second)
		newest := NewTerminalJob(job.TypeProcessMessage, job.StateCompleted, "", 3*time.Second)
		for _, j := range []*job.Job{middle, newest, oldest} {
			require.NoError(t, a.ArchiveJob(ctx, j))
		}

		list, err := a.ListArchived(ctx, store.ListOpts{})
		require.NoError(t, err)
		require.Len(t, list, 3)
		assert.Equal(t, newest.ID, list[0].ID)
		assert.Equal(t, middle.ID, list[1].ID)
		assert.Equal(t, oldest.ID, list[2].ID)
	})

	t.Run("ListFilters", func(t *testing.T) {
		a := newArchive(t)
		ctx := context.Background()

		jobs := []*job.Job{
			NewTerminalJob(job.TypeSendNotification, job.StateCompleted, "company_a", 1*time.Second),
			NewTerminalJob(job.TypeSendNotification, job.StateFailed, "company_a", 2*time.Second),
			NewTerminalJob(job.TypeSendAIResponse, job.StateFailed, "company_b", 3*time.Second),
			NewTerminalJob(job.TypeSyncWhatsApp, job.StateCompleted, "company_b", 4*time.Second),
		}
		for _, j := range jobs {
			require.NoError(t, a.ArchiveJob(ctx, j))
		}

		// total is the filtered count, which ignores Limit and Offset.
		tests := []struct {
			name  string
			opts  store.ListOpts
			want  []*job.Job
			total int64
		}{
			{"status", store.ListOpts{Status: job.StateFailed}, []*job.Job{jobs[2], jobs[1]}, 2},
			{"type", store.ListOpts{Type: job.TypeSendNotification}, []*job.Job{jobs[1], jobs[0]}, 2},
			{"company", store.ListOpts{CompanyID: "company_b"}, []*job.Job{jobs[3], jobs[2]}, 2},
			{"combined", store.ListOpts{Status: job.StateCompleted, CompanyID: "company_a"}, []*job.Job{jobs[0]}, 1},
			{"type and company", store.ListOpts{Type: job.TypeSendAIResponse, CompanyID: "company_a"}, nil, 0},
			{"limit", store.ListOpts{Limit: 2}, []*job.Job{jobs[3], jobs[2]}, 4},
			{"offset", store.ListOpts{Limit: 2, Offset: 3}, []*job.Job{jobs[0]}, 4},
			{"offset past end", store.ListOpts{Offset: 10}, nil, 4},
			{"filtered page", store.ListOpts{Type: job.TypeSendNotification, Limit: 1, Offset: 1}, []*job.Job{jobs[0]}, 2},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				list, err := a.ListArchived(ctx, tt.opts)
				require.NoError(t, err)
				require.Len(t, list, len(tt.want))
				for i := range tt.want {
					assert.Equal(t, tt.want[i].ID, list[i].ID, "position %d", i)
				}

				n, err := a.CountArchived(ctx, tt.opts)
				require.NoError(t, err)
				assert.Equal(t, tt.total, n)
			})
		}
	})

	t.Run("Count", func(t *testing.T) {
		a := newArchive(t)
		ctx := context.Background()

		for i, state := range []job.State{job.StateCompleted, job.StateCompleted, job.StateFailed} {
			j := NewTerminalJob(job.TypeSendNotification, state, "", time.Duration(i)*time.Second)
			require.NoError(t, a.ArchiveJob(ctx, j))
		}

		all, err := a.CountArchived(ctx, store.ListOpts{})
		require.NoError(t, err)
		assert.Equal(t, int64(3), all)

		completed, err := a.CountArchived(ctx, store.ListOpts{Status: job.StateCompleted})
		require.NoError(t, err)
		assert.Equal(t, int64(2), completed)

		failed, err := a.CountArchived(ctx, store.ListOpts{Status: job.StateFailed})
		require.NoError(t, err)
		assert.Equal(t, int64(1), failed)
	})
}

package cron_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/goleak"

	taskq "github.com/ZEDDEV1/nozesia-sub005"
	"github.com/ZEDDEV1/nozesia-sub005/cron"
	"github.com/ZEDDEV1/nozesia-sub005/id"
	"github.com/ZEDDEV1/nozesia-sub005/job"
)

// stubEmitter records EmitCronFired calls.
type stubEmitter struct {
	mu    sync.Mutex
	calls []cronFiredCall
}

type cronFiredCall struct {
	EntryName string
	JobID     id.JobID
}

func (e *stubEmitter) EmitCronFired(_ context.Context, entryName string, jobID id.JobID) {
	e.mu.Lock()
	e.calls = append(e.calls, cronFiredCall{EntryName: entryName, JobID: jobID})
	e.mu.Unlock()
}

func (e *stubEmitter) getCalls() []cronFiredCall {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]cronFiredCall, len(e.calls))
	copy(out, e.calls)
	return out
}

// enqueueSpy tracks enqueue calls with thread safety.
type enqueueSpy struct {
	mu    sync.Mutex
	calls []enqueueCall
	err   error
}

type enqueueCall struct {
	Type    job.Type
	Payload []byte
	Options job.Options
}

func (e *enqueueSpy) Fn() cron.EnqueueFunc {
	return func(_ context.Context, t job.Type, payload []byte, opts ...job.Option) (id.JobID, error) {
		e.mu.Lock()
		defer e.mu.Unlock()
		if e.err != nil {
			return id.Nil, e.err
		}
		e.calls = append(e.calls, enqueueCall{Type: t, Payload: payload, Options: job.Apply(job.Options{}, opts...)})
		return id.NewJobID(), nil
	}
}

func (e *enqueueSpy) Calls() []enqueueCall {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]enqueueCall, len(e.calls))
	copy(out, e.calls)
	return out
}

// fakeClock is a manually advanced clock.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestScheduler(t *testing.T, opts ...cron.SchedulerOption) (*cron.Scheduler, *fakeClock, *stubEmitter, *enqueueSpy) {
	t.Helper()

	clock := &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	emitter := &stubEmitter{}
	spy := &enqueueSpy{}

	opts = append([]cron.SchedulerOption{cron.WithClock(clock.Now)}, opts...)
	sched := cron.NewScheduler(spy.Fn(), emitter, nil, opts...)
	return sched, clock, emitter, spy
}

func addEntry(t *testing.T, s *cron.Scheduler, name, schedule string, jt job.Type) *cron.Entry {
	t.Helper()
	e, err := s.Add(&cron.Entry{
		Name:     name,
		Schedule: schedule,
		JobType:  jt,
		Payload:  []byte(`{}`),
		Enabled:  true,
	})
	if err != nil {
		t.Fatalf("Add(%s): %v", name, err)
	}
	return e
}

// ──────────────────────────────────────────────────
// Tests
// ──────────────────────────────────────────────────

func TestScheduler_AddComputesNextRun(t *testing.T) {
	sched, clock, _, _ := newTestScheduler(t)

	e := addEntry(t, sched, "sync", "@every 5m", job.TypeSyncWhatsApp)
	if e.ID.IsNil() {
		t.Fatal("expected a generated cron ID")
	}
	if e.ID.Prefix() != id.PrefixCron {
		t.Errorf("ID prefix = %q, want %q", e.ID.Prefix(), id.PrefixCron)
	}
	want := clock.Now().Add(5 * time.Minute)
	if e.NextRunAt == nil || !e.NextRunAt.Equal(want) {
		t.Errorf("NextRunAt = %v, want %v", e.NextRunAt, want)
	}
}

func TestScheduler_AddRejectsInvalid(t *testing.T) {
	sched, _, _, _ := newTestScheduler(t)
	addEntry(t, sched, "dup", "@hourly", job.TypeSendNotification)

	tests := []struct {
		name  string
		entry cron.Entry
		want  error
	}{
		{"bad schedule", cron.Entry{Name: "x", Schedule: "not-a-cron", JobType: job.TypeSendNotification}, taskq.ErrInvalidSchedule},
		{"unknown type", cron.Entry{Name: "y", Schedule: "@hourly", JobType: "send_fax"}, taskq.ErrUnknownJobType},
		{"duplicate", cron.Entry{Name: "dup", Schedule: "@hourly", JobType: job.TypeSendNotification}, taskq.ErrDuplicateCron},
		{"payload not json", cron.Entry{Name: "z", Schedule: "@hourly", JobType: job.TypeSyncWhatsApp, Payload: []byte("all")}, taskq.ErrInvalidPayload},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := sched.Add(&tt.entry)
			if !errors.Is(err, tt.want) {
				t.Fatalf("Add error = %v, want %v", err, tt.want)
			}
		})
	}

	if _, err := sched.Add(&cron.Entry{Schedule: "@hourly", JobType: job.TypeSendNotification}); err == nil {
		t.Error("expected error for missing name")
	}
}

func TestScheduler_RunDueFiresOnlyDueEntries(t *testing.T) {
	sched, clock, emitter, spy := newTestScheduler(t)

	addEntry(t, sched, "fast", "@every 1m", job.TypeProcessMessage)
	addEntry(t, sched, "slow", "@every 1h", job.TypeSyncWhatsApp)

	if n := sched.RunDue(context.Background()); n != 0 {
		t.Fatalf("RunDue before due = %d, want 0", n)
	}

	clock.Advance(time.Minute)
	if n := sched.RunDue(context.Background()); n != 1 {
		t.Fatalf("RunDue = %d, want 1", n)
	}

	calls := spy.Calls()
	if len(calls) != 1 || calls[0].Type != job.TypeProcessMessage {
		t.Fatalf("enqueue calls = %+v, want one process_message", calls)
	}
	if string(calls[0].Payload) != `{}` {
		t.Errorf("payload = %s, want {}", calls[0].Payload)
	}

	fired := emitter.getCalls()
	if len(fired) != 1 || fired[0].EntryName != "fast" || fired[0].JobID.IsNil() {
		t.Errorf("emitter calls = %+v, want one for fast", fired)
	}

	// Same instant again: nothing new is due.
	if n := sched.RunDue(context.Background()); n != 0 {
		t.Errorf("second RunDue = %d, want 0", n)
	}
}

func TestScheduler_AdvancesLastAndNextRun(t *testing.T) {
	sched, clock, _, _ := newTestScheduler(t)
	addEntry(t, sched, "tick", "@every 30s", job.TypeSendNotification)

	clock.Advance(30 * time.Second)
	fireAt := clock.Now()
	sched.RunDue(context.Background())

	e, err := sched.Get("tick")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if e.LastRunAt == nil || !e.LastRunAt.Equal(fireAt) {
		t.Errorf("LastRunAt = %v, want %v", e.LastRunAt, fireAt)
	}
	if want := fireAt.Add(30 * time.Second); e.NextRunAt == nil || !e.NextRunAt.Equal(want) {
		t.Errorf("NextRunAt = %v, want %v", e.NextRunAt, want)
	}
}

func TestScheduler_CompanyScopedEntry(t *testing.T) {
	sched, clock, _, spy := newTestScheduler(t)

	_, err := cron.Register(sched, cron.Definition[map[string]string]{
		Name:      "company-sync",
		Schedule:  "@every 1m",
		JobType:   job.TypeSyncWhatsApp,
		Payload:   map[string]string{"session": "main"},
		CompanyID: "company_123",
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	clock.Advance(time.Minute)
	sched.RunDue(context.Background())

	calls := spy.Calls()
	if len(calls) != 1 {
		t.Fatalf("enqueue calls = %d, want 1", len(calls))
	}
	if calls[0].Options.CompanyID != "company_123" {
		t.Errorf("company = %q, want company_123", calls[0].Options.CompanyID)
	}
	if string(calls[0].Payload) != `{"session":"main"}` {
		t.Errorf("payload = %s", calls[0].Payload)
	}
}

func TestScheduler_SkipsDisabled(t *testing.T) {
	sched, clock, _, spy := newTestScheduler(t)
	addEntry(t, sched, "disabled-cron", "@every 1m", job.TypeSendNotification)

	if err := sched.SetEnabled("disabled-cron", false); err != nil {
		t.Fatalf("SetEnabled: %v", err)
	}

	clock.Advance(5 * time.Minute)
	if n := sched.RunDue(context.Background()); n != 0 {
		t.Errorf("RunDue with disabled entry = %d, want 0", n)
	}

	// Re-enabling schedules from now rather than replaying missed ticks.
	if err := sched.SetEnabled("disabled-cron", true); err != nil {
		t.Fatalf("SetEnabled: %v", err)
	}
	if n := sched.RunDue(context.Background()); n != 0 {
		t.Errorf("RunDue right after enable = %d, want 0", n)
	}
	clock.Advance(time.Minute)
	if n := sched.RunDue(context.Background()); n != 1 {
		t.Errorf("RunDue after one interval = %d, want 1", n)
	}
	if len(spy.Calls()) != 1 {
		t.Errorf("enqueue calls = %d, want 1", len(spy.Calls()))
	}

	if err := sched.SetEnabled("missing", true); !errors.Is(err, taskq.ErrCronNotFound) {
		t.Errorf("SetEnabled(missing) = %v, want ErrCronNotFound", err)
	}
}

func TestScheduler_EnqueueErrorStillAdvances(t *testing.T) {
	sched, clock, emitter, spy := newTestScheduler(t)
	spy.err = taskq.ErrClosed
	addEntry(t, sched, "broken", "@every 1m", job.TypeSendNotification)

	clock.Advance(time.Minute)
	if n := sched.RunDue(context.Background()); n != 0 {
		t.Errorf("RunDue = %d, want 0", n)
	}
	if len(emitter.getCalls()) != 0 {
		t.Error("no CronFired hook expected when enqueue fails")
	}

	e, err := sched.Get("broken")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if e.LastRunAt != nil {
		t.Errorf("LastRunAt = %v, want nil", e.LastRunAt)
	}
	if want := clock.Now().Add(time.Minute); !e.NextRunAt.Equal(want) {
		t.Errorf("NextRunAt = %v, want %v", e.NextRunAt, want)
	}
}

func TestScheduler_EntriesAndRemove(t *testing.T) {
	sched, _, _, _ := newTestScheduler(t)
	addEntry(t, sched, "b", "@hourly", job.TypeSendNotification)
	addEntry(t, sched, "a", "@daily", job.TypeSyncWhatsApp)

	entries := sched.Entries()
	if len(entries) != 2 || entries[0].Name != "a" || entries[1].Name != "b" {
		t.Fatalf("Entries = %+v, want a, b", entries)
	}

	// Copies must not leak into the scheduler.
	entries[0].Enabled = false
	if e, _ := sched.Get("a"); !e.Enabled {
		t.Error("mutating a returned entry changed scheduler state")
	}

	if err := sched.Remove("a"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if _, err := sched.Get("a"); !errors.Is(err, taskq.ErrCronNotFound) {
		t.Errorf("Get after Remove = %v, want ErrCronNotFound", err)
	}
	if err := sched.Remove("a"); !errors.Is(err, taskq.ErrCronNotFound) {
		t.Errorf("second Remove = %v, want ErrCronNotFound", err)
	}
}

func TestScheduler_StartStopFiresOnTick(t *testing.T) {
	defer goleak.VerifyNone(t)

	spy := &enqueueSpy{}
	emitter := &stubEmitter{}
	sched := cron.NewScheduler(spy.Fn(), emitter, nil, cron.WithTickInterval(20*time.Millisecond))

	past := time.Now().UTC().Add(-time.Second)
	if _, err := sched.Add(&cron.Entry{
		Name:      "every-second",
		Schedule:  "@every 1s",
		JobType:   job.TypeSendNotification,
		NextRunAt: &past,
		Enabled:   true,
	}); err != nil {
		t.Fatalf("Add: %v", err)
	}

	if err := sched.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	deadline := time.After(3 * time.Second)
	for len(spy.Calls()) == 0 {
		select {
		case <-deadline:
			t.Fatal("timed out waiting for cron to fire")
		default:
			time.Sleep(10 * time.Millisecond)
		}
	}

	if err := sched.Stop(context.Background()); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	// Stop is idempotent.
	if err := sched.Stop(context.Background()); err != nil {
		t.Fatalf("second Stop: %v", err)
	}

	if calls := emitter.getCalls(); len(calls) == 0 || calls[0].EntryName != "every-second" {
		t.Errorf("emitter calls = %+v", calls)
	}
}

type addJobFunc func(ctx context.Context, t job.Type, payload []byte, opts ...job.Option) (*job.Job, error)

func (f addJobFunc) AddJob(ctx context.Context, t job.Type, payload []byte, opts ...job.Option) (*job.Job, error) {
	return f(ctx, t, payload, opts...)
}

func TestEnqueueVia(t *testing.T) {
	var got *job.Job
	fn := cron.EnqueueVia(addJobFunc(func(_ context.Context, t job.Type, payload []byte, opts ...job.Option) (*job.Job, error) {
		got = job.New(t, payload, job.Apply(job.Options{}, opts...))
		return got, nil
	}))

	jobID, err := fn(context.Background(), job.TypeSendAIResponse, []byte(`{}`), job.WithCompany("c1"))
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if jobID != got.ID {
		t.Errorf("job ID = %v, want %v", jobID, got.ID)
	}
	if got.CompanyID != "c1" {
		t.Errorf("company = %q, want c1", got.CompanyID)
	}

	fail := cron.EnqueueVia(addJobFunc(func(context.Context, job.Type, []byte, ...job.Option) (*job.Job, error) {
		return nil, taskq.ErrClosed
	}))
	if jobID, err := fail(context.Background(), job.TypeSendAIResponse, nil); !errors.Is(err, taskq.ErrClosed) || !jobID.IsNil() {
		t.Errorf("enqueue = (%v, %v), want (nil, ErrClosed)", jobID, err)
	}
}

func TestParseSchedule(t *testing.T) {
	now := time.Now().UTC()
	for _, expr := range []string{"@every 30s", "*/5 * * * *", "@hourly"} {
		sched, err := cron.ParseSchedule(expr)
		if err != nil {
			t.Fatalf("ParseSchedule(%s): %v", expr, err)
		}
		if next := sched.Next(now); !next.After(now) {
			t.Errorf("ParseSchedule(%s).Next(%v) = %v, expected future time", expr, now, next)
		}
	}

	if _, err := cron.ParseSchedule("not-a-cron"); !errors.Is(err, taskq.ErrInvalidSchedule) {
		t.Errorf("expected ErrInvalidSchedule, got %v", err)
	}
}

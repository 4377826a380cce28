package cron

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	cronlib "github.com/robfig/cron/v3"
	"github.com/tidwall/gjson"

	taskq "github.com/ZEDDEV1/nozesia-sub005"
	"github.com/ZEDDEV1/nozesia-sub005/id"
	"github.com/ZEDDEV1/nozesia-sub005/job"
)

// EnqueueFunc is the callback the scheduler uses to enqueue jobs.
// This breaks the import cycle: the engine provides the implementation.
type EnqueueFunc func(ctx context.Context, t job.Type, payload []byte, opts ...job.Option) (id.JobID, error)

// Enqueuer is satisfied by *engine.Engine.
type Enqueuer interface {
	AddJob(ctx context.Context, t job.Type, payload []byte, opts ...job.Option) (*job.Job, error)
}

// EnqueueVia adapts an Enqueuer to an EnqueueFunc.
func EnqueueVia(e Enqueuer) EnqueueFunc {
	return func(ctx context.Context, t job.Type, payload []byte, opts ...job.Option) (id.JobID, error) {
		j, err := e.AddJob(ctx, t, payload, opts...)
		if err != nil {
			return id.Nil, err
		}
		return j.ID, nil
	}
}

// Emitter emits cron lifecycle events.
// ext.Registry satisfies this interface via EmitCronFired.
type Emitter interface {
	EmitCronFired(ctx context.Context, entryName string, jobID id.JobID)
}

// SchedulerOption configures a Scheduler.
type SchedulerOption func(*Scheduler)

// WithTickInterval sets how often the scheduler checks for due entries.
func WithTickInterval(d time.Duration) SchedulerOption {
	return func(s *Scheduler) { s.tickInterval = d }
}

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) SchedulerOption {
	return func(s *Scheduler) { s.now = now }
}

// cronParser supports standard 5-field cron and descriptors like "@every 30s".
var cronParser = cronlib.NewParser(
	cronlib.Minute | cronlib.Hour | cronlib.Dom | cronlib.Month | cronlib.Dow | cronlib.Descriptor,
)

// ParseSchedule parses a cron expression and returns the schedule.
func ParseSchedule(expr string) (cronlib.Schedule, error) {
	sched, err := cronParser.Parse(expr)
	if err != nil {
		return nil, fmt.Errorf("%w %q: %w", taskq.ErrInvalidSchedule, expr, err)
	}
	return sched, nil
}

// Scheduler runs cron entries on a tick loop.
type Scheduler struct {
	enqueue EnqueueFunc
	emitter Emitter
	logger  *slog.Logger
	now     func() time.Time

	tickInterval time.Duration

	mu      sync.Mutex
	entries map[string]*Entry
	parsed  map[string]cronlib.Schedule

	stopCh   chan struct{}
	stopOnce sync.Once
	started  bool
	wg       sync.WaitGroup
}

// NewScheduler creates a Scheduler. emitter may be nil.
func NewScheduler(
	enqueue EnqueueFunc,
	emitter Emitter,
	logger *slog.Logger,
	opts ...SchedulerOption,
) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Scheduler{
		enqueue:      enqueue,
		emitter:      emitter,
		logger:       logger,
		now:          time.Now,
		tickInterval: 1 * time.Second,
		entries:      make(map[string]*Entry),
		parsed:       make(map[string]cronlib.Schedule),
		stopCh:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Add validates e and registers it under e.Name. A missing ID is
// generated and NextRunAt is computed from the schedule when unset. The
// returned entry is a copy.
func (s *Scheduler) Add(e *Entry) (*Entry, error) {
	if e.Name == "" {
		return nil, fmt.Errorf("cron: entry name is required")
	}
	if !e.JobType.Valid() {
		return nil, fmt.Errorf("cron %q: %w: %q", e.Name, taskq.ErrUnknownJobType, e.JobType)
	}
	if len(e.Payload) > 0 && !gjson.ValidBytes(e.Payload) {
		return nil, fmt.Errorf("cron %q: %w", e.Name, taskq.ErrInvalidPayload)
	}
	sched, err := ParseSchedule(e.Schedule)
	if err != nil {
		return nil, fmt.Errorf("cron %q: %w", e.Name, err)
	}

	entry := e.clone()
	if entry.ID.IsNil() {
		entry.ID = id.NewCronID()
	}
	if entry.NextRunAt == nil {
		next := sched.Next(s.now().UTC())
		entry.NextRunAt = &next
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[entry.Name]; ok {
		return nil, fmt.Errorf("%w: %q", taskq.ErrDuplicateCron, entry.Name)
	}
	s.entries[entry.Name] = entry
	s.parsed[entry.Schedule] = sched
	return entry.clone(), nil
}

// Get returns a copy of the named entry.
func (s *Scheduler) Get(name string) (*Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[name]
	if !ok {
		return nil, taskq.ErrCronNotFound
	}
	return e.clone(), nil
}

// Entries returns copies of all entries sorted by name.
func (s *Scheduler) Entries() []*Entry {
	s.mu.Lock()
	out := make([]*Entry, 0, len(s.entries))
	for _, e := range s.entries {
		out = append(out, e.clone())
	}
	s.mu.Unlock()

	sort.Slice(out, func(i, k int) bool { return out[i].Name < out[k].Name })
	return out
}

// SetEnabled enables or disables the named entry. Re-enabling schedules
// the next run from now so missed ticks are not replayed.
func (s *Scheduler) SetEnabled(name string, enabled bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[name]
	if !ok {
		return taskq.ErrCronNotFound
	}
	if enabled && !e.Enabled {
		next := s.parsed[e.Schedule].Next(s.now().UTC())
		e.NextRunAt = &next
	}
	e.Enabled = enabled
	return nil
}

// Remove deletes the named entry.
func (s *Scheduler) Remove(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[name]; !ok {
		return taskq.ErrCronNotFound
	}
	delete(s.entries, name)
	return nil
}

// Start launches the tick goroutine.
func (s *Scheduler) Start(_ context.Context) error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return nil
	}
	s.started = true
	s.mu.Unlock()

	s.wg.Add(1)
	go s.tickLoop()
	s.logger.Info("cron scheduler started",
		slog.Duration("tick_interval", s.tickInterval),
		slog.Int("entries", len(s.Entries())),
	)
	return nil
}

// Stop signals the scheduler to stop and waits for the tick goroutine to
// finish, or for ctx to expire.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.stopOnce.Do(func() { close(s.stopCh) })

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}
	s.logger.Info("cron scheduler stopped")
	return nil
}

// tickLoop fires on each tick interval and processes due cron entries.
func (s *Scheduler) tickLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopCh:
			return
		case <-ticker.C:
			s.RunDue(context.Background())
		}
	}
}

// RunDue fires every enabled entry whose NextRunAt has passed and returns
// how many jobs were enqueued.
func (s *Scheduler) RunDue(ctx context.Context) int {
	now := s.now().UTC()

	s.mu.Lock()
	var due []*Entry
	for _, e := range s.entries {
		if !e.Enabled || e.NextRunAt == nil || e.NextRunAt.After(now) {
			continue
		}
		due = append(due, e.clone())
	}
	s.mu.Unlock()

	sort.Slice(due, func(i, k int) bool { return due[i].NextRunAt.Before(*due[k].NextRunAt) })

	fired := 0
	for _, entry := range due {
		if s.fireEntry(ctx, entry, now) {
			fired++
		}
	}
	return fired
}

func (s *Scheduler) fireEntry(ctx context.Context, entry *Entry, now time.Time) bool {
	var enqOpts []job.Option
	if entry.CompanyID != "" {
		enqOpts = append(enqOpts, job.WithCompany(entry.CompanyID))
	}
	jobID, enqErr := s.enqueue(ctx, entry.JobType, entry.Payload, enqOpts...)

	// The next run advances even on failure so a broken entry does not
	// fire on every tick.
	s.mu.Lock()
	if live, ok := s.entries[entry.Name]; ok && live.ID == entry.ID {
		next := s.parsed[live.Schedule].Next(now)
		live.NextRunAt = &next
		if enqErr == nil {
			at := now
			live.LastRunAt = &at
		}
	}
	s.mu.Unlock()

	if enqErr != nil {
		s.logger.Error("cron enqueue error",
			slog.String("cron_name", entry.Name),
			slog.String("job_type", string(entry.JobType)),
			slog.String("error", enqErr.Error()),
		)
		return false
	}

	if s.emitter != nil {
		s.emitter.EmitCronFired(ctx, entry.Name, jobID)
	}

	s.logger.Info("cron fired",
		slog.String("cron_name", entry.Name),
		slog.String("job_type", string(entry.JobType)),
		slog.String("job_id", jobID.String()),
	)
	return true
}

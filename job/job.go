package job

import (
	"encoding/json"
	"slices"
	"time"

	"github.com/ZEDDEV1/nozesia-sub005/id"
)

// Type is the kind of deferred work a job carries.
type Type string

// The closed set of job types known to the back office.
const (
	// TypeProcessMessage handles an inbound WhatsApp message.
	TypeProcessMessage Type = "process_message"
	// TypeSendAIResponse dispatches an AI agent reply to a contact.
	TypeSendAIResponse Type = "send_ai_response"
	// TypeSyncWhatsApp synchronises a company's WhatsApp session state.
	TypeSyncWhatsApp Type = "sync_whatsapp"
	// TypeSendNotification sends an operator notification.
	TypeSendNotification Type = "send_notification"
)

var types = []Type{TypeProcessMessage, TypeSendAIResponse, TypeSyncWhatsApp, TypeSendNotification}

// Types returns every known job type.
func Types() []Type { return slices.Clone(types) }

// Valid reports whether t is one of the known job types.
func (t Type) Valid() bool { return slices.Contains(types, t) }

// State represents the lifecycle state of a job.
type State string

const (
	// StatePending means the job is waiting in the live queue.
	StatePending State = "pending"
	// StateProcessing means the loop is currently executing the job.
	StateProcessing State = "processing"
	// StateCompleted means the job finished successfully.
	StateCompleted State = "completed"
	// StateFailed means the job failed and will not be retried.
	StateFailed State = "failed"
)

// Terminal reports whether s is a final state.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateFailed
}

// Job represents a unit of deferred work.
//
// The engine owns every field once the job has been enqueued. Callers
// holding the pointer returned by enqueue may read it after Done is
// closed; before that, use a snapshot from the engine's stats.
type Job struct {
	ID          id.JobID        `json:"id"`
	Type        Type            `json:"type"`
	Payload     json.RawMessage `json:"payload,omitempty"`
	State       State           `json:"status"`
	Attempts    int             `json:"attempts"`
	MaxAttempts int             `json:"max_attempts"`
	LastError   string          `json:"error,omitempty"`
	CompanyID   string          `json:"company_id,omitempty"`
	Timeout     time.Duration   `json:"timeout,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	StartedAt   *time.Time      `json:"started_at,omitempty"`
	ProcessedAt *time.Time      `json:"processed_at,omitempty"`
	FinishedAt  *time.Time      `json:"finished_at,omitempty"`

	done chan struct{}
}

// New builds a pending job with a fresh ID.
func New(t Type, payload []byte, opts Options) *Job {
	maxAttempts := opts.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &Job{
		ID:          id.NewJobID(),
		Type:        t,
		Payload:     payload,
		State:       StatePending,
		MaxAttempts: maxAttempts,
		CompanyID:   opts.CompanyID,
		Timeout:     opts.Timeout,
		CreatedAt:   time.Now().UTC(),
		done:        make(chan struct{}),
	}
}

// Done returns a channel that is closed once the job reaches a terminal
// state. It closes at the state transition, before the engine runs the
// completed or failed lifecycle hooks, so an archive written by a hook
// may not hold the job yet. Use the engine's Drain to wait for hooks as
// well. Jobs not built with New return a nil channel.
func (j *Job) Done() <-chan struct{} { return j.done }

// Exhausted reports whether the attempt budget is spent.
func (j *Job) Exhausted() bool { return j.Attempts >= j.MaxAttempts }

// Finish moves the job to a terminal state and closes Done. Calling it
// on a job that is already terminal is a no-op.
func (j *Job) Finish(state State, errMsg string, at time.Time) {
	if j.State.Terminal() || !state.Terminal() {
		return
	}
	j.State = state
	j.FinishedAt = &at
	if state == StateCompleted {
		j.ProcessedAt = &at
		j.LastError = ""
	} else {
		j.LastError = errMsg
	}
	if j.done != nil {
		close(j.done)
	}
}

// Snapshot returns a copy safe to hand out to other goroutines. The copy
// does not share the Done channel.
func (j *Job) Snapshot() *Job {
	cp := *j
	cp.done = nil
	cp.Payload = slices.Clone(j.Payload)
	return &cp
}

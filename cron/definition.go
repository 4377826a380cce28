package cron

import (
	"encoding/json"
	"fmt"

	"github.com/ZEDDEV1/nozesia-sub005/job"
)

// Definition is a typed cron definition. T is the payload type
// (must be JSON-serializable).
type Definition[T any] struct {
	// Name is the unique identifier for this cron entry.
	Name string

	// Schedule is a cron expression (e.g., "*/5 * * * *" or "@every 30s").
	Schedule string

	// JobType is the job type to enqueue on each tick.
	JobType job.Type

	// Payload is the payload enqueued with every job.
	Payload T

	// CompanyID scopes every enqueued job to one tenant (optional).
	CompanyID string
}

// Register marshals def's payload and adds it to s as an enabled entry.
func Register[T any](s *Scheduler, def Definition[T]) (*Entry, error) {
	payload, err := json.Marshal(def.Payload)
	if err != nil {
		return nil, fmt.Errorf("cron %q: marshal payload: %w", def.Name, err)
	}
	return s.Add(&Entry{
		Name:      def.Name,
		Schedule:  def.Schedule,
		JobType:   def.JobType,
		Payload:   payload,
		CompanyID: def.CompanyID,
		Enabled:   true,
	})
}

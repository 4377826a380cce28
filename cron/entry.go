package cron

import (
	"encoding/json"
	"time"

	"github.com/ZEDDEV1/nozesia-sub005/id"
	"github.com/ZEDDEV1/nozesia-sub005/job"
)

// Entry represents a scheduled cron job.
type Entry struct {
	ID        id.CronID       `json:"id"`
	Name      string          `json:"name"`
	Schedule  string          `json:"schedule"`
	JobType   job.Type        `json:"job_type"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	CompanyID string          `json:"company_id,omitempty"`
	LastRunAt *time.Time      `json:"last_run_at,omitempty"`
	NextRunAt *time.Time      `json:"next_run_at,omitempty"`
	Enabled   bool            `json:"enabled"`
}

func (e *Entry) clone() *Entry {
	cp := *e
	cp.Payload = append([]byte(nil), e.Payload...)
	if e.LastRunAt != nil {
		t := *e.LastRunAt
		cp.LastRunAt = &t
	}
	if e.NextRunAt != nil {
		t := *e.NextRunAt
		cp.NextRunAt = &t
	}
	return &cp
}

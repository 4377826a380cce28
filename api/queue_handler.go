package api

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/ZEDDEV1/nozesia-sub005/job"
)

// maxEnqueueBody bounds POST /api/admin/queue/jobs bodies.
const maxEnqueueBody = 1 << 20

// EnqueueRequest is the body of POST /api/admin/queue/jobs.
type EnqueueRequest struct {
	Type        job.Type        `json:"type"`
	Payload     json.RawMessage `json:"payload"`
	MaxAttempts int             `json:"max_attempts,omitempty"`
	CompanyID   string          `json:"company_id,omitempty"`
}

// EnqueueResponse is the body of a 202 from POST /api/admin/queue/jobs.
// It carries only fields fixed at enqueue time; the job may already be
// running when the response is written.
type EnqueueResponse struct {
	ID          string    `json:"id"`
	Type        job.Type  `json:"type"`
	Status      job.State `json:"status"`
	MaxAttempts int       `json:"max_attempts"`
	CompanyID   string    `json:"company_id,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// ClearResponse is the body of DELETE /api/admin/queue.
type ClearResponse struct {
	Cleared int `json:"cleared"`
}

func (a *API) healthz(w http.ResponseWriter, _ *http.Request) {
	status := "ok"
	code := http.StatusOK
	if a.eng.Closed() {
		status, code = "closed", http.StatusServiceUnavailable
	}
	writeJSON(w, code, map[string]string{"status": status})
}

func (a *API) stats(w http.ResponseWriter, r *http.Request) {
	limit, err := intQuery(r, "limit", 0)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, a.eng.Stats(limit))
}

func (a *API) clearHistory(w http.ResponseWriter, r *http.Request) {
	n := a.eng.ClearCompleted(r.Context())
	writeJSON(w, http.StatusOK, ClearResponse{Cleared: n})
}

func (a *API) enqueue(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxEnqueueBody))
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("read body: %v", err))
		return
	}
	var req EnqueueRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("decode body: %v", err))
		return
	}
	if !req.Type.Valid() {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown job type %q", req.Type))
		return
	}
	if req.MaxAttempts < 0 {
		writeError(w, http.StatusBadRequest, "max_attempts must not be negative")
		return
	}

	var opts []job.Option
	if req.MaxAttempts > 0 {
		opts = append(opts, job.WithMaxAttempts(req.MaxAttempts))
	}
	if req.CompanyID != "" {
		opts = append(opts, job.WithCompany(req.CompanyID))
	}

	var payload []byte
	if len(req.Payload) > 0 {
		payload = req.Payload
	}

	j, err := a.eng.AddJob(r.Context(), req.Type, payload, opts...)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, EnqueueResponse{
		ID:          j.ID.String(),
		Type:        j.Type,
		Status:      job.StatePending,
		MaxAttempts: j.MaxAttempts,
		CompanyID:   j.CompanyID,
		CreatedAt:   j.CreatedAt,
	})
}

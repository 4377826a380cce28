package api

import (
	"fmt"
	"net/http"

	taskq "github.com/ZEDDEV1/nozesia-sub005"
	"github.com/ZEDDEV1/nozesia-sub005/id"
	"github.com/ZEDDEV1/nozesia-sub005/job"
	"github.com/ZEDDEV1/nozesia-sub005/store"
)

// ArchiveResponse is the body of GET /api/admin/queue/archive.
type ArchiveResponse struct {
	Jobs  []*job.Job `json:"jobs"`
	Total int64      `json:"total"`
}

func (a *API) listArchive(w http.ResponseWriter, r *http.Request) {
	archive := a.eng.Archive()
	if archive == nil {
		a.fail(w, r, taskq.ErrNoArchive)
		return
	}

	q := r.URL.Query()
	opts := store.ListOpts{
		Status:    job.State(q.Get("status")),
		Type:      job.Type(q.Get("type")),
		CompanyID: q.Get("company_id"),
	}
	if opts.Status != "" && !opts.Status.Terminal() {
		writeError(w, http.StatusBadRequest, "status must be completed or failed")
		return
	}
	if opts.Type != "" && !opts.Type.Valid() {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown job type %q", opts.Type))
		return
	}

	var err error
	if opts.Limit, err = intQuery(r, "limit", store.DefaultListLimit); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if opts.Offset, err = intQuery(r, "offset", 0); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	jobs, err := archive.ListArchived(r.Context(), opts)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	total, err := archive.CountArchived(r.Context(), opts)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	if jobs == nil {
		jobs = []*job.Job{}
	}
	writeJSON(w, http.StatusOK, ArchiveResponse{Jobs: jobs, Total: total})
}

func (a *API) getArchived(w http.ResponseWriter, r *http.Request) {
	archive := a.eng.Archive()
	if archive == nil {
		a.fail(w, r, taskq.ErrNoArchive)
		return
	}

	jobID, err := id.ParseJobID(r.PathValue("jobId"))
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid job ID: %v", err))
		return
	}

	j, err := archive.GetArchived(r.Context(), jobID)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, j)
}

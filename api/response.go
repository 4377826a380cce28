package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	taskq "github.com/ZEDDEV1/nozesia-sub005"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}

// fail maps taskq sentinel errors to HTTP statuses.
func (a *API) fail(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, taskq.ErrUnknownJobType),
		errors.Is(err, taskq.ErrInvalidPayload),
		errors.Is(err, taskq.ErrInvalidSchedule):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, taskq.ErrArchiveNotFound),
		errors.Is(err, taskq.ErrCronNotFound),
		errors.Is(err, taskq.ErrNoArchive):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, taskq.ErrClosed),
		errors.Is(err, taskq.ErrStoreClosed):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	default:
		a.logger.Error("admin request failed",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

// intQuery parses a non-negative integer query parameter. A missing value
// returns def.
func intQuery(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid %s %q", name, raw)
	}
	return n, nil
}

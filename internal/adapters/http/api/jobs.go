package api

import (
	"net/http"
	"strings"

	"github.com/okian/fitmeasure/internal/domain/types"
)

// JobsHandler serves asynchronous jobs.
type JobsHandler struct {
	deps         Dependencies
	maxBodyBytes int64
}

// NewJobsHandler creates a new jobs handler.
func NewJobsHandler(deps Dependencies, maxBodyBytes int64) *JobsHandler {
	return &JobsHandler{deps: deps, maxBodyBytes: maxBodyBytes}
}

// HandleRun handles POST /run requests.
func (h *JobsHandler) HandleRun(w http.ResponseWriter, r *http.Request) {
	const op = "api.run"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}

	var req types.RunRequest
	if err := decodeBody(w, r, h.maxBodyBytes, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	in, err := jobInput(r, req.Input)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}

	j, err := h.deps.Submit(r.Context(), in)
	if err != nil {
		status, kind := classify(err)
		writeError(w, status, errorCode(status), WrapKind(op, kind, err))
		return
	}
	writeJSON(w, http.StatusAccepted, types.FromJob(j))
}

// HandleStatus handles GET /status/{id} requests.
func (h *JobsHandler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	const op = "api.status"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	id := strings.TrimPrefix(r.URL.Path, "/status/")
	if id == "" || strings.Contains(id, "/") {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
		return
	}

	j, err := h.deps.Status(r.Context(), id)
	if err != nil {
		status, kind := classify(err)
		writeError(w, status, errorCode(status), WrapKind(op, kind, err))
		return
	}
	writeJSON(w, http.StatusOK, types.FromJob(j))
}

// jobRejected answers rate-limited /run calls.
func jobRejected(w http.ResponseWriter, err error) {
	writeError(w, http.StatusTooManyRequests, "rate_limited", err)
}

func errorCode(status int) string {
	switch status {
	case http.StatusTooManyRequests:
		return "backpressure"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusGatewayTimeout:
		return "timeout"
	case http.StatusServiceUnavailable:
		return "unavailable"
	default:
		return "internal_error"
	}
}

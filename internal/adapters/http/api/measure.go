package api

import (
	"errors"
	"net/http"

	service "github.com/okian/fitmeasure/internal/app"
	"github.com/okian/fitmeasure/internal/domain/types"
	"github.com/okian/fitmeasure/pkg/logger"
)

// MeasureHandler serves synchronous measurement jobs.
type MeasureHandler struct {
	deps         Dependencies
	maxBodyBytes int64
}

// NewMeasureHandler creates a new measure handler.
func NewMeasureHandler(deps Dependencies, maxBodyBytes int64) *MeasureHandler {
	return &MeasureHandler{deps: deps, maxBodyBytes: maxBodyBytes}
}

// HandleMeasure handles POST /measure requests. Every reply, including
// errors, carries the job output shape.
func (h *MeasureHandler) HandleMeasure(w http.ResponseWriter, r *http.Request) {
	const op = "api.measure"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}

	var req types.MeasureRequest
	if err := decodeBody(w, r, h.maxBodyBytes, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, types.Failure(WrapKind(op, ErrBadRequest, err).Error()))
		return
	}
	in, err := jobInput(r, req)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, types.Failure(WrapKind(op, ErrBadRequest, err).Error()))
		return
	}

	outcome, err := h.deps.Measure(r.Context(), in)
	if err != nil {
		status, kind := classify(err)
		logger.Get().Warn(r.Context(), "measure rejected", logger.Error(err))
		writeJSON(w, status, types.Failure(WrapKind(op, kind, err).Error()))
		return
	}
	writeJSON(w, http.StatusOK, types.FromOutcome(outcome))
}

// measureRejected answers rate-limited /measure calls in the job output shape.
func measureRejected(w http.ResponseWriter, err error) {
	writeJSON(w, http.StatusTooManyRequests, types.Failure(err.Error()))
}

// classify maps service errors to an HTTP status and an API error kind.
func classify(err error) (int, error) {
	switch {
	case errors.Is(err, service.ErrBusy):
		return http.StatusTooManyRequests, ErrBackpressure
	case errors.Is(err, service.ErrTimeout):
		return http.StatusGatewayTimeout, ErrTimeout
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound, ErrNotFound
	case errors.Is(err, service.ErrNotStarted):
		return http.StatusServiceUnavailable, ErrUnavailable
	default:
		return http.StatusInternalServerError, ErrInternal
	}
}

package api

import (
	"bytes"
	"encoding/json"
	"net/http"

	"github.com/okian/fitmeasure/pkg/logger"
)

// StatsProvider reports worker, queue and job store counters.
type StatsProvider interface {
	GetStats() map[string]interface{}
}

// StatsHandler serves GET /stats.
type StatsHandler struct {
	statsProvider StatsProvider
}

// NewStatsHandler creates a StatsHandler backed by statsProvider.
func NewStatsHandler(statsProvider StatsProvider) *StatsHandler {
	return &StatsHandler{statsProvider: statsProvider}
}

// HandleStats writes the provider's snapshot as JSON. A snapshot that cannot
// be encoded is logged and answered with 500 rather than a truncated body.
func (h *StatsHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(h.statsProvider.GetStats()); err != nil {
		logger.Get().Warn(r.Context(), "stats encode failed", logger.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	if _, err := w.Write(buf.Bytes()); err != nil {
		logger.Get().Debug(r.Context(), "stats write failed", logger.Error(err))
	}
}

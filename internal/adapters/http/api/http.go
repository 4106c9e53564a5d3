// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/okian/fitmeasure/internal/domain/model"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	// Measure runs a job and waits for its outcome.
	Measure(ctx context.Context, in model.JobInput) (model.Outcome, error)
	// Submit queues a job and returns immediately.
	Submit(ctx context.Context, in model.JobInput) (model.Job, error)
	// Status reports a previously submitted job.
	Status(ctx context.Context, id string) (model.Job, error)
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler  *HealthHandler
	statsHandler   *StatsHandler
	measureHandler *MeasureHandler
	jobsHandler    *JobsHandler
	limiter        *RateLimiter
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, opts ...Option) *Server {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Server{
		healthHandler:  NewHealthHandler(),
		statsHandler:   NewStatsHandler(statsProvider),
		measureHandler: NewMeasureHandler(deps, cfg.maxBodyBytes),
		jobsHandler:    NewJobsHandler(deps, cfg.maxBodyBytes),
		limiter:        NewRateLimiter(cfg.rateLimit, cfg.rateBurst),
	}
}

// Register attaches all HTTP routes to mux. ctx bounds the rate limiter's
// background cleanup.
func (s *Server) Register(ctx context.Context, mux *http.ServeMux) {
	s.limiter.Start(ctx)

	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/measure", MetricsMiddleware(
		RequestIDMiddleware(s.limiter.Middleware(s.measureHandler.HandleMeasure, "measure", measureRejected)), "measure"))
	mux.HandleFunc("/run", MetricsMiddleware(
		RequestIDMiddleware(s.limiter.Middleware(s.jobsHandler.HandleRun, "run", jobRejected)), "run"))
	mux.HandleFunc("/status/", MetricsMiddleware(RequestIDMiddleware(s.jobsHandler.HandleStatus), "status"))
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

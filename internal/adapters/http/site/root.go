// Package site serves the service landing page.
package site

import (
	"context"
	"encoding/json"
	"net/http"
)

// Link describes one public endpoint on the landing page.
type Link struct {
	Method string `json:"method"`
	Path   string `json:"path"`
	About  string `json:"about"`
}

// Links lists the public endpoints.
var Links = []Link{
	{http.MethodPost, "/measure", "measure a photo and wait for the result"},
	{http.MethodPost, "/run", "queue a photo for measurement"},
	{http.MethodGet, "/status/{id}", "state and output of a queued job"},
	{http.MethodGet, "/stats", "service statistics"},
	{http.MethodGet, "/healthz", "Prometheus metrics"},
	{http.MethodGet, "/api-docs", "API reference"},
}

// Register attaches the landing page to mux. It also answers every path no
// other route claims with a JSON 404.
func Register(_ context.Context, mux *http.ServeMux) {
	if mux == nil {
		panic("mux is nil")
	}
	mux.HandleFunc("/", NewRootHandler().HandleRoot)
}

// RootHandler handles root path requests.
type RootHandler struct{}

// NewRootHandler creates a new root handler.
func NewRootHandler() *RootHandler {
	return &RootHandler{}
}

// HandleRoot handles GET / requests.
func (h *RootHandler) HandleRoot(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	if r.URL.Path != "/" {
		w.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(w).Encode(map[string]string{"code": "not_found", "message": r.URL.Path + " not found"})
		return
	}
	_ = json.NewEncoder(w).Encode(map[string]any{
		"service":   "fitmeasure",
		"endpoints": Links,
	})
}

package handler

import (
	"net/http"

	"github.com/relaylabs/chatrelay/internal/store"
)

// HealthHandler handles health check endpoints.
type HealthHandler struct {
	store store.Store
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(st store.Store) *HealthHandler {
	return &HealthHandler{
		store: st,
	}
}

// Health handles GET /health
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
	})
}

// Ready handles GET /ready
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Ping(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "not ready",
			"reason": "storage not reachable",
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ready",
	})
}

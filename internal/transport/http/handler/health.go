package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// HealthHandler handles health-check endpoints.
type HealthHandler struct{}

func NewHealthHandler() *HealthHandler { return &HealthHandler{} }

func (h *HealthHandler) Ping(w http.ResponseWriter, r *http.Request) {
	if chi.URLParam(r, "action") == "ping" {
		writeSuccess(w, "pong")
		return
	}
	writeError(w, http.StatusBadRequest, "Unknown action")
}

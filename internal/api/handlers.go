// Package api exposes the HTTP surface: push, pull, status, category
// suggestions and health, with bearer-token auth and RFC 7807 errors.
package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/fernledger/fern/internal/store"
	"github.com/fernledger/fern/internal/suggest"
	"github.com/fernledger/fern/internal/syncer"
)

// maxBodyBytes caps request bodies. Push batches are bounded client-side
// but a cap keeps a misbehaving client from holding the decoder open.
const maxBodyBytes = 8 << 20

// Handler implements the API handlers.
type Handler struct {
	syncer    *syncer.Service
	store     *store.Store
	suggester *suggest.Service
	logger    *slog.Logger
	version   string
}

// NewHandler creates a Handler. suggester may be nil when the suggestion
// feature is not configured.
func NewHandler(s *syncer.Service, st *store.Store, sg *suggest.Service, logger *slog.Logger, version string) *Handler {
	return &Handler{
		syncer:    s,
		store:     st,
		suggester: sg,
		logger:    logger,
		version:   version,
	}
}

// HealthResponse is the health check payload.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

// Health returns the service health status.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:  "healthy",
		Version: h.version,
	})
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// decodeJSON decodes a request body into v, enforcing the body cap.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	return json.NewDecoder(r.Body).Decode(v)
}

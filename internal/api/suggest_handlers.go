package api

import (
	"fmt"
	"net/http"

	"github.com/fernledger/fern/internal/entity"
)

// SuggestRequest asks for a category suggestion for a transaction note.
type SuggestRequest struct {
	Note string `json:"note"`
}

// SuggestResponse carries the best-matching category name and its
// similarity score in [0,1].
type SuggestResponse struct {
	Category string  `json:"category"`
	Score    float64 `json:"score"`
}

// SuggestCategory handles POST /api/v1/suggest/category. It matches the
// note against the caller's own category names, so suggestions only ever
// reference categories the client can resolve.
func (h *Handler) SuggestCategory(w http.ResponseWriter, r *http.Request) {
	if h.suggester == nil {
		WriteProblem(w, r, http.StatusServiceUnavailable, "category suggestions are not configured")
		return
	}

	userID := MustUserIDFromContext(r.Context())

	var req SuggestRequest
	if err := decodeJSON(w, r, &req); err != nil {
		WriteProblem(w, r, http.StatusBadRequest, fmt.Sprintf("invalid JSON: %s", err))
		return
	}
	if req.Note == "" {
		WriteProblem(w, r, http.StatusBadRequest, "note is required")
		return
	}

	spec, _ := entity.Lookup(entity.TypeCategory)
	rows, _, err := h.store.ChangesSince(r.Context(), spec, userID, "", 500)
	if err != nil {
		MapStoreError(w, r, err)
		return
	}

	names := make([]string, 0, len(rows))
	for _, row := range rows {
		if name := row.String("name"); name != "" {
			names = append(names, name)
		}
	}
	if len(names) == 0 {
		WriteProblem(w, r, http.StatusNotFound, "no categories to match against")
		return
	}

	best, score, err := h.suggester.Best(r.Context(), req.Note, names)
	if err != nil {
		h.logger.Error("suggestion failed",
			"component", "api", "action", "suggest_failed", "user_id", userID, "error", err)
		WriteProblem(w, r, http.StatusInternalServerError, "suggestion failed")
		return
	}

	writeJSON(w, http.StatusOK, SuggestResponse{Category: best, Score: score})
}

package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/fernledger/fern/internal/sync"
	"github.com/fernledger/fern/internal/syncer"
)

// Push handles POST /api/v1/sync/push.
// The whole batch runs in one transaction; per-change failures come back
// in the response body, not as an HTTP error.
func (h *Handler) Push(w http.ResponseWriter, r *http.Request) {
	userID := MustUserIDFromContext(r.Context())

	var req sync.PushRequest
	if err := decodeJSON(w, r, &req); err != nil {
		WriteProblem(w, r, http.StatusBadRequest, fmt.Sprintf("invalid JSON: %s", err))
		return
	}

	resp, err := h.syncer.Push(r.Context(), userID, req.Changes)
	if err != nil {
		h.logger.Error("push failed",
			"component", "api", "action", "push_failed", "user_id", userID, "error", err)
		MapStoreError(w, r, err)
		return
	}

	var failed int
	for _, res := range resp.Accepted {
		if !res.Success {
			failed++
		}
	}
	observePush(len(resp.Accepted)-failed, failed, len(resp.Conflicts))

	writeJSON(w, http.StatusOK, resp)
}

// Pull handles POST /api/v1/sync/pull.
func (h *Handler) Pull(w http.ResponseWriter, r *http.Request) {
	userID := MustUserIDFromContext(r.Context())

	var req sync.PullRequest
	if err := decodeJSON(w, r, &req); err != nil {
		WriteProblem(w, r, http.StatusBadRequest, fmt.Sprintf("invalid JSON: %s", err))
		return
	}

	resp, err := h.syncer.Pull(r.Context(), userID, req)
	if err != nil {
		// Invalid watermarks are client errors; everything else is a
		// store failure.
		if errors.Is(err, syncer.ErrInvalidWatermark) {
			WriteProblem(w, r, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.Error("pull failed",
			"component", "api", "action", "pull_failed", "user_id", userID, "error", err)
		MapStoreError(w, r, err)
		return
	}

	var items int
	for _, batch := range resp.Changes {
		items += len(batch)
	}
	pullItemsTotal.Add(float64(items))

	writeJSON(w, http.StatusOK, resp)
}

// Status handles GET /api/v1/sync/status.
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	userID := MustUserIDFromContext(r.Context())

	resp, err := h.syncer.Status(r.Context(), userID)
	if err != nil {
		h.logger.Error("status failed",
			"component", "api", "action", "status_failed", "user_id", userID, "error", err)
		MapStoreError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

package api

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
)

// ListSelections returns the audience selections committed on a thread.
func (h *Handler) ListSelections(w http.ResponseWriter, r *http.Request) {
	threadID := strings.TrimSpace(chi.URLParam(r, "threadID"))
	if threadID == "" {
		Error(w, http.StatusBadRequest, "thread id required")
		return
	}

	selections, err := h.repo.ListSelections(r.Context(), threadID)
	if err != nil {
		slog.Error("Failed to list selections", "error", err, "thread_id", threadID)
		Error(w, http.StatusInternalServerError, "failed to list selections")
		return
	}

	JSON(w, http.StatusOK, map[string]any{
		"thread_id":  threadID,
		"selections": selections,
	})
}

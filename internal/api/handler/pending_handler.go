package handler

import (
	"context"
	"net/http"
)

// PendingCounter is implemented by both pending email repositories.
type PendingCounter interface {
	CountPending(ctx context.Context) (int, error)
}

// PendingHandler reports how many emails wait for the next dispatch.
type PendingHandler struct {
	repo PendingCounter
}

func NewPendingHandler(repo PendingCounter) *PendingHandler {
	return &PendingHandler{repo: repo}
}

// Count handles GET /api/internal/pending
func (h *PendingHandler) Count(w http.ResponseWriter, r *http.Request) {
	n, err := h.repo.CountPending(r.Context())
	if err != nil {
		mapError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]int{"pending": n})
}

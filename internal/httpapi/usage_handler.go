package httpapi

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"agent_gateway/internal/queue"
	"agent_gateway/internal/utils"
)

const defaultDeadLetterLimit = 50

// UsageHandler exposes the async usage queue to operators
type UsageHandler struct {
	queue UsageQueue
}

// NewUsageHandler creates a new usage handler; q is nil when usage is written inline
func NewUsageHandler(q UsageQueue) *UsageHandler {
	return &UsageHandler{queue: q}
}

// QueueStatusResponse describes the usage queue backlog
type QueueStatusResponse struct {
	Async       bool                   `json:"async"`
	Pending     int                    `json:"pending"`
	DeadLetters []queue.DeadLetterItem `json:"deadLetters"`
}

// Status handles GET /api/usage/queue?limit=N
func (h *UsageHandler) Status(w http.ResponseWriter, r *http.Request) {
	resp := QueueStatusResponse{DeadLetters: []queue.DeadLetterItem{}}
	if h.queue == nil {
		utils.RespondWithJSON(w, http.StatusOK, resp)
		return
	}
	resp.Async = true

	limit := defaultDeadLetterLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			utils.RespondWithError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	pending, err := h.queue.QueueLength(r.Context())
	if err != nil {
		utils.RespondWithDomainError(w, err)
		return
	}
	resp.Pending = pending

	items, err := h.queue.DeadLetterItems(r.Context(), limit)
	if err != nil {
		utils.RespondWithDomainError(w, err)
		return
	}
	if items != nil {
		resp.DeadLetters = items
	}
	utils.RespondWithJSON(w, http.StatusOK, resp)
}

// Retry handles POST /api/usage/dead-letters/{id}/retry
func (h *UsageHandler) Retry(w http.ResponseWriter, r *http.Request) {
	if h.queue == nil {
		utils.RespondWithError(w, http.StatusNotFound, "Usage queue is not enabled")
		return
	}

	err := h.queue.RetryDeadLetterItem(r.Context(), chi.URLParam(r, "id"))
	switch {
	case err == nil:
		utils.RespondWithJSON(w, http.StatusOK, map[string]string{"message": "Requeued"})
	case errors.Is(err, queue.ErrItemNotFound):
		utils.RespondWithError(w, http.StatusNotFound, "Dead-letter item not found")
	default:
		utils.RespondWithDomainError(w, err)
	}
}

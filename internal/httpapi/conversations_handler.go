package httpapi

import (
	"net/http"

	"agent_gateway/internal/responder"
	"agent_gateway/internal/utils"
)

// ConversationsHandler accepts inbound message events from the messaging integration
type ConversationsHandler struct {
	responder *responder.Responder
}

// NewConversationsHandler creates a new conversations handler
func NewConversationsHandler(r *responder.Responder) *ConversationsHandler {
	return &ConversationsHandler{responder: r}
}

// Reply handles POST /api/conversations/reply
func (h *ConversationsHandler) Reply(w http.ResponseWriter, r *http.Request) {
	var ev responder.Event
	if err := utils.DecodeJSON(r, &ev); err != nil {
		utils.RespondWithDomainError(w, err)
		return
	}

	reply, err := h.responder.Reply(r.Context(), ev)
	if err != nil {
		utils.RespondWithDomainError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, reply)
}

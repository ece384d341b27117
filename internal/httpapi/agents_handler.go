package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"agent_gateway/internal/models"
	"agent_gateway/internal/registry"
	"agent_gateway/internal/resolver"
	"agent_gateway/internal/utils"
)

// AgentsHandler handles agent, assignment and resolution endpoints
type AgentsHandler struct {
	registry *registry.Registry
	resolver *resolver.Resolver
}

// NewAgentsHandler creates a new agents handler
func NewAgentsHandler(reg *registry.Registry, res *resolver.Resolver) *AgentsHandler {
	return &AgentsHandler{
		registry: reg,
		resolver: res,
	}
}

// AgentResponse is an agent as the dashboard sees it. The key itself never leaves the server.
type AgentResponse struct {
	*models.Agent
	HasAPIKey bool `json:"hasApiKey"`
}

func newAgentResponse(a *models.Agent) AgentResponse {
	return AgentResponse{Agent: a, HasAPIKey: a.HasAPIKey()}
}

// AssignRequest binds a page to an agent
type AssignRequest struct {
	PageID  string `json:"pageId"`
	AgentID string `json:"agentId"`
}

// ResolveResponse previews the effective agent for a page
type ResolveResponse struct {
	*resolver.EffectiveAgent
	HasCredential bool `json:"hasCredential"`
	// Warning is set when replies for this page would fail on configuration.
	Warning string `json:"warning,omitempty"`
}

// List handles GET /api/agents
func (h *AgentsHandler) List(w http.ResponseWriter, r *http.Request) {
	agents, err := h.registry.ListAgents(r.Context())
	if err != nil {
		utils.RespondWithDomainError(w, err)
		return
	}

	out := make([]AgentResponse, 0, len(agents))
	for _, a := range agents {
		out = append(out, newAgentResponse(a))
	}
	utils.RespondWithJSON(w, http.StatusOK, map[string]interface{}{"agents": out})
}

// Create handles POST /api/agents
func (h *AgentsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req registry.AgentInput
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.RespondWithDomainError(w, err)
		return
	}

	agent, err := h.registry.CreateAgent(r.Context(), req)
	if err != nil {
		utils.RespondWithDomainError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusCreated, map[string]interface{}{"agent": newAgentResponse(agent)})
}

// Get handles GET /api/agents/{id}
func (h *AgentsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := agentIDParam(w, r)
	if !ok {
		return
	}

	agent, err := h.registry.GetAgent(r.Context(), id)
	if err != nil {
		utils.RespondWithDomainError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, map[string]interface{}{"agent": newAgentResponse(agent)})
}

// Update handles PUT /api/agents/{id}
func (h *AgentsHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := agentIDParam(w, r)
	if !ok {
		return
	}

	var req registry.AgentInput
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.RespondWithDomainError(w, err)
		return
	}

	agent, err := h.registry.UpdateAgent(r.Context(), id, req)
	if err != nil {
		utils.RespondWithDomainError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, map[string]interface{}{"agent": newAgentResponse(agent)})
}

// Delete handles DELETE /api/agents/{id}
func (h *AgentsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := agentIDParam(w, r)
	if !ok {
		return
	}

	if err := h.registry.DeleteAgent(r.Context(), id); err != nil {
		utils.RespondWithDomainError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, map[string]string{"message": "Agent deleted"})
}

// SetDefault handles POST /api/agents/{id}/default
func (h *AgentsHandler) SetDefault(w http.ResponseWriter, r *http.Request) {
	id, ok := agentIDParam(w, r)
	if !ok {
		return
	}

	if err := h.registry.SetDefaultAgent(r.Context(), id); err != nil {
		utils.RespondWithDomainError(w, err)
		return
	}
	agent, err := h.registry.GetAgent(r.Context(), id)
	if err != nil {
		utils.RespondWithDomainError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, map[string]interface{}{"agent": newAgentResponse(agent)})
}

// ListAssignments handles GET /api/agents/assignments/pages, keyed by page ID.
// ?pageId= narrows the map to that page.
func (h *AgentsHandler) ListAssignments(w http.ResponseWriter, r *http.Request) {
	out := make(map[string]*models.Assignment)

	if pageID := strings.TrimSpace(r.URL.Query().Get("pageId")); pageID != "" {
		a, err := h.registry.GetAssignment(r.Context(), pageID)
		switch {
		case err == nil:
			out[a.PageID] = a
		case !errors.Is(err, models.ErrNotFound):
			utils.RespondWithDomainError(w, err)
			return
		}
		utils.RespondWithJSON(w, http.StatusOK, map[string]interface{}{"assignments": out})
		return
	}

	list, err := h.registry.ListAssignments(r.Context())
	if err != nil {
		utils.RespondWithDomainError(w, err)
		return
	}
	for _, a := range list {
		out[a.PageID] = a
	}
	utils.RespondWithJSON(w, http.StatusOK, map[string]interface{}{"assignments": out})
}

// Assign handles POST /api/agents/assignments/assign
func (h *AgentsHandler) Assign(w http.ResponseWriter, r *http.Request) {
	var req AssignRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.RespondWithDomainError(w, err)
		return
	}

	agentID, err := uuid.Parse(strings.TrimSpace(req.AgentID))
	if err != nil {
		utils.RespondWithDomainError(w, models.NewValidationError("agentId", "invalid agent id %q", req.AgentID))
		return
	}

	assignment, err := h.registry.Assign(r.Context(), req.PageID, agentID)
	if err != nil {
		utils.RespondWithDomainError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, map[string]interface{}{"assignment": assignment})
}

// Unassign handles DELETE /api/agents/assignments/pages/{pageId}
func (h *AgentsHandler) Unassign(w http.ResponseWriter, r *http.Request) {
	if err := h.registry.Unassign(r.Context(), chi.URLParam(r, "pageId")); err != nil {
		utils.RespondWithDomainError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, map[string]string{"message": "Assignment removed"})
}

// Resolve handles GET /api/agents/resolve/{pageId}
func (h *AgentsHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	eff, err := h.resolver.Resolve(r.Context(), chi.URLParam(r, "pageId"))

	var cerr *models.ConfigurationError
	if err != nil && (eff == nil || !errors.As(err, &cerr)) {
		utils.RespondWithDomainError(w, err)
		return
	}

	resp := ResolveResponse{EffectiveAgent: eff, HasCredential: eff.HasCredential()}
	if err != nil {
		resp.Warning = err.Error()
	}
	utils.RespondWithJSON(w, http.StatusOK, resp)
}

func agentIDParam(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	raw := chi.URLParam(r, "id")
	id, err := uuid.Parse(raw)
	if err != nil {
		utils.RespondWithDomainError(w, utils.PathError("id", raw))
		return uuid.Nil, false
	}
	return id, true
}

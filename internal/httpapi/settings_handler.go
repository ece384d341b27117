package httpapi

import (
	"net/http"
	"time"

	"agent_gateway/internal/models"
	"agent_gateway/internal/pricing"
	"agent_gateway/internal/registry"
	"agent_gateway/internal/utils"
)

// SettingsHandler handles the global config and policy endpoints
type SettingsHandler struct {
	registry *registry.Registry
	catalog  *pricing.Catalog
}

// NewSettingsHandler creates a new settings handler
func NewSettingsHandler(reg *registry.Registry, catalog *pricing.Catalog) *SettingsHandler {
	return &SettingsHandler{
		registry: reg,
		catalog:  catalog,
	}
}

// AIConfigResponse is the global config with keys reduced to presence flags
type AIConfigResponse struct {
	Provider  models.ProviderType          `json:"provider"`
	Model     string                       `json:"model"`
	APIKeys   map[models.ProviderType]bool `json:"apiKeys"`
	UpdatedAt time.Time                    `json:"updatedAt"`
}

func newAIConfigResponse(cfg *models.GlobalConfig) AIConfigResponse {
	keys := make(map[models.ProviderType]bool, len(cfg.APIKeys))
	for p, v := range cfg.APIKeys {
		if v != "" {
			keys[p] = true
		}
	}
	return AIConfigResponse{
		Provider:  cfg.Provider,
		Model:     cfg.Model,
		APIKeys:   keys,
		UpdatedAt: cfg.UpdatedAt,
	}
}

// SteelRulesRequest replaces the global rule set
type SteelRulesRequest struct {
	Rules []models.SteelRule `json:"rules"`
}

// TrainingRequest replaces the global persona
type TrainingRequest struct {
	Prompt string `json:"prompt"`
}

// ToggleBotRequest sets the bot switch; a missing value flips it
type ToggleBotRequest struct {
	Active *bool `json:"active"`
}

// GetAIConfig handles GET /api/ai-config
func (h *SettingsHandler) GetAIConfig(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.registry.GlobalConfig(r.Context())
	if err != nil {
		utils.RespondWithDomainError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, map[string]interface{}{"config": newAIConfigResponse(cfg)})
}

// UpdateAIConfig handles POST /api/ai-config
func (h *SettingsHandler) UpdateAIConfig(w http.ResponseWriter, r *http.Request) {
	var req registry.GlobalConfigInput
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.RespondWithDomainError(w, err)
		return
	}

	cfg, err := h.registry.UpdateGlobalConfig(r.Context(), req)
	if err != nil {
		utils.RespondWithDomainError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, map[string]interface{}{"config": newAIConfigResponse(cfg)})
}

// ListModels handles GET /api/ai-config/models
func (h *SettingsHandler) ListModels(w http.ResponseWriter, r *http.Request) {
	utils.RespondWithJSON(w, http.StatusOK, map[string]interface{}{"models": h.catalog.Entries()})
}

// GetSteelRules handles GET /api/steel-rules
func (h *SettingsHandler) GetSteelRules(w http.ResponseWriter, r *http.Request) {
	p, err := h.registry.GlobalPolicy(r.Context())
	if err != nil {
		utils.RespondWithDomainError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, map[string]interface{}{"rules": p.SteelRules})
}

// UpdateSteelRules handles POST /api/steel-rules
func (h *SettingsHandler) UpdateSteelRules(w http.ResponseWriter, r *http.Request) {
	var req SteelRulesRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.RespondWithDomainError(w, err)
		return
	}

	p, err := h.registry.SetSteelRules(r.Context(), req.Rules)
	if err != nil {
		utils.RespondWithDomainError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, map[string]interface{}{"rules": p.SteelRules})
}

// GetCustomerInfo handles GET /api/customer-info
func (h *SettingsHandler) GetCustomerInfo(w http.ResponseWriter, r *http.Request) {
	p, err := h.registry.GlobalPolicy(r.Context())
	if err != nil {
		utils.RespondWithDomainError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, map[string]interface{}{"settings": p.CollectionFlags})
}

// UpdateCustomerInfo handles POST /api/customer-info
func (h *SettingsHandler) UpdateCustomerInfo(w http.ResponseWriter, r *http.Request) {
	var req models.CollectionFlags
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.RespondWithDomainError(w, err)
		return
	}

	p, err := h.registry.SetCustomerInfo(r.Context(), req)
	if err != nil {
		utils.RespondWithDomainError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, map[string]interface{}{"settings": p.CollectionFlags})
}

// GetTraining handles GET /api/training
func (h *SettingsHandler) GetTraining(w http.ResponseWriter, r *http.Request) {
	p, err := h.registry.GlobalPolicy(r.Context())
	if err != nil {
		utils.RespondWithDomainError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, map[string]string{"prompt": p.TrainingPrompt})
}

// UpdateTraining handles POST /api/training
func (h *SettingsHandler) UpdateTraining(w http.ResponseWriter, r *http.Request) {
	var req TrainingRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.RespondWithDomainError(w, err)
		return
	}

	p, err := h.registry.SetTrainingPrompt(r.Context(), req.Prompt)
	if err != nil {
		utils.RespondWithDomainError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, map[string]string{"prompt": p.TrainingPrompt})
}

// BotStatus handles GET /api/bot/status
func (h *SettingsHandler) BotStatus(w http.ResponseWriter, r *http.Request) {
	p, err := h.registry.GlobalPolicy(r.Context())
	if err != nil {
		utils.RespondWithDomainError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, map[string]bool{"active": p.BotActive})
}

// ToggleBot handles POST /api/bot/toggle
func (h *SettingsHandler) ToggleBot(w http.ResponseWriter, r *http.Request) {
	var req ToggleBotRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.RespondWithDomainError(w, err)
		return
	}

	active := false
	if req.Active != nil {
		active = *req.Active
	} else {
		current, err := h.registry.GlobalPolicy(r.Context())
		if err != nil {
			utils.RespondWithDomainError(w, err)
			return
		}
		active = !current.BotActive
	}

	p, err := h.registry.SetBotActive(r.Context(), active)
	if err != nil {
		utils.RespondWithDomainError(w, err)
		return
	}

	message := "Bot paused"
	if p.BotActive {
		message = "Bot activated"
	}
	utils.RespondWithJSON(w, http.StatusOK, map[string]interface{}{
		"active":  p.BotActive,
		"message": message,
	})
}

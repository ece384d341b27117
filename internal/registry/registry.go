// Package registry manages agents, page assignments and the global
// settings the resolver falls back to. It validates operator input against
// the pricing catalog and seals credentials before anything is stored.
package registry

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"

	"agent_gateway/internal/logging"
	"agent_gateway/internal/models"
	"agent_gateway/internal/pricing"
	"agent_gateway/internal/storage"
)

// Store is the persistence the registry writes through.
type Store interface {
	storage.AgentStore
	storage.AssignmentStore
	storage.SettingsStore
}

// Sealer encrypts credentials before they are persisted.
type Sealer interface {
	Seal(plaintext string) (string, error)
}

// Registry is the write side of agent configuration.
type Registry struct {
	store   Store
	catalog *pricing.Catalog
	sealer  Sealer
	logger  *logging.Logger

	// settingsMu serializes read-modify-write of the global singletons.
	settingsMu sync.Mutex
}

// New creates a registry.
func New(store Store, catalog *pricing.Catalog, sealer Sealer) *Registry {
	return &Registry{
		store:   store,
		catalog: catalog,
		sealer:  sealer,
		logger:  logging.NewLogger("registry"),
	}
}

// AgentInput is an agent as submitted by an operator. Nil pointer and slice
// fields are absent: on create they take the global defaults, on update the
// stored value is kept. An empty APIKey never clears a stored key.
type AgentInput struct {
	Name         string              `json:"name"`
	Description  string              `json:"description"`
	Provider     models.ProviderType `json:"provider"`
	Model        string              `json:"model"`
	APIKey       string              `json:"apiKey"`
	SystemPrompt string              `json:"systemPrompt"`
	SteelRules   []models.SteelRule  `json:"steelRules"`

	CollectName    *bool `json:"collectName"`
	CollectPhone   *bool `json:"collectPhone"`
	CollectAddress *bool `json:"collectAddress"`
	Active         *bool `json:"active"`
	IsDefault      bool  `json:"isDefault"`
}

func (in *AgentInput) validate(catalog *pricing.Catalog) error {
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return models.NewValidationError("name", "name is required")
	}
	in.Model = strings.TrimSpace(in.Model)
	return catalog.Validate(in.Provider, in.Model)
}

// ─── Agents ──────────────────────────────────────────────────

// CreateAgent validates and stores a new agent. Setting IsDefault demotes
// the previous default in the same write.
func (r *Registry) CreateAgent(ctx context.Context, in AgentInput) (*models.Agent, error) {
	if err := in.validate(r.catalog); err != nil {
		return nil, err
	}

	policy, err := r.store.GetGlobalPolicy(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load global policy: %w", err)
	}

	agent := &models.Agent{
		ID:              uuid.New(),
		Name:            in.Name,
		Description:     strings.TrimSpace(in.Description),
		Provider:        in.Provider,
		Model:           in.Model,
		Persona:         in.SystemPrompt,
		CollectionFlags: policy.CollectionFlags,
		Active:          true,
		IsDefault:       in.IsDefault,
	}

	if in.SteelRules != nil {
		if agent.SteelRules, err = NormalizeRules(in.SteelRules); err != nil {
			return nil, err
		}
	} else {
		agent.SteelRules = append(models.SteelRules{}, policy.SteelRules...)
	}
	applyFlags(&agent.CollectionFlags, in)
	if in.Active != nil {
		agent.Active = *in.Active
	}

	if in.APIKey != "" {
		if agent.EncryptedAPIKey, err = r.sealer.Seal(in.APIKey); err != nil {
			return nil, fmt.Errorf("failed to encrypt api key: %w", err)
		}
	}

	if err := r.store.CreateAgent(ctx, agent); err != nil {
		return nil, fmt.Errorf("failed to create agent: %w", err)
	}

	r.logger.Info().
		Str("agent_id", agent.ID.String()).
		Str("provider", agent.Provider.String()).
		Str("model", agent.Model).
		Bool("default", agent.IsDefault).
		Msg("agent created")
	return agent, nil
}

// UpdateAgent replaces the mutable fields of an agent.
func (r *Registry) UpdateAgent(ctx context.Context, id uuid.UUID, in AgentInput) (*models.Agent, error) {
	if err := in.validate(r.catalog); err != nil {
		return nil, err
	}

	agent, err := r.store.GetAgent(ctx, id)
	if err != nil {
		return nil, err
	}

	agent.Name = in.Name
	agent.Description = strings.TrimSpace(in.Description)
	agent.Provider = in.Provider
	agent.Model = in.Model
	agent.Persona = in.SystemPrompt
	agent.IsDefault = in.IsDefault

	if in.SteelRules != nil {
		if agent.SteelRules, err = NormalizeRules(in.SteelRules); err != nil {
			return nil, err
		}
	}
	applyFlags(&agent.CollectionFlags, in)
	if in.Active != nil {
		agent.Active = *in.Active
	}

	if in.APIKey != "" {
		if agent.EncryptedAPIKey, err = r.sealer.Seal(in.APIKey); err != nil {
			return nil, fmt.Errorf("failed to encrypt api key: %w", err)
		}
	}

	if err := r.store.UpdateAgent(ctx, agent); err != nil {
		return nil, fmt.Errorf("failed to update agent: %w", err)
	}

	r.logger.Info().Str("agent_id", id.String()).Msg("agent updated")
	return agent, nil
}

func applyFlags(flags *models.CollectionFlags, in AgentInput) {
	if in.CollectName != nil {
		flags.Name = *in.CollectName
	}
	if in.CollectPhone != nil {
		flags.Phone = *in.CollectPhone
	}
	if in.CollectAddress != nil {
		flags.Address = *in.CollectAddress
	}
}

// DeleteAgent removes an agent and every assignment pointing at it.
func (r *Registry) DeleteAgent(ctx context.Context, id uuid.UUID) error {
	if err := r.store.DeleteAgent(ctx, id); err != nil {
		return fmt.Errorf("failed to delete agent: %w", err)
	}
	r.logger.Info().Str("agent_id", id.String()).Msg("agent deleted")
	return nil
}

// GetAgent retrieves an agent by ID
func (r *Registry) GetAgent(ctx context.Context, id uuid.UUID) (*models.Agent, error) {
	return r.store.GetAgent(ctx, id)
}

// ListAgents returns agents in creation order.
func (r *Registry) ListAgents(ctx context.Context) ([]*models.Agent, error) {
	return r.store.ListAgents(ctx)
}

// SetDefaultAgent makes id the only default agent.
func (r *Registry) SetDefaultAgent(ctx context.Context, id uuid.UUID) error {
	if err := r.store.SetDefaultAgent(ctx, id); err != nil {
		return fmt.Errorf("failed to set default agent: %w", err)
	}
	r.logger.Info().Str("agent_id", id.String()).Msg("default agent changed")
	return nil
}

// ─── Assignments ─────────────────────────────────────────────

// Assign binds pageID to an existing agent, replacing any previous binding.
func (r *Registry) Assign(ctx context.Context, pageID string, agentID uuid.UUID) (*models.Assignment, error) {
	pageID = strings.TrimSpace(pageID)
	if pageID == "" {
		return nil, models.NewValidationError("pageId", "page id is required")
	}
	if agentID == uuid.Nil {
		return nil, models.NewValidationError("agentId", "agent id is required")
	}

	a := &models.Assignment{PageID: pageID, AgentID: agentID}
	if err := r.store.UpsertAssignment(ctx, a); err != nil {
		return nil, fmt.Errorf("failed to assign page: %w", err)
	}
	r.logger.Info().Str("page_id", pageID).Str("agent_id", agentID.String()).Msg("page assigned")
	return a, nil
}

// Unassign removes the agent binding of a page
func (r *Registry) Unassign(ctx context.Context, pageID string) error {
	if err := r.store.DeleteAssignment(ctx, pageID); err != nil {
		return fmt.Errorf("failed to unassign page: %w", err)
	}
	return nil
}

// GetAssignment retrieves the binding for a page
func (r *Registry) GetAssignment(ctx context.Context, pageID string) (*models.Assignment, error) {
	return r.store.GetAssignment(ctx, pageID)
}

// ListAssignments returns every page binding
func (r *Registry) ListAssignments(ctx context.Context) ([]*models.Assignment, error) {
	return r.store.ListAssignments(ctx)
}

// ─── Rules ───────────────────────────────────────────────────

// NormalizeRules trims rule text and numbers rules that lack a unique
// positive ID with max+1, keeping the submitted order.
func NormalizeRules(in []models.SteelRule) (models.SteelRules, error) {
	out := make(models.SteelRules, 0, len(in))
	maxID := 0
	for _, rule := range in {
		if rule.ID > maxID {
			maxID = rule.ID
		}
	}

	seen := make(map[int]bool, len(in))
	for i, rule := range in {
		rule.Text = strings.TrimSpace(rule.Text)
		if rule.Text == "" {
			return nil, models.NewValidationError("steelRules", "rule %d has no text", i+1)
		}
		if rule.ID <= 0 || seen[rule.ID] {
			maxID++
			rule.ID = maxID
		}
		seen[rule.ID] = true
		out = append(out, rule)
	}
	return out, nil
}

// ─── Global settings ─────────────────────────────────────────

// GlobalConfigInput selects the fallback provider and model. A non-empty
// APIKey is stored for Provider; other providers' keys are untouched.
type GlobalConfigInput struct {
	Provider models.ProviderType `json:"provider"`
	Model    string              `json:"model"`
	APIKey   string              `json:"apiKey"`
}

// GlobalConfig returns the global provider config
func (r *Registry) GlobalConfig(ctx context.Context) (*models.GlobalConfig, error) {
	return r.store.GetGlobalConfig(ctx)
}

// UpdateGlobalConfig applies a partial update to the global provider config
func (r *Registry) UpdateGlobalConfig(ctx context.Context, in GlobalConfigInput) (*models.GlobalConfig, error) {
	in.Model = strings.TrimSpace(in.Model)
	if err := r.catalog.Validate(in.Provider, in.Model); err != nil {
		return nil, err
	}

	r.settingsMu.Lock()
	defer r.settingsMu.Unlock()

	cfg, err := r.store.GetGlobalConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load global config: %w", err)
	}
	cfg.Provider = in.Provider
	cfg.Model = in.Model
	if in.APIKey != "" {
		sealed, err := r.sealer.Seal(in.APIKey)
		if err != nil {
			return nil, fmt.Errorf("failed to encrypt api key: %w", err)
		}
		if cfg.APIKeys == nil {
			cfg.APIKeys = models.EncryptedKeys{}
		}
		cfg.APIKeys[in.Provider] = sealed
	}

	if err := r.store.SaveGlobalConfig(ctx, cfg); err != nil {
		return nil, fmt.Errorf("failed to save global config: %w", err)
	}
	r.logger.Info().Str("provider", cfg.Provider.String()).Str("model", cfg.Model).Msg("global config updated")
	return cfg, nil
}

// GlobalPolicy returns the global policy
func (r *Registry) GlobalPolicy(ctx context.Context) (*models.GlobalPolicy, error) {
	return r.store.GetGlobalPolicy(ctx)
}

// SetTrainingPrompt replaces the persona used when no agent applies.
func (r *Registry) SetTrainingPrompt(ctx context.Context, prompt string) (*models.GlobalPolicy, error) {
	return r.updatePolicy(ctx, func(p *models.GlobalPolicy) error {
		p.TrainingPrompt = prompt
		return nil
	})
}

// SetSteelRules replaces the global rule set new agents are seeded with.
func (r *Registry) SetSteelRules(ctx context.Context, rules []models.SteelRule) (*models.GlobalPolicy, error) {
	normalized, err := NormalizeRules(rules)
	if err != nil {
		return nil, err
	}
	return r.updatePolicy(ctx, func(p *models.GlobalPolicy) error {
		p.SteelRules = normalized
		return nil
	})
}

// SetCustomerInfo replaces the global collection flags.
func (r *Registry) SetCustomerInfo(ctx context.Context, flags models.CollectionFlags) (*models.GlobalPolicy, error) {
	return r.updatePolicy(ctx, func(p *models.GlobalPolicy) error {
		p.CollectionFlags = flags
		return nil
	})
}

// SetBotActive switches automated replies on or off.
func (r *Registry) SetBotActive(ctx context.Context, active bool) (*models.GlobalPolicy, error) {
	p, err := r.updatePolicy(ctx, func(p *models.GlobalPolicy) error {
		p.BotActive = active
		return nil
	})
	if err == nil {
		r.logger.Info().Bool("active", active).Msg("bot switch toggled")
	}
	return p, err
}

func (r *Registry) updatePolicy(ctx context.Context, mutate func(*models.GlobalPolicy) error) (*models.GlobalPolicy, error) {
	r.settingsMu.Lock()
	defer r.settingsMu.Unlock()

	p, err := r.store.GetGlobalPolicy(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load global policy: %w", err)
	}
	if err := mutate(p); err != nil {
		return nil, err
	}
	if err := r.store.SaveGlobalPolicy(ctx, p); err != nil {
		return nil, fmt.Errorf("failed to save global policy: %w", err)
	}
	return p, nil
}

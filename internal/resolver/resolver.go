// Package resolver picks the agent that answers for a page.
//
// Resolution reads one consistent snapshot and walks a fixed list of steps:
//
//  1. the agent assigned to the page, if it still exists and is active
//  2. the default agent, if active
//  3. the oldest active agent
//  4. the global config, with the training prompt as persona
//
// Dangling or inactive assignments fall through without error.
package resolver

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"agent_gateway/internal/logging"
	"agent_gateway/internal/metrics"
	"agent_gateway/internal/models"
	"agent_gateway/internal/policy"
	"agent_gateway/internal/storage"
)

// Source names the step that produced an EffectiveAgent.
type Source string

const (
	SourceAssigned    Source = "assigned"
	SourceDefault     Source = "default"
	SourceFirstActive Source = "first_active"
	SourceGlobal      Source = "global"
)

// Opener decrypts stored credentials.
type Opener interface {
	Open(ciphertext string) (string, error)
}

// EffectiveAgent is everything a reply needs from configuration.
// AgentID is nil when the global config was used.
type EffectiveAgent struct {
	Source     Source              `json:"source"`
	AgentID    *uuid.UUID          `json:"agentId,omitempty"`
	AgentName  string              `json:"agentName,omitempty"`
	Provider   models.ProviderType `json:"provider"`
	Model      string              `json:"model"`
	Credential string              `json:"-"`
	Prompt     string              `json:"prompt"`
}

// HasCredential reports whether a credential was found.
func (e *EffectiveAgent) HasCredential() bool {
	return e.Credential != ""
}

type step struct {
	source Source
	pick   func(*storage.ResolutionView) *models.Agent
}

var steps = []step{
	{SourceAssigned, func(v *storage.ResolutionView) *models.Agent {
		if v.Assigned != nil && v.Assigned.Active {
			return v.Assigned
		}
		return nil
	}},
	{SourceDefault, func(v *storage.ResolutionView) *models.Agent {
		if v.Default != nil && v.Default.Active {
			return v.Default
		}
		return nil
	}},
	{SourceFirstActive, func(v *storage.ResolutionView) *models.Agent {
		return v.FirstActive
	}},
}

// Resolver resolves pages to effective agents.
type Resolver struct {
	snapshots storage.SnapshotReader
	opener    Opener
	defaults  map[models.ProviderType]string
	metrics   metrics.Metrics
	logger    *logging.Logger
}

// New creates a resolver. defaults are process-level API keys per provider,
// used when neither the agent nor the global config carries one.
func New(snapshots storage.SnapshotReader, opener Opener, defaults map[models.ProviderType]string, m metrics.Metrics) *Resolver {
	if m == nil {
		m = metrics.Noop{}
	}
	return &Resolver{
		snapshots: snapshots,
		opener:    opener,
		defaults:  defaults,
		metrics:   m,
		logger:    logging.NewLogger("resolver"),
	}
}

// Resolve returns the effective agent for pageID. When no credential can be
// found it returns the agent together with a *models.ConfigurationError
// wrapping models.ErrMissingCredential.
func (r *Resolver) Resolve(ctx context.Context, pageID string) (*EffectiveAgent, error) {
	view, err := r.snapshots.Snapshot(ctx, pageID)
	if err != nil {
		return nil, fmt.Errorf("failed to read resolution snapshot: %w", err)
	}

	eff, agent := fromView(view)
	r.metrics.RecordResolution(string(eff.Source))

	if view.Assignment != nil && eff.Source != SourceAssigned {
		r.logger.Debug().
			Str("page_id", pageID).
			Str("agent_id", view.Assignment.AgentID.String()).
			Str("source", string(eff.Source)).
			Msg("assignment skipped: agent missing or inactive")
	}

	cred, err := r.credential(eff, agent, view.GlobalConfig)
	if err != nil {
		return eff, err
	}
	if cred == "" {
		return eff, &models.ConfigurationError{
			Provider: eff.Provider,
			Model:    eff.Model,
			Err:      models.ErrMissingCredential,
		}
	}
	eff.Credential = cred
	return eff, nil
}

func fromView(view *storage.ResolutionView) (*EffectiveAgent, *models.Agent) {
	for _, s := range steps {
		agent := s.pick(view)
		if agent == nil {
			continue
		}
		id := agent.ID
		return &EffectiveAgent{
			Source:    s.source,
			AgentID:   &id,
			AgentName: agent.Name,
			Provider:  agent.Provider,
			Model:     agent.Model,
			Prompt:    policy.Assemble(agent.Persona, agent.SteelRules, agent.CollectionFlags),
		}, agent
	}

	return &EffectiveAgent{
		Source:   SourceGlobal,
		Provider: view.GlobalConfig.Provider,
		Model:    view.GlobalConfig.Model,
		Prompt:   policy.Assemble(view.Policy.TrainingPrompt, nil, models.CollectionFlags{}),
	}, nil
}

// credential applies agent key, then global key for the provider, then the process default.
func (r *Resolver) credential(eff *EffectiveAgent, agent *models.Agent, global models.GlobalConfig) (string, error) {
	var sealed []string
	if agent != nil {
		sealed = append(sealed, agent.EncryptedAPIKey)
	}
	sealed = append(sealed, global.APIKeys[eff.Provider])

	for _, c := range sealed {
		if c == "" {
			continue
		}
		plain, err := r.opener.Open(c)
		if err != nil {
			return "", &models.ConfigurationError{
				Provider: eff.Provider,
				Model:    eff.Model,
				Err:      fmt.Errorf("failed to decrypt api key: %w", err),
			}
		}
		if plain != "" {
			return plain, nil
		}
	}
	return r.defaults[eff.Provider], nil
}

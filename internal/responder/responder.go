// Package responder answers inbound conversation events with the agent
// resolved for their page and meters the call.
package responder

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"agent_gateway/internal/billing"
	"agent_gateway/internal/logging"
	"agent_gateway/internal/metrics"
	"agent_gateway/internal/models"
	"agent_gateway/internal/providers"
	"agent_gateway/internal/resolver"
	"agent_gateway/internal/storage"
)

// Reply outcomes reported to metrics.
const (
	OutcomeOK            = "ok"
	OutcomeBotDisabled   = "bot_disabled"
	OutcomeConfigError   = "config_error"
	OutcomeProviderError = "provider_error"
	OutcomeError         = "error"
)

// meteringTimeout bounds the ledger write once the caller's context is detached.
const meteringTimeout = 10 * time.Second

// Event is an inbound message thread for a page.
type Event struct {
	PageID   string              `json:"pageId"`
	SenderID string              `json:"senderId"`
	Messages []providers.Message `json:"messages"`
}

// Reply is the generated answer and how it was produced.
type Reply struct {
	Text         string              `json:"text"`
	Source       resolver.Source     `json:"source"`
	AgentID      string              `json:"agentId,omitempty"`
	Provider     models.ProviderType `json:"provider"`
	Model        string              `json:"model"`
	InputTokens  int64               `json:"inputTokens"`
	OutputTokens int64               `json:"outputTokens"`
	// UsageID is empty when the call could not be metered.
	UsageID string `json:"usageId,omitempty"`
}

// Responder wires resolution, completion and metering together.
type Responder struct {
	settings  storage.SettingsStore
	resolver  *resolver.Resolver
	completer providers.Completer
	ledger    *billing.Ledger
	metrics   metrics.Metrics
	logger    *logging.Logger
}

// New creates a responder.
func New(settings storage.SettingsStore, r *resolver.Resolver, completer providers.Completer, ledger *billing.Ledger, m metrics.Metrics) *Responder {
	if m == nil {
		m = metrics.Noop{}
	}
	return &Responder{
		settings:  settings,
		resolver:  r,
		completer: completer,
		ledger:    ledger,
		metrics:   m,
		logger:    logging.NewLogger("responder"),
	}
}

// Reply answers ev. It fails with models.ErrBotDisabled when replies are
// switched off, with the resolver's *models.ConfigurationError before any
// AI call, and with *models.TransientProviderError when the call fails.
// Metering problems are logged and never fail the reply.
func (r *Responder) Reply(ctx context.Context, ev Event) (*Reply, error) {
	reply, err := r.reply(ctx, ev)
	r.metrics.RecordReply(outcome(err))
	return reply, err
}

func (r *Responder) reply(ctx context.Context, ev Event) (*Reply, error) {
	ev.PageID = strings.TrimSpace(ev.PageID)
	if ev.PageID == "" {
		return nil, models.NewValidationError("pageId", "page id is required")
	}
	if len(ev.Messages) == 0 {
		return nil, models.NewValidationError("messages", "at least one message is required")
	}

	policy, err := r.settings.GetGlobalPolicy(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load global policy: %w", err)
	}
	if !policy.BotActive {
		return nil, models.ErrBotDisabled
	}

	eff, err := r.resolver.Resolve(ctx, ev.PageID)
	if err != nil {
		return nil, err
	}

	log := r.logger.Zerolog().With().
		Str("page_id", ev.PageID).
		Str("source", string(eff.Source)).
		Str("provider", eff.Provider.String()).
		Str("model", eff.Model).
		Logger()

	start := time.Now()
	completion, err := r.completer.Complete(ctx, providers.Request{
		Provider:     eff.Provider,
		Model:        eff.Model,
		APIKey:       eff.Credential,
		SystemPrompt: eff.Prompt,
		Messages:     ev.Messages,
	})
	elapsed := time.Since(start)
	if err != nil {
		r.metrics.RecordProviderCall(eff.Provider.String(), "error", elapsed)
		log.Warn().Err(err).Dur("latency", elapsed).Msg("provider call failed")

		var perr *models.TransientProviderError
		if !errors.As(err, &perr) {
			err = &models.TransientProviderError{Provider: eff.Provider, Err: err}
		}
		return nil, err
	}
	r.metrics.RecordProviderCall(eff.Provider.String(), "ok", elapsed)

	reply := &Reply{
		Text:         completion.Text,
		Source:       eff.Source,
		Provider:     eff.Provider,
		Model:        eff.Model,
		InputTokens:  completion.InputTokens,
		OutputTokens: completion.OutputTokens,
	}
	if eff.AgentID != nil {
		reply.AgentID = eff.AgentID.String()
	}

	// Tokens are spent at this point; record them even if the caller is gone.
	meterCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), meteringTimeout)
	defer cancel()
	record, err := r.ledger.Record(meterCtx, billing.Usage{
		Provider:     eff.Provider,
		Model:        eff.Model,
		InputTokens:  completion.InputTokens,
		OutputTokens: completion.OutputTokens,
		PageID:       ev.PageID,
		AgentID:      eff.AgentID,
	})
	if record != nil {
		reply.UsageID = record.ID.String()
	}
	if err != nil {
		log.Error().Err(err).Msg("failed to meter reply")
	}

	log.Debug().
		Int64("input_tokens", completion.InputTokens).
		Int64("output_tokens", completion.OutputTokens).
		Dur("latency", elapsed).
		Msg("reply generated")
	return reply, nil
}

func outcome(err error) string {
	var cerr *models.ConfigurationError
	var perr *models.TransientProviderError
	switch {
	case err == nil:
		return OutcomeOK
	case errors.Is(err, models.ErrBotDisabled):
		return OutcomeBotDisabled
	case errors.As(err, &cerr):
		return OutcomeConfigError
	case errors.As(err, &perr):
		return OutcomeProviderError
	default:
		return OutcomeError
	}
}

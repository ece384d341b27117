package models

import (
	"time"

	"github.com/google/uuid"
)

// UsageRecord is one immutable metering entry for a single AI call.
// CostUSD is nil when the model had no catalog price at record time.
type UsageRecord struct {
	ID           uuid.UUID    `db:"id" json:"id"`
	Timestamp    time.Time    `db:"ts" json:"timestamp"`
	Provider     ProviderType `db:"provider" json:"provider"`
	Model        string       `db:"model" json:"model"`
	PageID       string       `db:"page_id" json:"pageId,omitempty"`
	AgentID      *uuid.UUID   `db:"agent_id" json:"agentId,omitempty"`
	InputTokens  int64        `db:"input_tokens" json:"inputTokens"`
	OutputTokens int64        `db:"output_tokens" json:"outputTokens"`
	CostUSD      *float64     `db:"cost_usd" json:"costUSD"`
	ExchangeRate float64      `db:"exchange_rate" json:"exchangeRate"`
}

// TotalTokens returns input plus output tokens.
func (r *UsageRecord) TotalTokens() int64 {
	return r.InputTokens + r.OutputTokens
}

// CostKnown reports whether a catalog price was found when the record was written.
func (r *UsageRecord) CostKnown() bool {
	return r.CostUSD != nil
}

// DisplayCost converts the USD cost with the rate stored on the record.
// Unknown costs contribute zero.
func (r *UsageRecord) DisplayCost() float64 {
	if r.CostUSD == nil {
		return 0
	}
	return *r.CostUSD * r.ExchangeRate
}

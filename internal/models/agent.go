package models

import (
	"time"

	"github.com/google/uuid"
)

// SteelRule is an operator-authored negative constraint injected into the prompt.
type SteelRule struct {
	ID     int    `json:"id"`
	Text   string `json:"rule"`
	Active bool   `json:"active"`
}

// CollectionFlags controls which customer details the agent asks for.
type CollectionFlags struct {
	Name    bool `db:"collect_name" json:"collectName"`
	Phone   bool `db:"collect_phone" json:"collectPhone"`
	Address bool `db:"collect_address" json:"collectAddress"`
}

// DefaultCollectionFlags mirrors the dashboard's new-agent form.
func DefaultCollectionFlags() CollectionFlags {
	return CollectionFlags{Name: true, Phone: true, Address: false}
}

// Agent is a named AI configuration profile.
type Agent struct {
	ID              uuid.UUID    `db:"id" json:"_id"`
	Seq             int64        `db:"seq" json:"-"`
	Name            string       `db:"name" json:"name"`
	Description     string       `db:"description" json:"description"`
	Provider        ProviderType `db:"provider" json:"provider"`
	Model           string       `db:"model" json:"model"`
	EncryptedAPIKey string       `db:"encrypted_api_key" json:"-"`
	Persona         string       `db:"persona" json:"systemPrompt"`
	SteelRules      SteelRules   `db:"steel_rules" json:"steelRules"`
	CollectionFlags
	Active    bool      `db:"active" json:"active"`
	IsDefault bool      `db:"is_default" json:"isDefault"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

// HasAPIKey reports whether the agent carries its own credential.
func (a *Agent) HasAPIKey() bool {
	return a.EncryptedAPIKey != ""
}

// Clone returns a deep copy so callers cannot mutate shared snapshots.
func (a *Agent) Clone() *Agent {
	if a == nil {
		return nil
	}
	c := *a
	if a.SteelRules != nil {
		c.SteelRules = append(SteelRules(nil), a.SteelRules...)
	}
	return &c
}

// Assignment binds a messaging page to one agent.
type Assignment struct {
	PageID     string    `db:"page_id" json:"pageId"`
	AgentID    uuid.UUID `db:"agent_id" json:"agentId"`
	AssignedAt time.Time `db:"assigned_at" json:"assignedAt"`
}

// GlobalConfig is the singleton fallback provider/model selection.
type GlobalConfig struct {
	Provider  ProviderType  `db:"provider" json:"provider"`
	Model     string        `db:"model" json:"model"`
	APIKeys   EncryptedKeys `db:"api_keys" json:"-"`
	UpdatedAt time.Time     `db:"updated_at" json:"updatedAt"`
}

// DefaultGlobalConfig is seeded the first time the global config is read.
func DefaultGlobalConfig() GlobalConfig {
	return GlobalConfig{
		Provider: ProviderTypeOpenAI,
		Model:    "gpt-4o-mini",
		APIKeys:  EncryptedKeys{},
	}
}

// GlobalPolicy holds the dashboard-wide persona, rules, collection flags and bot switch.
type GlobalPolicy struct {
	TrainingPrompt string     `db:"training_prompt" json:"prompt"`
	SteelRules     SteelRules `db:"steel_rules" json:"rules"`
	CollectionFlags
	BotActive bool      `db:"bot_active" json:"active"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

// DefaultSteelRules seeds the global rule set.
func DefaultSteelRules() SteelRules {
	return SteelRules{
		{ID: 1, Text: "Không bịa đặt giá sản phẩm", Active: true},
		{ID: 2, Text: "Không tự tạo sản phẩm không có trong danh sách", Active: true},
		{ID: 3, Text: "Không hứa hẹn khuyến mãi nếu không có thông tin", Active: true},
	}
}

// DefaultGlobalPolicy is seeded the first time the global policy is read.
func DefaultGlobalPolicy() GlobalPolicy {
	return GlobalPolicy{
		SteelRules:      DefaultSteelRules(),
		CollectionFlags: DefaultCollectionFlags(),
		BotActive:       true,
	}
}

// PricingEntry is one (provider, model) price in USD per million tokens.
type PricingEntry struct {
	Provider           ProviderType `yaml:"provider" json:"provider"`
	Model              string       `yaml:"model" json:"model"`
	DisplayName        string       `yaml:"name" json:"name"`
	PricePerMillionUSD float64      `yaml:"price_per_million_usd" json:"cost"`
}

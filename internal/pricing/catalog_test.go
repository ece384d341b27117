package pricing

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agent_gateway/internal/models"
)

func TestDefault_PriceFor(t *testing.T) {
	c := Default()

	tests := []struct {
		provider models.ProviderType
		model    string
		price    float64
	}{
		{models.ProviderTypeOpenAI, "gpt-4o-mini", 0.15},
		{models.ProviderTypeGemini, "gemini-1.5-flash-8b", 0.0375},
		{models.ProviderTypeGroq, "llama3-70b-8192", 0.59},
		{models.ProviderTypeDeepSeek, "deepseek-chat", 0.14},
	}

	for _, tt := range tests {
		t.Run(tt.model, func(t *testing.T) {
			price, err := c.PriceFor(tt.provider, tt.model)
			require.NoError(t, err)
			assert.Equal(t, tt.price, price)
		})
	}
}

func TestPriceFor_ExactMatchOnly(t *testing.T) {
	c := Default()

	_, err := c.PriceFor(models.ProviderTypeGemini, "gpt-4o-mini")
	assert.True(t, errors.Is(err, ErrPriceNotFound))

	_, err = c.PriceFor(models.ProviderTypeOpenAI, "GPT-4o-mini")
	assert.True(t, errors.Is(err, ErrPriceNotFound))
}

func TestValidate(t *testing.T) {
	c := Default()

	assert.NoError(t, c.Validate(models.ProviderTypeGemini, "gemini-1.5-flash"))

	var verr *models.ValidationError
	require.ErrorAs(t, c.Validate("anthropic", "claude"), &verr)
	assert.Equal(t, "provider", verr.Field)

	require.ErrorAs(t, c.Validate(models.ProviderTypeOpenAI, "gemini-1.5-flash"), &verr)
	assert.Equal(t, "model", verr.Field)

	require.ErrorAs(t, c.Validate(models.ProviderTypeOpenAI, ""), &verr)
}

func TestNew_RejectsBadEntries(t *testing.T) {
	tests := []struct {
		name    string
		entries []models.PricingEntry
	}{
		{"unknown provider", []models.PricingEntry{{Provider: "acme", Model: "m", PricePerMillionUSD: 1}}},
		{"empty model", []models.PricingEntry{{Provider: models.ProviderTypeOpenAI, Model: " ", PricePerMillionUSD: 1}}},
		{"zero price", []models.PricingEntry{{Provider: models.ProviderTypeOpenAI, Model: "m", PricePerMillionUSD: 0}}},
		{"duplicate", []models.PricingEntry{
			{Provider: models.ProviderTypeOpenAI, Model: "m", PricePerMillionUSD: 1},
			{Provider: models.ProviderTypeOpenAI, Model: "m", PricePerMillionUSD: 2},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.entries)
			assert.Error(t, err)
		})
	}
}

func TestEntries_StableOrderAndCopy(t *testing.T) {
	c := Default()
	first := c.Entries()
	require.Len(t, first, 10)
	assert.Equal(t, "gpt-4o-mini", first[0].Model)
	assert.Equal(t, "deepseek-chat", first[9].Model)

	first[0].PricePerMillionUSD = 99
	price, err := c.PriceFor(models.ProviderTypeOpenAI, "gpt-4o-mini")
	require.NoError(t, err)
	assert.Equal(t, 0.15, price)

	assert.Len(t, c.ForProvider(models.ProviderTypeGemini), 4)
}

func TestLoadFile(t *testing.T) {
	doc := `
models:
  - provider: openai
    model: gpt-4o-mini
    name: GPT-4o Mini
    price_per_million_usd: 0.15
  - provider: groq
    model: llama3-8b-8192
    price_per_million_usd: 0.05
`
	path := filepath.Join(t.TempDir(), "pricing.yaml")
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))

	c, err := LoadFile(path)
	require.NoError(t, err)

	entries := c.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, "llama3-8b-8192", entries[1].DisplayName)

	price, err := c.PriceFor(models.ProviderTypeGroq, "llama3-8b-8192")
	require.NoError(t, err)
	assert.Equal(t, 0.05, price)

	_, err = Parse([]byte("models: []"))
	assert.Error(t, err)

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

// Package pricing holds the immutable (provider, model) price table used
// to meter AI calls and to validate operator model selection.
package pricing

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"agent_gateway/internal/models"
)

// ErrPriceNotFound is returned when a (provider, model) pair has no catalog entry
var ErrPriceNotFound = errors.New("price not found")

type key struct {
	provider models.ProviderType
	model    string
}

// Catalog is safe for concurrent use; it is never mutated after construction.
type Catalog struct {
	entries []models.PricingEntry
	index   map[key]int
}

// New builds a catalog, rejecting duplicates, unknown providers and non-positive prices.
func New(entries []models.PricingEntry) (*Catalog, error) {
	c := &Catalog{
		entries: make([]models.PricingEntry, 0, len(entries)),
		index:   make(map[key]int, len(entries)),
	}

	for i, e := range entries {
		e.Model = strings.TrimSpace(e.Model)
		if !e.Provider.IsValid() {
			return nil, fmt.Errorf("entry %d: unknown provider %q", i, e.Provider)
		}
		if e.Model == "" {
			return nil, fmt.Errorf("entry %d: model is required", i)
		}
		if e.PricePerMillionUSD <= 0 {
			return nil, fmt.Errorf("entry %d (%s/%s): price must be positive", i, e.Provider, e.Model)
		}
		k := key{e.Provider, e.Model}
		if _, dup := c.index[k]; dup {
			return nil, fmt.Errorf("entry %d: duplicate %s/%s", i, e.Provider, e.Model)
		}
		if e.DisplayName == "" {
			e.DisplayName = e.Model
		}
		c.index[k] = len(c.entries)
		c.entries = append(c.entries, e)
	}

	return c, nil
}

// Default returns the compiled-in catalog offered by the dashboard.
func Default() *Catalog {
	c, err := New(defaultEntries)
	if err != nil {
		panic(fmt.Sprintf("pricing: invalid default catalog: %v", err))
	}
	return c
}

type catalogFile struct {
	Models []models.PricingEntry `yaml:"models"`
}

// Parse reads a YAML catalog document.
func Parse(data []byte) (*Catalog, error) {
	var f catalogFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse pricing catalog: %w", err)
	}
	if len(f.Models) == 0 {
		return nil, fmt.Errorf("pricing catalog has no models")
	}
	return New(f.Models)
}

// LoadFile reads a YAML catalog from path.
func LoadFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read pricing catalog: %w", err)
	}
	return Parse(data)
}

// PriceFor returns the USD price per million tokens for an exact (provider, model) match.
func (c *Catalog) PriceFor(provider models.ProviderType, model string) (float64, error) {
	i, ok := c.index[key{provider, model}]
	if !ok {
		return 0, fmt.Errorf("%s/%s: %w", provider, model, ErrPriceNotFound)
	}
	return c.entries[i].PricePerMillionUSD, nil
}

// Validate rejects a provider/model selection that cannot be metered.
func (c *Catalog) Validate(provider models.ProviderType, model string) error {
	if !provider.IsValid() {
		return models.NewValidationError("provider", "unsupported provider %q", provider)
	}
	if model == "" {
		return models.NewValidationError("model", "model is required")
	}
	if _, ok := c.index[key{provider, model}]; !ok {
		return models.NewValidationError("model", "model %q is not offered for provider %s", model, provider)
	}
	return nil
}

// Entries returns a copy of the catalog in declaration order.
func (c *Catalog) Entries() []models.PricingEntry {
	out := make([]models.PricingEntry, len(c.entries))
	copy(out, c.entries)
	return out
}

// ForProvider returns the entries of one provider in declaration order.
func (c *Catalog) ForProvider(provider models.ProviderType) []models.PricingEntry {
	var out []models.PricingEntry
	for _, e := range c.entries {
		if e.Provider == provider {
			out = append(out, e)
		}
	}
	return out
}

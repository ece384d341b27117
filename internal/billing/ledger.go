// Package billing meters AI calls into the usage ledger and aggregates the
// ledger into billing reports.
package billing

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"agent_gateway/internal/logging"
	"agent_gateway/internal/metrics"
	"agent_gateway/internal/models"
	"agent_gateway/internal/pricing"
	"agent_gateway/internal/storage"
)

// Usage is one completed AI call to be metered.
type Usage struct {
	Provider     models.ProviderType
	Model        string
	InputTokens  int64
	OutputTokens int64
	// Timestamp defaults to now when zero.
	Timestamp time.Time
	PageID    string
	AgentID   *uuid.UUID
}

// Ledger prices usage and appends it. The appender is either the store
// itself or the async usage worker.
type Ledger struct {
	appender     storage.UsageAppender
	catalog      *pricing.Catalog
	exchangeRate float64
	metrics      metrics.Metrics
	logger       *logging.Logger
	now          func() time.Time
}

// NewLedger creates a ledger converting USD at a fixed exchangeRate.
func NewLedger(appender storage.UsageAppender, catalog *pricing.Catalog, exchangeRate float64, m metrics.Metrics) *Ledger {
	if m == nil {
		m = metrics.Noop{}
	}
	return &Ledger{
		appender:     appender,
		catalog:      catalog,
		exchangeRate: exchangeRate,
		metrics:      m,
		logger:       logging.NewLogger("ledger"),
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// Record appends one usage record and returns it.
//
// A model without a catalog price is still recorded, with CostUSD nil, and
// the record is returned together with a *models.MeteringError.
func (l *Ledger) Record(ctx context.Context, u Usage) (*models.UsageRecord, error) {
	if u.InputTokens < 0 || u.OutputTokens < 0 {
		return nil, models.NewValidationError("tokens", "token counts must not be negative (input %d, output %d)", u.InputTokens, u.OutputTokens)
	}
	if u.Provider == "" {
		return nil, models.NewValidationError("provider", "provider is required")
	}
	model := strings.TrimSpace(u.Model)
	if model == "" {
		return nil, models.NewValidationError("model", "model is required")
	}

	ts := u.Timestamp
	if ts.IsZero() {
		ts = l.now()
	}

	record := &models.UsageRecord{
		ID:           uuid.New(),
		Timestamp:    ts.UTC(),
		Provider:     u.Provider,
		Model:        model,
		PageID:       u.PageID,
		AgentID:      u.AgentID,
		InputTokens:  u.InputTokens,
		OutputTokens: u.OutputTokens,
		ExchangeRate: l.exchangeRate,
	}

	price, priceErr := l.catalog.PriceFor(u.Provider, model)
	if priceErr == nil {
		cost := float64(record.TotalTokens()) / 1_000_000 * price
		record.CostUSD = &cost
	}

	if err := l.appender.AppendUsage(ctx, record); err != nil {
		return nil, fmt.Errorf("failed to append usage record: %w", err)
	}
	l.metrics.RecordUsage(record.Provider.String(), record.Model, record.InputTokens, record.OutputTokens, record.CostKnown())

	if priceErr != nil {
		merr := &models.MeteringError{
			Provider: u.Provider,
			Model:    model,
			RecordID: record.ID.String(),
			Err:      priceErr,
		}
		l.logger.Error().Err(merr).Int64("tokens", record.TotalTokens()).Msg("usage recorded with unknown cost")
		return record, merr
	}
	return record, nil
}

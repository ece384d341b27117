package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"agent_gateway/internal/models"
)

const insertUsageQuery = `
	INSERT INTO usage_records (id, ts, provider, model, page_id, agent_id,
	                           input_tokens, output_tokens, cost_usd, exchange_rate)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
`

// UsageRepository appends to and reads from the usage ledger
type UsageRepository struct {
	db *DB
}

// NewUsageRepository creates a new usage repository
func NewUsageRepository(db *DB) *UsageRepository {
	return &UsageRepository{db: db}
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func insertUsage(ctx context.Context, e execer, record *models.UsageRecord) error {
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	_, err := e.ExecContext(ctx, insertUsageQuery,
		record.ID, record.Timestamp, record.Provider, record.Model, record.PageID, record.AgentID,
		record.InputTokens, record.OutputTokens, record.CostUSD, record.ExchangeRate,
	)
	return err
}

// AppendUsage inserts a single usage record
func (r *UsageRepository) AppendUsage(ctx context.Context, record *models.UsageRecord) error {
	if err := insertUsage(ctx, r.db.conn, record); err != nil {
		return fmt.Errorf("failed to insert usage record: %w", err)
	}
	return nil
}

// AppendUsageBatch inserts records in a single transaction
func (r *UsageRepository) AppendUsageBatch(ctx context.Context, records []*models.UsageRecord) error {
	tx, err := r.db.conn.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, record := range records {
		if err := insertUsage(ctx, tx, record); err != nil {
			return fmt.Errorf("failed to insert record: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// ListUsage returns records with from <= ts < to, newest first
func (r *UsageRepository) ListUsage(ctx context.Context, from, to *time.Time) ([]*models.UsageRecord, error) {
	query := `
		SELECT id, ts, provider, model, page_id, agent_id, input_tokens, output_tokens, cost_usd, exchange_rate
		FROM usage_records
		WHERE ($1::timestamptz IS NULL OR ts >= $1)
		  AND ($2::timestamptz IS NULL OR ts < $2)
		ORDER BY ts DESC, id DESC
	`
	var records []*models.UsageRecord
	if err := r.db.conn.SelectContext(ctx, &records, query, from, to); err != nil {
		return nil, fmt.Errorf("failed to list usage records: %w", err)
	}
	return records, nil
}

// UsageBounds returns the oldest and newest record timestamps
func (r *UsageRepository) UsageBounds(ctx context.Context) (time.Time, time.Time, bool, error) {
	var first, last sql.NullTime
	err := r.db.conn.QueryRowxContext(ctx, `SELECT MIN(ts), MAX(ts) FROM usage_records`).Scan(&first, &last)
	if err != nil {
		return time.Time{}, time.Time{}, false, fmt.Errorf("failed to get usage bounds: %w", err)
	}
	if !first.Valid || !last.Valid {
		return time.Time{}, time.Time{}, false, nil
	}
	return first.Time, last.Time, true, nil
}

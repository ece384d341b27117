package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"agent_gateway/internal/models"
)

// SettingsRepository handles the global config and global policy singletons
type SettingsRepository struct {
	db *DB
}

// NewSettingsRepository creates a new settings repository
func NewSettingsRepository(db *DB) *SettingsRepository {
	return &SettingsRepository{db: db}
}

// GetGlobalConfig returns the global config, seeding the default row on first use
func (r *SettingsRepository) GetGlobalConfig(ctx context.Context) (*models.GlobalConfig, error) {
	cfg, err := getGlobalConfig(ctx, r.db.conn)
	if err != nil {
		return nil, err
	}
	if cfg != nil {
		return cfg, nil
	}

	seed := models.DefaultGlobalConfig()
	query := `
		INSERT INTO global_config (id, provider, model, api_keys)
		VALUES (TRUE, $1, $2, $3)
		ON CONFLICT (id) DO NOTHING
	`
	if _, err := r.db.conn.ExecContext(ctx, query, seed.Provider, seed.Model, seed.APIKeys); err != nil {
		return nil, fmt.Errorf("failed to seed global config: %w", err)
	}

	cfg, err = getGlobalConfig(ctx, r.db.conn)
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		return nil, fmt.Errorf("global config missing after seed")
	}
	return cfg, nil
}

// SaveGlobalConfig upserts the global config
func (r *SettingsRepository) SaveGlobalConfig(ctx context.Context, cfg *models.GlobalConfig) error {
	query := `
		INSERT INTO global_config (id, provider, model, api_keys, updated_at)
		VALUES (TRUE, $1, $2, $3, NOW())
		ON CONFLICT (id) DO UPDATE
		SET provider = EXCLUDED.provider, model = EXCLUDED.model,
		    api_keys = EXCLUDED.api_keys, updated_at = EXCLUDED.updated_at
		RETURNING updated_at
	`
	if err := r.db.conn.QueryRowxContext(ctx, query, cfg.Provider, cfg.Model, cfg.APIKeys).Scan(&cfg.UpdatedAt); err != nil {
		return fmt.Errorf("failed to save global config: %w", err)
	}
	return nil
}

// GetGlobalPolicy returns the global policy, seeding the default row on first use
func (r *SettingsRepository) GetGlobalPolicy(ctx context.Context) (*models.GlobalPolicy, error) {
	p, err := getGlobalPolicy(ctx, r.db.conn)
	if err != nil {
		return nil, err
	}
	if p != nil {
		return p, nil
	}

	seed := models.DefaultGlobalPolicy()
	query := `
		INSERT INTO global_policy (id, training_prompt, steel_rules, collect_name, collect_phone, collect_address, bot_active)
		VALUES (TRUE, $1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO NOTHING
	`
	_, err = r.db.conn.ExecContext(ctx, query,
		seed.TrainingPrompt, seed.SteelRules, seed.Name, seed.Phone, seed.Address, seed.BotActive)
	if err != nil {
		return nil, fmt.Errorf("failed to seed global policy: %w", err)
	}

	p, err = getGlobalPolicy(ctx, r.db.conn)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, fmt.Errorf("global policy missing after seed")
	}
	return p, nil
}

// SaveGlobalPolicy upserts the global policy
func (r *SettingsRepository) SaveGlobalPolicy(ctx context.Context, p *models.GlobalPolicy) error {
	query := `
		INSERT INTO global_policy (id, training_prompt, steel_rules, collect_name, collect_phone,
		                           collect_address, bot_active, updated_at)
		VALUES (TRUE, $1, $2, $3, $4, $5, $6, NOW())
		ON CONFLICT (id) DO UPDATE
		SET training_prompt = EXCLUDED.training_prompt, steel_rules = EXCLUDED.steel_rules,
		    collect_name = EXCLUDED.collect_name, collect_phone = EXCLUDED.collect_phone,
		    collect_address = EXCLUDED.collect_address, bot_active = EXCLUDED.bot_active,
		    updated_at = EXCLUDED.updated_at
		RETURNING updated_at
	`
	err := r.db.conn.QueryRowxContext(ctx, query,
		p.TrainingPrompt, p.SteelRules, p.Name, p.Phone, p.Address, p.BotActive,
	).Scan(&p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to save global policy: %w", err)
	}
	return nil
}

func getGlobalConfig(ctx context.Context, q sqlx.QueryerContext) (*models.GlobalConfig, error) {
	var cfg models.GlobalConfig
	query := `SELECT provider, model, api_keys, updated_at FROM global_config WHERE id`
	if err := sqlx.GetContext(ctx, q, &cfg, query); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get global config: %w", err)
	}
	return &cfg, nil
}

func getGlobalPolicy(ctx context.Context, q sqlx.QueryerContext) (*models.GlobalPolicy, error) {
	var p models.GlobalPolicy
	query := `
		SELECT training_prompt, steel_rules, collect_name, collect_phone, collect_address, bot_active, updated_at
		FROM global_policy WHERE id
	`
	if err := sqlx.GetContext(ctx, q, &p, query); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get global policy: %w", err)
	}
	return &p, nil
}

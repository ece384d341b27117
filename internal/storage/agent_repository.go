package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"agent_gateway/internal/models"
)

const agentColumns = `id, seq, name, description, provider, model, encrypted_api_key, persona,
	steel_rules, collect_name, collect_phone, collect_address, active, is_default, created_at, updated_at`

const clearDefaultQuery = `UPDATE agents SET is_default = FALSE, updated_at = NOW() WHERE is_default AND id <> $1`

// AgentRepository handles agent database operations
type AgentRepository struct {
	db *DB
}

// NewAgentRepository creates a new agent repository
func NewAgentRepository(db *DB) *AgentRepository {
	return &AgentRepository{db: db}
}

// CreateAgent inserts an agent, clearing any previous default in the same transaction
func (r *AgentRepository) CreateAgent(ctx context.Context, agent *models.Agent) error {
	if agent.ID == uuid.Nil {
		agent.ID = uuid.New()
	}

	tx, err := r.db.conn.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if agent.IsDefault {
		if _, err := tx.ExecContext(ctx, clearDefaultQuery, agent.ID); err != nil {
			return fmt.Errorf("failed to clear default agent: %w", err)
		}
	}

	query := `
		INSERT INTO agents (id, name, description, provider, model, encrypted_api_key, persona,
		                    steel_rules, collect_name, collect_phone, collect_address, active, is_default)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING seq, created_at, updated_at
	`
	err = tx.QueryRowxContext(ctx, query,
		agent.ID, agent.Name, agent.Description, agent.Provider, agent.Model, agent.EncryptedAPIKey,
		agent.Persona, agent.SteelRules, agent.CollectionFlags.Name,
		agent.Phone, agent.Address, agent.Active, agent.IsDefault,
	).Scan(&agent.Seq, &agent.CreatedAt, &agent.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create agent: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// UpdateAgent replaces all mutable fields of an agent
func (r *AgentRepository) UpdateAgent(ctx context.Context, agent *models.Agent) error {
	tx, err := r.db.conn.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if agent.IsDefault {
		if _, err := tx.ExecContext(ctx, clearDefaultQuery, agent.ID); err != nil {
			return fmt.Errorf("failed to clear default agent: %w", err)
		}
	}

	query := `
		UPDATE agents
		SET name = $2, description = $3, provider = $4, model = $5, encrypted_api_key = $6,
		    persona = $7, steel_rules = $8, collect_name = $9, collect_phone = $10,
		    collect_address = $11, active = $12, is_default = $13, updated_at = NOW()
		WHERE id = $1
		RETURNING seq, created_at, updated_at
	`
	err = tx.QueryRowxContext(ctx, query,
		agent.ID, agent.Name, agent.Description, agent.Provider, agent.Model, agent.EncryptedAPIKey,
		agent.Persona, agent.SteelRules, agent.CollectionFlags.Name, agent.Phone, agent.Address,
		agent.Active, agent.IsDefault,
	).Scan(&agent.Seq, &agent.CreatedAt, &agent.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrAgentNotFound
		}
		return fmt.Errorf("failed to update agent: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// DeleteAgent removes an agent and its page assignments in one transaction
func (r *AgentRepository) DeleteAgent(ctx context.Context, id uuid.UUID) error {
	tx, err := r.db.conn.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM page_assignments WHERE agent_id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete assignments: %w", err)
	}

	result, err := tx.ExecContext(ctx, `DELETE FROM agents WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete agent: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return ErrAgentNotFound
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// GetAgent retrieves an agent by ID
func (r *AgentRepository) GetAgent(ctx context.Context, id uuid.UUID) (*models.Agent, error) {
	agent, err := getAgent(ctx, r.db.conn, `WHERE id = $1`, id)
	if err != nil {
		return nil, err
	}
	if agent == nil {
		return nil, ErrAgentNotFound
	}
	return agent, nil
}

// ListAgents returns all agents in creation order
func (r *AgentRepository) ListAgents(ctx context.Context) ([]*models.Agent, error) {
	query := `SELECT ` + agentColumns + ` FROM agents ORDER BY seq`

	var agents []*models.Agent
	if err := r.db.conn.SelectContext(ctx, &agents, query); err != nil {
		return nil, fmt.Errorf("failed to list agents: %w", err)
	}
	return agents, nil
}

// SetDefaultAgent makes id the only default agent
func (r *AgentRepository) SetDefaultAgent(ctx context.Context, id uuid.UUID) error {
	tx, err := r.db.conn.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var exists int
	if err := tx.GetContext(ctx, &exists, `SELECT 1 FROM agents WHERE id = $1 FOR UPDATE`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrAgentNotFound
		}
		return fmt.Errorf("failed to lock agent: %w", err)
	}

	if _, err := tx.ExecContext(ctx, clearDefaultQuery, id); err != nil {
		return fmt.Errorf("failed to clear default agent: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `UPDATE agents SET is_default = TRUE, updated_at = NOW() WHERE id = $1`, id); err != nil {
		return fmt.Errorf("failed to set default agent: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// getAgent returns nil, nil when no row matches.
func getAgent(ctx context.Context, q sqlx.QueryerContext, where string, args ...any) (*models.Agent, error) {
	var agent models.Agent
	query := `SELECT ` + agentColumns + ` FROM agents ` + where + ` LIMIT 1`
	if err := sqlx.GetContext(ctx, q, &agent, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get agent: %w", err)
	}
	return &agent, nil
}

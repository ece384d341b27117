package storage

import (
	"context"
	"database/sql"
	"fmt"

	"agent_gateway/internal/models"
)

// PostgresStore implements Store on top of the repositories.
type PostgresStore struct {
	*AgentRepository
	*AssignmentRepository
	*SettingsRepository
	*UsageRepository
	db *DB
}

// NewPostgresStore wires every repository to db.
func NewPostgresStore(db *DB) *PostgresStore {
	return &PostgresStore{
		AgentRepository:      NewAgentRepository(db),
		AssignmentRepository: NewAssignmentRepository(db),
		SettingsRepository:   NewSettingsRepository(db),
		UsageRepository:      NewUsageRepository(db),
		db:                   db,
	}
}

// Snapshot reads all resolution inputs inside one read-only repeatable-read
// transaction, so a concurrent default switch is seen either fully or not at all.
func (s *PostgresStore) Snapshot(ctx context.Context, pageID string) (*ResolutionView, error) {
	tx, err := s.db.conn.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true})
	if err != nil {
		return nil, fmt.Errorf("failed to begin snapshot: %w", err)
	}
	defer tx.Rollback()

	view := &ResolutionView{}

	if view.Assignment, err = getAssignment(ctx, tx, pageID); err != nil {
		return nil, err
	}
	if view.Assignment != nil {
		if view.Assigned, err = getAgent(ctx, tx, `WHERE id = $1`, view.Assignment.AgentID); err != nil {
			return nil, err
		}
	}
	if view.Default, err = getAgent(ctx, tx, `WHERE is_default`); err != nil {
		return nil, err
	}
	if view.FirstActive, err = getAgent(ctx, tx, `WHERE active ORDER BY seq`); err != nil {
		return nil, err
	}

	cfg, err := getGlobalConfig(ctx, tx)
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		d := models.DefaultGlobalConfig()
		cfg = &d
	}
	view.GlobalConfig = *cfg

	policy, err := getGlobalPolicy(ctx, tx)
	if err != nil {
		return nil, err
	}
	if policy == nil {
		d := models.DefaultGlobalPolicy()
		policy = &d
	}
	view.Policy = *policy

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to close snapshot: %w", err)
	}
	return view, nil
}

// Health reports database reachability.
func (s *PostgresStore) Health(ctx context.Context) error {
	return s.db.Health(ctx)
}

// Close closes the database connection.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

var _ Store = (*PostgresStore)(nil)

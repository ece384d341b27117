package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"agent_gateway/internal/models"
)

// AssignmentRepository handles page assignment database operations
type AssignmentRepository struct {
	db *DB
}

// NewAssignmentRepository creates a new assignment repository
func NewAssignmentRepository(db *DB) *AssignmentRepository {
	return &AssignmentRepository{db: db}
}

// UpsertAssignment binds a page to an agent, replacing any previous binding
func (r *AssignmentRepository) UpsertAssignment(ctx context.Context, assignment *models.Assignment) error {
	query := `
		INSERT INTO page_assignments (page_id, agent_id, assigned_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (page_id) DO UPDATE
		SET agent_id = EXCLUDED.agent_id, assigned_at = EXCLUDED.assigned_at
		RETURNING assigned_at
	`
	err := r.db.conn.QueryRowxContext(ctx, query, assignment.PageID, assignment.AgentID).Scan(&assignment.AssignedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23503" {
			return ErrAgentNotFound
		}
		return fmt.Errorf("failed to upsert assignment: %w", err)
	}
	return nil
}

// GetAssignment retrieves the assignment for a page
func (r *AssignmentRepository) GetAssignment(ctx context.Context, pageID string) (*models.Assignment, error) {
	a, err := getAssignment(ctx, r.db.conn, pageID)
	if err != nil {
		return nil, err
	}
	if a == nil {
		return nil, ErrAssignmentNotFound
	}
	return a, nil
}

// ListAssignments returns every assignment ordered by page
func (r *AssignmentRepository) ListAssignments(ctx context.Context) ([]*models.Assignment, error) {
	var out []*models.Assignment
	query := `SELECT page_id, agent_id, assigned_at FROM page_assignments ORDER BY page_id`
	if err := r.db.conn.SelectContext(ctx, &out, query); err != nil {
		return nil, fmt.Errorf("failed to list assignments: %w", err)
	}
	return out, nil
}

// DeleteAssignment removes the binding of a page
func (r *AssignmentRepository) DeleteAssignment(ctx context.Context, pageID string) error {
	result, err := r.db.conn.ExecContext(ctx, `DELETE FROM page_assignments WHERE page_id = $1`, pageID)
	if err != nil {
		return fmt.Errorf("failed to delete assignment: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return ErrAssignmentNotFound
	}
	return nil
}

func getAssignment(ctx context.Context, q sqlx.QueryerContext, pageID string) (*models.Assignment, error) {
	var a models.Assignment
	query := `SELECT page_id, agent_id, assigned_at FROM page_assignments WHERE page_id = $1`
	if err := sqlx.GetContext(ctx, q, &a, query, pageID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get assignment: %w", err)
	}
	return &a, nil
}

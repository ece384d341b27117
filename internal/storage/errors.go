package storage

import (
	"fmt"

	"agent_gateway/internal/models"
)

var (
	// ErrAgentNotFound is returned when an agent is not found
	ErrAgentNotFound = fmt.Errorf("agent %w", models.ErrNotFound)

	// ErrAssignmentNotFound is returned when a page has no assignment
	ErrAssignmentNotFound = fmt.Errorf("assignment %w", models.ErrNotFound)
)

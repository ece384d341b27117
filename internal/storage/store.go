package storage

import (
	"context"
	"time"

	"github.com/google/uuid"

	"agent_gateway/internal/models"
)

// AgentStore persists agents. Writes that set IsDefault clear the previous
// holder in the same atomic step.
type AgentStore interface {
	CreateAgent(ctx context.Context, agent *models.Agent) error
	UpdateAgent(ctx context.Context, agent *models.Agent) error
	// DeleteAgent also removes every assignment pointing at the agent.
	DeleteAgent(ctx context.Context, id uuid.UUID) error
	GetAgent(ctx context.Context, id uuid.UUID) (*models.Agent, error)
	// ListAgents returns agents in creation order.
	ListAgents(ctx context.Context) ([]*models.Agent, error)
	SetDefaultAgent(ctx context.Context, id uuid.UUID) error
}

// AssignmentStore persists page to agent bindings, one per page.
type AssignmentStore interface {
	UpsertAssignment(ctx context.Context, assignment *models.Assignment) error
	GetAssignment(ctx context.Context, pageID string) (*models.Assignment, error)
	ListAssignments(ctx context.Context) ([]*models.Assignment, error)
	DeleteAssignment(ctx context.Context, pageID string) error
}

// SettingsStore persists the global singletons. Getters seed defaults on first use.
type SettingsStore interface {
	GetGlobalConfig(ctx context.Context) (*models.GlobalConfig, error)
	SaveGlobalConfig(ctx context.Context, cfg *models.GlobalConfig) error
	GetGlobalPolicy(ctx context.Context) (*models.GlobalPolicy, error)
	SaveGlobalPolicy(ctx context.Context, policy *models.GlobalPolicy) error
}

// UsageAppender is the only mutation the ledger performs.
type UsageAppender interface {
	AppendUsage(ctx context.Context, record *models.UsageRecord) error
}

// UsageStore is the append-only usage ledger.
type UsageStore interface {
	UsageAppender
	AppendUsageBatch(ctx context.Context, records []*models.UsageRecord) error
	// ListUsage returns records with from <= ts < to, newest first. Nil bounds are open.
	ListUsage(ctx context.Context, from, to *time.Time) ([]*models.UsageRecord, error)
	// UsageBounds returns the oldest and newest timestamps; ok is false for an empty ledger.
	UsageBounds(ctx context.Context) (first, last time.Time, ok bool, err error)
}

// ResolutionView is a consistent snapshot of everything resolution reads.
// Agent pointers are nil when the corresponding candidate does not exist.
type ResolutionView struct {
	Assignment   *models.Assignment
	Assigned     *models.Agent // agent referenced by Assignment, if it still exists
	Default      *models.Agent // agent flagged default, active or not
	FirstActive  *models.Agent // lowest creation order among active agents
	GlobalConfig models.GlobalConfig
	Policy       models.GlobalPolicy
}

// SnapshotReader reads a ResolutionView atomically with respect to agent and assignment writes.
type SnapshotReader interface {
	Snapshot(ctx context.Context, pageID string) (*ResolutionView, error)
}

// Store is the full persistence surface of the gateway.
type Store interface {
	AgentStore
	AssignmentStore
	SettingsStore
	UsageStore
	SnapshotReader
	Close() error
}

package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"agent_gateway/internal/models"
)

// MemoryStore implements Store in process memory. Agent, assignment and
// settings state sit behind one lock so snapshots are consistent; the usage
// ledger has its own lock so appends never wait on configuration reads.
type MemoryStore struct {
	mu          sync.RWMutex
	agents      map[uuid.UUID]*models.Agent
	nextSeq     int64
	assignments map[string]*models.Assignment
	config      *models.GlobalConfig
	policy      *models.GlobalPolicy

	usageMu sync.RWMutex
	usage   []*models.UsageRecord

	now func() time.Time
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		agents:      make(map[uuid.UUID]*models.Agent),
		assignments: make(map[string]*models.Assignment),
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// ─── Agents ──────────────────────────────────────────────────

// CreateAgent stores a new agent, assigning an ID when none is set
func (s *MemoryStore) CreateAgent(ctx context.Context, agent *models.Agent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if agent.ID == uuid.Nil {
		agent.ID = uuid.New()
	}
	now := s.now()
	s.nextSeq++
	agent.Seq = s.nextSeq
	agent.CreatedAt = now
	agent.UpdatedAt = now

	if agent.IsDefault {
		s.clearDefaultLocked(agent.ID, now)
	}
	s.agents[agent.ID] = agent.Clone()
	return nil
}

// UpdateAgent replaces a stored agent
func (s *MemoryStore) UpdateAgent(ctx context.Context, agent *models.Agent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.agents[agent.ID]
	if !ok {
		return ErrAgentNotFound
	}
	now := s.now()
	agent.Seq = existing.Seq
	agent.CreatedAt = existing.CreatedAt
	agent.UpdatedAt = now

	if agent.IsDefault {
		s.clearDefaultLocked(agent.ID, now)
	}
	s.agents[agent.ID] = agent.Clone()
	return nil
}

// DeleteAgent removes an agent and its assignments
func (s *MemoryStore) DeleteAgent(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.agents[id]; !ok {
		return ErrAgentNotFound
	}
	delete(s.agents, id)
	for page, a := range s.assignments {
		if a.AgentID == id {
			delete(s.assignments, page)
		}
	}
	return nil
}

// GetAgent retrieves an agent by ID
func (s *MemoryStore) GetAgent(ctx context.Context, id uuid.UUID) (*models.Agent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.agents[id]
	if !ok {
		return nil, ErrAgentNotFound
	}
	return a.Clone(), nil
}

// ListAgents returns all agents in creation order
func (s *MemoryStore) ListAgents(ctx context.Context) ([]*models.Agent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.Agent, 0, len(s.agents))
	for _, a := range s.agents {
		out = append(out, a.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Seq < out[j].Seq })
	return out, nil
}

// SetDefaultAgent marks id as the only default agent
func (s *MemoryStore) SetDefaultAgent(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.agents[id]
	if !ok {
		return ErrAgentNotFound
	}
	now := s.now()
	s.clearDefaultLocked(id, now)
	if !a.IsDefault {
		a.IsDefault = true
		a.UpdatedAt = now
	}
	return nil
}

func (s *MemoryStore) clearDefaultLocked(except uuid.UUID, now time.Time) {
	for id, a := range s.agents {
		if id != except && a.IsDefault {
			a.IsDefault = false
			a.UpdatedAt = now
		}
	}
}

// ─── Assignments ─────────────────────────────────────────────

// UpsertAssignment binds a page to an agent
func (s *MemoryStore) UpsertAssignment(ctx context.Context, assignment *models.Assignment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.agents[assignment.AgentID]; !ok {
		return ErrAgentNotFound
	}
	assignment.AssignedAt = s.now()
	c := *assignment
	s.assignments[assignment.PageID] = &c
	return nil
}

// GetAssignment retrieves the assignment for a page
func (s *MemoryStore) GetAssignment(ctx context.Context, pageID string) (*models.Assignment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.assignments[pageID]
	if !ok {
		return nil, ErrAssignmentNotFound
	}
	c := *a
	return &c, nil
}

// ListAssignments returns every page assignment
func (s *MemoryStore) ListAssignments(ctx context.Context) ([]*models.Assignment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.Assignment, 0, len(s.assignments))
	for _, a := range s.assignments {
		c := *a
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PageID < out[j].PageID })
	return out, nil
}

// DeleteAssignment removes the assignment for a page
func (s *MemoryStore) DeleteAssignment(ctx context.Context, pageID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.assignments[pageID]; !ok {
		return ErrAssignmentNotFound
	}
	delete(s.assignments, pageID)
	return nil
}

// ─── Settings ────────────────────────────────────────────────

// GetGlobalConfig returns the global provider config
func (s *MemoryStore) GetGlobalConfig(ctx context.Context) (*models.GlobalConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.config == nil {
		cfg := models.DefaultGlobalConfig()
		cfg.UpdatedAt = s.now()
		s.config = &cfg
	}
	return copyGlobalConfig(s.config), nil
}

// SaveGlobalConfig replaces the global provider config
func (s *MemoryStore) SaveGlobalConfig(ctx context.Context, cfg *models.GlobalConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cfg.UpdatedAt = s.now()
	s.config = copyGlobalConfig(cfg)
	return nil
}

// GetGlobalPolicy returns the global policy
func (s *MemoryStore) GetGlobalPolicy(ctx context.Context) (*models.GlobalPolicy, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.policy == nil {
		p := models.DefaultGlobalPolicy()
		p.UpdatedAt = s.now()
		s.policy = &p
	}
	return copyGlobalPolicy(s.policy), nil
}

// SaveGlobalPolicy replaces the global policy
func (s *MemoryStore) SaveGlobalPolicy(ctx context.Context, policy *models.GlobalPolicy) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	policy.UpdatedAt = s.now()
	s.policy = copyGlobalPolicy(policy)
	return nil
}

func copyGlobalConfig(cfg *models.GlobalConfig) *models.GlobalConfig {
	c := *cfg
	c.APIKeys = make(models.EncryptedKeys, len(cfg.APIKeys))
	for k, v := range cfg.APIKeys {
		c.APIKeys[k] = v
	}
	return &c
}

func copyGlobalPolicy(p *models.GlobalPolicy) *models.GlobalPolicy {
	c := *p
	c.SteelRules = append(models.SteelRules{}, p.SteelRules...)
	return &c
}

// ─── Snapshot ────────────────────────────────────────────────

// Snapshot reads everything resolution needs for a page under one lock
func (s *MemoryStore) Snapshot(ctx context.Context, pageID string) (*ResolutionView, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	view := &ResolutionView{
		GlobalConfig: models.DefaultGlobalConfig(),
		Policy:       models.DefaultGlobalPolicy(),
	}
	if s.config != nil {
		view.GlobalConfig = *copyGlobalConfig(s.config)
	}
	if s.policy != nil {
		view.Policy = *copyGlobalPolicy(s.policy)
	}

	if a, ok := s.assignments[pageID]; ok {
		c := *a
		view.Assignment = &c
		if agent, ok := s.agents[a.AgentID]; ok {
			view.Assigned = agent.Clone()
		}
	}

	for _, a := range s.agents {
		if a.IsDefault {
			view.Default = a.Clone()
		}
		if a.Active && (view.FirstActive == nil || a.Seq < view.FirstActive.Seq) {
			view.FirstActive = a
		}
	}
	view.FirstActive = view.FirstActive.Clone()

	return view, nil
}

// ─── Usage ───────────────────────────────────────────────────

// AppendUsage adds a usage record
func (s *MemoryStore) AppendUsage(ctx context.Context, record *models.UsageRecord) error {
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	c := *record

	s.usageMu.Lock()
	defer s.usageMu.Unlock()
	s.usage = append(s.usage, &c)
	return nil
}

// AppendUsageBatch adds several usage records
func (s *MemoryStore) AppendUsageBatch(ctx context.Context, records []*models.UsageRecord) error {
	for _, r := range records {
		if err := s.AppendUsage(ctx, r); err != nil {
			return err
		}
	}
	return nil
}

// ListUsage returns records in [from, to), newest first
func (s *MemoryStore) ListUsage(ctx context.Context, from, to *time.Time) ([]*models.UsageRecord, error) {
	s.usageMu.RLock()
	defer s.usageMu.RUnlock()

	var out []*models.UsageRecord
	for i := len(s.usage) - 1; i >= 0; i-- {
		r := s.usage[i]
		if from != nil && r.Timestamp.Before(*from) {
			continue
		}
		if to != nil && !r.Timestamp.Before(*to) {
			continue
		}
		c := *r
		out = append(out, &c)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	return out, nil
}

// UsageBounds returns the oldest and newest record timestamps
func (s *MemoryStore) UsageBounds(ctx context.Context) (time.Time, time.Time, bool, error) {
	s.usageMu.RLock()
	defer s.usageMu.RUnlock()

	if len(s.usage) == 0 {
		return time.Time{}, time.Time{}, false, nil
	}
	first, last := s.usage[0].Timestamp, s.usage[0].Timestamp
	for _, r := range s.usage[1:] {
		if r.Timestamp.Before(first) {
			first = r.Timestamp
		}
		if r.Timestamp.After(last) {
			last = r.Timestamp
		}
	}
	return first, last, true, nil
}

// Close is a no-op
func (s *MemoryStore) Close() error { return nil }

var _ Store = (*MemoryStore)(nil)

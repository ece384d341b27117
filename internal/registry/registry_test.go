package registry

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agent_gateway/internal/models"
	"agent_gateway/internal/pricing"
	"agent_gateway/internal/storage"
)

// prefixSealer marks values as sealed without real encryption.
type prefixSealer struct{ fail bool }

func (s prefixSealer) Seal(plaintext string) (string, error) {
	if s.fail {
		return "", errors.New("sealer down")
	}
	return "sealed:" + plaintext, nil
}

func newTestRegistry(t *testing.T) (*Registry, *storage.MemoryStore) {
	t.Helper()
	store := storage.NewMemoryStore()
	return New(store, pricing.Default(), prefixSealer{}), store
}

func boolPtr(b bool) *bool { return &b }

func validInput(name string) AgentInput {
	return AgentInput{
		Name:         name,
		Provider:     models.ProviderTypeOpenAI,
		Model:        "gpt-4o-mini",
		SystemPrompt: "You are a shop assistant.",
	}
}

func TestCreateAgent_Validation(t *testing.T) {
	reg, _ := newTestRegistry(t)
	ctx := context.Background()

	tests := []struct {
		name  string
		mod   func(*AgentInput)
		field string
	}{
		{"blank name", func(in *AgentInput) { in.Name = "   " }, "name"},
		{"unknown provider", func(in *AgentInput) { in.Provider = "anthropic" }, "provider"},
		{"model from other provider", func(in *AgentInput) { in.Model = "gemini-1.5-flash" }, "model"},
		{"missing model", func(in *AgentInput) { in.Model = "" }, "model"},
		{"empty rule", func(in *AgentInput) { in.SteelRules = []models.SteelRule{{Text: " "}} }, "steelRules"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := validInput("Sales")
			tt.mod(&in)
			_, err := reg.CreateAgent(ctx, in)

			var verr *models.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.field, verr.Field)
		})
	}

	agents, err := reg.ListAgents(ctx)
	require.NoError(t, err)
	assert.Empty(t, agents)
}

func TestCreateAgent_SeedsFromGlobalPolicy(t *testing.T) {
	reg, _ := newTestRegistry(t)
	ctx := context.Background()

	_, err := reg.SetCustomerInfo(ctx, models.CollectionFlags{Name: false, Phone: true, Address: true})
	require.NoError(t, err)

	agent, err := reg.CreateAgent(ctx, validInput("  Sales  "))
	require.NoError(t, err)

	assert.Equal(t, "Sales", agent.Name)
	assert.True(t, agent.Active)
	assert.Equal(t, models.DefaultSteelRules(), agent.SteelRules)
	assert.Equal(t, models.CollectionFlags{Name: false, Phone: true, Address: true}, agent.CollectionFlags)
	assert.False(t, agent.HasAPIKey())
}

func TestCreateAgent_ExplicitFieldsWin(t *testing.T) {
	reg, _ := newTestRegistry(t)
	ctx := context.Background()

	in := validInput("Support")
	in.SteelRules = []models.SteelRule{}
	in.CollectName = boolPtr(false)
	in.Active = boolPtr(false)
	in.APIKey = "sk-agent"

	agent, err := reg.CreateAgent(ctx, in)
	require.NoError(t, err)

	assert.Empty(t, agent.SteelRules)
	assert.False(t, agent.CollectionFlags.Name)
	assert.True(t, agent.CollectionFlags.Phone)
	assert.False(t, agent.Active)
	assert.Equal(t, "sealed:sk-agent", agent.EncryptedAPIKey)
}

func TestCreateAgent_SealFailure(t *testing.T) {
	reg := New(storage.NewMemoryStore(), pricing.Default(), prefixSealer{fail: true})

	in := validInput("A")
	in.APIKey = "sk"
	_, err := reg.CreateAgent(context.Background(), in)
	assert.Error(t, err)
}

func TestCreateAgent_DefaultIsExclusive(t *testing.T) {
	reg, _ := newTestRegistry(t)
	ctx := context.Background()

	in := validInput("A")
	in.IsDefault = true
	a, err := reg.CreateAgent(ctx, in)
	require.NoError(t, err)

	in = validInput("B")
	in.IsDefault = true
	b, err := reg.CreateAgent(ctx, in)
	require.NoError(t, err)

	gotA, err := reg.GetAgent(ctx, a.ID)
	require.NoError(t, err)
	assert.False(t, gotA.IsDefault)

	gotB, err := reg.GetAgent(ctx, b.ID)
	require.NoError(t, err)
	assert.True(t, gotB.IsDefault)

	require.NoError(t, reg.SetDefaultAgent(ctx, a.ID))
	agents, err := reg.ListAgents(ctx)
	require.NoError(t, err)
	defaults := 0
	for _, ag := range agents {
		if ag.IsDefault {
			defaults++
			assert.Equal(t, a.ID, ag.ID)
		}
	}
	assert.Equal(t, 1, defaults)

	assert.ErrorIs(t, reg.SetDefaultAgent(ctx, uuid.New()), models.ErrNotFound)
}

func TestUpdateAgent_KeepsKeyWhenEmpty(t *testing.T) {
	reg, _ := newTestRegistry(t)
	ctx := context.Background()

	in := validInput("A")
	in.APIKey = "sk-original"
	created, err := reg.CreateAgent(ctx, in)
	require.NoError(t, err)

	upd := validInput("A2")
	upd.Provider = models.ProviderTypeGroq
	upd.Model = "llama3-70b-8192"
	updated, err := reg.UpdateAgent(ctx, created.ID, upd)
	require.NoError(t, err)

	assert.Equal(t, "A2", updated.Name)
	assert.Equal(t, models.ProviderTypeGroq, updated.Provider)
	assert.Equal(t, "sealed:sk-original", updated.EncryptedAPIKey)
	assert.Equal(t, created.SteelRules, updated.SteelRules)
	assert.Equal(t, created.CreatedAt, updated.CreatedAt)

	upd.APIKey = "sk-new"
	updated, err = reg.UpdateAgent(ctx, created.ID, upd)
	require.NoError(t, err)
	assert.Equal(t, "sealed:sk-new", updated.EncryptedAPIKey)
}

func TestUpdateAgent_NotFound(t *testing.T) {
	reg, _ := newTestRegistry(t)
	_, err := reg.UpdateAgent(context.Background(), uuid.New(), validInput("x"))
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestDeleteAgent_RemovesAssignments(t *testing.T) {
	reg, _ := newTestRegistry(t)
	ctx := context.Background()

	a, err := reg.CreateAgent(ctx, validInput("A"))
	require.NoError(t, err)
	b, err := reg.CreateAgent(ctx, validInput("B"))
	require.NoError(t, err)

	_, err = reg.Assign(ctx, "page-1", a.ID)
	require.NoError(t, err)
	_, err = reg.Assign(ctx, "page-2", a.ID)
	require.NoError(t, err)
	_, err = reg.Assign(ctx, "page-3", b.ID)
	require.NoError(t, err)

	require.NoError(t, reg.DeleteAgent(ctx, a.ID))

	assignments, err := reg.ListAssignments(ctx)
	require.NoError(t, err)
	require.Len(t, assignments, 1)
	assert.Equal(t, "page-3", assignments[0].PageID)

	assert.ErrorIs(t, reg.DeleteAgent(ctx, a.ID), models.ErrNotFound)
}

func TestAssign(t *testing.T) {
	reg, _ := newTestRegistry(t)
	ctx := context.Background()

	a, err := reg.CreateAgent(ctx, validInput("A"))
	require.NoError(t, err)
	b, err := reg.CreateAgent(ctx, validInput("B"))
	require.NoError(t, err)

	var verr *models.ValidationError
	_, err = reg.Assign(ctx, " ", a.ID)
	assert.ErrorAs(t, err, &verr)
	_, err = reg.Assign(ctx, "page", uuid.Nil)
	assert.ErrorAs(t, err, &verr)

	_, err = reg.Assign(ctx, "page", uuid.New())
	assert.ErrorIs(t, err, models.ErrNotFound)

	_, err = reg.Assign(ctx, "page", a.ID)
	require.NoError(t, err)
	_, err = reg.Assign(ctx, "page", b.ID)
	require.NoError(t, err)

	got, err := reg.GetAssignment(ctx, "page")
	require.NoError(t, err)
	assert.Equal(t, b.ID, got.AgentID)

	require.NoError(t, reg.Unassign(ctx, "page"))
	_, err = reg.GetAssignment(ctx, "page")
	assert.ErrorIs(t, err, models.ErrNotFound)
	assert.ErrorIs(t, reg.Unassign(ctx, "page"), models.ErrNotFound)
}

func TestNormalizeRules(t *testing.T) {
	tests := []struct {
		name string
		in   []models.SteelRule
		ids  []int
	}{
		{"keeps ids", []models.SteelRule{{ID: 4, Text: "a"}, {ID: 2, Text: "b"}}, []int{4, 2}},
		{"new rule gets max plus one", []models.SteelRule{{ID: 3, Text: "a"}, {Text: "b"}}, []int{3, 4}},
		{"duplicate renumbered", []models.SteelRule{{ID: 1, Text: "a"}, {ID: 1, Text: "b"}}, []int{1, 2}},
		{"all new", []models.SteelRule{{Text: "a"}, {Text: "b"}}, []int{1, 2}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := NormalizeRules(tt.in)
			require.NoError(t, err)
			ids := make([]int, len(out))
			for i, r := range out {
				ids[i] = r.ID
			}
			assert.Equal(t, tt.ids, ids)
		})
	}

	out, err := NormalizeRules([]models.SteelRule{{Text: "  trim me  ", Active: true}})
	require.NoError(t, err)
	assert.Equal(t, "trim me", out[0].Text)
	assert.True(t, out[0].Active)
}

func TestUpdateGlobalConfig(t *testing.T) {
	reg, _ := newTestRegistry(t)
	ctx := context.Background()

	cfg, err := reg.GlobalConfig(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.ProviderTypeOpenAI, cfg.Provider)
	assert.Equal(t, "gpt-4o-mini", cfg.Model)

	cfg, err = reg.UpdateGlobalConfig(ctx, GlobalConfigInput{Provider: models.ProviderTypeOpenAI, Model: "gpt-4o", APIKey: "sk-openai"})
	require.NoError(t, err)
	cfg, err = reg.UpdateGlobalConfig(ctx, GlobalConfigInput{Provider: models.ProviderTypeGemini, Model: "gemini-2.0-flash", APIKey: "g-key"})
	require.NoError(t, err)
	cfg, err = reg.UpdateGlobalConfig(ctx, GlobalConfigInput{Provider: models.ProviderTypeGemini, Model: "gemini-1.5-pro"})
	require.NoError(t, err)

	stored, err := reg.GlobalConfig(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.ProviderTypeGemini, stored.Provider)
	assert.Equal(t, "gemini-1.5-pro", stored.Model)
	assert.Equal(t, "sealed:sk-openai", stored.APIKeys[models.ProviderTypeOpenAI])
	assert.Equal(t, "sealed:g-key", stored.APIKeys[models.ProviderTypeGemini])

	var verr *models.ValidationError
	_, err = reg.UpdateGlobalConfig(ctx, GlobalConfigInput{Provider: models.ProviderTypeGroq, Model: "gpt-4o"})
	assert.ErrorAs(t, err, &verr)
}

func TestGlobalPolicySetters(t *testing.T) {
	reg, _ := newTestRegistry(t)
	ctx := context.Background()

	p, err := reg.GlobalPolicy(ctx)
	require.NoError(t, err)
	assert.True(t, p.BotActive)
	assert.Len(t, p.SteelRules, 3)

	_, err = reg.SetTrainingPrompt(ctx, "Be brief.")
	require.NoError(t, err)
	_, err = reg.SetSteelRules(ctx, []models.SteelRule{{ID: 1, Text: "No discounts", Active: true}, {Text: "No prices", Active: false}})
	require.NoError(t, err)
	_, err = reg.SetBotActive(ctx, false)
	require.NoError(t, err)

	p, err = reg.GlobalPolicy(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Be brief.", p.TrainingPrompt)
	require.Len(t, p.SteelRules, 2)
	assert.Equal(t, 2, p.SteelRules[1].ID)
	assert.False(t, p.BotActive)

	_, err = reg.SetSteelRules(ctx, []models.SteelRule{{Text: strings.Repeat(" ", 3)}})
	assert.Error(t, err)
}

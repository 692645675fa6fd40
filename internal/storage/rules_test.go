package storage

import (
	"context"
	"testing"
	"time"

	"github.com/monbudget/monbudget/internal/common"
	"github.com/monbudget/monbudget/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func int64Ptr(v int64) *int64 { return &v }
func strPtr(v string) *string { return &v }

func TestRules_CreateAndGet(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	cat, err := store.CreateCategory(ctx, 1, "Alimentation", nil)
	require.NoError(t, err)

	rule := &model.Rule{
		UserID:    1,
		Name:      "Carrefour → Alimentation",
		Pattern:   "CARREFOUR",
		MatchMode: model.MatchContains,
		Priority:  10,
		Enabled:   true,
		Actions: model.RuleActions{
			CategoryID:    &cat.ID,
			PaymentMethod: strPtr("carte"),
		},
	}

	require.NoError(t, store.CreateRule(ctx, rule))
	require.NotZero(t, rule.ID)

	got, err := store.GetRule(ctx, rule.ID)
	require.NoError(t, err)
	assert.Equal(t, "Carrefour → Alimentation", got.Name)
	assert.Equal(t, model.MatchContains, got.MatchMode)
	assert.Equal(t, 10, got.Priority)
	assert.True(t, got.Enabled)
	assert.False(t, got.CaseSensitive)
	require.NotNil(t, got.Actions.CategoryID)
	assert.Equal(t, cat.ID, *got.Actions.CategoryID)
	assert.Nil(t, got.Actions.SubCategoryID)
	assert.Nil(t, got.Actions.PayeeID)
	assert.Equal(t, strPtr("carte"), got.Actions.PaymentMethod)
	assert.Zero(t, got.UseCount)
	assert.Nil(t, got.LastAppliedAt)
}

func TestRules_GetNotFound(t *testing.T) {
	store := newTestStorage(t)

	_, err := store.GetRule(context.Background(), 999)
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestRules_Validation(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	tests := []struct {
		name string
		rule *model.Rule
	}{
		{
			name: "nil rule",
			rule: nil,
		},
		{
			name: "missing pattern",
			rule: &model.Rule{UserID: 1, Name: "r", MatchMode: model.MatchContains},
		},
		{
			name: "bad match mode",
			rule: &model.Rule{UserID: 1, Name: "r", Pattern: "x", MatchMode: "fuzzy"},
		},
		{
			name: "priority out of range",
			rule: &model.Rule{UserID: 1, Name: "r", Pattern: "x", MatchMode: model.MatchContains, Priority: 1000},
		},
		{
			name: "missing user",
			rule: &model.Rule{Name: "r", Pattern: "x", MatchMode: model.MatchContains},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, store.CreateRule(ctx, tt.rule))
		})
	}
}

func TestRules_ListActiveOrdering(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	// Same priority: creation order must break the tie.
	for _, r := range []model.Rule{
		{UserID: 1, Name: "second", Pattern: "B", MatchMode: model.MatchContains, Priority: 50, Enabled: true},
		{UserID: 1, Name: "first", Pattern: "A", MatchMode: model.MatchContains, Priority: 10, Enabled: true},
		{UserID: 1, Name: "tied with second", Pattern: "C", MatchMode: model.MatchContains, Priority: 50, Enabled: true},
		{UserID: 1, Name: "disabled", Pattern: "D", MatchMode: model.MatchContains, Priority: 0, Enabled: false},
		{UserID: 2, Name: "other user", Pattern: "E", MatchMode: model.MatchContains, Priority: 0, Enabled: true},
	} {
		rule := r
		require.NoError(t, store.CreateRule(ctx, &rule))
	}

	active, err := store.ListActiveRules(ctx, 1)
	require.NoError(t, err)
	require.Len(t, active, 3)
	assert.Equal(t, "first", active[0].Name)
	assert.Equal(t, "second", active[1].Name)
	assert.Equal(t, "tied with second", active[2].Name)

	all, err := store.ListRules(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, all, 4)
}

func TestRules_UpdateAndDelete(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	rule := &model.Rule{
		UserID: 1, Name: "r", Pattern: "ORANGE", MatchMode: model.MatchContains,
		Priority: 5, Enabled: true,
	}
	require.NoError(t, store.CreateRule(ctx, rule))

	rule.Pattern = "ORANGE SA"
	rule.Priority = 7
	rule.CaseSensitive = true
	require.NoError(t, store.UpdateRule(ctx, rule))

	got, err := store.GetRule(ctx, rule.ID)
	require.NoError(t, err)
	assert.Equal(t, "ORANGE SA", got.Pattern)
	assert.Equal(t, 7, got.Priority)
	assert.True(t, got.CaseSensitive)

	require.NoError(t, store.DeleteRule(ctx, rule.ID))
	assert.ErrorIs(t, store.DeleteRule(ctx, rule.ID), common.ErrNotFound)
}

func TestRules_SetEnabled(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	rule := &model.Rule{
		UserID: 1, Name: "r", Pattern: "X", MatchMode: model.MatchContains, Enabled: true,
	}
	require.NoError(t, store.CreateRule(ctx, rule))

	require.NoError(t, store.SetRuleEnabled(ctx, rule.ID, false))

	active, err := store.ListActiveRules(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, active)

	require.NoError(t, store.SetRuleEnabled(ctx, rule.ID, true))

	active, err = store.ListActiveRules(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, active, 1)
}

func TestRules_IncrementUsage(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	rule := &model.Rule{
		UserID: 1, Name: "r", Pattern: "X", MatchMode: model.MatchContains, Enabled: true,
	}
	require.NoError(t, store.CreateRule(ctx, rule))

	when := time.Date(2025, 3, 15, 10, 30, 0, 0, time.UTC)
	require.NoError(t, store.IncrementRuleUsage(ctx, rule.ID, when))
	require.NoError(t, store.IncrementRuleUsage(ctx, rule.ID, when.Add(time.Hour)))

	got, err := store.GetRule(ctx, rule.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.UseCount)
	require.NotNil(t, got.LastAppliedAt)
	assert.Equal(t, when.Add(time.Hour), got.LastAppliedAt.UTC())

	assert.ErrorIs(t, store.IncrementRuleUsage(ctx, 999, when), common.ErrNotFound)
}

package rules

import (
	"testing"

	"github.com/monbudget/monbudget/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPreview(t *testing.T) {
	rs := BuildRuleSet([]model.Rule{
		{ID: 1, Priority: 1, Pattern: "ORANGE", MatchMode: model.MatchContains, Enabled: true,
			Actions: model.RuleActions{CategoryID: idPtr(3), PaymentMethod: strPtr("prelevement")}},
		{ID: 2, Priority: 2, Pattern: "NETFLIX", MatchMode: model.MatchContains, Enabled: true,
			Actions: model.RuleActions{CategoryID: idPtr(4)}},
	})

	result := Preview("PRLV ORANGE SEPA", rs)

	require.NotNil(t, result.CategoryID)
	assert.Equal(t, int64(3), *result.CategoryID)
	assert.Equal(t, strPtr("prelevement"), result.PaymentMethod)
	assert.Equal(t, []int64{1}, result.FiredRules)
}

func TestPreview_DisabledRulesNeverFire(t *testing.T) {
	rs := BuildRuleSet([]model.Rule{
		{ID: 1, Pattern: "ORANGE", MatchMode: model.MatchContains, Enabled: false,
			Actions: model.RuleActions{CategoryID: idPtr(3)}},
	})

	result := Preview("PRLV ORANGE SEPA", rs)

	assert.Nil(t, result.CategoryID)
	assert.Empty(t, result.FiredRules)
}

func TestPreview_NoMatchIsIdentity(t *testing.T) {
	rs := BuildRuleSet([]model.Rule{
		{ID: 1, Pattern: "ORANGE", MatchMode: model.MatchContains, Enabled: true,
			Actions: model.RuleActions{CategoryID: idPtr(3)}},
	})

	result := Preview("CHQ 0004521", rs)

	assert.Nil(t, result.CategoryID)
	assert.Nil(t, result.SubCategoryID)
	assert.Nil(t, result.PayeeID)
	assert.Nil(t, result.PaymentMethod)
	assert.Empty(t, result.FiredRules)
}

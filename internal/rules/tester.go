package rules

import (
	"github.com/monbudget/monbudget/internal/model"
)

// Preview classifies an ad-hoc label against a rule set using a synthetic
// transaction with all four target fields unset. Nothing is persisted and no
// usage counters move; this exists purely for interactive what-if exploration
// when authoring rules.
func Preview(label string, rs *RuleSet) model.ClassificationResult {
	return Classify(model.Transaction{Label: label}, rs)
}

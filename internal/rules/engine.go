package rules

import (
	"github.com/monbudget/monbudget/internal/model"
)

// Classify runs the rule set over one transaction and returns the resulting
// field set plus the rules that fired. It is a pure function: identical
// inputs always produce identical output, and the transaction itself is not
// modified.
//
// Resolution is first-fill-wins per field, independently: the first rule in
// evaluation order to supply a value for a field wins, and a field the
// transaction already holds is never touched. A rule "fires" only when it
// contributes at least one field.
func Classify(txn model.Transaction, rs *RuleSet) model.ClassificationResult {
	result := model.ClassificationResult{
		CategoryID:    txn.CategoryID,
		SubCategoryID: txn.SubCategoryID,
		PayeeID:       txn.PayeeID,
		PaymentMethod: txn.PaymentMethod,
	}

	for i := range rs.rules {
		if result.Complete() {
			break
		}

		rule := &rs.rules[i]
		if !rule.Matches(txn.Label) {
			continue
		}

		if applyActions(&result, rule.rule.Actions) {
			result.FiredRules = append(result.FiredRules, rule.rule.ID)
		}
	}

	return result
}

// applyActions assigns every action field whose target is still unset and
// reports whether anything was assigned.
func applyActions(result *model.ClassificationResult, actions model.RuleActions) bool {
	applied := false
	if actions.CategoryID != nil && result.CategoryID == nil {
		result.CategoryID = actions.CategoryID
		applied = true
	}
	if actions.SubCategoryID != nil && result.SubCategoryID == nil {
		result.SubCategoryID = actions.SubCategoryID
		applied = true
	}
	if actions.PayeeID != nil && result.PayeeID == nil {
		result.PayeeID = actions.PayeeID
		applied = true
	}
	if actions.PaymentMethod != nil && result.PaymentMethod == nil {
		result.PaymentMethod = actions.PaymentMethod
		applied = true
	}
	return applied
}

package rules

import (
	"sort"

	"github.com/monbudget/monbudget/internal/model"
)

// Warning records a rule that could not be compiled. The rule stays in the
// set but never matches; the caller decides how to surface the condition.
type Warning struct {
	Err    error
	RuleID int64
}

// RuleSet is an immutable, priority-ordered snapshot of a user's active rules.
// It is built once per run (bulk pass, import, or preview) and never re-read
// mid-run, so a run is internally consistent even if rules are edited
// concurrently.
type RuleSet struct {
	rules    []CompiledRule
	warnings []Warning
}

// BuildRuleSet assembles the active rule set from all of a user's rules:
// disabled rules are dropped, the rest are stable-sorted by ascending
// priority (creation order breaks ties), and regex patterns are compiled.
func BuildRuleSet(all []model.Rule) *RuleSet {
	rs := &RuleSet{rules: make([]CompiledRule, 0, len(all))}

	for _, rule := range all {
		if !rule.Enabled {
			continue
		}
		compiled, err := compileRule(rule)
		if err != nil {
			rs.warnings = append(rs.warnings, Warning{RuleID: rule.ID, Err: err})
		}
		rs.rules = append(rs.rules, compiled)
	}

	sort.SliceStable(rs.rules, func(i, j int) bool {
		return rs.rules[i].rule.Priority < rs.rules[j].rule.Priority
	})

	return rs
}

// Rules returns the compiled rules in evaluation order.
func (rs *RuleSet) Rules() []CompiledRule {
	return rs.rules
}

// Warnings returns the invalid-pattern warnings collected during the build,
// keyed by rule id.
func (rs *RuleSet) Warnings() []Warning {
	return rs.warnings
}

// Len returns the number of active rules in the set.
func (rs *RuleSet) Len() int {
	return len(rs.rules)
}

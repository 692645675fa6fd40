// Package rules implements the transaction auto-classification engine: rule
// matching, active rule-set assembly, and per-field first-fill-wins
// classification.
package rules

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/monbudget/monbudget/internal/common"
	"github.com/monbudget/monbudget/internal/model"
)

// CompiledRule pairs a rule with its pre-compiled matching state. Regex
// patterns are compiled once at rule-set build time so the same rule set can
// be reused across a whole bulk pass.
type CompiledRule struct {
	re      *regexp.Regexp
	rule    model.Rule
	pattern string
	invalid bool
}

// Rule returns the underlying rule.
func (c *CompiledRule) Rule() model.Rule {
	return c.rule
}

// Matches evaluates the rule's pattern against a transaction label.
// A rule whose regex failed to compile never matches.
func (c *CompiledRule) Matches(label string) bool {
	if c.invalid {
		return false
	}

	switch c.rule.MatchMode {
	case model.MatchRegex:
		return c.re.MatchString(label)
	case model.MatchContains:
		return strings.Contains(c.fold(label), c.pattern)
	case model.MatchStartsWith:
		return strings.HasPrefix(c.fold(label), c.pattern)
	case model.MatchEndsWith:
		return strings.HasSuffix(c.fold(label), c.pattern)
	}

	return false
}

// fold lowercases the label for case-insensitive comparison. The pattern side
// is folded once at compile time.
func (c *CompiledRule) fold(label string) string {
	if c.rule.CaseSensitive {
		return label
	}
	return strings.ToLower(label)
}

// compileRule prepares a rule for repeated evaluation. For regex rules the
// pattern is compiled here; a malformed regex marks the rule invalid rather
// than failing the build.
func compileRule(rule model.Rule) (CompiledRule, error) {
	c := CompiledRule{rule: rule, pattern: rule.Pattern}

	if !rule.CaseSensitive {
		c.pattern = strings.ToLower(rule.Pattern)
	}

	if rule.MatchMode == model.MatchRegex {
		re, err := compileRegex(rule.Pattern, rule.CaseSensitive)
		if err != nil {
			c.invalid = true
			return c, err
		}
		c.re = re
	}

	return c, nil
}

// compileRegex compiles a user-supplied pattern, applying the case-insensitive
// flag instead of folding the pattern text.
func compileRegex(pattern string, caseSensitive bool) (*regexp.Regexp, error) {
	if !caseSensitive {
		pattern = "(?i)" + pattern
	}
	return regexp.Compile(pattern)
}

// MatchRule evaluates a single rule against a label without a pre-built rule
// set. Used for interactive single-rule tests; a malformed regex is returned
// as an error rather than silently failing closed.
func MatchRule(rule model.Rule, label string) (bool, error) {
	if !rule.MatchMode.Valid() {
		return false, fmt.Errorf("%w: %q", common.ErrInvalidMatchMode, rule.MatchMode)
	}

	c, err := compileRule(rule)
	if err != nil {
		return false, fmt.Errorf("%w: %q: %v", common.ErrInvalidRulePattern, rule.Pattern, err)
	}

	return c.Matches(label), nil
}

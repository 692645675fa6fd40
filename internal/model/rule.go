// Package model defines the core data structures for the monbudget application.
package model

import (
	"time"
)

// MatchMode is the string-matching strategy a rule uses against a transaction label.
type MatchMode string

// Match mode constants.
const (
	MatchContains   MatchMode = "contains"
	MatchStartsWith MatchMode = "starts_with"
	MatchEndsWith   MatchMode = "ends_with"
	MatchRegex      MatchMode = "regex"
)

// Valid reports whether the match mode is one of the four supported modes.
func (m MatchMode) Valid() bool {
	switch m {
	case MatchContains, MatchStartsWith, MatchEndsWith, MatchRegex:
		return true
	}
	return false
}

// RuleActions is the set of field assignments a rule applies when it matches.
// Each field is optional; a nil field means the rule does not opine on it.
type RuleActions struct {
	CategoryID    *int64  `json:"category_id,omitempty"`
	SubCategoryID *int64  `json:"sub_category_id,omitempty"`
	PayeeID       *int64  `json:"payee_id,omitempty"`
	PaymentMethod *string `json:"payment_method,omitempty"`
}

// IsEmpty reports whether the action set assigns nothing.
func (a RuleActions) IsEmpty() bool {
	return a.CategoryID == nil && a.SubCategoryID == nil && a.PayeeID == nil && a.PaymentMethod == nil
}

// Rule is a user-authored automation rule that enriches transactions whose
// label matches its pattern. Rules are evaluated in ascending priority order;
// ties are broken by creation order.
type Rule struct {
	CreatedAt     time.Time   `json:"created_at"`
	UpdatedAt     time.Time   `json:"updated_at"`
	LastAppliedAt *time.Time  `json:"last_applied_at,omitempty"`
	Name          string      `json:"name"`
	Pattern       string      `json:"pattern"`
	MatchMode     MatchMode   `json:"match_mode"`
	Actions       RuleActions `json:"actions"`
	ID            int64       `json:"id"`
	UserID        int64       `json:"user_id"`
	Priority      int         `json:"priority"`
	UseCount      int         `json:"use_count"`
	CaseSensitive bool        `json:"case_sensitive"`
	Enabled       bool        `json:"enabled"`
}

// MaxPriority is the highest priority value a rule may carry. Lower values
// are evaluated first.
const MaxPriority = 999

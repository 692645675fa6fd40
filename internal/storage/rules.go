package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/monbudget/monbudget/internal/common"
	"github.com/monbudget/monbudget/internal/model"
)

const ruleColumns = `id, user_id, name, pattern, match_mode, case_sensitive,
	priority, enabled, category_id, sub_category_id, payee_id, payment_method,
	use_count, last_applied_at, created_at, updated_at`

// CreateRule creates a new automation rule.
func (s *SQLiteStorage) CreateRule(ctx context.Context, rule *model.Rule) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateRule(rule); err != nil {
		return err
	}

	query := `
		INSERT INTO automation_rules (
			user_id, name, pattern, match_mode, case_sensitive,
			priority, enabled, category_id, sub_category_id, payee_id, payment_method
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := s.db.ExecContext(ctx, query,
		rule.UserID, rule.Name, rule.Pattern, string(rule.MatchMode), rule.CaseSensitive,
		rule.Priority, rule.Enabled,
		int64PtrToNull(rule.Actions.CategoryID), int64PtrToNull(rule.Actions.SubCategoryID),
		int64PtrToNull(rule.Actions.PayeeID), strPtrToNull(rule.Actions.PaymentMethod),
	)
	if err != nil {
		return fmt.Errorf("failed to create rule: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get rule ID: %w", err)
	}

	rule.ID = id
	rule.CreatedAt = time.Now()
	rule.UpdatedAt = time.Now()

	return nil
}

// GetRule retrieves an automation rule by ID.
func (s *SQLiteStorage) GetRule(ctx context.Context, id int64) (*model.Rule, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	query := `SELECT ` + ruleColumns + ` FROM automation_rules WHERE id = ?`

	rule, err := scanRule(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("rule %d: %w", id, common.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get rule: %w", err)
	}

	return rule, nil
}

// ListRules retrieves all rules for a user, ordered by priority.
func (s *SQLiteStorage) ListRules(ctx context.Context, userID int64) ([]model.Rule, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	query := `
		SELECT ` + ruleColumns + `
		FROM automation_rules
		WHERE user_id = ?
		ORDER BY priority ASC, id ASC
	`

	return s.queryRules(ctx, query, userID)
}

// ListActiveRules retrieves enabled rules for a user, ordered by
// priority ASC with id ASC as the insertion-order tie-break. This ordering is
// what makes rule evaluation deterministic across runs.
func (s *SQLiteStorage) ListActiveRules(ctx context.Context, userID int64) ([]model.Rule, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	query := `
		SELECT ` + ruleColumns + `
		FROM automation_rules
		WHERE user_id = ? AND enabled = 1
		ORDER BY priority ASC, id ASC
	`

	return s.queryRules(ctx, query, userID)
}

// UpdateRule updates an existing automation rule.
func (s *SQLiteStorage) UpdateRule(ctx context.Context, rule *model.Rule) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateRule(rule); err != nil {
		return err
	}

	query := `
		UPDATE automation_rules SET
			name = ?, pattern = ?, match_mode = ?, case_sensitive = ?,
			priority = ?, enabled = ?, category_id = ?, sub_category_id = ?,
			payee_id = ?, payment_method = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`

	result, err := s.db.ExecContext(ctx, query,
		rule.Name, rule.Pattern, string(rule.MatchMode), rule.CaseSensitive,
		rule.Priority, rule.Enabled,
		int64PtrToNull(rule.Actions.CategoryID), int64PtrToNull(rule.Actions.SubCategoryID),
		int64PtrToNull(rule.Actions.PayeeID), strPtrToNull(rule.Actions.PaymentMethod),
		rule.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update rule: %w", err)
	}

	return requireRowsAffected(result, rule.ID)
}

// DeleteRule deletes an automation rule.
func (s *SQLiteStorage) DeleteRule(ctx context.Context, id int64) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, "DELETE FROM automation_rules WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete rule: %w", err)
	}

	return requireRowsAffected(result, id)
}

// SetRuleEnabled toggles a rule's enabled flag.
func (s *SQLiteStorage) SetRuleEnabled(ctx context.Context, id int64, enabled bool) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	query := `UPDATE automation_rules SET enabled = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`
	result, err := s.db.ExecContext(ctx, query, enabled, id)
	if err != nil {
		return fmt.Errorf("failed to set rule enabled: %w", err)
	}

	return requireRowsAffected(result, id)
}

// IncrementRuleUsage bumps use_count and records when the rule last
// contributed a field to a transaction.
func (s *SQLiteStorage) IncrementRuleUsage(ctx context.Context, id int64, when time.Time) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	query := `
		UPDATE automation_rules
		SET use_count = use_count + 1, last_applied_at = ?
		WHERE id = ?
	`
	result, err := s.db.ExecContext(ctx, query, when, id)
	if err != nil {
		return fmt.Errorf("failed to increment rule usage: %w", err)
	}

	return requireRowsAffected(result, id)
}

// queryRules runs a rule query and scans all rows.
func (s *SQLiteStorage) queryRules(ctx context.Context, query string, args ...any) ([]model.Rule, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query rules: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var rules []model.Rule
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan rule: %w", err)
		}
		rules = append(rules, *rule)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rules: %w", err)
	}

	return rules, nil
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanRule scans one rule row in ruleColumns order.
func scanRule(row rowScanner) (*model.Rule, error) {
	var (
		rule          model.Rule
		matchMode     string
		categoryID    sql.NullInt64
		subCategoryID sql.NullInt64
		payeeID       sql.NullInt64
		paymentMethod sql.NullString
		lastApplied   sql.NullTime
	)

	err := row.Scan(
		&rule.ID, &rule.UserID, &rule.Name, &rule.Pattern, &matchMode, &rule.CaseSensitive,
		&rule.Priority, &rule.Enabled, &categoryID, &subCategoryID, &payeeID, &paymentMethod,
		&rule.UseCount, &lastApplied, &rule.CreatedAt, &rule.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	rule.MatchMode = model.MatchMode(matchMode)
	rule.Actions = model.RuleActions{
		CategoryID:    nullToInt64Ptr(categoryID),
		SubCategoryID: nullToInt64Ptr(subCategoryID),
		PayeeID:       nullToInt64Ptr(payeeID),
		PaymentMethod: nullToStrPtr(paymentMethod),
	}
	rule.LastAppliedAt = nullToTimePtr(lastApplied)

	return &rule, nil
}

// requireRowsAffected converts a zero-row update into a not-found error.
func requireRowsAffected(result sql.Result, id int64) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("rule %d: %w", id, common.ErrNotFound)
	}
	return nil
}

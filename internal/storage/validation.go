package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/monbudget/monbudget/internal/model"
)

// Validation errors.
var (
	ErrNilContext         = errors.New("context cannot be nil")
	ErrEmptyString        = errors.New("string parameter cannot be empty")
	ErrNilParameter       = errors.New("parameter cannot be nil")
	ErrEmptySlice         = errors.New("slice cannot be empty")
	ErrInvalidRule        = errors.New("invalid rule")
	ErrInvalidTransaction = errors.New("invalid transaction")
)

// validateContext ensures the context is not nil.
func validateContext(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	return nil
}

// validateString ensures a string parameter is not empty.
func validateString(s string, paramName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s", ErrEmptyString, paramName)
	}
	return nil
}

// validateRule validates an automation rule before writing it.
func validateRule(rule *model.Rule) error {
	if rule == nil {
		return fmt.Errorf("%w: rule", ErrNilParameter)
	}
	if err := validateString(rule.Name, "name"); err != nil {
		return err
	}
	if err := validateString(rule.Pattern, "pattern"); err != nil {
		return err
	}
	if !rule.MatchMode.Valid() {
		return fmt.Errorf("%w: match mode %q", ErrInvalidRule, rule.MatchMode)
	}
	if rule.Priority < 0 || rule.Priority > model.MaxPriority {
		return fmt.Errorf("%w: priority must be between 0 and %d", ErrInvalidRule, model.MaxPriority)
	}
	if rule.UserID == 0 {
		return fmt.Errorf("%w: missing user ID", ErrInvalidRule)
	}
	return nil
}

// validateTransactions validates a slice of transactions.
func validateTransactions(transactions []model.Transaction) error {
	if transactions == nil {
		return fmt.Errorf("%w: transactions", ErrNilParameter)
	}
	if len(transactions) == 0 {
		return fmt.Errorf("%w: transactions", ErrEmptySlice)
	}

	for i := range transactions {
		if err := validateTransaction(&transactions[i]); err != nil {
			return fmt.Errorf("transaction at index %d: %w", i, err)
		}
	}
	return nil
}

// validateTransaction validates a single transaction.
func validateTransaction(txn *model.Transaction) error {
	if txn == nil {
		return fmt.Errorf("%w: transaction", ErrNilParameter)
	}
	if txn.ID == "" {
		return fmt.Errorf("%w: missing ID", ErrInvalidTransaction)
	}
	if txn.Date.IsZero() {
		return fmt.Errorf("%w: missing date", ErrInvalidTransaction)
	}
	if txn.Label == "" {
		return fmt.Errorf("%w: missing label", ErrInvalidTransaction)
	}
	if txn.UserID == 0 {
		return fmt.Errorf("%w: missing user ID", ErrInvalidTransaction)
	}
	if txn.AccountID == 0 {
		return fmt.Errorf("%w: missing account ID", ErrInvalidTransaction)
	}
	switch txn.Direction {
	case model.DirectionCredit, model.DirectionDebit:
	default:
		return fmt.Errorf("%w: direction %q", ErrInvalidTransaction, txn.Direction)
	}
	return nil
}

// int64PtrToNull converts an *int64 to sql.NullInt64.
func int64PtrToNull(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}

// nullToInt64Ptr converts sql.NullInt64 to *int64.
func nullToInt64Ptr(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}
	n := v.Int64
	return &n
}

// strPtrToNull converts a *string to sql.NullString.
func strPtrToNull(v *string) sql.NullString {
	if v == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *v, Valid: true}
}

// nullToStrPtr converts sql.NullString to *string.
func nullToStrPtr(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	s := v.String
	return &s
}

// nullToTimePtr converts sql.NullTime to *time.Time.
func nullToTimePtr(v sql.NullTime) *time.Time {
	if !v.Valid {
		return nil
	}
	t := v.Time
	return &t
}

// Package service defines the boundary contracts between the rule engine and
// its collaborators (persistence, import pipeline, CLI).
package service

import (
	"context"
	"time"

	"github.com/monbudget/monbudget/internal/model"
)

// TransactionFilter narrows which transactions a bulk pass visits. The
// zero value selects everything for the user.
type TransactionFilter struct {
	Since          *time.Time
	Until          *time.Time
	AccountID      *int64
	OnlyUnassigned bool
}

// RuleStore is the persistence contract for automation rules.
type RuleStore interface {
	CreateRule(ctx context.Context, rule *model.Rule) error
	GetRule(ctx context.Context, id int64) (*model.Rule, error)
	ListRules(ctx context.Context, userID int64) ([]model.Rule, error)
	// ListActiveRules returns enabled rules ordered by priority ASC, id ASC.
	ListActiveRules(ctx context.Context, userID int64) ([]model.Rule, error)
	UpdateRule(ctx context.Context, rule *model.Rule) error
	DeleteRule(ctx context.Context, id int64) error
	SetRuleEnabled(ctx context.Context, id int64, enabled bool) error
	// IncrementRuleUsage bumps use_count and records when the rule last
	// contributed a field to a transaction.
	IncrementRuleUsage(ctx context.Context, id int64, when time.Time) error
}

// TransactionIterator streams transactions one at a time so bulk passes do
// not load the whole ledger into memory. Callers must Close it.
type TransactionIterator interface {
	Next() bool
	Transaction() model.Transaction
	Err() error
	Close() error
}

// TransactionStore is the persistence contract for ledger transactions.
type TransactionStore interface {
	SaveTransactions(ctx context.Context, transactions []model.Transaction) error
	GetTransactionByID(ctx context.Context, id string) (*model.Transaction, error)
	StreamTransactions(ctx context.Context, userID int64, filter TransactionFilter) (TransactionIterator, error)
	// UpdateTransactionAssignments persists only the four rule-assigned
	// fields of the transaction.
	UpdateTransactionAssignments(ctx context.Context, txn *model.Transaction) error
	TransactionExists(ctx context.Context, hash string) (bool, error)
	CountTransactions(ctx context.Context, userID int64) (int, error)
}

// CategoryStore is the persistence contract for categories and sub-categories.
type CategoryStore interface {
	CreateCategory(ctx context.Context, userID int64, name string, parentID *int64) (*model.Category, error)
	GetCategory(ctx context.Context, id int64) (*model.Category, error)
	ListCategories(ctx context.Context, userID int64) ([]model.Category, error)
	DeleteCategory(ctx context.Context, id int64) error
}

// PayeeStore is the persistence contract for payees.
type PayeeStore interface {
	CreatePayee(ctx context.Context, userID int64, name string) (*model.Payee, error)
	GetPayee(ctx context.Context, id int64) (*model.Payee, error)
	ListPayees(ctx context.Context, userID int64) ([]model.Payee, error)
}

// AccountStore is the persistence contract for bank accounts.
type AccountStore interface {
	CreateAccount(ctx context.Context, userID int64, name string) (*model.Account, error)
	ListAccounts(ctx context.Context, userID int64) ([]model.Account, error)
}

// Storage is the full persistence layer.
type Storage interface {
	RuleStore
	TransactionStore
	CategoryStore
	PayeeStore
	AccountStore

	Migrate(ctx context.Context) error
	Close() error
}

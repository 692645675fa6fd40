package model

import (
	"crypto/sha256"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// TransactionDirection indicates whether money flowed in or out of an account.
type TransactionDirection string

// Transaction direction constants.
const (
	DirectionCredit TransactionDirection = "credit"
	DirectionDebit  TransactionDirection = "debit"
)

// Transaction represents a single ledger entry from any source (import or
// manual entry). The four assignment fields are nil until a rule or the user
// fills them; the rule engine never overwrites a non-nil field.
type Transaction struct {
	Date          time.Time
	CategoryID    *int64
	SubCategoryID *int64
	PayeeID       *int64
	PaymentMethod *string
	ID            string
	Label         string
	Direction     TransactionDirection
	Hash          string
	Amount        decimal.Decimal
	UserID        int64
	AccountID     int64
	Imported      bool
}

// GenerateHash creates a stable hash for duplicate detection during import.
func (t *Transaction) GenerateHash() string {
	data := fmt.Sprintf("%d:%s:%s:%s:%s",
		t.AccountID,
		t.Date.Format("2006-01-02"),
		t.Amount.String(),
		t.Label,
		t.Direction)
	hash := sha256.Sum256([]byte(data))
	return fmt.Sprintf("%x", hash)
}

// Unassigned reports whether at least one of the four target fields is still
// unset and therefore eligible for rule assignment.
func (t *Transaction) Unassigned() bool {
	return t.CategoryID == nil || t.SubCategoryID == nil || t.PayeeID == nil || t.PaymentMethod == nil
}

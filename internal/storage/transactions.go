package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/mattn/go-sqlite3"
	"github.com/monbudget/monbudget/internal/common"
	"github.com/monbudget/monbudget/internal/model"
	"github.com/monbudget/monbudget/internal/service"
	"github.com/shopspring/decimal"
)

const transactionColumns = `id, hash, user_id, account_id, date, label, amount,
	direction, category_id, sub_category_id, payee_id, payment_method, imported`

// isUniqueViolation reports whether the error is a SQLite unique constraint
// failure, which the transactions table uses for hash-based deduplication.
func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}

// SaveTransactions persists a batch of transactions in a single database
// transaction.
func (s *SQLiteStorage) SaveTransactions(ctx context.Context, transactions []model.Transaction) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateTransactions(transactions); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO transactions (
			id, hash, user_id, account_id, date, label, amount, direction,
			category_id, sub_category_id, payee_id, payment_method, imported
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for i := range transactions {
		txn := &transactions[i]
		if txn.Hash == "" {
			txn.Hash = txn.GenerateHash()
		}
		_, err := stmt.ExecContext(ctx,
			txn.ID, txn.Hash, txn.UserID, txn.AccountID, txn.Date, txn.Label,
			txn.Amount.String(), string(txn.Direction),
			int64PtrToNull(txn.CategoryID), int64PtrToNull(txn.SubCategoryID),
			int64PtrToNull(txn.PayeeID), strPtrToNull(txn.PaymentMethod),
			txn.Imported,
		)
		if err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("transaction %s: %w", txn.ID, common.ErrDuplicateEntry)
			}
			return fmt.Errorf("failed to insert transaction %s: %w", txn.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transactions: %w", err)
	}

	return nil
}

// GetTransactionByID retrieves a single transaction.
func (s *SQLiteStorage) GetTransactionByID(ctx context.Context, id string) (*model.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(id, "id"); err != nil {
		return nil, err
	}

	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE id = ?`

	txn, err := scanTransaction(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("transaction %s: %w", id, common.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}

	return txn, nil
}

// StreamTransactions returns a cursor over a user's transactions so bulk
// passes do not hold the whole ledger in memory. Rows come back in date
// order; the caller must Close the iterator.
func (s *SQLiteStorage) StreamTransactions(ctx context.Context, userID int64, filter service.TransactionFilter) (service.TransactionIterator, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	var sb strings.Builder
	sb.WriteString(`SELECT ` + transactionColumns + ` FROM transactions WHERE user_id = ?`)
	args := []any{userID}

	if filter.AccountID != nil {
		sb.WriteString(" AND account_id = ?")
		args = append(args, *filter.AccountID)
	}
	if filter.Since != nil {
		sb.WriteString(" AND date >= ?")
		args = append(args, *filter.Since)
	}
	if filter.Until != nil {
		sb.WriteString(" AND date <= ?")
		args = append(args, *filter.Until)
	}
	if filter.OnlyUnassigned {
		sb.WriteString(` AND (category_id IS NULL
			OR sub_category_id IS NULL
			OR payee_id IS NULL
			OR payment_method IS NULL)`)
	}
	sb.WriteString(" ORDER BY date ASC, id ASC")

	rows, err := s.db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to stream transactions: %w", err)
	}

	return &transactionIterator{rows: rows}, nil
}

// UpdateTransactionAssignments persists only the four rule-assigned fields.
func (s *SQLiteStorage) UpdateTransactionAssignments(ctx context.Context, txn *model.Transaction) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if txn == nil {
		return fmt.Errorf("%w: transaction", ErrNilParameter)
	}
	if err := validateString(txn.ID, "id"); err != nil {
		return err
	}

	query := `
		UPDATE transactions SET
			category_id = ?, sub_category_id = ?, payee_id = ?, payment_method = ?
		WHERE id = ?
	`

	result, err := s.db.ExecContext(ctx, query,
		int64PtrToNull(txn.CategoryID), int64PtrToNull(txn.SubCategoryID),
		int64PtrToNull(txn.PayeeID), strPtrToNull(txn.PaymentMethod),
		txn.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update transaction assignments: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("transaction %s: %w", txn.ID, common.ErrNotFound)
	}

	return nil
}

// TransactionExists reports whether a transaction with the given duplicate-
// detection hash is already stored.
func (s *SQLiteStorage) TransactionExists(ctx context.Context, hash string) (bool, error) {
	if err := validateContext(ctx); err != nil {
		return false, err
	}
	if err := validateString(hash, "hash"); err != nil {
		return false, err
	}

	var count int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM transactions WHERE hash = ?", hash).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check transaction existence: %w", err)
	}

	return count > 0, nil
}

// CountTransactions returns the number of transactions for a user.
func (s *SQLiteStorage) CountTransactions(ctx context.Context, userID int64) (int, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}

	var count int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM transactions WHERE user_id = ?", userID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count transactions: %w", err)
	}

	return count, nil
}

// transactionIterator implements service.TransactionIterator over sql.Rows.
type transactionIterator struct {
	rows    *sql.Rows
	err     error
	current model.Transaction
}

func (it *transactionIterator) Next() bool {
	if it.err != nil {
		return false
	}
	if !it.rows.Next() {
		it.err = it.rows.Err()
		return false
	}

	txn, err := scanTransaction(it.rows)
	if err != nil {
		it.err = fmt.Errorf("failed to scan transaction: %w", err)
		return false
	}

	it.current = *txn
	return true
}

func (it *transactionIterator) Transaction() model.Transaction {
	return it.current
}

func (it *transactionIterator) Err() error {
	return it.err
}

func (it *transactionIterator) Close() error {
	return it.rows.Close()
}

// scanTransaction scans one transaction row in transactionColumns order.
func scanTransaction(row rowScanner) (*model.Transaction, error) {
	var (
		txn           model.Transaction
		amount        string
		direction     string
		categoryID    sql.NullInt64
		subCategoryID sql.NullInt64
		payeeID       sql.NullInt64
		paymentMethod sql.NullString
	)

	err := row.Scan(
		&txn.ID, &txn.Hash, &txn.UserID, &txn.AccountID, &txn.Date, &txn.Label,
		&amount, &direction, &categoryID, &subCategoryID, &payeeID, &paymentMethod,
		&txn.Imported,
	)
	if err != nil {
		return nil, err
	}

	txn.Amount, err = decimal.NewFromString(amount)
	if err != nil {
		return nil, fmt.Errorf("invalid stored amount %q: %w", amount, err)
	}
	txn.Direction = model.TransactionDirection(direction)
	txn.CategoryID = nullToInt64Ptr(categoryID)
	txn.SubCategoryID = nullToInt64Ptr(subCategoryID)
	txn.PayeeID = nullToInt64Ptr(payeeID)
	txn.PaymentMethod = nullToStrPtr(paymentMethod)

	return &txn, nil
}

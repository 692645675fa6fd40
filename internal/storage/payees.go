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

// CreatePayee creates a payee.
func (s *SQLiteStorage) CreatePayee(ctx context.Context, userID int64, name string) (*model.Payee, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(name, "name"); err != nil {
		return nil, err
	}

	result, err := s.db.ExecContext(ctx,
		"INSERT INTO payees (user_id, name) VALUES (?, ?)", userID, name)
	if err != nil {
		return nil, fmt.Errorf("failed to create payee: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get payee ID: %w", err)
	}

	return &model.Payee{ID: id, UserID: userID, Name: name, CreatedAt: time.Now()}, nil
}

// GetPayee retrieves a payee by ID.
func (s *SQLiteStorage) GetPayee(ctx context.Context, id int64) (*model.Payee, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	var payee model.Payee
	err := s.db.QueryRowContext(ctx,
		"SELECT id, user_id, name, created_at FROM payees WHERE id = ?", id).
		Scan(&payee.ID, &payee.UserID, &payee.Name, &payee.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("payee %d: %w", id, common.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get payee: %w", err)
	}

	return &payee, nil
}

// ListPayees retrieves all of a user's payees in alphabetical order.
func (s *SQLiteStorage) ListPayees(ctx context.Context, userID int64) ([]model.Payee, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, user_id, name, created_at FROM payees WHERE user_id = ? ORDER BY name ASC", userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list payees: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var payees []model.Payee
	for rows.Next() {
		var payee model.Payee
		if err := rows.Scan(&payee.ID, &payee.UserID, &payee.Name, &payee.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan payee: %w", err)
		}
		payees = append(payees, payee)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating payees: %w", err)
	}

	return payees, nil
}

// CreateAccount creates a bank account.
func (s *SQLiteStorage) CreateAccount(ctx context.Context, userID int64, name string) (*model.Account, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(name, "name"); err != nil {
		return nil, err
	}

	result, err := s.db.ExecContext(ctx,
		"INSERT INTO accounts (user_id, name) VALUES (?, ?)", userID, name)
	if err != nil {
		return nil, fmt.Errorf("failed to create account: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get account ID: %w", err)
	}

	return &model.Account{ID: id, UserID: userID, Name: name, CreatedAt: time.Now()}, nil
}

// ListAccounts retrieves all of a user's accounts.
func (s *SQLiteStorage) ListAccounts(ctx context.Context, userID int64) ([]model.Account, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, user_id, name, created_at FROM accounts WHERE user_id = ? ORDER BY id ASC", userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var accounts []model.Account
	for rows.Next() {
		var account model.Account
		if err := rows.Scan(&account.ID, &account.UserID, &account.Name, &account.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		accounts = append(accounts, account)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating accounts: %w", err)
	}

	return accounts, nil
}

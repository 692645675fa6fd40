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

// CreateCategory creates a category. A non-nil parentID makes it a
// sub-category of that parent.
func (s *SQLiteStorage) CreateCategory(ctx context.Context, userID int64, name string, parentID *int64) (*model.Category, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(name, "name"); err != nil {
		return nil, err
	}

	if parentID != nil {
		parent, err := s.GetCategory(ctx, *parentID)
		if err != nil {
			return nil, fmt.Errorf("parent category: %w", err)
		}
		if parent.ParentID != nil {
			return nil, fmt.Errorf("category %q is already a sub-category and cannot be a parent", parent.Name)
		}
	}

	result, err := s.db.ExecContext(ctx,
		"INSERT INTO categories (user_id, name, parent_id) VALUES (?, ?, ?)",
		userID, name, int64PtrToNull(parentID))
	if err != nil {
		return nil, fmt.Errorf("failed to create category: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get category ID: %w", err)
	}

	return &model.Category{
		ID:        id,
		UserID:    userID,
		Name:      name,
		ParentID:  parentID,
		CreatedAt: time.Now(),
	}, nil
}

// GetCategory retrieves a category by ID.
func (s *SQLiteStorage) GetCategory(ctx context.Context, id int64) (*model.Category, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	var (
		cat      model.Category
		parentID sql.NullInt64
	)
	err := s.db.QueryRowContext(ctx,
		"SELECT id, user_id, name, parent_id, created_at FROM categories WHERE id = ?", id).
		Scan(&cat.ID, &cat.UserID, &cat.Name, &parentID, &cat.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("category %d: %w", id, common.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get category: %w", err)
	}

	cat.ParentID = nullToInt64Ptr(parentID)
	return &cat, nil
}

// ListCategories retrieves all of a user's categories, parents before
// sub-categories, alphabetical within each level.
func (s *SQLiteStorage) ListCategories(ctx context.Context, userID int64) ([]model.Category, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, name, parent_id, created_at
		FROM categories
		WHERE user_id = ?
		ORDER BY parent_id IS NOT NULL, name ASC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var categories []model.Category
	for rows.Next() {
		var (
			cat      model.Category
			parentID sql.NullInt64
		)
		if err := rows.Scan(&cat.ID, &cat.UserID, &cat.Name, &parentID, &cat.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		cat.ParentID = nullToInt64Ptr(parentID)
		categories = append(categories, cat)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating categories: %w", err)
	}

	return categories, nil
}

// DeleteCategory deletes a category.
func (s *SQLiteStorage) DeleteCategory(ctx context.Context, id int64) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, "DELETE FROM categories WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete category: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("category %d: %w", id, common.ErrNotFound)
	}

	return nil
}

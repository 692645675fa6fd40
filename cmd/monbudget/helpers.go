package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/monbudget/monbudget/internal/common"
	"github.com/monbudget/monbudget/internal/config"
	"github.com/monbudget/monbudget/internal/model"
	"github.com/monbudget/monbudget/internal/service"
	"github.com/monbudget/monbudget/internal/storage"
	"github.com/spf13/viper"
)

// ruleReader is the subset of storage the single-rule tester needs.
type ruleReader interface {
	GetRule(ctx context.Context, id int64) (*model.Rule, error)
}

// nameResolver is the subset of storage used to turn ids into names in
// preview output.
type nameResolver interface {
	GetCategory(ctx context.Context, id int64) (*model.Category, error)
	GetPayee(ctx context.Context, id int64) (*model.Payee, error)
}

// initStorage initializes the storage service with proper path expansion.
func initStorage(ctx context.Context) (service.Storage, error) {
	// Get database path from config
	dbPath := viper.GetString("database.path")
	if dbPath == "" {
		dbPath = "$HOME/.local/share/monbudget/monbudget.db"
	}

	// Expand tilde and environment variables
	dbPath = config.ExpandPath(dbPath)

	// Initialize storage
	store, err := storage.NewSQLiteStorage(dbPath)
	if err != nil {
		return nil, common.NewUserError(fmt.Sprintf("cannot open database at %s", dbPath), err)
	}

	// Run migrations
	if err := store.Migrate(ctx); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return store, nil
}

// currentUserID returns the ledger owner's id. The database schema is
// multi-user; the CLI operates on the one user configured under user.id.
func currentUserID() int64 {
	if id := viper.GetInt64("user.id"); id > 0 {
		return id
	}
	return 1
}

func parseID(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", arg)
	}
	return id, nil
}

func parseOptionalID(value string) (*int64, error) {
	if value == "" {
		return nil, nil
	}
	id, err := parseID(value)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

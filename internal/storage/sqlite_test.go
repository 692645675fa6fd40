package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestStorage creates a migrated SQLite storage backed by a temp file.
func newTestStorage(t *testing.T) *SQLiteStorage {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test.db")
	store, err := NewSQLiteStorage(dbPath)
	require.NoError(t, err)

	t.Cleanup(func() {
		require.NoError(t, store.Close())
	})

	require.NoError(t, store.Migrate(context.Background()))
	return store
}

func TestNewSQLiteStorage_EmptyPath(t *testing.T) {
	_, err := NewSQLiteStorage("")
	assert.Error(t, err)
}

func TestMigrate_Idempotent(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	// Running migrations again is a no-op.
	require.NoError(t, store.Migrate(ctx))

	version, err := store.currentSchemaVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, ExpectedSchemaVersion, version)
}

func TestCategories_CRUD(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	parent, err := store.CreateCategory(ctx, 1, "Alimentation", nil)
	require.NoError(t, err)
	require.NotZero(t, parent.ID)

	sub, err := store.CreateCategory(ctx, 1, "Supermarché", &parent.ID)
	require.NoError(t, err)
	require.NotNil(t, sub.ParentID)
	assert.Equal(t, parent.ID, *sub.ParentID)

	// A sub-category cannot itself be a parent.
	_, err = store.CreateCategory(ctx, 1, "Bio", &sub.ID)
	assert.Error(t, err)

	got, err := store.GetCategory(ctx, sub.ID)
	require.NoError(t, err)
	assert.Equal(t, "Supermarché", got.Name)
	assert.True(t, got.IsSubCategory())

	all, err := store.ListCategories(ctx, 1)
	require.NoError(t, err)
	require.Len(t, all, 2)
	// Parents come before sub-categories.
	assert.Equal(t, "Alimentation", all[0].Name)

	require.NoError(t, store.DeleteCategory(ctx, sub.ID))
	_, err = store.GetCategory(ctx, sub.ID)
	assert.Error(t, err)
}

func TestCategories_ScopedByUser(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	_, err := store.CreateCategory(ctx, 1, "Logement", nil)
	require.NoError(t, err)
	_, err = store.CreateCategory(ctx, 2, "Transport", nil)
	require.NoError(t, err)

	user1, err := store.ListCategories(ctx, 1)
	require.NoError(t, err)
	require.Len(t, user1, 1)
	assert.Equal(t, "Logement", user1[0].Name)
}

func TestPayees_CRUD(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	payee, err := store.CreatePayee(ctx, 1, "Carrefour")
	require.NoError(t, err)
	require.NotZero(t, payee.ID)

	got, err := store.GetPayee(ctx, payee.ID)
	require.NoError(t, err)
	assert.Equal(t, "Carrefour", got.Name)

	_, err = store.CreatePayee(ctx, 1, "Auchan")
	require.NoError(t, err)

	all, err := store.ListPayees(ctx, 1)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "Auchan", all[0].Name) // alphabetical
}

func TestAccounts_CreateAndList(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	account, err := store.CreateAccount(ctx, 1, "Compte courant")
	require.NoError(t, err)
	require.NotZero(t, account.ID)

	all, err := store.ListAccounts(ctx, 1)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "Compte courant", all[0].Name)
}

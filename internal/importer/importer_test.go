package importer

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/monbudget/monbudget/internal/model"
	"github.com/monbudget/monbudget/internal/service"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func idPtr(v int64) *int64 { return &v }

// mockStores is an in-memory Stores implementation for ingest tests.
type mockStores struct {
	service.RuleStore
	service.TransactionStore

	rules       []model.Rule
	stored      map[string]bool // hashes already in the ledger
	saved       []model.Transaction
	usage       map[int64]int
	failOnLabel string
}

func newMockStores(rules []model.Rule, existingHashes ...string) *mockStores {
	stored := make(map[string]bool)
	for _, hash := range existingHashes {
		stored[hash] = true
	}
	return &mockStores{
		rules:  rules,
		stored: stored,
		usage:  make(map[int64]int),
	}
}

func (m *mockStores) ListActiveRules(_ context.Context, _ int64) ([]model.Rule, error) {
	return m.rules, nil
}

func (m *mockStores) IncrementRuleUsage(_ context.Context, id int64, _ time.Time) error {
	m.usage[id]++
	return nil
}

func (m *mockStores) TransactionExists(_ context.Context, hash string) (bool, error) {
	return m.stored[hash], nil
}

func (m *mockStores) SaveTransactions(_ context.Context, transactions []model.Transaction) error {
	for _, txn := range transactions {
		if txn.Label == m.failOnLabel {
			return errors.New("disk full")
		}
		m.stored[txn.Hash] = true
		m.saved = append(m.saved, txn)
	}
	return nil
}

func testTransaction(label string, amount string) model.Transaction {
	return model.Transaction{
		ID:        "t-" + label,
		Date:      time.Date(2024, 12, 1, 0, 0, 0, 0, time.UTC),
		Label:     label,
		Amount:    decimal.RequireFromString(amount),
		Direction: model.DirectionDebit,
	}
}

func TestIngestSavesAndClassifies(t *testing.T) {
	rules := []model.Rule{
		{ID: 1, Priority: 10, Pattern: "Picnic", MatchMode: model.MatchContains, Enabled: true,
			Actions: model.RuleActions{CategoryID: idPtr(5)}},
	}
	stores := newMockStores(rules)

	result, err := NewIngestor(stores).Ingest(context.Background(), 1, 2, []model.Transaction{
		testTransaction("CB Picnic", "45.50"),
		testTransaction("VIR SEPA EMPLOYEUR", "2500"),
	})
	require.NoError(t, err)

	assert.Equal(t, 2, result.Imported)
	assert.Equal(t, 1, result.AutoClassified)
	assert.Zero(t, result.Duplicates)
	assert.Zero(t, result.Failed)

	require.Len(t, stores.saved, 2)
	groceries := stores.saved[0]
	assert.Equal(t, int64(1), groceries.UserID)
	assert.Equal(t, int64(2), groceries.AccountID)
	assert.True(t, groceries.Imported)
	assert.NotEmpty(t, groceries.Hash)
	assert.Equal(t, idPtr(5), groceries.CategoryID)

	salary := stores.saved[1]
	assert.Nil(t, salary.CategoryID)
	assert.Equal(t, 1, stores.usage[1])
}

func TestIngestSkipsStoredDuplicates(t *testing.T) {
	existing := testTransaction("CB Picnic", "45.50")
	existing.UserID = 1
	existing.AccountID = 2
	existing.Imported = true
	existingHash := existing.GenerateHash()

	stores := newMockStores(nil, existingHash)

	result, err := NewIngestor(stores).Ingest(context.Background(), 1, 2, []model.Transaction{
		testTransaction("CB Picnic", "45.50"),
		testTransaction("CB Boulangerie", "3.40"),
	})
	require.NoError(t, err)

	assert.Equal(t, 1, result.Imported)
	assert.Equal(t, 1, result.Duplicates)
	require.Len(t, stores.saved, 1)
	assert.Equal(t, "CB Boulangerie", stores.saved[0].Label)
}

func TestIngestSkipsInFileDuplicates(t *testing.T) {
	stores := newMockStores(nil)

	result, err := NewIngestor(stores).Ingest(context.Background(), 1, 2, []model.Transaction{
		testTransaction("CB Picnic", "45.50"),
		testTransaction("CB Picnic", "45.50"),
	})
	require.NoError(t, err)

	assert.Equal(t, 1, result.Imported)
	assert.Equal(t, 1, result.Duplicates)
}

func TestIngestSameAmountDifferentDirection(t *testing.T) {
	// A credit is never a duplicate of a debit of the same amount.
	debit := testTransaction("VIREMENT", "100")
	credit := testTransaction("VIREMENT", "100")
	credit.Direction = model.DirectionCredit

	stores := newMockStores(nil)

	result, err := NewIngestor(stores).Ingest(context.Background(), 1, 2, []model.Transaction{debit, credit})
	require.NoError(t, err)

	assert.Equal(t, 2, result.Imported)
	assert.Zero(t, result.Duplicates)
}

func TestIngestContinuesPastSaveFailures(t *testing.T) {
	stores := newMockStores(nil)
	stores.failOnLabel = "CB Picnic"

	result, err := NewIngestor(stores).Ingest(context.Background(), 1, 2, []model.Transaction{
		testTransaction("CB Picnic", "45.50"),
		testTransaction("CB Boulangerie", "3.40"),
	})
	require.NoError(t, err)

	assert.Equal(t, 1, result.Failed)
	assert.Equal(t, 1, result.Imported)
}

func TestIngestNoCountersOnFailedSave(t *testing.T) {
	rules := []model.Rule{
		{ID: 1, Priority: 10, Pattern: "Picnic", MatchMode: model.MatchContains, Enabled: true,
			Actions: model.RuleActions{CategoryID: idPtr(5)}},
	}
	stores := newMockStores(rules)
	stores.failOnLabel = "CB Picnic"

	result, err := NewIngestor(stores).Ingest(context.Background(), 1, 2, []model.Transaction{
		testTransaction("CB Picnic", "45.50"),
	})
	require.NoError(t, err)

	assert.Equal(t, 1, result.Failed)
	assert.Zero(t, result.AutoClassified)
	assert.Empty(t, stores.usage)
}

func TestIngestInvalidRegexRuleDoesNotBlockImport(t *testing.T) {
	rules := []model.Rule{
		{ID: 1, Priority: 10, Pattern: "[invalid", MatchMode: model.MatchRegex, Enabled: true,
			Actions: model.RuleActions{CategoryID: idPtr(5)}},
		{ID: 2, Priority: 20, Pattern: "Picnic", MatchMode: model.MatchContains, Enabled: true,
			Actions: model.RuleActions{CategoryID: idPtr(7)}},
	}
	stores := newMockStores(rules)

	result, err := NewIngestor(stores).Ingest(context.Background(), 1, 2, []model.Transaction{
		testTransaction("CB Picnic", "45.50"),
	})
	require.NoError(t, err)

	assert.Equal(t, 1, result.Imported)
	assert.Equal(t, 1, result.AutoClassified)
	assert.Equal(t, idPtr(7), stores.saved[0].CategoryID)
}

func TestIngestEmptyFile(t *testing.T) {
	stores := newMockStores(nil)

	result, err := NewIngestor(stores).Ingest(context.Background(), 1, 2, nil)
	require.NoError(t, err)

	assert.Zero(t, result.Imported)
	assert.Zero(t, result.Duplicates)
	assert.Zero(t, result.Failed)
}

// Package importer turns bank export files (CSV, OFX/QFX) into ledger
// transactions, deduplicates them against what is already stored, and runs
// the automation rules over each new row before it is persisted.
package importer

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/monbudget/monbudget/internal/model"
	"github.com/monbudget/monbudget/internal/rules"
	"github.com/monbudget/monbudget/internal/service"
)

// Stores is the persistence surface an import needs.
type Stores interface {
	service.RuleStore
	service.TransactionStore
}

// Result summarizes one import run.
type Result struct {
	Imported       int
	Duplicates     int
	Failed         int
	AutoClassified int
}

// Ingestor persists parsed transactions. Every transaction is hashed for
// duplicate detection and classified by the active rules before it is saved.
type Ingestor struct {
	stores Stores
	now    func() time.Time
}

// NewIngestor creates an ingestor backed by the given stores.
func NewIngestor(stores Stores) *Ingestor {
	return &Ingestor{stores: stores, now: time.Now}
}

// Ingest saves the transactions for the given user and account. Duplicates
// (already stored, or repeated within the same file) are skipped. A save
// failure on one transaction is counted and the run continues.
func (i *Ingestor) Ingest(ctx context.Context, userID, accountID int64, transactions []model.Transaction) (*Result, error) {
	activeRules, err := i.stores.ListActiveRules(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load rules: %w", err)
	}

	ruleSet := rules.BuildRuleSet(activeRules)
	for _, warning := range ruleSet.Warnings() {
		slog.Warn("Skipping rule with invalid pattern",
			"rule_id", warning.RuleID,
			"error", warning.Err)
	}

	result := &Result{}
	seen := make(map[string]bool, len(transactions))

	for _, txn := range transactions {
		select {
		case <-ctx.Done():
			return result, ctx.Err()
		default:
		}

		txn.UserID = userID
		txn.AccountID = accountID
		txn.Imported = true
		txn.Hash = txn.GenerateHash()

		if seen[txn.Hash] {
			result.Duplicates++
			continue
		}
		seen[txn.Hash] = true

		exists, err := i.stores.TransactionExists(ctx, txn.Hash)
		if err != nil {
			return result, fmt.Errorf("failed to check for duplicate: %w", err)
		}
		if exists {
			result.Duplicates++
			continue
		}

		classification := rules.Classify(txn, ruleSet)
		applied := classification.ApplyTo(&txn)

		if err := i.stores.SaveTransactions(ctx, []model.Transaction{txn}); err != nil {
			result.Failed++
			slog.Error("Failed to save transaction, continuing",
				"label", txn.Label,
				"date", txn.Date.Format("2006-01-02"),
				"error", err)
			continue
		}

		result.Imported++
		if applied {
			result.AutoClassified++
			i.recordRuleFires(ctx, classification.FiredRules)
		}
	}

	slog.Info("Import complete",
		"user_id", userID,
		"account_id", accountID,
		"imported", result.Imported,
		"duplicates", result.Duplicates,
		"failed", result.Failed,
		"auto_classified", result.AutoClassified)

	return result, nil
}

func (i *Ingestor) recordRuleFires(ctx context.Context, firedRules []int64) {
	when := i.now()
	for _, ruleID := range firedRules {
		if err := i.stores.IncrementRuleUsage(ctx, ruleID, when); err != nil {
			slog.Error("Failed to update rule usage counter",
				"rule_id", ruleID,
				"error", err)
		}
	}
}

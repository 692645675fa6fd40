// Package engine orchestrates bulk reclassification: it streams a user's
// transactions through the rule engine and persists the resulting field
// assignments.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/monbudget/monbudget/internal/model"
	"github.com/monbudget/monbudget/internal/rules"
	"github.com/monbudget/monbudget/internal/service"
)

// Stores is the subset of persistence the reclassifier needs.
type Stores interface {
	service.RuleStore
	service.TransactionStore
}

// ProgressFunc is called after each processed transaction.
type ProgressFunc func(processed int)

// Reclassifier applies the active rule set to existing transactions.
type Reclassifier struct {
	stores   Stores
	progress ProgressFunc
	locks    userLocks
	now      func() time.Time
}

// Option configures a Reclassifier.
type Option func(*Reclassifier)

// WithProgress registers a callback invoked after each processed transaction.
func WithProgress(fn ProgressFunc) Option {
	return func(r *Reclassifier) {
		r.progress = fn
	}
}

// withClock overrides the time source. Used by tests.
func withClock(now func() time.Time) Option {
	return func(r *Reclassifier) {
		r.now = now
	}
}

// New creates a reclassifier backed by the given stores.
func New(stores Stores, opts ...Option) *Reclassifier {
	r := &Reclassifier{
		stores: stores,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ApplyToAll runs the active rule set over every transaction selected by the
// filter and persists the changes. The rule set is loaded once at the start
// and never re-read, so the run is internally consistent even if rules are
// edited while it executes.
//
// Runs for the same user are serialized; two concurrent passes over the same
// ledger could interleave reads and writes and double-count rule usage. Runs
// for different users proceed in parallel.
//
// A persistence failure on one transaction is recorded and skipped; the run
// continues. The returned stats always satisfy
// Processed == Changed + Unchanged + Failed.
func (r *Reclassifier) ApplyToAll(ctx context.Context, userID int64, filter service.TransactionFilter) (*model.BulkStats, error) {
	unlock := r.locks.lock(userID)
	defer unlock()

	allRules, err := r.stores.ListActiveRules(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load rules: %w", err)
	}

	ruleSet := rules.BuildRuleSet(allRules)
	for _, warning := range ruleSet.Warnings() {
		slog.Warn("Skipping rule with invalid pattern",
			"rule_id", warning.RuleID,
			"error", warning.Err)
	}

	slog.Info("Starting bulk reclassification",
		"user_id", userID,
		"active_rules", ruleSet.Len())

	iter, err := r.stores.StreamTransactions(ctx, userID, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to stream transactions: %w", err)
	}
	defer func() { _ = iter.Close() }()

	stats := &model.BulkStats{RuleFires: make(map[int64]int)}

	for iter.Next() {
		select {
		case <-ctx.Done():
			return stats, ctx.Err()
		default:
		}

		txn := iter.Transaction()
		stats.Processed++

		result := rules.Classify(txn, ruleSet)
		if !result.ApplyTo(&txn) {
			stats.Unchanged++
			r.reportProgress(stats.Processed)
			continue
		}

		if err := r.stores.UpdateTransactionAssignments(ctx, &txn); err != nil {
			stats.Failed++
			slog.Error("Failed to persist transaction, continuing",
				"transaction_id", txn.ID,
				"error", err)
			r.reportProgress(stats.Processed)
			continue
		}

		stats.Changed++
		r.recordRuleFires(ctx, result.FiredRules, stats)
		r.reportProgress(stats.Processed)
	}

	if err := iter.Err(); err != nil {
		return stats, fmt.Errorf("transaction stream failed: %w", err)
	}

	slog.Info("Bulk reclassification complete",
		"user_id", userID,
		"processed", stats.Processed,
		"changed", stats.Changed,
		"unchanged", stats.Unchanged,
		"failed", stats.Failed)

	return stats, nil
}

// recordRuleFires updates usage counters for every rule that contributed a
// field. Counter failures are logged but do not fail the transaction: the
// assignment itself is already committed.
func (r *Reclassifier) recordRuleFires(ctx context.Context, firedRules []int64, stats *model.BulkStats) {
	when := r.now()
	for _, ruleID := range firedRules {
		stats.RuleFires[ruleID]++
		if err := r.stores.IncrementRuleUsage(ctx, ruleID, when); err != nil {
			slog.Error("Failed to update rule usage counter",
				"rule_id", ruleID,
				"error", err)
		}
	}
}

func (r *Reclassifier) reportProgress(processed int) {
	if r.progress != nil {
		r.progress(processed)
	}
}

// userLocks serializes bulk runs per user.
type userLocks struct {
	mu    sync.Mutex
	users map[int64]*sync.Mutex
}

func (l *userLocks) lock(userID int64) func() {
	l.mu.Lock()
	if l.users == nil {
		l.users = make(map[int64]*sync.Mutex)
	}
	userMu, ok := l.users[userID]
	if !ok {
		userMu = &sync.Mutex{}
		l.users[userID] = userMu
	}
	l.mu.Unlock()

	userMu.Lock()
	return userMu.Unlock
}

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/monbudget/monbudget/internal/cli"
	"github.com/monbudget/monbudget/internal/engine"
	"github.com/monbudget/monbudget/internal/service"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

func applyCmd() *cobra.Command {
	var (
		onlyUnassigned bool
		accountID      string
		since          string
		until          string
	)

	cmd := &cobra.Command{
		Use:   "apply",
		Short: "Apply the active rules to stored transactions",
		Long: `Run every enabled rule over the transactions already in the ledger.
Fields a rule or the user has already set are never overwritten, so
rerunning is always safe. Use --unassigned-only=false to also visit
transactions that are already fully classified.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			handler := cli.NewInterruptHandler(os.Stdout)
			ctx := handler.HandleInterrupts(cmd.Context(), true)

			filter := service.TransactionFilter{OnlyUnassigned: onlyUnassigned}

			var err error
			if filter.AccountID, err = parseOptionalID(accountID); err != nil {
				return fmt.Errorf("--account: %w", err)
			}
			if filter.Since, err = parseOptionalDate(since); err != nil {
				return fmt.Errorf("--since: %w", err)
			}
			if filter.Until, err = parseOptionalDate(until); err != nil {
				return fmt.Errorf("--until: %w", err)
			}

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			userID := currentUserID()

			total, err := store.CountTransactions(ctx, userID)
			if err != nil {
				return fmt.Errorf("failed to count transactions: %w", err)
			}
			if total == 0 {
				fmt.Println(cli.InfoStyle.Render("No transactions in the ledger yet. Import a statement first."))
				return nil
			}

			bar := newApplyProgressBar(total)
			reclassifier := engine.New(store, engine.WithProgress(func(int) {
				_ = bar.Add(1)
			}))

			stats, err := reclassifier.ApplyToAll(ctx, userID, filter)
			_ = bar.Finish()

			if err != nil {
				if errors.Is(err, context.Canceled) && handler.WasInterrupted() {
					slog.Info("Apply interrupted, partial results follow")
				} else {
					return fmt.Errorf("apply failed: %w", err)
				}
			}

			if stats != nil {
				fmt.Println(cli.RenderApplyStats(stats))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&onlyUnassigned, "unassigned-only", true, "Only visit transactions with at least one unset field")
	cmd.Flags().StringVar(&accountID, "account", "", "Limit to one account id")
	cmd.Flags().StringVar(&since, "since", "", "Only transactions on or after this date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&until, "until", "", "Only transactions on or before this date (YYYY-MM-DD)")

	return cmd
}

func newApplyProgressBar(total int) *progressbar.ProgressBar {
	return progressbar.NewOptions(total,
		progressbar.OptionSetWriter(os.Stdout),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionShowCount(),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetDescription("[cyan][bold]Applying rules...[reset]"),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]=[reset]",
			SaucerHead:    "[green]>[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
		progressbar.OptionOnCompletion(func() {
			fmt.Println()
		}),
	)
}

func parseOptionalDate(value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	date, err := time.Parse("2006-01-02", value)
	if err != nil {
		return nil, fmt.Errorf("invalid date %q, expected YYYY-MM-DD", value)
	}
	return &date, nil
}

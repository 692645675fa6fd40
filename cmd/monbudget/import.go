package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/monbudget/monbudget/internal/cli"
	"github.com/monbudget/monbudget/internal/config"
	"github.com/monbudget/monbudget/internal/importer"
	"github.com/monbudget/monbudget/internal/model"
	"github.com/spf13/cobra"
)

func importCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import bank statements",
		Long: `Import transactions from a bank export file. Duplicates are detected
and skipped, and the active rules classify every new transaction as it
comes in, so rerunning an import is always safe.`,
	}

	cmd.AddCommand(importCSVCmd())
	cmd.AddCommand(importOFXCmd())

	return cmd
}

func importCSVCmd() *cobra.Command {
	var (
		accountID string
		profile   string
		dateCol   int
		labelCol  int
		amountCol int
		debitCol  int
		creditCol int
		delimiter string
		noHeader  bool
	)

	cmd := &cobra.Command{
		Use:   "csv <file>",
		Short: "Import a CSV export",
		Long: `Import a CSV bank export. Column layout comes either from a named
profile in the config file (--profile) or from the column flags.

Example config profile:

  import:
    profiles:
      mabanque:
        delimiter: ";"
        date: 0
        label: 1
        debit: 2
        credit: 3`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			account, err := parseID(accountID)
			if err != nil {
				return fmt.Errorf("--account: %w", err)
			}

			mapping := importer.ColumnMapping{
				Date:   dateCol,
				Label:  labelCol,
				Amount: amountCol,
				Debit:  debitCol,
				Credit: creditCol,
			}
			// Explicit debit/credit columns replace the default amount column.
			if debitCol >= 0 && creditCol >= 0 && !cmd.Flags().Changed("amount-column") {
				mapping.Amount = -1
			}

			opts := []importer.CSVOption{}

			if profile != "" {
				loaded, err := config.LoadImportProfile(profile)
				if err != nil {
					return err
				}
				mapping = importer.ColumnMapping{
					Date:   loaded.Date,
					Label:  loaded.Label,
					Amount: loaded.Amount,
					Debit:  loaded.Debit,
					Credit: loaded.Credit,
				}
				delimiter = loaded.Delimiter
				noHeader = loaded.NoHeader
			}

			if delimiter != "" {
				opts = append(opts, importer.WithDelimiter([]rune(delimiter)[0]))
			}
			if noHeader {
				opts = append(opts, importer.WithoutHeader())
			}

			parser, err := importer.NewCSVParser(mapping, opts...)
			if err != nil {
				return err
			}

			file, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("failed to open file: %w", err)
			}
			defer func() { _ = file.Close() }()

			transactions, report, err := parser.Parse(file)
			if err != nil {
				return err
			}

			for _, rowErr := range report.Errors {
				fmt.Println(cli.FormatWarning(fmt.Sprintf("line %d: %v", rowErr.Line, rowErr.Err)))
			}

			return runIngest(cmd, account, transactions)
		},
	}

	cmd.Flags().StringVar(&accountID, "account", "", "Account id to import into (required)")
	cmd.Flags().StringVar(&profile, "profile", "", "Named import profile from the config file")
	cmd.Flags().IntVar(&dateCol, "date-column", 0, "Zero-based index of the date column")
	cmd.Flags().IntVar(&labelCol, "label-column", 1, "Zero-based index of the label column")
	cmd.Flags().IntVar(&amountCol, "amount-column", 2, "Zero-based index of the signed amount column (-1 if using debit/credit)")
	cmd.Flags().IntVar(&debitCol, "debit-column", -1, "Zero-based index of the debit column")
	cmd.Flags().IntVar(&creditCol, "credit-column", -1, "Zero-based index of the credit column")
	cmd.Flags().StringVar(&delimiter, "delimiter", "", "Field delimiter (default: detected from the file)")
	cmd.Flags().BoolVar(&noHeader, "no-header", false, "The file has no header line")
	_ = cmd.MarkFlagRequired("account")

	return cmd
}

func importOFXCmd() *cobra.Command {
	var accountID string

	cmd := &cobra.Command{
		Use:   "ofx <file>",
		Short: "Import an OFX/QFX export",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			account, err := parseID(accountID)
			if err != nil {
				return fmt.Errorf("--account: %w", err)
			}

			file, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("failed to open file: %w", err)
			}
			defer func() { _ = file.Close() }()

			transactions, err := importer.NewOFXParser().Parse(file)
			if err != nil {
				return err
			}

			return runIngest(cmd, account, transactions)
		},
	}

	cmd.Flags().StringVar(&accountID, "account", "", "Account id to import into (required)")
	_ = cmd.MarkFlagRequired("account")

	return cmd
}

func runIngest(cmd *cobra.Command, accountID int64, transactions []model.Transaction) error {
	handler := cli.NewInterruptHandler(os.Stdout)
	ctx := handler.HandleInterrupts(cmd.Context(), true)

	if len(transactions) == 0 {
		fmt.Println(cli.InfoStyle.Render("Nothing to import."))
		return nil
	}

	store, err := initStorage(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	result, err := importer.NewIngestor(store).Ingest(ctx, currentUserID(), accountID, transactions)
	if err != nil {
		if !(errors.Is(err, context.Canceled) && handler.WasInterrupted()) {
			return fmt.Errorf("import failed: %w", err)
		}
		slog.Info("Import interrupted, partial results follow")
	}
	if result == nil {
		return nil
	}

	lines := fmt.Sprintf(
		"Imported:        %s\nAuto-classified: %d\nDuplicates:      %d\nFailed:          %d",
		cli.SuccessStyle.Render(fmt.Sprintf("%d", result.Imported)),
		result.AutoClassified,
		result.Duplicates,
		result.Failed,
	)
	fmt.Println(cli.RenderBox("Import finished", lines))
	return nil
}

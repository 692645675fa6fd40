package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/charmbracelet/lipgloss"
	"github.com/monbudget/monbudget/internal/cli"
	"github.com/monbudget/monbudget/internal/model"
	"github.com/monbudget/monbudget/internal/rules"
	"github.com/spf13/cobra"
)

func rulesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "Manage automation rules",
		Long:  `List, add, delete, and test the rules that classify transactions automatically.`,
	}

	cmd.AddCommand(listRulesCmd())
	cmd.AddCommand(addRuleCmd())
	cmd.AddCommand(deleteRuleCmd())
	cmd.AddCommand(enableRuleCmd(true))
	cmd.AddCommand(enableRuleCmd(false))
	cmd.AddCommand(testRuleCmd())

	return cmd
}

func listRulesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all rules",
		Long:  `Display every rule in evaluation order with its usage statistics.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			ruleList, err := store.ListRules(ctx, currentUserID())
			if err != nil {
				return fmt.Errorf("failed to list rules: %w", err)
			}

			if len(ruleList) == 0 {
				fmt.Println(cli.InfoStyle.Render("No rules found. Use 'monbudget rules add' to create one."))
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			defer w.Flush()

			headerStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86"))
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
				headerStyle.Render("ID"),
				headerStyle.Render("Prio"),
				headerStyle.Render("Name"),
				headerStyle.Render("Mode"),
				headerStyle.Render("Pattern"),
				headerStyle.Render("Uses"),
				headerStyle.Render("State"))

			for _, rule := range ruleList {
				state := "enabled"
				if !rule.Enabled {
					state = cli.SubtleStyle.Render("disabled")
				}
				fmt.Fprintf(w, "%d\t%d\t%s\t%s\t%q\t%d\t%s\n",
					rule.ID, rule.Priority, rule.Name, rule.MatchMode, rule.Pattern, rule.UseCount, state)
			}

			return nil
		},
	}
}

func addRuleCmd() *cobra.Command {
	var (
		pattern       string
		matchMode     string
		caseSensitive bool
		priority      int
		categoryID    string
		subCategoryID string
		payeeID       string
		paymentMethod string
	)

	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Add a new rule",
		Long: `Create an automation rule. At least one action (--category,
--sub-category, --payee, --payment-method) is required.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			actions, err := parseActions(categoryID, subCategoryID, payeeID, paymentMethod)
			if err != nil {
				return err
			}
			if actions.IsEmpty() {
				return fmt.Errorf("rule must have at least one action")
			}

			rule := &model.Rule{
				UserID:        currentUserID(),
				Name:          args[0],
				Pattern:       pattern,
				MatchMode:     model.MatchMode(matchMode),
				CaseSensitive: caseSensitive,
				Priority:      priority,
				Enabled:       true,
				Actions:       actions,
			}

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			if err := store.CreateRule(ctx, rule); err != nil {
				return fmt.Errorf("failed to create rule: %w", err)
			}

			fmt.Println(cli.FormatSuccess(fmt.Sprintf("Created rule %q (ID: %d)", rule.Name, rule.ID)))
			return nil
		},
	}

	cmd.Flags().StringVar(&pattern, "pattern", "", "Pattern to match against transaction labels (required)")
	cmd.Flags().StringVar(&matchMode, "mode", string(model.MatchContains), "Match mode (contains, starts_with, ends_with, regex)")
	cmd.Flags().BoolVar(&caseSensitive, "case-sensitive", false, "Match case sensitively")
	cmd.Flags().IntVar(&priority, "priority", 100, "Evaluation priority, lower runs first (0-999)")
	cmd.Flags().StringVar(&categoryID, "category", "", "Category id to assign")
	cmd.Flags().StringVar(&subCategoryID, "sub-category", "", "Sub-category id to assign")
	cmd.Flags().StringVar(&payeeID, "payee", "", "Payee id to assign")
	cmd.Flags().StringVar(&paymentMethod, "payment-method", "", "Payment method to assign")
	_ = cmd.MarkFlagRequired("pattern")

	return cmd
}

func parseActions(categoryID, subCategoryID, payeeID, paymentMethod string) (model.RuleActions, error) {
	var actions model.RuleActions
	var err error

	if actions.CategoryID, err = parseOptionalID(categoryID); err != nil {
		return actions, fmt.Errorf("--category: %w", err)
	}
	if actions.SubCategoryID, err = parseOptionalID(subCategoryID); err != nil {
		return actions, fmt.Errorf("--sub-category: %w", err)
	}
	if actions.PayeeID, err = parseOptionalID(payeeID); err != nil {
		return actions, fmt.Errorf("--payee: %w", err)
	}
	if paymentMethod != "" {
		actions.PaymentMethod = &paymentMethod
	}
	return actions, nil
}

func deleteRuleCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a rule",
		Long:  `Delete a rule. Transactions it already classified keep their assignments.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			id, err := parseID(args[0])
			if err != nil {
				return err
			}

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			if !force {
				fmt.Printf("Are you sure you want to delete rule %d? (y/N): ", id)
				var response string
				fmt.Scanln(&response)
				if strings.ToLower(response) != "y" {
					fmt.Println("Deletion cancelled.")
					return nil
				}
			}

			if err := store.DeleteRule(ctx, id); err != nil {
				return fmt.Errorf("failed to delete rule: %w", err)
			}

			fmt.Println(cli.FormatSuccess(fmt.Sprintf("Deleted rule %d", id)))
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Skip confirmation prompt")

	return cmd
}

func enableRuleCmd(enable bool) *cobra.Command {
	use, short := "enable <id>", "Enable a rule"
	if !enable {
		use, short = "disable <id>", "Disable a rule without deleting it"
	}

	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			id, err := parseID(args[0])
			if err != nil {
				return err
			}

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			if err := store.SetRuleEnabled(ctx, id, enable); err != nil {
				return fmt.Errorf("failed to update rule: %w", err)
			}

			verb := "Enabled"
			if !enable {
				verb = "Disabled"
			}
			fmt.Println(cli.FormatSuccess(fmt.Sprintf("%s rule %d", verb, id)))
			return nil
		},
	}
}

func testRuleCmd() *cobra.Command {
	var ruleID string

	cmd := &cobra.Command{
		Use:   "test <label>",
		Short: "Preview what the rules would do with a label",
		Long: `Run the active rules against a sample transaction label and show
which rules fire and what they assign. Nothing is persisted and no
usage counter moves. With --rule, test a single rule instead.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			label := args[0]

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			if ruleID != "" {
				return testSingleRule(ctx, store, ruleID, label)
			}

			activeRules, err := store.ListActiveRules(ctx, currentUserID())
			if err != nil {
				return fmt.Errorf("failed to load rules: %w", err)
			}

			ruleSet := rules.BuildRuleSet(activeRules)
			for _, warning := range ruleSet.Warnings() {
				fmt.Println(cli.FormatWarning(fmt.Sprintf("rule %d has an invalid pattern: %v", warning.RuleID, warning.Err)))
			}

			result := rules.Preview(label, ruleSet)
			if len(result.FiredRules) == 0 {
				fmt.Println(cli.InfoStyle.Render("No rule matches this label."))
				return nil
			}

			fmt.Println(cli.RenderBox("Preview: "+label, formatPreview(ctx, store, result)))
			return nil
		},
	}

	cmd.Flags().StringVar(&ruleID, "rule", "", "Test only this rule id")

	return cmd
}

func testSingleRule(ctx context.Context, store ruleReader, ruleID, label string) error {
	id, err := parseID(ruleID)
	if err != nil {
		return err
	}

	rule, err := store.GetRule(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to load rule: %w", err)
	}

	matched, err := rules.MatchRule(*rule, label)
	if err != nil {
		return fmt.Errorf("rule %d has an invalid pattern: %w", id, err)
	}

	if matched {
		fmt.Println(cli.FormatSuccess(fmt.Sprintf("Rule %q matches %q", rule.Name, label)))
	} else {
		fmt.Println(cli.FormatInfo(fmt.Sprintf("Rule %q does not match %q", rule.Name, label)))
	}
	return nil
}

// formatPreview resolves assigned ids to names so the preview is readable.
func formatPreview(ctx context.Context, store nameResolver, result model.ClassificationResult) string {
	var lines []string

	if result.CategoryID != nil {
		lines = append(lines, "Category:       "+categoryName(ctx, store, *result.CategoryID))
	}
	if result.SubCategoryID != nil {
		lines = append(lines, "Sub-category:   "+categoryName(ctx, store, *result.SubCategoryID))
	}
	if result.PayeeID != nil {
		lines = append(lines, "Payee:          "+payeeName(ctx, store, *result.PayeeID))
	}
	if result.PaymentMethod != nil {
		lines = append(lines, "Payment method: "+*result.PaymentMethod)
	}

	fired := make([]string, len(result.FiredRules))
	for i, id := range result.FiredRules {
		fired[i] = fmt.Sprintf("#%d", id)
	}
	lines = append(lines, "Fired rules:    "+strings.Join(fired, ", "))

	return strings.Join(lines, "\n")
}

func categoryName(ctx context.Context, store nameResolver, id int64) string {
	if category, err := store.GetCategory(ctx, id); err == nil {
		return fmt.Sprintf("%s (#%d)", category.Name, id)
	}
	return fmt.Sprintf("#%d", id)
}

func payeeName(ctx context.Context, store nameResolver, id int64) string {
	if payee, err := store.GetPayee(ctx, id); err == nil {
		return fmt.Sprintf("%s (#%d)", payee.Name, id)
	}
	return fmt.Sprintf("#%d", id)
}

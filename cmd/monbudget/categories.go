package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/charmbracelet/lipgloss"
	"github.com/monbudget/monbudget/internal/cli"
	"github.com/spf13/cobra"
)

func categoriesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "categories",
		Short: "Manage categories",
		Long:  `List, add, and delete the categories and sub-categories rules can assign.`,
	}

	cmd.AddCommand(listCategoriesCmd())
	cmd.AddCommand(addCategoryCmd())
	cmd.AddCommand(deleteCategoryCmd())

	return cmd
}

func listCategoriesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all categories",
		Long:  `Display all categories with their sub-categories indented below them.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			categories, err := store.ListCategories(ctx, currentUserID())
			if err != nil {
				return fmt.Errorf("failed to list categories: %w", err)
			}

			if len(categories) == 0 {
				fmt.Println(cli.InfoStyle.Render("No categories found. Use 'monbudget categories add' to create one."))
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			defer w.Flush()

			headerStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86"))
			fmt.Fprintf(w, "%s\t%s\n",
				headerStyle.Render("ID"),
				headerStyle.Render("Name"))

			// Parents first, each followed by its sub-categories.
			for _, category := range categories {
				if category.IsSubCategory() {
					continue
				}
				fmt.Fprintf(w, "%d\t%s\n", category.ID, category.Name)
				for _, sub := range categories {
					if sub.ParentID != nil && *sub.ParentID == category.ID {
						fmt.Fprintf(w, "%d\t  └ %s\n", sub.ID, sub.Name)
					}
				}
			}

			return nil
		},
	}
}

func addCategoryCmd() *cobra.Command {
	var parentID string

	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Add a category",
		Long:  `Create a category. With --parent, create a sub-category of an existing one.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			parent, err := parseOptionalID(parentID)
			if err != nil {
				return fmt.Errorf("--parent: %w", err)
			}

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			category, err := store.CreateCategory(ctx, currentUserID(), args[0], parent)
			if err != nil {
				return fmt.Errorf("failed to create category: %w", err)
			}

			fmt.Println(cli.FormatSuccess(fmt.Sprintf("Created category %q (ID: %d)", category.Name, category.ID)))
			return nil
		},
	}

	cmd.Flags().StringVar(&parentID, "parent", "", "Parent category id (makes this a sub-category)")

	return cmd
}

func deleteCategoryCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a category",
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
				fmt.Printf("Are you sure you want to delete category %d? (y/N): ", id)
				var response string
				fmt.Scanln(&response)
				if strings.ToLower(response) != "y" {
					fmt.Println("Deletion cancelled.")
					return nil
				}
			}

			if err := store.DeleteCategory(ctx, id); err != nil {
				return fmt.Errorf("failed to delete category: %w", err)
			}

			fmt.Println(cli.FormatSuccess(fmt.Sprintf("Deleted category %d", id)))
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Skip confirmation prompt")

	return cmd
}

func payeesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "payees",
		Short: "Manage payees",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List all payees",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			payees, err := store.ListPayees(ctx, currentUserID())
			if err != nil {
				return fmt.Errorf("failed to list payees: %w", err)
			}

			if len(payees) == 0 {
				fmt.Println(cli.InfoStyle.Render("No payees found. Use 'monbudget payees add' to create one."))
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			defer w.Flush()
			for _, payee := range payees {
				fmt.Fprintf(w, "%d\t%s\n", payee.ID, payee.Name)
			}
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "add <name>",
		Short: "Add a payee",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			payee, err := store.CreatePayee(ctx, currentUserID(), args[0])
			if err != nil {
				return fmt.Errorf("failed to create payee: %w", err)
			}

			fmt.Println(cli.FormatSuccess(fmt.Sprintf("Created payee %q (ID: %d)", payee.Name, payee.ID)))
			return nil
		},
	})

	return cmd
}

func accountsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "accounts",
		Short: "Manage bank accounts",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List all accounts",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			accounts, err := store.ListAccounts(ctx, currentUserID())
			if err != nil {
				return fmt.Errorf("failed to list accounts: %w", err)
			}

			if len(accounts) == 0 {
				fmt.Println(cli.InfoStyle.Render("No accounts found. Use 'monbudget accounts add' to create one."))
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			defer w.Flush()
			for _, account := range accounts {
				fmt.Fprintf(w, "%d\t%s\n", account.ID, account.Name)
			}
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "add <name>",
		Short: "Add an account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			account, err := store.CreateAccount(ctx, currentUserID(), args[0])
			if err != nil {
				return fmt.Errorf("failed to create account: %w", err)
			}

			fmt.Println(cli.FormatSuccess(fmt.Sprintf("Created account %q (ID: %d)", account.Name, account.ID)))
			return nil
		},
	})

	return cmd
}

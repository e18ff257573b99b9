package commands

import (
	"fmt"
	"text/tabwriter"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/cleared-dev/compta/internal/accounts"
	"github.com/cleared-dev/compta/internal/auditlog"
	"github.com/cleared-dev/compta/internal/model"
	"github.com/cleared-dev/compta/internal/vat"
)

func newAccountsCommand(root *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "accounts",
		Aliases: []string{"account"},
		Short:   "Chart of accounts operations",
	}
	cmd.AddCommand(
		newAccountsListCommand(root),
		newAccountsAddCommand(root),
		newAccountsClassifyCommand(root),
		newAccountsRelabelCommand(root),
		newAccountsDeleteCommand(root),
	)
	return cmd
}

func newAccountsListCommand(root *rootOptions) *cobra.Command {
	var classe int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the chart of accounts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			b, err := openBooks(root, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer b.Close()

			list := b.accounts.All()
			if cmd.Flags().Changed("classe") {
				list = b.accounts.ByClasse(classe)
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "COMPTE\tLIBELLÉ\tTVA")
			for _, a := range list {
				rate := ""
				if a.VATRate.Valid {
					rate = a.VATRate.Decimal.Mul(decimal.NewFromInt(100)).String() + " %"
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\n", a.Number, a.Label, rate)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().IntVar(&classe, "classe", 0, "only accounts of this classe (1-9)")
	return cmd
}

func newAccountsAddCommand(root *rootOptions) *cobra.Command {
	var rate, expense, vatAccount string

	cmd := &cobra.Command{
		Use:   "add <number> <label>",
		Short: "Add an account to the chart",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := openBooks(root, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer b.Close()

			acct := model.Account{
				CompanyID:             b.cfg.Company.ID,
				Number:                model.AccountNumber(args[0]),
				Label:                 args[1],
				DefaultExpenseAccount: model.AccountNumber(expense),
				DefaultVATAccount:     model.AccountNumber(vatAccount),
			}
			if rate != "" {
				r, ok := vat.ParseRate(rate)
				if !ok {
					return fmt.Errorf("invalid VAT rate %q", rate)
				}
				acct.VATRate = decimal.NewNullDecimal(r)
			}
			if err := b.accounts.Add(acct); err != nil {
				return err
			}
			if err := b.record(cmd.Context(), auditlog.Record{Action: auditlog.ActionAccountAdd, Target: args[0], Details: args[1]}); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added %s %s\n", acct.Number, acct.Label)
			return nil
		},
	}
	cmd.Flags().StringVar(&rate, "vat-rate", "", "VAT rate of a 445 account (20, 5.5 %, 0.2)")
	cmd.Flags().StringVar(&expense, "default-account", "", "principal account proposed with this account")
	cmd.Flags().StringVar(&vatAccount, "vat-account", "", "VAT account proposed with this account")
	return cmd
}

func newAccountsClassifyCommand(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "classify <number>",
		Short: "Show what an account number means in the plan comptable",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			n := model.AccountNumber(args[0])
			c := accounts.Classify(n)

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "compte:     %s\n", n)
			fmt.Fprintf(out, "classe:     %d\n", c.Classe)
			fmt.Fprintf(out, "créance:    %t\n", c.Receivable)
			fmt.Fprintf(out, "dette:      %t\n", c.Payable)
			fmt.Fprintf(out, "tva:        %s\n", c.VATDirection)
			fmt.Fprintf(out, "charge:     %t\n", accounts.IsExpense(n))
			fmt.Fprintf(out, "produit:    %t\n", accounts.IsRevenue(n))

			// The chart is optional here: classify works outside a repository.
			if b, err := openBooks(root, cmd.ErrOrStderr()); err == nil {
				defer b.Close()
				if a, ok := b.accounts.Get(n); ok {
					fmt.Fprintf(out, "libellé:    %s\n", a.Label)
				}
			}
			return nil
		},
	}
}

func newAccountsRelabelCommand(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "relabel <number> <label>",
		Short: "Change the label of an account",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := openBooks(root, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer b.Close()

			if err := b.accounts.Relabel(model.AccountNumber(args[0]), args[1]); err != nil {
				return err
			}
			return b.record(cmd.Context(), auditlog.Record{Action: auditlog.ActionAccountRelabel, Target: args[0], Details: args[1]})
		},
	}
}

func newAccountsDeleteCommand(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <number>",
		Short: "Remove an account from the chart",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := openBooks(root, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer b.Close()

			if err := b.accounts.Delete(model.AccountNumber(args[0])); err != nil {
				return err
			}
			return b.record(cmd.Context(), auditlog.Record{Action: auditlog.ActionAccountDelete, Target: args[0]})
		},
	}
}

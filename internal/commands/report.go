package commands

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/compta/internal/export"
	"github.com/cleared-dev/compta/internal/fec"
	"github.com/cleared-dev/compta/internal/journal"
	"github.com/cleared-dev/compta/internal/ledger"
	"github.com/cleared-dev/compta/internal/model"
)

func newReportCommand(root *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Balance and grand livre",
	}
	cmd.AddCommand(newBalanceCommand(root), newGrandLivreCommand(root))
	return cmd
}

// reportEntries opens the books and returns every entry of the exercise.
func reportEntries(cmd *cobra.Command, root *rootOptions) ([]model.Entry, error) {
	b, err := openBooks(root, cmd.ErrOrStderr())
	if err != nil {
		return nil, err
	}
	defer b.Close()
	return b.journal.ListEntries(cmd.Context(), journal.Query{})
}

func newBalanceCommand(root *rootOptions) *cobra.Command {
	var (
		ff    filterFlags
		asCSV bool
	)

	cmd := &cobra.Command{
		Use:   "balance",
		Short: "Trial balance (balance générale)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			f, err := ff.filter()
			if err != nil {
				return err
			}
			entries, err := reportEntries(cmd, root)
			if err != nil {
				return err
			}
			b := ledger.TrialBalance(entries, f)
			if asCSV {
				return export.WriteBalance(cmd.OutOrStdout(), b)
			}
			return printBalance(cmd.OutOrStdout(), b)
		},
	}
	ff.register(cmd.Flags())
	cmd.Flags().BoolVar(&asCSV, "csv", false, "write CSV instead of a table")
	return cmd
}

func printBalance(w io.Writer, b ledger.Balance) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "COMPTE\tLIBELLÉ\tDÉBIT\tCRÉDIT\tSOLDE D\tSOLDE C\t")
	row := func(number, label string, t ledger.Totals) {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t\n", number, label,
			fec.FormatAmount(t.DebitTotal), fec.FormatAmount(t.CreditTotal),
			fec.FormatAmount(t.DebitBalance), fec.FormatAmount(t.CreditBalance))
	}
	for _, r := range b.Rows {
		row(r.Number.String(), r.Label, r.Totals)
	}
	for _, c := range b.Classes {
		row("", fmt.Sprintf("Total classe %d", c.Classe), c.Totals)
	}
	row("", "Total général", b.Total)
	if err := tw.Flush(); err != nil {
		return err
	}
	if !b.Balanced() {
		fmt.Fprintln(w, "ATTENTION: la balance n'est pas équilibrée")
	}
	return nil
}

func newGrandLivreCommand(root *rootOptions) *cobra.Command {
	var (
		ff    filterFlags
		asCSV bool
	)

	cmd := &cobra.Command{
		Use:     "grand-livre",
		Aliases: []string{"ledger"},
		Short:   "General ledger with running balances",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			f, err := ff.filter()
			if err != nil {
				return err
			}
			entries, err := reportEntries(cmd, root)
			if err != nil {
				return err
			}
			g := ledger.GeneralLedger(entries, f)
			if asCSV {
				return export.WriteGrandLivre(cmd.OutOrStdout(), g)
			}
			return printGrandLivre(cmd.OutOrStdout(), g)
		},
	}
	ff.register(cmd.Flags())
	cmd.Flags().BoolVar(&asCSV, "csv", false, "write CSV instead of a table")
	return cmd
}

func printGrandLivre(w io.Writer, g ledger.GrandLivre) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, a := range g.Accounts {
		fmt.Fprintf(tw, "%s %s\n", a.Number, a.Label)
		for _, m := range a.Movements {
			fmt.Fprintf(tw, "  %s\t%s\t%s\t%s\t%s\t%s\t\n",
				m.Date.Format(export.DateFormat), m.PieceNumber, m.Label,
				fec.FormatAmount(m.Debit), fec.FormatAmount(m.Credit), fec.FormatAmount(m.Balance))
		}
		fmt.Fprintf(tw, "  \t\tTotal %s\t%s\t%s\t%s\t\n", a.Number,
			fec.FormatAmount(a.TotalDebit), fec.FormatAmount(a.TotalCredit), fec.FormatAmount(a.Balance()))
	}
	fmt.Fprintf(tw, "\t\tTotal général\t%s\t%s\t\t\n", fec.FormatAmount(g.TotalDebit), fec.FormatAmount(g.TotalCredit))
	return tw.Flush()
}

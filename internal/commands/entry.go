package commands

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/compta/internal/auditlog"
	"github.com/cleared-dev/compta/internal/fec"
	"github.com/cleared-dev/compta/internal/journal"
	"github.com/cleared-dev/compta/internal/ledger"
	"github.com/cleared-dev/compta/internal/model"
	"github.com/cleared-dev/compta/internal/vat"
)

func newEntryCommand(root *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "entry",
		Aliases: []string{"entries"},
		Short:   "Journal entry operations",
	}
	cmd.AddCommand(
		newEntryAddCommand(root),
		newVATEntryCommand(root, purchaseKind),
		newVATEntryCommand(root, saleKind),
		newEntryListCommand(root),
		newEntryDeleteCommand(root),
	)
	return cmd
}

func newEntryAddCommand(root *rootOptions) *cobra.Command {
	var (
		journalCode, date, label, piece string
		debits, credits                 []string
	)

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a balanced entry",
		Example: `  compta entry add --journal OD --date 2025-01-15 --label "Apport" \
    --debit 512000=1000 --credit 101000=1000`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			b, err := openBooks(root, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer b.Close()

			d, err := parseDate(date)
			if err != nil {
				return err
			}
			e := model.Entry{JournalCode: strings.ToUpper(journalCode), Date: d, PieceNumber: piece, Label: label}
			for _, side := range []struct {
				flags []string
				debit bool
			}{{debits, true}, {credits, false}} {
				for _, raw := range side.flags {
					account, amt, lineLabel, err := parseLineFlag(raw)
					if err != nil {
						return err
					}
					l := model.JournalLine{AccountNumber: account, Label: lineLabel}
					if side.debit {
						l.Debit = amt
					} else {
						l.Credit = amt
					}
					e.Lines = append(e.Lines, l)
				}
			}

			stored, err := b.addEntry(cmd.Context(), e)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added %s (%s)\n", stored.PieceNumber, stored.ID)
			return nil
		},
	}
	cmd.Flags().StringVarP(&journalCode, "journal", "j", "OD", "journal code")
	cmd.Flags().StringVarP(&date, "date", "d", "", "entry date (required)")
	cmd.Flags().StringVarP(&label, "label", "l", "", "entry label (required)")
	cmd.Flags().StringVar(&piece, "piece", "", "piece number (allocated when empty)")
	cmd.Flags().StringArrayVar(&debits, "debit", nil, "debit line COMPTE=MONTANT[:LIBELLÉ] (repeatable)")
	cmd.Flags().StringArrayVar(&credits, "credit", nil, "credit line COMPTE=MONTANT[:LIBELLÉ] (repeatable)")
	_ = cmd.MarkFlagRequired("date")
	_ = cmd.MarkFlagRequired("label")
	return cmd
}

// vatEntryKind describes the three-line entries whose VAT is computed from
// the amount including VAT.
type vatEntryKind struct {
	use, short string
	journal    string
	third      model.AccountNumber // supplier or customer
	vatAccount model.AccountNumber
	purchase   bool
}

var (
	purchaseKind = vatEntryKind{
		use: "purchase", short: "Record a supplier invoice from its amount including VAT",
		journal: "AC", third: "401000", vatAccount: "445660", purchase: true,
	}
	saleKind = vatEntryKind{
		use: "sale", short: "Record a customer invoice from its amount including VAT",
		journal: "VE", third: "411000", vatAccount: "445710",
	}
)

func newVATEntryCommand(root *rootOptions, kind vatEntryKind) *cobra.Command {
	var (
		journalCode, date, label, ttc, rate string
		third, vatAccount, principal        string
	)

	cmd := &cobra.Command{
		Use:   kind.use,
		Short: kind.short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			b, err := openBooks(root, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer b.Close()

			d, err := parseDate(date)
			if err != nil {
				return err
			}
			amount, err := parseAmount(ttc)
			if err != nil {
				return err
			}
			if !amount.IsPositive() {
				return fmt.Errorf("amount including VAT must be positive")
			}

			thirdAcct := model.AccountNumber(third)
			vatAcct := model.AccountNumber(vatAccount)
			if vatAcct == "" {
				vatAcct = kind.vatAccount
				if a, ok := b.accounts.Get(thirdAcct); ok && a.DefaultVATAccount != "" {
					vatAcct = a.DefaultVATAccount
				}
			}
			session := vat.NewSession()
			if rate != "" {
				r, ok := vat.ParseRate(rate)
				if !ok || !session.SetRate(r) {
					return fmt.Errorf("invalid VAT rate %q", rate)
				}
			}

			draft := vat.Draft{Label: label}
			t := draft.AddLine(thirdAcct, "")
			if kind.purchase {
				draft.Lines[t].Credit = amount
			} else {
				draft.Lines[t].Debit = amount
			}
			v := draft.AddLine(vatAcct, "")
			if principal != "" {
				draft.AddLine(model.AccountNumber(principal), "")
			}

			res, err := session.Apply(&draft, v, b.accounts)
			if err != nil {
				return err
			}
			e := model.Entry{
				JournalCode: strings.ToUpper(journalCode),
				Date:        d,
				Label:       label,
				Lines:       draft.JournalLines(b.accounts),
			}
			stored, err := b.addEntry(cmd.Context(), e)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added %s: TTC %s, HT %s, TVA %s (taux %s %%, %s)\n",
				stored.PieceNumber, fec.FormatAmount(res.Amounts.TTC), fec.FormatAmount(res.Amounts.HT),
				fec.FormatAmount(res.Amounts.VAT), res.Rate.Shift(2).String(), res.Source)
			return nil
		},
	}
	cmd.Flags().StringVarP(&journalCode, "journal", "j", kind.journal, "journal code")
	cmd.Flags().StringVarP(&date, "date", "d", "", "invoice date (required)")
	cmd.Flags().StringVarP(&label, "label", "l", "", "entry label (required)")
	cmd.Flags().StringVar(&ttc, "ttc", "", "amount including VAT (required)")
	cmd.Flags().StringVar(&rate, "rate", "", "VAT rate; detected from the accounts and labels when empty")
	cmd.Flags().StringVar(&third, "third", string(kind.third), "supplier or customer account")
	cmd.Flags().StringVar(&vatAccount, "vat-account", "", "VAT account (default from the third account)")
	cmd.Flags().StringVar(&principal, "account", "", "expense or revenue account (default from the third account)")
	_ = cmd.MarkFlagRequired("date")
	_ = cmd.MarkFlagRequired("label")
	_ = cmd.MarkFlagRequired("ttc")
	return cmd
}

// addEntry checks the journal and accounts against the configuration,
// stores the entry and records the change.
func (b *books) addEntry(ctx context.Context, e model.Entry) (model.Entry, error) {
	if !b.cfg.HasJournal(e.JournalCode) {
		return model.Entry{}, fmt.Errorf("unknown journal %q", e.JournalCode)
	}
	for i, l := range e.Lines {
		a, ok := b.accounts.Get(l.AccountNumber)
		if !ok {
			return model.Entry{}, fmt.Errorf("unknown account %s (add it with `compta accounts add`)", l.AccountNumber)
		}
		e.Lines[i].AccountLabel = a.Label
	}
	stored, err := b.journal.AddEntry(ctx, e)
	if err != nil {
		return model.Entry{}, err
	}
	err = b.record(ctx, auditlog.Record{Action: auditlog.ActionEntryAdd, Target: stored.PieceNumber, Details: stored.Label})
	return stored, err
}

func newEntryListCommand(root *rootOptions) *cobra.Command {
	var ff filterFlags

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List entries in date order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			b, err := openBooks(root, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer b.Close()

			f, err := ff.filter()
			if err != nil {
				return err
			}
			entries, err := b.journal.ListEntries(cmd.Context(), journal.Query{From: f.From, To: f.To})
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "DATE\tPIÈCE\tCOMPTE\tLIBELLÉ\tDÉBIT\tCRÉDIT")
			for _, e := range ledger.SortEntries(entries) {
				if !matchJournal(f.Journals, e.JournalCode) {
					continue
				}
				for i, l := range e.Lines {
					fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
						e.Date.Format("02/01/2006"), e.PieceNumber, l.AccountNumber, e.LineLabel(i),
						fec.FormatAmount(l.Debit), fec.FormatAmount(l.Credit))
				}
			}
			return tw.Flush()
		},
	}
	ff.register(cmd.Flags())
	return cmd
}

func matchJournal(journals []string, code string) bool {
	if len(journals) == 0 {
		return true
	}
	for _, j := range journals {
		if j == code {
			return true
		}
	}
	return false
}

func newEntryDeleteCommand(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <piece-number|id>",
		Short: "Delete an entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := openBooks(root, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer b.Close()

			entries, err := b.journal.ListEntries(cmd.Context(), journal.Query{})
			if err != nil {
				return err
			}
			for _, e := range entries {
				if e.PieceNumber != args[0] && e.ID != args[0] {
					continue
				}
				if err := b.journal.DeleteEntry(cmd.Context(), e.ID); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", e.PieceNumber)
				return b.record(cmd.Context(), auditlog.Record{Action: auditlog.ActionEntryDelete, Target: e.PieceNumber, Details: e.Label})
			}
			return fmt.Errorf("entry %s: %w", args[0], journal.ErrNotFound)
		},
	}
}

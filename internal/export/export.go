// Package export writes spreadsheet-friendly CSV files: semicolon
// separated, UTF-8 with a byte order mark, comma decimal separator.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/cleared-dev/compta/internal/fec"
	"github.com/cleared-dev/compta/internal/ledger"
	"github.com/cleared-dev/compta/internal/model"
)

const (
	// Delimiter separates fields.
	Delimiter = ';'
	// BOM starts every exported file so spreadsheets detect UTF-8.
	BOM = "\ufeff"
	// DateFormat is the French day/month/year layout.
	DateFormat = "02/01/2006"
)

// JournalHeader is the header of the journal export. ParseJournal reads the
// same layout back.
var JournalHeader = []string{"Journal", "Date", "Pièce", "Compte", "Libellé compte", "Libellé", "Débit", "Crédit"}

var balanceHeader = []string{"Compte", "Libellé", "Total débit", "Total crédit", "Solde débiteur", "Solde créditeur"}

var grandLivreHeader = []string{"Compte", "Libellé compte", "Date", "Journal", "Pièce", "Libellé", "Débit", "Crédit", "Solde"}

func newWriter(w io.Writer, header []string) (*csv.Writer, error) {
	if _, err := io.WriteString(w, BOM); err != nil {
		return nil, fmt.Errorf("writing BOM: %w", err)
	}
	cw := csv.NewWriter(w)
	cw.Comma = Delimiter
	cw.UseCRLF = true
	if err := cw.Write(header); err != nil {
		return nil, fmt.Errorf("writing header: %w", err)
	}
	return cw, nil
}

// WriteJournal exports entries, one row per line.
func WriteJournal(w io.Writer, entries []model.Entry) error {
	cw, err := newWriter(w, JournalHeader)
	if err != nil {
		return err
	}
	for _, e := range entries {
		for i, l := range e.Lines {
			rec := []string{
				e.JournalCode,
				e.Date.Format(DateFormat),
				e.PieceNumber,
				string(l.AccountNumber),
				l.AccountLabel,
				e.LineLabel(i),
				fec.FormatAmount(l.Debit),
				fec.FormatAmount(l.Credit),
			}
			if err := cw.Write(rec); err != nil {
				return fmt.Errorf("writing entry %s: %w", e.PieceNumber, err)
			}
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteBalance exports a trial balance followed by the per-classe subtotals
// and the grand total.
func WriteBalance(w io.Writer, b ledger.Balance) error {
	cw, err := newWriter(w, balanceHeader)
	if err != nil {
		return err
	}
	for _, r := range b.Rows {
		if err := cw.Write(totalsRecord(string(r.Number), r.Label, r.Totals)); err != nil {
			return fmt.Errorf("writing account %s: %w", r.Number, err)
		}
	}
	for _, c := range b.Classes {
		if err := cw.Write(totalsRecord("", "Total classe "+strconv.Itoa(c.Classe), c.Totals)); err != nil {
			return fmt.Errorf("writing classe %d: %w", c.Classe, err)
		}
	}
	if err := cw.Write(totalsRecord("", "Total général", b.Total)); err != nil {
		return fmt.Errorf("writing total: %w", err)
	}
	cw.Flush()
	return cw.Error()
}

func totalsRecord(number, label string, t ledger.Totals) []string {
	return []string{
		number, label,
		fec.FormatAmount(t.DebitTotal), fec.FormatAmount(t.CreditTotal),
		fec.FormatAmount(t.DebitBalance), fec.FormatAmount(t.CreditBalance),
	}
}

// WriteGrandLivre exports every movement with its running balance.
func WriteGrandLivre(w io.Writer, g ledger.GrandLivre) error {
	cw, err := newWriter(w, grandLivreHeader)
	if err != nil {
		return err
	}
	for _, a := range g.Accounts {
		for _, m := range a.Movements {
			rec := []string{
				string(a.Number), a.Label,
				m.Date.Format(DateFormat), m.JournalCode, m.PieceNumber, m.Label,
				fec.FormatAmount(m.Debit), fec.FormatAmount(m.Credit), fec.FormatAmount(m.Balance),
			}
			if err := cw.Write(rec); err != nil {
				return fmt.Errorf("writing account %s: %w", a.Number, err)
			}
		}
	}
	cw.Flush()
	return cw.Error()
}

package fec

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/cleared-dev/compta/internal/model"
)

// FormatAmount renders an amount with two decimals and a comma: "120,50".
func FormatAmount(d decimal.Decimal) string {
	return strings.Replace(d.StringFixed(2), ".", ",", 1)
}

// FileName returns the regulatory file name: <SIREN>FEC<closing date>.txt.
func FileName(siren string, closing time.Time) string {
	return fmt.Sprintf("%sFEC%s.txt", siren, closing.Format(DateFormat))
}

// Write writes entries as a tab-separated FEC file with the standard header.
// journalLabel resolves journal codes to labels and may be nil.
func Write(w io.Writer, entries []model.Entry, journalLabel func(code string) string) error {
	cw := csv.NewWriter(w)
	cw.Comma = '\t'
	cw.UseCRLF = false

	if err := cw.Write(Columns); err != nil {
		return fmt.Errorf("writing FEC header: %w", err)
	}
	for _, e := range entries {
		jl := e.JournalCode
		if journalLabel != nil {
			if l := journalLabel(e.JournalCode); l != "" {
				jl = l
			}
		}
		date := e.Date.Format(DateFormat)
		for i, l := range e.Lines {
			rec := []string{
				e.JournalCode, jl, e.PieceNumber, date,
				string(l.AccountNumber), l.AccountLabel, "", "",
				e.PieceNumber, date, e.LineLabel(i),
				FormatAmount(l.Debit), FormatAmount(l.Credit),
				"", "", date, "", "",
			}
			if err := cw.Write(rec); err != nil {
				return fmt.Errorf("writing entry %s: %w", e.PieceNumber, err)
			}
		}
	}
	cw.Flush()
	return cw.Error()
}

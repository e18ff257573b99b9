package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// JournalLine is one debit-or-credit movement against one account.
type JournalLine struct {
	AccountNumber AccountNumber
	AccountLabel  string
	Label         string          // line label; empty means the entry label
	Debit         decimal.Decimal // zero if credit side
	Credit        decimal.Decimal // zero if debit side
}

// Amount returns the non-zero side of the line (debit wins if both are set).
func (l JournalLine) Amount() decimal.Decimal {
	if !l.Debit.IsZero() {
		return l.Debit
	}
	return l.Credit
}

// IsActive reports whether the line carries a non-zero amount.
func (l JournalLine) IsActive() bool {
	return !l.Debit.IsZero() || !l.Credit.IsZero()
}

// Entry is one double-entry transaction (écriture).
type Entry struct {
	ID          string
	CompanyID   string
	ExerciseID  string
	JournalCode string
	Date        time.Time
	PieceNumber string
	Label       string
	Lines       []JournalLine
}

// LineLabel returns the label to display for line i: the line's own label,
// falling back to the entry label.
func (e Entry) LineLabel(i int) string {
	if l := e.Lines[i].Label; l != "" {
		return l
	}
	return e.Label
}

// Journal is a named ledger subdivision (achats, ventes, banque...).
type Journal struct {
	Code  string `yaml:"code"`
	Label string `yaml:"label"`
}

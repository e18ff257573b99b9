package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// FECRow is one parsed line of a Fichier des Écritures Comptables.
type FECRow struct {
	Line          int // 1-based line number in the source file
	JournalCode   string
	JournalLabel  string
	EntryNumber   string // EcritureNum
	Date          time.Time
	AccountNumber AccountNumber
	AccountLabel  string
	PieceRef      string
	Label         string // EcritureLib
	Debit         decimal.Decimal
	Credit        decimal.Decimal
}

// PieceKey returns the reference used to group rows: PieceRef when present,
// EcritureNum otherwise.
func (r FECRow) PieceKey() string {
	if r.PieceRef != "" {
		return r.PieceRef
	}
	return r.EntryNumber
}

package model

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestAccountNumberClasse(t *testing.T) {
	tests := []struct {
		number AccountNumber
		want   int
	}{
		{"401", 4},
		{"44566", 4},
		{"607000", 6},
		{"9", 9},
		{"", 0},
		{"C401", 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.number.Classe(), "Classe(%q)", tt.number)
	}
}

func TestAccountNumberHasPrefix(t *testing.T) {
	assert.True(t, AccountNumber("44566").HasPrefix("4456"))
	assert.True(t, AccountNumber("44566").HasPrefix("44"))
	assert.False(t, AccountNumber("44").HasPrefix("4456"))
	assert.True(t, AccountNumber("0401").HasPrefix("0"), "leading zero is kept")
}

func TestJournalLineAmount(t *testing.T) {
	d := decimal.RequireFromString("12.50")
	assert.True(t, JournalLine{Debit: d}.Amount().Equal(d))
	assert.True(t, JournalLine{Credit: d}.Amount().Equal(d))
	assert.True(t, JournalLine{}.Amount().IsZero())
	assert.False(t, JournalLine{}.IsActive())
	assert.True(t, JournalLine{Credit: d}.IsActive())
}

func TestEntryLineLabel(t *testing.T) {
	e := Entry{
		Label: "Facture EDF",
		Lines: []JournalLine{{Label: "Abonnement"}, {}},
	}
	assert.Equal(t, "Abonnement", e.LineLabel(0))
	assert.Equal(t, "Facture EDF", e.LineLabel(1))
}

func TestFECRowPieceKey(t *testing.T) {
	assert.Equal(t, "F001", FECRow{PieceRef: "F001", EntryNumber: "12"}.PieceKey())
	assert.Equal(t, "12", FECRow{EntryNumber: "12"}.PieceKey())
}

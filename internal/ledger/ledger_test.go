package ledger

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cleared-dev/compta/internal/model"
)

func date(y, m, d int) time.Time {
	return time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func debit(acct, amt string) model.JournalLine {
	return model.JournalLine{AccountNumber: model.AccountNumber(acct), Debit: dec(amt)}
}

func credit(acct, amt string) model.JournalLine {
	return model.JournalLine{AccountNumber: model.AccountNumber(acct), Credit: dec(amt)}
}

func entry(piece, journal string, d time.Time, lines ...model.JournalLine) model.Entry {
	return model.Entry{ID: piece, JournalCode: journal, Date: d, PieceNumber: piece, Label: "écriture " + piece, Lines: lines}
}

// The two-entry example: a purchase on credit, then its payment.
func purchaseAndPayment() []model.Entry {
	return []model.Entry{
		entry("AC-1", "AC", date(2025, 1, 3), debit("607", "100"), debit("44566", "20"), credit("401", "120")),
		entry("BQ-1", "BQ", date(2025, 1, 10), debit("401", "120"), credit("512", "120")),
	}
}

func TestGeneralLedger_PurchaseAndPayment(t *testing.T) {
	g := GeneralLedger(purchaseAndPayment(), Filter{})

	require.Len(t, g.Accounts, 4)
	var numbers []model.AccountNumber
	for _, a := range g.Accounts {
		numbers = append(numbers, a.Number)
	}
	assert.Equal(t, []model.AccountNumber{"401", "44566", "512", "607"}, numbers)

	a401, ok := g.Account("401")
	require.True(t, ok)
	require.Len(t, a401.Movements, 2)
	assert.Equal(t, "-120", a401.Movements[0].Balance.String())
	assert.True(t, a401.Movements[1].Balance.IsZero())
	assert.True(t, a401.Balance().IsZero())
	assert.Equal(t, "BQ-1", a401.Movements[1].PieceNumber)

	a607, _ := g.Account("607")
	assert.Equal(t, "100", a607.Balance().String())
	a512, _ := g.Account("512")
	assert.Equal(t, "-120", a512.Balance().String())

	assert.True(t, g.TotalDebit.Equal(dec("240")))
	assert.True(t, g.TotalCredit.Equal(dec("240")))
}

func TestTrialBalance_PurchaseAndPayment(t *testing.T) {
	b := TrialBalance(purchaseAndPayment(), Filter{})

	rows := make(map[model.AccountNumber]Row)
	for _, r := range b.Rows {
		rows[r.Number] = r
	}
	require.Len(t, rows, 4)

	r := rows["401"]
	assert.Equal(t, "120.00", r.DebitTotal.StringFixed(2))
	assert.Equal(t, "120.00", r.CreditTotal.StringFixed(2))
	assert.True(t, r.DebitBalance.IsZero())
	assert.True(t, r.CreditBalance.IsZero())

	assert.Equal(t, "100.00", rows["607"].DebitBalance.StringFixed(2))
	assert.Equal(t, "20.00", rows["44566"].DebitBalance.StringFixed(2))
	assert.Equal(t, "120.00", rows["512"].CreditBalance.StringFixed(2))

	assert.True(t, b.Balanced())
	assert.True(t, b.Total.DebitBalance.Equal(b.Total.CreditBalance))

	require.Len(t, b.Classes, 3)
	assert.Equal(t, 4, b.Classes[0].Classe)
	assert.Equal(t, "140.00", b.Classes[0].DebitTotal.StringFixed(2))
	assert.Equal(t, 5, b.Classes[1].Classe)
	assert.Equal(t, 6, b.Classes[2].Classe)
}

func TestZeroLines_GrandLivreKeepsBalanceDrops(t *testing.T) {
	entries := []model.Entry{
		entry("OD-1", "OD", date(2025, 1, 1),
			debit("607", "10"), credit("512", "10"),
			model.JournalLine{AccountNumber: "401"}),
	}
	b := TrialBalance(entries, Filter{})
	for _, r := range b.Rows {
		assert.NotEqual(t, model.AccountNumber("401"), r.Number)
	}
	assert.Len(t, b.Rows, 2)

	g := GeneralLedger(entries, Filter{})
	assert.Len(t, g.Accounts, 3)
	a, ok := g.Account("401")
	require.True(t, ok, "a zero line still reaches the grand livre")
	require.Len(t, a.Movements, 1)
	assert.True(t, a.Balance().IsZero())
	assert.True(t, a.Movements[0].Balance.IsZero())
	assert.Equal(t, "OD-1", a.Movements[0].PieceNumber)
}

func TestFinalBalanceIndependentOfInterleaving(t *testing.T) {
	entries := []model.Entry{
		entry("1", "AC", date(2025, 1, 5), debit("607", "10.10"), credit("401", "10.10")),
		entry("2", "AC", date(2025, 1, 5), debit("607", "3.33"), credit("401", "3.33")),
		entry("3", "BQ", date(2025, 2, 1), debit("401", "13.43"), credit("512", "13.43")),
		entry("4", "VE", date(2025, 1, 2), debit("411", "50"), credit("707", "50")),
	}
	reversed := make([]model.Entry, len(entries))
	for i := range entries {
		reversed[len(entries)-1-i] = entries[i]
	}

	want := TrialBalance(entries, Filter{})
	got := TrialBalance(reversed, Filter{})
	require.Len(t, got.Rows, len(want.Rows))
	for i := range want.Rows {
		assert.Equal(t, want.Rows[i].Number, got.Rows[i].Number)
		assert.True(t, want.Rows[i].DebitBalance.Equal(got.Rows[i].DebitBalance))
		assert.True(t, want.Rows[i].CreditBalance.Equal(got.Rows[i].CreditBalance))
	}

	g := GeneralLedger(reversed, Filter{})
	for _, a := range g.Accounts {
		last := a.Movements[len(a.Movements)-1]
		assert.True(t, last.Balance.Equal(a.TotalDebit.Sub(a.TotalCredit)), "account %s", a.Number)
	}
}

func TestGeneralLedger_Idempotent(t *testing.T) {
	entries := purchaseAndPayment()
	first := GeneralLedger(entries, Filter{})
	second := GeneralLedger(entries, Filter{})
	assert.Equal(t, first, second)
	assert.Equal(t, TrialBalance(entries, Filter{}), TrialBalance(entries, Filter{}))
	assert.Equal(t, "AC-1", entries[0].PieceNumber, "input untouched")
}

func TestSortEntries_StableOnEqualDates(t *testing.T) {
	entries := []model.Entry{
		entry("c", "AC", date(2025, 1, 2)),
		entry("a", "AC", date(2025, 1, 1)),
		entry("b", "AC", date(2025, 1, 2)),
		entry("d", "AC", date(2025, 1, 1)),
	}
	got := SortEntries(entries)
	var ids []string
	for _, e := range got {
		ids = append(ids, e.ID)
	}
	assert.Equal(t, []string{"a", "d", "c", "b"}, ids)
	assert.Equal(t, "c", entries[0].ID)
}

func TestFilter(t *testing.T) {
	entries := purchaseAndPayment()

	g := GeneralLedger(entries, Filter{Journals: []string{"BQ"}})
	assert.Len(t, g.Accounts, 2)

	g = GeneralLedger(entries, Filter{From: date(2025, 1, 4)})
	a401, ok := g.Account("401")
	require.True(t, ok)
	assert.Len(t, a401.Movements, 1)
	assert.Equal(t, "120", a401.Balance().String())

	g = GeneralLedger(entries, Filter{To: date(2025, 1, 3)})
	a401, _ = g.Account("401")
	assert.Len(t, a401.Movements, 1)

	g = GeneralLedger(entries, Filter{AccountFrom: "4", AccountTo: "5"})
	assert.Len(t, g.Accounts, 2)
}

func TestFilter_AccountRangeIsLexicographic(t *testing.T) {
	entries := []model.Entry{
		entry("1", "OD", date(2025, 1, 1), debit("9", "1"), credit("10", "1")),
	}
	// Numerically 9 lies in [2, 10]; as strings "9" > "10".
	g := GeneralLedger(entries, Filter{AccountFrom: "2", AccountTo: "10"})
	assert.Empty(t, g.Accounts)

	g = GeneralLedger(entries, Filter{AccountFrom: "1", AccountTo: "5"})
	require.Len(t, g.Accounts, 1)
	assert.Equal(t, model.AccountNumber("10"), g.Accounts[0].Number)

	g = GeneralLedger(purchaseAndPayment(), Filter{AccountFrom: "401", AccountTo: "4456"})
	_, ok := g.Account("44566")
	assert.False(t, ok, "\"44566\" > \"4456\"")
}

func TestMovementLabelFallsBackToEntry(t *testing.T) {
	e := entry("AC-1", "AC", date(2025, 1, 3), debit("607", "10"), credit("401", "10"))
	e.Lines[1].Label = "Dupont"
	g := GeneralLedger([]model.Entry{e}, Filter{})
	a607, _ := g.Account("607")
	a401, _ := g.Account("401")
	assert.Equal(t, "écriture AC-1", a607.Movements[0].Label)
	assert.Equal(t, "Dupont", a401.Movements[0].Label)
}

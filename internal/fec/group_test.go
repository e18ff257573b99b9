package fec

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cleared-dev/compta/internal/model"
)

func row(journal, date, piece, acct string) model.FECRow {
	d, _ := ParseDate(date)
	return model.FECRow{JournalCode: journal, Date: d, PieceRef: piece, AccountNumber: model.AccountNumber(acct), Debit: decimal.NewFromInt(1)}
}

func TestGroup_SalesExample(t *testing.T) {
	rows := []model.FECRow{
		row("VE", "20250305", "F001", "411000"),
		row("VE", "20250305", "F001", "707000"),
		row("VE", "20250305", "F002", "411000"),
	}
	entries := Group(rows)
	require.Len(t, entries, 2)
	assert.Len(t, entries[0].Lines, 2)
	assert.Len(t, entries[1].Lines, 1)
	assert.Equal(t, "F001", entries[0].PieceNumber)
	assert.Equal(t, model.AccountNumber("411000"), entries[0].Lines[0].AccountNumber)
	assert.Equal(t, model.AccountNumber("707000"), entries[0].Lines[1].AccountNumber)
}

func TestGroup_KeyFields(t *testing.T) {
	rows := []model.FECRow{
		row("VE", "20250305", "F001", "1"),
		row("AC", "20250305", "F001", "2"),
		row("VE", "20250306", "F001", "3"),
		row("VE", "20250305", "F001", "4"),
	}
	entries := Group(rows)
	require.Len(t, entries, 3)
	require.Len(t, entries[0].Lines, 2)
	assert.Equal(t, model.AccountNumber("1"), entries[0].Lines[0].AccountNumber)
	assert.Equal(t, model.AccountNumber("4"), entries[0].Lines[1].AccountNumber, "file order kept")
	assert.Equal(t, "AC", entries[1].JournalCode)
	assert.Equal(t, 6, entries[2].Date.Day())
}

func TestGroup_FallsBackToEntryNumber(t *testing.T) {
	a := row("OD", "20250101", "", "1")
	a.EntryNumber = "12"
	b := row("OD", "20250101", "", "2")
	b.EntryNumber = "12"
	c := row("OD", "20250101", "", "3")
	c.EntryNumber = "13"
	entries := Group([]model.FECRow{a, b, c})
	require.Len(t, entries, 2)
	assert.Equal(t, "12", entries[0].PieceNumber)
}

func TestGroup_Label(t *testing.T) {
	a := row("VE", "20250305", "F001", "411000")
	b := row("VE", "20250305", "F001", "707000")
	b.Label = "Vente Martin"
	entries := Group([]model.FECRow{a, b})
	require.Len(t, entries, 1)
	assert.Equal(t, "Vente Martin", entries[0].Label)
}

func TestNumber(t *testing.T) {
	entries := Group([]model.FECRow{
		row("VE", "20250305", "F001", "1"),
		row("VE", "20250306", "F002", "1"),
		row("VE", "20250401", "F003", "1"),
		row("AC", "20250305", "X", "1"),
	})
	Number(entries, []string{"VE-2025-03-0007"})
	assert.Equal(t, "VE-2025-03-0008", entries[0].PieceNumber)
	assert.Equal(t, "VE-2025-03-0009", entries[1].PieceNumber)
	assert.Equal(t, "VE-2025-04-0001", entries[2].PieceNumber)
	assert.Equal(t, "AC-2025-03-0001", entries[3].PieceNumber)
}

func TestWriteParseRoundTrip(t *testing.T) {
	d := time.Date(2025, 3, 5, 0, 0, 0, 0, time.UTC)
	entries := []model.Entry{{
		JournalCode: "VE",
		Date:        d,
		PieceNumber: "VE-2025-03-0001",
		Label:       "Vente Martin",
		Lines: []model.JournalLine{
			{AccountNumber: "411000", AccountLabel: "Clients", Debit: decimal.RequireFromString("120.5")},
			{AccountNumber: "707000", AccountLabel: "Ventes", Label: "HT", Credit: decimal.RequireFromString("100.42")},
			{AccountNumber: "445710", AccountLabel: "TVA collectée", Credit: decimal.RequireFromString("20.08")},
		},
	}}

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, entries, func(code string) string { return "Ventes" }))
	out := buf.String()
	assert.True(t, strings.HasPrefix(out, strings.Join(Columns, "\t")+"\n"))
	assert.Contains(t, out, "120,50\t0,00")
	assert.Contains(t, out, "\t20250305\t")

	res, err := Parse(&buf)
	require.NoError(t, err)
	assert.Empty(t, res.Errors)
	got := Group(res.Rows)
	require.Len(t, got, 1)
	assert.Equal(t, "VE-2025-03-0001", got[0].PieceNumber)
	assert.Equal(t, "Vente Martin", got[0].Label)
	require.Len(t, got[0].Lines, 3)
	assert.Equal(t, "HT", got[0].Lines[1].Label)
	assert.Equal(t, "Ventes", res.Rows[0].JournalLabel)
	assert.True(t, got[0].Lines[2].Credit.Equal(decimal.RequireFromString("20.08")))
}

func TestFileName(t *testing.T) {
	d := time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, "123456789FEC20251231.txt", FileName("123456789", d))
}

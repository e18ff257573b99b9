package fec

import (
	"github.com/cleared-dev/compta/internal/model"
	"github.com/cleared-dev/compta/internal/sequence"
)

type groupKey struct {
	journal string
	date    string
	piece   string
}

// Group turns rows into entries. Rows with the same journal, date and piece
// reference (PieceRef, or EcritureNum without one) form one entry, with lines
// in row order. Entries come out in order of first appearance, carrying the
// file's piece reference as PieceNumber and the first non-empty EcritureLib
// as label.
func Group(rows []model.FECRow) []model.Entry {
	var entries []model.Entry
	index := make(map[groupKey]int)

	for _, r := range rows {
		k := groupKey{journal: r.JournalCode, date: r.Date.Format("2006-01-02"), piece: r.PieceKey()}
		i, ok := index[k]
		if !ok {
			i = len(entries)
			index[k] = i
			entries = append(entries, model.Entry{
				JournalCode: r.JournalCode,
				Date:        r.Date,
				PieceNumber: r.PieceKey(),
			})
		}
		e := &entries[i]
		if e.Label == "" {
			e.Label = r.Label
		}
		e.Lines = append(e.Lines, model.JournalLine{
			AccountNumber: r.AccountNumber,
			AccountLabel:  r.AccountLabel,
			Label:         r.Label,
			Debit:         r.Debit,
			Credit:        r.Credit,
		})
	}
	return entries
}

// Number replaces piece numbers with <JOURNAL>-<YYYY>-<MM>-<NNNN>, continuing
// after the numbers already in existing.
func Number(entries []model.Entry, existing []string) {
	alloc := sequence.NewAllocator(existing)
	for i := range entries {
		entries[i].PieceNumber = alloc.Next(sequence.EntryScope(entries[i].JournalCode, entries[i].Date))
	}
}

// Package ledger derives the grand livre and the balance (trial balance)
// from journal entries. Everything here is recomputed from the input on each
// call; nothing is cached.
package ledger

import (
	"sort"
	"time"

	"github.com/cleared-dev/compta/internal/model"
)

// Filter restricts the lines aggregated into a report. Zero fields do not
// filter.
//
// Account bounds compare account numbers as strings, so "10" sorts before
// "9" and a bound of "411" excludes "411000". Pad bounds to the chart's
// width ("401000".."411999") to get the expected ranges.
type Filter struct {
	From        time.Time // inclusive
	To          time.Time // inclusive
	AccountFrom model.AccountNumber
	AccountTo   model.AccountNumber
	Journals    []string
}

func (f Filter) matchEntry(e model.Entry) bool {
	if !f.From.IsZero() && e.Date.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && e.Date.After(f.To) {
		return false
	}
	if len(f.Journals) == 0 {
		return true
	}
	for _, j := range f.Journals {
		if j == e.JournalCode {
			return true
		}
	}
	return false
}

func (f Filter) matchAccount(n model.AccountNumber) bool {
	if f.AccountFrom != "" && n < f.AccountFrom {
		return false
	}
	if f.AccountTo != "" && n > f.AccountTo {
		return false
	}
	return true
}

// SortEntries returns a copy of entries sorted by date. Entries on the same
// date keep their input order.
func SortEntries(entries []model.Entry) []model.Entry {
	out := make([]model.Entry, len(entries))
	copy(out, entries)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Date.Before(out[j].Date)
	})
	return out
}

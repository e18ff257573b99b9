package ledger

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/cleared-dev/compta/internal/model"
)

// Movement is one line of an account in the grand livre, with the running
// balance (solde) after it.
type Movement struct {
	Date        time.Time
	JournalCode string
	PieceNumber string
	Label       string
	Debit       decimal.Decimal
	Credit      decimal.Decimal
	Balance     decimal.Decimal // Σdebit − Σcredit up to and including this line
}

// AccountLedger is the grand livre of one account.
type AccountLedger struct {
	Number      model.AccountNumber
	Label       string
	Movements   []Movement
	TotalDebit  decimal.Decimal
	TotalCredit decimal.Decimal
}

// Balance returns the final solde of the account.
func (a AccountLedger) Balance() decimal.Decimal {
	return a.TotalDebit.Sub(a.TotalCredit)
}

// GrandLivre is the general ledger: one AccountLedger per account with
// movements, sorted by account number.
type GrandLivre struct {
	Accounts    []AccountLedger
	TotalDebit  decimal.Decimal
	TotalCredit decimal.Decimal
}

// Account returns the ledger of one account.
func (g GrandLivre) Account(n model.AccountNumber) (AccountLedger, bool) {
	for _, a := range g.Accounts {
		if a.Number == n {
			return a, true
		}
	}
	return AccountLedger{}, false
}

// GeneralLedger folds entries into per-account running balances in date
// order. Every line of the range is a movement, zero lines included; only
// accounts without lines are omitted.
func GeneralLedger(entries []model.Entry, f Filter) GrandLivre {
	byAccount := make(map[model.AccountNumber]*AccountLedger)
	g := GrandLivre{TotalDebit: decimal.Zero, TotalCredit: decimal.Zero}

	for _, e := range SortEntries(entries) {
		if !f.matchEntry(e) {
			continue
		}
		for i, l := range e.Lines {
			if !f.matchAccount(l.AccountNumber) {
				continue
			}
			acct, ok := byAccount[l.AccountNumber]
			if !ok {
				acct = &AccountLedger{Number: l.AccountNumber, TotalDebit: decimal.Zero, TotalCredit: decimal.Zero}
				byAccount[l.AccountNumber] = acct
			}
			if acct.Label == "" {
				acct.Label = l.AccountLabel
			}
			acct.TotalDebit = acct.TotalDebit.Add(l.Debit)
			acct.TotalCredit = acct.TotalCredit.Add(l.Credit)
			acct.Movements = append(acct.Movements, Movement{
				Date:        e.Date,
				JournalCode: e.JournalCode,
				PieceNumber: e.PieceNumber,
				Label:       e.LineLabel(i),
				Debit:       l.Debit,
				Credit:      l.Credit,
				Balance:     acct.Balance(),
			})
			g.TotalDebit = g.TotalDebit.Add(l.Debit)
			g.TotalCredit = g.TotalCredit.Add(l.Credit)
		}
	}

	g.Accounts = make([]AccountLedger, 0, len(byAccount))
	for _, a := range byAccount {
		g.Accounts = append(g.Accounts, *a)
	}
	sort.Slice(g.Accounts, func(i, j int) bool {
		return g.Accounts[i].Number < g.Accounts[j].Number
	})
	return g
}

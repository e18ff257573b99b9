package ledger

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/cleared-dev/compta/internal/model"
)

// Totals are the four columns of a balance row.
type Totals struct {
	DebitTotal    decimal.Decimal
	CreditTotal   decimal.Decimal
	DebitBalance  decimal.Decimal // max(D − C, 0)
	CreditBalance decimal.Decimal // max(C − D, 0)
}

func newTotals(debit, credit decimal.Decimal) Totals {
	t := Totals{DebitTotal: debit, CreditTotal: credit, DebitBalance: decimal.Zero, CreditBalance: decimal.Zero}
	if d := debit.Sub(credit); d.IsPositive() {
		t.DebitBalance = d
	} else if d.IsNegative() {
		t.CreditBalance = d.Neg()
	}
	return t
}

func (t Totals) add(o Totals) Totals {
	return Totals{
		DebitTotal:    t.DebitTotal.Add(o.DebitTotal),
		CreditTotal:   t.CreditTotal.Add(o.CreditTotal),
		DebitBalance:  t.DebitBalance.Add(o.DebitBalance),
		CreditBalance: t.CreditBalance.Add(o.CreditBalance),
	}
}

func zeroTotals() Totals {
	return Totals{DebitTotal: decimal.Zero, CreditTotal: decimal.Zero, DebitBalance: decimal.Zero, CreditBalance: decimal.Zero}
}

// Row is one account of the balance.
type Row struct {
	Number model.AccountNumber
	Label  string
	Totals
}

// ClasseTotal sums the rows of one classe.
type ClasseTotal struct {
	Classe int
	Totals
}

// Balance is the trial balance: rows sorted by account number, subtotals
// per classe and grand totals.
type Balance struct {
	Rows    []Row
	Classes []ClasseTotal
	Total   Totals
}

// Balanced reports whether the debit and credit totals agree within the
// entry tolerance.
func (b Balance) Balanced() bool {
	return b.Total.DebitTotal.Sub(b.Total.CreditTotal).Abs().LessThan(decimal.New(1, -2))
}

// TrialBalance collapses the grand livre into one row per account. Accounts
// whose debit and credit totals are both zero are left out.
func TrialBalance(entries []model.Entry, f Filter) Balance {
	g := GeneralLedger(entries, f)
	b := Balance{Total: zeroTotals()}

	classes := make(map[int]Totals)
	for _, a := range g.Accounts {
		if a.TotalDebit.IsZero() && a.TotalCredit.IsZero() {
			continue
		}
		row := Row{Number: a.Number, Label: a.Label, Totals: newTotals(a.TotalDebit, a.TotalCredit)}
		b.Rows = append(b.Rows, row)
		b.Total = b.Total.add(row.Totals)

		c := a.Number.Classe()
		ct, ok := classes[c]
		if !ok {
			ct = zeroTotals()
		}
		classes[c] = ct.add(row.Totals)
	}

	for c, t := range classes {
		b.Classes = append(b.Classes, ClasseTotal{Classe: c, Totals: t})
	}
	sort.Slice(b.Classes, func(i, j int) bool { return b.Classes[i].Classe < b.Classes[j].Classe })
	return b
}

// Package vat splits tax-inclusive amounts and fills the VAT and principal
// lines of an entry being drafted.
package vat

import (
	"github.com/shopspring/decimal"
)

// DefaultRate is the French standard rate, used when nothing else gives one.
var DefaultRate = decimal.RequireFromString("0.20")

var one = decimal.NewFromInt(1)

// Amounts is a TTC amount split into HT and VAT. HT + VAT == TTC exactly.
type Amounts struct {
	TTC decimal.Decimal
	HT  decimal.Decimal
	VAT decimal.Decimal
}

// Split computes the VAT contained in ttc at rate. VAT is rounded from the
// rounded HT and HT is then derived by subtraction, so the three amounts
// always add up to the rounded TTC. Callers pass a rate accepted by
// ValidRate; a rate of -100 % or below has no meaning and the whole amount
// comes back as HT.
func Split(ttc, rate decimal.Decimal) Amounts {
	ttc = ttc.Round(2)
	divisor := one.Add(rate)
	if !divisor.IsPositive() {
		return Amounts{TTC: ttc, HT: ttc, VAT: decimal.Zero}
	}
	htComputed := ttc.Div(divisor).Round(2)
	vat := htComputed.Mul(rate).Round(2)
	return Amounts{
		TTC: ttc,
		HT:  ttc.Sub(vat).Round(2),
		VAT: vat,
	}
}

// ValidRate reports whether rate is a usable fraction: 0 < rate < 1.
func ValidRate(rate decimal.Decimal) bool {
	return rate.IsPositive() && rate.LessThan(one)
}

package model

import (
	"strings"

	"github.com/shopspring/decimal"
)

// AccountNumber is a French chart-of-accounts code ("401", "44566", "607000").
// It is kept as a string: prefix membership encodes the classification and
// leading zeros are significant.
type AccountNumber string

// String returns the raw account number.
func (n AccountNumber) String() string { return string(n) }

// HasPrefix reports whether the account number starts with prefix.
func (n AccountNumber) HasPrefix(prefix string) bool {
	return strings.HasPrefix(string(n), prefix)
}

// Classe returns the PCG class (first digit), or 0 if the number does not
// start with a digit.
func (n AccountNumber) Classe() int {
	if len(n) == 0 || n[0] < '0' || n[0] > '9' {
		return 0
	}
	return int(n[0] - '0')
}

// Account represents a row in plan-comptable.csv.
type Account struct {
	CompanyID             string
	Number                AccountNumber
	Label                 string
	VATRate               decimal.NullDecimal // fraction, e.g. 0.20
	DefaultExpenseAccount AccountNumber       // principal account proposed for entries on this account
	DefaultVATAccount     AccountNumber       // VAT account proposed for entries on this account
}

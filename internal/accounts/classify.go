package accounts

import "github.com/cleared-dev/compta/internal/model"

// VATDirection tells which side of the VAT a classe-445 account records.
type VATDirection int

const (
	VATNone       VATDirection = iota
	VATDeductible              // 4456: TVA déductible, on purchases
	VATCollected               // 4457: TVA collectée, on sales
)

func (d VATDirection) String() string {
	switch d {
	case VATDeductible:
		return "deductible"
	case VATCollected:
		return "collected"
	default:
		return "none"
	}
}

// Account prefixes with a fixed meaning in the plan comptable général.
const (
	PrefixVATDeductible = "4456"
	PrefixVATCollected  = "4457"
	PrefixExpense       = "6"
	PrefixRevenue       = "7"

	DefaultExpenseAccount model.AccountNumber = "607"
	DefaultRevenueAccount model.AccountNumber = "707"
)

var receivablePrefixes = []string{"41", "42", "43"}

// Classification is what the chart of accounts says about an account number.
type Classification struct {
	Classe       int
	Receivable   bool // créances: 41x, 42x, 43x
	Payable      bool // dettes: rest of classe 4
	VAT          bool
	VATDirection VATDirection
}

// Classify maps an account number to its classe and flags. Any string is
// accepted; more specific prefixes are tested before shorter ones.
func Classify(n model.AccountNumber) Classification {
	c := Classification{Classe: n.Classe()}

	switch {
	case n.HasPrefix(PrefixVATDeductible):
		c.VAT = true
		c.VATDirection = VATDeductible
	case n.HasPrefix(PrefixVATCollected):
		c.VAT = true
		c.VATDirection = VATCollected
	}

	if c.Classe == 4 {
		c.Payable = true
		for _, p := range receivablePrefixes {
			if n.HasPrefix(p) {
				c.Receivable = true
				c.Payable = false
				break
			}
		}
	}
	return c
}

// IsExpense reports whether n is a classe 6 (charges) account.
func IsExpense(n model.AccountNumber) bool { return n.HasPrefix(PrefixExpense) }

// IsRevenue reports whether n is a classe 7 (produits) account.
func IsRevenue(n model.AccountNumber) bool { return n.HasPrefix(PrefixRevenue) }

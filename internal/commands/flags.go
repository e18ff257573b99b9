package commands

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/pflag"

	"github.com/cleared-dev/compta/internal/ledger"
	"github.com/cleared-dev/compta/internal/model"
)

var dateLayouts = []string{"2006-01-02", "02/01/2006", "20060102"}

// parseDate accepts ISO, French (JJ/MM/AAAA) and FEC dates.
func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date %q (want AAAA-MM-JJ or JJ/MM/AAAA)", s)
}

// parseAmount accepts "120.50", "120,50" and "1 234,56". Amounts are in
// euros and cents: more than 2 decimals is an error.
func parseAmount(s string) (decimal.Decimal, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), " ", "")
	s = strings.Replace(s, ",", ".", 1)
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("invalid amount %q", s)
	}
	if !d.Equal(d.Round(2)) {
		return decimal.Decimal{}, fmt.Errorf("invalid amount %q: more than 2 decimals", s)
	}
	return d, nil
}

// parseLineFlag reads ACCOUNT=AMOUNT[:LABEL].
func parseLineFlag(s string) (model.AccountNumber, decimal.Decimal, string, error) {
	account, rest, ok := strings.Cut(s, "=")
	if !ok || account == "" {
		return "", decimal.Decimal{}, "", fmt.Errorf("invalid line %q (want COMPTE=MONTANT[:LIBELLÉ])", s)
	}
	amount, label, _ := strings.Cut(rest, ":")
	amt, err := parseAmount(amount)
	if err != nil {
		return "", decimal.Decimal{}, "", err
	}
	return model.AccountNumber(strings.TrimSpace(account)), amt, label, nil
}

// filterFlags are the period, journal and account range options of the
// reports and listings.
type filterFlags struct {
	from, to               string
	journals               []string
	accountFrom, accountTo string
}

func (f *filterFlags) register(flags *pflag.FlagSet) {
	flags.StringVar(&f.from, "from", "", "first date (inclusive)")
	flags.StringVar(&f.to, "to", "", "last date (inclusive)")
	flags.StringSliceVar(&f.journals, "journal", nil, "journal codes (repeatable)")
	flags.StringVar(&f.accountFrom, "account-from", "", "lowest account number")
	flags.StringVar(&f.accountTo, "account-to", "", "highest account number")
}

func (f *filterFlags) filter() (ledger.Filter, error) {
	var out ledger.Filter
	var err error
	if f.from != "" {
		if out.From, err = parseDate(f.from); err != nil {
			return out, err
		}
	}
	if f.to != "" {
		if out.To, err = parseDate(f.to); err != nil {
			return out, err
		}
	}
	for _, j := range f.journals {
		out.Journals = append(out.Journals, strings.ToUpper(j))
	}
	out.AccountFrom = model.AccountNumber(f.accountFrom)
	out.AccountTo = model.AccountNumber(f.accountTo)
	return out, nil
}

package vat

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	hundred   = decimal.NewFromInt(100)
	labelRate = regexp.MustCompile(`(\d+(?:[.,]\d+)?)\s*%`)
)

// ParseRate reads a rate typed by a user: "20", "5,5", "5.5 %", "0.2".
// A number followed by % or greater than 1 is a percentage; otherwise it is
// already a fraction. Only results in (0, 1) are accepted.
func ParseRate(s string) (decimal.Decimal, bool) {
	s = strings.TrimSpace(s)
	percent := strings.HasSuffix(s, "%")
	s = strings.TrimSpace(strings.TrimSuffix(s, "%"))
	s = strings.ReplaceAll(s, " ", "")
	s = strings.Replace(s, ",", ".", 1)
	if s == "" {
		return decimal.Decimal{}, false
	}

	r, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, false
	}
	if percent || r.GreaterThan(one) {
		r = r.Div(hundred)
	}
	if !ValidRate(r) {
		return decimal.Decimal{}, false
	}
	return r, true
}

// ParseLabelRate finds the first "<number> %" in a label that is a valid
// rate, e.g. "TVA déductible 5,5 %" -> 0.055.
func ParseLabelRate(label string) (decimal.Decimal, bool) {
	for _, m := range labelRate.FindAllStringSubmatch(label, -1) {
		if r, ok := ParseRate(m[1] + "%"); ok {
			return r, true
		}
	}
	return decimal.Decimal{}, false
}

package journal

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/cleared-dev/compta/internal/model"
)

// Tolerance is the largest debit/credit difference still considered balanced
// (exclusive).
var Tolerance = decimal.New(1, -2)

// MinActiveLines is the number of non-zero lines an entry needs.
const MinActiveLines = 2

// Rule identifies which check a ValidationError comes from.
type Rule int

const (
	RuleActiveLines Rule = iota + 1 // at least two non-zero lines
	RuleBalanced                    // Σdebit == Σcredit within Tolerance
	RuleOneSided                    // a line has debit or credit, not both
	RuleNonNegative                 // no negative amounts
	RulePrecision                   // no more than 2 decimal places
)

// UnbalancedError reports an entry whose debits and credits differ by at
// least Tolerance. Its message is shown to the user as is.
type UnbalancedError struct {
	Debit  decimal.Decimal
	Credit decimal.Decimal
}

func (e *UnbalancedError) Error() string {
	return fmt.Sprintf("écriture déséquilibrée : Débit=%s / Crédit=%s", e.Debit.StringFixed(2), e.Credit.StringFixed(2))
}

// Delta returns Debit - Credit.
func (e *UnbalancedError) Delta() decimal.Decimal { return e.Debit.Sub(e.Credit) }

// TooFewLinesError reports an entry with fewer than MinActiveLines non-zero lines.
type TooFewLinesError struct {
	Active int
}

func (e *TooFewLinesError) Error() string {
	return fmt.Sprintf("une écriture doit comporter au moins %d lignes non nulles (%d trouvée(s))", MinActiveLines, e.Active)
}

// ValidationError describes a single rule violation in an entry.
type ValidationError struct {
	Rule  Rule
	Piece string
	Line  int // 0-based line index, -1 for entry-level rules
	Err   error
}

func (e ValidationError) Error() string {
	if e.Line >= 0 {
		return fmt.Sprintf("pièce %s, ligne %d: %v", e.Piece, e.Line+1, e.Err)
	}
	return fmt.Sprintf("pièce %s: %v", e.Piece, e.Err)
}

func (e ValidationError) Unwrap() error { return e.Err }

// ValidationErrors is the list returned when an entry is rejected.
type ValidationErrors []ValidationError

func (v ValidationErrors) Error() string {
	msgs := make([]string, len(v))
	for i, ve := range v {
		msgs[i] = ve.Error()
	}
	return strings.Join(msgs, "; ")
}

// Unwrap exposes every violation to errors.Is / errors.As.
func (v ValidationErrors) Unwrap() []error {
	errs := make([]error, len(v))
	for i, ve := range v {
		errs[i] = ve
	}
	return errs
}

// Totals sums the debit and credit columns.
func Totals(lines []model.JournalLine) (debit, credit decimal.Decimal) {
	debit, credit = decimal.Zero, decimal.Zero
	for _, l := range lines {
		debit = debit.Add(l.Debit)
		credit = credit.Add(l.Credit)
	}
	return debit, credit
}

// BalanceDelta returns Σdebit − Σcredit.
func BalanceDelta(lines []model.JournalLine) decimal.Decimal {
	d, c := Totals(lines)
	return d.Sub(c)
}

// IsBalanced reports whether |Σdebit − Σcredit| < Tolerance. An entry with no
// activity at all is balanced; CheckActiveLines rejects it separately.
func IsBalanced(lines []model.JournalLine) bool {
	return BalanceDelta(lines).Abs().LessThan(Tolerance)
}

// CheckBalance returns an *UnbalancedError carrying both totals, or nil.
func CheckBalance(lines []model.JournalLine) error {
	d, c := Totals(lines)
	if d.Sub(c).Abs().LessThan(Tolerance) {
		return nil
	}
	return &UnbalancedError{Debit: d, Credit: c}
}

// ActiveLines counts lines with a non-zero amount.
func ActiveLines(lines []model.JournalLine) int {
	n := 0
	for _, l := range lines {
		if l.IsActive() {
			n++
		}
	}
	return n
}

// CheckActiveLines returns a *TooFewLinesError when fewer than two lines carry
// an amount.
func CheckActiveLines(lines []model.JournalLine) error {
	if n := ActiveLines(lines); n < MinActiveLines {
		return &TooFewLinesError{Active: n}
	}
	return nil
}

// ValidateEntry checks an entry before it is persisted. All violations are
// returned; an empty result means the entry may be stored.
func ValidateEntry(e model.Entry) ValidationErrors {
	var errs ValidationErrors

	if err := CheckActiveLines(e.Lines); err != nil {
		errs = append(errs, ValidationError{Rule: RuleActiveLines, Piece: e.PieceNumber, Line: -1, Err: err})
	}
	if err := CheckBalance(e.Lines); err != nil {
		errs = append(errs, ValidationError{Rule: RuleBalanced, Piece: e.PieceNumber, Line: -1, Err: err})
	}

	for i, l := range e.Lines {
		if l.Debit.IsNegative() || l.Credit.IsNegative() {
			errs = append(errs, ValidationError{
				Rule: RuleNonNegative, Piece: e.PieceNumber, Line: i,
				Err: fmt.Errorf("negative amount on account %s", l.AccountNumber),
			})
		}
		if !l.Debit.IsZero() && !l.Credit.IsZero() {
			errs = append(errs, ValidationError{
				Rule: RuleOneSided, Piece: e.PieceNumber, Line: i,
				Err: fmt.Errorf("line has both debit and credit on account %s", l.AccountNumber),
			})
		}
		for _, amt := range []decimal.Decimal{l.Debit, l.Credit} {
			if !amt.Equal(amt.Round(2)) {
				errs = append(errs, ValidationError{
					Rule: RulePrecision, Piece: e.PieceNumber, Line: i,
					Err: fmt.Errorf("amount %s has more than 2 decimal places", amt),
				})
			}
		}
	}
	return errs
}

package vat

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/cleared-dev/compta/internal/accounts"
	"github.com/cleared-dev/compta/internal/model"
)

var (
	// ErrNotVATLine is returned when Apply is pointed at a non-VAT account.
	ErrNotVATLine = errors.New("line is not a VAT account (4456/4457)")
	// ErrNoTTCLine is returned when the VAT line has no preceding line.
	ErrNoTTCLine = errors.New("no line before the VAT line")
	// ErrNoTTCAmount is returned when the preceding line carries no amount.
	ErrNoTTCAmount = errors.New("line before the VAT line has no amount")
)

// RateSource tells where a detected rate came from.
type RateSource int

const (
	SourceDefault RateSource = iota
	SourceAccount            // stored rate or label of the VAT account
	SourceLineLabel
	SourceEntryLabel
	SourceSticky // last rate detected in this session
	SourceManual // set with Session.SetRate
)

func (s RateSource) String() string {
	switch s {
	case SourceAccount:
		return "account"
	case SourceLineLabel:
		return "line label"
	case SourceEntryLabel:
		return "entry label"
	case SourceSticky:
		return "previous line"
	case SourceManual:
		return "manual"
	default:
		return "default"
	}
}

// AccountLookup resolves account numbers. *accounts.Service implements it.
type AccountLookup interface {
	Get(n model.AccountNumber) (model.Account, bool)
}

// DraftLine is a line of an entry being edited. ID identifies the line for
// the edited marks and survives reordering.
type DraftLine struct {
	ID      uuid.UUID
	Account model.AccountNumber
	Label   string
	Debit   decimal.Decimal
	Credit  decimal.Decimal
}

// NewDraftLine returns an empty line with a fresh ID.
func NewDraftLine(account model.AccountNumber, label string) DraftLine {
	return DraftLine{ID: uuid.New(), Account: account, Label: label}
}

func (l DraftLine) amount() decimal.Decimal {
	if !l.Debit.IsZero() {
		return l.Debit
	}
	return l.Credit
}

func (l DraftLine) empty() bool {
	return l.Account == "" && l.Debit.IsZero() && l.Credit.IsZero()
}

// Draft is an entry being edited.
type Draft struct {
	Label string
	Lines []DraftLine
}

// AddLine appends a new line and returns its index.
func (d *Draft) AddLine(account model.AccountNumber, label string) int {
	d.Lines = append(d.Lines, NewDraftLine(account, label))
	return len(d.Lines) - 1
}

// JournalLines converts the draft to journal lines, taking account labels
// from lookup when it knows them. lookup may be nil.
func (d Draft) JournalLines(lookup AccountLookup) []model.JournalLine {
	lines := make([]model.JournalLine, 0, len(d.Lines))
	for _, l := range d.Lines {
		jl := model.JournalLine{AccountNumber: l.Account, Label: l.Label, Debit: l.Debit, Credit: l.Credit}
		if lookup != nil {
			if a, ok := lookup.Get(l.Account); ok {
				jl.AccountLabel = a.Label
			}
		}
		lines = append(lines, jl)
	}
	return lines
}

// Session holds the state of one entry being edited: the last detected
// rate and the lines the user has typed into. Start a new entry with Reset.
// A Session is not safe for concurrent use.
type Session struct {
	lastRate decimal.NullDecimal
	manual   decimal.NullDecimal
	edited   map[uuid.UUID]struct{}
}

// NewSession returns an empty session.
func NewSession() *Session {
	return &Session{edited: make(map[uuid.UUID]struct{})}
}

// Reset forgets the sticky rate and every edited mark.
func (s *Session) Reset() {
	s.lastRate = decimal.NullDecimal{}
	s.manual = decimal.NullDecimal{}
	s.edited = make(map[uuid.UUID]struct{})
}

// MarkEdited records that the user changed a line by hand. Auto-fill never
// touches it again until Reset.
func (s *Session) MarkEdited(id uuid.UUID) {
	s.edited[id] = struct{}{}
}

// IsEdited reports whether the line was changed by hand.
func (s *Session) IsEdited(id uuid.UUID) bool {
	_, ok := s.edited[id]
	return ok
}

// SetRate fixes the rate typed by the user. It wins over every detected
// rate until Reset. Rates outside (0, 1) are refused.
func (s *Session) SetRate(r decimal.Decimal) bool {
	if !ValidRate(r) {
		return false
	}
	s.manual = decimal.NewNullDecimal(r)
	return true
}

// LastRate returns the sticky rate, if one was detected.
func (s *Session) LastRate() (decimal.Decimal, bool) {
	return s.lastRate.Decimal, s.lastRate.Valid
}

// DetectRate picks the rate for the VAT line at index i. A rate given to
// SetRate is used as is. Otherwise sources are tried in order: the VAT account's stored rate, its label, the line label, the
// entry label, the sticky rate, DefaultRate. A rate found in the first four
// becomes the sticky rate.
func (s *Session) DetectRate(d Draft, i int, lookup AccountLookup) (decimal.Decimal, RateSource) {
	if s.manual.Valid {
		return s.manual.Decimal, SourceManual
	}
	line := d.Lines[i]

	if lookup != nil {
		if acct, ok := lookup.Get(line.Account); ok {
			if acct.VATRate.Valid && ValidRate(acct.VATRate.Decimal) {
				return s.remember(acct.VATRate.Decimal), SourceAccount
			}
			if r, ok := ParseLabelRate(acct.Label); ok {
				return s.remember(r), SourceAccount
			}
		}
	}
	if r, ok := ParseLabelRate(line.Label); ok {
		return s.remember(r), SourceLineLabel
	}
	if r, ok := ParseLabelRate(d.Label); ok {
		return s.remember(r), SourceEntryLabel
	}
	if s.lastRate.Valid {
		return s.lastRate.Decimal, SourceSticky
	}
	return DefaultRate, SourceDefault
}

func (s *Session) remember(r decimal.Decimal) decimal.Decimal {
	s.lastRate = decimal.NewNullDecimal(r)
	return r
}

// Result describes what Apply computed and changed.
type Result struct {
	Rate      decimal.Decimal
	Source    RateSource
	Amounts   Amounts
	VATLine   int
	Principal int  // index of the principal (HT) line
	Filled    bool // principal line was written
}

// Apply splits the amount of the line preceding the VAT line at vatIndex and
// fills the VAT line and the principal line with the result. Lines marked
// edited are left alone. The principal line is the first classe 6 line for
// deductible VAT (classe 7 for collected VAT), else the first empty line,
// else a new line appended to the draft.
func (s *Session) Apply(d *Draft, vatIndex int, lookup AccountLookup) (Result, error) {
	if vatIndex < 0 || vatIndex >= len(d.Lines) {
		return Result{}, fmt.Errorf("vat line %d: out of range", vatIndex)
	}
	cl := accounts.Classify(d.Lines[vatIndex].Account)
	if !cl.VAT {
		return Result{}, fmt.Errorf("account %s: %w", d.Lines[vatIndex].Account, ErrNotVATLine)
	}
	if vatIndex == 0 {
		return Result{}, ErrNoTTCLine
	}
	ttcLine := d.Lines[vatIndex-1]
	ttc := ttcLine.amount()
	if ttc.IsZero() {
		return Result{}, ErrNoTTCAmount
	}

	rate, src := s.DetectRate(*d, vatIndex, lookup)
	amts := Split(ttc, rate)
	res := Result{Rate: rate, Source: src, Amounts: amts, VATLine: vatIndex}

	purchase := cl.VATDirection == accounts.VATDeductible
	if !s.IsEdited(d.Lines[vatIndex].ID) {
		setSide(&d.Lines[vatIndex], amts.VAT, purchase)
	}

	p := principalIndex(*d, vatIndex, purchase)
	if p < 0 {
		p = d.AddLine("", "")
	}
	res.Principal = p
	if s.IsEdited(d.Lines[p].ID) {
		return res, nil
	}
	if d.Lines[p].Account == "" {
		d.Lines[p].Account = defaultPrincipal(ttcLine.Account, purchase, lookup)
	}
	setSide(&d.Lines[p], amts.HT, purchase)
	res.Filled = true
	return res, nil
}

func principalIndex(d Draft, vatIndex int, purchase bool) int {
	for i, l := range d.Lines {
		if i == vatIndex || i == vatIndex-1 {
			continue
		}
		if purchase && accounts.IsExpense(l.Account) || !purchase && accounts.IsRevenue(l.Account) {
			return i
		}
	}
	for i, l := range d.Lines {
		if i != vatIndex && i != vatIndex-1 && l.empty() {
			return i
		}
	}
	return -1
}

func defaultPrincipal(ttcAccount model.AccountNumber, purchase bool, lookup AccountLookup) model.AccountNumber {
	if lookup != nil {
		if a, ok := lookup.Get(ttcAccount); ok && a.DefaultExpenseAccount != "" {
			return a.DefaultExpenseAccount
		}
	}
	if purchase {
		return accounts.DefaultExpenseAccount
	}
	return accounts.DefaultRevenueAccount
}

// setSide writes amt on the debit side for purchases and the credit side
// for sales.
func setSide(l *DraftLine, amt decimal.Decimal, debit bool) {
	if debit {
		l.Debit, l.Credit = amt, decimal.Zero
		return
	}
	l.Debit, l.Credit = decimal.Zero, amt
}

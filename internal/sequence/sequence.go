package sequence

import (
	"fmt"
	"strconv"
	"time"
)

// Scope selects the identifiers a number is allocated from and how the
// result is formatted.
type Scope struct {
	Prefix string // "" numbers bare identifiers
	Width  int    // zero padding of the numeric part
}

const (
	entryWidth   = 4
	invoiceWidth = 3
)

// EntryScope numbers pieces per journal and month: "AC-2025-01".
func EntryScope(journalCode string, date time.Time) Scope {
	return Scope{Prefix: fmt.Sprintf("%s-%04d-%02d", journalCode, date.Year(), int(date.Month())), Width: entryWidth}
}

// BareScope numbers plain 4-digit identifiers ("0001").
func BareScope() Scope {
	return Scope{Width: entryWidth}
}

// InvoiceScope numbers invoices "F-001" per company and exercise. Invoices
// are padded to 3 digits while pieces use 4.
func InvoiceScope() Scope {
	return Scope{Prefix: "F", Width: invoiceWidth}
}

// Contains reports whether identifier belongs to the scope.
func (s Scope) Contains(identifier string) bool {
	if s.Prefix == "" {
		return true
	}
	p := s.Prefix + "-"
	return len(identifier) > len(p) && identifier[:len(p)] == p
}

// Format renders seq in the scope.
func (s Scope) Format(seq int) string {
	n := fmt.Sprintf("%0*d", s.Width, seq)
	if s.Prefix == "" {
		return n
	}
	return s.Prefix + "-" + n
}

// NextNumber returns the identifier following the highest numeric suffix found
// among existing identifiers in scope. Identifiers without a numeric suffix
// are ignored; an empty scope starts at 1.
func NextNumber(scope Scope, existing []string) string {
	return scope.Format(Max(scope, existing) + 1)
}

// Max returns the highest numeric suffix among existing identifiers in scope.
func Max(scope Scope, existing []string) int {
	maxSeq := 0
	for _, id := range existing {
		if !scope.Contains(id) {
			continue
		}
		seq, ok := TrailingNumber(id)
		if !ok {
			continue
		}
		if seq > maxSeq {
			maxSeq = seq
		}
	}
	return maxSeq
}

// TrailingNumber parses the trailing run of digits of id.
// "AC-2025-01-0007" -> 7, "F-042" -> 42.
func TrailingNumber(id string) (int, bool) {
	i := len(id)
	for i > 0 && id[i-1] >= '0' && id[i-1] <= '9' {
		i--
	}
	if i == len(id) {
		return 0, false
	}
	n, err := strconv.Atoi(id[i:])
	if err != nil {
		return 0, false
	}
	return n, true
}

// Allocator hands out consecutive numbers for several scopes, seeded from
// existing identifiers. It is used when a batch of entries is numbered
// before any of them is stored.
type Allocator struct {
	existing []string
	last     map[string]int
}

// NewAllocator creates an Allocator seeded with existing identifiers.
func NewAllocator(existing []string) *Allocator {
	return &Allocator{existing: existing, last: make(map[string]int)}
}

// Next returns the next identifier in scope.
func (a *Allocator) Next(scope Scope) string {
	key := scope.Prefix
	seq, ok := a.last[key]
	if !ok {
		seq = Max(scope, a.existing)
	}
	seq++
	a.last[key] = seq
	return scope.Format(seq)
}

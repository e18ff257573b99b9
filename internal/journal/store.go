package journal

import (
	"context"
	"errors"
	"time"

	"github.com/cleared-dev/compta/internal/model"
)

// ErrNotFound is returned when an entry ID is not in the store.
var ErrNotFound = errors.New("entry not found")

// Query selects entries from a Store. Zero fields do not filter.
type Query struct {
	CompanyID   string
	ExerciseID  string
	JournalCode string
	From        time.Time // inclusive
	To          time.Time // inclusive
}

// Match reports whether e satisfies the query.
func (q Query) Match(e model.Entry) bool {
	if q.CompanyID != "" && e.CompanyID != q.CompanyID {
		return false
	}
	if q.ExerciseID != "" && e.ExerciseID != q.ExerciseID {
		return false
	}
	if q.JournalCode != "" && e.JournalCode != q.JournalCode {
		return false
	}
	if !q.From.IsZero() && e.Date.Before(q.From) {
		return false
	}
	if !q.To.IsZero() && e.Date.After(q.To) {
		return false
	}
	return true
}

// Store persists entries keyed by company and exercise. List returns entries
// in insertion order.
type Store interface {
	Create(ctx context.Context, entries ...model.Entry) error
	Update(ctx context.Context, e model.Entry) error
	Delete(ctx context.Context, companyID, exerciseID, id string) error
	List(ctx context.Context, q Query) ([]model.Entry, error)
}

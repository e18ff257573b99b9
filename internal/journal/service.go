package journal

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/cleared-dev/compta/internal/model"
	"github.com/cleared-dev/compta/internal/sequence"
)

// Service provides business logic for journal entries of one company and
// exercise. Every write goes through ValidateEntry first.
type Service struct {
	store      Store
	companyID  string
	exerciseID string
	log        *slog.Logger

	mu sync.Mutex // held from reading piece numbers until the batch is stored
}

// NewService creates a journal Service.
func NewService(store Store, companyID, exerciseID string, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, companyID: companyID, exerciseID: exerciseID, log: logger}
}

// AddEntry validates and stores a new entry. Missing ID and piece number are
// assigned; the stored entry is returned.
func (s *Service) AddEntry(ctx context.Context, e model.Entry) (model.Entry, error) {
	out, err := s.AddEntries(ctx, []model.Entry{e})
	if err != nil {
		return model.Entry{}, err
	}
	return out[0], nil
}

// NumberFunc assigns piece numbers to a batch, continuing after the
// exercise's existing numbers.
type NumberFunc func(entries []model.Entry, existing []string)

// AddEntries validates and stores a batch. Entries without a piece number
// get the next one of their journal and month. Nothing is stored if any
// entry is rejected.
func (s *Service) AddEntries(ctx context.Context, entries []model.Entry) ([]model.Entry, error) {
	return s.AddNumbered(ctx, entries, numberMissing)
}

// AddNumbered is AddEntries with the numbering left to number. Reading the
// existing piece numbers and storing the batch happen under one lock, so
// concurrent callers never share a number.
func (s *Service) AddNumbered(ctx context.Context, entries []model.Entry, number NumberFunc) ([]model.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, err := s.PieceNumbers(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]model.Entry, len(entries))
	copy(out, entries)
	number(out, existing)

	var rejected ValidationErrors
	for i, e := range out {
		e = s.scope(e)
		if e.ID == "" {
			e.ID = uuid.NewString()
		}
		rejected = append(rejected, ValidateEntry(e)...)
		out[i] = e
	}
	if len(rejected) > 0 {
		s.log.Warn("entry rejected", "company", s.companyID, "exercise", s.exerciseID, "errors", len(rejected))
		return nil, fmt.Errorf("validation failed: %w", rejected)
	}

	if err := s.store.Create(ctx, out...); err != nil {
		return nil, fmt.Errorf("storing entries: %w", err)
	}
	for _, e := range out {
		s.log.Debug("entry added", "id", e.ID, "journal", e.JournalCode, "piece", e.PieceNumber, "lines", len(e.Lines))
	}
	return out, nil
}

func numberMissing(entries []model.Entry, existing []string) {
	alloc := sequence.NewAllocator(existing)
	for i := range entries {
		if entries[i].PieceNumber == "" {
			entries[i].PieceNumber = alloc.Next(sequence.EntryScope(entries[i].JournalCode, entries[i].Date))
		}
	}
}

// UpdateEntry validates and replaces an existing entry.
func (s *Service) UpdateEntry(ctx context.Context, e model.Entry) error {
	e = s.scope(e)
	if e.ID == "" {
		return fmt.Errorf("updating entry: empty id")
	}
	if verrs := ValidateEntry(e); len(verrs) > 0 {
		return fmt.Errorf("validation failed: %w", verrs)
	}
	if err := s.store.Update(ctx, e); err != nil {
		return err
	}
	s.log.Debug("entry updated", "id", e.ID, "piece", e.PieceNumber)
	return nil
}

// DeleteEntry removes an entry by ID.
func (s *Service) DeleteEntry(ctx context.Context, id string) error {
	if err := s.store.Delete(ctx, s.companyID, s.exerciseID, id); err != nil {
		return err
	}
	s.log.Debug("entry deleted", "id", id)
	return nil
}

// GetEntry returns a single entry by ID.
func (s *Service) GetEntry(ctx context.Context, id string) (model.Entry, error) {
	entries, err := s.ListEntries(ctx, Query{})
	if err != nil {
		return model.Entry{}, err
	}
	for _, e := range entries {
		if e.ID == id {
			return e, nil
		}
	}
	return model.Entry{}, fmt.Errorf("entry %s: %w", id, ErrNotFound)
}

// ListEntries returns the service's entries matching q, in storage order.
// Company and exercise always come from the service.
func (s *Service) ListEntries(ctx context.Context, q Query) ([]model.Entry, error) {
	q.CompanyID = s.companyID
	q.ExerciseID = s.exerciseID
	entries, err := s.store.List(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("listing entries: %w", err)
	}
	return entries, nil
}

// PieceNumbers returns every piece number of the exercise.
func (s *Service) PieceNumbers(ctx context.Context) ([]string, error) {
	entries, err := s.ListEntries(ctx, Query{})
	if err != nil {
		return nil, err
	}
	nums := make([]string, 0, len(entries))
	for _, e := range entries {
		nums = append(nums, e.PieceNumber)
	}
	return nums, nil
}

// NextPieceNumber returns the next available piece number for a journal and
// month, e.g. "AC-2025-01-0003".
func (s *Service) NextPieceNumber(ctx context.Context, journalCode string, date time.Time) (string, error) {
	existing, err := s.PieceNumbers(ctx)
	if err != nil {
		return "", err
	}
	return sequence.NextNumber(sequence.EntryScope(journalCode, date), existing), nil
}

func (s *Service) scope(e model.Entry) model.Entry {
	e.CompanyID = s.companyID
	e.ExerciseID = s.exerciseID
	return e
}

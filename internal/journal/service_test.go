package journal

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cleared-dev/compta/internal/model"
)

func newTestService(t *testing.T) (*Service, *FileStore) {
	t.Helper()
	store := NewFileStore(t.TempDir())
	return NewService(store, "acme", "2025", nil), store
}

func TestService_AddEntry_AssignsIDAndPiece(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	e := purchase("", "", 3, "100.00", "20.00", "120.00")
	got, err := svc.AddEntry(ctx, e)
	require.NoError(t, err)
	assert.NotEmpty(t, got.ID)
	assert.Equal(t, "AC-2025-01-0001", got.PieceNumber)

	got, err = svc.AddEntry(ctx, purchase("", "", 9, "10", "2", "12"))
	require.NoError(t, err)
	assert.Equal(t, "AC-2025-01-0002", got.PieceNumber)

	next, err := svc.NextPieceNumber(ctx, "AC", date(2025, 1, 20))
	require.NoError(t, err)
	assert.Equal(t, "AC-2025-01-0003", next)

	next, err = svc.NextPieceNumber(ctx, "AC", date(2025, 2, 1))
	require.NoError(t, err)
	assert.Equal(t, "AC-2025-02-0001", next)
}

func TestService_AddEntries_BatchNumbering(t *testing.T) {
	svc, _ := newTestService(t)
	got, err := svc.AddEntries(context.Background(), []model.Entry{
		purchase("", "", 3, "100", "20", "120"),
		purchase("", "", 4, "10", "2", "12"),
	})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "AC-2025-01-0001", got[0].PieceNumber)
	assert.Equal(t, "AC-2025-01-0002", got[1].PieceNumber)
}

func TestService_AddEntry_RejectsUnbalanced(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	e := purchase("", "", 3, "100.50", "20.00", "100.00")
	_, err := svc.AddEntry(ctx, e)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "validation failed")
	assert.Contains(t, err.Error(), "Débit=120.50 / Crédit=100.00")

	var ue *UnbalancedError
	assert.True(t, errors.As(err, &ue))

	stored, err := store.List(ctx, Query{CompanyID: "acme"})
	require.NoError(t, err)
	assert.Empty(t, stored, "rejected entries are not persisted")
}

func TestService_AddEntries_AllOrNothing(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	_, err := svc.AddEntries(ctx, []model.Entry{
		purchase("", "", 3, "100", "20", "120"),
		purchase("", "", 4, "10", "2", "13"),
	})
	require.Error(t, err)

	stored, err := store.List(ctx, Query{CompanyID: "acme"})
	require.NoError(t, err)
	assert.Empty(t, stored)
}

func TestService_ScopesCompanyAndExercise(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	e := purchase("", "", 3, "100", "20", "120")
	e.CompanyID = "someone-else"
	e.ExerciseID = "1999"
	got, err := svc.AddEntry(ctx, e)
	require.NoError(t, err)
	assert.Equal(t, "acme", got.CompanyID)
	assert.Equal(t, "2025", got.ExerciseID)

	other := NewService(store, "acme", "2026", nil)
	entries, err := other.ListEntries(ctx, Query{})
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestService_UpdateDeleteGet(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	added, err := svc.AddEntry(ctx, purchase("", "", 3, "100", "20", "120"))
	require.NoError(t, err)

	got, err := svc.GetEntry(ctx, added.ID)
	require.NoError(t, err)
	assert.Equal(t, added.PieceNumber, got.PieceNumber)

	bad := got
	bad.Lines = bad.Lines[:1]
	assert.ErrorContains(t, svc.UpdateEntry(ctx, bad), "validation failed")

	got.Label = "modifiée"
	require.NoError(t, svc.UpdateEntry(ctx, got))
	got, err = svc.GetEntry(ctx, added.ID)
	require.NoError(t, err)
	assert.Equal(t, "modifiée", got.Label)

	require.NoError(t, svc.DeleteEntry(ctx, added.ID))
	_, err = svc.GetEntry(ctx, added.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

// slowStore widens the window between reading piece numbers and storing.
type slowStore struct {
	Store
}

func (s slowStore) List(ctx context.Context, q Query) ([]model.Entry, error) {
	time.Sleep(5 * time.Millisecond)
	return s.Store.List(ctx, q)
}

func TestService_AddEntry_ConcurrentNumbering(t *testing.T) {
	svc := NewService(slowStore{NewFileStore(t.TempDir())}, "acme", "2025", nil)
	ctx := context.Background()

	const n = 5
	pieces := make([]string, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := svc.AddEntry(ctx, purchase("", "", 3, "100", "20", "120"))
			assert.NoError(t, err)
			pieces[i] = got.PieceNumber
		}()
	}
	wg.Wait()

	assert.ElementsMatch(t, []string{
		"AC-2025-01-0001", "AC-2025-01-0002", "AC-2025-01-0003", "AC-2025-01-0004", "AC-2025-01-0005",
	}, pieces)
}

func TestService_AddNumbered(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.AddEntry(ctx, purchase("", "", 3, "100", "20", "120"))
	require.NoError(t, err)

	var seen []string
	got, err := svc.AddNumbered(ctx, []model.Entry{purchase("", "FA-77", 4, "10", "2", "12")},
		func(entries []model.Entry, existing []string) {
			seen = existing
			entries[0].PieceNumber = "AC-2025-01-0042"
		})
	require.NoError(t, err)
	assert.Equal(t, []string{"AC-2025-01-0001"}, seen)
	assert.Equal(t, "AC-2025-01-0042", got[0].PieceNumber)
}

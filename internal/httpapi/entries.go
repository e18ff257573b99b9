package httpapi

import (
	"errors"
	"net/http"
	"strings"
	"time"

	chi "github.com/go-chi/chi/v5"

	"github.com/cleared-dev/compta/internal/auditlog"
	"github.com/cleared-dev/compta/internal/journal"
	"github.com/cleared-dev/compta/internal/ledger"
)

// listEntries handles GET /entries[?journal=AC&from=2025-01-01&to=2025-01-31].
func (s *Server) listEntries(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	from, to, ok := parsePeriod(w, q.Get("from"), q.Get("to"))
	if !ok {
		return
	}
	entries, err := s.deps.Journal.ListEntries(r.Context(), journal.Query{
		JournalCode: strings.ToUpper(q.Get("journal")),
		From:        from,
		To:          to,
	})
	if err != nil {
		s.log.Error("listing entries", "err", err)
		toJSON(w, http.StatusInternalServerError, errorResponse{Error: "listing entries failed"})
		return
	}
	entries = ledger.SortEntries(entries)
	out := make([]entryResponse, len(entries))
	for i, e := range entries {
		out[i] = toEntryResponse(e)
	}
	toJSON(w, http.StatusOK, out)
}

// postEntry handles POST /entries. The entry must balance; the piece number
// is allocated when the request leaves it empty.
func (s *Server) postEntry(w http.ResponseWriter, r *http.Request) {
	var req entryRequest
	if !s.decode(w, r, &req) {
		return
	}
	e, err := req.toEntry()
	if err != nil {
		unprocessable(w, err.Error(), "validation_error")
		return
	}
	if !s.knownJournal(e.JournalCode) {
		unprocessable(w, "unknown journal "+e.JournalCode, "unknown_journal")
		return
	}
	for i, l := range e.Lines {
		a, ok := s.deps.Accounts.Get(l.AccountNumber)
		if !ok {
			unprocessable(w, "unknown account "+l.AccountNumber.String(), "unknown_account")
			return
		}
		e.Lines[i].AccountLabel = a.Label
	}

	stored, err := s.deps.Journal.AddEntry(r.Context(), e)
	if err != nil {
		if details, ok := validationDetails(err); ok {
			entriesTotal.WithLabelValues(e.JournalCode, "rejected").Inc()
			unprocessable(w, "entry rejected", "invalid_entry", details...)
			return
		}
		s.log.Error("adding entry", "err", err)
		toJSON(w, http.StatusInternalServerError, errorResponse{Error: "storing entry failed"})
		return
	}
	entriesTotal.WithLabelValues(e.JournalCode, "stored").Inc()
	if !s.changed(w, r, auditlog.ActionEntryAdd, stored.PieceNumber, stored.Label) {
		return
	}
	toJSON(w, http.StatusCreated, toEntryResponse(stored))
}

// deleteEntry handles DELETE /entries/{id}.
func (s *Server) deleteEntry(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	e, err := s.deps.Journal.GetEntry(r.Context(), id)
	if err == nil {
		err = s.deps.Journal.DeleteEntry(r.Context(), id)
	}
	if err != nil {
		if errors.Is(err, journal.ErrNotFound) {
			toJSON(w, http.StatusNotFound, errorResponse{Error: "entry not found", Code: "not_found"})
			return
		}
		s.log.Error("deleting entry", "id", id, "err", err)
		toJSON(w, http.StatusInternalServerError, errorResponse{Error: "deleting entry failed"})
		return
	}
	if !s.changed(w, r, auditlog.ActionEntryDelete, e.PieceNumber, e.Label) {
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) knownJournal(code string) bool {
	if len(s.deps.Journals) == 0 {
		return true
	}
	for _, j := range s.deps.Journals {
		if j.Code == code {
			return true
		}
	}
	return false
}

// parsePeriod reads optional YYYY-MM-DD bounds.
func parsePeriod(w http.ResponseWriter, rawFrom, rawTo string) (from, to time.Time, ok bool) {
	var err error
	if rawFrom != "" {
		if from, err = time.Parse(dateLayout, rawFrom); err != nil {
			badRequest(w, "invalid from")
			return from, to, false
		}
	}
	if rawTo != "" {
		if to, err = time.Parse(dateLayout, rawTo); err != nil {
			badRequest(w, "invalid to")
			return from, to, false
		}
	}
	if !from.IsZero() && !to.IsZero() && to.Before(from) {
		badRequest(w, "to is before from")
		return from, to, false
	}
	return from, to, true
}

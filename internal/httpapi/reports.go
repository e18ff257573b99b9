package httpapi

import (
	"net/http"
	"strings"

	"github.com/cleared-dev/compta/internal/export"
	"github.com/cleared-dev/compta/internal/journal"
	"github.com/cleared-dev/compta/internal/ledger"
	"github.com/cleared-dev/compta/internal/model"
)

// ledgerFilter reads from, to, account_from, account_to and any number of
// journal parameters.
func ledgerFilter(w http.ResponseWriter, r *http.Request) (ledger.Filter, bool) {
	q := r.URL.Query()
	from, to, ok := parsePeriod(w, q.Get("from"), q.Get("to"))
	if !ok {
		return ledger.Filter{}, false
	}
	f := ledger.Filter{
		From:        from,
		To:          to,
		AccountFrom: model.AccountNumber(q.Get("account_from")),
		AccountTo:   model.AccountNumber(q.Get("account_to")),
	}
	for _, j := range q["journal"] {
		f.Journals = append(f.Journals, strings.ToUpper(j))
	}
	return f, true
}

func (s *Server) allEntries(w http.ResponseWriter, r *http.Request) ([]model.Entry, bool) {
	entries, err := s.deps.Journal.ListEntries(r.Context(), journal.Query{})
	if err != nil {
		s.log.Error("listing entries", "err", err)
		toJSON(w, http.StatusInternalServerError, errorResponse{Error: "listing entries failed"})
		return nil, false
	}
	return entries, true
}

// balance handles GET /reports/balance.
func (s *Server) balance(w http.ResponseWriter, r *http.Request) {
	f, ok := ledgerFilter(w, r)
	if !ok {
		return
	}
	entries, ok := s.allEntries(w, r)
	if !ok {
		return
	}
	b := ledger.TrialBalance(entries, f)
	out := balanceResponse{
		Rows:     make([]balanceRow, len(b.Rows)),
		Classes:  make([]classeRow, len(b.Classes)),
		Total:    toTotals(b.Total),
		Balanced: b.Balanced(),
	}
	for i, row := range b.Rows {
		out.Rows[i] = balanceRow{Account: row.Number.String(), Label: row.Label, totalsResponse: toTotals(row.Totals)}
	}
	for i, c := range b.Classes {
		out.Classes[i] = classeRow{Classe: c.Classe, totalsResponse: toTotals(c.Totals)}
	}
	toJSON(w, http.StatusOK, out)
}

// grandLivre handles GET /reports/grand-livre.
func (s *Server) grandLivre(w http.ResponseWriter, r *http.Request) {
	f, ok := ledgerFilter(w, r)
	if !ok {
		return
	}
	entries, ok := s.allEntries(w, r)
	if !ok {
		return
	}
	g := ledger.GeneralLedger(entries, f)
	out := grandLivreResponse{
		Accounts:    make([]accountLedgerResponse, len(g.Accounts)),
		TotalDebit:  formatAmount(g.TotalDebit),
		TotalCredit: formatAmount(g.TotalCredit),
	}
	for i, a := range g.Accounts {
		al := accountLedgerResponse{
			Account:     a.Number.String(),
			Label:       a.Label,
			Movements:   make([]movementResponse, len(a.Movements)),
			TotalDebit:  formatAmount(a.TotalDebit),
			TotalCredit: formatAmount(a.TotalCredit),
			Balance:     formatAmount(a.Balance()),
		}
		for j, m := range a.Movements {
			al.Movements[j] = movementResponse{
				Date:        m.Date.Format(dateLayout),
				Journal:     m.JournalCode,
				PieceNumber: m.PieceNumber,
				Label:       m.Label,
				Debit:       formatAmount(m.Debit),
				Credit:      formatAmount(m.Credit),
				Balance:     formatAmount(m.Balance),
			}
		}
		out.Accounts[i] = al
	}
	toJSON(w, http.StatusOK, out)
}

// exportJournal handles GET /export/journal.csv.
func (s *Server) exportJournal(w http.ResponseWriter, r *http.Request) {
	entries, ok := s.allEntries(w, r)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="journal.csv"`)
	if err := export.WriteJournal(w, ledger.SortEntries(entries)); err != nil {
		s.log.Error("exporting journal", "err", err)
	}
}

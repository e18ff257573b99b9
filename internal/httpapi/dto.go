package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/cleared-dev/compta/internal/journal"
	"github.com/cleared-dev/compta/internal/ledger"
	"github.com/cleared-dev/compta/internal/model"
)

const dateLayout = "2006-01-02"

type errorResponse struct {
	Error   string   `json:"error"`
	Code    string   `json:"code,omitempty"`
	Details []string `json:"details,omitempty"`
}

func toJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func badRequest(w http.ResponseWriter, msg string) {
	toJSON(w, http.StatusBadRequest, errorResponse{Error: msg, Code: "bad_request"})
}

func unprocessable(w http.ResponseWriter, msg, code string, details ...string) {
	toJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: msg, Code: code, Details: details})
}

// decode reads a JSON body into dst and runs the struct validator on it.
// It writes the error response itself and reports whether to continue.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		badRequest(w, "invalid JSON: "+err.Error())
		return false
	}
	if err := s.validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			details := make([]string, len(verrs))
			for i, fe := range verrs {
				details[i] = fmt.Sprintf("%s: failed %q", fe.Namespace(), fe.Tag())
			}
			unprocessable(w, "validation_error", "validation_error", details...)
			return false
		}
		badRequest(w, err.Error())
		return false
	}
	return true
}

func formatAmount(d decimal.Decimal) string { return d.StringFixed(2) }

// parseAmount accepts "120.50", "120,50" and the empty string (zero).
func parseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", "."))
	if s == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(s)
}

type accountRequest struct {
	Number                string `json:"number" validate:"required,numeric,max=12"`
	Label                 string `json:"label" validate:"required,max=200"`
	VATRate               string `json:"vat_rate,omitempty"`
	DefaultExpenseAccount string `json:"default_expense_account,omitempty" validate:"omitempty,numeric"`
	DefaultVATAccount     string `json:"default_vat_account,omitempty" validate:"omitempty,numeric"`
}

type accountResponse struct {
	Number                string `json:"number"`
	Label                 string `json:"label"`
	Classe                int    `json:"classe"`
	VATRate               string `json:"vat_rate,omitempty"`
	DefaultExpenseAccount string `json:"default_expense_account,omitempty"`
	DefaultVATAccount     string `json:"default_vat_account,omitempty"`
}

func toAccountResponse(a model.Account) accountResponse {
	out := accountResponse{
		Number:                a.Number.String(),
		Label:                 a.Label,
		Classe:                a.Number.Classe(),
		DefaultExpenseAccount: a.DefaultExpenseAccount.String(),
		DefaultVATAccount:     a.DefaultVATAccount.String(),
	}
	if a.VATRate.Valid {
		out.VATRate = a.VATRate.Decimal.String()
	}
	return out
}

type classificationResponse struct {
	Number       string `json:"number"`
	Known        bool   `json:"known"`
	Label        string `json:"label,omitempty"`
	Classe       int    `json:"classe"`
	Receivable   bool   `json:"receivable"`
	Payable      bool   `json:"payable"`
	VAT          bool   `json:"vat"`
	VATDirection string `json:"vat_direction"`
	Expense      bool   `json:"expense"`
	Revenue      bool   `json:"revenue"`
}

type lineRequest struct {
	Account string `json:"account" validate:"required,numeric"`
	Label   string `json:"label,omitempty"`
	Debit   string `json:"debit,omitempty"`
	Credit  string `json:"credit,omitempty"`
}

type entryRequest struct {
	Journal     string        `json:"journal" validate:"required,alphanum,max=8"`
	Date        string        `json:"date" validate:"required,datetime=2006-01-02"`
	PieceNumber string        `json:"piece_number,omitempty"`
	Label       string        `json:"label" validate:"required"`
	Lines       []lineRequest `json:"lines" validate:"required,dive"`
}

// toEntry converts a validated request. Account labels are filled in by
// the handler from the chart.
func (req entryRequest) toEntry() (model.Entry, error) {
	date, err := time.Parse(dateLayout, req.Date)
	if err != nil {
		return model.Entry{}, fmt.Errorf("date: %w", err)
	}
	e := model.Entry{
		JournalCode: strings.ToUpper(req.Journal),
		Date:        date,
		PieceNumber: req.PieceNumber,
		Label:       req.Label,
		Lines:       make([]model.JournalLine, 0, len(req.Lines)),
	}
	for i, l := range req.Lines {
		debit, err := parseAmount(l.Debit)
		if err != nil {
			return model.Entry{}, fmt.Errorf("lines[%d].debit: %w", i, err)
		}
		credit, err := parseAmount(l.Credit)
		if err != nil {
			return model.Entry{}, fmt.Errorf("lines[%d].credit: %w", i, err)
		}
		e.Lines = append(e.Lines, model.JournalLine{
			AccountNumber: model.AccountNumber(l.Account),
			Label:         l.Label,
			Debit:         debit,
			Credit:        credit,
		})
	}
	return e, nil
}

type lineResponse struct {
	Account      string `json:"account"`
	AccountLabel string `json:"account_label,omitempty"`
	Label        string `json:"label,omitempty"`
	Debit        string `json:"debit"`
	Credit       string `json:"credit"`
}

type entryResponse struct {
	ID          string         `json:"id"`
	Journal     string         `json:"journal"`
	Date        string         `json:"date"`
	PieceNumber string         `json:"piece_number"`
	Label       string         `json:"label"`
	Lines       []lineResponse `json:"lines"`
}

func toEntryResponse(e model.Entry) entryResponse {
	out := entryResponse{
		ID:          e.ID,
		Journal:     e.JournalCode,
		Date:        e.Date.Format(dateLayout),
		PieceNumber: e.PieceNumber,
		Label:       e.Label,
		Lines:       make([]lineResponse, len(e.Lines)),
	}
	for i, l := range e.Lines {
		out.Lines[i] = lineResponse{
			Account:      l.AccountNumber.String(),
			AccountLabel: l.AccountLabel,
			Label:        l.Label,
			Debit:        formatAmount(l.Debit),
			Credit:       formatAmount(l.Credit),
		}
	}
	return out
}

type totalsResponse struct {
	DebitTotal    string `json:"debit_total"`
	CreditTotal   string `json:"credit_total"`
	DebitBalance  string `json:"debit_balance"`
	CreditBalance string `json:"credit_balance"`
}

func toTotals(t ledger.Totals) totalsResponse {
	return totalsResponse{
		DebitTotal:    formatAmount(t.DebitTotal),
		CreditTotal:   formatAmount(t.CreditTotal),
		DebitBalance:  formatAmount(t.DebitBalance),
		CreditBalance: formatAmount(t.CreditBalance),
	}
}

type balanceRow struct {
	Account string `json:"account"`
	Label   string `json:"label"`
	totalsResponse
}

type classeRow struct {
	Classe int `json:"classe"`
	totalsResponse
}

type balanceResponse struct {
	Rows     []balanceRow   `json:"rows"`
	Classes  []classeRow    `json:"classes"`
	Total    totalsResponse `json:"total"`
	Balanced bool           `json:"balanced"`
}

type movementResponse struct {
	Date        string `json:"date"`
	Journal     string `json:"journal"`
	PieceNumber string `json:"piece_number"`
	Label       string `json:"label"`
	Debit       string `json:"debit"`
	Credit      string `json:"credit"`
	Balance     string `json:"balance"`
}

type accountLedgerResponse struct {
	Account     string             `json:"account"`
	Label       string             `json:"label"`
	Movements   []movementResponse `json:"movements"`
	TotalDebit  string             `json:"total_debit"`
	TotalCredit string             `json:"total_credit"`
	Balance     string             `json:"balance"`
}

type grandLivreResponse struct {
	Accounts    []accountLedgerResponse `json:"accounts"`
	TotalDebit  string                  `json:"total_debit"`
	TotalCredit string                  `json:"total_credit"`
}

type vatSplitRequest struct {
	TTC     string `json:"ttc" validate:"required"`
	Rate    string `json:"rate,omitempty"`
	Account string `json:"account,omitempty" validate:"omitempty,numeric"`
	Label   string `json:"label,omitempty"`
}

type vatSplitResponse struct {
	TTC    string `json:"ttc"`
	HT     string `json:"ht"`
	VAT    string `json:"vat"`
	Rate   string `json:"rate"`
	Source string `json:"source"`
}

type importResponse struct {
	Imported    int      `json:"imported"`
	Pieces      []string `json:"pieces"`
	NewAccounts []string `json:"new_accounts"`
	Errors      []string `json:"errors"`
}

// validationDetails flattens a journal rejection into messages.
func validationDetails(err error) ([]string, bool) {
	var verrs journal.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil, false
	}
	out := make([]string, len(verrs))
	for i, ve := range verrs {
		out[i] = ve.Error()
	}
	return out, true
}

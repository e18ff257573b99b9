package httpapi

import (
	"errors"
	"net/http"
	"strconv"

	chi "github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/cleared-dev/compta/internal/accounts"
	"github.com/cleared-dev/compta/internal/auditlog"
	"github.com/cleared-dev/compta/internal/model"
	"github.com/cleared-dev/compta/internal/vat"
)

// listAccounts handles GET /accounts[?classe=N].
func (s *Server) listAccounts(w http.ResponseWriter, r *http.Request) {
	list := s.deps.Accounts.All()
	if raw := r.URL.Query().Get("classe"); raw != "" {
		classe, err := strconv.Atoi(raw)
		if err != nil || classe < 0 || classe > 9 {
			badRequest(w, "invalid classe")
			return
		}
		list = s.deps.Accounts.ByClasse(classe)
	}
	out := make([]accountResponse, len(list))
	for i, a := range list {
		out[i] = toAccountResponse(a)
	}
	toJSON(w, http.StatusOK, out)
}

// postAccount handles POST /accounts.
func (s *Server) postAccount(w http.ResponseWriter, r *http.Request) {
	var req accountRequest
	if !s.decode(w, r, &req) {
		return
	}
	acct := model.Account{
		Number:                model.AccountNumber(req.Number),
		Label:                 req.Label,
		DefaultExpenseAccount: model.AccountNumber(req.DefaultExpenseAccount),
		DefaultVATAccount:     model.AccountNumber(req.DefaultVATAccount),
	}
	if req.VATRate != "" {
		rate, ok := vat.ParseRate(req.VATRate)
		if !ok {
			unprocessable(w, "invalid vat_rate", "validation_error")
			return
		}
		acct.VATRate = decimal.NewNullDecimal(rate)
	}
	if err := s.deps.Accounts.Add(acct); err != nil {
		if errors.Is(err, accounts.ErrExists) {
			toJSON(w, http.StatusConflict, errorResponse{Error: err.Error(), Code: "account_exists"})
			return
		}
		unprocessable(w, err.Error(), "validation_error")
		return
	}
	if !s.changed(w, r, auditlog.ActionAccountAdd, req.Number, req.Label) {
		return
	}
	toJSON(w, http.StatusCreated, toAccountResponse(acct))
}

// classifyAccount handles GET /accounts/{number}/classification. Any number
// is classified, known to the chart or not.
func (s *Server) classifyAccount(w http.ResponseWriter, r *http.Request) {
	n := model.AccountNumber(chi.URLParam(r, "number"))
	c := accounts.Classify(n)
	out := classificationResponse{
		Number:       n.String(),
		Classe:       c.Classe,
		Receivable:   c.Receivable,
		Payable:      c.Payable,
		VAT:          c.VAT,
		VATDirection: c.VATDirection.String(),
		Expense:      accounts.IsExpense(n),
		Revenue:      accounts.IsRevenue(n),
	}
	if a, ok := s.deps.Accounts.Get(n); ok {
		out.Known = true
		out.Label = a.Label
	}
	toJSON(w, http.StatusOK, out)
}

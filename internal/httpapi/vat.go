package httpapi

import (
	"net/http"

	"github.com/cleared-dev/compta/internal/model"
	"github.com/cleared-dev/compta/internal/vat"
)

// vatSplit handles POST /vat/split. Without an explicit rate, the rate is
// detected from the VAT account and the label the way entry editing does.
func (s *Server) vatSplit(w http.ResponseWriter, r *http.Request) {
	var req vatSplitRequest
	if !s.decode(w, r, &req) {
		return
	}
	ttc, err := parseAmount(req.TTC)
	if err != nil || !ttc.IsPositive() {
		unprocessable(w, "ttc must be a positive amount", "validation_error")
		return
	}

	session := vat.NewSession()
	if req.Rate != "" {
		manual, ok := vat.ParseRate(req.Rate)
		if !ok || !session.SetRate(manual) {
			unprocessable(w, "invalid rate", "validation_error")
			return
		}
	}
	d := vat.Draft{Label: req.Label}
	d.AddLine(model.AccountNumber(req.Account), "")
	rate, source := session.DetectRate(d, 0, s.deps.Accounts)

	amts := vat.Split(ttc, rate)
	toJSON(w, http.StatusOK, vatSplitResponse{
		TTC:    formatAmount(amts.TTC),
		HT:     formatAmount(amts.HT),
		VAT:    formatAmount(amts.VAT),
		Rate:   rate.String(),
		Source: source.String(),
	})
}

package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cleared-dev/compta/internal/accounts"
	"github.com/cleared-dev/compta/internal/auditlog"
	"github.com/cleared-dev/compta/internal/config"
	"github.com/cleared-dev/compta/internal/importer"
	"github.com/cleared-dev/compta/internal/journal"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

type fixture struct {
	h       http.Handler
	journal *journal.Service
	changes []auditlog.Record
}

func setup(t *testing.T) *fixture {
	t.Helper()
	js := journal.NewService(journal.NewFileStore(t.TempDir()), "acme", "2025", testLogger())
	as := accounts.NewService(accounts.DefaultChart(""))
	f := &fixture{journal: js}
	srv := New(Deps{
		Journal:  js,
		Accounts: as,
		Importer: importer.New(js, as, testLogger()),
		Journals: config.DefaultJournals(),
		OnChange: func(_ context.Context, rec auditlog.Record) error {
			f.changes = append(f.changes, rec)
			return nil
		},
	}, testLogger())
	f.h = srv.Handler()
	return f
}

func (f *fixture) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rd)
	rr := httptest.NewRecorder()
	f.h.ServeHTTP(rr, req)
	return rr
}

func decodeJSON[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &v), rr.Body.String())
	return v
}

const purchaseJSON = `{
	"journal": "AC",
	"date": "2025-01-15",
	"label": "Facture fournisseur",
	"lines": [
		{"account": "607000", "debit": "100.00"},
		{"account": "445660", "debit": "20.00"},
		{"account": "401000", "credit": "120.00"}
	]
}`

func TestHealthz(t *testing.T) {
	f := setup(t)
	rr := f.do(t, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"status":"ok","version":"dev"}`, rr.Body.String())
}

func TestMetrics(t *testing.T) {
	f := setup(t)
	f.do(t, http.MethodGet, "/healthz", "")
	rr := f.do(t, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "compta_http_requests_total")
}

func TestAccounts(t *testing.T) {
	f := setup(t)

	rr := f.do(t, http.MethodGet, "/accounts?classe=4", "")
	require.Equal(t, http.StatusOK, rr.Code)
	list := decodeJSON[[]accountResponse](t, rr)
	require.NotEmpty(t, list)
	for _, a := range list {
		assert.Equal(t, 4, a.Classe)
	}

	rr = f.do(t, http.MethodPost, "/accounts", `{"number":"445662","label":"TVA déductible 10 %","vat_rate":"10"}`)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	created := decodeJSON[accountResponse](t, rr)
	assert.Equal(t, "0.1", created.VATRate)
	require.Len(t, f.changes, 1)
	assert.Equal(t, auditlog.ActionAccountAdd, f.changes[0].Action)
	assert.Equal(t, "445662", f.changes[0].Target)

	rr = f.do(t, http.MethodPost, "/accounts", `{"number":"445662","label":"doublon"}`)
	assert.Equal(t, http.StatusConflict, rr.Code)

	rr = f.do(t, http.MethodPost, "/accounts", `{"number":"abc","label":""}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	er := decodeJSON[errorResponse](t, rr)
	assert.Len(t, er.Details, 2)

	rr = f.do(t, http.MethodPost, "/accounts", `{"number":"1","label":"x","extra":true}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestClassification(t *testing.T) {
	f := setup(t)

	rr := f.do(t, http.MethodGet, "/accounts/44566/classification", "")
	require.Equal(t, http.StatusOK, rr.Code)
	c := decodeJSON[classificationResponse](t, rr)
	assert.Equal(t, 4, c.Classe)
	assert.True(t, c.VAT)
	assert.Equal(t, "deductible", c.VATDirection)
	assert.True(t, c.Payable)
	assert.False(t, c.Known)

	rr = f.do(t, http.MethodGet, "/accounts/411000/classification", "")
	c = decodeJSON[classificationResponse](t, rr)
	assert.True(t, c.Receivable)
	assert.False(t, c.Payable)
	assert.True(t, c.Known)
	assert.Equal(t, "Clients", c.Label)

	rr = f.do(t, http.MethodGet, "/accounts/607000/classification", "")
	c = decodeJSON[classificationResponse](t, rr)
	assert.True(t, c.Expense)
	assert.Equal(t, "none", c.VATDirection)
}

func TestEntries(t *testing.T) {
	f := setup(t)

	rr := f.do(t, http.MethodPost, "/entries", purchaseJSON)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	e := decodeJSON[entryResponse](t, rr)
	assert.Equal(t, "AC-2025-01-0001", e.PieceNumber)
	assert.NotEmpty(t, e.ID)
	require.Len(t, e.Lines, 3)
	assert.Equal(t, "Achats de marchandises", e.Lines[0].AccountLabel)
	assert.Equal(t, "0.00", e.Lines[0].Credit)

	rr = f.do(t, http.MethodPost, "/entries", purchaseJSON)
	require.Equal(t, http.StatusCreated, rr.Code)
	assert.Equal(t, "AC-2025-01-0002", decodeJSON[entryResponse](t, rr).PieceNumber)

	rr = f.do(t, http.MethodGet, "/entries?journal=ac&from=2025-01-01&to=2025-01-31", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Len(t, decodeJSON[[]entryResponse](t, rr), 2)

	rr = f.do(t, http.MethodGet, "/entries?journal=VE", "")
	assert.Empty(t, decodeJSON[[]entryResponse](t, rr))

	rr = f.do(t, http.MethodGet, "/entries?from=2025-02-01&to=2025-01-01", "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = f.do(t, http.MethodDelete, "/entries/"+e.ID, "")
	assert.Equal(t, http.StatusNoContent, rr.Code)
	rr = f.do(t, http.MethodDelete, "/entries/"+e.ID, "")
	assert.Equal(t, http.StatusNotFound, rr.Code)

	actions := make([]string, len(f.changes))
	for i, c := range f.changes {
		actions[i] = c.Action
	}
	assert.Equal(t, []string{auditlog.ActionEntryAdd, auditlog.ActionEntryAdd, auditlog.ActionEntryDelete}, actions)
	assert.Equal(t, "AC-2025-01-0001", f.changes[2].Target)
}

func TestPostEntry_Rejected(t *testing.T) {
	tests := []struct {
		name string
		body string
		code string
	}{
		{
			name: "unbalanced",
			body: `{"journal":"AC","date":"2025-01-15","label":"x","lines":[
				{"account":"607000","debit":"100.00"},{"account":"401000","credit":"99.00"}]}`,
			code: "invalid_entry",
		},
		{
			name: "single line",
			body: `{"journal":"AC","date":"2025-01-15","label":"x","lines":[{"account":"607000","debit":"0"}]}`,
			code: "invalid_entry",
		},
		{
			name: "unknown account",
			body: `{"journal":"AC","date":"2025-01-15","label":"x","lines":[
				{"account":"999999","debit":"1"},{"account":"401000","credit":"1"}]}`,
			code: "unknown_account",
		},
		{
			name: "unknown journal",
			body: `{"journal":"ZZ","date":"2025-01-15","label":"x","lines":[
				{"account":"607000","debit":"1"},{"account":"401000","credit":"1"}]}`,
			code: "unknown_journal",
		},
		{
			name: "bad date",
			body: `{"journal":"AC","date":"15/01/2025","label":"x","lines":[]}`,
			code: "validation_error",
		},
		{
			name: "bad amount",
			body: `{"journal":"AC","date":"2025-01-15","label":"x","lines":[
				{"account":"607000","debit":"douze"},{"account":"401000","credit":"1"}]}`,
			code: "validation_error",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := setup(t)
			rr := f.do(t, http.MethodPost, "/entries", tt.body)
			require.Equal(t, http.StatusUnprocessableEntity, rr.Code, rr.Body.String())
			assert.Equal(t, tt.code, decodeJSON[errorResponse](t, rr).Code)
			assert.Empty(t, f.changes)

			entries, err := f.journal.ListEntries(context.Background(), journal.Query{})
			require.NoError(t, err)
			assert.Empty(t, entries)
		})
	}
}

func TestReports(t *testing.T) {
	f := setup(t)
	require.Equal(t, http.StatusCreated, f.do(t, http.MethodPost, "/entries", purchaseJSON).Code)
	sale := `{"journal":"VE","date":"2025-02-03","label":"Vente","lines":[
		{"account":"411000","debit":"240.00"},
		{"account":"707000","credit":"200.00"},
		{"account":"445710","credit":"40.00"}]}`
	require.Equal(t, http.StatusCreated, f.do(t, http.MethodPost, "/entries", sale).Code)

	rr := f.do(t, http.MethodGet, "/reports/balance", "")
	require.Equal(t, http.StatusOK, rr.Code)
	b := decodeJSON[balanceResponse](t, rr)
	assert.True(t, b.Balanced)
	assert.Equal(t, "360.00", b.Total.DebitTotal)
	assert.Equal(t, "360.00", b.Total.CreditTotal)
	require.Len(t, b.Rows, 6)
	assert.Equal(t, "401000", b.Rows[0].Account)
	assert.Equal(t, "120.00", b.Rows[0].CreditBalance)

	rr = f.do(t, http.MethodGet, "/reports/balance?journal=VE", "")
	b = decodeJSON[balanceResponse](t, rr)
	assert.Len(t, b.Rows, 3)

	rr = f.do(t, http.MethodGet, "/reports/grand-livre?account_from=600000&account_to=799999", "")
	require.Equal(t, http.StatusOK, rr.Code)
	g := decodeJSON[grandLivreResponse](t, rr)
	require.Len(t, g.Accounts, 2)
	assert.Equal(t, "607000", g.Accounts[0].Account)
	assert.Equal(t, "100.00", g.Accounts[0].Balance)
	assert.Equal(t, "-200.00", g.Accounts[1].Balance)
	require.Len(t, g.Accounts[1].Movements, 1)
	assert.Equal(t, "VE-2025-02-0001", g.Accounts[1].Movements[0].PieceNumber)

	rr = f.do(t, http.MethodGet, "/reports/balance?from=bad", "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestVATSplit(t *testing.T) {
	f := setup(t)
	tests := []struct {
		name    string
		body    string
		ht, vat string
		source  string
	}{
		{"explicit rate", `{"ttc":"1.13","rate":"0.196"}`, "0.95", "0.18", "manual"},
		{"percent rate", `{"ttc":"120","rate":"20%"}`, "100.00", "20.00", "manual"},
		{"account rate", `{"ttc":"105.50","account":"445661"}`, "100.00", "5.50", "account"},
		{"entry label", `{"ttc":"110","label":"Repas TVA 10 %"}`, "100.00", "10.00", "entry label"},
		{"default", `{"ttc":"12"}`, "10.00", "2.00", "default"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := f.do(t, http.MethodPost, "/vat/split", tt.body)
			require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
			got := decodeJSON[vatSplitResponse](t, rr)
			assert.Equal(t, tt.ht, got.HT)
			assert.Equal(t, tt.vat, got.VAT)
			assert.Equal(t, tt.source, got.Source)
		})
	}

	rr := f.do(t, http.MethodPost, "/vat/split", `{"ttc":"-5"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	rr = f.do(t, http.MethodPost, "/vat/split", `{"ttc":"5","rate":"150%"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	rr = f.do(t, http.MethodPost, "/vat/split", `{}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
}

func TestImportFEC(t *testing.T) {
	f := setup(t)
	data := "JournalCode\tJournalLib\tEcritureNum\tEcritureDate\tCompteNum\tCompteLib\tPieceRef\tEcritureLib\tDebit\tCredit\n" +
		"VE\tVentes\t1\t20250305\t411000\tClients\tF001\tVente\t120,00\t\n" +
		"VE\tVentes\t1\t20250305\t707000\tVentes\tF001\tVente\t\t100,00\n" +
		"VE\tVentes\t1\t20250305\t445710\tTVA\tF001\tVente\t\t20,00\n" +
		"VE\tVentes\t2\t20250306\t411000\tClients\tF002\tVente\t10,00\t\n" +
		"VE\tVentes\t2\t20250306\t707000\tVentes\tF002\tVente\t\t9,00\n"

	rr := f.do(t, http.MethodPost, "/import/fec", data)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	res := decodeJSON[importResponse](t, rr)
	assert.Equal(t, 1, res.Imported)
	assert.Equal(t, []string{"VE-2025-03-0001"}, res.Pieces)
	require.Len(t, res.Errors, 1)
	assert.Contains(t, res.Errors[0], "F002")
	require.Len(t, f.changes, 1)
	assert.Equal(t, auditlog.ActionImport, f.changes[0].Action)

	rr = f.do(t, http.MethodPost, "/import/fec", "foo\tbar\n")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	rr = f.do(t, http.MethodPost, "/import/fec", "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestExportJournal(t *testing.T) {
	f := setup(t)
	require.Equal(t, http.StatusCreated, f.do(t, http.MethodPost, "/entries", purchaseJSON).Code)

	rr := f.do(t, http.MethodGet, "/export/journal.csv", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "text/csv; charset=utf-8", rr.Header().Get("Content-Type"))
	body := rr.Body.Bytes()
	assert.True(t, bytes.HasPrefix(body, []byte("\ufeffJournal;Date;")))
	assert.Contains(t, string(body), "AC;15/01/2025;AC-2025-01-0001;607000;Achats de marchandises;Facture fournisseur;100,00;0,00")
}

func TestOnChangeFailure(t *testing.T) {
	js := journal.NewService(journal.NewFileStore(t.TempDir()), "acme", "2025", testLogger())
	srv := New(Deps{
		Journal:  js,
		Accounts: accounts.NewService(accounts.DefaultChart("")),
		OnChange: func(context.Context, auditlog.Record) error { return assert.AnError },
	}, testLogger())

	req := httptest.NewRequest(http.MethodPost, "/entries", strings.NewReader(purchaseJSON))
	rr := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rr, req)
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Contains(t, rr.Body.String(), "persist_failed")
}

func TestRecoverer(t *testing.T) {
	h := recoverer(testLogger())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
}

// Package httpapi exposes the books of one company and exercise over HTTP.
// Handlers stay thin and delegate to the journal, accounts and importer
// services.
package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"reflect"
	"strings"

	chi "github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"

	"github.com/cleared-dev/compta/internal/accounts"
	"github.com/cleared-dev/compta/internal/auditlog"
	"github.com/cleared-dev/compta/internal/buildinfo"
	"github.com/cleared-dev/compta/internal/importer"
	"github.com/cleared-dev/compta/internal/journal"
	"github.com/cleared-dev/compta/internal/model"
)

// ChangeFunc is called after every successful mutation. The command layer
// uses it to save the chart, append to the audit log and commit.
type ChangeFunc func(ctx context.Context, rec auditlog.Record) error

// Deps are the services the server works on.
type Deps struct {
	Journal  *journal.Service
	Accounts *accounts.Service
	Importer *importer.Importer
	Journals []model.Journal // known journal codes; empty accepts any
	OnChange ChangeFunc
}

// Server wires handlers and middleware using Chi.
type Server struct {
	deps     Deps
	validate *validator.Validate
	log      *slog.Logger
	rt       *chi.Mux
}

// New constructs the HTTP server with routes and middleware.
func New(deps Deps, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(requestLogger(logger))
	r.Use(recoverer(logger))
	r.Use(metricsMiddleware)

	s := &Server{deps: deps, validate: newValidator(), log: logger, rt: r}
	s.routes()
	return s
}

// Handler exposes the configured http.Handler.
func (s *Server) Handler() http.Handler { return s.rt }

func (s *Server) routes() {
	s.rt.Get("/healthz", s.healthz)
	s.rt.Method(http.MethodGet, "/metrics", metricsHandler())

	s.rt.Get("/accounts", s.listAccounts)
	s.rt.Post("/accounts", s.postAccount)
	s.rt.Get("/accounts/{number}/classification", s.classifyAccount)

	s.rt.Get("/entries", s.listEntries)
	s.rt.Post("/entries", s.postEntry)
	s.rt.Delete("/entries/{id}", s.deleteEntry)

	s.rt.Get("/reports/balance", s.balance)
	s.rt.Get("/reports/grand-livre", s.grandLivre)

	s.rt.Post("/vat/split", s.vatSplit)
	s.rt.Post("/import/fec", s.importFEC)
	s.rt.Get("/export/journal.csv", s.exportJournal)
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	toJSON(w, http.StatusOK, map[string]string{"status": "ok", "version": buildinfo.ModuleVersion()})
}

// changed runs the OnChange hook. Errors are logged and reported to the
// client; the mutation itself is not rolled back.
func (s *Server) changed(w http.ResponseWriter, r *http.Request, action, target, details string) bool {
	if s.deps.OnChange == nil {
		return true
	}
	rec := auditlog.Record{Actor: "http", Action: action, Target: target, Details: details}
	if err := s.deps.OnChange(r.Context(), rec); err != nil {
		s.log.Error("persisting change", "req_id", chimw.GetReqID(r.Context()), "action", action, "target", target, "err", err)
		toJSON(w, http.StatusInternalServerError, errorResponse{Error: "change applied but not persisted", Code: "persist_failed"})
		return false
	}
	return true
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

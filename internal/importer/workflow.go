package importer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/cleared-dev/compta/internal/accounts"
	"github.com/cleared-dev/compta/internal/fec"
	"github.com/cleared-dev/compta/internal/journal"
	"github.com/cleared-dev/compta/internal/model"
)

// Result reports an import. Errors holds one message per skipped row or
// rejected entry.
type Result struct {
	Imported    int
	Errors      []string
	Entries     []model.Entry
	NewAccounts []model.AccountNumber
}

// Succeeded reports whether everything was imported.
func (r Result) Succeeded() bool { return r.Imported > 0 && len(r.Errors) == 0 }

// Partial reports whether some entries were imported despite errors.
func (r Result) Partial() bool { return r.Imported > 0 && len(r.Errors) > 0 }

// Importer groups parsed rows into entries, validates them, creates the
// accounts they use and stores them through the journal service.
type Importer struct {
	journal  *journal.Service
	accounts *accounts.Service
	log      *slog.Logger
}

// New creates an Importer.
func New(js *journal.Service, as *accounts.Service, logger *slog.Logger) *Importer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Importer{journal: js, accounts: as, log: logger}
}

// ImportFile imports one file with the parser registered for its extension.
func (im *Importer) ImportFile(ctx context.Context, reg *Registry, path string) (Result, error) {
	p := reg.ForFile(path)
	if p == nil {
		return Result{}, fmt.Errorf("no parser for %s", path)
	}
	f, err := os.Open(path)
	if err != nil {
		return Result{}, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()
	return im.Import(ctx, p, f)
}

// Import reads r with p and stores every valid entry. Unbalanced entries and
// unreadable rows are skipped and listed in Result.Errors. Accepted entries
// are renumbered after the exercise's existing pieces. Once they are stored,
// accounts unknown to the chart are added from the file's labels; the caller
// saves the chart.
func (im *Importer) Import(ctx context.Context, p Parser, r io.Reader) (Result, error) {
	parsed, err := p.Parse(r)
	if err != nil {
		return Result{}, fmt.Errorf("parsing %s: %w", p.Format(), err)
	}

	var res Result
	for _, re := range parsed.Errors {
		res.Errors = append(res.Errors, re.Error())
	}

	var accepted []model.Entry
	for _, e := range fec.Group(parsed.Rows) {
		if verrs := journal.ValidateEntry(e); len(verrs) > 0 {
			res.Errors = append(res.Errors, fmt.Sprintf("%s %s: %v", e.JournalCode, e.Date.Format("2006-01-02"), verrs))
			continue
		}
		accepted = append(accepted, e)
	}
	if len(accepted) == 0 {
		im.log.Warn("nothing imported", "format", p.Format(), "errors", len(res.Errors))
		return res, nil
	}

	stored, err := im.journal.AddNumbered(ctx, accepted, fec.Number)
	if err != nil {
		return res, fmt.Errorf("storing imported entries: %w", err)
	}

	// Only stored entries bring their accounts into the chart.
	for _, e := range stored {
		for _, l := range e.Lines {
			acct := model.Account{Number: l.AccountNumber, Label: l.AccountLabel}
			if err := im.accounts.Add(acct); errors.Is(err, accounts.ErrExists) {
				continue
			} else if err != nil {
				return res, fmt.Errorf("creating account %s: %w", l.AccountNumber, err)
			}
			res.NewAccounts = append(res.NewAccounts, l.AccountNumber)
			im.log.Info("account created", "account", l.AccountNumber, "label", l.AccountLabel)
		}
	}

	res.Entries = stored
	res.Imported = len(stored)
	im.log.Info("import done", "format", p.Format(), "imported", res.Imported, "errors", len(res.Errors), "new_accounts", len(res.NewAccounts))
	return res, nil
}

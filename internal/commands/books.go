package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/cleared-dev/compta/internal/accounts"
	"github.com/cleared-dev/compta/internal/auditlog"
	"github.com/cleared-dev/compta/internal/config"
	"github.com/cleared-dev/compta/internal/gitops"
	"github.com/cleared-dev/compta/internal/journal"
	"github.com/cleared-dev/compta/internal/storage/sqlite"
)

// books is an opened compta repository: its configuration, chart of
// accounts and journal for the current exercise.
type books struct {
	root     string
	cfg      *config.Config
	log      *slog.Logger
	accounts *accounts.Service
	journal  *journal.Service
	closer   io.Closer

	mu sync.Mutex // serializes record
}

// openBooks loads compta.yaml (with .env and environment overrides), the
// chart of accounts and the configured storage backend.
func openBooks(opts *rootOptions, logOut io.Writer) (*books, error) {
	root, err := filepath.Abs(opts.dir)
	if err != nil {
		return nil, fmt.Errorf("resolving path: %w", err)
	}
	cfg, err := config.LoadWithEnv(filepath.Join(root, config.FileName))
	if err != nil {
		return nil, fmt.Errorf("%w (run `compta init` first?)", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid %s: %w", config.FileName, err)
	}
	logger := newLogger(logOut, opts, cfg.Log.Level, cfg.Log.Format).With(
		"company", cfg.Company.ID, "exercise", cfg.Exercise.ID)

	as, err := accounts.Load(root)
	if err != nil {
		return nil, err
	}

	b := &books{root: root, cfg: cfg, log: logger, accounts: as}
	var store journal.Store
	switch cfg.Storage.Backend {
	case config.BackendSQLite:
		db, err := sqlite.Open(cfg.StoragePath(root))
		if err != nil {
			return nil, err
		}
		store, b.closer = db, db
	default:
		store = journal.NewFileStore(cfg.StoragePath(root))
	}
	logger.Debug("books opened", "root", root, "backend", cfg.Storage.Backend)

	b.journal = journal.NewService(store, cfg.Company.ID, cfg.Exercise.ID, logger)
	return b, nil
}

func (b *books) Close() error {
	if b.closer == nil {
		return nil
	}
	return b.closer.Close()
}

// record persists a change: the chart of accounts is saved, the action is
// appended to the audit log and, with git.auto_commit, everything is
// committed.
func (b *books) record(ctx context.Context, rec auditlog.Record) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.accounts.Save(b.root); err != nil {
		return err
	}
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now()
	}
	if rec.Actor == "" {
		rec.Actor = "cli"
	}
	rec.Company = b.cfg.Company.ID
	rec.Exercise = b.cfg.Exercise.ID
	if err := auditlog.Append(b.root, rec); err != nil {
		return err
	}

	if !b.cfg.Git.AutoCommit || !gitops.IsRepo(b.root) {
		return nil
	}
	msg := rec.Action + ": " + rec.Target
	hash, err := gitops.CommitAll(ctx, b.root, msg, gitops.Author{Name: b.cfg.Git.AuthorName, Email: b.cfg.Git.AuthorEmail})
	if err != nil {
		return err
	}
	if hash != "" {
		b.log.Debug("committed", "hash", hash, "message", msg)
	}
	return nil
}

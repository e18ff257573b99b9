// Package sqlite stores journal entries in a SQLite database using the
// pure-Go modernc.org/sqlite driver.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"

	"github.com/cleared-dev/compta/internal/journal"
	"github.com/cleared-dev/compta/internal/model"
)

const dateFormat = "2006-01-02"

// Migrations returns the schema statements. Each string is a single SQL
// statement (SQLite executes one at a time).
func Migrations() []string {
	return []string{
		`CREATE TABLE IF NOT EXISTS entries (
			seq          INTEGER PRIMARY KEY AUTOINCREMENT,
			id           TEXT NOT NULL UNIQUE,
			company_id   TEXT NOT NULL,
			exercise_id  TEXT NOT NULL,
			journal_code TEXT NOT NULL,
			date         TEXT NOT NULL,
			piece_number TEXT NOT NULL,
			label        TEXT NOT NULL DEFAULT '',
			created_at   TEXT NOT NULL DEFAULT (datetime('now'))
		)`,
		`CREATE INDEX IF NOT EXISTS idx_entries_scope ON entries(company_id, exercise_id)`,
		`CREATE INDEX IF NOT EXISTS idx_entries_piece ON entries(company_id, exercise_id, piece_number)`,

		`CREATE TABLE IF NOT EXISTS entry_lines (
			entry_id       TEXT NOT NULL REFERENCES entries(id) ON DELETE CASCADE,
			position       INTEGER NOT NULL,
			account_number TEXT NOT NULL,
			account_label  TEXT NOT NULL DEFAULT '',
			label          TEXT NOT NULL DEFAULT '',
			debit          TEXT NOT NULL DEFAULT '0.00',
			credit         TEXT NOT NULL DEFAULT '0.00',
			PRIMARY KEY (entry_id, position)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_lines_account ON entry_lines(account_number)`,
	}
}

// Store is a journal.Store backed by SQLite.
type Store struct {
	db *sql.DB
}

var _ journal.Store = (*Store)(nil)

// Open opens (creating if needed) the database at path and applies the
// schema.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating database dir: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	// One connection serialises writers.
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) migrate() error {
	pragmas := []string{
		`PRAGMA foreign_keys = ON`,
		`PRAGMA journal_mode = WAL`,
		`PRAGMA busy_timeout = 5000`,
	}
	for _, stmt := range append(pragmas, Migrations()...) {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("migrating: %w", err)
		}
	}
	return nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Create inserts entries in one transaction.
func (s *Store) Create(ctx context.Context, entries ...model.Entry) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		for _, e := range entries {
			_, err := tx.ExecContext(ctx,
				`INSERT INTO entries (id, company_id, exercise_id, journal_code, date, piece_number, label)
				 VALUES (?, ?, ?, ?, ?, ?, ?)`,
				e.ID, e.CompanyID, e.ExerciseID, e.JournalCode, e.Date.Format(dateFormat), e.PieceNumber, e.Label)
			if err != nil {
				return fmt.Errorf("inserting entry %s: %w", e.ID, err)
			}
			if err := insertLines(ctx, tx, e); err != nil {
				return err
			}
		}
		return nil
	})
}

func insertLines(ctx context.Context, tx *sql.Tx, e model.Entry) error {
	for i, l := range e.Lines {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO entry_lines (entry_id, position, account_number, account_label, label, debit, credit)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			e.ID, i, string(l.AccountNumber), l.AccountLabel, l.Label, l.Debit.StringFixed(2), l.Credit.StringFixed(2))
		if err != nil {
			return fmt.Errorf("inserting entry %s line %d: %w", e.ID, i, err)
		}
	}
	return nil
}

// Update replaces an entry and its lines, keeping its position.
func (s *Store) Update(ctx context.Context, e model.Entry) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`UPDATE entries SET journal_code = ?, date = ?, piece_number = ?, label = ?
			 WHERE id = ? AND company_id = ? AND exercise_id = ?`,
			e.JournalCode, e.Date.Format(dateFormat), e.PieceNumber, e.Label, e.ID, e.CompanyID, e.ExerciseID)
		if err != nil {
			return fmt.Errorf("updating entry %s: %w", e.ID, err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("updating entry %s: %w", e.ID, journal.ErrNotFound)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM entry_lines WHERE entry_id = ?`, e.ID); err != nil {
			return fmt.Errorf("clearing lines of %s: %w", e.ID, err)
		}
		return insertLines(ctx, tx, e)
	})
}

// Delete removes an entry and its lines.
func (s *Store) Delete(ctx context.Context, companyID, exerciseID, id string) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM entry_lines WHERE entry_id IN
			(SELECT id FROM entries WHERE id = ? AND company_id = ? AND exercise_id = ?)`,
			id, companyID, exerciseID); err != nil {
			return fmt.Errorf("deleting lines of %s: %w", id, err)
		}
		res, err := tx.ExecContext(ctx,
			`DELETE FROM entries WHERE id = ? AND company_id = ? AND exercise_id = ?`, id, companyID, exerciseID)
		if err != nil {
			return fmt.Errorf("deleting entry %s: %w", id, err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("deleting entry %s: %w", id, journal.ErrNotFound)
		}
		return nil
	})
}

// List returns matching entries in insertion order.
func (s *Store) List(ctx context.Context, q journal.Query) ([]model.Entry, error) {
	var where []string
	var args []any
	add := func(cond string, v any) {
		where = append(where, cond)
		args = append(args, v)
	}
	if q.CompanyID != "" {
		add("e.company_id = ?", q.CompanyID)
	}
	if q.ExerciseID != "" {
		add("e.exercise_id = ?", q.ExerciseID)
	}
	if q.JournalCode != "" {
		add("e.journal_code = ?", q.JournalCode)
	}
	if !q.From.IsZero() {
		add("e.date >= ?", q.From.Format(dateFormat))
	}
	if !q.To.IsZero() {
		add("e.date <= ?", q.To.Format(dateFormat))
	}

	query := `SELECT e.id, e.company_id, e.exercise_id, e.journal_code, e.date, e.piece_number, e.label,
			l.account_number, l.account_label, l.label, l.debit, l.credit
		FROM entries e LEFT JOIN entry_lines l ON l.entry_id = e.id`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY e.seq, l.position"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing entries: %w", err)
	}
	defer rows.Close()

	var out []model.Entry
	index := make(map[string]int)
	for rows.Next() {
		var (
			e                                     model.Entry
			date                                  string
			acct, acctLabel, label, debit, credit sql.NullString
		)
		if err := rows.Scan(&e.ID, &e.CompanyID, &e.ExerciseID, &e.JournalCode, &date, &e.PieceNumber, &e.Label,
			&acct, &acctLabel, &label, &debit, &credit); err != nil {
			return nil, fmt.Errorf("scanning entry: %w", err)
		}
		i, ok := index[e.ID]
		if !ok {
			e.Date, err = time.Parse(dateFormat, date)
			if err != nil {
				return nil, fmt.Errorf("entry %s: parsing date %q: %w", e.ID, date, err)
			}
			i = len(out)
			index[e.ID] = i
			out = append(out, e)
		}
		if !acct.Valid {
			continue
		}
		d, err := decimal.NewFromString(debit.String)
		if err != nil {
			return nil, fmt.Errorf("entry %s: parsing debit %q: %w", e.ID, debit.String, err)
		}
		c, err := decimal.NewFromString(credit.String)
		if err != nil {
			return nil, fmt.Errorf("entry %s: parsing credit %q: %w", e.ID, credit.String, err)
		}
		out[i].Lines = append(out[i].Lines, model.JournalLine{
			AccountNumber: model.AccountNumber(acct.String),
			AccountLabel:  acctLabel.String,
			Label:         label.String,
			Debit:         d,
			Credit:        c,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing entries: %w", err)
	}
	return out, nil
}

func (s *Store) inTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing: %w", err)
	}
	return nil
}

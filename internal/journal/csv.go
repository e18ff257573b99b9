package journal

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/cleared-dev/compta/internal/model"
)

// Header is the CSV header for journal.csv. One row per line; the entry
// fields are repeated on every line of the entry.
const Header = "entry_id,company_id,exercise_id,journal_code,date,piece_number,entry_label,account_number,account_label,line_label,debit,credit"

const (
	numFields     = 12
	dateFormat    = "2006-01-02"
	colEntryID    = 0
	colCompany    = 1
	colExercise   = 2
	colJournal    = 3
	colDate       = 4
	colPiece      = 5
	colEntryLabel = 6
	colAccount    = 7
	colAcctLabel  = 8
	colLineLabel  = 9
	colDebit      = 10
	colCredit     = 11
)

// ReadEntries reads all entries from a journal.csv reader. Consecutive rows
// sharing an entry_id form one entry; entries keep file order.
func ReadEntries(r io.Reader) ([]model.Entry, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = numFields

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading journal CSV: %w", err)
	}

	if len(records) == 0 {
		return nil, nil
	}

	// Skip header row.
	var entries []model.Entry
	index := make(map[string]int)
	for i, rec := range records[1:] {
		e, line, err := UnmarshalLine(rec)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		if j, ok := index[e.ID]; ok {
			entries[j].Lines = append(entries[j].Lines, line)
			continue
		}
		e.Lines = []model.JournalLine{line}
		index[e.ID] = len(entries)
		entries = append(entries, e)
	}
	return entries, nil
}

// WriteEntries writes entries to a journal.csv writer (including header).
func WriteEntries(w io.Writer, entries []model.Entry) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	if err := cw.Write(strings.Split(Header, ",")); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	if err := writeRows(cw, entries); err != nil {
		return err
	}
	cw.Flush()
	return cw.Error()
}

// AppendEntries appends entries to an existing journal.csv writer (no header).
func AppendEntries(w io.Writer, entries []model.Entry) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	if err := writeRows(cw, entries); err != nil {
		return err
	}
	cw.Flush()
	return cw.Error()
}

func writeRows(cw *csv.Writer, entries []model.Entry) error {
	for _, e := range entries {
		for i := range e.Lines {
			if err := cw.Write(MarshalLine(e, i)); err != nil {
				return fmt.Errorf("writing entry %s line %d: %w", e.ID, i, err)
			}
		}
	}
	return nil
}

// MarshalLine converts line i of an entry to a CSV row ([]string).
func MarshalLine(e model.Entry, i int) []string {
	l := e.Lines[i]
	row := make([]string, numFields)
	row[colEntryID] = e.ID
	row[colCompany] = e.CompanyID
	row[colExercise] = e.ExerciseID
	row[colJournal] = e.JournalCode
	row[colDate] = e.Date.Format(dateFormat)
	row[colPiece] = e.PieceNumber
	row[colEntryLabel] = e.Label
	row[colAccount] = string(l.AccountNumber)
	row[colAcctLabel] = l.AccountLabel
	row[colLineLabel] = l.Label

	if !l.Debit.IsZero() {
		row[colDebit] = l.Debit.StringFixed(2)
	}
	if !l.Credit.IsZero() {
		row[colCredit] = l.Credit.StringFixed(2)
	}
	return row
}

// UnmarshalLine converts a CSV row to the entry header it belongs to (without
// lines) and the line itself.
func UnmarshalLine(record []string) (model.Entry, model.JournalLine, error) {
	if len(record) != numFields {
		return model.Entry{}, model.JournalLine{}, fmt.Errorf("expected %d fields, got %d", numFields, len(record))
	}

	date, err := time.Parse(dateFormat, record[colDate])
	if err != nil {
		return model.Entry{}, model.JournalLine{}, fmt.Errorf("parsing date %q: %w", record[colDate], err)
	}

	var debit, credit decimal.Decimal
	if record[colDebit] != "" {
		debit, err = decimal.NewFromString(record[colDebit])
		if err != nil {
			return model.Entry{}, model.JournalLine{}, fmt.Errorf("parsing debit %q: %w", record[colDebit], err)
		}
	}
	if record[colCredit] != "" {
		credit, err = decimal.NewFromString(record[colCredit])
		if err != nil {
			return model.Entry{}, model.JournalLine{}, fmt.Errorf("parsing credit %q: %w", record[colCredit], err)
		}
	}

	e := model.Entry{
		ID:          record[colEntryID],
		CompanyID:   record[colCompany],
		ExerciseID:  record[colExercise],
		JournalCode: record[colJournal],
		Date:        date,
		PieceNumber: record[colPiece],
		Label:       record[colEntryLabel],
	}
	line := model.JournalLine{
		AccountNumber: model.AccountNumber(record[colAccount]),
		AccountLabel:  record[colAcctLabel],
		Label:         record[colLineLabel],
		Debit:         debit,
		Credit:        credit,
	}
	return e, line, nil
}

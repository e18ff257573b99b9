package export

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/cleared-dev/compta/internal/fec"
	"github.com/cleared-dev/compta/internal/model"
)

const (
	colJournal = iota
	colDate
	colPiece
	colAccount
	colAccountLabel
	colLabel
	colDebit
	colCredit
)

// ParseJournal reads a journal export back as FEC rows, so it can go
// through the same grouping and validation as a FEC import. Rows that
// cannot be read are reported in the result, not returned as an error.
func ParseJournal(r io.Reader) (fec.ParseResult, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return fec.ParseResult{}, fmt.Errorf("reading CSV: %w", err)
	}
	text := strings.TrimPrefix(string(data), BOM)

	cr := csv.NewReader(strings.NewReader(text))
	cr.Comma = Delimiter
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err == io.EOF {
		return fec.ParseResult{}, fec.ErrNoHeader
	}
	if err != nil {
		return fec.ParseResult{}, fmt.Errorf("reading CSV header: %w", err)
	}
	if len(header) != len(JournalHeader) || header[0] != JournalHeader[0] {
		return fec.ParseResult{}, fmt.Errorf("unexpected CSV header %q", strings.Join(header, string(Delimiter)))
	}

	var res fec.ParseResult
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			var pe *csv.ParseError
			line := 0
			if errors.As(err, &pe) {
				line = pe.StartLine
			}
			res.Errors = append(res.Errors, fec.RowError{Line: line, Err: err})
			continue
		}
		line, _ := cr.FieldPos(0)
		row, err := parseJournalRow(rec)
		if err != nil {
			res.Errors = append(res.Errors, fec.RowError{Line: line, Content: strings.Join(rec, string(Delimiter)), Err: err})
			continue
		}
		row.Line = line
		res.Rows = append(res.Rows, row)
	}
	return res, nil
}

func parseJournalRow(rec []string) (model.FECRow, error) {
	if len(rec) != len(JournalHeader) {
		return model.FECRow{}, fmt.Errorf("expected %d fields, got %d", len(JournalHeader), len(rec))
	}
	if rec[colJournal] == "" || rec[colAccount] == "" {
		return model.FECRow{}, fmt.Errorf("empty journal or account")
	}
	date, err := time.Parse(DateFormat, rec[colDate])
	if err != nil {
		return model.FECRow{}, fmt.Errorf("parsing date %q: %w", rec[colDate], err)
	}
	debit, err := fec.ParseAmount(rec[colDebit])
	if err != nil {
		return model.FECRow{}, fmt.Errorf("parsing debit: %w", err)
	}
	credit, err := fec.ParseAmount(rec[colCredit])
	if err != nil {
		return model.FECRow{}, fmt.Errorf("parsing credit: %w", err)
	}
	return model.FECRow{
		JournalCode:   rec[colJournal],
		Date:          date,
		PieceRef:      rec[colPiece],
		AccountNumber: model.AccountNumber(rec[colAccount]),
		AccountLabel:  rec[colAccountLabel],
		Label:         rec[colLabel],
		Debit:         debit,
		Credit:        credit,
	}, nil
}

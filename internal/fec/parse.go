// Package fec reads and writes the Fichier des Écritures Comptables and
// groups its rows into entries.
package fec

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/cleared-dev/compta/internal/model"
)

// Standard FEC column names, in file order.
const (
	ColJournalCode   = "JournalCode"
	ColJournalLib    = "JournalLib"
	ColEcritureNum   = "EcritureNum"
	ColEcritureDate  = "EcritureDate"
	ColCompteNum     = "CompteNum"
	ColCompteLib     = "CompteLib"
	ColCompAuxNum    = "CompAuxNum"
	ColCompAuxLib    = "CompAuxLib"
	ColPieceRef      = "PieceRef"
	ColPieceDate     = "PieceDate"
	ColEcritureLib   = "EcritureLib"
	ColDebit         = "Debit"
	ColCredit        = "Credit"
	ColEcritureLet   = "EcritureLet"
	ColDateLet       = "DateLet"
	ColValidDate     = "ValidDate"
	ColMontantdevise = "Montantdevise"
	ColIdevise       = "Idevise"
)

// Columns is the standard FEC header.
var Columns = []string{
	ColJournalCode, ColJournalLib, ColEcritureNum, ColEcritureDate,
	ColCompteNum, ColCompteLib, ColCompAuxNum, ColCompAuxLib,
	ColPieceRef, ColPieceDate, ColEcritureLib, ColDebit, ColCredit,
	ColEcritureLet, ColDateLet, ColValidDate, ColMontantdevise, ColIdevise,
}

// Required lists the columns a file must have to be imported.
var Required = []string{
	ColJournalCode, ColJournalLib, ColEcritureNum, ColEcritureDate,
	ColCompteNum, ColCompteLib, ColDebit, ColCredit,
}

// DateFormat is the FEC date layout.
const DateFormat = "20060102"

const bom = "\ufeff"

var (
	// ErrNoHeader is returned for an empty file.
	ErrNoHeader = errors.New("missing FEC header")
	// ErrMissingColumns is returned when the header lacks a required column.
	ErrMissingColumns = errors.New("FEC header is missing columns")
)

// RowError locates a row that could not be read.
type RowError struct {
	Line    int
	Content string
	Err     error
}

func (e RowError) Error() string {
	return fmt.Sprintf("ligne %d: %v [%s]", e.Line, e.Err, e.Content)
}

func (e RowError) Unwrap() error { return e.Err }

// ParseResult holds the rows read from a file and the rows skipped.
type ParseResult struct {
	Rows   []model.FECRow
	Errors []RowError
}

// Parse reads a FEC file. The separator is a tab; a pipe is accepted when
// the header contains no tab. Malformed rows are skipped and reported in
// ParseResult.Errors; only an unusable header is returned as an error.
func Parse(r io.Reader) (ParseResult, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return ParseResult{}, fmt.Errorf("reading FEC: %w", err)
	}
	text := strings.TrimPrefix(string(data), bom)
	if strings.TrimSpace(text) == "" {
		return ParseResult{}, ErrNoHeader
	}

	sep := separator(text)
	cr := csv.NewReader(strings.NewReader(text))
	cr.Comma = sep
	cr.LazyQuotes = true
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return ParseResult{}, fmt.Errorf("reading FEC header: %w", err)
	}
	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.TrimSpace(h)] = i
	}
	var missing []string
	for _, c := range Required {
		if _, ok := cols[c]; !ok {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return ParseResult{}, fmt.Errorf("%w: %s", ErrMissingColumns, strings.Join(missing, ", "))
	}

	var res ParseResult
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
			res.Errors = append(res.Errors, RowError{Line: line, Err: err})
			continue
		}
		line, _ := cr.FieldPos(0)
		row, err := parseRow(rec, cols)
		if err != nil {
			res.Errors = append(res.Errors, RowError{Line: line, Content: strings.Join(rec, string(sep)), Err: err})
			continue
		}
		row.Line = line
		res.Rows = append(res.Rows, row)
	}
	return res, nil
}

func separator(text string) rune {
	first, _, _ := strings.Cut(text, "\n")
	if !strings.Contains(first, "\t") && strings.Contains(first, "|") {
		return '|'
	}
	return '\t'
}

func parseRow(rec []string, cols map[string]int) (model.FECRow, error) {
	get := func(name string) string {
		i, ok := cols[name]
		if !ok || i >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[i])
	}
	for _, c := range Required {
		if cols[c] >= len(rec) {
			return model.FECRow{}, fmt.Errorf("missing column %s", c)
		}
	}

	journal := get(ColJournalCode)
	if journal == "" {
		return model.FECRow{}, fmt.Errorf("empty %s", ColJournalCode)
	}
	account := get(ColCompteNum)
	if account == "" {
		return model.FECRow{}, fmt.Errorf("empty %s", ColCompteNum)
	}
	date, err := ParseDate(get(ColEcritureDate))
	if err != nil {
		return model.FECRow{}, err
	}
	debit, err := ParseAmount(get(ColDebit))
	if err != nil {
		return model.FECRow{}, fmt.Errorf("parsing %s: %w", ColDebit, err)
	}
	credit, err := ParseAmount(get(ColCredit))
	if err != nil {
		return model.FECRow{}, fmt.Errorf("parsing %s: %w", ColCredit, err)
	}

	return model.FECRow{
		JournalCode:   journal,
		JournalLabel:  get(ColJournalLib),
		EntryNumber:   get(ColEcritureNum),
		Date:          date,
		AccountNumber: model.AccountNumber(account),
		AccountLabel:  get(ColCompteLib),
		PieceRef:      get(ColPieceRef),
		Label:         get(ColEcritureLib),
		Debit:         debit,
		Credit:        credit,
	}, nil
}

// ParseDate reads a YYYYMMDD date. ISO dates (YYYY-MM-DD) are accepted too.
func ParseDate(s string) (time.Time, error) {
	if d, err := time.Parse(DateFormat, s); err == nil {
		return d, nil
	}
	if d, err := time.Parse("2006-01-02", s); err == nil {
		return d, nil
	}
	return time.Time{}, fmt.Errorf("parsing date %q: expected YYYYMMDD", s)
}

// ParseAmount reads an amount with a comma or dot decimal separator. An empty
// field is zero.
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.NewReplacer(" ", "", "\u00a0", "", "\u202f", "").Replace(s)
	if s == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(strings.Replace(s, ",", ".", 1))
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("invalid amount %q", s)
	}
	return d, nil
}

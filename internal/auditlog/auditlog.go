// Package auditlog keeps a CSV trail of every change made to the books.
package auditlog

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Actions recorded in the log.
const (
	ActionInit           = "init"
	ActionEntryAdd       = "entry.add"
	ActionEntryUpdate    = "entry.update"
	ActionEntryDelete    = "entry.delete"
	ActionAccountAdd     = "account.add"
	ActionAccountRelabel = "account.relabel"
	ActionAccountDelete  = "account.delete"
	ActionImport         = "import"
)

// Record is one row of the audit log.
type Record struct {
	Timestamp time.Time
	Actor     string // "cli", "http" or a user name
	Action    string
	Company   string
	Exercise  string
	Target    string // piece number, account number or file name
	Details   string
}

// Header is the CSV header for audit-log.csv.
const Header = "timestamp,actor,action,company,exercise,target,details"

const (
	numFields   = 7
	logDir      = "logs"
	logFile     = "logs/audit-log.csv"
	colTime     = 0
	colActor    = 1
	colAction   = 2
	colCompany  = 3
	colExercise = 4
	colTarget   = 5
	colDetails  = 6
)

// Path returns the log location under repoRoot.
func Path(repoRoot string) string { return filepath.Join(repoRoot, logFile) }

// MarshalRecord converts a Record to a CSV row.
func MarshalRecord(r Record) []string {
	row := make([]string, numFields)
	row[colTime] = r.Timestamp.UTC().Format(time.RFC3339)
	row[colActor] = r.Actor
	row[colAction] = r.Action
	row[colCompany] = r.Company
	row[colExercise] = r.Exercise
	row[colTarget] = r.Target
	row[colDetails] = r.Details
	return row
}

// UnmarshalRecord converts a CSV row to a Record.
func UnmarshalRecord(record []string) (Record, error) {
	if len(record) != numFields {
		return Record{}, fmt.Errorf("expected %d fields, got %d", numFields, len(record))
	}
	ts, err := time.Parse(time.RFC3339, record[colTime])
	if err != nil {
		return Record{}, fmt.Errorf("parsing timestamp %q: %w", record[colTime], err)
	}
	return Record{
		Timestamp: ts,
		Actor:     record[colActor],
		Action:    record[colAction],
		Company:   record[colCompany],
		Exercise:  record[colExercise],
		Target:    record[colTarget],
		Details:   record[colDetails],
	}, nil
}

// Append writes records to <repoRoot>/logs/audit-log.csv, creating the file
// and header if needed. Records without a timestamp get the current time.
func Append(repoRoot string, records ...Record) error {
	if err := os.MkdirAll(filepath.Join(repoRoot, logDir), 0o755); err != nil {
		return fmt.Errorf("creating logs dir: %w", err)
	}

	path := Path(repoRoot)
	needsHeader := false
	if _, err := os.Stat(path); os.IsNotExist(err) {
		needsHeader = true
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("opening audit log: %w", err)
	}
	defer f.Close()

	cw := csv.NewWriter(f)
	if needsHeader {
		if err := cw.Write(strings.Split(Header, ",")); err != nil {
			return fmt.Errorf("writing header: %w", err)
		}
	}
	now := time.Now()
	for i, r := range records {
		if r.Timestamp.IsZero() {
			r.Timestamp = now
		}
		if err := cw.Write(MarshalRecord(r)); err != nil {
			return fmt.Errorf("writing record %d: %w", i, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// Read returns all records from <repoRoot>/logs/audit-log.csv. A missing file
// yields no records.
func Read(repoRoot string) ([]Record, error) {
	f, err := os.Open(Path(repoRoot))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("opening audit log: %w", err)
	}
	defer f.Close()

	return readRecords(f)
}

func readRecords(r io.Reader) ([]Record, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = numFields

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading audit log CSV: %w", err)
	}
	if len(records) <= 1 {
		return nil, nil
	}

	var out []Record
	for i, rec := range records[1:] {
		r, err := UnmarshalRecord(rec)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		out = append(out, r)
	}
	return out, nil
}

package journal

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/cleared-dev/compta/internal/model"
)

const journalFile = "journal.csv"

// FileStore keeps one journal.csv per company and exercise under a root
// directory: <root>/<company>/<exercise>/journal.csv.
type FileStore struct {
	mu   sync.Mutex
	root string
}

// NewFileStore creates a FileStore rooted at dir.
func NewFileStore(dir string) *FileStore {
	return &FileStore{root: dir}
}

var _ Store = (*FileStore)(nil)

// Create appends entries to their exercise files, creating them as needed.
func (s *FileStore) Create(_ context.Context, entries ...model.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	byPath := make(map[string][]model.Entry)
	var order []string
	for _, e := range entries {
		p := s.path(e.CompanyID, e.ExerciseID)
		if _, seen := byPath[p]; !seen {
			order = append(order, p)
		}
		byPath[p] = append(byPath[p], e)
	}

	for _, p := range order {
		if err := appendFile(p, byPath[p]); err != nil {
			return err
		}
	}
	return nil
}

func appendFile(path string, entries []model.Entry) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating journal dir: %w", err)
	}

	isNew := false
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		isNew = true
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("opening journal: %w", err)
	}
	defer f.Close()

	if isNew {
		if _, err := fmt.Fprintln(f, Header); err != nil {
			return fmt.Errorf("writing header: %w", err)
		}
	}

	if err := AppendEntries(f, entries); err != nil {
		return fmt.Errorf("appending entries: %w", err)
	}
	return nil
}

// Update replaces the entry with the same ID, keeping its position.
func (s *FileStore) Update(_ context.Context, e model.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.rewrite(e.CompanyID, e.ExerciseID, func(entries []model.Entry) ([]model.Entry, error) {
		for i := range entries {
			if entries[i].ID == e.ID {
				entries[i] = e
				return entries, nil
			}
		}
		return nil, fmt.Errorf("updating entry %s: %w", e.ID, ErrNotFound)
	})
}

// Delete removes an entry.
func (s *FileStore) Delete(_ context.Context, companyID, exerciseID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.rewrite(companyID, exerciseID, func(entries []model.Entry) ([]model.Entry, error) {
		for i := range entries {
			if entries[i].ID == id {
				return append(entries[:i], entries[i+1:]...), nil
			}
		}
		return nil, fmt.Errorf("deleting entry %s: %w", id, ErrNotFound)
	})
}

func (s *FileStore) rewrite(companyID, exerciseID string, fn func([]model.Entry) ([]model.Entry, error)) error {
	path := s.path(companyID, exerciseID)
	entries, err := readFile(path)
	if err != nil {
		return err
	}
	entries, err = fn(entries)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating journal dir: %w", err)
	}
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("creating %s: %w", tmp, err)
	}
	if err := WriteEntries(f, entries); err != nil {
		f.Close()
		return fmt.Errorf("writing %s: %w", tmp, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replacing journal: %w", err)
	}
	return nil
}

// List returns the entries matching q. With no ExerciseID every exercise of
// the company is read, in exercise-name order.
func (s *FileStore) List(_ context.Context, q Query) ([]model.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var paths []string
	if q.ExerciseID != "" {
		paths = []string{s.path(q.CompanyID, q.ExerciseID)}
	} else {
		matches, err := filepath.Glob(filepath.Join(s.root, dirName(q.CompanyID), "*", journalFile))
		if err != nil {
			return nil, fmt.Errorf("listing exercises: %w", err)
		}
		sort.Strings(matches)
		paths = matches
	}

	var out []model.Entry
	for _, p := range paths {
		entries, err := readFile(p)
		if err != nil {
			return nil, err
		}
		for _, e := range entries {
			if q.Match(e) {
				out = append(out, e)
			}
		}
	}
	return out, nil
}

func readFile(path string) ([]model.Entry, error) {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("opening journal %s: %w", path, err)
	}
	defer f.Close()

	entries, err := ReadEntries(f)
	if err != nil {
		return nil, fmt.Errorf("reading journal %s: %w", path, err)
	}
	return entries, nil
}

func (s *FileStore) path(companyID, exerciseID string) string {
	return filepath.Join(s.root, dirName(companyID), dirName(exerciseID), journalFile)
}

func dirName(id string) string {
	if id == "" {
		return "_"
	}
	return id
}

package importer

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/cleared-dev/compta/internal/export"
	"github.com/cleared-dev/compta/internal/fec"
)

// Parser converts an import file into FEC rows.
type Parser interface {
	Parse(r io.Reader) (fec.ParseResult, error)
	Format() string
}

// FECParser reads tab- or pipe-separated FEC files.
type FECParser struct{}

// Format returns the parser name.
func (p *FECParser) Format() string { return "fec" }

// Parse reads a FEC file.
func (p *FECParser) Parse(r io.Reader) (fec.ParseResult, error) { return fec.Parse(r) }

// CSVParser reads the semicolon-separated journal export.
type CSVParser struct{}

// Format returns the parser name.
func (p *CSVParser) Format() string { return "csv" }

// Parse reads a journal export.
func (p *CSVParser) Parse(r io.Reader) (fec.ParseResult, error) { return export.ParseJournal(r) }

// Registry holds named parsers.
type Registry struct {
	parsers map[string]Parser
}

// FileInfo describes a file in the import directory.
type FileInfo struct {
	Name string
	Path string
	Size int64
}

// NewRegistry creates an empty parser registry.
func NewRegistry() *Registry {
	return &Registry{parsers: make(map[string]Parser)}
}

// Register adds a parser. Panics on duplicate format.
func (r *Registry) Register(p Parser) {
	key := strings.ToLower(p.Format())
	if _, ok := r.parsers[key]; ok {
		panic("duplicate parser format: " + key)
	}
	r.parsers[key] = p
}

// Get returns the parser for format, or nil.
func (r *Registry) Get(format string) Parser {
	return r.parsers[strings.ToLower(format)]
}

// ForFile picks a parser from a file name: .csv files are journal exports,
// .txt and .fec files are FEC.
func (r *Registry) ForFile(name string) Parser {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv":
		return r.Get("csv")
	case ".txt", ".fec":
		return r.Get("fec")
	}
	return nil
}

// DefaultRegistry returns a registry with all built-in parsers.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(&FECParser{})
	r.Register(&CSVParser{})
	return r
}

// importDir is the subdirectory for files waiting to be imported.
const importDir = "import"

// processedDir is the subdirectory for imported files.
const processedDir = "import/processed"

var importExts = map[string]bool{".csv": true, ".txt": true, ".fec": true}

// Scan returns importable files in <repoRoot>/import/.
func Scan(repoRoot string) ([]FileInfo, error) {
	dir := filepath.Join(repoRoot, importDir)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading import dir: %w", err)
	}

	var files []FileInfo
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if !importExts[strings.ToLower(filepath.Ext(e.Name()))] {
			continue
		}
		info, err := e.Info()
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", e.Name(), err)
		}
		files = append(files, FileInfo{
			Name: e.Name(),
			Path: filepath.Join(dir, e.Name()),
			Size: info.Size(),
		})
	}
	return files, nil
}

// MarkProcessed moves a file from import/ to import/processed/.
func MarkProcessed(repoRoot, fileName string) error {
	src := filepath.Join(repoRoot, importDir, fileName)
	dstDir := filepath.Join(repoRoot, processedDir)

	if err := os.MkdirAll(dstDir, 0o755); err != nil {
		return fmt.Errorf("creating processed dir: %w", err)
	}

	dst := filepath.Join(dstDir, fileName)
	if err := os.Rename(src, dst); err != nil {
		return fmt.Errorf("moving %s to processed: %w", fileName, err)
	}
	return nil
}

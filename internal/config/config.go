package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/cleared-dev/compta/internal/model"
)

// FileName is the configuration file at the root of a compta repository.
const FileName = "compta.yaml"

// Storage backends.
const (
	BackendCSV    = "csv"
	BackendSQLite = "sqlite"
)

// Environment variables that override the YAML file. A .env file next to
// compta.yaml provides values for variables not set in the environment.
const (
	EnvStorageBackend = "COMPTA_STORAGE_BACKEND"
	EnvStoragePath    = "COMPTA_STORAGE_PATH"
	EnvLogLevel       = "COMPTA_LOG_LEVEL"
	EnvLogFormat      = "COMPTA_LOG_FORMAT"
	EnvAddr           = "COMPTA_ADDR"
)

const dateFormat = "2006-01-02"

// Config represents the top-level compta.yaml configuration.
type Config struct {
	Company  CompanyConfig   `yaml:"company"`
	Exercise ExerciseConfig  `yaml:"exercise"`
	Journals []model.Journal `yaml:"journals"`
	Storage  StorageConfig   `yaml:"storage"`
	Log      LogConfig       `yaml:"log"`
	Server   ServerConfig    `yaml:"server"`
	Git      GitConfig       `yaml:"git"`
}

// CompanyConfig identifies the company whose books are kept.
type CompanyConfig struct {
	ID         string `yaml:"id"`
	Name       string `yaml:"name"`
	EntityType string `yaml:"entity_type"`
	SIREN      string `yaml:"siren,omitempty"`
}

// ExerciseConfig is the current fiscal year (exercice).
type ExerciseConfig struct {
	ID    string `yaml:"id"`
	Start string `yaml:"start"` // YYYY-MM-DD
	End   string `yaml:"end"`   // YYYY-MM-DD
}

// StartDate parses Start.
func (e ExerciseConfig) StartDate() (time.Time, error) { return time.Parse(dateFormat, e.Start) }

// EndDate parses End.
func (e ExerciseConfig) EndDate() (time.Time, error) { return time.Parse(dateFormat, e.End) }

// StorageConfig selects where entries are kept.
type StorageConfig struct {
	Backend string `yaml:"backend"` // csv or sqlite
	Path    string `yaml:"path"`    // relative to the repository root
}

// LogConfig controls slog output.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text or json
}

// ServerConfig controls `compta serve`.
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// GitConfig controls git integration.
type GitConfig struct {
	AutoCommit  bool   `yaml:"auto_commit"`
	AuthorName  string `yaml:"author_name"`
	AuthorEmail string `yaml:"author_email"`
}

// Load reads a compta.yaml file from disk.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return &cfg, nil
}

// LoadWithEnv reads compta.yaml and applies overrides from the environment
// and from the .env file in the same directory, if any.
func LoadWithEnv(path string) (*Config, error) {
	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}
	dotenv, err := godotenv.Read(filepath.Join(filepath.Dir(path), ".env"))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("reading .env: %w", err)
	}
	cfg.ApplyEnv(dotenv)
	return cfg, nil
}

// ApplyEnv overrides settings from environment variables, falling back to
// the values in dotenv. dotenv may be nil.
func (c *Config) ApplyEnv(dotenv map[string]string) {
	get := func(key string) (string, bool) {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			return v, true
		}
		v, ok := dotenv[key]
		return v, ok && v != ""
	}
	if v, ok := get(EnvStorageBackend); ok {
		c.Storage.Backend = v
	}
	if v, ok := get(EnvStoragePath); ok {
		c.Storage.Path = v
	}
	if v, ok := get(EnvLogLevel); ok {
		c.Log.Level = v
	}
	if v, ok := get(EnvLogFormat); ok {
		c.Log.Format = v
	}
	if v, ok := get(EnvAddr); ok {
		c.Server.Addr = v
	}
}

// Validate checks the settings other packages rely on.
func (c *Config) Validate() error {
	var errs []error
	if c.Company.ID == "" {
		errs = append(errs, errors.New("company.id is empty"))
	}
	if c.Exercise.ID == "" {
		errs = append(errs, errors.New("exercise.id is empty"))
	}
	start, err := c.Exercise.StartDate()
	if err != nil {
		errs = append(errs, fmt.Errorf("exercise.start: %w", err))
	}
	end, err2 := c.Exercise.EndDate()
	if err2 != nil {
		errs = append(errs, fmt.Errorf("exercise.end: %w", err2))
	}
	if err == nil && err2 == nil && end.Before(start) {
		errs = append(errs, errors.New("exercise ends before it starts"))
	}
	switch c.Storage.Backend {
	case BackendCSV, BackendSQLite:
	default:
		errs = append(errs, fmt.Errorf("storage.backend %q: want csv or sqlite", c.Storage.Backend))
	}
	return errors.Join(errs...)
}

// StoragePath returns the storage location resolved against repoRoot.
func (c *Config) StoragePath(repoRoot string) string {
	p := c.Storage.Path
	if p == "" {
		p = "data"
		if c.Storage.Backend == BackendSQLite {
			p = "compta.db"
		}
	}
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(repoRoot, p)
}

// JournalLabel returns the label of a journal code, or "" if unknown.
func (c *Config) JournalLabel(code string) string {
	for _, j := range c.Journals {
		if j.Code == code {
			return j.Label
		}
	}
	return ""
}

// HasJournal reports whether code is a configured journal.
func (c *Config) HasJournal(code string) bool {
	return c.JournalLabel(code) != ""
}

// Save writes a Config to a YAML file.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// DefaultJournals are the journals of a new company.
func DefaultJournals() []model.Journal {
	return []model.Journal{
		{Code: "AC", Label: "Achats"},
		{Code: "VE", Label: "Ventes"},
		{Code: "BQ", Label: "Banque"},
		{Code: "CA", Label: "Caisse"},
		{Code: "OD", Label: "Opérations diverses"},
	}
}

// Default returns a Config with sensible defaults for a new company whose
// exercise is the calendar year.
func Default(companyName, entityType string, year int) *Config {
	return &Config{
		Company: CompanyConfig{
			ID:         Slug(companyName),
			Name:       companyName,
			EntityType: entityType,
		},
		Exercise: ExerciseConfig{
			ID:    fmt.Sprintf("%d", year),
			Start: fmt.Sprintf("%d-01-01", year),
			End:   fmt.Sprintf("%d-12-31", year),
		},
		Journals: DefaultJournals(),
		Storage:  StorageConfig{Backend: BackendCSV},
		Log:      LogConfig{Level: "info", Format: "text"},
		Server:   ServerConfig{Addr: ":8080"},
		Git: GitConfig{
			AutoCommit:  true,
			AuthorName:  "compta",
			AuthorEmail: "compta@localhost",
		},
	}
}

// Slug turns a company name into an identifier: "Boulangerie Dupont SARL"
// -> "boulangerie-dupont-sarl".
func Slug(name string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(name) {
		if r >= 'a' && r <= 'z' || r >= '0' && r <= '9' {
			b.WriteRune(r)
			dash = false
			continue
		}
		if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}
	s := strings.TrimSuffix(b.String(), "-")
	if s == "" {
		return "default"
	}
	return s
}

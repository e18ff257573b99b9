package accounts

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/cleared-dev/compta/internal/model"
)

// ChartFile is the chart of accounts location relative to the repo root.
const ChartFile = "accounts/plan-comptable.csv"

var (
	// ErrExists is returned when adding an account number already in the chart.
	ErrExists = errors.New("account already exists")
	// ErrUnknown is returned when an account number is not in the chart.
	ErrUnknown = errors.New("unknown account")
)

// Service provides in-memory lookup and maintenance over the chart of accounts.
// It is safe for concurrent use.
type Service struct {
	mu       sync.RWMutex
	accounts []model.Account
	byNumber map[model.AccountNumber]int
}

// NewService creates a Service from a slice of accounts. Later duplicates of
// an account number replace earlier ones.
func NewService(accounts []model.Account) *Service {
	s := &Service{byNumber: make(map[model.AccountNumber]int, len(accounts))}
	for _, a := range accounts {
		if i, ok := s.byNumber[a.Number]; ok {
			s.accounts[i] = a
			continue
		}
		s.byNumber[a.Number] = len(s.accounts)
		s.accounts = append(s.accounts, a)
	}
	return s
}

// Load reads accounts/plan-comptable.csv from a repo root and returns a Service.
func Load(repoRoot string) (*Service, error) {
	path := filepath.Join(repoRoot, ChartFile)
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening chart of accounts: %w", err)
	}
	defer f.Close()

	accts, err := ReadAccounts(f)
	if err != nil {
		return nil, fmt.Errorf("reading chart of accounts: %w", err)
	}
	return NewService(accts), nil
}

// All returns all accounts ordered by account number (string order).
func (s *Service) All() []model.Account {
	s.mu.RLock()
	out := make([]model.Account, len(s.accounts))
	copy(out, s.accounts)
	s.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out
}

// Get returns an account by number.
func (s *Service) Get(n model.AccountNumber) (model.Account, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i, ok := s.byNumber[n]
	if !ok {
		return model.Account{}, false
	}
	return s.accounts[i], true
}

// Exists reports whether an account number is known.
func (s *Service) Exists(n model.AccountNumber) bool {
	_, ok := s.Get(n)
	return ok
}

// ByClasse returns all accounts of the given PCG classe.
func (s *Service) ByClasse(classe int) []model.Account {
	var result []model.Account
	for _, a := range s.All() {
		if a.Number.Classe() == classe {
			result = append(result, a)
		}
	}
	return result
}

// Add creates a new account. Used when an unknown number is confirmed
// during entry or met in an import.
func (s *Service) Add(acct model.Account) error {
	if acct.Number == "" {
		return fmt.Errorf("adding account: empty account number")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byNumber[acct.Number]; ok {
		return fmt.Errorf("adding account %s: %w", acct.Number, ErrExists)
	}
	s.byNumber[acct.Number] = len(s.accounts)
	s.accounts = append(s.accounts, acct)
	return nil
}

// Relabel changes the label of an existing account.
func (s *Service) Relabel(n model.AccountNumber, label string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i, ok := s.byNumber[n]
	if !ok {
		return fmt.Errorf("relabeling account %s: %w", n, ErrUnknown)
	}
	s.accounts[i].Label = label
	return nil
}

// Delete removes an account from the chart. Entries referencing the number
// are not checked.
func (s *Service) Delete(n model.AccountNumber) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i, ok := s.byNumber[n]
	if !ok {
		return fmt.Errorf("deleting account %s: %w", n, ErrUnknown)
	}
	s.accounts = append(s.accounts[:i], s.accounts[i+1:]...)
	delete(s.byNumber, n)
	for j := i; j < len(s.accounts); j++ {
		s.byNumber[s.accounts[j].Number] = j
	}
	return nil
}

// Save writes the chart of accounts to accounts/plan-comptable.csv.
func (s *Service) Save(repoRoot string) error {
	path := filepath.Join(repoRoot, ChartFile)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating accounts dir: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating chart of accounts file: %w", err)
	}
	defer f.Close()

	if err := WriteAccounts(f, s.All()); err != nil {
		return fmt.Errorf("writing chart of accounts: %w", err)
	}
	return nil
}

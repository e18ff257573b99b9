package commands_test

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cleared-dev/compta/internal/accounts"
	"github.com/cleared-dev/compta/internal/commands"
)

func runCompta(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := commands.NewRootCommand()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	if err != nil {
		t.Logf("compta %v: %v\n%s", args, err, errOut.String())
	}
	return out.String(), err
}

func initBooks(t *testing.T, extra ...string) string {
	t.Helper()
	dir := t.TempDir()
	args := append([]string{"init", dir, "--name", "Test Biz", "--year", "2025", "--no-git"}, extra...)
	_, err := runCompta(t, args...)
	require.NoError(t, err)
	return dir
}

func TestInit_CreatesStructure(t *testing.T) {
	dir := initBooks(t)

	expectedDirs := []string{
		"accounts",
		"logs",
		"exports",
		"import",
		filepath.Join("import", "processed"),
	}
	for _, d := range expectedDirs {
		info, err := os.Stat(filepath.Join(dir, d))
		require.NoError(t, err, "directory %s should exist", d)
		assert.True(t, info.IsDir(), "%s should be a directory", d)
	}
	_, err := os.Stat(filepath.Join(dir, "logs", "audit-log.csv"))
	assert.NoError(t, err)
}

func TestInit_Config(t *testing.T) {
	dir := t.TempDir()
	_, err := runCompta(t, "init", dir, "--name", "My Company", "--siren", "123456789", "--no-git")
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(dir, "compta.yaml"))
	require.NoError(t, err)
	contents := string(data)

	assert.Contains(t, contents, "name: My Company")
	assert.Contains(t, contents, "id: my-company")
	assert.Contains(t, contents, "entity_type: sarl")
	assert.Contains(t, contents, "siren: \"123456789\"")
	assert.Contains(t, contents, "backend: csv")
	assert.Contains(t, contents, "code: AC")
}

func TestInit_Accounts(t *testing.T) {
	dir := initBooks(t)

	f, err := os.Open(filepath.Join(dir, accounts.ChartFile))
	require.NoError(t, err)
	defer f.Close()

	accts, err := accounts.ReadAccounts(f)
	require.NoError(t, err)
	assert.Len(t, accts, len(accounts.DefaultChart("sarl")))
}

func TestInit_MicroHasNoVATAccounts(t *testing.T) {
	dir := initBooks(t, "--entity-type", "micro")

	svc, err := accounts.Load(dir)
	require.NoError(t, err)
	for _, a := range svc.All() {
		assert.False(t, accounts.Classify(a.Number).VAT, "unexpected VAT account %s", a.Number)
	}
}

func TestInit_RequiresName(t *testing.T) {
	_, err := runCompta(t, "init", t.TempDir(), "--no-git")
	require.Error(t, err, "init without --name should fail")
}

func TestInit_Twice(t *testing.T) {
	dir := initBooks(t)
	_, err := runCompta(t, "init", dir, "--name", "Again", "--no-git")
	assert.ErrorContains(t, err, "already exists")
}

func TestInit_BadBackend(t *testing.T) {
	_, err := runCompta(t, "init", t.TempDir(), "--name", "X", "--backend", "postgres", "--no-git")
	assert.Error(t, err)
}

func TestInit_GitRepo(t *testing.T) {
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}
	dir := t.TempDir()
	_, err := runCompta(t, "init", dir, "--name", "Test Biz")
	require.NoError(t, err)

	_, err = os.Stat(filepath.Join(dir, ".git"))
	require.NoError(t, err, ".git should exist")

	log := exec.Command("git", "log", "--format=%s", "-1")
	log.Dir = dir
	out, err := log.Output()
	require.NoError(t, err)
	assert.Contains(t, string(out), "init:")

	authorLog := exec.Command("git", "log", "--format=%an <%ae>", "-1")
	authorLog.Dir = dir
	out, err = authorLog.Output()
	require.NoError(t, err)
	assert.Contains(t, string(out), "compta <compta@localhost>")

	// Mutating commands commit when auto_commit is on.
	_, err = runCompta(t, "-C", dir, "entry", "add", "--date", "2025-03-01", "--label", "Apport",
		"--debit", "512000=1000", "--credit", "101000=1000")
	require.NoError(t, err)
	log = exec.Command("git", "log", "--format=%s", "-1")
	log.Dir = dir
	out, err = log.Output()
	require.NoError(t, err)
	assert.Contains(t, string(out), "entry.add: OD-")
}

func TestInit_Gitignore(t *testing.T) {
	dir := initBooks(t)

	data, err := os.ReadFile(filepath.Join(dir, ".gitignore"))
	require.NoError(t, err)
	for _, pattern := range []string{"exports/", ".env"} {
		assert.Contains(t, string(data), pattern, ".gitignore should contain %s", pattern)
	}
}

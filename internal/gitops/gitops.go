// Package gitops versions a compta repository with the git command line.
package gitops

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// Author identifies who commits.
type Author struct {
	Name  string
	Email string
}

func (a Author) String() string { return fmt.Sprintf("%s <%s>", a.Name, a.Email) }

func git(ctx context.Context, dir string, author Author, args ...string) *exec.Cmd {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = dir
	if author.Name != "" {
		cmd.Env = append(os.Environ(),
			"GIT_COMMITTER_NAME="+author.Name,
			"GIT_COMMITTER_EMAIL="+author.Email,
		)
	}
	return cmd
}

// Init initializes a new git repository at dir.
func Init(ctx context.Context, dir string) error {
	if out, err := git(ctx, dir, Author{}, "init", "--quiet").CombinedOutput(); err != nil {
		return fmt.Errorf("git init: %s: %w", out, err)
	}
	return nil
}

// HasChanges reports whether the working tree differs from HEAD, untracked
// files included.
func HasChanges(ctx context.Context, dir string) (bool, error) {
	out, err := git(ctx, dir, Author{}, "status", "--porcelain").Output()
	if err != nil {
		return false, fmt.Errorf("git status: %w", err)
	}
	return len(strings.TrimSpace(string(out))) > 0, nil
}

// CommitAll stages all files and creates a commit. Returns the short commit
// hash, or "" when there was nothing to commit.
func CommitAll(ctx context.Context, dir, message string, author Author) (string, error) {
	changed, err := HasChanges(ctx, dir)
	if err != nil {
		return "", err
	}
	if !changed {
		return "", nil
	}

	if out, err := git(ctx, dir, author, "add", "-A").CombinedOutput(); err != nil {
		return "", fmt.Errorf("git add: %s: %w", out, err)
	}
	if out, err := git(ctx, dir, author, "commit", "--quiet", "-m", message, "--author", author.String()).CombinedOutput(); err != nil {
		return "", fmt.Errorf("git commit: %s: %w", out, err)
	}

	out, err := git(ctx, dir, author, "rev-parse", "--short", "HEAD").Output()
	if err != nil {
		return "", fmt.Errorf("git rev-parse: %w", err)
	}
	return strings.TrimSpace(string(out)), nil
}

// IsRepo reports whether dir is the root of a git repository.
func IsRepo(dir string) bool {
	_, err := os.Stat(filepath.Join(dir, ".git"))
	return err == nil
}

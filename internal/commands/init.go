package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/compta/internal/accounts"
	"github.com/cleared-dev/compta/internal/auditlog"
	"github.com/cleared-dev/compta/internal/config"
	"github.com/cleared-dev/compta/internal/gitops"
)

type initOptions struct {
	name       string
	entityType string
	siren      string
	year       int
	backend    string
	noGit      bool
}

func newInitCommand(root *rootOptions) *cobra.Command {
	opts := initOptions{}

	cmd := &cobra.Command{
		Use:   "init [directory]",
		Short: "Initialize a new books repository",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := root.dir
			if len(args) > 0 {
				dir = args[0]
			}

			absDir, err := filepath.Abs(dir)
			if err != nil {
				return fmt.Errorf("resolving path: %w", err)
			}

			return runInit(cmd.Context(), cmd.OutOrStdout(), absDir, opts)
		},
	}

	cmd.Flags().StringVar(&opts.name, "name", "", "company name (required)")
	_ = cmd.MarkFlagRequired("name")
	cmd.Flags().StringVar(&opts.entityType, "entity-type", "sarl", "entity type (micro, sarl, sas)")
	cmd.Flags().StringVar(&opts.siren, "siren", "", "SIREN number, used for FEC file names")
	cmd.Flags().IntVar(&opts.year, "year", time.Now().Year(), "first exercise (calendar year)")
	cmd.Flags().StringVar(&opts.backend, "backend", config.BackendCSV, "entry storage (csv or sqlite)")
	cmd.Flags().BoolVar(&opts.noGit, "no-git", false, "do not create a git repository")

	return cmd
}

func runInit(ctx context.Context, out io.Writer, dir string, opts initOptions) error {
	if _, err := os.Stat(filepath.Join(dir, config.FileName)); err == nil {
		return fmt.Errorf("%s already exists in %s", config.FileName, dir)
	}

	cfg := config.Default(opts.name, opts.entityType, opts.year)
	cfg.Company.SIREN = opts.siren
	cfg.Storage.Backend = opts.backend
	if err := cfg.Validate(); err != nil {
		return err
	}

	// Create directory structure.
	dirs := []string{
		"accounts",
		"logs",
		"exports",
		"import",
		filepath.Join("import", "processed"),
	}
	for _, d := range dirs {
		if err := os.MkdirAll(filepath.Join(dir, d), 0o755); err != nil {
			return fmt.Errorf("creating directory %s: %w", d, err)
		}
	}

	if err := config.Save(filepath.Join(dir, config.FileName), cfg); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	svc := accounts.NewService(accounts.DefaultChart(opts.entityType))
	if err := svc.Save(dir); err != nil {
		return fmt.Errorf("writing chart of accounts: %w", err)
	}

	gitignore := "exports/\n.env\n*.db-shm\n*.db-wal\n"
	if err := os.WriteFile(filepath.Join(dir, ".gitignore"), []byte(gitignore), 0o644); err != nil {
		return fmt.Errorf("writing .gitignore: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "import", ".gitkeep"), []byte{}, 0o644); err != nil {
		return fmt.Errorf("writing .gitkeep: %w", err)
	}

	err := auditlog.Append(dir, auditlog.Record{
		Timestamp: time.Now(),
		Actor:     "cli",
		Action:    auditlog.ActionInit,
		Company:   cfg.Company.ID,
		Exercise:  cfg.Exercise.ID,
		Target:    cfg.Company.Name,
		Details:   opts.entityType,
	})
	if err != nil {
		return err
	}

	if opts.noGit {
		fmt.Fprintf(out, "Initialized books for %s at %s\n", cfg.Company.Name, dir)
		return nil
	}

	if err := gitops.Init(ctx, dir); err != nil {
		return err
	}
	author := gitops.Author{Name: cfg.Git.AuthorName, Email: cfg.Git.AuthorEmail}
	hash, err := gitops.CommitAll(ctx, dir, "init: Initialize "+cfg.Company.Name, author)
	if err != nil {
		return fmt.Errorf("initial commit: %w", err)
	}

	fmt.Fprintf(out, "Initialized books for %s at %s (%s)\n", cfg.Company.Name, dir, hash)
	return nil
}

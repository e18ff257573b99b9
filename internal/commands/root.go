package commands

import (
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/compta/internal/buildinfo"
)

// rootOptions are the persistent flags shared by every subcommand.
type rootOptions struct {
	dir      string
	debug    bool
	logLevel string
}

// NewRootCommand creates the root CLI command with all subcommands registered.
func NewRootCommand() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:     "compta",
		Short:   "French double-entry bookkeeping",
		Version: buildinfo.String(),
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVarP(&opts.dir, "dir", "C", ".", "books repository directory")
	rootCmd.PersistentFlags().BoolVar(&opts.debug, "debug", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "log level (debug, info, warn, error); overrides compta.yaml")

	rootCmd.AddCommand(
		newInitCommand(opts),
		newAccountsCommand(opts),
		newEntryCommand(opts),
		newImportCommand(opts),
		newReportCommand(opts),
		newExportCommand(opts),
		newNextNumberCommand(opts),
		newServeCommand(opts),
	)

	return rootCmd
}

// newLogger builds the slog logger. Flags win over the configured level.
func newLogger(w io.Writer, opts *rootOptions, level, format string) *slog.Logger {
	if opts.logLevel != "" {
		level = opts.logLevel
	}
	if opts.debug {
		level = "debug"
	}
	hopts := &slog.HandlerOptions{Level: parseLogLevel(level)}
	if strings.EqualFold(strings.TrimSpace(format), "json") {
		return slog.New(slog.NewJSONHandler(w, hopts))
	}
	return slog.New(slog.NewTextHandler(w, hopts))
}

func parseLogLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

package commands

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/compta/internal/export"
	"github.com/cleared-dev/compta/internal/fec"
	"github.com/cleared-dev/compta/internal/journal"
	"github.com/cleared-dev/compta/internal/ledger"
	"github.com/cleared-dev/compta/internal/model"
)

const exportDir = "exports"

func newExportCommand(root *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the journal",
	}
	cmd.AddCommand(newExportCSVCommand(root), newExportFECCommand(root))
	return cmd
}

func newExportCSVCommand(root *rootOptions) *cobra.Command {
	var (
		output string
		ff     filterFlags
	)

	cmd := &cobra.Command{
		Use:   "csv",
		Short: "Export the journal as a spreadsheet-friendly CSV",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			f, err := ff.filter()
			if err != nil {
				return err
			}
			b, err := openBooks(root, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer b.Close()

			entries, err := b.journal.ListEntries(cmd.Context(), journal.Query{From: f.From, To: f.To})
			if err != nil {
				return err
			}
			var selected []model.Entry
			for _, e := range ledger.SortEntries(entries) {
				if matchJournal(f.Journals, e.JournalCode) {
					selected = append(selected, e)
				}
			}
			return writeOutput(cmd.OutOrStdout(), output, func(w io.Writer) error {
				return export.WriteJournal(w, selected)
			})
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default stdout)")
	ff.register(cmd.Flags())
	return cmd
}

func newExportFECCommand(root *rootOptions) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "fec",
		Short: "Write the Fichier des Écritures Comptables of the exercise",
		Long: `Write the FEC of the exercise. The default file is
exports/<SIREN>FEC<closing date>.txt and needs company.siren in compta.yaml.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			b, err := openBooks(root, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer b.Close()

			if output == "" {
				if b.cfg.Company.SIREN == "" {
					return errors.New("company.siren is not set; pass --output")
				}
				closing, err := b.cfg.Exercise.EndDate()
				if err != nil {
					return err
				}
				output = filepath.Join(b.root, exportDir, fec.FileName(b.cfg.Company.SIREN, closing))
			}

			entries, err := b.journal.ListEntries(cmd.Context(), journal.Query{})
			if err != nil {
				return err
			}
			if err := writeOutput(cmd.OutOrStdout(), output, func(w io.Writer) error {
				return fec.Write(w, ledger.SortEntries(entries), b.cfg.JournalLabel)
			}); err != nil {
				return err
			}
			if output != "-" {
				b.log.Info("FEC written", "path", output, "entries", len(entries))
				fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", output)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (- for stdout)")
	return cmd
}

// writeOutput runs write against stdout when path is empty or "-", and
// against a new file otherwise.
func writeOutput(stdout io.Writer, path string, write func(io.Writer) error) error {
	if path == "" || path == "-" {
		return write(stdout)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", filepath.Dir(path), err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

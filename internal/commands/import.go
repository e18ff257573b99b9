package commands

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/compta/internal/auditlog"
	"github.com/cleared-dev/compta/internal/importer"
)

func newImportCommand(root *rootOptions) *cobra.Command {
	var keep bool

	cmd := &cobra.Command{
		Use:   "import [file...]",
		Short: "Import FEC or journal CSV files",
		Long: `Import FEC files (.txt, .fec) or journal CSV exports (.csv).

Without arguments, every file in import/ is imported and moved to
import/processed/. Unbalanced entries and unreadable rows are skipped and
reported; accounts unknown to the chart are created from the file.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := openBooks(root, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer b.Close()

			type source struct {
				path    string
				scanned bool
			}
			var sources []source
			for _, a := range args {
				sources = append(sources, source{path: a})
			}
			if len(args) == 0 {
				files, err := importer.Scan(b.root)
				if err != nil {
					return err
				}
				for _, f := range files {
					sources = append(sources, source{path: f.Path, scanned: true})
				}
				if len(sources) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "Nothing to import.")
					return nil
				}
			}

			out := cmd.OutOrStdout()
			im := importer.New(b.journal, b.accounts, b.log)
			reg := importer.DefaultRegistry()
			failed := 0
			for _, src := range sources {
				name := filepath.Base(src.path)
				res, err := im.ImportFile(cmd.Context(), reg, src.path)
				if err != nil {
					b.log.Error("import failed", "file", name, "err", err)
					fmt.Fprintf(out, "%s: %v\n", name, err)
					failed++
					continue
				}

				fmt.Fprintf(out, "%s: %d entries imported", name, res.Imported)
				if len(res.NewAccounts) > 0 {
					fmt.Fprintf(out, ", %d accounts created", len(res.NewAccounts))
				}
				fmt.Fprintln(out)
				for _, msg := range res.Errors {
					fmt.Fprintf(out, "  %s\n", msg)
				}
				if !res.Succeeded() && !res.Partial() {
					failed++
					continue
				}

				if src.scanned && !keep {
					if err := importer.MarkProcessed(b.root, name); err != nil {
						return err
					}
				}
				details := fmt.Sprintf("%d entries, %d errors", res.Imported, len(res.Errors))
				if err := b.record(cmd.Context(), auditlog.Record{Action: auditlog.ActionImport, Target: name, Details: details}); err != nil {
					return err
				}
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d files not imported", failed, len(sources))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&keep, "keep", false, "leave imported files in import/")
	return cmd
}

package httpapi

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/cleared-dev/compta/internal/auditlog"
	"github.com/cleared-dev/compta/internal/fec"
	"github.com/cleared-dev/compta/internal/importer"
)

const maxImportBytes = 32 << 20

// importFEC handles POST /import/fec with the raw FEC file as body. Valid
// entries are stored even when other rows fail; the response lists both.
func (s *Server) importFEC(w http.ResponseWriter, r *http.Request) {
	if s.deps.Importer == nil {
		toJSON(w, http.StatusNotImplemented, errorResponse{Error: "import disabled"})
		return
	}
	body := http.MaxBytesReader(w, r.Body, maxImportBytes)
	res, err := s.deps.Importer.Import(r.Context(), &importer.FECParser{}, body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			toJSON(w, http.StatusRequestEntityTooLarge, errorResponse{Error: "file too large"})
		case errors.Is(err, fec.ErrNoHeader), errors.Is(err, fec.ErrMissingColumns):
			badRequest(w, err.Error())
		default:
			s.log.Error("importing FEC", "err", err)
			toJSON(w, http.StatusInternalServerError, errorResponse{Error: "import failed"})
		}
		return
	}
	importErrorsTotal.Add(float64(len(res.Errors)))
	importedEntriesTotal.Add(float64(res.Imported))

	out := importResponse{
		Imported:    res.Imported,
		Pieces:      make([]string, 0, len(res.Entries)),
		NewAccounts: make([]string, 0, len(res.NewAccounts)),
		Errors:      res.Errors,
	}
	for _, e := range res.Entries {
		out.Pieces = append(out.Pieces, e.PieceNumber)
	}
	for _, n := range res.NewAccounts {
		out.NewAccounts = append(out.NewAccounts, n.String())
	}
	if out.Errors == nil {
		out.Errors = []string{}
	}

	if res.Imported == 0 {
		toJSON(w, http.StatusUnprocessableEntity, out)
		return
	}
	details := fmt.Sprintf("%d entries, %d errors", res.Imported, len(res.Errors))
	if !s.changed(w, r, auditlog.ActionImport, "fec", details) {
		return
	}
	toJSON(w, http.StatusOK, out)
}

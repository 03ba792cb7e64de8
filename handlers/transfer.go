package handlers

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"showlog/internal/localstore"
	"showlog/models"
	"showlog/services/library"
)

// maxImportBytes bounds user-supplied import files.
const maxImportBytes = 32 << 20

type transferLibrary interface {
	Shows() models.Library
	Replace(doc models.Library)
}

var _ transferLibrary = (*library.Service)(nil)

// TransferHandler serves the backup/restore path: full-document JSON export
// (the only durable backup format), a spreadsheet view, and import.
type TransferHandler struct {
	Library transferLibrary
	Now     func() time.Time
}

func NewTransferHandler(librarySvc transferLibrary) *TransferHandler {
	return &TransferHandler{Library: librarySvc, Now: time.Now}
}

// Export streams the document as a date-stamped download. `?format=csv`
// selects the spreadsheet rendering; anything else gets the canonical JSON
// document that round-trips through Import.
func (h *TransferHandler) Export(w http.ResponseWriter, r *http.Request) {
	shows := h.Library.Shows()
	stamp := h.Now().UTC().Format("2006-01-02")

	if strings.EqualFold(r.URL.Query().Get("format"), "csv") {
		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "showlog-"+stamp+".csv"))
		writeSpreadsheet(w, shows)
		return
	}

	data, err := localstore.Export(shows)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "showlog-backup-"+stamp+".json"))
	w.Write(data)
}

// Import parses an uploaded document and replaces the library wholesale. A
// malformed file is reported without touching the current document.
func (h *TransferHandler) Import(w http.ResponseWriter, r *http.Request) {
	raw, err := io.ReadAll(io.LimitReader(r.Body, maxImportBytes))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	doc, err := localstore.Import(raw)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, localstore.ErrMalformedDocument) {
			status = http.StatusBadRequest
		}
		http.Error(w, err.Error(), status)
		return
	}

	h.Library.Replace(doc)
	writeJSON(w, map[string]int{"imported": len(doc)})
}

// writeSpreadsheet renders one row per show: name, premiere year, genres,
// source, watch counts, progress percentage, status label and rewatch count.
func writeSpreadsheet(w io.Writer, shows models.Library) {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	cw.Write([]string{"Name", "Year", "Genres", "Source", "Watched", "Total", "Progress", "Status", "Rewatches"})
	for _, show := range shows {
		progress := library.Progress(show)

		year := ""
		if y := show.PremiereYear(); y > 0 {
			year = strconv.Itoa(y)
		}

		cw.Write([]string{
			show.Name,
			year,
			strings.Join(show.Genres, ", "),
			show.Source,
			strconv.Itoa(progress.Watched),
			strconv.Itoa(progress.Total),
			fmt.Sprintf("%d%%", progress.Percentage),
			statusLabel(progress),
			strconv.Itoa(len(show.Rewatches)),
		})
	}
}

func statusLabel(progress models.Progress) string {
	switch {
	case progress.Total > 0 && progress.Percentage == 100:
		return "Completed"
	case progress.Percentage > 0:
		return "In Progress"
	default:
		return "Not Started"
	}
}

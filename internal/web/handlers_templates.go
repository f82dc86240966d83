package web

import (
	"bytes"
	"fmt"
	"net/http"
	"strings"

	"github.com/JonMunkholm/idcards/internal/core"
)

// handleDownloadTemplate serves a sample file for a record type.
// ?format=xlsx returns a workbook, anything else CSV.
func (s *Server) handleDownloadTemplate(w http.ResponseWriter, r *http.Request) {
	schema, err := recordTypeParam(r)
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}

	// Render to a buffer so a failure can still produce an error response.
	var buf bytes.Buffer
	var contentType, ext string
	switch strings.ToLower(r.URL.Query().Get("format")) {
	case "xlsx", "excel":
		contentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
		ext = "xlsx"
		err = core.WriteTemplateXLSX(&buf, schema)
	default:
		contentType = "text/csv; charset=utf-8"
		ext = "csv"
		err = core.WriteTemplateCSV(&buf, schema)
	}
	if err != nil {
		s.respondError(w, r, fmt.Errorf("render %s template: %w", ext, err), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, core.TemplateFileName(schema, ext)))
	_, _ = w.Write(buf.Bytes())
}

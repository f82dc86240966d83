package web

import (
	"context"
	"net/http"
	"time"

	"github.com/JonMunkholm/idcards/internal/core"
	"github.com/JonMunkholm/idcards/internal/logging"
	"github.com/JonMunkholm/idcards/internal/web/templates"
)

// handleDashboard renders the upload page with one panel per record type.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	schemas := core.Schemas()
	cards := make([]templates.RecordTypeCard, len(schemas))
	for i, sc := range schemas {
		cards[i] = templates.RecordTypeCard{
			Type:            sc.Type,
			Label:           sc.Label,
			RequiredHeaders: sc.RequiredHeaders,
		}
		// Counts are informational; the page still renders without them.
		if n, err := s.service.Store().Count(ctx, sc.Type); err == nil {
			cards[i].Registered = n
		} else {
			logging.FromContext(ctx).Warn("dashboard count failed", "record_type", sc.Type, "error", err)
		}
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := templates.Dashboard(cards).Render(ctx, w); err != nil {
		logging.FromContext(ctx).Error("render dashboard", "error", err)
	}
}

// recordTypeInfo describes a record type to API clients.
type recordTypeInfo struct {
	Type            core.RecordType `json:"type"`
	Label           string          `json:"label"`
	IdentifierField string          `json:"identifierField"`
	RequiredHeaders []string        `json:"requiredHeaders"`
	RequiredFields  []string        `json:"requiredFields"`
	Columns         []columnInfo    `json:"columns"`
}

type columnInfo struct {
	Name       string   `json:"name"`
	Kind       string   `json:"kind"`
	Required   bool     `json:"required"`
	EnumValues []string `json:"enumValues,omitempty"`
}

// handleListRecordTypes returns every registered record type and its columns.
func (s *Server) handleListRecordTypes(w http.ResponseWriter, r *http.Request) {
	schemas := core.Schemas()
	out := make([]recordTypeInfo, len(schemas))
	for i, sc := range schemas {
		cols := make([]columnInfo, len(sc.Rules))
		for j, rule := range sc.Rules {
			cols[j] = columnInfo{
				Name:       rule.Name,
				Kind:       rule.Kind.String(),
				Required:   rule.Required,
				EnumValues: rule.EnumValues,
			}
		}
		out[i] = recordTypeInfo{
			Type:            sc.Type,
			Label:           sc.Label,
			IdentifierField: sc.IdentifierField,
			RequiredHeaders: sc.RequiredHeaders,
			RequiredFields:  sc.RequiredFields,
			Columns:         cols,
		}
	}
	writeJSON(w, http.StatusOK, out)
}

type recordsPage struct {
	Records []core.StoredRecord `json:"records"`
	Total   int64               `json:"total"`
	Limit   int                 `json:"limit"`
	Offset  int                 `json:"offset"`
}

// handleListRecords returns one page of registered records, newest first.
func (s *Server) handleListRecords(w http.ResponseWriter, r *http.Request) {
	schema, err := recordTypeParam(r)
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}

	limit := parseIntParam(r, "limit", 50)
	offset := parseIntParam(r, "offset", 0)

	recs, total, err := s.service.Records(r.Context(), schema.Type, limit, offset)
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}
	if recs == nil {
		recs = []core.StoredRecord{}
	}

	writeJSON(w, http.StatusOK, recordsPage{Records: recs, Total: total, Limit: limit, Offset: offset})
}

// handleImportHistory lists committed imports, optionally for one record type.
func (s *Server) handleImportHistory(w http.ResponseWriter, r *http.Request) {
	var rt core.RecordType
	if name := r.URL.Query().Get("type"); name != "" {
		schema, err := core.LookupSchema(name)
		if err != nil {
			s.respondError(w, r, err, 0)
			return
		}
		rt = schema.Type
	}

	history, err := s.service.ImportHistory(r.Context(), rt, parseIntParam(r, "limit", 20))
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}
	if history == nil {
		history = []core.ImportBatch{}
	}
	writeJSON(w, http.StatusOK, history)
}

// handleImportStatus reports import slot usage.
func (s *Server) handleImportStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.service.LimiterStatus())
}

type healthResponse struct {
	Status  string                   `json:"status"`
	Store   string                   `json:"store"`
	Imports core.ImportLimiterStatus `json:"imports"`
}

// handleHealth pings the store. Returns 503 when it is unreachable.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	resp := healthResponse{Status: "ok", Store: "ok", Imports: s.service.LimiterStatus()}
	status := http.StatusOK
	if err := s.service.Store().Ping(ctx); err != nil {
		logging.FromContext(ctx).Error("health check: store unreachable", "error", err)
		resp.Status = "degraded"
		resp.Store = "unreachable"
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, resp)
}

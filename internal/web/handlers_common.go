package web

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/JonMunkholm/idcards/internal/core"
)

// recordTypeParam resolves the {recordType} path parameter to a registered schema.
func recordTypeParam(r *http.Request) (core.Schema, error) {
	return core.LookupSchema(chi.URLParam(r, "recordType"))
}

// importIDParam parses the {importID} path parameter. A malformed ID is
// reported as not found, same as an expired one.
func importIDParam(r *http.Request) (uuid.UUID, error) {
	raw := chi.URLParam(r, "importID")
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %q", core.ErrImportNotFound, raw)
	}
	return id, nil
}

// parseIntParam parses a non-negative integer query parameter with a default value.
func parseIntParam(r *http.Request, name string, defaultVal int) int {
	val := r.URL.Query().Get(name)
	if val == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(val)
	if err != nil || i < 0 {
		return defaultVal
	}
	return i
}

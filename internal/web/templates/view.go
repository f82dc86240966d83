// Package templates renders the HTML pages and HTMX fragments of the
// import UI. Components are written in .templ files; run `templ generate`
// after editing them.
package templates

import (
	"strconv"

	"github.com/JonMunkholm/idcards/internal/core"
)

// maxErrorRows caps the error table; the JSON API always returns every error.
const maxErrorRows = 200

// RecordTypeCard is one upload panel on the dashboard.
type RecordTypeCard struct {
	Type            core.RecordType
	Label           string
	RequiredHeaders []string
	Registered      int64
}

func templateURL(rt core.RecordType, format string) string {
	return "/api/template/" + string(rt) + "?format=" + format
}

func visibleErrors(errs []core.ValidationError) []core.ValidationError {
	if len(errs) > maxErrorRows {
		return errs[:maxErrorRows]
	}
	return errs
}

// rowLabel leaves structural errors (row 0) blank.
func rowLabel(row int) string {
	if row <= 0 {
		return ""
	}
	return strconv.Itoa(row)
}

package templates

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/a-h/templ"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/idcards/internal/core"
)

func render(t *testing.T, c templ.Component) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, c.Render(context.Background(), &buf))
	return buf.String()
}

func TestErrorAlert(t *testing.T) {
	html := render(t, ErrorAlert(`Bad "value" <x>`, "", "VAL002"))

	assert.Contains(t, html, "Bad &#34;value&#34; &lt;x&gt;")
	assert.Contains(t, html, "<small>Code: VAL002</small>")
	assert.Equal(t, 1, strings.Count(html, "<p>"), "empty action renders no paragraph")
}

func TestPreviewSummary(t *testing.T) {
	pv := &core.Preview{
		ImportID:  uuid.New(),
		FileName:  "staff.csv",
		Summary:   core.ImportSummary{Outcome: core.OutcomePartial, Ready: 2, SkippedRows: 1},
		ExpiresAt: time.Date(2026, 1, 10, 9, 30, 0, 0, time.UTC),
		Result: core.ImportResult{Errors: []core.ValidationError{
			{Row: 0, Kind: core.ErrorStructural, Message: "missing required headers: prn"},
			{Row: 3, Identifier: "EMP003", Field: "employeeType", Kind: core.ErrorRow, Message: "invalid enum value"},
		}},
	}

	html := render(t, PreviewSummary(pv))

	assert.Contains(t, html, `data-outcome="partial"`)
	assert.Contains(t, html, fmt.Sprintf(`hx-post="/api/imports/%s/commit"`, pv.ImportID))
	assert.Contains(t, html, "Register 2 records")
	assert.Contains(t, html, "Preview expires at 09:30.")
	assert.Contains(t, html, `<tr data-kind="structural"><td></td>`)
	assert.Contains(t, html, "<td>3</td><td>EMP003</td>")
}

func TestPreviewSummaryWithoutSession(t *testing.T) {
	html := render(t, PreviewSummary(&core.Preview{FileName: "empty.csv"}))
	assert.NotContains(t, html, "<button")
	assert.NotContains(t, html, "<table")
}

func TestErrorTableIsCapped(t *testing.T) {
	errs := make([]core.ValidationError, maxErrorRows+5)
	for i := range errs {
		errs[i] = core.ValidationError{Row: i + 1, Kind: core.ErrorRow, Message: "bad"}
	}

	html := render(t, CommitSummary(&core.CommitResult{Inserted: 1, Errors: errs}))

	assert.Equal(t, maxErrorRows, strings.Count(html, `data-kind="row"`))
	assert.Contains(t, html, "5 more not shown")
}

func TestDashboard(t *testing.T) {
	html := render(t, Dashboard([]RecordTypeCard{
		{Type: core.Student, Label: "Students", RequiredHeaders: []string{"prn", "fullName"}, Registered: 4},
	}))

	assert.True(t, strings.HasPrefix(html, "<!doctype html>"))
	assert.Contains(t, html, "4 registered. Required columns: <code>prn, fullName</code>")
	assert.Contains(t, html, `href="/api/template/student?format=xlsx"`)
	assert.Contains(t, html, `hx-target="#result-student"`)
}

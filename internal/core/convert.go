package core

// convert.go provides cell conversion for CSV data.
//
// These functions handle the messy reality of spreadsheet exports:
//   - Dates in ISO 8601, US (MM/DD/YYYY) or day-first (DD/MM/YYYY) order
//   - Phone numbers that must be exactly ten digits
//   - Quote characters left around values by naive exporters
//
// Date layouts are tried in a fixed priority order; the first layout that
// yields a valid calendar date wins, so "03/04/2024" is always March 4.

import (
	"bytes"
	"encoding/csv"
	"regexp"
	"strings"
	"time"
)

// phoneRegex matches a phone number of exactly ten ASCII digits.
var phoneRegex = regexp.MustCompile(`^[0-9]{10}$`)

// Date layouts in priority order.
var (
	isoLayouts = []string{
		DateLayout,
		time.RFC3339Nano,
		time.RFC3339,
		"2006-01-02T15:04:05",
		"2006-01-02T15:04",
	}
	monthFirstLayout = "1/2/2006"
	dayFirstLayout   = "2/1/2006"
)

// ParseDate converts a cell to a calendar date at UTC midnight.
// Returns false if no supported layout yields a valid date.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}

	for _, layout := range isoLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return truncateToDate(t), true
		}
	}

	// MM/dd/yyyy before dd/MM/yyyy
	if t, err := time.Parse(monthFirstLayout, s); err == nil {
		return truncateToDate(t), true
	}
	if t, err := time.Parse(dayFirstLayout, s); err == nil {
		return truncateToDate(t), true
	}

	return time.Time{}, false
}

func truncateToDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ValidPhone reports whether s is exactly ten digits.
func ValidPhone(s string) bool {
	return phoneRegex.MatchString(s)
}

// CleanCell removes common CSV artifacts from a cell value:
// - Trims whitespace
// - Removes one wrapping double quote on each side
func CleanCell(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, `"`)
	s = strings.TrimSuffix(s, `"`)
	return strings.TrimSpace(s)
}

// tokenizer splits one CSV line into cleaned cells.
type tokenizer func(line string) []string

// splitNaive splits on every comma. A comma inside a quoted value splits
// the value; that is the documented behaviour of the default tokenizer.
func splitNaive(line string) []string {
	parts := strings.Split(line, ",")
	for i, p := range parts {
		parts[i] = CleanCell(p)
	}
	return parts
}

// splitQuoted honors RFC 4180 quoting within a single line.
// Falls back to the naive split if the line cannot be read.
func splitQuoted(line string) []string {
	r := csv.NewReader(bytes.NewReader([]byte(line)))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	r.TrimLeadingSpace = true

	fields, err := r.Read()
	if err != nil {
		return splitNaive(line)
	}
	for i, f := range fields {
		fields[i] = CleanCell(f)
	}
	return fields
}

// splitLines trims the text and splits it into lines, dropping a trailing
// carriage return on each line.
func splitLines(text string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	lines := strings.Split(text, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSuffix(l, "\r")
	}
	return lines
}

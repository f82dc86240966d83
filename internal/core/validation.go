package core

// validation.go provides header and row validation for CSV imports.
//
// Validation happens at two levels:
//  1. Header validation: every required header must be present
//  2. Row validation: each cell is checked against its FieldRule
//
// Row validation always collects every problem in the row rather than
// stopping at the first one, so the preview can list them all at once.

import (
	"fmt"
	"strings"
)

// ValidationError describes one problem found during an import.
type ValidationError struct {
	Row        int       `json:"row,omitempty" yaml:"row,omitempty"`               // 1-indexed data row; 0 for structural errors
	Identifier string    `json:"identifier,omitempty" yaml:"identifier,omitempty"` // Best-effort record identifier
	Field      string    `json:"field,omitempty" yaml:"field,omitempty"`
	Value      string    `json:"value,omitempty" yaml:"value,omitempty"`
	Kind       ErrorKind `json:"kind" yaml:"kind"`
	Message    string    `json:"message" yaml:"message"`
}

func (e ValidationError) Error() string {
	var b strings.Builder
	if e.Row > 0 {
		fmt.Fprintf(&b, "row %d: ", e.Row)
	}
	if e.Identifier != "" {
		fmt.Fprintf(&b, "[%s] ", e.Identifier)
	}
	if e.Field != "" {
		fmt.Fprintf(&b, "%s: ", e.Field)
	}
	b.WriteString(e.Message)
	return b.String()
}

const msgTooShort = "file must contain headers and at least one data row"

// MissingHeaders returns every required header absent from headers,
// in the order they were required.
func MissingHeaders(headers, required []string) []string {
	present := make(map[string]bool, len(headers))
	for _, h := range headers {
		present[h] = true
	}

	var missing []string
	for _, name := range required {
		if !present[name] {
			missing = append(missing, name)
		}
	}
	return missing
}

// rowValidator applies a schema to rows aligned with a header line.
type rowValidator struct {
	schema  Schema
	headers []string
	rules   map[string]FieldRule
	idPos   int
}

func newRowValidator(schema Schema, headers []string) *rowValidator {
	rules := make(map[string]FieldRule, len(schema.Rules))
	for _, r := range schema.Rules {
		rules[r.Name] = r
	}

	idPos := -1
	for i, h := range headers {
		if h == schema.IdentifierField {
			idPos = i
			break
		}
	}

	return &rowValidator{
		schema:  schema,
		headers: headers,
		rules:   rules,
		idPos:   idPos,
	}
}

// validate applies every rule to the row. It returns the record, or nil if
// the row was invalidated, plus every error found.
func (v *rowValidator) validate(rowNum int, cells []string) (*Record, []ValidationError) {
	var errs []ValidationError
	identifier := cellAt(cells, v.idPos)
	invalid := false
	failed := make(map[string]bool)

	fail := func(kind ErrorKind, field, value, msg string) {
		errs = append(errs, ValidationError{
			Row:        rowNum,
			Identifier: identifier,
			Field:      field,
			Value:      value,
			Kind:       kind,
			Message:    msg,
		})
	}

	fields := make(map[string]Value, len(v.headers))
	for i, name := range v.headers {
		if name == "" {
			continue
		}
		// A repeated header keeps its first column, matching idPos.
		if _, seen := fields[name]; seen {
			continue
		}
		raw := cellAt(cells, i)

		rule, ok := v.rules[name]
		if !ok {
			fields[name] = Value{Kind: KindString, Text: raw}
			continue
		}

		switch rule.Kind {
		case KindDate:
			if raw == "" {
				fields[name] = Value{Kind: KindDate}
				continue
			}
			d, ok := ParseDate(raw)
			if !ok {
				invalid = true
				failed[name] = true
				fail(ErrorRow, name, raw, fmt.Sprintf("invalid date %q (use YYYY-MM-DD, MM/DD/YYYY or DD/MM/YYYY)", raw))
				continue
			}
			fields[name] = Value{Kind: KindDate, Text: d.Format(DateLayout), Date: d}

		case KindEnum:
			if raw != "" && !containsExact(rule.EnumValues, raw) {
				invalid = true
				failed[name] = true
				fail(ErrorRow, name, raw, fmt.Sprintf("invalid enum value %q, must be one of: %s",
					raw, strings.Join(rule.EnumValues, ", ")))
				continue
			}
			fields[name] = Value{Kind: KindEnum, Text: raw}

		case KindPhone:
			if raw != "" && !ValidPhone(raw) {
				fail(ErrorField, name, raw, fmt.Sprintf("invalid phone format %q, must be exactly 10 digits; field cleared", raw))
				raw = ""
			}
			fields[name] = Value{Kind: KindPhone, Text: raw}

		default:
			fields[name] = Value{Kind: KindString, Text: raw}
		}
	}

	for _, name := range v.schema.RequiredFields {
		if failed[name] {
			continue
		}
		if val, ok := fields[name]; !ok || val.Empty() {
			invalid = true
			fail(ErrorRow, name, "", "missing required field")
		}
	}

	if invalid {
		return nil, errs
	}

	return &Record{
		Row:        rowNum,
		Identifier: fields[v.schema.IdentifierField].Text,
		Fields:     fields,
	}, errs
}

// cellAt returns the cell at pos, or "" if the row is too short.
func cellAt(cells []string, pos int) string {
	if pos < 0 || pos >= len(cells) {
		return ""
	}
	return cells[pos]
}

func containsExact(values []string, s string) bool {
	for _, v := range values {
		if v == s {
			return true
		}
	}
	return false
}

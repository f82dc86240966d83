package core

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// DateLayout is the canonical format for date values in records and templates.
const DateLayout = "2006-01-02"

// RecordType identifies one of the closed set of importable record variants.
type RecordType string

const (
	Student  RecordType = "student"
	Employee RecordType = "employee"
)

// ParseRecordType converts a path or flag value into a RecordType.
func ParseRecordType(s string) (RecordType, error) {
	switch RecordType(strings.ToLower(strings.TrimSpace(s))) {
	case Student:
		return Student, nil
	case Employee:
		return Employee, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownRecordType, s)
	}
}

// FieldKind represents how a CSV cell is interpreted and validated.
type FieldKind int

const (
	KindString FieldKind = iota
	KindDate
	KindEnum
	KindPhone
)

func (k FieldKind) String() string {
	switch k {
	case KindDate:
		return "date"
	case KindEnum:
		return "enum"
	case KindPhone:
		return "phone"
	default:
		return "string"
	}
}

// FieldRule defines validation rules for a single CSV column.
type FieldRule struct {
	Name       string    // Column header name (must match CSV exactly)
	Kind       FieldKind // Expected data type
	Required   bool      // Value must be present and non-empty in every record
	EnumValues []string  // Valid values for KindEnum, matched case-sensitively
}

// Schema is the complete import declaration for one record type.
type Schema struct {
	Type  RecordType
	Label string

	// Rules are in canonical column order; the template header follows it.
	Rules []FieldRule

	// RequiredHeaders must all appear in the header line.
	RequiredHeaders []string

	// RequiredFields must be non-empty in every accepted record.
	// Populated from rules marked Required when left empty.
	RequiredFields []string

	// IdentifierField is the unique key (PRN for students, employee ID for employees).
	IdentifierField string

	// Examples are the template's sample data rows, in rule order.
	Examples [][]string
}

// Rule returns the rule for a column name.
func (s Schema) Rule(name string) (FieldRule, bool) {
	for _, r := range s.Rules {
		if r.Name == name {
			return r, true
		}
	}
	return FieldRule{}, false
}

// Columns returns the canonical header row.
func (s Schema) Columns() []string {
	cols := make([]string, len(s.Rules))
	for i, r := range s.Rules {
		cols[i] = r.Name
	}
	return cols
}

// Value is a typed cell value in a parsed record.
type Value struct {
	Kind FieldKind
	Text string    // Cell text; canonical DateLayout form for dates
	Date time.Time // Set only for KindDate
}

// Empty reports whether the value carries no data.
func (v Value) Empty() bool {
	return v.Text == "" && v.Date.IsZero()
}

func (v Value) String() string {
	if v.Kind == KindDate && !v.Date.IsZero() {
		return v.Date.Format(DateLayout)
	}
	return v.Text
}

// MarshalJSON encodes the value as its string form.
func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.String())
}

// MarshalYAML encodes the value as its string form.
func (v Value) MarshalYAML() (interface{}, error) {
	return v.String(), nil
}

// Record is one accepted row after rule application.
type Record struct {
	Row        int              `json:"row" yaml:"row"`
	Identifier string           `json:"identifier" yaml:"identifier"`
	Fields     map[string]Value `json:"fields" yaml:"fields"`
}

// Get returns the string form of a field, or "" if absent.
func (r Record) Get(name string) string {
	return r.Fields[name].String()
}

// Date returns a date field and whether it was set.
func (r Record) Date(name string) (time.Time, bool) {
	v, ok := r.Fields[name]
	if !ok || v.Kind != KindDate || v.Date.IsZero() {
		return time.Time{}, false
	}
	return v.Date, true
}

// Strings returns the record as a plain field -> text map.
func (r Record) Strings() map[string]string {
	out := make(map[string]string, len(r.Fields))
	for k, v := range r.Fields {
		out[k] = v.String()
	}
	return out
}

// ErrorKind classifies a ValidationError.
type ErrorKind string

const (
	ErrorStructural ErrorKind = "structural" // fatal, nothing else is parsed
	ErrorRow        ErrorKind = "row"        // row dropped
	ErrorField      ErrorKind = "field"      // field cleared, row kept
	ErrorDuplicate  ErrorKind = "duplicate"  // rejected at registration
)

// ImportOutcome is the user-visible classification of an ImportResult.
type ImportOutcome string

const (
	OutcomeFailed  ImportOutcome = "failed"
	OutcomePartial ImportOutcome = "partial"
	OutcomeSuccess ImportOutcome = "success"
)

// ImportResult is the output of a parse: accepted records and all errors.
type ImportResult struct {
	Records []Record          `json:"records" yaml:"records"`
	Errors  []ValidationError `json:"errors" yaml:"errors"`
}

// Outcome derives the outcome purely from the record and error counts.
func (r ImportResult) Outcome() ImportOutcome {
	switch {
	case len(r.Records) == 0:
		return OutcomeFailed
	case len(r.Errors) > 0:
		return OutcomePartial
	default:
		return OutcomeSuccess
	}
}

// ImportSummary holds the counts shown next to a preview.
type ImportSummary struct {
	Outcome       ImportOutcome `json:"outcome" yaml:"outcome"`
	Ready         int           `json:"ready" yaml:"ready"`
	SkippedRows   int           `json:"skippedRows" yaml:"skippedRows"`
	ClearedFields int           `json:"clearedFields" yaml:"clearedFields"`
	Structural    bool          `json:"structural,omitempty" yaml:"structural,omitempty"`
}

// Summary counts ready records, skipped rows and cleared fields. Field
// errors only count as cleared on rows that were kept.
func (r ImportResult) Summary() ImportSummary {
	s := ImportSummary{Outcome: r.Outcome(), Ready: len(r.Records)}
	kept := make(map[int]bool, len(r.Records))
	for _, rec := range r.Records {
		kept[rec.Row] = true
	}
	skipped := make(map[int]bool)
	for _, e := range r.Errors {
		switch e.Kind {
		case ErrorStructural:
			s.Structural = true
		case ErrorRow, ErrorDuplicate:
			skipped[e.Row] = true
		case ErrorField:
			if kept[e.Row] {
				s.ClearedFields++
			}
		}
	}
	s.SkippedRows = len(skipped)
	return s
}

func (s ImportSummary) String() string {
	return fmt.Sprintf("%d records ready, %d rows skipped, %d fields cleared",
		s.Ready, s.SkippedRows, s.ClearedFields)
}

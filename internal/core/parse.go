package core

import (
	"fmt"
	"strings"
)

// ParseOptions selects tokenizer behaviour.
type ParseOptions struct {
	// QuotedFields enables RFC 4180 quoting within a line, so a comma inside
	// a quoted value no longer splits it. Newlines inside values remain
	// unsupported either way because the text is split into lines first.
	QuotedFields bool
}

func (o ParseOptions) tokenizer() tokenizer {
	if o.QuotedFields {
		return splitQuoted
	}
	return splitNaive
}

// Parse converts CSV text into validated records using the default naive
// comma tokenizer. See ParseWith.
func Parse(csvText string, schema Schema, requiredHeaders []string) ImportResult {
	return ParseWith(csvText, schema, requiredHeaders, ParseOptions{})
}

// ParseWith converts CSV text into validated records plus every error found.
//
// Only structural problems (no data line, missing required headers) stop the
// parse; they are returned as the sole error with zero records. Bad cells
// drop their row (dates, enum values, missing required fields) or clear the
// field (phone numbers) and parsing moves on. Blank lines are skipped and
// do not advance the row number.
func ParseWith(csvText string, schema Schema, requiredHeaders []string, opts ParseOptions) ImportResult {
	result := ImportResult{
		Records: []Record{},
		Errors:  []ValidationError{},
	}

	lines := splitLines(csvText)
	if len(lines) < 2 {
		result.Errors = append(result.Errors, ValidationError{
			Kind:    ErrorStructural,
			Message: msgTooShort,
		})
		return result
	}

	tokenize := opts.tokenizer()
	headers := tokenize(lines[0])

	if missing := MissingHeaders(headers, requiredHeaders); len(missing) > 0 {
		result.Errors = append(result.Errors, ValidationError{
			Kind:    ErrorStructural,
			Message: fmt.Sprintf("missing required headers: %s", strings.Join(missing, ", ")),
		})
		return result
	}

	validator := newRowValidator(schema, headers)
	rowNum := 0

	for _, line := range lines[1:] {
		if strings.TrimSpace(line) == "" {
			continue
		}
		rowNum++

		rec, errs := validator.validate(rowNum, tokenize(line))
		result.Errors = append(result.Errors, errs...)
		if rec != nil {
			result.Records = append(result.Records, *rec)
		}
	}

	return result
}

// ParseSchema parses with the schema's own required headers.
func ParseSchema(csvText string, schema Schema, opts ParseOptions) ImportResult {
	return ParseWith(csvText, schema, schema.RequiredHeaders, opts)
}

// ValidateObjects applies schema rules to field maps as if each map were a
// CSV row under the schema's canonical header. Values are cleaned like cells.
func ValidateObjects(schema Schema, objs []map[string]string) ImportResult {
	result := ImportResult{
		Records: []Record{},
		Errors:  []ValidationError{},
	}

	columns := schema.Columns()
	validator := newRowValidator(schema, columns)

	for i, obj := range objs {
		cells := make([]string, len(columns))
		for j, col := range columns {
			cells[j] = CleanCell(obj[col])
		}

		rec, errs := validator.validate(i+1, cells)
		result.Errors = append(result.Errors, errs...)
		if rec != nil {
			result.Records = append(result.Records, *rec)
		}
	}
	return result
}

// Package records declares the student and employee import schemas and the
// typed records built from parsed rows.
//
// Import this package for its side effect to register both schemas:
//
//	import _ "github.com/JonMunkholm/idcards/internal/core/records"
package records

import (
	"fmt"
	"time"

	"github.com/JonMunkholm/idcards/internal/core"
)

// BloodGroups are the accepted bloodGroup values.
var BloodGroups = []string{"A+", "A-", "B+", "B-", "AB+", "AB-", "O+", "O-"}

func init() {
	core.Register(StudentSchema())
	core.Register(EmployeeSchema())
}

// optionalDate returns a pointer to the date field, or nil if it was empty.
func optionalDate(rec core.Record, name string) *time.Time {
	d, ok := rec.Date(name)
	if !ok {
		return nil
	}
	return &d
}

// View converts a parsed record into its typed form, a Student or an Employee.
func View(rt core.RecordType, rec core.Record) (any, error) {
	switch rt {
	case core.Student:
		return StudentFromRecord(rec)
	case core.Employee:
		return EmployeeFromRecord(rec)
	default:
		return nil, fmt.Errorf("%w: %q", core.ErrUnknownRecordType, rt)
	}
}

// Views converts recs in order and stops at the first failure.
func Views(rt core.RecordType, recs []core.Record) ([]any, error) {
	out := make([]any, 0, len(recs))
	for _, rec := range recs {
		v, err := View(rt, rec)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func requireType(rec core.Record, want core.RecordType, s core.Schema) error {
	if rec.Identifier == "" {
		return fmt.Errorf("%s record on row %d has no %s", want, rec.Row, s.IdentifierField)
	}
	return nil
}

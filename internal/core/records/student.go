package records

import (
	"time"

	"github.com/JonMunkholm/idcards/internal/core"
)

// YearsOfStudy are the accepted yearOfStudy values.
var YearsOfStudy = []string{"FE", "SE", "TE", "BE"}

// StudentSchema returns the student import declaration, keyed by PRN.
func StudentSchema() core.Schema {
	return core.Schema{
		Type:            core.Student,
		Label:           "Students",
		IdentifierField: "prn",
		Rules: []core.FieldRule{
			{Name: "prn", Kind: core.KindString, Required: true},
			{Name: "fullName", Kind: core.KindString, Required: true},
			{Name: "branch", Kind: core.KindString},
			{Name: "yearOfStudy", Kind: core.KindEnum, EnumValues: YearsOfStudy},
			{Name: "division", Kind: core.KindString},
			{Name: "dateOfBirth", Kind: core.KindDate},
			{Name: "bloodGroup", Kind: core.KindEnum, EnumValues: BloodGroups},
			{Name: "mobileNumber", Kind: core.KindPhone},
			{Name: "parentMobileNumber", Kind: core.KindPhone},
			{Name: "address", Kind: core.KindString},
			{Name: "validUpto", Kind: core.KindDate},
		},
		RequiredHeaders: []string{"prn", "fullName", "branch", "yearOfStudy", "dateOfBirth"},
		RequiredFields:  []string{"prn", "fullName"},
		Examples: [][]string{
			{"72034511B", "Aarav Patil", "Computer Engineering", "TE", "A", "2004-03-18", "B+", "9876543210", "9822012345", "12 Shivaji Nagar Pune", "2026-06-30"},
			{"72034587K", "Sneha Kulkarni", "Mechanical Engineering", "SE", "B", "2005-11-02", "O+", "9123456780", "", "Flat 4 Kothrud Pune", "2027-06-30"},
		},
	}
}

// Student is a parsed student row.
type Student struct {
	PRN                string     `json:"prn" yaml:"prn"`
	FullName           string     `json:"fullName" yaml:"fullName"`
	Branch             string     `json:"branch" yaml:"branch"`
	YearOfStudy        string     `json:"yearOfStudy" yaml:"yearOfStudy"`
	Division           string     `json:"division,omitempty" yaml:"division,omitempty"`
	DateOfBirth        *time.Time `json:"dateOfBirth,omitempty" yaml:"dateOfBirth,omitempty"`
	BloodGroup         string     `json:"bloodGroup,omitempty" yaml:"bloodGroup,omitempty"`
	MobileNumber       string     `json:"mobileNumber,omitempty" yaml:"mobileNumber,omitempty"`
	ParentMobileNumber string     `json:"parentMobileNumber,omitempty" yaml:"parentMobileNumber,omitempty"`
	Address            string     `json:"address,omitempty" yaml:"address,omitempty"`
	ValidUpto          *time.Time `json:"validUpto,omitempty" yaml:"validUpto,omitempty"`
}

// StudentFromRecord converts a parsed record into a Student.
func StudentFromRecord(rec core.Record) (Student, error) {
	if err := requireType(rec, core.Student, StudentSchema()); err != nil {
		return Student{}, err
	}
	return Student{
		PRN:                rec.Get("prn"),
		FullName:           rec.Get("fullName"),
		Branch:             rec.Get("branch"),
		YearOfStudy:        rec.Get("yearOfStudy"),
		Division:           rec.Get("division"),
		DateOfBirth:        optionalDate(rec, "dateOfBirth"),
		BloodGroup:         rec.Get("bloodGroup"),
		MobileNumber:       rec.Get("mobileNumber"),
		ParentMobileNumber: rec.Get("parentMobileNumber"),
		Address:            rec.Get("address"),
		ValidUpto:          optionalDate(rec, "validUpto"),
	}, nil
}

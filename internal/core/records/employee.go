package records

import (
	"time"

	"github.com/JonMunkholm/idcards/internal/core"
)

// EmployeeTypes are the accepted employeeType values.
var EmployeeTypes = []string{"FACULTY", "STAFF"}

// EmployeeSchema returns the employee import declaration, keyed by employee ID.
func EmployeeSchema() core.Schema {
	return core.Schema{
		Type:            core.Employee,
		Label:           "Employees",
		IdentifierField: "employeeId",
		Rules: []core.FieldRule{
			{Name: "fullName", Kind: core.KindString, Required: true},
			{Name: "employeeId", Kind: core.KindString, Required: true},
			{Name: "department", Kind: core.KindString},
			{Name: "designation", Kind: core.KindString},
			{Name: "employeeType", Kind: core.KindEnum, EnumValues: EmployeeTypes},
			{Name: "dateOfJoining", Kind: core.KindDate},
			{Name: "mobileNumber", Kind: core.KindPhone},
			{Name: "sevarthNo", Kind: core.KindString},
			{Name: "dateOfBirth", Kind: core.KindDate},
			{Name: "bloodGroup", Kind: core.KindEnum, EnumValues: BloodGroups},
			{Name: "email", Kind: core.KindString},
			{Name: "address", Kind: core.KindString},
		},
		RequiredHeaders: []string{"fullName", "employeeId", "department", "designation", "employeeType", "dateOfJoining"},
		RequiredFields:  []string{"employeeId", "fullName"},
		Examples: [][]string{
			{"Dr. Meera Joshi", "EMP1001", "Computer Engineering", "Professor", "FACULTY", "2012-07-01", "9876501234", "SEV0012345", "1978-09-14", "A+", "meera.joshi@example.edu", "21 Model Colony Pune"},
			{"Rahul Deshmukh", "EMP2040", "Administration", "Clerk", "STAFF", "2019-01-15", "9765432109", "", "1990-04-22", "O-", "rahul.deshmukh@example.edu", "7 Aundh Road Pune"},
		},
	}
}

// Employee is a parsed employee row.
type Employee struct {
	FullName      string     `json:"fullName" yaml:"fullName"`
	EmployeeID    string     `json:"employeeId" yaml:"employeeId"`
	Department    string     `json:"department" yaml:"department"`
	Designation   string     `json:"designation" yaml:"designation"`
	EmployeeType  string     `json:"employeeType" yaml:"employeeType"`
	DateOfJoining *time.Time `json:"dateOfJoining,omitempty" yaml:"dateOfJoining,omitempty"`
	MobileNumber  string     `json:"mobileNumber,omitempty" yaml:"mobileNumber,omitempty"`
	SevarthNo     string     `json:"sevarthNo,omitempty" yaml:"sevarthNo,omitempty"`
	DateOfBirth   *time.Time `json:"dateOfBirth,omitempty" yaml:"dateOfBirth,omitempty"`
	BloodGroup    string     `json:"bloodGroup,omitempty" yaml:"bloodGroup,omitempty"`
	Email         string     `json:"email,omitempty" yaml:"email,omitempty"`
	Address       string     `json:"address,omitempty" yaml:"address,omitempty"`
}

// EmployeeFromRecord converts a parsed record into an Employee.
func EmployeeFromRecord(rec core.Record) (Employee, error) {
	if err := requireType(rec, core.Employee, EmployeeSchema()); err != nil {
		return Employee{}, err
	}
	return Employee{
		FullName:      rec.Get("fullName"),
		EmployeeID:    rec.Get("employeeId"),
		Department:    rec.Get("department"),
		Designation:   rec.Get("designation"),
		EmployeeType:  rec.Get("employeeType"),
		DateOfJoining: optionalDate(rec, "dateOfJoining"),
		MobileNumber:  rec.Get("mobileNumber"),
		SevarthNo:     rec.Get("sevarthNo"),
		DateOfBirth:   optionalDate(rec, "dateOfBirth"),
		BloodGroup:    rec.Get("bloodGroup"),
		Email:         rec.Get("email"),
		Address:       rec.Get("address"),
	}, nil
}

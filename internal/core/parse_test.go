package core

import (
	"reflect"
	"strings"
	"testing"
)

// staffSchema mirrors the shape of a real record type without depending on
// the records package.
func staffSchema() Schema {
	return Schema{
		Type:            Employee,
		IdentifierField: "employeeId",
		Rules: []FieldRule{
			{Name: "fullName", Required: true},
			{Name: "employeeId", Required: true},
			{Name: "department"},
			{Name: "employeeType", Kind: KindEnum, EnumValues: []string{"FACULTY", "STAFF"}},
			{Name: "dateOfJoining", Kind: KindDate},
			{Name: "mobileNumber", Kind: KindPhone},
		},
		RequiredHeaders: []string{"fullName", "employeeId", "employeeType", "dateOfJoining"},
		RequiredFields:  []string{"employeeId", "fullName"},
	}
}

const staffHeader = "fullName,employeeId,department,employeeType,dateOfJoining,mobileNumber"

func parseStaff(t *testing.T, lines ...string) ImportResult {
	t.Helper()
	s := staffSchema()
	return Parse(strings.Join(lines, "\n"), s, s.RequiredHeaders)
}

func TestParse_ValidRows(t *testing.T) {
	res := parseStaff(t,
		staffHeader,
		`"Dr. Jane Doe","EMP001","CS","FACULTY","2020-08-15","9876543210"`,
		`Ravi Rao,EMP002,Admin,STAFF,08/15/2021,`,
	)

	if len(res.Errors) != 0 {
		t.Fatalf("unexpected errors: %v", res.Errors)
	}
	if len(res.Records) != 2 {
		t.Fatalf("got %d records, want 2", len(res.Records))
	}

	first := res.Records[0]
	if first.Row != 1 || first.Identifier != "EMP001" {
		t.Errorf("first record row/id = %d/%q, want 1/EMP001", first.Row, first.Identifier)
	}
	if got := first.Get("fullName"); got != "Dr. Jane Doe" {
		t.Errorf("fullName = %q", got)
	}
	if d, ok := first.Date("dateOfJoining"); !ok || d.Format(DateLayout) != "2020-08-15" {
		t.Errorf("dateOfJoining = %v, %v", d, ok)
	}

	second := res.Records[1]
	if got := second.Get("dateOfJoining"); got != "2021-08-15" {
		t.Errorf("month-first date = %q, want 2021-08-15", got)
	}
	if got := second.Get("mobileNumber"); got != "" {
		t.Errorf("empty phone = %q, want empty", got)
	}
	if res.Outcome() != OutcomeSuccess {
		t.Errorf("Outcome = %s, want success", res.Outcome())
	}
}

func TestParse_RowErrors(t *testing.T) {
	tests := []struct {
		name       string
		row        string
		wantFields []string // error fields in order
		wantKinds  []ErrorKind
		wantKept   bool
	}{
		{
			name:       "invalid enum and phone both reported",
			row:        `"John Smith","EMP002","Admin","CONTRACTOR","2021-02-01","12345"`,
			wantFields: []string{"employeeType", "mobileNumber"},
			wantKinds:  []ErrorKind{ErrorRow, ErrorField},
			wantKept:   false,
		},
		{
			name:       "enum is case sensitive",
			row:        "Asha,EMP003,CS,faculty,2021-02-01,",
			wantFields: []string{"employeeType"},
			wantKinds:  []ErrorKind{ErrorRow},
		},
		{
			name:       "impossible date",
			row:        "Asha,EMP003,CS,STAFF,2023-13-45,",
			wantFields: []string{"dateOfJoining"},
			wantKinds:  []ErrorKind{ErrorRow},
		},
		{
			name:       "nine digit phone clears field only",
			row:        "Asha,EMP003,CS,STAFF,2023-01-05,987654321",
			wantFields: []string{"mobileNumber"},
			wantKinds:  []ErrorKind{ErrorField},
			wantKept:   true,
		},
		{
			name:       "missing required identifier",
			row:        "Asha,,CS,STAFF,2023-01-05,",
			wantFields: []string{"employeeId"},
			wantKinds:  []ErrorKind{ErrorRow},
		},
		{
			name:       "short row treats missing cells as empty",
			row:        "Asha",
			wantFields: []string{"employeeId"},
			wantKinds:  []ErrorKind{ErrorRow},
		},
		{
			name:       "empty enum and date are not errors on their own",
			row:        "Asha,EMP004,,,,",
			wantFields: nil,
			wantKept:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := parseStaff(t, staffHeader, tt.row)

			if len(res.Errors) != len(tt.wantFields) {
				t.Fatalf("got %d errors %v, want fields %v", len(res.Errors), res.Errors, tt.wantFields)
			}
			for i, e := range res.Errors {
				if e.Field != tt.wantFields[i] {
					t.Errorf("error %d field = %q, want %q", i, e.Field, tt.wantFields[i])
				}
				if e.Kind != tt.wantKinds[i] {
					t.Errorf("error %d kind = %q, want %q", i, e.Kind, tt.wantKinds[i])
				}
				if e.Row != 1 {
					t.Errorf("error %d row = %d, want 1", i, e.Row)
				}
			}
			if kept := len(res.Records) == 1; kept != tt.wantKept {
				t.Errorf("record kept = %v, want %v", kept, tt.wantKept)
			}
		})
	}
}

func TestParse_ClearedPhoneRecordValue(t *testing.T) {
	res := parseStaff(t, staffHeader, "Asha,EMP003,CS,STAFF,2023-01-05,987654321")

	if len(res.Records) != 1 {
		t.Fatalf("got %d records, want 1", len(res.Records))
	}
	if got := res.Records[0].Get("mobileNumber"); got != "" {
		t.Errorf("mobileNumber = %q, want cleared", got)
	}
	if got := res.Errors[0].Value; got != "987654321" {
		t.Errorf("error value = %q, want original cell", got)
	}
	if res.Outcome() != OutcomePartial {
		t.Errorf("Outcome = %s, want partial", res.Outcome())
	}
}

func TestParse_ErrorIdentifierIsBestEffort(t *testing.T) {
	res := parseStaff(t, staffHeader, `"John Smith","EMP002","Admin","CONTRACTOR","2021-02-01",""`)

	if len(res.Errors) != 1 {
		t.Fatalf("got %d errors, want 1", len(res.Errors))
	}
	if got := res.Errors[0].Identifier; got != "EMP002" {
		t.Errorf("Identifier = %q, want EMP002", got)
	}
}

func TestParse_StructuralErrors(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		wantMessage string
	}{
		{
			name:        "empty input",
			input:       "",
			wantMessage: msgTooShort,
		},
		{
			name:        "header only",
			input:       staffHeader + "\n",
			wantMessage: msgTooShort,
		},
		{
			name:        "every missing header listed once",
			input:       "fullName,department\nAsha,CS",
			wantMessage: "missing required headers: employeeId, employeeType, dateOfJoining",
		},
		{
			name:        "headers are case sensitive",
			input:       "FullName,employeeId,employeeType,dateOfJoining\nAsha,E1,STAFF,2020-01-01",
			wantMessage: "missing required headers: fullName",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := staffSchema()
			res := Parse(tt.input, s, s.RequiredHeaders)

			if len(res.Records) != 0 {
				t.Errorf("got %d records, want 0", len(res.Records))
			}
			if len(res.Errors) != 1 {
				t.Fatalf("got %d errors, want exactly 1: %v", len(res.Errors), res.Errors)
			}
			e := res.Errors[0]
			if e.Kind != ErrorStructural {
				t.Errorf("Kind = %q, want structural", e.Kind)
			}
			if e.Message != tt.wantMessage {
				t.Errorf("Message = %q, want %q", e.Message, tt.wantMessage)
			}
			if res.Outcome() != OutcomeFailed {
				t.Errorf("Outcome = %s, want failed", res.Outcome())
			}
		})
	}
}

func TestParse_BlankLinesDoNotShiftRows(t *testing.T) {
	rows := []string{
		"Asha,EMP001,CS,STAFF,2023-01-05,",
		"Ravi,EMP002,CS,BOGUS,2023-01-05,",
	}

	dense := parseStaff(t, staffHeader, rows[0], rows[1])
	sparse := parseStaff(t, staffHeader, "", rows[0], "   ", "", rows[1], "")

	if !reflect.DeepEqual(dense, sparse) {
		t.Errorf("blank lines changed the result:\n dense=%+v\nsparse=%+v", dense, sparse)
	}
	if len(sparse.Errors) != 1 || sparse.Errors[0].Row != 2 {
		t.Errorf("errors = %v, want one error on row 2", sparse.Errors)
	}
}

func TestParse_Idempotent(t *testing.T) {
	s := staffSchema()
	input := strings.Join([]string{
		staffHeader,
		`"Dr. Jane Doe","EMP001","CS","FACULTY","2020-08-15","9876543210"`,
		`"John Smith","EMP002","Admin","CONTRACTOR","2021-02-01","12345"`,
		"Asha,EMP003,CS,STAFF,2023-01-05,987654321",
	}, "\r\n")

	first := Parse(input, s, s.RequiredHeaders)
	second := Parse(input, s, s.RequiredHeaders)

	if !reflect.DeepEqual(first, second) {
		t.Error("parsing the same input twice gave different results")
	}
}

func TestParse_ExtraColumnsKeptAsText(t *testing.T) {
	res := parseStaff(t,
		staffHeader+",remarks",
		"Asha,EMP001,CS,STAFF,2023-01-05,,on leave",
	)

	if len(res.Records) != 1 {
		t.Fatalf("got %d records, want 1", len(res.Records))
	}
	if got := res.Records[0].Get("remarks"); got != "on leave" {
		t.Errorf("remarks = %q, want %q", got, "on leave")
	}
}

func TestParseWith_QuotedFields(t *testing.T) {
	s := staffSchema()
	input := staffHeader + "\n" + `Asha,EMP001,"Computer, IT",STAFF,2023-01-05,`

	naive := Parse(input, s, s.RequiredHeaders)
	quoted := ParseWith(input, s, s.RequiredHeaders, ParseOptions{QuotedFields: true})

	// The naive split shifts every later cell one column right.
	if len(naive.Records) != 0 {
		t.Errorf("naive parse kept %d records, want 0", len(naive.Records))
	}
	if len(quoted.Records) != 1 {
		t.Fatalf("quoted parse kept %d records, want 1: %v", len(quoted.Records), quoted.Errors)
	}
	if got := quoted.Records[0].Get("department"); got != "Computer, IT" {
		t.Errorf("department = %q", got)
	}
}

func TestParse_RepeatedHeaderKeepsFirstColumn(t *testing.T) {
	s := staffSchema()
	s.RequiredHeaders = []string{"fullName", "employeeId"}

	res := Parse("fullName,employeeId,employeeId\nA,E1,", s, s.RequiredHeaders)
	if len(res.Errors) != 0 {
		t.Fatalf("unexpected errors: %v", res.Errors)
	}
	if len(res.Records) != 1 {
		t.Fatalf("got %d records, want 1", len(res.Records))
	}
	if got := res.Records[0].Identifier; got != "E1" {
		t.Errorf("Identifier = %q, want E1", got)
	}
	if got := res.Records[0].Get("employeeId"); got != "E1" {
		t.Errorf("employeeId = %q, want E1", got)
	}
}

func TestImportResult_Summary(t *testing.T) {
	res := parseStaff(t,
		staffHeader,
		"Asha,EMP001,CS,STAFF,2023-01-05,123",
		"Ravi,EMP002,CS,BOGUS,2023-13-45,",
		"Mira,EMP003,CS,STAFF,2023-01-05,",
	)

	sum := res.Summary()
	if sum.Ready != 2 || sum.SkippedRows != 1 || sum.ClearedFields != 1 {
		t.Errorf("Summary = %+v", sum)
	}
	if got := sum.String(); got != "2 records ready, 1 rows skipped, 1 fields cleared" {
		t.Errorf("String() = %q", got)
	}
}

func TestImportResult_SummaryIgnoresFieldErrorsOnDroppedRows(t *testing.T) {
	res := parseStaff(t,
		staffHeader,
		`"John Smith","EMP002","Admin","CONTRACTOR","2021-02-01","12345"`,
	)

	sum := res.Summary()
	if sum.Ready != 0 || sum.SkippedRows != 1 || sum.ClearedFields != 0 {
		t.Errorf("Summary = %+v, errors %v", sum, res.Errors)
	}
}

func TestValidateObjects(t *testing.T) {
	s := staffSchema()
	res := ValidateObjects(s, []map[string]string{
		{"fullName": " Asha ", "employeeId": "EMP001", "employeeType": "STAFF", "dateOfJoining": "2023-01-05"},
		{"fullName": "Ravi", "employeeType": "STAFF"},
	})

	if len(res.Records) != 1 {
		t.Fatalf("got %d records, want 1", len(res.Records))
	}
	if got := res.Records[0].Get("fullName"); got != "Asha" {
		t.Errorf("fullName = %q, want trimmed", got)
	}
	if len(res.Errors) != 1 || res.Errors[0].Row != 2 || res.Errors[0].Field != "employeeId" {
		t.Errorf("errors = %v, want missing employeeId on row 2", res.Errors)
	}
}

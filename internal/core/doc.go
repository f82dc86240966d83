// Package core provides the business logic for bulk student and employee imports.
//
// This package contains the import pipeline and the registration service,
// independent of any UI or transport layer. It is used by the web handlers,
// the idcardctl CLI and the tests without modification.
//
// # Architecture
//
// The package is organized around a few key concepts:
//
//   - Schemas: Registered per [RecordType] via the registry. Each [Schema]
//     carries its ordered field rules, required headers, required fields and
//     identifying field.
//   - Parsing: [Parse] turns CSV text into an [ImportResult] of typed records
//     plus per-row errors. It is a pure function with no I/O.
//   - Service: [Service] wraps parsing with size limits, input sanitizing,
//     concurrency limits and preview sessions, and registers parsed records
//     through a [Store].
//
// # Schema Registry
//
// Schemas are registered at init time using [Register]:
//
//	core.Register(core.Schema{
//	    Type:            core.Employee,
//	    IdentifierField: "employeeId",
//	    Rules: []core.FieldRule{
//	        {Name: "employeeId", Required: true},
//	        {Name: "dateOfJoining", Kind: core.KindDate},
//	    },
//	    RequiredHeaders: []string{"employeeId", "dateOfJoining"},
//	})
//
// # Error Handling
//
// Parsing never fails as a Go error. Problems are reported inside the result
// with one of three kinds:
//
//   - structural: the file cannot be used at all (too short, missing headers)
//   - row: the row is dropped (bad date, bad enum value, missing field)
//   - field: the field is cleared and the row is kept (bad phone number)
//
// Service level failures (file too large, busy, unknown import) are returned
// as errors and mapped to user-facing text with [MapError].
package core

package core

import "errors"

// Sentinel errors returned by the service. Match them with errors.Is.
var (
	// ErrUnknownRecordType is returned for a record type outside the closed set.
	ErrUnknownRecordType = errors.New("unknown record type")

	// ErrImportNotFound is returned when a preview session expired or never existed.
	ErrImportNotFound = errors.New("import not found")

	// ErrImportCommitted is returned when a preview session is committed twice.
	ErrImportCommitted = errors.New("import already committed")

	// ErrFileTooLarge is returned when an upload exceeds the configured limit.
	ErrFileTooLarge = errors.New("file too large")

	// ErrEmptyFile is returned when an upload carries no bytes.
	ErrEmptyFile = errors.New("empty file")
)

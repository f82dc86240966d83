package core

// error_messages.go maps technical errors to messages an administrator can act on.
//
// Every message carries a code that can be quoted to support:
//
//	IMP001-IMP099  import structure (empty file, missing headers)
//	VAL001-VAL099  cell validation (dates, enum values, phones)
//	REG001-REG099  registration (duplicates, unknown record type)
//	FILE001-FILE099 upload handling (size, encoding, no file)
//	UPL001-UPL099  import sessions and request lifecycle
//	REQ001-REQ099  JSON API request bodies
//	DB001-DB099    storage connectivity and constraints
//	ERR000         fallback; check the logs for the original error
//
// Sentinel errors are matched with errors.Is first. Anything else is matched
// case-insensitively by substring, first match wins, so specific patterns
// come before general ones.

import (
	"errors"
	"fmt"
	"strings"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string `json:"message"` // What happened
	Action  string `json:"action"`  // What to do about it
	Code    string `json:"code"`    // Support reference
}

var (
	msgUnknownType = UserMessage{
		Message: "Unknown record type",
		Action:  "Choose student or employee",
		Code:    "REG002",
	}
	msgNotFound = UserMessage{
		Message: "Import session not found",
		Action:  "The preview may have expired. Please upload the file again",
		Code:    "UPL003",
	}
	msgCommitted = UserMessage{
		Message: "This import was already registered",
		Action:  "Upload the file again to start a new import",
		Code:    "UPL006",
	}
	msgTooLarge = UserMessage{
		Message: "File exceeds the maximum upload size",
		Action:  "Split the file into smaller files",
		Code:    "FILE001",
	}
	msgEmpty = UserMessage{
		Message: "The uploaded file is empty",
		Action:  "Please upload a CSV file with a header and data rows",
		Code:    "FILE005",
	}
	msgBusy = UserMessage{
		Message: "System is busy processing other imports",
		Action:  "Please wait a moment and try again",
		Code:    "UPL002",
	}
)

// sentinelMessages are checked with errors.Is before pattern matching.
var sentinelMessages = []struct {
	err error
	msg UserMessage
}{
	{ErrUnknownRecordType, msgUnknownType},
	{ErrImportNotFound, msgNotFound},
	{ErrImportCommitted, msgCommitted},
	{ErrFileTooLarge, msgTooLarge},
	{ErrEmptyFile, msgEmpty},
	{ErrTooManyImports, msgBusy},
}

type errorPattern struct {
	pattern string
	msg     UserMessage
}

var errorPatterns = []errorPattern{
	// Import structure
	{
		pattern: "at least one data row",
		msg: UserMessage{
			Message: "The file has no data rows",
			Action:  "Add at least one row below the header line",
			Code:    "IMP001",
		},
	},
	{
		pattern: "missing required headers",
		msg: UserMessage{
			Message: "Required columns are missing from the CSV",
			Action:  "Download the template and match its header line exactly",
			Code:    "IMP002",
		},
	},

	// Cell validation
	{
		pattern: "invalid date",
		msg: UserMessage{
			Message: "Invalid date format detected",
			Action:  "Use YYYY-MM-DD, MM/DD/YYYY or DD/MM/YYYY",
			Code:    "VAL001",
		},
	},
	{
		pattern: "invalid enum",
		msg: UserMessage{
			Message: "Value is not in the allowed list",
			Action:  "Check the allowed values for this column; they are case-sensitive",
			Code:    "VAL002",
		},
	},
	{
		pattern: "invalid phone",
		msg: UserMessage{
			Message: "Phone number is not exactly 10 digits",
			Action:  "Remove spaces, dashes and country codes",
			Code:    "VAL003",
		},
	},
	{
		pattern: "missing required field",
		msg: UserMessage{
			Message: "Required field is empty",
			Action:  "Ensure every required column has a value",
			Code:    "VAL004",
		},
	},

	// Registration
	{
		pattern: "already registered",
		msg: UserMessage{
			Message: "A record with this identifier already exists",
			Action:  "Remove the row or correct its identifier",
			Code:    "REG001",
		},
	},
	{
		pattern: "duplicate identifier",
		msg: UserMessage{
			Message: "The same identifier appears more than once in the file",
			Action:  "Keep only one row per identifier",
			Code:    "REG003",
		},
	},

	// Upload handling
	{
		pattern: "encoding error",
		msg: UserMessage{
			Message: "File contains invalid characters",
			Action:  "Save the file as UTF-8",
			Code:    "FILE003",
		},
	},
	{
		pattern: "no file provided",
		msg: UserMessage{
			Message: "No file was selected",
			Action:  "Please select a CSV file to upload",
			Code:    "FILE004",
		},
	},

	// API requests
	{
		pattern: "invalid request body",
		msg: UserMessage{
			Message: "Request body is not valid JSON",
			Action:  `Send {"records": [{"field": "value"}]}`,
			Code:    "REQ001",
		},
	},
	{
		pattern: "field validation for",
		msg: UserMessage{
			Message: "Request is missing required data",
			Action:  "Check the details and resend the request",
			Code:    "REQ002",
		},
	},

	// Storage
	{
		pattern: "duplicate key",
		msg: UserMessage{
			Message: "A record with this identifier already exists",
			Action:  "Another import registered it first; preview the file again",
			Code:    "DB001",
		},
	},
	{
		pattern: "connection refused",
		msg: UserMessage{
			Message: "Unable to connect to the database",
			Action:  "Please try again in a few moments",
			Code:    "DB004",
		},
	},
	{
		pattern: "connection reset",
		msg: UserMessage{
			Message: "Database connection was interrupted",
			Action:  "Please try again",
			Code:    "DB005",
		},
	},

	// Request lifecycle
	{
		pattern: "context canceled",
		msg: UserMessage{
			Message: "Request was cancelled",
			Action:  "Please try again",
			Code:    "UPL004",
		},
	},
	{
		pattern: "context deadline exceeded",
		msg: UserMessage{
			Message: "Request timed out",
			Action:  "Try a smaller file or check your connection",
			Code:    "UPL005",
		},
	},
	{
		pattern: "timeout",
		msg: UserMessage{
			Message: "Operation timed out",
			Action:  "Try a smaller file or try again later",
			Code:    "DB006",
		},
	},
	{
		pattern: "rate limit",
		msg: UserMessage{
			Message: "Too many requests",
			Action:  "Please wait a moment before trying again",
			Code:    "RATE001",
		},
	},
}

var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts an error to a user-facing message.
// Returns the zero UserMessage for nil and ERR000 when nothing matches.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	for _, s := range sentinelMessages {
		if errors.Is(err, s.err) {
			return s.msg
		}
	}

	errStr := strings.ToLower(err.Error())
	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}

	return defaultMessage
}

// FormatUserError renders "Message (Code: XXX). Action".
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether err maps to something other than ERR000.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}

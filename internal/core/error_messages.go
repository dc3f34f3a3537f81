package core

// error_messages.go maps technical errors to operator messages with a code
// support staff can look up.
//
// # Storage Errors (DB001-DB007)
//
//	DB001 - Duplicate key: An item with this identifier already exists
//	DB002 - Unique constraint: This value must be unique but already exists
//	DB003 - Foreign key: Referenced item does not exist
//	DB004 - Connection refused: Unable to connect to the host database
//	DB005 - Connection reset: Database connection was interrupted
//	DB006 - Timeout: Operation timed out
//	DB007 - Deadlock: Database was busy with conflicting operations
//
// # Validation Errors (VAL001-VAL004)
//
//	VAL001 - Mandatory field: A mandatory field is empty
//	VAL002 - Too long: A value is longer than its field allows
//	VAL003 - Invalid value: A value does not match the field format
//	VAL004 - Missing id: An update row has no id
//
// # File Errors (FILE001-FILE005)
//
//	FILE001 - File too large: The upload exceeds the request size limit
//	FILE002 - Invalid CSV: The file could not be parsed as CSV
//	FILE003 - Encoding error: The file charset is not supported
//	FILE004 - No file: No file was selected
//	FILE005 - Bad delimiter: The delimiter is not a single character
//
// # Import Errors (IMP001-IMP006)
//
//	IMP001 - System busy: Another import is running
//	IMP002 - Request cancelled: The request was cancelled
//	IMP003 - Request timeout: The import took too long
//	IMP004 - Not implemented: The plan pipeline is not available yet
//	IMP005 - Permission denied: The profile lacks a right
//	IMP006 - Form expired: The form token is missing or invalid
//
// # Rate Limiting (RATE001)
//
//	RATE001 - Rate limited: Too many requests
//
// # Default Error (ERR000)
//
// Fallback when nothing matches. Check the application logs, every import
// logs its import_id.
//
// Sentinel errors are matched first with errors.Is. Other errors are matched
// case-insensitively on their text; the first matching pattern wins.

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/JonMunkholm/etl/internal/apierror"
)

// UserMessage provides operator-facing error information with guidance.
type UserMessage struct {
	Message string // What happened
	Action  string // What to do about it
	Code    string // Support reference
}

type sentinelMessage struct {
	err error
	msg UserMessage
}

var sentinelMessages = []sentinelMessage{
	{ErrTooManyImports, UserMessage{
		Message: "Another import is in progress",
		Action:  "Please wait a moment and try again",
		Code:    "IMP001",
	}},
	{context.Canceled, UserMessage{
		Message: "Request was cancelled",
		Action:  "Please try again",
		Code:    "IMP002",
	}},
	{context.DeadlineExceeded, UserMessage{
		Message: "The import took too long",
		Action:  "Split the file into smaller parts and import them one at a time",
		Code:    "IMP003",
	}},
	{apierror.ErrNotImplemented, UserMessage{
		Message: "Import plans are not available yet",
		Action:  "Choose an item type and use the simple CSV import",
		Code:    "IMP004",
	}},
}

type errorPattern struct {
	pattern string
	msg     UserMessage
}

// errorPatterns are matched in order; keep specific patterns first.
var errorPatterns = []errorPattern{
	// Storage
	{"duplicate key", UserMessage{
		Message: "An item with this identifier already exists",
		Action:  "Put the existing id in the row to update the item instead",
		Code:    "DB001",
	}},
	{"unique constraint", UserMessage{
		Message: "This value must be unique but already exists",
		Action:  "Check for duplicate entries in your CSV",
		Code:    "DB002",
	}},
	{"violates unique", UserMessage{
		Message: "A duplicate value was found",
		Action:  "Review your data for duplicate values",
		Code:    "DB002",
	}},
	{"foreign key", UserMessage{
		Message: "Referenced item does not exist",
		Action:  "Import the referenced items first",
		Code:    "DB003",
	}},
	{"connection refused", UserMessage{
		Message: "Unable to connect to the host database",
		Action:  "Please try again in a few moments",
		Code:    "DB004",
	}},
	{"connection reset", UserMessage{
		Message: "Database connection was interrupted",
		Action:  "Please try again",
		Code:    "DB005",
	}},
	{"deadlock", UserMessage{
		Message: "Database was busy with conflicting operations",
		Action:  "Please try again",
		Code:    "DB007",
	}},

	// Validation
	{"mandatory field", UserMessage{
		Message: "A mandatory field is empty",
		Action:  "Fill the mandatory columns for every row",
		Code:    "VAL001",
	}},
	{"is too long", UserMessage{
		Message: "A value is longer than its field allows",
		Action:  "Shorten the values reported in the error list",
		Code:    "VAL002",
	}},
	{"invalid value for field", UserMessage{
		Message: "A value does not match the field format",
		Action:  "Check the format of the values reported in the error list",
		Code:    "VAL003",
	}},
	{"missing property id", UserMessage{
		Message: "An update row has no id",
		Action:  "Add the id column, or leave it empty to create items",
		Code:    "VAL004",
	}},

	// Files
	{"request body too large", UserMessage{
		Message: "The file is too large",
		Action:  "Split the file into smaller parts",
		Code:    "FILE001",
	}},
	{"file too large", UserMessage{
		Message: "The file is too large",
		Action:  "Split the file into smaller parts",
		Code:    "FILE001",
	}},
	{"invalid csv delimiter", UserMessage{
		Message: "The delimiter must be a single character",
		Action:  "Use the delimiter your spreadsheet exported with, usually , or ;",
		Code:    "FILE005",
	}},
	{"invalid csv", UserMessage{
		Message: "The file is not a valid CSV",
		Action:  "Check the delimiter and that quoted values are closed",
		Code:    "FILE002",
	}},
	{"encoding error", UserMessage{
		Message: "The file charset is not supported",
		Action:  "Save the file as UTF-8",
		Code:    "FILE003",
	}},
	{"no file provided", UserMessage{
		Message: "No file was selected",
		Action:  "Please select a CSV file to import",
		Code:    "FILE004",
	}},

	// Import
	{"invalid form token", UserMessage{
		Message: "The form has expired",
		Action:  "Reload the page and submit the file again",
		Code:    "IMP006",
	}},
	{"permission", UserMessage{
		Message: "Your profile is not allowed to do this",
		Action:  "Ask an administrator for the right",
		Code:    "IMP005",
	}},
	{"timeout", UserMessage{
		Message: "Operation timed out",
		Action:  "Try a smaller file or try again later",
		Code:    "DB006",
	}},

	{"rate limit", UserMessage{
		Message: "Too many requests",
		Action:  "Please wait a moment before trying again",
		Code:    "RATE001",
	}},
}

// defaultMessage is returned when nothing matches (ERR000).
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error to an operator message.
//
// Example:
//
//	msg := MapError(ErrTooManyImports)
//	// msg.Code == "IMP001"
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

// IsUserFacing reports whether err maps to a specific message rather than ERR000.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}

// UserError carries a technical error with the operator message it maps to.
type UserError struct {
	Err error
	Msg UserMessage
}

// NewUserError wraps err with its mapped message. A nil err stays nil.
func NewUserError(err error) *UserError {
	if err == nil {
		return nil
	}
	return &UserError{Err: err, Msg: MapError(err)}
}

func (e *UserError) Error() string { return e.Msg.Message }

func (e *UserError) Unwrap() error { return e.Err }

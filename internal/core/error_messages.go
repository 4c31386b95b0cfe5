// Package core provides the business logic of the catalog API.
//
// # Error Codes Reference
//
// This file maps technical errors to user-friendly messages with codes for
// support reference. Clients receive the code in error responses and can
// quote it to support staff.
//
// # Database Errors (DB001-DB099)
//
//	DB001 - Duplicate record: A record with this value already exists
//	        Patterns: "duplicate key", "duplicate record", "unique constraint", "violates unique"
//
//	DB003 - Foreign key: Referenced record does not exist
//	        Patterns: "foreign key"
//
//	DB004 - Connection refused: Unable to connect to database
//	        Patterns: "connection refused"
//
//	DB005 - Connection reset: Database connection was interrupted
//	        Patterns: "connection reset", "broken pipe", "unexpected eof"
//
//	DB006 - Timeout: Operation timed out
//	        Patterns: "timeout", "deadline exceeded"
//
//	DB007 - Deadlock: Database was busy with conflicting operations
//	        Patterns: "deadlock"
//
//	DB008 - Pool exhausted: Database is at connection capacity
//	        Patterns: "too many clients", "too many connections"
//
// # Validation Errors (VAL001-VAL099)
//
//	VAL001 - Invalid input: Request data failed validation
//	         Patterns: "invalid input", "invalid company data", "invalid user data", "invalid product data"
//
//	VAL002 - Malformed body: Request body is not valid JSON
//	         Patterns: "malformed json", "cannot unmarshal"
//
//	VAL003 - Body too large: Request body exceeds the size limit
//	         Patterns: "request body too large"
//
// # Authentication Errors (AUTH001-AUTH099)
//
//	AUTH001 - Invalid credentials: Username, email or password is wrong
//	          Patterns: "invalid credentials"
//
//	AUTH002 - API key: Missing or invalid API key
//	          Patterns: "api key"
//
// # Export Errors (EXP001-EXP099)
//
//	EXP001 - System busy: Too many exports in progress
//	         Patterns: "too many concurrent exports"
//
//	EXP002 - Request cancelled: The client closed the connection
//	         Patterns: "context canceled"
//
// # Rate Limiting (RATE001-RATE099)
//
//	RATE001 - Rate limited: Too many requests
//	          Patterns: "rate limit"
//
// # Default Error (ERR000)
//
//	ERR000 - Unknown error: An unexpected error occurred
//
// Patterns are matched case-insensitively with strings.Contains and the
// first match wins, so specific patterns come before general ones.
package core

import (
	"fmt"
	"strings"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string // What happened (user-friendly)
	Action  string // What to do about it
	Code    string // Error code for support reference
}

type errorPattern struct {
	pattern string
	msg     UserMessage
}

var (
	msgDuplicate = UserMessage{
		Message: "A record with this value already exists",
		Action:  "Use a different value or update the existing record",
		Code:    "DB001",
	}
	msgTimeout = UserMessage{
		Message: "Operation timed out",
		Action:  "Narrow the request or try again later",
		Code:    "DB006",
	}
	msgInvalidInput = UserMessage{
		Message: "Request data failed validation",
		Action:  "Correct the listed fields and resend",
		Code:    "VAL001",
	}
	msgMalformed = UserMessage{
		Message: "Request body is not valid JSON",
		Action:  "Send a JSON object matching the documented fields",
		Code:    "VAL002",
	}
	msgReset = UserMessage{
		Message: "Database connection was interrupted",
		Action:  "Please try again",
		Code:    "DB005",
	}
)

// errorPatterns maps technical error patterns (case-insensitive) to user messages.
var errorPatterns = []errorPattern{
	// Constraints
	{pattern: "duplicate key", msg: msgDuplicate},
	{pattern: "duplicate record", msg: msgDuplicate},
	{pattern: "unique constraint", msg: msgDuplicate},
	{pattern: "violates unique", msg: msgDuplicate},
	{pattern: "foreign key", msg: UserMessage{
		Message: "Referenced record does not exist",
		Action:  "Check that the referenced company exists",
		Code:    "DB003",
	}},

	// Connectivity
	{pattern: "connection refused", msg: UserMessage{
		Message: "Unable to connect to database",
		Action:  "Please try again in a few moments",
		Code:    "DB004",
	}},
	{pattern: "connection reset", msg: msgReset},
	{pattern: "broken pipe", msg: msgReset},
	{pattern: "unexpected eof", msg: msgReset},
	{pattern: "too many clients", msg: UserMessage{
		Message: "Database is at connection capacity",
		Action:  "Please try again in a few moments",
		Code:    "DB008",
	}},
	{pattern: "too many connections", msg: UserMessage{
		Message: "Database is at connection capacity",
		Action:  "Please try again in a few moments",
		Code:    "DB008",
	}},
	{pattern: "deadlock", msg: UserMessage{
		Message: "Database was busy with conflicting operations",
		Action:  "Please try again",
		Code:    "DB007",
	}},

	// Export (before the generic timeout patterns)
	{pattern: "too many concurrent exports", msg: UserMessage{
		Message: "Too many exports in progress",
		Action:  "Please wait a moment and try again",
		Code:    "EXP001",
	}},
	{pattern: "context canceled", msg: UserMessage{
		Message: "Request was cancelled",
		Action:  "Please try again",
		Code:    "EXP002",
	}},
	{pattern: "deadline exceeded", msg: msgTimeout},
	{pattern: "timeout", msg: msgTimeout},

	// Validation
	{pattern: "invalid input", msg: msgInvalidInput},
	{pattern: "invalid company data", msg: msgInvalidInput},
	{pattern: "invalid user data", msg: msgInvalidInput},
	{pattern: "invalid product data", msg: msgInvalidInput},
	{pattern: "malformed json", msg: msgMalformed},
	{pattern: "cannot unmarshal", msg: msgMalformed},
	{pattern: "request body too large", msg: UserMessage{
		Message: "Request body exceeds the size limit",
		Action:  "Send a smaller request",
		Code:    "VAL003",
	}},

	// Authentication
	{pattern: "invalid credentials", msg: UserMessage{
		Message: "Invalid credentials",
		Action:  "Check the username or email and password",
		Code:    "AUTH001",
	}},
	{pattern: "api key", msg: UserMessage{
		Message: "Missing or invalid API key",
		Action:  "Send a valid key in the X-API-Key header",
		Code:    "AUTH002",
	}},

	// Rate limiting
	{pattern: "rate limit", msg: UserMessage{
		Message: "Too many requests",
		Action:  "Please wait a moment before trying again",
		Code:    "RATE001",
	}},
}

// defaultMessage is returned when no pattern matches (ERR000).
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message.
// It searches through known error patterns (case-insensitive) and returns
// the first match. If no pattern matches, a generic fallback message with
// code ERR000 is returned.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	errStr := strings.ToLower(err.Error())

	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}

	return defaultMessage
}

// FormatUserError creates a formatted error string for display.
// The format is: "Message (Code: XXX). Action"
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing checks if an error matches a known pattern and should be shown to users.
// Returns true if the error matches a specific pattern (not the generic ERR000 fallback).
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}

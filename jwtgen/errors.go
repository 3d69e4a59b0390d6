package jwtgen

import (
	"errors"
	"fmt"
)

// ErrorCode represents an issuance error code
type ErrorCode string

const (
	ErrMalformedClaim    ErrorCode = "MALFORMED_CLAIM"
	ErrReservedClaim     ErrorCode = "RESERVED_CLAIM"
	ErrTimeOverflow      ErrorCode = "TIME_OVERFLOW"
	ErrInvalidKey        ErrorCode = "INVALID_KEY"
	ErrClock             ErrorCode = "CLOCK_ERROR"
	ErrInvalidExpiration ErrorCode = "INVALID_EXPIRATION"
	ErrInvalidBundle     ErrorCode = "INVALID_BUNDLE"
	ErrEncoding          ErrorCode = "ENCODING_ERROR"
	ErrConfigError       ErrorCode = "CONFIG_ERROR"
	errorCodeUnknown     ErrorCode = "UNKNOWN"
)

// IssueError represents a token construction failure with a code and message.
// Messages never carry key material.
type IssueError struct {
	Code     ErrorCode
	Message  string
	Internal error
}

// Error implements the error interface
func (e *IssueError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap implements the error unwrapping interface
func (e *IssueError) Unwrap() error {
	return e.Internal
}

// NewIssueError creates a new issuance error
func NewIssueError(code ErrorCode, message string, internal error) *IssueError {
	return &IssueError{
		Code:     code,
		Message:  message,
		Internal: internal,
	}
}

// CodeOf returns the code of the first IssueError in err's chain, or UNKNOWN.
func CodeOf(err error) ErrorCode {
	var issueErr *IssueError
	if errors.As(err, &issueErr) {
		return issueErr.Code
	}
	return errorCodeUnknown
}

// IsCode reports whether err carries the given code.
func IsCode(err error, code ErrorCode) bool {
	return err != nil && CodeOf(err) == code
}

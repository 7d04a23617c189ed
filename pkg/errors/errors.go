package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorType represents the failure classes of the discovery pipeline
type ErrorType string

const (
	ErrorTypeTransport  ErrorType = "transport"
	ErrorTypeParse      ErrorType = "parse"
	ErrorTypeAutomation ErrorType = "automation"
	ErrorTypeExhaustion ErrorType = "exhaustion"
	ErrorTypeResource   ErrorType = "resource"
	ErrorTypeUnknown    ErrorType = "unknown"
)

// Error carries a failure class alongside the underlying cause
type Error struct {
	Type    ErrorType
	Message string
	Code    int
	Err     error
}

func (e *Error) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("%s error (code %d): %s", e.Type, e.Code, e.Message)
	}
	return fmt.Sprintf("%s error: %s", e.Type, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Transport builds a transport error. code is the HTTP status, 0 for network failures.
func Transport(code int, err error, format string, args ...interface{}) *Error {
	return &Error{Type: ErrorTypeTransport, Code: code, Err: err, Message: fmt.Sprintf(format, args...)}
}

// Parse builds a parse error
func Parse(err error, format string, args ...interface{}) *Error {
	return &Error{Type: ErrorTypeParse, Err: err, Message: fmt.Sprintf(format, args...)}
}

// Automation builds a browser automation error
func Automation(err error, format string, args ...interface{}) *Error {
	return &Error{Type: ErrorTypeAutomation, Err: err, Message: fmt.Sprintf(format, args...)}
}

// Resource builds a resource acquisition error
func Resource(err error, format string, args ...interface{}) *Error {
	return &Error{Type: ErrorTypeResource, Err: err, Message: fmt.Sprintf(format, args...)}
}

// TypeOf returns the ErrorType of err, or ErrorTypeUnknown when err is not an *Error
func TypeOf(err error) ErrorType {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Type
	}
	return ErrorTypeUnknown
}

// IsRetryable checks if an error type should be retried at the page level
func IsRetryable(errorType ErrorType) bool {
	switch errorType {
	case ErrorTypeTransport:
		return true
	case ErrorTypeParse, ErrorTypeAutomation, ErrorTypeExhaustion, ErrorTypeResource:
		return false
	default:
		return false
	}
}

// internal/core/errors.go
package core

import "fmt"

// Error represents a structured error with code and optional cause.
type Error struct {
	Code    string
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As support.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is implements errors.Is matching by code.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Code == t.Code
	}
	return false
}

// WrapError creates a new error with the same code but with a cause.
func WrapError(base *Error, cause error) *Error {
	return &Error{
		Code:    base.Code,
		Message: base.Message,
		Cause:   cause,
	}
}

// Predefined errors
var (
	// Config errors
	ErrConfigInvalid = &Error{Code: "CONFIG_INVALID", Message: "configuration invalid"}
	ErrConfigMissing = &Error{Code: "CONFIG_MISSING", Message: "required configuration missing"}

	// Key lifecycle errors
	ErrKeyUnresolved = &Error{Code: "KEY_UNRESOLVED", Message: "authentication required but no API key could be resolved"}

	// Secret store errors
	ErrSecretNotFound = &Error{Code: "SECRET_NOT_FOUND", Message: "secret not found"}
	ErrSecretStore    = &Error{Code: "SECRET_STORE_FAILED", Message: "secret store operation failed"}

	// Request errors
	ErrUnauthorized = &Error{
		Code:    "UNAUTHORIZED",
		Message: "invalid or missing API key, supply Authorization: Bearer <key> or X-API-Key header",
	}
	ErrSessionRequired = &Error{Code: "SESSION_REQUIRED", Message: "session_id query parameter is required"}
	ErrSessionNotFound = &Error{Code: "SESSION_NOT_FOUND", Message: "no open stream for this session"}
	ErrNotImplemented  = &Error{Code: "NOT_IMPLEMENTED", Message: "message handling is not available on this server"}
)

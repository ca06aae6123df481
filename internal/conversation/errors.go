package conversation

import (
	"errors"
	"fmt"
)

// ErrorCode classifies failures so transport layers can map them to
// HTTP statuses without inspecting error text.
type ErrorCode string

const (
	// ErrorValidation marks malformed or incomplete client input.
	ErrorValidation ErrorCode = "VALIDATION"
	// ErrorDependency marks a failed call to an external collaborator.
	ErrorDependency ErrorCode = "DEPENDENCY"
	// ErrorStore marks a persistence failure.
	ErrorStore ErrorCode = "STORE"
	// ErrorNotFound marks a lookup miss.
	ErrorNotFound ErrorCode = "NOT_FOUND"
	// ErrorBusy marks a saturated dispatch queue.
	ErrorBusy ErrorCode = "BUSY"
	// ErrorInternal marks unexpected internal failures.
	ErrorInternal ErrorCode = "INTERNAL"
)

// Error carries a machine-readable code alongside the underlying cause.
// Reason is a short human-readable description safe to return to
// clients.
type Error struct {
	Code   ErrorCode
	Reason string
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("conversation: %s (%s): %v", e.Reason, e.Code, e.Err)
	}
	return fmt.Sprintf("conversation: %s (%s)", e.Reason, e.Code)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewError builds a coded error wrapping err, which may be nil.
func NewError(code ErrorCode, reason string, err error) *Error {
	return &Error{Code: code, Reason: reason, Err: err}
}

// CodeOf extracts the ErrorCode from err, or ErrorInternal when err
// carries no code.
func CodeOf(err error) ErrorCode {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Code
	}
	return ErrorInternal
}

// ReasonOf extracts the client-safe reason from err, or the empty
// string when err carries none.
func ReasonOf(err error) string {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Reason
	}
	return ""
}

// IsValidation reports whether err is a validation failure.
func IsValidation(err error) bool {
	return CodeOf(err) == ErrorValidation
}

// IsBusy reports whether err signals a saturated dispatch queue.
func IsBusy(err error) bool {
	return CodeOf(err) == ErrorBusy
}

// IsNotFound reports whether err signals a missing record.
func IsNotFound(err error) bool {
	return CodeOf(err) == ErrorNotFound
}

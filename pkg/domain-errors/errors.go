// Package derrors defines the structured error type shared across domains.
//
// Services return *Error values carrying a stable machine-readable code and
// the underlying cause; stores wrap low-level failures with fmt.Errorf and
// the service layer attaches the code at its boundary. Transport maps codes
// to HTTP statuses in httputil.
package derrors

import (
	"errors"
	"fmt"
)

// Code classifies an error for callers that branch on failure kind.
type Code string

const (
	// CodeValidation marks malformed input: filter-breaking identifying
	// values, or a claim-based event with no identifying fields at all.
	CodeValidation Code = "validation"

	// CodeNotFound marks a missing record (workflow, trackpage, browser).
	CodeNotFound Code = "not_found"

	// CodeSchemaNotFound marks a request for an event schema the registry
	// does not hold. Fatal for the request that asked.
	CodeSchemaNotFound Code = "schema_not_found"

	// CodeConflict marks a uniqueness clash surfaced by a store.
	CodeConflict Code = "conflict"

	// CodeInvariantViolation marks a broken domain invariant.
	CodeInvariantViolation Code = "invariant_violation"

	// CodeTimeout marks a context deadline or cancellation.
	CodeTimeout Code = "timeout"

	// CodeInternal marks persistence and other unexpected failures.
	CodeInternal Code = "internal"
)

// Error bundles a code, a human-readable message, and the wrapped cause.
// The cause is preserved for logging rather than discarded.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates a coded error without an underlying cause.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Newf creates a coded error with a formatted message.
func Newf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a code and message to an underlying error. A nil err
// returns nil so call sites can wrap unconditionally.
func Wrap(err error, code Code, message string) *Error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Message: message, Err: err}
}

// HasCode reports whether any error in the chain carries the given code.
func HasCode(err error, code Code) bool {
	var e *Error
	for errors.As(err, &e) {
		if e.Code == code {
			return true
		}
		err = e.Err
		if err == nil {
			break
		}
	}
	return false
}

// CodeOf returns the outermost code in the chain, or CodeInternal when the
// error carries none.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}

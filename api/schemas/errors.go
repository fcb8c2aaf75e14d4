// api/schemas/errors.go
// Typed error kinds for the upload pipeline. Fatal-vs-non-fatal handling is
// an explicit branch at each call site keyed on the kind, never on whether a
// call happened to be wrapped in a recover.
package schemas

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a pipeline failure.
type ErrorKind string

const (
	// KindValidation indicates malformed job input.
	KindValidation ErrorKind = "validation"
	// KindConversion indicates payload materialization failed.
	KindConversion ErrorKind = "conversion"
	// KindNotFound indicates a surface or control was absent after
	// exhausting all candidates and fallbacks.
	KindNotFound ErrorKind = "not_found"
	// KindTimeout indicates a bounded wait elapsed.
	KindTimeout ErrorKind = "timeout"
	// KindInvalidEnvironment indicates the precondition check failed.
	KindInvalidEnvironment ErrorKind = "invalid_environment"
	// KindUnknownAction indicates an unrecognized bus request.
	KindUnknownAction ErrorKind = "unknown_action"
	// KindBusy indicates a job was rejected because one is in flight.
	KindBusy ErrorKind = "busy"
	// KindInternal covers everything else.
	KindInternal ErrorKind = "internal"
)

// Error is the pipeline error type. It carries a kind for call-site
// branching and optionally wraps a cause.
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// NewError constructs an Error with the given kind and message.
func NewError(kind ErrorKind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// WrapError constructs an Error wrapping a cause.
func WrapError(kind ErrorKind, err error, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Err: err}
}

// KindOf extracts the ErrorKind from err, unwrapping as needed.
// Non-pipeline errors report KindInternal; nil reports an empty kind.
func KindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind ErrorKind) bool {
	return KindOf(err) == kind
}

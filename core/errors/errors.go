// Package errors provides the error kinds shared by the attribute system and
// the document parser.
//
// Every failure raised by core packages is an *Error carrying a Code. Callers
// wrap them with fmt.Errorf("...: %w", err) as usual; CodeOf and Is look
// through the wrap chain.
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// Code is a machine-readable error code.
type Code string

const (
	// CodeUnknown represents an error that did not originate in this module.
	CodeUnknown Code = "UNKNOWN"

	// Datum errors
	CodeTypeConflict     Code = "TYPE_CONFLICT"
	CodeTypeMismatch     Code = "TYPE_MISMATCH"
	CodeIndexOutOfRange  Code = "INDEX_OUT_OF_RANGE"
	CodeNullStorage      Code = "NULL_STORAGE"
	CodeInvalidState     Code = "INVALID_STATE"
	CodeMalformedLiteral Code = "MALFORMED_LITERAL"

	// Scope errors
	CodeCycleDetected Code = "CYCLE_DETECTED"

	// Attributed errors
	CodeDuplicateAttribute Code = "DUPLICATE_ATTRIBUTE"
	CodeBindMismatch       Code = "BIND_MISMATCH"

	// Parse errors
	CodeUnexpectedElement Code = "UNEXPECTED_ELEMENT"
	CodeMissingAttribute  Code = "MISSING_ATTRIBUTE"
	CodeMalformedDocument Code = "MALFORMED_DOCUMENT"
	CodeTooLarge          Code = "TOO_LARGE"

	// Storage errors
	CodeNotFound Code = "NOT_FOUND"
)

// HTTPStatus maps a code to the status returned by the HTTP API.
func (c Code) HTTPStatus() int {
	switch c {
	// Bad input: the document or literal is wrong.
	case CodeMalformedLiteral,
		CodeUnexpectedElement,
		CodeMissingAttribute,
		CodeTypeConflict,
		CodeTypeMismatch,
		CodeDuplicateAttribute,
		CodeCycleDetected:
		return http.StatusUnprocessableEntity

	case CodeIndexOutOfRange,
		CodeNullStorage,
		CodeInvalidState,
		CodeBindMismatch:
		return http.StatusConflict

	case CodeMalformedDocument:
		return http.StatusBadRequest

	case CodeTooLarge:
		return http.StatusRequestEntityTooLarge

	case CodeNotFound:
		return http.StatusNotFound

	default:
		return http.StatusInternalServerError
	}
}

// Error is a coded failure.
type Error struct {
	Code    Code
	Message string
	Cause   error
}

// New creates an error with a formatted message.
func New(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates an error that keeps cause in its chain.
func Wrap(code Code, cause error, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// Error returns "CODE: message[: cause]".
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target is an *Error with the same code, so that
// errors.Is(err, errors.New(CodeNotFound, "")) matches any not-found error.
func (e *Error) Is(target error) bool {
	var t *Error
	if !stderrors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// CodeOf returns the code of the first *Error in err's chain.
func CodeOf(err error) Code {
	if err == nil {
		return ""
	}
	var e *Error
	if stderrors.As(err, &e) {
		return e.Code
	}
	return CodeUnknown
}

// Is reports whether err carries code anywhere in its chain.
func Is(err error, code Code) bool {
	for err != nil {
		var e *Error
		if !stderrors.As(err, &e) {
			return false
		}
		if e.Code == code {
			return true
		}
		err = e.Cause
	}
	return false
}

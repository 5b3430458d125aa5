package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode represents a libreplot error code.
type ErrorCode string

const (
	ErrNoSeparator    ErrorCode = "NO_SEPARATOR"    // line has no field separator after the id
	ErrBadTimestamp   ErrorCode = "BAD_TIMESTAMP"   // empty or malformed timestamp field
	ErrBadRecordKind  ErrorCode = "BAD_RECORD_KIND" // record kind is not an integer
	ErrChartRender    ErrorCode = "CHART_RENDER"    // drawing, encoding or file creation failed for a day
	ErrInputOpen      ErrorCode = "INPUT_OPEN"      // input export could not be opened
	ErrInvalidRequest ErrorCode = "INVALID_REQUEST"
	ErrNotFound       ErrorCode = "NOT_FOUND"
	ErrInternal       ErrorCode = "INTERNAL"
)

// Error represents a structured error with code, message, and details.
type Error struct {
	Code    ErrorCode
	Message string
	Details map[string]any
	Err     error
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause, if any.
func (e *Error) Unwrap() error {
	return e.Err
}

// IsLineParse reports whether the code is one of the fatal per-line parse kinds.
func (c ErrorCode) IsLineParse() bool {
	return c == ErrNoSeparator || c == ErrBadTimestamp || c == ErrBadRecordKind
}

// NewNoSeparator creates an error for a line without any separator.
func NewNoSeparator(line int, text string) *Error {
	return &Error{
		Code:    ErrNoSeparator,
		Message: fmt.Sprintf("line %d: could not parse id", line),
		Details: map[string]any{"line": line, "text": text},
	}
}

// NewBadTimestamp creates an error for an empty or unparseable timestamp field.
func NewBadTimestamp(line int, text string) *Error {
	return &Error{
		Code:    ErrBadTimestamp,
		Message: fmt.Sprintf("line %d: could not parse timestamp %q", line, text),
		Details: map[string]any{"line": line, "text": text},
	}
}

// NewBadRecordKind creates an error for a malformed record kind field.
func NewBadRecordKind(line int, text string) *Error {
	return &Error{
		Code:    ErrBadRecordKind,
		Message: fmt.Sprintf("line %d: could not parse record kind %q", line, text),
		Details: map[string]any{"line": line, "text": text},
	}
}

// NewChartRender creates an error for a chart that could not be produced.
func NewChartRender(day string, err error) *Error {
	msg := fmt.Sprintf("chart %s failed", day)
	if err != nil {
		msg = fmt.Sprintf("chart %s failed: %v", day, err)
	}
	return &Error{
		Code:    ErrChartRender,
		Message: msg,
		Details: map[string]any{"day": day},
		Err:     err,
	}
}

// NewInputOpen creates an error for an input file that could not be opened.
func NewInputOpen(path string, err error) *Error {
	msg := fmt.Sprintf("could not open file: %q", path)
	if err != nil {
		msg = fmt.Sprintf("could not open file: %q: %v", path, err)
	}
	return &Error{
		Code:    ErrInputOpen,
		Message: msg,
		Details: map[string]any{"path": path},
		Err:     err,
	}
}

// NewInvalidRequest creates an error for invalid request parameters.
func NewInvalidRequest(msg string) *Error {
	return &Error{
		Code:    ErrInvalidRequest,
		Message: msg,
	}
}

// NewNotFound creates an error for a missing import or day.
func NewNotFound(identifier string) *Error {
	return &Error{
		Code:    ErrNotFound,
		Message: fmt.Sprintf("not found: %s", identifier),
		Details: map[string]any{"identifier": identifier},
	}
}

// NewInternal creates an error for unexpected internal failures.
func NewInternal(err error) *Error {
	msg := "internal error"
	if err != nil {
		msg = err.Error()
	}
	return &Error{
		Code:    ErrInternal,
		Message: msg,
		Err:     err,
	}
}

// Is checks if err (or anything it wraps) is an *Error with the given code.
func Is(err error, code ErrorCode) bool {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// CodeOf returns the code of err, or ErrInternal if err is not an *Error.
func CodeOf(err error) ErrorCode {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Code
	}
	return ErrInternal
}

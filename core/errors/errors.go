// Package errors provides coded errors shared by every carddesk layer.
//
// Overview:
//   - Responsibility: Classify failures with a small set of codes and keep the failing operation
//   - Key Types: Code for classification, E for the structured error value
//   - Concurrency Model: Errors are immutable once built and safe to share
//   - Error Semantics: E unwraps to its cause, so errors.Is/As keep working
//
// Usage:
//
//	err := errors.New(errors.CodeInvalidArgument, "oib is required")
//	err = errors.Wrap(errors.CodeUnavailable, "registry.List", cause)
//	if errors.IsCode(err, errors.CodeNotFound) { ... }
package errors

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Code classifies an error.
type Code string

// Error codes used across carddesk.
const (
	CodeInvalidArgument  Code = "INVALID_ARGUMENT"
	CodeNotFound         Code = "NOT_FOUND"
	CodeAlreadyExists    Code = "ALREADY_EXISTS"
	CodePermissionDenied Code = "PERMISSION_DENIED"
	CodeUnauthenticated  Code = "UNAUTHENTICATED"
	CodeInternal         Code = "INTERNAL"
	CodeUnavailable      Code = "UNAVAILABLE"
	CodeDeadlineExceeded Code = "DEADLINE_EXCEEDED"
	CodeDataLoss         Code = "DATA_LOSS"
)

// E is a structured error carrying a code, the failing operation and an optional cause.
type E struct {
	Code Code   // Error classification code
	Op   string // Operation that failed, e.g. "registry.Delete"
	Err  error  // Underlying error (may be nil)
	Msg  string // Human-readable message
}

// Error renders "CODE op: msg: cause", omitting empty parts.
func (e *E) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Code))
	if e.Op != "" {
		b.WriteString(" ")
		b.WriteString(e.Op)
	}
	if e.Msg != "" {
		b.WriteString(": ")
		b.WriteString(e.Msg)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

// Unwrap returns the cause.
func (e *E) Unwrap() error {
	return e.Err
}

// New creates an error with the given code and message.
func New(code Code, msg string) error {
	return &E{Code: code, Msg: msg}
}

// Newf is New with a formatted message.
func Newf(code Code, format string, args ...any) error {
	return &E{Code: code, Msg: fmt.Sprintf(format, args...)}
}

// Wrap attaches a code and operation name to err.
// Wrap returns nil when err is nil.
func Wrap(code Code, op string, err error) error {
	if err == nil {
		return nil
	}
	return &E{Code: code, Op: op, Err: err}
}

// Wrapf is Wrap with a formatted message.
func Wrapf(code Code, op string, err error, format string, args ...any) error {
	return &E{Code: code, Op: op, Err: err, Msg: fmt.Sprintf(format, args...)}
}

// CodeOf returns the code of the outermost E in err's chain, or "" if there is none.
func CodeOf(err error) Code {
	var e *E
	if err != nil && errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// IsCode reports whether err carries code.
func IsCode(err error, code Code) bool {
	return CodeOf(err) == code
}

// Is forwards to the standard library.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As forwards to the standard library.
func As(err error, target any) bool {
	return errors.As(err, target)
}

// FromHTTPStatus maps a non-2xx HTTP status returned by a remote service to a Code.
func FromHTTPStatus(status int) Code {
	switch {
	case status == http.StatusBadRequest, status == http.StatusUnprocessableEntity:
		return CodeInvalidArgument
	case status == http.StatusUnauthorized:
		return CodeUnauthenticated
	case status == http.StatusForbidden:
		return CodePermissionDenied
	case status == http.StatusNotFound:
		return CodeNotFound
	case status == http.StatusConflict:
		return CodeAlreadyExists
	case status == http.StatusRequestTimeout, status == http.StatusGatewayTimeout:
		return CodeDeadlineExceeded
	case status == http.StatusServiceUnavailable, status == http.StatusBadGateway,
		status == http.StatusTooManyRequests:
		return CodeUnavailable
	default:
		return CodeInternal
	}
}

// HTTPStatus maps a Code to the status carddesk answers with on its own HTTP surface.
func HTTPStatus(code Code) int {
	switch code {
	case CodeInvalidArgument:
		return http.StatusBadRequest
	case CodeUnauthenticated:
		return http.StatusUnauthorized
	case CodePermissionDenied:
		return http.StatusForbidden
	case CodeNotFound:
		return http.StatusNotFound
	case CodeAlreadyExists:
		return http.StatusConflict
	case CodeDeadlineExceeded:
		return http.StatusGatewayTimeout
	case CodeUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

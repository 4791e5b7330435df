// Package ingesterr provides the kernel's error taxonomy: a small set of
// Kinds that every HTTP/MCP handler can map to a status code, modeled on
// the reference MCPError (message + HTTP status) and the teacher's A2A
// JSON-RPC error codes.
package ingesterr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an Error for status-code mapping and logging level.
type Kind string

const (
	KindBadRequest Kind = "bad_request"
	KindNotFound   Kind = "not_found"
	KindTimeout    Kind = "timeout"
	KindDependency Kind = "dependency"
	KindInternal   Kind = "internal"
)

// Error is the kernel's structured error type: a Kind, a human message, and
// an optional wrapped cause.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Cause }

// New constructs an Error with no cause.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap constructs an Error around cause, or returns nil if cause is nil.
func Wrap(kind Kind, message string, cause error) *Error {
	if cause == nil {
		return nil
	}
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// BadRequest is a convenience constructor for KindBadRequest.
func BadRequest(format string, args ...any) *Error {
	return New(KindBadRequest, fmt.Sprintf(format, args...))
}

// NotFound is a convenience constructor for KindNotFound.
func NotFound(format string, args ...any) *Error {
	return New(KindNotFound, fmt.Sprintf(format, args...))
}

// Internal wraps cause as an internal error.
func Internal(cause error) *Error {
	return Wrap(KindInternal, "internal error", cause)
}

// Dependency wraps cause as a failure in a downstream dependency (vector
// index, object store, transcription provider, vectorizer HTTP endpoint).
func Dependency(message string, cause error) *Error {
	return Wrap(KindDependency, message, cause)
}

// KindOf extracts the Kind from err if it is (or wraps) an *Error, defaulting
// to KindInternal otherwise.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// StatusFromError maps err's Kind to an HTTP status code, mirroring
// MCPError.as_starlette_response's code field.
func StatusFromError(err error) int {
	switch KindOf(err) {
	case KindBadRequest:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindTimeout:
		return http.StatusGatewayTimeout
	case KindDependency:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// AsResponse mirrors MCPError.as_response(): a minimal JSON-able error body.
// Internal errors report only "internal error" so their causes never
// reach the client.
func AsResponse(err error) map[string]any {
	msg := err.Error()
	if KindOf(err) == KindInternal {
		msg = "internal error"
	}
	return map[string]any{
		"status": "error",
		"error":  msg,
	}
}

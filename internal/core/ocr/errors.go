package ocr

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a per-file failure
type ErrorKind string

const (
	KindValidation ErrorKind = "validation"
	KindIO         ErrorKind = "io"
	KindNetwork    ErrorKind = "network"
	KindTimeout    ErrorKind = "timeout"
	KindAPI        ErrorKind = "api"
	KindMalformed  ErrorKind = "malformed"
	KindContent    ErrorKind = "content"
	KindPermission ErrorKind = "permission"
	KindSave       ErrorKind = "save"
	KindInternal   ErrorKind = "internal"
)

// maxErrorBodyChars is how much of a non-200 response body is kept
const maxErrorBodyChars = 100

// Error is a classified pipeline failure. Message is the user-facing log line.
type Error struct {
	Kind       ErrorKind
	Message    string
	StatusCode int    // KindAPI only
	Body       string // KindAPI only, truncated
	Err        error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the kind of err, or "" when err is not a classified error
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// NewValidationError creates a validation error
func NewValidationError(format string, args ...interface{}) *Error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

// NewIOError wraps a read failure for the named file
func NewIOError(name string, err error) *Error {
	return &Error{
		Kind:    KindIO,
		Message: fmt.Sprintf("Failed to process %s: %v", name, err),
		Err:     err,
	}
}

// NewAPIError builds an API error, truncating the body
func NewAPIError(status int, body string) *Error {
	body = truncateRunes(body, maxErrorBodyChars)
	return &Error{
		Kind:       KindAPI,
		Message:    fmt.Sprintf("API Error %d: %s", status, body),
		StatusCode: status,
		Body:       body,
	}
}

// NewTimeoutError wraps a request timeout
func NewTimeoutError(err error) *Error {
	return &Error{
		Kind:    KindTimeout,
		Message: "Request timeout - file may be too large",
		Err:     err,
	}
}

// NewNetworkError wraps a transport failure
func NewNetworkError(err error) *Error {
	return &Error{
		Kind:    KindNetwork,
		Message: fmt.Sprintf("Network error: %v", err),
		Err:     err,
	}
}

// NewMalformedError wraps a JSON decode failure on a 200 response
func NewMalformedError(err error) *Error {
	return &Error{
		Kind:    KindMalformed,
		Message: fmt.Sprintf("Malformed response: %v", err),
		Err:     err,
	}
}

// ErrNoContent is returned when the service answered without pages
var ErrNoContent = &Error{Kind: KindContent, Message: "No content found in response"}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

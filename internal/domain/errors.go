/**
 * @description
 * Error taxonomy shared by the API access layer and its callers.
 * Every failed operation surfaces as exactly one of these: the request never
 * left the process (ValidationError), no response arrived (TransportError),
 * or the server answered with a non-2xx status (HTTPError).
 */
package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrInvalidCredentials is reported for any non-2xx answer to login or verify.
var ErrInvalidCredentials = errors.New("invalid credentials or verification code")

// ErrNotAuthenticated is returned by operations that need a stored session.
var ErrNotAuthenticated = errors.New("not authenticated")

// maxErrorBody caps how much of an error response is kept on HTTPError.
const maxErrorBody = 4096

// TransportError means no HTTP response was received (DNS, connect, reset, ctx cancel).
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: transport failure: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// HTTPError means the server responded with a status outside 2xx.
type HTTPError struct {
	Op      string
	Status  int
	Body    string
	Message string
}

// NewHTTPError builds an HTTPError, pulling a human message out of common
// {"message": ...} / {"error": ...} bodies.
func NewHTTPError(op string, status int, body []byte) *HTTPError {
	if len(body) > maxErrorBody {
		body = body[:maxErrorBody]
	}
	return &HTTPError{
		Op:      op,
		Status:  status,
		Body:    string(body),
		Message: extractMessage(body),
	}
}

func (e *HTTPError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: server returned %d: %s", e.Op, e.Status, e.Message)
	}
	return fmt.Sprintf("%s: server returned %d %s", e.Op, e.Status, http.StatusText(e.Status))
}

// ValidationError is raised before a request is built; it never reaches the transport.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation failed: " + e.Message
	}
	return fmt.Sprintf("validation failed: %s %s", e.Field, e.Message)
}

// NewValidationError is a shorthand constructor.
func NewValidationError(field, msg string) *ValidationError {
	return &ValidationError{Field: field, Message: msg}
}

// AsHTTPError extracts an HTTPError from an error chain.
func AsHTTPError(err error) (*HTTPError, bool) {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr, true
	}
	return nil, false
}

// StatusCode returns the HTTP status carried by err, or 0 when there is none.
func StatusCode(err error) int {
	if httpErr, ok := AsHTTPError(err); ok {
		return httpErr.Status
	}
	return 0
}

// IsNotFound reports whether err is an HTTPError with status 404.
func IsNotFound(err error) bool {
	return StatusCode(err) == http.StatusNotFound
}

// IsTransport reports whether err means no response was received.
func IsTransport(err error) bool {
	var tErr *TransportError
	return errors.As(err, &tErr)
}

// IsValidation reports whether err was raised caller-side.
func IsValidation(err error) bool {
	var vErr *ValidationError
	return errors.As(err, &vErr)
}

func extractMessage(body []byte) string {
	trimmed := strings.TrimSpace(string(body))
	if trimmed == "" || trimmed[0] != '{' {
		return ""
	}
	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
		Detail  string `json:"detail"`
	}
	if err := json.Unmarshal([]byte(trimmed), &payload); err != nil {
		return ""
	}
	switch {
	case payload.Message != "":
		return payload.Message
	case payload.Error != "":
		return payload.Error
	default:
		return payload.Detail
	}
}

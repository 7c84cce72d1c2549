package httpx

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// Error kinds surfaced by Client.Do. HTTPError unwraps to exactly one of the
// status kinds; ErrTimeout wraps the cause of the final timed-out attempt.
var (
	ErrTimeout            = errors.New("request timed out")
	ErrService            = errors.New("service error")
	ErrUnprocessable      = errors.New("unprocessable entity")
	ErrDocumentGone       = errors.New("document gone or invalid")
	ErrNotFound           = errors.New("not found")
	ErrForbidden          = errors.New("forbidden")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidData        = errors.New("invalid request data")
	ErrUnexpectedHTTP     = errors.New("unexpected HTTP status")
)

// HTTPError represents a non-2xx HTTP response returned by the remote service.
type HTTPError struct {
	StatusCode int
	Body       []byte
	Header     http.Header
	JSON       any
}

func (e *HTTPError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if len(e.Body) == 0 {
		return fmt.Sprintf("http error: %v (status=%d)", e.Kind(), e.StatusCode)
	}
	return fmt.Sprintf("http error: %v (status=%d) body=%s", e.Kind(), e.StatusCode, string(e.Body))
}

// Unwrap exposes the error kind so callers can use errors.Is.
func (e *HTTPError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Kind()
}

// Kind maps the status code onto the error taxonomy.
func (e *HTTPError) Kind() error {
	return Classify(e.StatusCode)
}

// Classify returns the error kind for a non-2xx status. The order of the
// checks is part of the contract.
func Classify(status int) error {
	switch {
	case status == http.StatusInternalServerError:
		return ErrService
	case status == http.StatusUnprocessableEntity:
		return ErrUnprocessable
	case status == http.StatusGone:
		return ErrDocumentGone
	case status == http.StatusNotFound:
		return ErrNotFound
	case status == http.StatusForbidden:
		return ErrForbidden
	case status == http.StatusUnauthorized:
		return ErrInvalidCredentials
	case status == http.StatusBadRequest:
		return ErrInvalidData
	default:
		return ErrUnexpectedHTTP
	}
}

// timeoutError is returned once every attempt has timed out.
type timeoutError struct {
	attempts int
	cause    error
}

func (e *timeoutError) Error() string {
	return fmt.Sprintf("httpx: %v after %d attempt(s): %v", ErrTimeout, e.attempts, e.cause)
}

func (e *timeoutError) Is(target error) bool {
	return target == ErrTimeout
}

func (e *timeoutError) Unwrap() error {
	return e.cause
}

// decodeJSONBody parses the body bytes into a generic JSON payload.
func decodeJSONBody(body []byte) any {
	if len(body) == 0 {
		return nil
	}
	var payload any
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil
	}
	return payload
}

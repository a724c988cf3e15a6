package n8n

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Error is returned for every failed upstream call, whether n8n answered with a
// non-2xx status or the request never completed.
type Error struct {
	// StatusCode is the upstream HTTP status, or 0 for transport failures.
	StatusCode int

	// Message is a human-readable description suitable for API consumers.
	Message string

	// Err is the underlying transport error, if any.
	Err error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// StatusCode returns the upstream status carried by err, or 0 if err is not an
// upstream HTTP error.
func StatusCode(err error) int {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}

// newStatusError builds an Error from a non-2xx response body.
func newStatusError(statusCode int, body []byte) *Error {
	// n8n answers errors as {"message": "..."}; some proxies use "error".
	var apiErr struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(body, &apiErr); err == nil {
		if msg := strings.TrimSpace(apiErr.Message); msg != "" {
			return &Error{StatusCode: statusCode, Message: msg}
		}
		if msg := strings.TrimSpace(apiErr.Error); msg != "" {
			return &Error{StatusCode: statusCode, Message: msg}
		}
	}

	return &Error{
		StatusCode: statusCode,
		Message:    fmt.Sprintf("Request failed with status code %d", statusCode),
	}
}

func newTransportError(err error) *Error {
	return &Error{Message: err.Error(), Err: err}
}

package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/hashicorp/go-hclog"

	"github.com/sonnd/n8n-ai-bridge/pkg/n8n"
)

const (
	statusSuccess = "success"
	statusError   = "error"

	// maxBodyBytes caps inbound workflow definitions.
	maxBodyBytes = 10 << 20
)

// SuccessResponse is the envelope for a successfully forwarded call.
type SuccessResponse struct {
	Status string          `json:"status"`
	Data   json.RawMessage `json:"data"`
}

// ErrorResponse is the envelope for any failure.
type ErrorResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// errInvalidBody is returned by readJSONBody for malformed input.
var errInvalidBody = errors.New("invalid JSON body")

// writeJSON encodes v as the response body with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// respondSuccess relays an upstream body inside the success envelope.
func respondSuccess(w http.ResponseWriter, data json.RawMessage) {
	writeJSON(w, http.StatusOK, SuccessResponse{
		Status: statusSuccess,
		Data:   data,
	})
}

// respondError writes the error envelope.
func respondError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{
		Status:  statusError,
		Message: message,
	})
}

// respondUpstreamError maps any failed upstream call to a 500 envelope. The
// upstream status is logged but never passed through.
func respondUpstreamError(w http.ResponseWriter, logger hclog.Logger, action string, err error) {
	logger.Error("error "+action,
		"error", err,
		"upstream_status", n8n.StatusCode(err),
	)

	message := err.Error()
	if message == "" {
		message = "upstream request failed"
	}
	respondError(w, http.StatusInternalServerError, message)
}

// respondMethodNotAllowed writes a 405 envelope listing the allowed methods.
func respondMethodNotAllowed(w http.ResponseWriter, r *http.Request, allowed ...string) {
	w.Header().Set("Allow", strings.Join(allowed, ", "))
	respondError(w, http.StatusMethodNotAllowed,
		fmt.Sprintf("Method %s not allowed on %s", r.Method, r.URL.Path))
}

// respondNotFound writes a 404 envelope for unknown routes.
func respondNotFound(w http.ResponseWriter, r *http.Request) {
	respondError(w, http.StatusNotFound, fmt.Sprintf("Cannot %s %s", r.Method, r.URL.Path))
}

// readJSONBody reads the request body as a JSON object or array. An empty body
// is treated as an empty object; top-level scalars are rejected.
func readJSONBody(w http.ResponseWriter, r *http.Request) (json.RawMessage, error) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("error reading request body: %w", err)
	}

	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return json.RawMessage("{}"), nil
	}
	if body[0] != '{' && body[0] != '[' {
		return nil, errInvalidBody
	}
	if !json.Valid(body) {
		return nil, errInvalidBody
	}

	return json.RawMessage(body), nil
}

// respondBodyError maps a readJSONBody failure to an envelope.
func respondBodyError(w http.ResponseWriter, err error) {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		respondError(w, http.StatusRequestEntityTooLarge, "request body too large")
		return
	}
	respondError(w, http.StatusBadRequest, err.Error())
}

// parseResourcePath parses an escaped URL path with the format
// "{prefix}/{id}/{action}" and returns the unescaped segments after prefix.
// Empty segments are dropped, so "{prefix}/" yields no segments.
func parseResourcePath(escapedPath, prefix string) ([]string, error) {
	rest := strings.TrimPrefix(escapedPath, prefix)

	var segments []string
	for _, v := range strings.Split(rest, "/") {
		// Only append non-empty values, this removes any empty strings in the
		// slice.
		if v == "" {
			continue
		}
		unescaped, err := url.PathUnescape(v)
		if err != nil {
			return nil, fmt.Errorf("invalid URL path: %w", err)
		}
		segments = append(segments, unescaped)
	}

	return segments, nil
}

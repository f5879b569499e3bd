package httpclient

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	apperrors "github.com/veloxcart/catalogd/pkg/errors"
)

// UpstreamErrorResponse covers the two error body shapes seen from catalog
// sources: a flat {"message": "..."} object and an {"error": {...}} envelope.
type UpstreamErrorResponse struct {
	Message string `json:"message"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// ParseResponseError reads the body of a non-2xx HTTP response and translates
// it into an appropriate AppError. If the response body matches a known error
// format, the message is preserved. Otherwise a generic error is returned with
// the status code and raw body.
//
// The caller should only invoke this when resp.StatusCode indicates an error
// (i.e., not 2xx). The response body is fully consumed and closed.
func ParseResponseError(resp *http.Response, sourceName string) error {
	defer func() { _ = resp.Body.Close() }()

	bodyBytes, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20)) // 1 MB limit
	if err != nil {
		return fmt.Errorf("%s returned status %d (failed to read body: %w)", sourceName, resp.StatusCode, err)
	}

	// Try to parse a structured error response.
	var upstream UpstreamErrorResponse
	if json.Unmarshal(bodyBytes, &upstream) == nil {
		if upstream.Error != nil && upstream.Error.Message != "" {
			return mapUpstreamError(resp.StatusCode, upstream.Error.Message, sourceName)
		}
		if upstream.Message != "" {
			return mapUpstreamError(resp.StatusCode, upstream.Message, sourceName)
		}
	}

	// Fallback: unstructured error body.
	return fmt.Errorf("%s returned status %d: %s", sourceName, resp.StatusCode, string(bodyBytes))
}

// mapUpstreamError translates an upstream HTTP status code into an AppError
// that preserves the error semantics.
func mapUpstreamError(status int, message, sourceName string) error {
	qualifiedMsg := fmt.Sprintf("%s: %s", sourceName, message)

	switch {
	case status == http.StatusNotFound:
		return apperrors.NotFound(sourceName, message)
	case status == http.StatusBadRequest:
		return apperrors.InvalidInput(qualifiedMsg)
	case status == http.StatusConflict:
		return apperrors.Conflict(qualifiedMsg)
	case status == http.StatusTooManyRequests, status == http.StatusServiceUnavailable:
		return apperrors.Unavailable(qualifiedMsg)
	case status >= 500:
		return fmt.Errorf("%s server error (%d): %s", sourceName, status, message)
	default:
		return &apperrors.AppError{
			Code:    "UPSTREAM_ERROR",
			Message: qualifiedMsg,
			Status:  status,
		}
	}
}

// IsClientError returns true if the HTTP status code is a 4xx client error.
// Client errors should not be retried: the request itself was invalid.
func IsClientError(status int) bool {
	return status >= 400 && status < 500
}

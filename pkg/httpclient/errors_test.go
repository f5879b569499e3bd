package httpclient

import (
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"

	apperrors "github.com/veloxcart/catalogd/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// makeResponse creates an *http.Response with the given status code and body string.
func makeResponse(statusCode int, body string) *http.Response {
	return &http.Response{
		StatusCode: statusCode,
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

// envelopeError builds an {"error":{...}} JSON error body.
func envelopeError(code, message string) string {
	return `{"error":{"code":"` + code + `","message":"` + message + `"}}`
}

// flatError builds a flat {"message":"..."} JSON error body, the shape the
// dummyjson-style catalog source returns.
func flatError(message string) string {
	return `{"message":"` + message + `"}`
}

func TestParseResponseError_FlatMessage_NotFound(t *testing.T) {
	resp := makeResponse(http.StatusNotFound, flatError("Product with id '999' not found"))
	err := ParseResponseError(resp, "catalog-source")
	require.Error(t, err)

	var appErr *apperrors.AppError
	require.True(t, errors.As(err, &appErr), "expected AppError, got %T: %v", err, err)
	assert.Equal(t, http.StatusNotFound, appErr.Status)
	assert.Equal(t, "NOT_FOUND", appErr.Code)
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))
}

func TestParseResponseError_Envelope_NotFound(t *testing.T) {
	resp := makeResponse(http.StatusNotFound, envelopeError("NOT_FOUND", "product not found"))
	err := ParseResponseError(resp, "catalog-source")
	require.Error(t, err)

	var appErr *apperrors.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, http.StatusNotFound, appErr.Status)
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))
}

func TestParseResponseError_BadRequest(t *testing.T) {
	resp := makeResponse(http.StatusBadRequest, flatError("limit must be a number"))
	err := ParseResponseError(resp, "catalog-source")
	require.Error(t, err)

	var appErr *apperrors.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, http.StatusBadRequest, appErr.Status)
	assert.True(t, errors.Is(err, apperrors.ErrInvalidInput))
	assert.Contains(t, appErr.Message, "catalog-source")
}

func TestParseResponseError_Conflict(t *testing.T) {
	resp := makeResponse(http.StatusConflict, envelopeError("CONFLICT", "version mismatch"))
	err := ParseResponseError(resp, "catalog-source")
	require.Error(t, err)

	var appErr *apperrors.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, http.StatusConflict, appErr.Status)
	assert.True(t, errors.Is(err, apperrors.ErrConflict))
}

func TestParseResponseError_TooManyRequests(t *testing.T) {
	resp := makeResponse(http.StatusTooManyRequests, flatError("rate limit exceeded"))
	err := ParseResponseError(resp, "catalog-source")
	require.Error(t, err)

	var appErr *apperrors.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, http.StatusServiceUnavailable, appErr.Status)
	assert.True(t, errors.Is(err, apperrors.ErrUnavailable))
	assert.Contains(t, appErr.Message, "rate limit exceeded")
}

func TestParseResponseError_ServiceUnavailable(t *testing.T) {
	resp := makeResponse(http.StatusServiceUnavailable, flatError("overloaded"))
	err := ParseResponseError(resp, "catalog-source")
	require.Error(t, err)

	var appErr *apperrors.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, http.StatusServiceUnavailable, appErr.Status)
	assert.True(t, errors.Is(err, apperrors.ErrUnavailable))
}

func TestParseResponseError_ServerError(t *testing.T) {
	resp := makeResponse(http.StatusInternalServerError, flatError("something went wrong"))
	err := ParseResponseError(resp, "catalog-source")
	require.Error(t, err)

	// 500 server errors produce a generic error (not AppError).
	assert.Contains(t, err.Error(), "catalog-source")
	assert.Contains(t, err.Error(), "500")
	assert.Contains(t, err.Error(), "something went wrong")
}

func TestParseResponseError_502(t *testing.T) {
	resp := makeResponse(http.StatusBadGateway, envelopeError("BAD_GATEWAY", "upstream error"))
	err := ParseResponseError(resp, "catalog-source")
	require.Error(t, err)

	// 502 is >= 500, should produce a generic error string.
	assert.Contains(t, err.Error(), "catalog-source")
	assert.Contains(t, err.Error(), "502")
}

func TestParseResponseError_UnstructuredBody(t *testing.T) {
	resp := makeResponse(http.StatusBadGateway, "Bad Gateway: upstream connection refused")
	err := ParseResponseError(resp, "catalog-source")
	require.Error(t, err)

	assert.Contains(t, err.Error(), "catalog-source")
	assert.Contains(t, err.Error(), "502")
	assert.Contains(t, err.Error(), "Bad Gateway: upstream connection refused")
}

func TestParseResponseError_EmptyBody(t *testing.T) {
	resp := makeResponse(http.StatusInternalServerError, "")
	err := ParseResponseError(resp, "catalog-source")
	require.Error(t, err)

	assert.Contains(t, err.Error(), "catalog-source")
	assert.Contains(t, err.Error(), "500")
}

func TestParseResponseError_HTMLBody(t *testing.T) {
	resp := makeResponse(http.StatusBadGateway, "<html><body><h1>502 Bad Gateway</h1></body></html>")
	err := ParseResponseError(resp, "catalog-source")
	require.Error(t, err)

	assert.Contains(t, err.Error(), "catalog-source")
	assert.Contains(t, err.Error(), "502")
}

func TestParseResponseError_NullErrorEnvelope(t *testing.T) {
	// JSON body with error: null and no message should fall through to the
	// unstructured path.
	resp := makeResponse(http.StatusBadRequest, `{"error":null}`)
	err := ParseResponseError(resp, "catalog-source")
	require.Error(t, err)

	assert.Contains(t, err.Error(), "catalog-source")
	assert.Contains(t, err.Error(), "400")
}

func TestParseResponseError_UnhandledClientStatus(t *testing.T) {
	// A 4xx status not specifically handled (e.g. 410 Gone) should produce a
	// generic AppError with the original status preserved.
	resp := makeResponse(http.StatusGone, flatError("resource removed"))
	err := ParseResponseError(resp, "catalog-source")
	require.Error(t, err)

	var appErr *apperrors.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, http.StatusGone, appErr.Status)
	assert.Equal(t, "UPSTREAM_ERROR", appErr.Code)
	assert.Contains(t, appErr.Message, "catalog-source")
}

// --- IsClientError tests ---

func TestIsClientError_4xx(t *testing.T) {
	clientStatuses := []int{400, 401, 403, 404, 409, 410, 422, 429, 499}
	for _, status := range clientStatuses {
		assert.True(t, IsClientError(status), "status %d should be a client error", status)
	}
}

func TestIsClientError_5xx(t *testing.T) {
	serverStatuses := []int{500, 501, 502, 503, 504}
	for _, status := range serverStatuses {
		assert.False(t, IsClientError(status), "status %d should NOT be a client error", status)
	}
}

func TestIsClientError_2xx(t *testing.T) {
	successStatuses := []int{200, 201, 204, 301, 302}
	for _, status := range successStatuses {
		assert.False(t, IsClientError(status), "status %d should NOT be a client error", status)
	}
}

func TestIsClientError_Boundary(t *testing.T) {
	assert.False(t, IsClientError(399), "399 should not be a client error")
	assert.True(t, IsClientError(400), "400 should be a client error")
	assert.True(t, IsClientError(499), "499 should be a client error")
	assert.False(t, IsClientError(500), "500 should not be a client error")
}

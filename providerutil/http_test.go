package providerutil

import (
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func response(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

func TestReadJSON_DecodesSuccess(t *testing.T) {
	var out struct {
		ID string `json:"id"`
	}
	require.NoError(t, ReadJSON(response(http.StatusOK, `{"id":"cmpl-1"}`), &out))
	assert.Equal(t, "cmpl-1", out.ID)
}

func TestReadJSON_ParsesOpenAIErrorEnvelope(t *testing.T) {
	body := `{"error":{"message":"Incorrect API key provided","type":"invalid_request_error","code":"invalid_api_key"}}`
	err := ReadJSON(response(http.StatusUnauthorized, body), &struct{}{})

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	assert.Equal(t, "invalid_request_error", apiErr.Type)
	assert.Equal(t, "invalid_api_key", apiErr.Code)
	assert.Equal(t, "provider: http status 401: Incorrect API key provided", err.Error())
}

func TestReadJSON_PlainTextError(t *testing.T) {
	err := ReadJSON(response(http.StatusInternalServerError, "internal error"), &struct{}{})

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Empty(t, apiErr.Message)
	assert.Contains(t, err.Error(), "http status 500: internal error")
}

func TestReadJSON_InvalidJSON(t *testing.T) {
	err := ReadJSON(response(http.StatusOK, `{"id":`), &struct{}{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decoding response")
}

package providerutil

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/tidwall/gjson"
)

// maxErrorBody bounds how much of a failed response body is kept.
const maxErrorBody = 8 * 1024

// APIError is returned by ReadJSON when the provider answers with a
// non-2xx status code.
//
// Type, Code and Message are filled from an OpenAI-style error envelope
// ({"error": {"message": ..., "type": ..., "code": ...}}) when the body
// contains one.
type APIError struct {
	StatusCode int
	Type       string
	Code       string
	Message    string
	// Body is the (truncated) raw response body.
	Body string
}

func (e *APIError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Message != "" {
		return fmt.Sprintf("provider: http status %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("provider: http status %d: %s", e.StatusCode, e.Body)
}

// ReadJSON decodes a JSON response body into v and closes the body.
//
// If the response status code is not in the 2xx range, ReadJSON
// returns an *APIError whose message reads:
//
//	provider: http status <code>: <message-or-truncated-body>
func ReadJSON(resp *http.Response, v any) error {
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return newAPIError(resp.StatusCode, b)
	}
	dec := json.NewDecoder(resp.Body)
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("provider: decoding response: %w", err)
	}
	return nil
}

func newAPIError(status int, body []byte) *APIError {
	apiErr := &APIError{StatusCode: status, Body: string(body)}
	if !gjson.ValidBytes(body) {
		return apiErr
	}
	envelope := gjson.GetBytes(body, "error")
	if !envelope.Exists() {
		return apiErr
	}
	if envelope.Type == gjson.String {
		apiErr.Message = envelope.String()
		return apiErr
	}
	apiErr.Message = envelope.Get("message").String()
	apiErr.Type = envelope.Get("type").String()
	apiErr.Code = envelope.Get("code").String()
	return apiErr
}

// DefaultHTTPClient returns the default HTTP client used when none is provided.
func DefaultHTTPClient() *http.Client {
	return http.DefaultClient
}

package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/ncecere/llm-sdk/provider"
	"github.com/ncecere/llm-sdk/providerutil"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()

	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)

	client, err := NewClient(provider.ClientOptions{
		BaseURL:      ts.URL + "/v1",
		APIKey:       "test-key",
		Organization: "org-test",
		HTTPClient:   ts.Client(),
		Headers:      http.Header{"X-Trace": []string{"abc"}},
	})
	require.NoError(t, err)
	return client
}

func TestCreateCompletion_MapsRequestAndResponse(t *testing.T) {
	var body map[string]any

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		assert.Equal(t, "org-test", r.Header.Get("OpenAI-Organization"))
		assert.Equal(t, "abc", r.Header.Get("X-Trace"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{
			"id": "cmpl-1",
			"object": "text_completion",
			"created": 1700000000,
			"model": "gpt-3.5-turbo-instruct",
			"choices": [
				{"text": " world", "index": 0, "logprobs": null, "finish_reason": "stop"}
			],
			"usage": {"prompt_tokens": 2, "completion_tokens": 1, "total_tokens": 3}
		}`)
	})

	res, err := client.CreateCompletion(context.Background(), &CompletionRequest{
		Model:       "gpt-3.5-turbo-instruct",
		Prompt:      []string{"hello"},
		Temperature: 0,
		MaxTokens:   16,
		TopP:        1,
		N:           1,
		BestOf:      1,
		Extra:       map[string]any{"suffix": "!", "echo": true},
	})
	require.NoError(t, err)

	assert.Equal(t, "gpt-3.5-turbo-instruct", body["model"])
	assert.Equal(t, []any{"hello"}, body["prompt"])
	assert.Contains(t, body, "temperature", "zero temperature must still be sent")
	assert.EqualValues(t, 0, body["temperature"])
	assert.EqualValues(t, 16, body["max_tokens"])
	assert.Equal(t, "!", body["suffix"])
	assert.Equal(t, true, body["echo"])
	assert.NotContains(t, body, "stop")
	assert.NotContains(t, body, "logit_bias")

	assert.Equal(t, "cmpl-1", res.ID)
	require.Len(t, res.Choices, 1)
	assert.Equal(t, " world", res.Choices[0].Text)
	assert.Equal(t, "stop", res.Choices[0].FinishReason)
	require.NotNil(t, res.Usage)
	assert.Equal(t, 3, res.Usage.TotalTokens)
}

func TestCreateCompletion_PropagatesHTTPError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		fmt.Fprint(w, `{"error":{"message":"Rate limit reached","type":"requests","code":"rate_limit_exceeded"}}`)
	})

	_, err := client.CreateCompletion(context.Background(), &CompletionRequest{Model: "m", Prompt: []string{"hi"}})
	require.Error(t, err)

	var apiErr *providerutil.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusTooManyRequests, apiErr.StatusCode)
	assert.Equal(t, "rate_limit_exceeded", apiErr.Code)
}

func TestCompletionsURL(t *testing.T) {
	assert.Equal(t, "https://api.openai.com/v1/completions", (&Client{baseURL: "https://api.openai.com"}).completionsURL())
	assert.Equal(t, "http://gw/v1/completions", (&Client{baseURL: "http://gw/v1"}).completionsURL())
}

func TestNewClient_RequiresAPIKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")

	_, err := NewClient(provider.ClientOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing API key")
}

func TestNewClient_ReadsEnvironment(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "env-key")
	t.Setenv("OPENAI_BASE_URL", "http://localhost:8080/v1/")
	t.Setenv("OPENAI_ORGANIZATION", "org-env")

	client, err := NewClient(provider.ClientOptions{})
	require.NoError(t, err)
	assert.Equal(t, "env-key", client.apiKey)
	assert.Equal(t, "http://localhost:8080/v1", client.BaseURL())
	assert.Equal(t, "org-env", client.organization)
}

func TestCompatibleClient_RequiresBaseURL(t *testing.T) {
	t.Setenv("OPENAI_COMPATIBLE_BASE_URL", "")

	_, err := CompatibleClient(provider.ClientOptions{})
	require.Error(t, err)
}

func TestCompatibleClient_ReadsEnvironment(t *testing.T) {
	t.Setenv("OPENAI_COMPATIBLE_BASE_URL", "http://vllm:8000/v1/")
	t.Setenv("OPENAI_COMPATIBLE_API_KEY", "compat-key")

	client, err := CompatibleClient(provider.ClientOptions{})
	require.NoError(t, err)
	assert.Equal(t, "http://vllm:8000/v1", client.BaseURL())
	assert.Equal(t, "compat-key", client.apiKey)
	assert.Equal(t, "http://vllm:8000/v1/completions", client.completionsURL())
}

func TestSpliceExtra_EscapesPathCharacters(t *testing.T) {
	keys := []string{"a.b", "a|b", "@this", "#", "a\\b", "a*", "b?", "!x", "a=b", "<", ">", "50%", ":force", "x.#.y"}
	for _, k := range keys {
		t.Run(k, func(t *testing.T) {
			buf, err := spliceExtra([]byte(`{"model":"m"}`), map[string]any{k: 1})
			require.NoError(t, err)

			var got map[string]any
			require.NoError(t, json.Unmarshal(buf, &got))
			assert.Equal(t, map[string]any{"model": "m", k: float64(1)}, got)
		})
	}
}

type mockCompletions struct {
	mock.Mock
}

func (m *mockCompletions) CreateCompletion(ctx context.Context, req *CompletionRequest) (*CompletionResponse, error) {
	args := m.Called(ctx, req)
	resp, _ := args.Get(0).(*CompletionResponse)
	return resp, args.Error(1)
}

func promptCount(n int) any {
	return mock.MatchedBy(func(req *CompletionRequest) bool { return len(req.Prompt) == n })
}

func TestModelContextSize(t *testing.T) {
	size, err := ModelContextSize("gpt-3.5-turbo-instruct")
	require.NoError(t, err)
	assert.Equal(t, 4096, size)

	size, err = ModelContextSize("ft:davinci-002:acme::abc123")
	require.NoError(t, err)
	assert.Equal(t, 16384, size)

	_, err = ModelContextSize("gpt-4o")
	var argErr *InvalidArgumentError
	require.True(t, errors.As(err, &argErr))
	assert.Equal(t, "model", argErr.Parameter)
}

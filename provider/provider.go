package provider

import (
	"context"
	"net/http"
)

// HTTPClient is the minimal interface required from an HTTP client.
// It matches the Do method on *http.Client and allows callers to
// substitute custom clients or middleware.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// ClientOptions are shared options for all provider clients.
// Providers typically accept these options in their constructors.
type ClientOptions struct {
	// BaseURL is the root URL of the provider API.
	BaseURL string
	// APIKey is the API key or bearer token used for authentication.
	APIKey string
	// Organization is an optional organization identifier sent with
	// every request by providers that support it.
	Organization string
	// HTTPClient is the underlying HTTP client. If nil, a default
	// client should be used by the provider.
	HTTPClient HTTPClient
	// Headers contains additional HTTP headers that providers should
	// attach to every outbound request. Provider implementations
	// decide how these interact with their own required headers.
	Headers http.Header
}

// LLM is the provider-facing interface for text-in/text-out models.
//
// Generate runs every prompt through the model and returns one slice of
// generations per prompt, in prompt order. Stop, when non-nil, carries
// stop sequences for this call only.
type LLM interface {
	Generate(ctx context.Context, prompts []string, stop []string) (*LLMResult, error)
	// Type names the provider backing the model (e.g. "openai").
	Type() string
}

// Generation is a single candidate text produced for a prompt.
type Generation struct {
	// Text is the generated text.
	Text string `json:"text"`
	// GenerationInfo carries provider-specific metadata such as the
	// finish reason or log probabilities.
	GenerationInfo map[string]any `json:"generation_info,omitempty"`
}

// LLMResult is the outcome of a Generate call.
type LLMResult struct {
	// Generations holds one slice per input prompt.
	Generations [][]Generation `json:"generations"`
	// LLMOutput carries provider-level metadata such as token usage
	// and the model name.
	LLMOutput map[string]any `json:"llm_output,omitempty"`
}

// Well-known keys used in Generation.GenerationInfo and LLMResult.LLMOutput.
const (
	InfoFinishReason = "finish_reason"
	InfoLogprobs     = "logprobs"
	OutputTokenUsage = "token_usage"
	OutputModelName  = "model_name"
)

// TokenUsage counts tokens consumed by a call.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Add returns the component-wise sum of u and other.
func (u TokenUsage) Add(other TokenUsage) TokenUsage {
	return TokenUsage{
		PromptTokens:     u.PromptTokens + other.PromptTokens,
		CompletionTokens: u.CompletionTokens + other.CompletionTokens,
		TotalTokens:      u.TotalTokens + other.TotalTokens,
	}
}

// TokenUsage returns the usage recorded in LLMOutput, if any.
func (r *LLMResult) TokenUsage() (TokenUsage, bool) {
	if r == nil || r.LLMOutput == nil {
		return TokenUsage{}, false
	}
	u, ok := r.LLMOutput[OutputTokenUsage].(TokenUsage)
	return u, ok
}

// ModelName returns the model name recorded in LLMOutput, if any.
func (r *LLMResult) ModelName() string {
	if r == nil || r.LLMOutput == nil {
		return ""
	}
	name, _ := r.LLMOutput[OutputModelName].(string)
	return name
}

// FinishReason returns the finish reason recorded for g, if any.
func (g Generation) FinishReason() string {
	if g.GenerationInfo == nil {
		return ""
	}
	reason, _ := g.GenerationInfo[InfoFinishReason].(string)
	return reason
}

package openai

import (
	"context"
	"maps"

	"github.com/ncecere/llm-sdk/provider"
)

// Default completion settings.
const (
	DefaultCompletionModel = "gpt-3.5-turbo-instruct"
	DefaultTemperature     = 0.7
	DefaultMaxTokens       = 256
	DefaultBatchSize       = 20
)

// CompletionSettings are the sampling parameters sent with every request
// issued by a CompletionLLM.
type CompletionSettings struct {
	ModelName   string
	Temperature float64
	// MaxTokens of -1 means "as many as the model context allows" and
	// is only valid for single-prompt calls.
	MaxTokens        int
	TopP             float64
	FrequencyPenalty float64
	PresencePenalty  float64
	// N is the number of completions generated for each prompt.
	N int
	// BestOf generates BestOf candidates server-side and returns the best N.
	BestOf    int
	LogitBias map[string]float64
	Logprobs  *int
	// Stop holds default stop sequences. They may not be combined with
	// per-call stop sequences.
	Stop []string
	User string
	// ModelKwargs holds extra request parameters not covered above.
	ModelKwargs map[string]any
	// BatchSize is the maximum number of prompts sent in one request.
	BatchSize int
}

// DefaultCompletionSettings returns the settings a CompletionLLM starts from.
func DefaultCompletionSettings() CompletionSettings {
	return CompletionSettings{
		ModelName:   DefaultCompletionModel,
		Temperature: DefaultTemperature,
		MaxTokens:   DefaultMaxTokens,
		TopP:        1,
		N:           1,
		BestOf:      1,
		BatchSize:   DefaultBatchSize,
	}
}

// CompletionOption customizes a CompletionLLM.
type CompletionOption func(*CompletionLLM)

func WithModel(name string) CompletionOption {
	return func(m *CompletionLLM) { m.settings.ModelName = name }
}

func WithTemperature(v float64) CompletionOption {
	return func(m *CompletionLLM) { m.settings.Temperature = v }
}

func WithMaxTokens(v int) CompletionOption {
	return func(m *CompletionLLM) { m.settings.MaxTokens = v }
}

func WithTopP(v float64) CompletionOption {
	return func(m *CompletionLLM) { m.settings.TopP = v }
}

func WithFrequencyPenalty(v float64) CompletionOption {
	return func(m *CompletionLLM) { m.settings.FrequencyPenalty = v }
}

func WithPresencePenalty(v float64) CompletionOption {
	return func(m *CompletionLLM) { m.settings.PresencePenalty = v }
}

// WithN sets how many completions are generated per prompt.
func WithN(v int) CompletionOption {
	return func(m *CompletionLLM) { m.settings.N = v }
}

func WithBestOf(v int) CompletionOption {
	return func(m *CompletionLLM) { m.settings.BestOf = v }
}

func WithLogitBias(bias map[string]float64) CompletionOption {
	return func(m *CompletionLLM) { m.settings.LogitBias = maps.Clone(bias) }
}

// WithLogprobs requests the log probabilities of the top v tokens.
func WithLogprobs(v int) CompletionOption {
	return func(m *CompletionLLM) { m.settings.Logprobs = &v }
}

// WithStop sets default stop sequences.
func WithStop(stop ...string) CompletionOption {
	return func(m *CompletionLLM) { m.settings.Stop = stop }
}

func WithUser(user string) CompletionOption {
	return func(m *CompletionLLM) { m.settings.User = user }
}

// WithModelKwargs adds request parameters that have no dedicated option.
func WithModelKwargs(kwargs map[string]any) CompletionOption {
	return func(m *CompletionLLM) {
		if m.settings.ModelKwargs == nil {
			m.settings.ModelKwargs = make(map[string]any, len(kwargs))
		}
		maps.Copy(m.settings.ModelKwargs, kwargs)
	}
}

func WithBatchSize(v int) CompletionOption {
	return func(m *CompletionLLM) { m.settings.BatchSize = v }
}

// WithSettings replaces all settings at once.
func WithSettings(s CompletionSettings) CompletionOption {
	return func(m *CompletionLLM) { m.settings = s }
}

// WithTokenizer sets the tokenizer used to resolve MaxTokens of -1.
func WithTokenizer(t Tokenizer) CompletionOption {
	return func(m *CompletionLLM) { m.tokenizer = t }
}

// CompletionLLM adapts the OpenAI /v1/completions endpoint to
// provider.LLM.
type CompletionLLM struct {
	client    CompletionsAPI
	tokenizer Tokenizer
	settings  CompletionSettings
}

var _ provider.LLM = (*CompletionLLM)(nil)

// NewCompletionLLM builds a CompletionLLM that sends its requests through
// client. The resulting settings are validated.
func NewCompletionLLM(client CompletionsAPI, opts ...CompletionOption) (*CompletionLLM, error) {
	m := &CompletionLLM{
		client:   client,
		settings: DefaultCompletionSettings(),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.client == nil {
		return nil, &InvalidArgumentError{Parameter: "client", Value: nil, Message: "client must not be nil"}
	}
	if err := m.settings.Validate(); err != nil {
		return nil, err
	}
	if m.tokenizer == nil {
		m.tokenizer = NewTiktokenTokenizer()
	}
	return m, nil
}

// CompletionModel returns a CompletionLLM for the given completion model
// ID, bound to this client.
func (c *Client) CompletionModel(model string, opts ...CompletionOption) (*CompletionLLM, error) {
	return NewCompletionLLM(c, append([]CompletionOption{WithModel(model)}, opts...)...)
}

// Type implements provider.LLM.
func (m *CompletionLLM) Type() string {
	return "openai"
}

// Settings returns a copy of the model's settings.
func (m *CompletionLLM) Settings() CompletionSettings {
	s := m.settings
	s.LogitBias = maps.Clone(s.LogitBias)
	s.ModelKwargs = maps.Clone(s.ModelKwargs)
	s.Stop = append([]string(nil), s.Stop...)
	return s
}

// DefaultParams returns the request parameters sent with every call,
// keyed by their wire names.
func (m *CompletionLLM) DefaultParams() map[string]any {
	s := m.settings
	params := map[string]any{
		"temperature":       s.Temperature,
		"max_tokens":        s.MaxTokens,
		"top_p":             s.TopP,
		"frequency_penalty": s.FrequencyPenalty,
		"presence_penalty":  s.PresencePenalty,
		"n":                 s.N,
		"best_of":           s.BestOf,
	}
	if len(s.LogitBias) > 0 {
		params["logit_bias"] = maps.Clone(s.LogitBias)
	}
	if s.Logprobs != nil {
		params["logprobs"] = *s.Logprobs
	}
	maps.Copy(params, s.ModelKwargs)
	return params
}

// IdentifyingParams returns the parameters that distinguish this model
// configuration from another one.
func (m *CompletionLLM) IdentifyingParams() map[string]any {
	params := m.DefaultParams()
	params["model_name"] = m.settings.ModelName
	return params
}

// MaxTokensForPrompt returns how many tokens can still be generated
// after prompt within the model's context window.
func (m *CompletionLLM) MaxTokensForPrompt(prompt string) (int, error) {
	size, err := ModelContextSize(m.settings.ModelName)
	if err != nil {
		return 0, err
	}
	n, err := m.tokenizer.CountTokens(m.settings.ModelName, prompt)
	if err != nil {
		return 0, err
	}
	return size - n, nil
}

// Generate implements provider.LLM.
//
// All prompts are sent with the configured parameters, BatchSize prompts
// per request. The flat list of returned choices is split into groups of
// N, one group per prompt.
func (m *CompletionLLM) Generate(ctx context.Context, prompts []string, stop []string) (*provider.LLMResult, error) {
	if len(prompts) == 0 {
		return m.createLLMResult(nil, 0, provider.TokenUsage{}), nil
	}

	params, err := m.requestParams(prompts, stop)
	if err != nil {
		return nil, err
	}

	var (
		choices []CompletionChoice
		usage   provider.TokenUsage
	)
	for _, batch := range batchPrompts(prompts, m.settings.BatchSize) {
		req := *params
		req.Prompt = batch

		resp, err := m.client.CreateCompletion(ctx, &req)
		if err != nil {
			return nil, err
		}
		choices = append(choices, resp.Choices...)
		if resp.Usage != nil {
			usage = usage.Add(provider.TokenUsage{
				PromptTokens:     resp.Usage.PromptTokens,
				CompletionTokens: resp.Usage.CompletionTokens,
				TotalTokens:      resp.Usage.TotalTokens,
			})
		}
	}

	return m.createLLMResult(choices, len(prompts), usage), nil
}

func (m *CompletionLLM) requestParams(prompts []string, stop []string) (*CompletionRequest, error) {
	s := m.settings
	req := &CompletionRequest{
		Model:            s.ModelName,
		Temperature:      s.Temperature,
		MaxTokens:        s.MaxTokens,
		TopP:             s.TopP,
		FrequencyPenalty: s.FrequencyPenalty,
		PresencePenalty:  s.PresencePenalty,
		N:                s.N,
		BestOf:           s.BestOf,
		LogitBias:        s.LogitBias,
		Logprobs:         s.Logprobs,
		Stop:             s.Stop,
		User:             s.User,
		Extra:            s.ModelKwargs,
	}

	if stop != nil {
		if len(s.Stop) > 0 {
			return nil, ErrStopConflict
		}
		req.Stop = stop
	}

	if s.MaxTokens == -1 {
		if len(prompts) != 1 {
			return nil, ErrMaxTokensMultiplePrompts
		}
		maxTokens, err := m.MaxTokensForPrompt(prompts[0])
		if err != nil {
			return nil, err
		}
		if maxTokens <= 0 {
			return nil, &InvalidArgumentError{
				Parameter: "prompt",
				Value:     maxTokens,
				Message:   "prompt fills the context window of " + m.settings.ModelName,
			}
		}
		req.MaxTokens = maxTokens
	}

	return req, nil
}

func (m *CompletionLLM) createLLMResult(choices []CompletionChoice, numPrompts int, usage provider.TokenUsage) *provider.LLMResult {
	n := m.settings.N
	generations := make([][]provider.Generation, 0, numPrompts)
	for i := range numPrompts {
		lo := min(i*n, len(choices))
		hi := min((i+1)*n, len(choices))

		group := make([]provider.Generation, 0, hi-lo)
		for _, choice := range choices[lo:hi] {
			group = append(group, provider.Generation{
				Text: choice.Text,
				GenerationInfo: map[string]any{
					provider.InfoFinishReason: choice.FinishReason,
					provider.InfoLogprobs:     choice.Logprobs,
				},
			})
		}
		generations = append(generations, group)
	}

	return &provider.LLMResult{
		Generations: generations,
		LLMOutput: map[string]any{
			provider.OutputTokenUsage: usage,
			provider.OutputModelName:  m.settings.ModelName,
		},
	}
}

// batchPrompts splits prompts into consecutive chunks of at most size.
func batchPrompts(prompts []string, size int) [][]string {
	var batches [][]string
	for start := 0; start < len(prompts); start += size {
		batches = append(batches, prompts[start:min(start+size, len(prompts))])
	}
	return batches
}

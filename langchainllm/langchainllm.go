// Package langchainllm exposes a provider.LLM as a langchaingo llms.Model so
// completion models can be dropped into langchaingo chains and agents.
//
// Sampling parameters belong to the wrapped model and are fixed when it is
// built. The only per-call option honoured is llms.WithStopWords; any other
// non-zero call option is rejected with ErrUnsupportedOption.
package langchainllm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms"

	"github.com/ncecere/llm-sdk/provider"
)

// ErrUnsupportedContent is returned when a message carries a part other
// than plain text.
var ErrUnsupportedContent = errors.New("langchainllm: only text content is supported")

// ErrUnsupportedOption is returned when a call option other than stop words
// is set.
var ErrUnsupportedOption = errors.New("langchainllm: unsupported call option")

// Model adapts a provider.LLM to llms.Model.
type Model struct {
	llm provider.LLM
}

var _ llms.Model = (*Model)(nil)

// New wraps m.
func New(m provider.LLM) *Model {
	return &Model{llm: m}
}

// Call implements llms.Model.
func (m *Model) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, m, prompt, options...)
}

// GenerateContent flattens the text parts of messages into a single prompt
// and returns one choice per generated completion.
func (m *Model) GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	opts := llms.CallOptions{}
	for _, opt := range options {
		opt(&opts)
	}
	if names := unsupportedOptions(opts); len(names) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedOption, strings.Join(names, ", "))
	}

	prompt, err := flatten(messages)
	if err != nil {
		return nil, err
	}

	res, err := m.llm.Generate(ctx, []string{prompt}, opts.StopWords)
	if err != nil {
		return nil, err
	}

	usage, hasUsage := res.TokenUsage()
	resp := &llms.ContentResponse{}
	if len(res.Generations) == 0 {
		return resp, nil
	}
	for _, g := range res.Generations[0] {
		info := make(map[string]any, len(g.GenerationInfo)+3)
		for k, v := range g.GenerationInfo {
			info[k] = v
		}
		if hasUsage {
			info["PromptTokens"] = usage.PromptTokens
			info["CompletionTokens"] = usage.CompletionTokens
			info["TotalTokens"] = usage.TotalTokens
		}
		resp.Choices = append(resp.Choices, &llms.ContentChoice{
			Content:        g.Text,
			StopReason:     g.FinishReason(),
			GenerationInfo: info,
		})
	}
	return resp, nil
}

// unsupportedOptions names the fields of opts that would change the request
// but cannot be forwarded through provider.LLM.
func unsupportedOptions(opts llms.CallOptions) []string {
	var names []string
	check := func(name string, set bool) {
		if set {
			names = append(names, name)
		}
	}
	check("model", opts.Model != "")
	check("candidate_count", opts.CandidateCount != 0)
	check("max_tokens", opts.MaxTokens != 0)
	check("temperature", opts.Temperature != 0)
	check("streaming_func", opts.StreamingFunc != nil)
	check("top_k", opts.TopK != 0)
	check("top_p", opts.TopP != 0)
	check("seed", opts.Seed != 0)
	check("min_length", opts.MinLength != 0)
	check("max_length", opts.MaxLength != 0)
	check("n", opts.N != 0)
	check("repetition_penalty", opts.RepetitionPenalty != 0)
	check("frequency_penalty", opts.FrequencyPenalty != 0)
	check("presence_penalty", opts.PresencePenalty != 0)
	check("json", opts.JSONMode)
	check("tools", len(opts.Tools) > 0 || len(opts.Functions) > 0 || opts.ToolChoice != nil)
	check("response_mime_type", opts.ResponseMIMEType != "")
	return names
}

func flatten(messages []llms.MessageContent) (string, error) {
	var sb strings.Builder
	for i, msg := range messages {
		if i > 0 {
			sb.WriteString("\n")
		}
		for _, part := range msg.Parts {
			switch p := part.(type) {
			case llms.TextContent:
				sb.WriteString(p.Text)
			case *llms.TextContent:
				sb.WriteString(p.Text)
			default:
				return "", fmt.Errorf("%w: got %T", ErrUnsupportedContent, part)
			}
		}
	}
	return sb.String(), nil
}

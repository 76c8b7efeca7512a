package langchainllm

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"

	"github.com/ncecere/llm-sdk/provider"
)

type recordingLLM struct {
	prompts []string
	stop    []string
	res     *provider.LLMResult
	err     error
}

func (r *recordingLLM) Generate(ctx context.Context, prompts []string, stop []string) (*provider.LLMResult, error) {
	r.prompts = prompts
	r.stop = stop
	return r.res, r.err
}

func (r *recordingLLM) Type() string { return "recording" }

func twoChoices() *provider.LLMResult {
	return &provider.LLMResult{
		Generations: [][]provider.Generation{{
			{Text: "a", GenerationInfo: map[string]any{provider.InfoFinishReason: "stop"}},
			{Text: "b", GenerationInfo: map[string]any{provider.InfoFinishReason: "length"}},
		}},
		LLMOutput: map[string]any{
			provider.OutputTokenUsage: provider.TokenUsage{PromptTokens: 4, CompletionTokens: 2, TotalTokens: 6},
		},
	}
}

func TestGenerateContent(t *testing.T) {
	base := &recordingLLM{res: twoChoices()}
	model := New(base)

	resp, err := model.GenerateContent(context.Background(), []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, "You are terse."),
		llms.TextParts(llms.ChatMessageTypeHuman, "Say ", "hi"),
	}, llms.WithStopWords([]string{"\n\n"}))
	require.NoError(t, err)

	assert.Equal(t, []string{"You are terse.\nSay hi"}, base.prompts)
	assert.Equal(t, []string{"\n\n"}, base.stop)

	require.Len(t, resp.Choices, 2)
	assert.Equal(t, "a", resp.Choices[0].Content)
	assert.Equal(t, "stop", resp.Choices[0].StopReason)
	assert.Equal(t, "length", resp.Choices[1].StopReason)
	assert.Equal(t, 6, resp.Choices[0].GenerationInfo["TotalTokens"])
	assert.Equal(t, "stop", resp.Choices[0].GenerationInfo[provider.InfoFinishReason])
}

func TestCall(t *testing.T) {
	base := &recordingLLM{res: twoChoices()}

	out, err := New(base).Call(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, "a", out)
	assert.Equal(t, []string{"hello"}, base.prompts)
	assert.Nil(t, base.stop)
}

func TestGenerateContent_RejectsNonText(t *testing.T) {
	base := &recordingLLM{res: twoChoices()}

	_, err := New(base).GenerateContent(context.Background(), []llms.MessageContent{{
		Role:  llms.ChatMessageTypeHuman,
		Parts: []llms.ContentPart{llms.ImageURLContent{URL: "https://example.com/cat.png"}},
	}})
	assert.ErrorIs(t, err, ErrUnsupportedContent)
	assert.Nil(t, base.prompts, "no request is made")
}

func TestGenerateContent_PassesErrorThrough(t *testing.T) {
	boom := errors.New("boom")
	_, err := New(&recordingLLM{err: boom}).GenerateContent(context.Background(), []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeHuman, "x"),
	})
	assert.Same(t, boom, err)
}

func TestGenerateContent_RejectsSamplingOptions(t *testing.T) {
	tests := []struct {
		name string
		opts []llms.CallOption
		want string
	}{
		{"temperature", []llms.CallOption{llms.WithTemperature(0.7)}, "temperature"},
		{"max tokens", []llms.CallOption{llms.WithMaxTokens(16)}, "max_tokens"},
		{"model", []llms.CallOption{llms.WithModel("davinci-002")}, "model"},
		{"seed with stop words", []llms.CallOption{llms.WithStopWords([]string{"\n"}), llms.WithSeed(3)}, "seed"},
		{"streaming", []llms.CallOption{llms.WithStreamingFunc(func(context.Context, []byte) error { return nil })}, "streaming_func"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			base := &recordingLLM{res: twoChoices()}

			_, err := New(base).GenerateContent(context.Background(), []llms.MessageContent{
				llms.TextParts(llms.ChatMessageTypeHuman, "x"),
			}, tt.opts...)
			require.ErrorIs(t, err, ErrUnsupportedOption)
			assert.Contains(t, err.Error(), tt.want)
			assert.Nil(t, base.prompts, "no request is made")
		})
	}
}

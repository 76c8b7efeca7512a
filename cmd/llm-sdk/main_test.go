package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ncecere/llm-sdk/internal/config"
	"github.com/ncecere/llm-sdk/provider"
)

func TestRenderResult(t *testing.T) {
	var buf bytes.Buffer
	renderResult(&buf, []string{"p1", "p2"}, &provider.LLMResult{
		Generations: [][]provider.Generation{
			{{Text: "one", GenerationInfo: map[string]any{provider.InfoFinishReason: "stop"}}},
			{{Text: "two", GenerationInfo: map[string]any{provider.InfoFinishReason: "length"}}},
		},
		LLMOutput: map[string]any{
			provider.OutputTokenUsage: provider.TokenUsage{PromptTokens: 2, CompletionTokens: 2, TotalTokens: 4},
			provider.OutputModelName:  "gpt-3.5-turbo-instruct",
		},
	})

	out := buf.String()
	assert.Contains(t, out, "p1")
	assert.Contains(t, out, "length")
	assert.Contains(t, out, "model=gpt-3.5-turbo-instruct prompt_tokens=2 completion_tokens=2 total_tokens=4")
}

func TestGenerateOverrides(t *testing.T) {
	cmd := generateCmd()
	require.NoError(t, cmd.ParseFlags([]string{"--temperature", "0", "--max-tokens", "-1", "--n", "3"}))

	var f generateFlags
	f.temperature, _ = cmd.Flags().GetFloat64("temperature")
	f.maxTokens, _ = cmd.Flags().GetInt("max-tokens")
	f.n, _ = cmd.Flags().GetInt("n")

	spec := config.ModelSpec{Name: "x", Model: "m"}
	overrides := f.overrides(cmd)
	require.Len(t, overrides, 3)
	for _, apply := range overrides {
		apply(&spec)
	}
	assert.Equal(t, 0.0, *spec.Temperature)
	assert.Equal(t, -1, *spec.MaxTokens)
	assert.Equal(t, 3, *spec.N)
	assert.Nil(t, spec.BestOf)
}

func TestFormatParams(t *testing.T) {
	assert.Equal(t, "model_name=m n=1", formatParams(map[string]any{"n": 1, "model_name": "m"}))
	assert.Empty(t, formatParams(nil))
}

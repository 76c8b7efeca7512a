package provider

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTokenUsageAdd(t *testing.T) {
	a := TokenUsage{PromptTokens: 3, CompletionTokens: 4, TotalTokens: 7}
	b := TokenUsage{PromptTokens: 1, CompletionTokens: 2, TotalTokens: 3}

	assert.Equal(t, TokenUsage{PromptTokens: 4, CompletionTokens: 6, TotalTokens: 10}, a.Add(b))
}

func TestLLMResultAccessors(t *testing.T) {
	var nilResult *LLMResult
	_, ok := nilResult.TokenUsage()
	assert.False(t, ok)
	assert.Empty(t, nilResult.ModelName())

	res := &LLMResult{
		Generations: [][]Generation{{{
			Text:           "hi",
			GenerationInfo: map[string]any{InfoFinishReason: "stop"},
		}}},
		LLMOutput: map[string]any{
			OutputTokenUsage: TokenUsage{TotalTokens: 5},
			OutputModelName:  "gpt-3.5-turbo-instruct",
		},
	}

	usage, ok := res.TokenUsage()
	assert.True(t, ok)
	assert.Equal(t, 5, usage.TotalTokens)
	assert.Equal(t, "gpt-3.5-turbo-instruct", res.ModelName())
	assert.Equal(t, "stop", res.Generations[0][0].FinishReason())
	assert.Empty(t, Generation{Text: "x"}.FinishReason())
}

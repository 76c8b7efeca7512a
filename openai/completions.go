package openai

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/tidwall/sjson"
)

// CompletionsAPI is the client surface the completion adapter depends on.
// *Client implements it; tests and decorators may substitute their own.
type CompletionsAPI interface {
	CreateCompletion(ctx context.Context, req *CompletionRequest) (*CompletionResponse, error)
}

var _ CompletionsAPI = (*Client)(nil)

// CompletionRequest is the JSON body of POST /v1/completions.
//
// Sampling parameters are always sent, including zero values, so the
// configured values reach the API unchanged.
type CompletionRequest struct {
	Model            string             `json:"model"`
	Prompt           []string           `json:"prompt"`
	Temperature      float64            `json:"temperature"`
	MaxTokens        int                `json:"max_tokens"`
	TopP             float64            `json:"top_p"`
	FrequencyPenalty float64            `json:"frequency_penalty"`
	PresencePenalty  float64            `json:"presence_penalty"`
	N                int                `json:"n"`
	BestOf           int                `json:"best_of"`
	LogitBias        map[string]float64 `json:"logit_bias,omitempty"`
	Logprobs         *int               `json:"logprobs,omitempty"`
	Stop             []string           `json:"stop,omitempty"`
	User             string             `json:"user,omitempty"`

	// Extra holds additional top-level keys merged into the JSON body.
	Extra map[string]any `json:"-"`
}

// CompletionResponse is the JSON answer of POST /v1/completions.
type CompletionResponse struct {
	ID      string             `json:"id"`
	Object  string             `json:"object"`
	Created int64              `json:"created"`
	Model   string             `json:"model"`
	Choices []CompletionChoice `json:"choices"`
	Usage   *CompletionUsage   `json:"usage,omitempty"`
}

// CompletionChoice is a single generated candidate.
type CompletionChoice struct {
	Text         string    `json:"text"`
	Index        int       `json:"index"`
	Logprobs     *Logprobs `json:"logprobs"`
	FinishReason string    `json:"finish_reason"`
}

// Logprobs carries per-token log probabilities when requested.
type Logprobs struct {
	Tokens        []string             `json:"tokens"`
	TokenLogprobs []float64            `json:"token_logprobs"`
	TopLogprobs   []map[string]float64 `json:"top_logprobs"`
	TextOffset    []int                `json:"text_offset"`
}

// CompletionUsage reports token consumption for one request.
type CompletionUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// CreateCompletion posts req to the completions endpoint.
func (c *Client) CreateCompletion(ctx context.Context, req *CompletionRequest) (*CompletionResponse, error) {
	buf, err := marshalBody(req, req.Extra)
	if err != nil {
		return nil, fmt.Errorf("openai: encoding completion request: %w", err)
	}

	var out CompletionResponse
	if err := c.postJSON(ctx, c.completionsURL(), buf, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// pathEscaper escapes every character sjson or gjson read as path syntax,
// so each extra key is written verbatim at the top level.
var pathEscaper = strings.NewReplacer(
	`\`, `\\`,
	".", `\.`,
	"*", `\*`,
	"?", `\?`,
	"|", `\|`,
	"#", `\#`,
	"@", `\@`,
	"!", `\!`,
	"=", `\=`,
	"<", `\<`,
	">", `\>`,
	"%", `\%`,
	":", `\:`,
)

// spliceExtra sets each extra key at the top level of the JSON object in buf.
// Keys are applied in sorted order so the output is deterministic.
func spliceExtra(buf []byte, extra map[string]any) ([]byte, error) {
	if len(extra) == 0 {
		return buf, nil
	}
	keys := make([]string, 0, len(extra))
	for k := range extra {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	var err error
	for _, k := range keys {
		buf, err = sjson.SetBytes(buf, pathEscaper.Replace(k), extra[k])
		if err != nil {
			return nil, fmt.Errorf("openai: setting extra parameter %q: %w", k, err)
		}
	}
	return buf, nil
}

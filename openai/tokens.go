package openai

import (
	"fmt"
	"strings"
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

// fallbackEncoding is used for models tiktoken does not know about.
const fallbackEncoding = "cl100k_base"

// Tokenizer counts the tokens a model sees for a piece of text.
type Tokenizer interface {
	CountTokens(model, text string) (int, error)
}

// TiktokenTokenizer counts tokens with the BPE encodings published by
// OpenAI. Encodings are loaded lazily and cached per model.
type TiktokenTokenizer struct {
	mu        sync.Mutex
	encodings map[string]*tiktoken.Tiktoken
}

// NewTiktokenTokenizer returns an empty TiktokenTokenizer.
func NewTiktokenTokenizer() *TiktokenTokenizer {
	return &TiktokenTokenizer{encodings: make(map[string]*tiktoken.Tiktoken)}
}

// CountTokens implements Tokenizer.
func (t *TiktokenTokenizer) CountTokens(model, text string) (int, error) {
	enc, err := t.encoding(model)
	if err != nil {
		return 0, err
	}
	return len(enc.Encode(text, nil, nil)), nil
}

func (t *TiktokenTokenizer) encoding(model string) (*tiktoken.Tiktoken, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if enc, ok := t.encodings[model]; ok {
		return enc, nil
	}
	enc, err := tiktoken.EncodingForModel(model)
	if err != nil {
		enc, err = tiktoken.GetEncoding(fallbackEncoding)
		if err != nil {
			return nil, fmt.Errorf("openai: loading encoding for %s: %w", model, err)
		}
	}
	t.encodings[model] = enc
	return enc, nil
}

var modelContextSizes = map[string]int{
	"gpt-3.5-turbo-instruct": 4096,
	"text-davinci-003":       4097,
	"text-davinci-002":       4097,
	"code-davinci-002":       8001,
	"code-davinci-001":       8001,
	"code-cushman-002":       2048,
	"code-cushman-001":       2048,
	"text-curie-001":         2049,
	"text-babbage-001":       2049,
	"text-ada-001":           2049,
	"davinci-002":            16384,
	"babbage-002":            16384,
	"davinci":                2049,
	"curie":                  2049,
	"babbage":                2049,
	"ada":                    2049,
}

// ModelContextSize returns the maximum number of tokens (prompt plus
// completion) a completion model accepts. Fine-tuned model names such as
// "ft:davinci-002:org::id" resolve to their base model.
func ModelContextSize(model string) (int, error) {
	name := model
	if base, ok := strings.CutPrefix(name, "ft:"); ok {
		name, _, _ = strings.Cut(base, ":")
	}
	size, ok := modelContextSizes[name]
	if !ok {
		return 0, &InvalidArgumentError{
			Parameter: "model",
			Value:     model,
			Message:   "unknown context size for model",
		}
	}
	return size, nil
}

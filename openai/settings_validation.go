package openai

// reservedParams are request keys owned by typed settings or by
// features this package does not support.
var reservedParams = map[string]string{
	"model":             "use ModelName",
	"prompt":            "prompts are passed to Generate",
	"temperature":       "use Temperature",
	"max_tokens":        "use MaxTokens",
	"top_p":             "use TopP",
	"frequency_penalty": "use FrequencyPenalty",
	"presence_penalty":  "use PresencePenalty",
	"n":                 "use N",
	"best_of":           "use BestOf",
	"logit_bias":        "use LogitBias",
	"logprobs":          "use Logprobs",
	"stop":              "use Stop",
	"user":              "use User",
	"stream":            "streaming is not supported",
}

// Validate reports the first out-of-range setting as an
// *InvalidArgumentError.
func (s CompletionSettings) Validate() error {
	if s.ModelName == "" {
		return &InvalidArgumentError{Parameter: "model_name", Value: s.ModelName, Message: "must not be empty"}
	}
	if s.Temperature < 0 || s.Temperature > 2 {
		return &InvalidArgumentError{Parameter: "temperature", Value: s.Temperature, Message: "must be between 0 and 2"}
	}
	if s.TopP <= 0 || s.TopP > 1 {
		return &InvalidArgumentError{Parameter: "top_p", Value: s.TopP, Message: "must be in the range (0, 1]"}
	}
	if s.MaxTokens != -1 && s.MaxTokens <= 0 {
		return &InvalidArgumentError{Parameter: "max_tokens", Value: s.MaxTokens, Message: "must be greater than 0 or -1"}
	}
	if s.FrequencyPenalty < -2 || s.FrequencyPenalty > 2 {
		return &InvalidArgumentError{Parameter: "frequency_penalty", Value: s.FrequencyPenalty, Message: "must be between -2 and 2"}
	}
	if s.PresencePenalty < -2 || s.PresencePenalty > 2 {
		return &InvalidArgumentError{Parameter: "presence_penalty", Value: s.PresencePenalty, Message: "must be between -2 and 2"}
	}
	if s.N < 1 {
		return &InvalidArgumentError{Parameter: "n", Value: s.N, Message: "must be at least 1"}
	}
	if s.BestOf < s.N {
		return &InvalidArgumentError{Parameter: "best_of", Value: s.BestOf, Message: "must be greater than or equal to n"}
	}
	if s.Logprobs != nil && (*s.Logprobs < 0 || *s.Logprobs > 5) {
		return &InvalidArgumentError{Parameter: "logprobs", Value: *s.Logprobs, Message: "must be between 0 and 5"}
	}
	if s.BatchSize < 1 {
		return &InvalidArgumentError{Parameter: "batch_size", Value: s.BatchSize, Message: "must be at least 1"}
	}
	for k := range s.ModelKwargs {
		if k == "" {
			return &InvalidArgumentError{Parameter: "model_kwargs", Value: k, Message: "parameter names must not be empty"}
		}
		if hint, ok := reservedParams[k]; ok {
			return &InvalidArgumentError{Parameter: "model_kwargs", Value: k, Message: "parameter " + k + " is reserved: " + hint}
		}
	}
	return nil
}

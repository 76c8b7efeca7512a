package openai

import "errors"

var (
	// ErrStopConflict is returned when stop sequences are passed to
	// Generate while the model is also configured with default ones.
	ErrStopConflict = errors.New("openai: stop found in both the input and default params")

	// ErrMaxTokensMultiplePrompts is returned when MaxTokens is -1 and
	// more than one prompt is passed to Generate.
	ErrMaxTokensMultiplePrompts = errors.New("openai: max_tokens set to -1 not supported for multiple inputs")
)

// InvalidArgumentError indicates that a completion setting is out of range.
type InvalidArgumentError struct {
	// Parameter is the name of the invalid parameter.
	Parameter string
	// Value is the offending value.
	Value any
	// Message describes why the value is considered invalid.
	Message string
}

func (e *InvalidArgumentError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return "openai: invalid argument for parameter " + e.Parameter + ": " + e.Message
}

package llm

import "errors"

// Package-level error values and types returned by the llm package.
var (
	// ErrMissingModel is returned when a helper is called without an LLM.
	ErrMissingModel = errors.New("llm: missing LLM in request")

	// ErrNoGenerations is returned by Call when the model produced no
	// generation for the prompt.
	ErrNoGenerations = errors.New("llm: no generations returned")
)

// InvalidArgumentError indicates that a function argument is invalid.
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
	return "llm: invalid argument for parameter " + e.Parameter + ": " + e.Message
}

package llm

import (
	"context"

	"github.com/ncecere/llm-sdk/provider"
	"github.com/ncecere/llm-sdk/registry"
)

// Aliases to provider-level types so users can work through the llm package
// while providers implement the shared interfaces.
type (
	// LLM is a provider-agnostic text-completion model.
	LLM = provider.LLM
	// Generation is a single candidate text produced for a prompt.
	Generation = provider.Generation
	// LLMResult holds the generations for a batch of prompts.
	LLMResult = provider.LLMResult
	// TokenUsage counts tokens consumed by a call.
	TokenUsage = provider.TokenUsage
)

// Generate runs prompts through model and returns its result unchanged.
//
// Errors:
//   - ErrMissingModel if model is nil.
//   - Any error returned by the underlying provider implementation. For
//     the OpenAI provider this includes HTTP and JSON decoding errors
//     originating from the OpenAI API.
func Generate(ctx context.Context, model LLM, prompts []string, stop []string) (*LLMResult, error) {
	if model == nil {
		return nil, ErrMissingModel
	}
	return model.Generate(ctx, prompts, stop)
}

// Call is a convenience helper for the common case of a single prompt
// and plain text response. It returns the text of the first generation.
//
// Errors:
//   - ErrMissingModel if model is nil.
//   - ErrNoGenerations if the model returned nothing for the prompt.
//   - Any error returned by Generate.
func Call(ctx context.Context, model LLM, prompt string, stop []string) (string, error) {
	res, err := Generate(ctx, model, []string{prompt}, stop)
	if err != nil {
		return "", err
	}
	if len(res.Generations) == 0 || len(res.Generations[0]) == 0 {
		return "", ErrNoGenerations
	}
	return res.Generations[0][0].Text, nil
}

// GenerateWithRegistry looks up the model by name in the provided
// registry and then delegates to Generate.
//
// Errors:
//   - InvalidArgumentError if reg is nil.
//   - Any error returned by reg.LLM.
//   - Any error returned by Generate.
func GenerateWithRegistry(ctx context.Context, reg registry.Registry, modelName string, prompts []string, stop []string) (*LLMResult, error) {
	if reg == nil {
		return nil, &InvalidArgumentError{Parameter: "reg", Value: nil, Message: "registry must not be nil"}
	}

	model, err := reg.LLM(modelName)
	if err != nil {
		return nil, err
	}
	return Generate(ctx, model, prompts, stop)
}

// CallWithRegistry looks up the model by name in the provided registry
// and then delegates to Call.
func CallWithRegistry(ctx context.Context, reg registry.Registry, modelName, prompt string, stop []string) (string, error) {
	if reg == nil {
		return "", &InvalidArgumentError{Parameter: "reg", Value: nil, Message: "registry must not be nil"}
	}

	model, err := reg.LLM(modelName)
	if err != nil {
		return "", err
	}
	return Call(ctx, model, prompt, stop)
}

// Texts flattens a result into the generated texts of each prompt.
func Texts(res *LLMResult) [][]string {
	if res == nil {
		return nil
	}
	out := make([][]string, len(res.Generations))
	for i, gens := range res.Generations {
		out[i] = make([]string, len(gens))
		for j, g := range gens {
			out[i][j] = g.Text
		}
	}
	return out
}

package config

import (
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/ncecere/llm-sdk/middleware"
	"github.com/ncecere/llm-sdk/openai"
	"github.com/ncecere/llm-sdk/registry"
)

// ModelSpec is one entry of the model catalog. Unset fields keep the
// completion model defaults.
type ModelSpec struct {
	Name             string             `yaml:"name"              validate:"required"`
	Model            string             `yaml:"model"             validate:"required"`
	Temperature      *float64           `yaml:"temperature"       validate:"omitempty,gte=0,lte=2"`
	MaxTokens        *int               `yaml:"max_tokens"        validate:"omitempty,min=-1,ne=0"`
	TopP             *float64           `yaml:"top_p"             validate:"omitempty,gt=0,lte=1"`
	FrequencyPenalty *float64           `yaml:"frequency_penalty" validate:"omitempty,gte=-2,lte=2"`
	PresencePenalty  *float64           `yaml:"presence_penalty"  validate:"omitempty,gte=-2,lte=2"`
	N                *int               `yaml:"n"                 validate:"omitempty,min=1"`
	BestOf           *int               `yaml:"best_of"           validate:"omitempty,min=1"`
	Logprobs         *int               `yaml:"logprobs"          validate:"omitempty,min=0,max=5"`
	LogitBias        map[string]float64 `yaml:"logit_bias"`
	Stop             []string           `yaml:"stop"              validate:"omitempty,max=4"`
	User             string             `yaml:"user"`
	BatchSize        *int               `yaml:"batch_size"        validate:"omitempty,min=1"`
	ModelKwargs      map[string]any     `yaml:"model_kwargs"`
}

type Catalog struct {
	Models []ModelSpec `yaml:"models" validate:"required,min=1,unique=Name,dive"`
}

// DefaultCatalog serves a single model under its own name.
func DefaultCatalog(model string) *Catalog {
	return &Catalog{Models: []ModelSpec{{Name: model, Model: model}}}
}

func LoadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return ParseCatalog(data)
}

func ParseCatalog(data []byte) (*Catalog, error) {
	var cat Catalog
	if err := yaml.Unmarshal(data, &cat); err != nil {
		return nil, fmt.Errorf("parse YAML: %w", err)
	}

	validate := validator.New()
	if err := validate.Struct(cat); err != nil {
		return nil, fmt.Errorf("validation error: %w", err)
	}

	return &cat, nil
}

// Options converts the entry into completion model options.
func (s ModelSpec) Options() []openai.CompletionOption {
	opts := []openai.CompletionOption{openai.WithModel(s.Model)}
	if s.Temperature != nil {
		opts = append(opts, openai.WithTemperature(*s.Temperature))
	}
	if s.MaxTokens != nil {
		opts = append(opts, openai.WithMaxTokens(*s.MaxTokens))
	}
	if s.TopP != nil {
		opts = append(opts, openai.WithTopP(*s.TopP))
	}
	if s.FrequencyPenalty != nil {
		opts = append(opts, openai.WithFrequencyPenalty(*s.FrequencyPenalty))
	}
	if s.PresencePenalty != nil {
		opts = append(opts, openai.WithPresencePenalty(*s.PresencePenalty))
	}
	if s.N != nil {
		opts = append(opts, openai.WithN(*s.N))
	}
	if s.BestOf != nil {
		opts = append(opts, openai.WithBestOf(*s.BestOf))
	}
	if s.Logprobs != nil {
		opts = append(opts, openai.WithLogprobs(*s.Logprobs))
	}
	if len(s.LogitBias) > 0 {
		opts = append(opts, openai.WithLogitBias(s.LogitBias))
	}
	if len(s.Stop) > 0 {
		opts = append(opts, openai.WithStop(s.Stop...))
	}
	if s.User != "" {
		opts = append(opts, openai.WithUser(s.User))
	}
	if s.BatchSize != nil {
		opts = append(opts, openai.WithBatchSize(*s.BatchSize))
	}
	if len(s.ModelKwargs) > 0 {
		opts = append(opts, openai.WithModelKwargs(s.ModelKwargs))
	}
	return opts
}

// BuildRegistry constructs one completion model per catalog entry, wraps
// each with mws and registers it under its name.
func BuildRegistry(client openai.CompletionsAPI, cat *Catalog, mws ...middleware.LLMMiddleware) (*registry.InMemoryRegistry, error) {
	reg := registry.NewInMemoryRegistry()
	for _, spec := range cat.Models {
		model, err := openai.NewCompletionLLM(client, spec.Options()...)
		if err != nil {
			return nil, fmt.Errorf("model %q: %w", spec.Name, err)
		}
		reg.Register(spec.Name, middleware.WrapLLM(model, mws...))
	}
	return reg, nil
}

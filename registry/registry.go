package registry

import (
	"fmt"
	"slices"
	"sync"

	"github.com/ncecere/llm-sdk/provider"
)

// Registry is a simple, provider-agnostic registry for LLMs.
//
// It maps string model identifiers (for example, "default" or
// "openai:gpt-3.5-turbo-instruct") to concrete provider implementations.
// This allows application code and higher-level helpers to look up
// models by name without depending directly on specific provider
// packages.
type Registry interface {
	// LLM returns the registered model for the given name.
	// If no such model exists, a *NoSuchModelError is returned.
	LLM(name string) (provider.LLM, error)

	// Register registers or replaces a model under the given name.
	// Passing a nil model removes any existing registration for that name.
	Register(name string, model provider.LLM)

	// Names returns the registered names in sorted order.
	Names() []string
}

// NoSuchModelError indicates that a requested model name was not
// found in the registry.
type NoSuchModelError struct {
	// Name is the model name that was requested.
	Name string
}

func (e *NoSuchModelError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("registry: no such model %q", e.Name)
}

// InMemoryRegistry is a concurrency-safe in-memory implementation of Registry.
// It is suitable for typical application startup wiring where models are
// registered once and then used throughout the lifetime of the process.
type InMemoryRegistry struct {
	mu     sync.RWMutex
	models map[string]provider.LLM
}

// Ensure InMemoryRegistry implements Registry.
var _ Registry = (*InMemoryRegistry)(nil)

// NewInMemoryRegistry creates a new empty in-memory registry.
func NewInMemoryRegistry() *InMemoryRegistry {
	return &InMemoryRegistry{
		models: make(map[string]provider.LLM),
	}
}

// LLM implements Registry.LLM.
func (r *InMemoryRegistry) LLM(name string) (provider.LLM, error) {
	r.mu.RLock()
	model, ok := r.models[name]
	r.mu.RUnlock()
	if !ok || model == nil {
		return nil, &NoSuchModelError{Name: name}
	}
	return model, nil
}

// Register implements Registry.Register.
func (r *InMemoryRegistry) Register(name string, model provider.LLM) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if model == nil {
		delete(r.models, name)
		return
	}
	r.models[name] = model
}

// Names implements Registry.Names.
func (r *InMemoryRegistry) Names() []string {
	r.mu.RLock()
	names := make([]string, 0, len(r.models))
	for name := range r.models {
		names = append(names, name)
	}
	r.mu.RUnlock()
	slices.Sort(names)
	return names
}

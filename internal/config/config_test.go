package config

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ncecere/llm-sdk/openai"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "")

	c, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:8080", c.HTTPAddr)
	assert.Equal(t, "gpt-3.5-turbo-instruct", c.DefaultModel)
	assert.Equal(t, 1.0, c.TraceSampleRate)
	assert.Equal(t, slog.LevelInfo, c.SlogLevel())
}

func TestLoad_ReadsDotEnvAndEnvironment(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("LLM_SDK_LOG_LEVEL=debug\n"), 0o600))
	t.Setenv("LLM_SDK_HTTP_ADDR", ":9999")
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "http://collector:4318")
	t.Cleanup(func() { os.Unsetenv("LLM_SDK_LOG_LEVEL") })

	c, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":9999", c.HTTPAddr)
	assert.Equal(t, slog.LevelDebug, c.SlogLevel())
	assert.Equal(t, "http://collector:4318", c.OTLPEndpoint)
}

func TestLoad_RejectsSampleRate(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("LLM_SDK_TRACE_SAMPLE_RATE", "1.5")

	_, err := Load()
	assert.ErrorContains(t, err, "sample rate")
}

const catalogYAML = `
models:
  - name: instruct
    model: gpt-3.5-turbo-instruct
    temperature: 0
    max_tokens: 64
    stop: ["\n\n"]
    model_kwargs:
      suffix: "!"
  - name: davinci
    model: davinci-002
    n: 2
    best_of: 3
    batch_size: 5
`

func TestParseCatalog(t *testing.T) {
	cat, err := ParseCatalog([]byte(catalogYAML))
	require.NoError(t, err)
	require.Len(t, cat.Models, 2)

	instruct := cat.Models[0]
	require.NotNil(t, instruct.Temperature)
	assert.Equal(t, 0.0, *instruct.Temperature)
	assert.Equal(t, []string{"\n\n"}, instruct.Stop)
	assert.Equal(t, "!", instruct.ModelKwargs["suffix"])
}

func TestParseCatalog_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"empty", "models: []"},
		{"missing model", "models:\n  - name: a\n"},
		{"duplicate names", "models:\n  - {name: a, model: m}\n  - {name: a, model: n}\n"},
		{"temperature out of range", "models:\n  - {name: a, model: m, temperature: 3}\n"},
		{"zero max tokens", "models:\n  - {name: a, model: m, max_tokens: 0}\n"},
		{"not yaml", "models: ["},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseCatalog([]byte(tt.yaml))
			assert.Error(t, err)
		})
	}
}

func TestLoadCatalog_MissingFile(t *testing.T) {
	_, err := LoadCatalog(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.ErrorContains(t, err, "read catalog")
}

type nopCompletions struct{}

func (nopCompletions) CreateCompletion(ctx context.Context, req *openai.CompletionRequest) (*openai.CompletionResponse, error) {
	return &openai.CompletionResponse{}, nil
}

func TestBuildRegistry(t *testing.T) {
	cat, err := ParseCatalog([]byte(catalogYAML))
	require.NoError(t, err)

	reg, err := BuildRegistry(nopCompletions{}, cat)
	require.NoError(t, err)
	assert.Equal(t, []string{"davinci", "instruct"}, reg.Names())

	m, err := reg.LLM("davinci")
	require.NoError(t, err)
	settings := m.(*openai.CompletionLLM).Settings()
	assert.Equal(t, "davinci-002", settings.ModelName)
	assert.Equal(t, 2, settings.N)
	assert.Equal(t, 3, settings.BestOf)
	assert.Equal(t, 5, settings.BatchSize)
	assert.Equal(t, openai.DefaultTemperature, settings.Temperature)
}

func TestBuildRegistry_RejectsInvalidSettings(t *testing.T) {
	cat := &Catalog{Models: []ModelSpec{{Name: "bad", Model: "m", ModelKwargs: map[string]any{"stream": true}}}}

	_, err := BuildRegistry(nopCompletions{}, cat)
	assert.ErrorContains(t, err, `model "bad"`)
}

func TestDefaultCatalog(t *testing.T) {
	cat := DefaultCatalog("gpt-3.5-turbo-instruct")
	require.Len(t, cat.Models, 1)
	assert.Equal(t, "gpt-3.5-turbo-instruct", cat.Models[0].Name)
}

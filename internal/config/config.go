// Package config loads process configuration from the environment and the
// YAML model catalog served by the CLI and HTTP server.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Prefix is the envconfig prefix of every process setting.
const Prefix = "llm_sdk"

type Config struct {
	// HTTP configuration
	HTTPAddr string `split_words:"true" default:"127.0.0.1:8080"`

	// Logging configuration
	LogLevel  string `split_words:"true" default:"info"`
	LogFormat string `split_words:"true" default:"text"`

	// Compatible targets OPENAI_COMPATIBLE_BASE_URL instead of OpenAI.
	Compatible bool `split_words:"true"`

	// Model catalog. When empty a single entry named after DefaultModel is served.
	ModelsFile   string `split_words:"true"`
	DefaultModel string `split_words:"true" default:"gpt-3.5-turbo-instruct"`

	// Telemetry configuration
	OTLPEndpoint    string  `envconfig:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	TraceSampleRate float64 `split_words:"true" default:"1"`
	TraceEvents     bool    `split_words:"true"`
}

// Load reads .env when present and then processes the environment.
func Load() (Config, error) {
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			return Config{}, fmt.Errorf("loading .env file: %w", err)
		}
	}

	var c Config
	if err := envconfig.Process(Prefix, &c); err != nil {
		return Config{}, fmt.Errorf("loading configuration: %w", err)
	}
	if c.TraceSampleRate < 0 || c.TraceSampleRate > 1 {
		return Config{}, fmt.Errorf("loading configuration: trace sample rate %v outside [0, 1]", c.TraceSampleRate)
	}
	return c, nil
}

// Usage prints the recognised environment variables.
func Usage() error {
	return envconfig.Usage(Prefix, &Config{})
}

// SlogLevel maps LogLevel to a slog level, defaulting to info.
func (c Config) SlogLevel() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(c.LogLevel))); err != nil {
		return slog.LevelInfo
	}
	return level
}

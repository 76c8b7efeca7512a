package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"

	"github.com/ncecere/llm-sdk/provider"
	"github.com/ncecere/llm-sdk/providerutil"
)

const defaultBaseURL = "https://api.openai.com"

// Config holds the environment-derived settings for a Client.
type Config struct {
	APIKey       string `envconfig:"OPENAI_API_KEY"`
	BaseURL      string `envconfig:"OPENAI_BASE_URL" default:"https://api.openai.com"`
	Organization string `envconfig:"OPENAI_ORGANIZATION"`
}

// LoadConfig reads Config from the process environment.
func LoadConfig() (Config, error) {
	var c Config
	if err := envconfig.Process("", &c); err != nil {
		return Config{}, fmt.Errorf("openai: loading environment: %w", err)
	}
	return c, nil
}

// Client is an OpenAI provider client for the legacy text-completion API.
//
// It can be configured explicitly via ClientOptions or implicitly via
// environment variables. See NewClient and CompatibleClient for
// configuration details.
type Client struct {
	baseURL      string
	apiKey       string
	organization string
	httpClient   provider.HTTPClient
	headers      http.Header
}

// NewClient creates a new OpenAI client. Values left empty in opts are
// read from the environment.
//
// Environment variables:
//   - OPENAI_API_KEY (required if opts.APIKey is empty)
//   - OPENAI_BASE_URL (optional, defaults to https://api.openai.com)
//   - OPENAI_ORGANIZATION (optional)
func NewClient(opts provider.ClientOptions) (*Client, error) {
	env, err := LoadConfig()
	if err != nil {
		return nil, err
	}

	apiKey := opts.APIKey
	if apiKey == "" {
		apiKey = env.APIKey
	}
	if apiKey == "" {
		return nil, fmt.Errorf("openai: missing API key; set ClientOptions.APIKey or OPENAI_API_KEY")
	}

	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = env.BaseURL
	}
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	baseURL = strings.TrimRight(baseURL, "/")

	organization := opts.Organization
	if organization == "" {
		organization = env.Organization
	}

	hc := opts.HTTPClient
	if hc == nil {
		hc = providerutil.DefaultHTTPClient()
	}

	return &Client{
		baseURL:      baseURL,
		apiKey:       apiKey,
		organization: organization,
		httpClient:   hc,
		headers:      opts.Headers,
	}, nil
}

// CompatibleClient returns a Client configured for an OpenAI-compatible
// endpoint. Empty BaseURL and APIKey in opts are read from the
// environment:
//   - OPENAI_COMPATIBLE_API_KEY (fallback to OPENAI_API_KEY)
//   - OPENAI_COMPATIBLE_BASE_URL (required)
func CompatibleClient(opts provider.ClientOptions) (*Client, error) {
	var env struct {
		APIKey  string `envconfig:"OPENAI_COMPATIBLE_API_KEY"`
		BaseURL string `envconfig:"OPENAI_COMPATIBLE_BASE_URL"`
	}
	if err := envconfig.Process("", &env); err != nil {
		return nil, fmt.Errorf("openai: loading environment: %w", err)
	}
	if opts.BaseURL == "" {
		opts.BaseURL = env.BaseURL
	}
	if opts.BaseURL == "" {
		return nil, fmt.Errorf("openai: missing OPENAI_COMPATIBLE_BASE_URL for compatible client")
	}
	if opts.APIKey == "" {
		opts.APIKey = env.APIKey
	}

	return NewClient(opts)
}

// BaseURL returns the API root the client talks to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

func (c *Client) completionsURL() string {
	if strings.HasSuffix(c.baseURL, "/v1") {
		return c.baseURL + "/completions"
	}
	return c.baseURL + "/v1/completions"
}

// postJSON sends body to url and decodes the JSON answer into out.
func (c *Client) postJSON(ctx context.Context, url string, body []byte, out any) error {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	// Attach any custom headers first, then enforce required headers.
	for k, vs := range c.headers {
		for _, v := range vs {
			if v == "" {
				continue
			}
			httpReq.Header.Add(k, v)
		}
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")
	if c.organization != "" {
		httpReq.Header.Set("OpenAI-Organization", c.organization)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return err
	}
	slog.DebugContext(ctx, "openai request finished", "url", url, "status", resp.StatusCode, "duration", time.Since(start))

	return providerutil.ReadJSON(resp, out)
}

// marshalBody encodes v and splices extra top-level keys into the result.
func marshalBody(v any, extra map[string]any) ([]byte, error) {
	buf, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return spliceExtra(buf, extra)
}

// WithHTTPTimeout is a helper to wrap the default HTTP client with a timeout.
func WithHTTPTimeout(d time.Duration) provider.HTTPClient {
	return &http.Client{Timeout: d}
}

package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/earthboundkid/versioninfo/v2"
	"github.com/lmittmann/tint"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"

	"github.com/ncecere/llm-sdk/internal/config"
	"github.com/ncecere/llm-sdk/internal/telemetry"
	"github.com/ncecere/llm-sdk/middleware"
	"github.com/ncecere/llm-sdk/openai"
	"github.com/ncecere/llm-sdk/provider"
	"github.com/ncecere/llm-sdk/registry"
)

const httpTimeout = 5 * time.Minute

// cli is the wiring shared by every command.
type cli struct {
	cfg         config.Config
	logger      *slog.Logger
	providers   *telemetry.Providers
	client      *openai.Client
	catalog     *config.Catalog
	middlewares []middleware.LLMMiddleware
	registry    *registry.InMemoryRegistry
}

func newLogger(cfg config.Config) *slog.Logger {
	if cfg.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	}
	return slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:      cfg.SlogLevel(),
		TimeFormat: time.Kitchen,
	}))
}

func setup(ctx context.Context) (*cli, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logger := newLogger(cfg)
	slog.SetDefault(logger)

	providers, err := telemetry.New(ctx, telemetry.Config{
		ServiceName:    "llm-sdk",
		ServiceVersion: versioninfo.Short(),
		OTLPEndpoint:   cfg.OTLPEndpoint,
		SampleRate:     cfg.TraceSampleRate,
	})
	if err != nil {
		return nil, err
	}
	otel.SetTracerProvider(providers.TracerProvider)
	otel.SetMeterProvider(providers.MeterProvider)

	rt := &cli{cfg: cfg, logger: logger, providers: providers}
	if err := rt.init(); err != nil {
		_ = providers.Shutdown(ctx)
		return nil, err
	}
	return rt, nil
}

func (rt *cli) init() error {
	transport := otelhttp.NewTransport(http.DefaultTransport,
		otelhttp.WithTracerProvider(rt.providers.TracerProvider),
		otelhttp.WithMeterProvider(rt.providers.MeterProvider),
	)
	httpClient := middleware.TracingHTTPClient(
		&http.Client{Transport: transport, Timeout: httpTimeout},
		rt.providers.TracerProvider,
		middleware.HTTPTracingConfig{AddEventDetails: rt.cfg.TraceEvents},
	)

	opts := provider.ClientOptions{HTTPClient: httpClient}
	var err error
	if rt.cfg.Compatible {
		rt.client, err = openai.CompatibleClient(opts)
	} else {
		rt.client, err = openai.NewClient(opts)
	}
	if err != nil {
		return err
	}

	if rt.cfg.ModelsFile != "" {
		rt.catalog, err = config.LoadCatalog(rt.cfg.ModelsFile)
		if err != nil {
			return fmt.Errorf("models file %s: %w", rt.cfg.ModelsFile, err)
		}
	} else {
		rt.catalog = config.DefaultCatalog(rt.cfg.DefaultModel)
	}

	telemetryMW, err := middleware.TelemetryLLM(middleware.TelemetryOptions{
		TracerProvider:  rt.providers.TracerProvider,
		MeterProvider:   rt.providers.MeterProvider,
		AddEventDetails: rt.cfg.TraceEvents,
	})
	if err != nil {
		return err
	}
	rt.middlewares = []middleware.LLMMiddleware{
		middleware.LoggingLLM(middleware.LoggingOptions{Logger: rt.logger, LogResponse: true, LogErrors: true, LogDuration: true}),
		telemetryMW,
	}

	rt.registry, err = config.BuildRegistry(rt.client, rt.catalog, rt.middlewares...)
	return err
}

// spec returns the catalog entry registered under name.
func (rt *cli) spec(name string) (config.ModelSpec, error) {
	for _, s := range rt.catalog.Models {
		if s.Name == name {
			return s, nil
		}
	}
	return config.ModelSpec{}, &registry.NoSuchModelError{Name: name}
}

func (rt *cli) close(ctx context.Context) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := rt.providers.Shutdown(ctx); err != nil {
		rt.logger.WarnContext(ctx, "telemetry shutdown", "error", err)
	}
}

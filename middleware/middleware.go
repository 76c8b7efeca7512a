package middleware

import (
	"context"
	"log/slog"
	"time"

	"github.com/ncecere/llm-sdk/provider"
)

// LLMMiddleware wraps a provider.LLM with additional behavior such as
// logging or telemetry.
type LLMMiddleware func(provider.LLM) provider.LLM

// WrapLLM applies the provided middlewares around the base model.
// Middlewares are applied in the order provided, so the first middleware
// becomes the outermost wrapper.
func WrapLLM(base provider.LLM, mws ...LLMMiddleware) provider.LLM {
	wrapped := base
	for i := len(mws) - 1; i >= 0; i-- {
		wrapped = mws[i](wrapped)
	}
	return wrapped
}

// LoggingOptions controls which aspects of a Generate call are logged by
// the logging middleware.
type LoggingOptions struct {
	// Logger is the destination for log output. If nil, slog.Default() is used.
	Logger *slog.Logger
	// LogRequest controls whether request metadata is logged before the call.
	LogRequest bool
	// LogResponse controls whether successful responses are logged with
	// their token usage.
	LogResponse bool
	// LogErrors controls whether errors are logged.
	LogErrors bool
	// LogDuration controls whether call duration is logged.
	LogDuration bool
}

func defaultLoggingOptions(opts LoggingOptions) LoggingOptions {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	// By default, log request metadata, errors, and duration.
	if !opts.LogRequest && !opts.LogResponse && !opts.LogErrors && !opts.LogDuration {
		opts.LogRequest = true
		opts.LogErrors = true
		opts.LogDuration = true
	}
	return opts
}

// LoggingLLM returns an LLMMiddleware that logs Generate calls using the
// provided options. Logs carry metadata only (provider, model, prompt
// count, duration, token usage), never prompt or completion text.
func LoggingLLM(opts LoggingOptions) LLMMiddleware {
	opts = defaultLoggingOptions(opts)

	return func(next provider.LLM) provider.LLM {
		return &loggingLLM{next: next, opts: opts}
	}
}

type loggingLLM struct {
	next provider.LLM
	opts LoggingOptions
}

func (l *loggingLLM) Type() string {
	return l.next.Type()
}

func (l *loggingLLM) IdentifyingParams() map[string]any {
	return identifyingParams(l.next)
}

func (l *loggingLLM) Generate(ctx context.Context, prompts []string, stop []string) (*provider.LLMResult, error) {
	logger := l.opts.Logger.With("provider", l.next.Type(), "model", modelName(l.next), "prompts", len(prompts))

	start := time.Now()
	if l.opts.LogRequest {
		logger.InfoContext(ctx, "llm.generate start")
	}

	res, err := l.next.Generate(ctx, prompts, stop)
	dur := time.Since(start)

	if err != nil {
		if l.opts.LogErrors {
			attrs := []any{"error", err}
			if l.opts.LogDuration {
				attrs = append(attrs, "duration", dur)
			}
			logger.ErrorContext(ctx, "llm.generate error", attrs...)
		}
		return nil, err
	}

	switch {
	case l.opts.LogResponse:
		attrs := []any{"generations", countGenerations(res)}
		if usage, ok := res.TokenUsage(); ok {
			attrs = append(attrs, "total_tokens", usage.TotalTokens)
		}
		if l.opts.LogDuration {
			attrs = append(attrs, "duration", dur)
		}
		logger.InfoContext(ctx, "llm.generate success", attrs...)
	case l.opts.LogDuration:
		logger.InfoContext(ctx, "llm.generate done", "duration", dur)
	}

	return res, nil
}

// identifier is implemented by models that can describe their configuration.
type identifier interface {
	IdentifyingParams() map[string]any
}

// identifyingParams forwards IdentifyingParams through wrappers so the
// innermost model's configuration stays visible.
func identifyingParams(m provider.LLM) map[string]any {
	id, ok := m.(identifier)
	if !ok {
		return nil
	}
	return id.IdentifyingParams()
}

// modelName returns the configured model name of m, or "" when m does
// not expose one.
func modelName(m provider.LLM) string {
	name, _ := identifyingParams(m)["model_name"].(string)
	return name
}

func countGenerations(res *provider.LLMResult) int {
	n := 0
	for _, gens := range res.Generations {
		n += len(gens)
	}
	return n
}

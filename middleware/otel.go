package middleware

import (
	"context"
	"fmt"
	"reflect"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/ncecere/llm-sdk/provider"
)

const instrumentationName = "github.com/ncecere/llm-sdk/middleware"

// Semantic conventions not in Go OpenTelemetry library yet, because they're not stable yet
// https://opentelemetry.io/docs/specs/semconv/gen-ai/gen-ai-spans/
const (
	GenAISystemKey                  = attribute.Key("gen_ai.system")
	GenAIOperationNameKey           = attribute.Key("gen_ai.operation.name")
	GenAIRequestModelKey            = attribute.Key("gen_ai.request.model")
	GenAIResponseModelKey           = attribute.Key("gen_ai.response.model")
	GenAIResponseIDKey              = attribute.Key("gen_ai.response.id")
	GenAIUsageInputTokensKey        = attribute.Key("gen_ai.usage.input_tokens")
	GenAIUsageOutputTokensKey       = attribute.Key("gen_ai.usage.output_tokens")
	GenAIRequestTemperatureKey      = attribute.Key("gen_ai.request.temperature")
	GenAIRequestMaxTokensKey        = attribute.Key("gen_ai.request.max_tokens")
	GenAIRequestTopPKey             = attribute.Key("gen_ai.request.top_p")
	GenAIRequestFrequencyPenaltyKey = attribute.Key("gen_ai.request.frequency_penalty")
	GenAIRequestPresencePenaltyKey  = attribute.Key("gen_ai.request.presence_penalty")
	GenAIRequestChoiceCountKey      = attribute.Key("gen_ai.request.choice.count")
	GenAIResponseFinishReasonsKey   = attribute.Key("gen_ai.response.finish_reasons")
	GenAITokenTypeKey               = attribute.Key("gen_ai.token.type")

	// Application-specific attributes
	LLMPromptCountKey = attribute.Key("llm.prompt.count")

	GenAIUserMessageEvent = "gen_ai.user.message"
	GenAIChoiceEvent      = "gen_ai.choice"
	GenAIContentKey       = attribute.Key("content")
)

// OperationTextCompletion is the gen_ai.operation.name of completion calls.
const OperationTextCompletion = "text_completion"

// TelemetryOptions configures TelemetryLLM.
type TelemetryOptions struct {
	// TracerProvider defaults to the global provider.
	TracerProvider trace.TracerProvider
	// MeterProvider defaults to the global provider.
	MeterProvider metric.MeterProvider
	// AddEventDetails records prompts and completions as span events.
	AddEventDetails bool
}

// TelemetryLLM returns an LLMMiddleware that traces Generate calls and
// records token usage and duration histograms.
func TelemetryLLM(opts TelemetryOptions) (LLMMiddleware, error) {
	if opts.TracerProvider == nil {
		opts.TracerProvider = otel.GetTracerProvider()
	}
	if opts.MeterProvider == nil {
		opts.MeterProvider = otel.GetMeterProvider()
	}

	meter := opts.MeterProvider.Meter(instrumentationName)
	tokenUsage, err := meter.Int64Histogram("gen_ai.client.token.usage",
		metric.WithUnit("{token}"),
		metric.WithDescription("Number of input and output tokens used"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating token usage histogram: %w", err)
	}
	duration, err := meter.Float64Histogram("gen_ai.client.operation.duration",
		metric.WithUnit("s"),
		metric.WithDescription("Duration of LLM generate calls"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating duration histogram: %w", err)
	}

	tracer := opts.TracerProvider.Tracer(instrumentationName)
	return func(next provider.LLM) provider.LLM {
		return &telemetryLLM{
			next:       next,
			tracer:     tracer,
			tokenUsage: tokenUsage,
			duration:   duration,
			details:    opts.AddEventDetails,
		}
	}, nil
}

type telemetryLLM struct {
	next       provider.LLM
	tracer     trace.Tracer
	tokenUsage metric.Int64Histogram
	duration   metric.Float64Histogram
	details    bool
}

func (t *telemetryLLM) Type() string {
	return t.next.Type()
}

func (t *telemetryLLM) IdentifyingParams() map[string]any {
	return identifyingParams(t.next)
}

func (t *telemetryLLM) Generate(ctx context.Context, prompts []string, stop []string) (*provider.LLMResult, error) {
	params := identifyingParams(t.next)
	model, _ := params["model_name"].(string)

	common := []attribute.KeyValue{
		GenAISystemKey.String(t.next.Type()),
		GenAIOperationNameKey.String(OperationTextCompletion),
		GenAIRequestModelKey.String(model),
	}
	attrs := append(append([]attribute.KeyValue{}, common...), LLMPromptCountKey.Int(len(prompts)))
	attrs = append(attrs, requestAttributes(params)...)

	ctx, span := t.tracer.Start(ctx, fmt.Sprintf("%s %s", OperationTextCompletion, model),
		trace.WithAttributes(attrs...),
		trace.WithSpanKind(trace.SpanKindClient),
	)
	defer span.End()

	if t.details {
		for _, p := range prompts {
			span.AddEvent(GenAIUserMessageEvent, trace.WithAttributes(GenAIContentKey.String(p)))
		}
	}

	start := time.Now()
	res, err := t.next.Generate(ctx, prompts, stop)
	elapsed := time.Since(start).Seconds()

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		errType := semconv.ErrorTypeKey.String(reflect.TypeOf(err).String())
		span.SetAttributes(errType)
		t.duration.Record(ctx, elapsed, metric.WithAttributes(append(common, errType)...))
		return nil, err
	}

	t.duration.Record(ctx, elapsed, metric.WithAttributes(common...))

	if name := res.ModelName(); name != "" {
		span.SetAttributes(GenAIResponseModelKey.String(name))
	}
	if usage, ok := res.TokenUsage(); ok {
		span.SetAttributes(
			GenAIUsageInputTokensKey.Int(usage.PromptTokens),
			GenAIUsageOutputTokensKey.Int(usage.CompletionTokens),
		)
		t.tokenUsage.Record(ctx, int64(usage.PromptTokens), metric.WithAttributes(append(common, GenAITokenTypeKey.String("input"))...))
		t.tokenUsage.Record(ctx, int64(usage.CompletionTokens), metric.WithAttributes(append(common, GenAITokenTypeKey.String("output"))...))
	}

	var reasons []string
	for _, gens := range res.Generations {
		for _, g := range gens {
			if r := g.FinishReason(); r != "" {
				reasons = append(reasons, r)
			}
			if t.details {
				span.AddEvent(GenAIChoiceEvent, trace.WithAttributes(GenAIContentKey.String(g.Text)))
			}
		}
	}
	if len(reasons) > 0 {
		span.SetAttributes(GenAIResponseFinishReasonsKey.StringSlice(reasons))
	}

	return res, nil
}

// requestAttributes maps wire-level sampling parameters to gen_ai attributes.
func requestAttributes(params map[string]any) []attribute.KeyValue {
	var attrs []attribute.KeyValue
	if v, ok := params["temperature"].(float64); ok {
		attrs = append(attrs, GenAIRequestTemperatureKey.Float64(v))
	}
	if v, ok := params["max_tokens"].(int); ok {
		attrs = append(attrs, GenAIRequestMaxTokensKey.Int(v))
	}
	if v, ok := params["top_p"].(float64); ok {
		attrs = append(attrs, GenAIRequestTopPKey.Float64(v))
	}
	if v, ok := params["frequency_penalty"].(float64); ok {
		attrs = append(attrs, GenAIRequestFrequencyPenaltyKey.Float64(v))
	}
	if v, ok := params["presence_penalty"].(float64); ok {
		attrs = append(attrs, GenAIRequestPresencePenaltyKey.Float64(v))
	}
	if v, ok := params["n"].(int); ok {
		attrs = append(attrs, GenAIRequestChoiceCountKey.Int(v))
	}
	return attrs
}

package telemetry

import (
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

// ForceKey marks a span that must be sampled regardless of the sample rate.
const ForceKey = attribute.Key("force")

// forceBasedSampler samples every span started with force=true and defers
// to a parent-based ratio sampler for everything else.
type forceBasedSampler struct {
	defaultSampler sdktrace.Sampler
}

func NewForceBasedSampler(defaultSampleRate float64) sdktrace.Sampler {
	return &forceBasedSampler{
		defaultSampler: sdktrace.ParentBased(sdktrace.TraceIDRatioBased(defaultSampleRate)),
	}
}

func (s *forceBasedSampler) ShouldSample(parameters sdktrace.SamplingParameters) sdktrace.SamplingResult {
	for _, attr := range parameters.Attributes {
		if attr.Key == ForceKey && attr.Value.AsBool() {
			return sdktrace.SamplingResult{
				Decision:   sdktrace.RecordAndSample,
				Tracestate: trace.SpanContextFromContext(parameters.ParentContext).TraceState(),
			}
		}
	}

	return s.defaultSampler.ShouldSample(parameters)
}

func (s *forceBasedSampler) Description() string {
	return fmt.Sprintf("ForceBasedSampler{default=%s}", s.defaultSampler.Description())
}

package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

func TestForceBasedSampler(t *testing.T) {
	sampler := NewForceBasedSampler(0)
	traceID := trace.TraceID{1}

	res := sampler.ShouldSample(sdktrace.SamplingParameters{
		ParentContext: context.Background(),
		TraceID:       traceID,
		Name:          "forced",
		Attributes:    []attribute.KeyValue{ForceKey.Bool(true)},
	})
	assert.Equal(t, sdktrace.RecordAndSample, res.Decision)

	res = sampler.ShouldSample(sdktrace.SamplingParameters{
		ParentContext: context.Background(),
		TraceID:       traceID,
		Name:          "regular",
	})
	assert.Equal(t, sdktrace.Drop, res.Decision)
	assert.Contains(t, sampler.Description(), "ForceBasedSampler")
}

func TestNew_WithoutCollector(t *testing.T) {
	ctx := context.Background()
	p, err := New(ctx, Config{ServiceName: "llm-sdk", ServiceVersion: "test", SampleRate: 1})
	require.NoError(t, err)

	meter := p.MeterProvider.Meter("test")
	counter, err := meter.Int64Counter("test_requests")
	require.NoError(t, err)
	counter.Add(ctx, 3)

	families, err := p.Registry.Gather()
	require.NoError(t, err)
	var names []string
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.Contains(t, names, "test_requests_total")
	assert.Contains(t, names, "go_goroutines")

	_, span := p.TracerProvider.Tracer("test").Start(ctx, "op")
	assert.True(t, span.SpanContext().IsSampled())
	span.End()

	require.NoError(t, p.Shutdown(ctx))
}

package telemetry

import (
	"context"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// noOpSpanExporter discards every span. It keeps sampling and span
// processing active when no collector is configured.
type noOpSpanExporter struct{}

func NewNoOpSpanExporter() sdktrace.SpanExporter {
	return noOpSpanExporter{}
}

func (noOpSpanExporter) ExportSpans(ctx context.Context, spans []sdktrace.ReadOnlySpan) error {
	return nil
}

func (noOpSpanExporter) Shutdown(ctx context.Context) error {
	return nil
}

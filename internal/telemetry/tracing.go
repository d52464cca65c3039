package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("stock-exchange/matching")

// StartSpan opens a span named name under ctx. With no SDK registered,
// otel's global TracerProvider is a no-op and this call allocates
// nothing of consequence — the hot path pays for a no-op span, not a
// real exporter, unless the harness calls otel.SetTracerProvider.
func StartSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return tracer.Start(ctx, name)
}

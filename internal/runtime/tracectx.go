package runtime

import (
	"context"

	"go.opentelemetry.io/otel/trace"
)

// TraceContext builds the trace_context mapping for an event from the span
// active in ctx. Returns nil when no span is recording, so callers can pass
// the result straight into an Operation.
func TraceContext(ctx context.Context) map[string]any {
	spanContext := trace.SpanContextFromContext(ctx)
	if !spanContext.IsValid() {
		return nil
	}

	return map[string]any{
		"trace_id": spanContext.TraceID().String(),
		"span_id":  spanContext.SpanID().String(),
		"sampled":  spanContext.IsSampled(),
	}
}

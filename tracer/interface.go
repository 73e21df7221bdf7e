package tracer

import (
	"context"
)

// Attributes are span attributes keyed by name, e.g. "rwe.module".
type Attributes map[string]any

// Tracer starts spans. *TracerClient implements it.
type Tracer interface {
	// StartSpan starts a span as a child of the span in ctx, if any, and sets attrs on it.
	StartSpan(ctx context.Context, name string, attrs ...Attributes) (context.Context, Span)

	// SetCarrierOnContext continues the trace described by a W3C carrier, such as
	// {"traceparent": "00-..."} received from the process that launched rwe.
	SetCarrierOnContext(ctx context.Context, carrier map[string]string) context.Context
}

// Span is a started span.
type Span interface {
	End()

	// SetAttributes adds attributes. Durations become milliseconds, Stringers their
	// String form; anything else unknown is formatted with fmt.Sprint.
	SetAttributes(attrs Attributes)

	// RecordError records err and marks the span as failed. A nil err is ignored.
	RecordError(err error)
}

// Package tracer wraps the OpenTelemetry SDK for rwe.
//
// The module host starts one span per module execution, named after the module and
// carrying the execution id, and records aborts on it. Loggers created with
// EnableTracing pick the span up from the context, so log entries and spans share
// trace ids.
//
//	tc, err := tracer.NewClient(tracer.Config{ServiceName: "rwe", EnableExport: true, Endpoint: "otel:4318", Insecure: true})
//	ctx, span := tc.StartSpan(ctx, "module dbdata")
//	defer span.End()
//
// A caller that launches rwe inside its own trace can hand the W3C traceparent over;
// SetCarrierOnContext turns it into the parent of the spans rwe creates.
package tracer

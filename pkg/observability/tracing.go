package observability

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Tracer provides distributed tracing capabilities on top of the global
// OpenTelemetry tracer provider. Without a configured provider spans are
// no-ops.
type Tracer struct {
	serviceName string
	tracer      trace.Tracer
}

// NewTracer creates a new tracer instance
func NewTracer(serviceName string) *Tracer {
	return &Tracer{
		serviceName: serviceName,
		tracer:      otel.Tracer(serviceName),
	}
}

// StartSpan starts a span named "<service>.<name>"
func (t *Tracer) StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, t.serviceName+"."+name, trace.WithAttributes(attrs...))
}

// TraceFunction wraps a function with a span and records its error
func (t *Tracer) TraceFunction(ctx context.Context, name string, fn func(context.Context) error) error {
	ctx, span := t.StartSpan(ctx, name)
	defer span.End()

	err := fn(ctx)
	if err != nil {
		RecordError(span, err)
	}
	return err
}

// AddAnnotation adds an attribute to the span in ctx
func (t *Tracer) AddAnnotation(ctx context.Context, key string, value string) {
	trace.SpanFromContext(ctx).SetAttributes(attribute.String(key, value))
}

// RecordError marks the span as failed
func RecordError(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

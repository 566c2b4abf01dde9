package tracing

import (
	"context"
	"net/http"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

// StartIterationSpan starts a client span for one iteration's GET. route is the
// URL template, which keeps span names low-cardinality; url is the concrete target.
func StartIterationSpan(ctx context.Context, tracer trace.Tracer, route, url string, vu int, iteration int64) (context.Context, trace.Span) {
	spanName := "GET"
	if route != "" {
		spanName = "GET " + route
	}
	ctx, span := tracer.Start(ctx, spanName,
		trace.WithSpanKind(trace.SpanKindClient),
	)
	span.SetAttributes(
		attribute.String("http.request.method", http.MethodGet),
		attribute.Int("vuload.vu", vu),
		attribute.Int64("vuload.iteration", iteration),
	)
	if url != "" {
		span.SetAttributes(attribute.String("url.full", url))
	}
	return ctx, span
}

// StatusCode is the span attribute for a response status.
func StatusCode(code int) attribute.KeyValue {
	return attribute.Int("http.response.status_code", code)
}

// EndSpan finishes a span, recording error status if applicable.
func EndSpan(span trace.Span, err error, attrs ...attribute.KeyValue) {
	if len(attrs) > 0 {
		span.SetAttributes(attrs...)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

// InjectHTTPHeaders injects W3C trace context into HTTP headers.
func InjectHTTPHeaders(ctx context.Context, headers http.Header) {
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(headers))
}

// HeaderPropagator injects trace context into outgoing requests through the
// global propagator.
type HeaderPropagator struct{}

func (HeaderPropagator) InjectHTTPHeaders(ctx context.Context, headers http.Header) {
	InjectHTTPHeaders(ctx, headers)
}

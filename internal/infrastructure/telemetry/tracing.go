package telemetry

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/roastery/backend"

// SpanOption adjusts a span before it starts.
type SpanOption func(*spanStart)

type spanStart struct {
	kind  trace.SpanKind
	attrs []attribute.KeyValue
}

// WithAttribute sets key on the new span. Values that are not a string,
// integer, float or bool are recorded as their string form; ids such as
// uuid.UUID come out in their canonical text.
func WithAttribute(key string, value any) SpanOption {
	return func(s *spanStart) {
		s.attrs = append(s.attrs, attr(key, value))
	}
}

// WithSpanKind overrides the default internal kind, e.g. client spans for
// provider API calls.
func WithSpanKind(kind trace.SpanKind) SpanOption {
	return func(s *spanStart) {
		s.kind = kind
	}
}

// StartSpan starts a span on the global tracer provider; the caller ends it.
//
//	ctx, span := telemetry.StartSpan(ctx, "printify.get_order",
//	    telemetry.WithSpanKind(trace.SpanKindClient))
//	defer span.End()
func StartSpan(ctx context.Context, name string, opts ...SpanOption) (context.Context, trace.Span) {
	s := spanStart{kind: trace.SpanKindInternal}
	for _, opt := range opts {
		opt(&s)
	}
	return otel.Tracer(tracerName).Start(ctx, name,
		trace.WithSpanKind(s.kind),
		trace.WithAttributes(s.attrs...),
	)
}

// StartServiceSpan names the span "<service>.<operation>", e.g.
// "fulfillment.submit" or "catalog.sync_all".
func StartServiceSpan(ctx context.Context, service, operation string, opts ...SpanOption) (context.Context, trace.Span) {
	return StartSpan(ctx, service+"."+operation, opts...)
}

func SetAttribute(span trace.Span, key string, value any) {
	if span != nil {
		span.SetAttributes(attr(key, value))
	}
}

// RecordError marks span failed with err. A canceled or expired caller
// context is recorded as an event and leaves the status unset, since the
// operation did not fail on its own.
func RecordError(span trace.Span, err error) {
	if span == nil || err == nil {
		return
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		span.AddEvent("interrupted", trace.WithAttributes(attribute.String("reason", err.Error())))
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

func attr(key string, value any) attribute.KeyValue {
	k := attribute.Key(key)
	switch v := value.(type) {
	case string:
		return k.String(v)
	case bool:
		return k.Bool(v)
	case int:
		return k.Int(v)
	case int64:
		return k.Int64(v)
	case float64:
		return k.Float64(v)
	case []string:
		return k.StringSlice(v)
	case fmt.Stringer:
		return k.String(v.String())
	default:
		return k.String(fmt.Sprint(v))
	}
}

package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestFromContext(t *testing.T) {
	assert.NotNil(t, FromContext(context.Background()))

	l := zap.NewExample()
	ctx := WithContext(context.Background(), l)
	assert.Same(t, l, FromContext(ctx))
}

func TestRequestIDAndSubject(t *testing.T) {
	base := zap.NewNop()
	ctx, _ := WithRequestID(context.Background(), base, "req-1")
	ctx, _ = WithSubject(ctx, base, "ops@roastery")

	assert.Equal(t, "req-1", GetRequestID(ctx))
	assert.Equal(t, "ops@roastery", GetSubject(ctx))
	assert.Empty(t, GetRequestID(context.Background()))
	assert.Empty(t, GetSubject(context.Background()))
}

func TestTraceIDs(t *testing.T) {
	assert.Empty(t, GetTraceID(context.Background()))
	assert.Empty(t, GetSpanID(context.Background()))

	tp := sdktrace.NewTracerProvider()
	defer func() { _ = tp.Shutdown(context.Background()) }()
	ctx, span := tp.Tracer("test").Start(context.Background(), "op")
	defer span.End()

	assert.Equal(t, span.SpanContext().TraceID().String(), GetTraceID(ctx))
	assert.Equal(t, span.SpanContext().SpanID().String(), GetSpanID(ctx))
}

func TestL_EnrichesEntries(t *testing.T) {
	core, recorded := observer.New(zapcore.InfoLevel)
	ctx := WithContext(context.Background(), zap.New(core))
	ctx, _ = WithRequestID(ctx, zap.NewNop(), "req-42")
	ctx, _ = WithSubject(ctx, zap.NewNop(), "admin")

	L(ctx).Info("Catalog sync finished")

	entries := recorded.All()
	if assert.Len(t, entries, 1) {
		fields := entries[0].ContextMap()
		assert.Equal(t, "req-42", fields["request_id"])
		assert.Equal(t, "admin", fields["subject"])
	}
}

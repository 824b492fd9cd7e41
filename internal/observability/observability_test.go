package observability

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/CSroseX/load-degradation-simulator/internal/simulator"
)

func TestInitTracer_WritesSpans(t *testing.T) {
	prev := otel.GetTracerProvider()
	defer otel.SetTracerProvider(prev)

	var buf bytes.Buffer
	shutdown, err := InitTracer("simulator-test", &buf)
	require.NoError(t, err)

	_, span := otel.Tracer("test").Start(context.Background(), "GET /")
	span.End()

	require.NoError(t, shutdown(context.Background()))
	assert.Contains(t, buf.String(), "GET /")
	assert.Contains(t, buf.String(), "simulator-test")
}

func TestSpanObserver(t *testing.T) {
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))

	ctx, span := tp.Tracer("test").Start(context.Background(), "GET /")
	SpanObserver{}.Observe(ctx, simulator.Decision{
		Profile:     "default",
		Outcome:     simulator.Failed,
		InFlight:    120,
		ErrorChance: 0.55,
	})
	span.End()

	spans := rec.Ended()
	require.Len(t, spans, 1)
	attrs := spans[0].Attributes()
	assert.Contains(t, attrs, attribute.String("simulator.outcome", "failed"))
	assert.Contains(t, attrs, attribute.Int64("simulator.in_flight", 120))
	assert.Equal(t, codes.Error, spans[0].Status().Code)
}

func TestSpanObserver_NoSpan(t *testing.T) {
	assert.NotPanics(t, func() {
		SpanObserver{}.Observe(context.Background(), simulator.Decision{Outcome: simulator.Succeeded, Delay: time.Millisecond})
	})
}

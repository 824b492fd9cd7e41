package observability

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/CSroseX/load-degradation-simulator/internal/simulator"
)

// SpanObserver annotates the request span with the simulator decision.
type SpanObserver struct{}

func (SpanObserver) Observe(ctx context.Context, d simulator.Decision) {
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}

	span.SetAttributes(
		attribute.String("simulator.profile", d.Profile),
		attribute.String("simulator.outcome", d.Outcome.String()),
		attribute.Int64("simulator.in_flight", d.InFlight),
		attribute.Float64("simulator.error_chance", d.ErrorChance),
		attribute.Int64("simulator.delay_ms", d.Delay.Milliseconds()),
	)
	if d.Outcome == simulator.Failed {
		span.SetStatus(codes.Error, "synthetic failure")
	}
}

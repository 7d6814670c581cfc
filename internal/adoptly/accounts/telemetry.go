package accounts

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "adoptly.org/adoptly/internal/adoptly/accounts"

var tracer = otel.Tracer(instrumentationName)

// Authentication outcomes recorded on the attempts counter.
const (
	outcomeSuccess  = "success"
	outcomeNotFound = "not_found"
	outcomeMismatch = "mismatch"
	outcomeError    = "error"
)

type telemetry struct {
	attempts metric.Int64Counter
}

func newTelemetry(meter metric.Meter) telemetry {
	if meter == nil {
		meter = otel.GetMeterProvider().Meter(instrumentationName)
	}
	attempts, err := meter.Int64Counter(
		"accounts.authentications",
		metric.WithDescription("Count of authentication attempts by outcome"),
	)
	if err != nil {
		otel.Handle(err)
	}
	return telemetry{attempts: attempts}
}

func (t telemetry) recordAttempt(ctx context.Context, outcome string) {
	if t.attempts == nil {
		return
	}
	t.attempts.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

func startSpan(ctx context.Context, name, username string) (context.Context, trace.Span) {
	return tracer.Start(ctx, name,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attribute.String("accounts.username", username)),
	)
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

package session

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

type sessionMetrics struct {
	orders      metric.Int64Counter
	cancels     metric.Int64Counter
	venueErrors metric.Int64Counter
}

func newSessionMetrics(meter metric.Meter) *sessionMetrics {
	if meter == nil {
		meter = otel.Meter("tradelink/session")
	}
	m := &sessionMetrics{}

	m.orders, _ = meter.Int64Counter("tradelink_session_orders",
		metric.WithDescription("Orders submitted by result"),
		metric.WithUnit("{order}"))

	m.cancels, _ = meter.Int64Counter("tradelink_session_cancels",
		metric.WithDescription("Cancel requests sent"),
		metric.WithUnit("{request}"))

	m.venueErrors, _ = meter.Int64Counter("tradelink_session_venue_errors",
		metric.WithDescription("Error messages pushed by the venue, by code"),
		metric.WithUnit("{error}"))

	return m
}

func (m *sessionMetrics) recordOrder(ctx context.Context, result string) {
	if m.orders != nil {
		m.orders.Add(ctx, 1, metric.WithAttributes(attribute.String("result", result)))
	}
}

func (m *sessionMetrics) recordCancel(ctx context.Context) {
	if m.cancels != nil {
		m.cancels.Add(ctx, 1)
	}
}

func (m *sessionMetrics) recordVenueError(ctx context.Context, code string) {
	if m.venueErrors != nil {
		m.venueErrors.Add(ctx, 1, metric.WithAttributes(attribute.String("code", code)))
	}
}

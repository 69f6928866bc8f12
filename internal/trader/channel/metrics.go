package channel

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

type connMetrics struct {
	connects       metric.Int64Counter
	reconnects     metric.Int64Counter
	heartbeats     metric.Int64Counter
	received       metric.Int64Counter
	protocolErrors metric.Int64Counter
	fatal          metric.Int64Counter
}

func newConnMetrics(meter metric.Meter) *connMetrics {
	m := &connMetrics{}

	m.connects, _ = meter.Int64Counter("tradelink_channel_connects",
		metric.WithDescription("Initial connection attempts by result"),
		metric.WithUnit("{attempt}"))

	m.reconnects, _ = meter.Int64Counter("tradelink_channel_reconnects",
		metric.WithDescription("Reconnect attempts by result"),
		metric.WithUnit("{attempt}"))

	m.heartbeats, _ = meter.Int64Counter("tradelink_channel_heartbeats_sent",
		metric.WithDescription("Heartbeat frames written"),
		metric.WithUnit("{frame}"))

	m.received, _ = meter.Int64Counter("tradelink_channel_messages_received",
		metric.WithDescription("Inbound frames decoded, by message type"),
		metric.WithUnit("{message}"))

	m.protocolErrors, _ = meter.Int64Counter("tradelink_channel_protocol_errors",
		metric.WithDescription("Inbound frames dropped because they did not decode"),
		metric.WithUnit("{frame}"))

	m.fatal, _ = meter.Int64Counter("tradelink_channel_fatal",
		metric.WithDescription("Times the channel gave up and closed"),
		metric.WithUnit("{event}"))

	return m
}

func add(ctx context.Context, c metric.Int64Counter, attrs ...attribute.KeyValue) {
	if c == nil {
		return
	}
	if len(attrs) == 0 {
		c.Add(ctx, 1)
		return
	}
	c.Add(ctx, 1, metric.WithAttributes(attrs...))
}

func (m *connMetrics) recordConnect(ctx context.Context, result string) {
	add(ctx, m.connects, attribute.String("result", result))
}

func (m *connMetrics) recordReconnect(ctx context.Context, result string) {
	add(ctx, m.reconnects, attribute.String("result", result))
}

func (m *connMetrics) recordHeartbeat(ctx context.Context) {
	add(ctx, m.heartbeats)
}

func (m *connMetrics) recordMessage(ctx context.Context, msgType string) {
	add(ctx, m.received, attribute.String("type", msgType))
}

func (m *connMetrics) recordProtocolError(ctx context.Context, reason string) {
	add(ctx, m.protocolErrors, attribute.String("reason", reason))
}

func (m *connMetrics) recordFatal(ctx context.Context, kind string) {
	add(ctx, m.fatal, attribute.String("kind", kind))
}

package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/qj0r9j0vc2/rtm-bot/internal/domain/entity"
)

// Metrics holds all application metrics.
type Metrics struct {
	meter metric.Meter

	// HTTP metrics
	HTTPRequestsTotal   metric.Int64Counter
	HTTPRequestDuration metric.Float64Histogram
	HTTPRequestsActive  metric.Int64UpDownCounter

	// Engine metrics
	EventsReceivedTotal   metric.Int64Counter
	CommandsExecutedTotal metric.Int64Counter
	HandlerDuration       metric.Float64Histogram
	ReconnectsTotal       metric.Int64Counter
	HistoryStoredTotal    metric.Int64Counter
}

// NewMetrics creates and registers all application metrics.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{meter: meter}

	var err error

	// HTTP metrics
	m.HTTPRequestsTotal, err = meter.Int64Counter(
		"http.server.requests.total",
		metric.WithDescription("Total number of HTTP requests"),
		metric.WithUnit("{requests}"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating http_requests_total: %w", err)
	}

	m.HTTPRequestDuration, err = meter.Float64Histogram(
		"http.server.request.duration",
		metric.WithDescription("HTTP request duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating http_request_duration: %w", err)
	}

	m.HTTPRequestsActive, err = meter.Int64UpDownCounter(
		"http.server.requests.active",
		metric.WithDescription("Number of active HTTP requests"),
		metric.WithUnit("{requests}"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating http_requests_active: %w", err)
	}

	// Engine metrics
	m.EventsReceivedTotal, err = meter.Int64Counter(
		"bot.events.received.total",
		metric.WithDescription("Inbound streaming events by kind"),
		metric.WithUnit("{events}"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating events_received_total: %w", err)
	}

	m.CommandsExecutedTotal, err = meter.Int64Counter(
		"bot.commands.executed.total",
		metric.WithDescription("Executed commands by kind and outcome"),
		metric.WithUnit("{commands}"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating commands_executed_total: %w", err)
	}

	m.HandlerDuration, err = meter.Float64Histogram(
		"bot.handler.duration",
		metric.WithDescription("Handler and listener invocation duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating handler_duration: %w", err)
	}

	m.ReconnectsTotal, err = meter.Int64Counter(
		"bot.reconnects.total",
		metric.WithDescription("Streaming connections re-established"),
		metric.WithUnit("{reconnects}"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating reconnects_total: %w", err)
	}

	m.HistoryStoredTotal, err = meter.Int64Counter(
		"bot.history.stored.total",
		metric.WithDescription("Messages written to the history store"),
		metric.WithUnit("{messages}"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating history_stored_total: %w", err)
	}

	return m, nil
}

// RecordHTTPRequest records HTTP request metrics.
func (m *Metrics) RecordHTTPRequest(ctx context.Context, method, path string, statusCode int, duration time.Duration) {
	attrs := []attribute.KeyValue{
		attribute.String("http.method", method),
		attribute.String("http.route", path),
		attribute.Int("http.status_code", statusCode),
	}

	m.HTTPRequestsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.HTTPRequestDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
}

// RecordEvent counts an inbound event.
func (m *Metrics) RecordEvent(ctx context.Context, kind entity.EventKind) {
	m.EventsReceivedTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", string(kind))))
}

// RecordCommand counts an executed command.
func (m *Metrics) RecordCommand(ctx context.Context, kind string, err error) {
	m.CommandsExecutedTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("kind", kind),
		attribute.Bool("success", err == nil),
	))
}

// RecordHandler records one handler or listener invocation.
func (m *Metrics) RecordHandler(ctx context.Context, name string, elapsed time.Duration) {
	m.HandlerDuration.Record(ctx, elapsed.Seconds(), metric.WithAttributes(attribute.String("handler", name)))
}

// RecordReconnect counts a re-established streaming connection.
func (m *Metrics) RecordReconnect(ctx context.Context) {
	m.ReconnectsTotal.Add(ctx, 1)
}

// RecordHistoryStored counts messages written to the history store.
func (m *Metrics) RecordHistoryStored(ctx context.Context, n int) {
	if n <= 0 {
		return
	}
	m.HistoryStoredTotal.Add(ctx, int64(n))
}

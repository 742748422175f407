package observability

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/qj0r9j0vc2/rtm-bot/internal/domain/entity"
)

func newTestMetrics(t *testing.T) (*Metrics, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	m, err := NewMetrics(provider.Meter("test"))
	require.NoError(t, err)
	return m, reader
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Aggregation {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	out := make(map[string]metricdata.Aggregation)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[m.Name] = m.Data
		}
	}
	return out
}

func sumFor(t *testing.T, data metricdata.Aggregation, attrs ...attribute.KeyValue) int64 {
	t.Helper()
	sum, ok := data.(metricdata.Sum[int64])
	require.True(t, ok, "not an int64 sum")

	want := attribute.NewSet(attrs...)
	var total int64
	for _, dp := range sum.DataPoints {
		if len(attrs) == 0 || dp.Attributes.Equals(&want) {
			total += dp.Value
		}
	}
	return total
}

func TestMetrics_EngineRecorder(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordEvent(ctx, entity.EventKindMessage)
	m.RecordEvent(ctx, entity.EventKindMessage)
	m.RecordCommand(ctx, "send", nil)
	m.RecordCommand(ctx, "send", errors.New("boom"))
	m.RecordHandler(ctx, "wordcloud", 20*time.Millisecond)
	m.RecordReconnect(ctx)
	m.RecordHistoryStored(ctx, 3)
	m.RecordHistoryStored(ctx, 0)

	data := collect(t, reader)

	assert.Equal(t, int64(2), sumFor(t, data["bot.events.received.total"], attribute.String("kind", string(entity.EventKindMessage))))
	assert.Equal(t, int64(1), sumFor(t, data["bot.commands.executed.total"],
		attribute.String("kind", "send"), attribute.Bool("success", true)))
	assert.Equal(t, int64(1), sumFor(t, data["bot.commands.executed.total"],
		attribute.String("kind", "send"), attribute.Bool("success", false)))
	assert.Equal(t, int64(1), sumFor(t, data["bot.reconnects.total"]))
	assert.Equal(t, int64(3), sumFor(t, data["bot.history.stored.total"]))

	hist, ok := data["bot.handler.duration"].(metricdata.Histogram[float64])
	require.True(t, ok)
	require.Len(t, hist.DataPoints, 1)
	assert.Equal(t, uint64(1), hist.DataPoints[0].Count)
}

func TestMetrics_HTTPRequest(t *testing.T) {
	m, reader := newTestMetrics(t)

	m.RecordHTTPRequest(context.Background(), "GET", "/health", 200, time.Millisecond)

	data := collect(t, reader)
	assert.Equal(t, int64(1), sumFor(t, data["http.server.requests.total"]))
}

func TestNewTelemetry(t *testing.T) {
	tel, err := NewTelemetry("", "test")
	require.NoError(t, err)
	defer tel.Shutdown(context.Background())

	tel.Metrics.RecordReconnect(context.Background())

	families, err := tel.Registry.Gather()
	require.NoError(t, err)

	found := false
	for _, f := range families {
		if strings.HasPrefix(f.GetName(), "bot_reconnects") {
			found = true
		}
	}
	assert.True(t, found, "reconnect counter not exported")
}

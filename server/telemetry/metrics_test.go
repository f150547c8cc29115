package telemetry

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Metrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	out := make(map[string]metricdata.Metrics)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[m.Name] = m
		}
	}
	return out
}

func TestMetrics_RecordsInstruments(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	ms, err := NewMetrics(mp.Meter(instrumentationName))
	require.NoError(t, err)

	ctx := context.Background()
	ms.CommandHandled(ctx, "fire")
	ms.CommandHandled(ctx, "fire")
	ms.CommandHandled(ctx, "move-forward")
	ms.TankDestroyed(ctx)
	ms.SendDropped(ctx, "s1")
	ms.BulletsActive(ctx, 7)
	ms.PlayersConnected(ctx, 3)
	ms.TickCompleted(ctx, 2*time.Millisecond)

	got := collect(t, reader)

	commands, ok := got["tanks.commands"].Data.(metricdata.Sum[int64])
	require.True(t, ok)
	byCommand := make(map[string]int64)
	for _, dp := range commands.DataPoints {
		v, _ := dp.Attributes.Value(attribute.Key("command"))
		byCommand[v.AsString()] = dp.Value
	}
	assert.Equal(t, map[string]int64{"fire": 2, "move-forward": 1}, byCommand)

	destroyed, ok := got["tanks.tanks.destroyed"].Data.(metricdata.Sum[int64])
	require.True(t, ok)
	require.Len(t, destroyed.DataPoints, 1)
	assert.Equal(t, int64(1), destroyed.DataPoints[0].Value)

	dropped, ok := got["tanks.sends.dropped"].Data.(metricdata.Sum[int64])
	require.True(t, ok)
	require.Len(t, dropped.DataPoints, 1)
	assert.Equal(t, int64(1), dropped.DataPoints[0].Value)

	bullets, ok := got["tanks.bullets.active"].Data.(metricdata.Gauge[int64])
	require.True(t, ok)
	require.Len(t, bullets.DataPoints, 1)
	assert.Equal(t, int64(7), bullets.DataPoints[0].Value)

	players, ok := got["tanks.players.connected"].Data.(metricdata.Gauge[int64])
	require.True(t, ok)
	require.Len(t, players.DataPoints, 1)
	assert.Equal(t, int64(3), players.DataPoints[0].Value)

	ticks, ok := got["tanks.tick.duration"].Data.(metricdata.Histogram[float64])
	require.True(t, ok)
	require.Len(t, ticks.DataPoints, 1)
	assert.Equal(t, uint64(1), ticks.DataPoints[0].Count)
	assert.Equal(t, 2.0, ticks.DataPoints[0].Sum)
}

func TestSetup_Disabled(t *testing.T) {
	p, err := Setup(context.Background(), Config{Enabled: false})
	require.NoError(t, err)
	assert.False(t, p.Enabled())
	assert.NotNil(t, p.Meter())
	assert.NoError(t, p.Shutdown(context.Background()))
}

func TestSetup_EnabledWritesOnShutdown(t *testing.T) {
	var buf bytes.Buffer
	p, err := Setup(context.Background(), Config{
		Enabled:     true,
		ServiceName: "tanks-test",
		Interval:    time.Hour,
		Writer:      &buf,
	})
	require.NoError(t, err)

	ms, err := NewMetrics(p.Meter())
	require.NoError(t, err)
	ms.TankDestroyed(context.Background())

	require.NoError(t, p.Shutdown(context.Background()))
	assert.Contains(t, buf.String(), "tanks.tanks.destroyed")
	assert.Contains(t, buf.String(), "tanks-test")
}

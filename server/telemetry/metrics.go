package telemetry

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/detrandix/tanks/server/application"
	"github.com/detrandix/tanks/server/domain"
)

// Metrics はゲームサーバーの計器です。
// application.Recorder と domain.RoomObserver を満たします。
type Metrics struct {
	tickDuration metric.Float64Histogram
	commands     metric.Int64Counter
	destroyed    metric.Int64Counter
	dropped      metric.Int64Counter

	bulletsActive    metric.Int64ObservableGauge
	playersConnected metric.Int64ObservableGauge

	// gauge の callback から読む最新値
	bullets atomic.Int64
	players atomic.Int64
}

var (
	_ application.Recorder = (*Metrics)(nil)
	_ domain.RoomObserver  = (*Metrics)(nil)
)

func NewMetrics(m metric.Meter) (*Metrics, error) {
	ms := &Metrics{}
	var err error

	ms.tickDuration, err = m.Float64Histogram(
		"tanks.tick.duration",
		metric.WithDescription("Time spent in one simulation tick"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating tick duration histogram: %w", err)
	}

	ms.commands, err = m.Int64Counter(
		"tanks.commands",
		metric.WithDescription("Total commands applied"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating commands counter: %w", err)
	}

	ms.destroyed, err = m.Int64Counter(
		"tanks.tanks.destroyed",
		metric.WithDescription("Total tanks turned into wrecks"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating destroyed counter: %w", err)
	}

	ms.dropped, err = m.Int64Counter(
		"tanks.sends.dropped",
		metric.WithDescription("Total outbound messages dropped due to full buffers"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating dropped counter: %w", err)
	}

	ms.bulletsActive, err = m.Int64ObservableGauge(
		"tanks.bullets.active",
		metric.WithDescription("Bullets in flight after the last tick"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating bullets gauge: %w", err)
	}

	ms.playersConnected, err = m.Int64ObservableGauge(
		"tanks.players.connected",
		metric.WithDescription("Players currently joined"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating players gauge: %w", err)
	}

	_, err = m.RegisterCallback(
		func(ctx context.Context, o metric.Observer) error {
			o.ObserveInt64(ms.bulletsActive, ms.bullets.Load())
			o.ObserveInt64(ms.playersConnected, ms.players.Load())
			return nil
		},
		ms.bulletsActive,
		ms.playersConnected,
	)
	if err != nil {
		return nil, fmt.Errorf("registering gauge callback: %w", err)
	}

	return ms, nil
}

func (ms *Metrics) TickCompleted(ctx context.Context, took time.Duration) {
	ms.tickDuration.Record(ctx, float64(took.Microseconds())/1000)
}

func (ms *Metrics) SendDropped(ctx context.Context, sessionID domain.SessionID) {
	ms.dropped.Add(ctx, 1)
}

func (ms *Metrics) CommandHandled(ctx context.Context, command string) {
	ms.commands.Add(ctx, 1, metric.WithAttributes(attribute.String("command", command)))
}

func (ms *Metrics) BulletsActive(ctx context.Context, n int) { ms.bullets.Store(int64(n)) }

func (ms *Metrics) TankDestroyed(ctx context.Context) { ms.destroyed.Add(ctx, 1) }

func (ms *Metrics) PlayersConnected(ctx context.Context, n int) { ms.players.Store(int64(n)) }

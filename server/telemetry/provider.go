// Package telemetry はサーバーの OpenTelemetry メトリクスを扱います。
package telemetry

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

const instrumentationName = "github.com/detrandix/tanks/server"

// Config はメトリクス出力の設定です。
type Config struct {
	Enabled     bool
	ServiceName string
	Interval    time.Duration
	Writer      io.Writer // nil なら標準出力
}

// Provider は MeterProvider の寿命を管理します。無効なときは何もしません。
type Provider struct {
	meterProvider *sdkmetric.MeterProvider
	config        Config
}

// Setup は有効なら stdout へ定期出力する MeterProvider をグローバルに設定します。
// 無効なら otel のグローバル (no-op) のままです。
func Setup(ctx context.Context, cfg Config) (*Provider, error) {
	p := &Provider{config: cfg}
	if !cfg.Enabled {
		return p, nil
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(cfg.ServiceName),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	w := cfg.Writer
	if w == nil {
		w = os.Stdout
	}
	exporter, err := stdoutmetric.New(stdoutmetric.WithWriter(w))
	if err != nil {
		return nil, fmt.Errorf("failed to create metric exporter: %w", err)
	}

	p.meterProvider = sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(cfg.Interval))),
	)
	otel.SetMeterProvider(p.meterProvider)
	return p, nil
}

// Meter はサーバーの計測に使う Meter を返します。
func (p *Provider) Meter() metric.Meter {
	if p.meterProvider != nil {
		return p.meterProvider.Meter(instrumentationName)
	}
	return otel.Meter(instrumentationName)
}

func (p *Provider) Enabled() bool { return p.config.Enabled }

// Shutdown は未出力のメトリクスを書き出して終了します。
func (p *Provider) Shutdown(ctx context.Context) error {
	if p.meterProvider == nil {
		return nil
	}
	if err := p.meterProvider.Shutdown(ctx); err != nil {
		return fmt.Errorf("meter provider shutdown failed: %w", err)
	}
	return nil
}

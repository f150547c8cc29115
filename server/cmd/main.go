package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/detrandix/tanks/server"
	"github.com/detrandix/tanks/server/application"
	"github.com/detrandix/tanks/server/config"
	"github.com/detrandix/tanks/server/domain"
	"github.com/detrandix/tanks/server/game"
	"github.com/detrandix/tanks/server/telemetry"
)

func main() {
	configDir := flag.String("config", ".", "directory containing "+config.FileName)
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(*configDir)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	setupLogger(cfg)

	provider, err := telemetry.Setup(ctx, telemetry.Config{
		Enabled:     cfg.Telemetry.Enabled,
		ServiceName: cfg.Telemetry.ServiceName,
		Interval:    cfg.Telemetry.Interval,
	})
	if err != nil {
		log.Fatalf("setup telemetry: %v", err)
	}
	metrics, err := telemetry.NewMetrics(provider.Meter())
	if err != nil {
		log.Fatalf("create metrics: %v", err)
	}

	codec, err := domain.NewCodec(cfg.Protocol.Codec)
	if err != nil {
		log.Fatalf("create codec: %v", err)
	}

	// PubSub初期化
	pubsub := domain.NewSimplePubSub(0)

	// デフォルトルーム設定
	defaultRoomID := domain.RoomID("default")
	roomManager := domain.NewSingleRoomManager(defaultRoomID)

	world := game.NewWorld(cfg.Game(), game.UUIDGenerator{}, rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())))
	app := application.NewTankApplication(world, codec, metrics)

	roomCfg := cfg.Room()
	roomCfg.Observer = metrics
	room := domain.NewRoom(defaultRoomID, pubsub, app, roomCfg)
	go func() {
		if err := room.Run(ctx); err != nil {
			slog.ErrorContext(ctx, "room error", "err", err)
		}
	}()

	handler := server.Route(pubsub, roomManager, codec, cfg.Endpoint())
	s := server.NewServer(cfg.Address(), handler)

	go func() {
		if err := s.Serve(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("http server error: %v", err)
		}
	}()
	slog.InfoContext(ctx, "server listening",
		"addr", s.Addr(),
		"codec", codec.Name(),
		"tickInterval", roomCfg.TickInterval,
		"measureElapsed", roomCfg.MeasureElapsed,
	)

	<-ctx.Done()
	slog.InfoContext(ctx, "shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.Shutdown(shutdownCtx); err != nil {
		slog.ErrorContext(ctx, "graceful shutdown failed", "error", err)
		if err := s.Close(); err != nil {
			slog.ErrorContext(ctx, "forced close failed", "error", err)
		}
	}
	if err := provider.Shutdown(shutdownCtx); err != nil {
		slog.ErrorContext(ctx, "telemetry shutdown failed", "error", err)
	}
	slog.InfoContext(ctx, "server shutdown complete")
}

func setupLogger(cfg config.Config) {
	level, _ := cfg.LogLevel()
	opts := &slog.HandlerOptions{Level: level}
	var h slog.Handler
	if cfg.Log.Format == "json" {
		h = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		h = slog.NewTextHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(h))
}

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/coder/websocket"
	"golang.org/x/sync/errgroup"

	wsadapter "github.com/detrandix/tanks/server/adapter/websocket"
	"github.com/detrandix/tanks/server/application"
	"github.com/detrandix/tanks/server/domain"
	"github.com/detrandix/tanks/utils"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	addr := utils.GetEnvDefault("ADDR", "localhost")
	port := utils.GetEnvDefault("PORT", "9090")
	botCount, err := utils.GetEnvInt("BOT_COUNT", 3)
	if err != nil {
		slog.Error("invalid BOT_COUNT", "err", err)
		os.Exit(1)
	}
	codec, err := domain.NewCodec(utils.GetEnvDefault("CODEC", "json"))
	if err != nil {
		slog.Error("invalid CODEC", "err", err)
		os.Exit(1)
	}

	serverURL := fmt.Sprintf("ws://%s:%s/ws", addr, port)
	slog.Info("starting bots", "count", botCount, "server", serverURL)

	eg, ctx := errgroup.WithContext(ctx)
	for i := range botCount {
		eg.Go(func() error {
			runBot(ctx, serverURL, codec, i)
			return nil
		})
	}

	_ = eg.Wait()
	slog.Info("all bots stopped")
}

func runBot(ctx context.Context, serverURL string, codec domain.Codec, id int) {
	logger := slog.With("botID", id)

	for {
		if ctx.Err() != nil {
			return
		}
		err := botSession(ctx, serverURL, codec, logger)
		if err != nil && ctx.Err() == nil {
			logger.Warn("bot session ended, reconnecting", "err", err)
			time.Sleep(2 * time.Second)
		}
	}
}

func botSession(ctx context.Context, serverURL string, codec domain.Codec, logger *slog.Logger) error {
	conn, _, err := websocket.Dial(ctx, serverURL, nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.CloseNow()

	logger.Info("connected")

	messageType := wsadapter.MessageTypeFor(codec)
	controller := application.NewRuleBotController()
	view := application.NewBotView()
	frames := make(chan []byte, 64)

	eg, ctx := errgroup.WithContext(ctx)

	// 受信ループ
	eg.Go(func() error {
		defer close(frames)
		for {
			_, data, err := conn.Read(ctx)
			if err != nil {
				return fmt.Errorf("read: %w", err)
			}
			select {
			case frames <- data:
			case <-ctx.Done():
				return nil
			}
		}
	})

	// 盤面の更新と判断・送信は同じ goroutine で行う
	eg.Go(func() error {
		ticker := time.NewTicker(100 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				conn.Close(websocket.StatusNormalClosure, "shutdown")
				return nil
			case data, ok := <-frames:
				if !ok {
					return nil
				}
				event, err := view.Apply(codec, data)
				if err != nil {
					logger.Debug("ignored frame", "event", event, "err", err)
					continue
				}
				switch event {
				case domain.EventAssign:
					logger.Info("session assigned", "sessionID", view.SessionID)
				case domain.EventPing:
					pong, err := codec.Encode(domain.EventPong, nil)
					if err != nil {
						return err
					}
					if err := conn.Write(ctx, messageType, pong); err != nil {
						return fmt.Errorf("write pong: %w", err)
					}
				}
			case <-ticker.C:
				self, ok := view.Self()
				if !ok {
					continue
				}
				action := controller.Decide(self, view.Enemies())
				out, err := action.Frames(codec)
				if err != nil {
					return err
				}
				for _, frame := range out {
					if err := conn.Write(ctx, messageType, frame); err != nil {
						return fmt.Errorf("write: %w", err)
					}
				}
			}
		}
	})

	return eg.Wait()
}

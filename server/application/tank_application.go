package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/detrandix/tanks/server/domain"
	"github.com/detrandix/tanks/server/game"
)

// クライアントから送られるコマンド
const (
	EventBodyRotateLeft  = "body-rotate-left"
	EventBodyRotateRight = "body-rotate-right"
	EventMoveForward     = "move-forward"
	EventMoveBackward    = "move-backward"
	EventTurretRotate    = "turret-rotate"
	EventFire            = "fire"
)

var (
	// ErrUnknownEvent は未知のコマンドを受信した場合に返されます。
	ErrUnknownEvent = errors.New("unknown event")
	// ErrUnknownSession は参加していないセッションからメッセージを受信した場合に返されます。
	ErrUnknownSession = errors.New("unknown session")
)

// TankApplication は World をセッションとワイヤ形式に繋ぐ domain.Application です。
type TankApplication struct {
	world    *game.World
	codec    domain.Codec
	sessions *sessionRegistry
	recorder Recorder
}

var _ domain.Application = (*TankApplication)(nil)

// NewTankApplication は recorder が nil なら計測を行いません。
func NewTankApplication(world *game.World, codec domain.Codec, recorder Recorder) *TankApplication {
	if recorder == nil {
		recorder = nopRecorder{}
	}
	return &TankApplication{
		world:    world,
		codec:    codec,
		sessions: newSessionRegistry(),
		recorder: recorder,
	}
}

func (app *TankApplication) Join(ctx context.Context, sessionID domain.SessionID) ([]domain.Outbound, error) {
	if _, ok := app.sessions.get(sessionID); ok {
		return nil, fmt.Errorf("join %s: %w", sessionID, game.ErrPlayerExists)
	}
	s := newSession(sessionID)
	emissions, err := app.world.Join(s.player)
	if err != nil {
		return nil, fmt.Errorf("join %s: %w", sessionID, err)
	}
	app.sessions.add(s)
	app.recorder.PlayersConnected(ctx, app.sessions.len())

	if _, ok := app.world.TankOf(s.player); ok {
		slog.InfoContext(ctx, "player joined", "sessionID", sessionID)
	} else {
		slog.WarnContext(ctx, "player joined without a tank, waiting for space", "sessionID", sessionID)
	}
	return app.encode(ctx, emissions), nil
}

func (app *TankApplication) Leave(ctx context.Context, sessionID domain.SessionID) []domain.Outbound {
	s, ok := app.sessions.get(sessionID)
	if !ok {
		return nil
	}
	app.sessions.remove(sessionID)
	app.recorder.PlayersConnected(ctx, app.sessions.len())
	slog.InfoContext(ctx, "player left", "sessionID", sessionID)
	return app.encode(ctx, app.world.Disconnect(s.player))
}

// HandleMessage はコマンドを World に適用します。
// 不正なコマンドはエラーを返すだけで、クライアントには何も送りません。
func (app *TankApplication) HandleMessage(ctx context.Context, sessionID domain.SessionID, data []byte) ([]domain.Outbound, error) {
	s, ok := app.sessions.get(sessionID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSession, sessionID)
	}
	event, payload, err := app.codec.Decode(data)
	if err != nil {
		return nil, err
	}

	var emissions []game.Emission
	switch event {
	case EventBodyRotateLeft:
		emissions = app.world.RotateLeft(s.player)
	case EventBodyRotateRight:
		emissions = app.world.RotateRight(s.player)
	case EventMoveForward:
		emissions = app.world.MoveForward(s.player)
	case EventMoveBackward:
		emissions = app.world.MoveBackward(s.player)
	case EventTurretRotate:
		delta, err := domain.DecodePayload[float64](app.codec, payload)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", event, err)
		}
		emissions = app.world.TurretRotate(s.player, delta)
	case EventFire:
		slot, err := domain.DecodePayload[int](app.codec, payload)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", event, err)
		}
		emissions = app.world.Fire(s.player, slot)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEvent, event)
	}
	app.recorder.CommandHandled(ctx, event)
	return app.encode(ctx, emissions), nil
}

func (app *TankApplication) Tick(ctx context.Context, elapsed time.Duration) []domain.Outbound {
	emissions := app.world.Tick(elapsed)
	app.recorder.BulletsActive(ctx, app.world.BulletCount())
	return app.encode(ctx, emissions)
}

// encode はイベントを 1 度だけ符号化し、宛先を Outbound に写します。
func (app *TankApplication) encode(ctx context.Context, emissions []game.Emission) []domain.Outbound {
	out := make([]domain.Outbound, 0, len(emissions))
	for _, em := range emissions {
		if ev, ok := em.Event.(game.TankDestroyed); ok {
			app.recorder.TankDestroyed(ctx)
			slog.InfoContext(ctx, "tank destroyed", "tankID", ev.OldTank.ID, "playerID", ev.OldTank.PlayerID)
		}
		data, err := app.codec.Encode(em.Event.EventName(), em.Event)
		if err != nil {
			slog.ErrorContext(ctx, "failed to encode event", "event", em.Event.EventName(), "err", err)
			continue
		}
		switch em.To.Kind {
		case game.AudienceAll:
			out = append(out, domain.Broadcast(data))
		case game.AudiencePlayer:
			out = append(out, domain.SendTo(sessionOf(em.To.Player), data))
		case game.AudienceOthers:
			out = append(out, domain.BroadcastExcept(sessionOf(em.To.Player), data))
		}
	}
	return out
}

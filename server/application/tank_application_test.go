package application

import (
	"context"
	"errors"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/detrandix/tanks/server/domain"
	"github.com/detrandix/tanks/server/game"
)

type fakeRecorder struct {
	commands  map[string]int
	bullets   int
	destroyed int
	players   int
}

func newFakeRecorder() *fakeRecorder {
	return &fakeRecorder{commands: make(map[string]int)}
}

func (r *fakeRecorder) CommandHandled(ctx context.Context, command string) { r.commands[command]++ }
func (r *fakeRecorder) BulletsActive(ctx context.Context, n int)           { r.bullets = n }
func (r *fakeRecorder) TankDestroyed(ctx context.Context)                  { r.destroyed++ }
func (r *fakeRecorder) PlayersConnected(ctx context.Context, n int)        { r.players = n }

func newTestApplication(t *testing.T, codec domain.Codec) (*TankApplication, *fakeRecorder) {
	t.Helper()
	world := game.NewWorld(game.DefaultConfig(), &game.SequenceGenerator{Prefix: "id-"}, rand.New(rand.NewPCG(1, 2)))
	rec := newFakeRecorder()
	return NewTankApplication(world, codec, rec), rec
}

func decodeOutbound(t *testing.T, codec domain.Codec, o domain.Outbound) (string, []byte) {
	t.Helper()
	event, payload, err := codec.Decode(o.Data)
	if err != nil {
		t.Fatalf("decode outbound: %v", err)
	}
	return event, payload
}

func command(t *testing.T, codec domain.Codec, event string, data any) []byte {
	t.Helper()
	frame, err := codec.Encode(event, data)
	if err != nil {
		t.Fatalf("encode %s: %v", event, err)
	}
	return frame
}

func TestTankApplication_Join(t *testing.T) {
	codec := domain.JSONCodec{}
	app, rec := newTestApplication(t, codec)
	ctx := context.Background()

	out, err := app.Join(ctx, "s1")
	if err != nil {
		t.Fatalf("Join failed: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("len(out) = %d, want 2", len(out))
	}

	if out[0].Kind != domain.OutboundSendTo || out[0].SessionID != "s1" {
		t.Errorf("out[0] = %v to %s, want SendTo s1", out[0].Kind, out[0].SessionID)
	}
	event, payload := decodeOutbound(t, codec, out[0])
	if event != game.EventInitState {
		t.Errorf("out[0] event = %q, want %q", event, game.EventInitState)
	}
	st, err := domain.DecodePayload[game.InitState](codec, payload)
	if err != nil {
		t.Fatalf("decode init-state: %v", err)
	}
	if _, ok := st.Players["s1"]; !ok {
		t.Errorf("init-state does not contain the joiner")
	}
	if len(st.Tanks) != 1 {
		t.Errorf("len(init-state tanks) = %d, want 1", len(st.Tanks))
	}

	if out[1].Kind != domain.OutboundBroadcastExcept || out[1].SessionID != "s1" {
		t.Errorf("out[1] = %v except %s, want BroadcastExcept s1", out[1].Kind, out[1].SessionID)
	}
	if event, _ := decodeOutbound(t, codec, out[1]); event != game.EventNewPlayer {
		t.Errorf("out[1] event = %q, want %q", event, game.EventNewPlayer)
	}
	if rec.players != 1 {
		t.Errorf("players = %d, want 1", rec.players)
	}

	if _, err := app.Join(ctx, "s1"); !errors.Is(err, game.ErrPlayerExists) {
		t.Errorf("second Join err = %v, want ErrPlayerExists", err)
	}
}

func TestTankApplication_HandleMessageErrors(t *testing.T) {
	codec := domain.JSONCodec{}
	app, rec := newTestApplication(t, codec)
	ctx := context.Background()
	if _, err := app.Join(ctx, "s1"); err != nil {
		t.Fatalf("Join failed: %v", err)
	}

	tests := []struct {
		name    string
		session domain.SessionID
		frame   []byte
		wantErr error
	}{
		{name: "unknown session", session: "nobody", frame: command(t, codec, EventFire, 0), wantErr: ErrUnknownSession},
		{name: "unknown event", session: "s1", frame: command(t, codec, "self-destruct", nil), wantErr: ErrUnknownEvent},
		{name: "garbage", session: "s1", frame: []byte("garbage"), wantErr: domain.ErrMalformedMessage},
		{name: "turret without delta", session: "s1", frame: command(t, codec, EventTurretRotate, nil), wantErr: domain.ErrEmptyMessage},
		{name: "fire with text", session: "s1", frame: command(t, codec, EventFire, "heavy"), wantErr: domain.ErrMalformedMessage},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := app.HandleMessage(ctx, tt.session, tt.frame)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("err = %v, want %v", err, tt.wantErr)
			}
			if len(out) != 0 {
				t.Errorf("len(out) = %d, want 0", len(out))
			}
		})
	}
	if len(rec.commands) != 0 {
		t.Errorf("recorded commands = %v, want none", rec.commands)
	}
}

func TestTankApplication_MoveBroadcastsTankMoved(t *testing.T) {
	for _, codec := range []domain.Codec{domain.JSONCodec{}, domain.MsgpackCodec{}} {
		t.Run(codec.Name(), func(t *testing.T) {
			app, rec := newTestApplication(t, codec)
			ctx := context.Background()
			if _, err := app.Join(ctx, "s1"); err != nil {
				t.Fatalf("Join failed: %v", err)
			}
			before, _ := app.world.TankOf("s1")
			start := before.Center()

			out, err := app.HandleMessage(ctx, "s1", command(t, codec, EventMoveForward, nil))
			if err != nil {
				t.Fatalf("HandleMessage failed: %v", err)
			}
			if len(out) != 1 || out[0].Kind != domain.OutboundBroadcast {
				t.Fatalf("out = %+v, want one broadcast", out)
			}
			event, payload := decodeOutbound(t, codec, out[0])
			if event != game.EventTankMoved {
				t.Fatalf("event = %q, want %q", event, game.EventTankMoved)
			}
			moved, err := domain.DecodePayload[game.TankState](codec, payload)
			if err != nil {
				t.Fatalf("decode tank-moved: %v", err)
			}
			if moved.Center.Y != start.Y-1 || moved.Center.X != start.X {
				t.Errorf("center = %+v, want one step up from %+v", moved.Center, start)
			}
			if rec.commands[EventMoveForward] != 1 {
				t.Errorf("commands[%s] = %d, want 1", EventMoveForward, rec.commands[EventMoveForward])
			}
		})
	}
}

func TestTankApplication_FireAndTick(t *testing.T) {
	codec := domain.JSONCodec{}
	app, rec := newTestApplication(t, codec)
	ctx := context.Background()
	if _, err := app.Join(ctx, "s1"); err != nil {
		t.Fatalf("Join failed: %v", err)
	}

	out, err := app.HandleMessage(ctx, "s1", command(t, codec, EventFire, 0))
	if err != nil {
		t.Fatalf("HandleMessage failed: %v", err)
	}
	if len(out) != 1 || out[0].Kind != domain.OutboundBroadcast {
		t.Fatalf("out = %+v, want one Broadcast", out)
	}
	if event, _ := decodeOutbound(t, codec, out[0]); event != game.EventTankUpdate {
		t.Errorf("event = %q, want %q", event, game.EventTankUpdate)
	}

	// 装填中の再発射は何も起こさない
	out, err = app.HandleMessage(ctx, "s1", command(t, codec, EventFire, 0))
	if err != nil {
		t.Fatalf("HandleMessage failed: %v", err)
	}
	if len(out) != 0 {
		t.Errorf("refire len(out) = %d, want 0", len(out))
	}

	out = app.Tick(ctx, 15*time.Millisecond)
	var bullets game.BulletsUpdate
	var updates int
	for _, o := range out {
		event, payload := decodeOutbound(t, codec, o)
		switch event {
		case game.EventBulletsUpdate:
			if o.Kind != domain.OutboundBroadcast {
				t.Errorf("bullets-update kind = %v, want broadcast", o.Kind)
			}
			bullets, err = domain.DecodePayload[game.BulletsUpdate](codec, payload)
			if err != nil {
				t.Fatalf("decode bullets-update: %v", err)
			}
		case game.EventTankUpdate:
			updates++
		}
	}
	if len(bullets) != 1 {
		t.Errorf("len(bullets) = %d, want 1", len(bullets))
	}
	if updates != 1 {
		t.Errorf("tank-update count = %d, want 1", updates)
	}
	if rec.bullets != 1 {
		t.Errorf("recorded bullets = %d, want 1", rec.bullets)
	}
}

func TestTankApplication_Leave(t *testing.T) {
	codec := domain.JSONCodec{}
	app, rec := newTestApplication(t, codec)
	ctx := context.Background()
	for _, id := range []domain.SessionID{"s1", "s2"} {
		if _, err := app.Join(ctx, id); err != nil {
			t.Fatalf("Join(%s) failed: %v", id, err)
		}
	}

	out := app.Leave(ctx, "s1")
	var events []string
	for _, o := range out {
		if o.Kind != domain.OutboundBroadcast {
			t.Errorf("kind = %v, want broadcast", o.Kind)
		}
		event, _ := decodeOutbound(t, codec, o)
		events = append(events, event)
	}
	if len(events) != 2 || events[0] != game.EventTankDestroyed || events[1] != game.EventRemovePlayer {
		t.Errorf("events = %v, want [%s %s]", events, game.EventTankDestroyed, game.EventRemovePlayer)
	}
	if rec.destroyed != 1 {
		t.Errorf("destroyed = %d, want 1", rec.destroyed)
	}
	if rec.players != 1 {
		t.Errorf("players = %d, want 1", rec.players)
	}

	if out := app.Leave(ctx, "s1"); out != nil {
		t.Errorf("second Leave = %v, want nil", out)
	}
	if _, err := app.HandleMessage(ctx, "s1", command(t, codec, EventFire, 0)); !errors.Is(err, ErrUnknownSession) {
		t.Errorf("HandleMessage after Leave err = %v, want ErrUnknownSession", err)
	}
}

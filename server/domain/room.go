package domain

import (
	"context"
	"log/slog"
	"time"
)

type RoomID string

func (id RoomID) String() string { return string(id) }

func (id RoomID) IsEmpty() bool { return id == "" }

// RoomObserver は Room の tick と配送の結果を受け取ります。nil なら何もしません。
type RoomObserver interface {
	TickCompleted(ctx context.Context, took time.Duration)
	SendDropped(ctx context.Context, sessionID SessionID)
}

// RoomConfig は Room の tick 設定です。
type RoomConfig struct {
	TickInterval time.Duration
	// MeasureElapsed が true なら前回 tick からの実測時間を Application に渡します。
	// false なら遅延に関係なく TickInterval を渡します。
	MeasureElapsed bool
	Observer       RoomObserver
}

// Room は Application を所有する唯一の goroutine です。
// join/leave、コマンド、tick はすべてこの goroutine で 1 つずつ完了まで処理されます。
type Room struct {
	ID       RoomID
	sessions map[SessionID]struct{}

	pubsub      PubSub
	application Application // 外部からアプリケーションロジックを注入できる

	tickInterval   time.Duration
	measureElapsed bool
	observer       RoomObserver
	now            func() time.Time
}

func NewRoom(id RoomID, pubsub PubSub, application Application, cfg RoomConfig) *Room {
	interval := cfg.TickInterval
	if interval <= 0 {
		interval = 15 * time.Millisecond
	}
	return &Room{
		ID:             id,
		sessions:       make(map[SessionID]struct{}),
		pubsub:         pubsub,
		application:    application,
		tickInterval:   interval,
		measureElapsed: cfg.MeasureElapsed,
		observer:       cfg.Observer,
		now:            time.Now,
	}
}

func (r *Room) Run(ctx context.Context) error {
	// room宛のメッセージを購読
	roomTopic := RoomTopic(r.ID)
	msgCh := r.pubsub.Subscribe(roomTopic)
	defer r.pubsub.Unsubscribe(roomTopic, msgCh)

	// room制御用トピックを購読（join/leave）
	ctrlTopic := RoomCtrlTopic(r.ID)
	ctrlCh := r.pubsub.Subscribe(ctrlTopic)
	defer r.pubsub.Unsubscribe(ctrlTopic, ctrlCh)

	ticker := time.NewTicker(r.tickInterval)
	defer ticker.Stop()

	last := r.now()
	for {
		select {
		case <-ctx.Done():
			return nil
		case ctrl, ok := <-ctrlCh:
			if !ok {
				return nil
			}
			r.handleControlMessage(ctx, ctrl)
		case msg, ok := <-msgCh:
			if !ok {
				return nil
			}
			// コマンドは次の tick を待たずに即座に反映する
			out, err := r.application.HandleMessage(ctx, msg.SessionID, msg.Data)
			if err != nil {
				slog.DebugContext(ctx, "room ignored message", "sessionID", msg.SessionID, "err", err)
			}
			r.deliver(ctx, out)
		case <-ticker.C:
			now := r.now()
			r.tick(ctx, r.elapsed(now, last))
			last = now
		}
	}
}

func (r *Room) elapsed(now, last time.Time) time.Duration {
	if !r.measureElapsed {
		return r.tickInterval
	}
	return now.Sub(last)
}

func (r *Room) tick(ctx context.Context, elapsed time.Duration) {
	start := time.Now()
	r.deliver(ctx, r.application.Tick(ctx, elapsed))
	if r.observer != nil {
		r.observer.TickCompleted(ctx, time.Since(start))
	}
}

// handleControlMessage はjoin/leave制御メッセージを処理します。
func (r *Room) handleControlMessage(ctx context.Context, msg Message) {
	switch msg.Control {
	case ControlJoin:
		if _, ok := r.sessions[msg.SessionID]; ok {
			return
		}
		r.sessions[msg.SessionID] = struct{}{}
		out, err := r.application.Join(ctx, msg.SessionID)
		if err != nil {
			slog.WarnContext(ctx, "room join failed", "sessionID", msg.SessionID, "err", err)
			delete(r.sessions, msg.SessionID)
			return
		}
		slog.InfoContext(ctx, "session joined room", "sessionID", msg.SessionID, "roomID", r.ID)
		r.deliver(ctx, out)
	case ControlLeave:
		if _, ok := r.sessions[msg.SessionID]; !ok {
			return
		}
		delete(r.sessions, msg.SessionID)
		slog.InfoContext(ctx, "session left room", "sessionID", msg.SessionID, "roomID", r.ID)
		r.deliver(ctx, r.application.Leave(ctx, msg.SessionID))
	default:
		slog.WarnContext(ctx, "unknown room control message", "control", msg.Control)
	}
}

func (r *Room) deliver(ctx context.Context, out []Outbound) {
	for _, o := range out {
		switch o.Kind {
		case OutboundBroadcast:
			r.Broadcast(ctx, o.Data)
		case OutboundSendTo:
			r.SendTo(ctx, o.SessionID, o.Data)
		case OutboundBroadcastExcept:
			r.broadcastExcept(ctx, o.SessionID, o.Data)
		default:
		}
	}
}

func (r *Room) Broadcast(ctx context.Context, data []byte) {
	for sessionID := range r.sessions {
		r.SendTo(ctx, sessionID, data)
	}
}

func (r *Room) broadcastExcept(ctx context.Context, except SessionID, data []byte) {
	for sessionID := range r.sessions {
		if sessionID == except {
			continue
		}
		r.SendTo(ctx, sessionID, data)
	}
}

// SendTo は送信に失敗しても再送しません。切断は SessionEndpoint 側の close で処理されます。
func (r *Room) SendTo(ctx context.Context, sessionID SessionID, data []byte) {
	if err := r.pubsub.Publish(ctx, SessionTopic(sessionID), Message{SessionID: sessionID, Data: data}); err != nil {
		slog.DebugContext(ctx, "room send dropped", "sessionID", sessionID, "err", err)
		if r.observer != nil {
			r.observer.SendDropped(ctx, sessionID)
		}
	}
}

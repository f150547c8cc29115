package domain

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
)

var (
	// ErrBackpressure は書き込みチャネルが満杯の場合に返されるエラーです。
	ErrBackpressure = errors.New("write channel is full, apply backpressure")
	// ErrInitializationFailed はセッションエンドポイントの初期化に失敗した場合に返されるエラーです。
	ErrInitializationFailed = errors.New("failed to initialize session endpoint")
)

// EndpointConfig は SessionEndpoint の死活監視設定です。
type EndpointConfig struct {
	IdleTimeout  time.Duration
	PingInterval time.Duration
	WriteBuffer  int
}

func DefaultEndpointConfig() EndpointConfig {
	return EndpointConfig{
		IdleTimeout:  30 * time.Second,
		PingInterval: 10 * time.Second,
		WriteBuffer:  1024,
	}
}

type SessionEndpoint struct {
	ctx    context.Context
	cancel context.CancelFunc

	session     *Session
	connection  *Connection
	pubsub      PubSub
	roomManager RoomManager
	codec       Codec
	cfg         EndpointConfig
	roomID      RoomID // 実行時にRoomManagerから取得

	ctrlCh  chan endpointEvent // 制御用チャネル
	writeCh chan []byte        // 書き込み用チャネル

	// lifecycle
	closed atomic.Bool
}

func NewSessionEndpoint(session *Session, connection *Connection, pubsub PubSub, roomManager RoomManager, codec Codec, cfg EndpointConfig) (*SessionEndpoint, error) {
	if session == nil {
		return nil, ErrInitializationFailed
	}
	if connection == nil {
		return nil, ErrInitializationFailed
	}
	if pubsub == nil {
		return nil, ErrInitializationFailed
	}
	if roomManager == nil {
		return nil, ErrInitializationFailed
	}
	if codec == nil {
		return nil, ErrInitializationFailed
	}
	if cfg.WriteBuffer <= 0 {
		cfg.WriteBuffer = DefaultEndpointConfig().WriteBuffer
	}
	ctx, cancel := context.WithCancel(context.Background())
	se := &SessionEndpoint{
		ctx:         ctx,
		cancel:      cancel,
		session:     session,
		connection:  connection,
		pubsub:      pubsub,
		roomManager: roomManager,
		codec:       codec,
		cfg:         cfg,
		ctrlCh:      make(chan endpointEvent, 16),
		writeCh:     make(chan []byte, cfg.WriteBuffer),
	}
	return se, nil
}

// Run は接続が閉じるまでブロックします。
// 開始時に Room へ join を、終了時に leave を publish します。
func (se *SessionEndpoint) Run() error {
	roomID, err := se.roomManager.GetRoom(se.ctx, se.session.ID())
	if err != nil {
		se.close(IdleNone, ClosePolicyViolate)
		return fmt.Errorf("get room: %w", err)
	}
	se.roomID = roomID

	ping, err := se.codec.Encode(EventPing, nil)
	if err != nil {
		se.close(IdleNone, ClosePolicyViolate)
		return fmt.Errorf("encode ping: %w", err)
	}

	// 自分宛のメッセージを購読
	sessionTopic := SessionTopic(se.session.ID())
	msgCh := se.pubsub.Subscribe(sessionTopic)
	defer se.pubsub.Unsubscribe(sessionTopic, msgCh)

	heartbeat := NewHeartbeatService(se.cfg.PingInterval, se.session, se.writeCh, ping)

	eg, ctx := errgroup.WithContext(se.ctx)
	eg.Go(func() error {
		se.ownerLoop(ctx)
		return nil
	})
	eg.Go(func() error {
		se.readLoop(ctx)
		return nil
	})
	eg.Go(func() error {
		se.writeLoop(ctx)
		return nil
	})
	eg.Go(func() error {
		se.subscribeLoop(ctx, msgCh)
		return nil
	})
	eg.Go(func() error {
		heartbeat.Run(ctx)
		return nil
	})

	// セッションID通知を送信
	assign, err := se.codec.Encode(EventAssign, se.session.ID())
	if err == nil {
		err = se.Send(assign)
	}
	if err != nil {
		slog.WarnContext(ctx, "failed to send assign message", "sessionID", se.session.ID(), "err", err)
	}

	join := Message{SessionID: se.session.ID(), Control: ControlJoin}
	if err := se.pubsub.Publish(ctx, RoomCtrlTopic(se.roomID), join); err != nil {
		slog.WarnContext(ctx, "failed to publish join", "sessionID", se.session.ID(), "err", err)
		se.close(IdleNone, CloseGoingAway)
	}

	waitErr := eg.Wait()

	// ctx は既にキャンセルされているので leave は Background で送る
	leave := Message{SessionID: se.session.ID(), Control: ControlLeave}
	if err := se.pubsub.Publish(context.Background(), RoomCtrlTopic(se.roomID), leave); err != nil {
		slog.Warn("failed to publish leave", "sessionID", se.session.ID(), "err", err)
	}
	slog.Info("session endpoint closed", "sessionID", se.session.ID(), "reason", se.session.CloseReason())
	return waitErr
}

// Send は data を書き込みキューに積みます。満杯なら ErrBackpressure です。
func (se *SessionEndpoint) Send(data []byte) error {
	select {
	case se.writeCh <- data:
		return nil
	default:
		return ErrBackpressure
	}
}

// ownerLoop は論理セッションの状態を監視し、必要に応じて接続の管理を行います。
func (se *SessionEndpoint) ownerLoop(ctx context.Context) {
	interval := time.Second
	if se.cfg.IdleTimeout > 0 && se.cfg.IdleTimeout < 4*interval {
		interval = se.cfg.IdleTimeout / 4
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-se.ctrlCh:
			se.handleControlEvent(ctx, ev)
		case <-ticker.C:
			ok, reason := se.session.IsIdle(se.cfg.IdleTimeout)
			if ok {
				se.handleControlEvent(ctx, endpointEvent{kind: evClose, reason: reason})
			}
		}
	}
}

func (se *SessionEndpoint) readLoop(ctx context.Context) {
	for {
		data, err := se.connection.Read(ctx)
		if err != nil {
			se.sendCtrlEvent(ctx, endpointEvent{kind: evReadError, reason: IdleClosed, err: err})
			return
		}
		se.handleData(ctx, data)
	}
}

func (se *SessionEndpoint) writeLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case data := <-se.writeCh:
			err := se.connection.Write(ctx, data)
			if err != nil {
				se.sendCtrlEvent(ctx, endpointEvent{kind: evWriteError, reason: IdleClosed, err: err})
				return
			}
			se.session.TouchWrite()
		}
	}
}

// subscribeLoop はpubsubからのメッセージをwriteChに転送します。
func (se *SessionEndpoint) subscribeLoop(ctx context.Context, msgCh <-chan Message) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-msgCh:
			if !ok {
				return
			}
			select {
			case se.writeCh <- msg.Data:
				// 送信成功
			default:
				slog.WarnContext(ctx, "subscribeLoop: writeCh full, message dropped", "sessionID", se.session.ID())
			}
		}
	}
}

func (se *SessionEndpoint) close(reason IdleReason, code int32) {
	if !se.closed.CompareAndSwap(false, true) {
		return
	}
	se.cancel()
	se.session.Close(reason)
	se.connection.Close(code, reason.String())
}

func (se *SessionEndpoint) handleData(ctx context.Context, data []byte) {
	se.session.TouchRead()
	event, _, err := se.codec.Decode(data)
	if err != nil {
		slog.DebugContext(ctx, "failed to decode message", "sessionID", se.session.ID(), "err", err)
		return
	}

	switch event {
	case EventPong:
		se.sendCtrlEvent(ctx, endpointEvent{kind: evPong})
	case EventPing, EventAssign:
		// クライアントから送られても意味を持たない
	default:
		// コマンドをroom topicに転送
		msg := Message{SessionID: se.session.ID(), Data: data}
		if err := se.pubsub.Publish(ctx, RoomTopic(se.roomID), msg); err != nil {
			slog.WarnContext(ctx, "room topic full, command dropped", "sessionID", se.session.ID(), "event", event)
		}
	}
}

// handleControlEvent は制御チャネルからのイベントを処理し論理セッションの状態を更新する唯一の関数です。
func (se *SessionEndpoint) handleControlEvent(ctx context.Context, ev endpointEvent) {
	switch ev.kind {
	case evClose:
		code := CloseNormal
		if ev.reason != IdleNone {
			code = ClosePolicyViolate
		}
		se.close(ev.reason, code)
	case evPong:
		se.session.TouchPong()
	case evReadError, evWriteError:
		slog.DebugContext(ctx, "connection error", "sessionID", se.session.ID(), "err", ev.err)
		se.close(ev.reason, CloseGoingAway)
	default:
		slog.WarnContext(ctx, "unknown endpoint event kind", "kind", ev.kind)
	}
}

func (se *SessionEndpoint) sendCtrlEvent(ctx context.Context, ev endpointEvent) {
	select {
	case se.ctrlCh <- ev:
	case <-ctx.Done():
	}
}

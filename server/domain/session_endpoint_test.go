package domain_test

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"go.uber.org/mock/gomock"

	"github.com/detrandix/tanks/server/domain"
	"github.com/detrandix/tanks/server/domain/mocks"
)

// 初期化時にリソースが正しくセットアップされることを確認
func TestNewSessionEndpoint_InitializesDefaults(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	s := domain.NewSession()
	tr := mocks.NewMockTransport(ctrl)
	c := domain.NewConnection(s.ID(), tr)
	ps := mocks.NewMockPubSub(ctrl)
	rm := mocks.NewMockRoomManager(ctrl)

	se, err := domain.NewSessionEndpoint(s, c, ps, rm, domain.JSONCodec{}, domain.DefaultEndpointConfig())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if se == nil {
		t.Fatalf("endpoint is nil")
	}
}

func TestNewSessionEndpoint_RejectsMissingDependencies(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	s := domain.NewSession()
	c := domain.NewConnection(s.ID(), mocks.NewMockTransport(ctrl))
	ps := mocks.NewMockPubSub(ctrl)
	rm := mocks.NewMockRoomManager(ctrl)
	cfg := domain.DefaultEndpointConfig()

	cases := map[string]func() (*domain.SessionEndpoint, error){
		"session":     func() (*domain.SessionEndpoint, error) { return domain.NewSessionEndpoint(nil, c, ps, rm, domain.JSONCodec{}, cfg) },
		"connection":  func() (*domain.SessionEndpoint, error) { return domain.NewSessionEndpoint(s, nil, ps, rm, domain.JSONCodec{}, cfg) },
		"pubsub":      func() (*domain.SessionEndpoint, error) { return domain.NewSessionEndpoint(s, c, nil, rm, domain.JSONCodec{}, cfg) },
		"roomManager": func() (*domain.SessionEndpoint, error) { return domain.NewSessionEndpoint(s, c, ps, nil, domain.JSONCodec{}, cfg) },
		"codec":       func() (*domain.SessionEndpoint, error) { return domain.NewSessionEndpoint(s, c, ps, rm, nil, cfg) },
	}
	for name, fn := range cases {
		if _, err := fn(); !errors.Is(err, domain.ErrInitializationFailed) {
			t.Errorf("%s: err = %v, want ErrInitializationFailed", name, err)
		}
	}
}

func expectMessage(t *testing.T, ch <-chan domain.Message) domain.Message {
	t.Helper()
	select {
	case msg := <-ch:
		return msg
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for pubsub message")
		return domain.Message{}
	}
}

func expectFrame(t *testing.T, ch <-chan []byte) []byte {
	t.Helper()
	select {
	case data := <-ch:
		return data
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for written frame")
		return nil
	}
}

func TestSessionEndpoint_RunLifecycle(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	reads := make(chan []byte, 4)
	writes := make(chan []byte, 16)

	tr := mocks.NewMockTransport(ctrl)
	tr.EXPECT().Read(gomock.Any()).DoAndReturn(func(ctx context.Context) ([]byte, error) {
		select {
		case data, ok := <-reads:
			if !ok {
				return nil, io.EOF
			}
			return data, nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}).AnyTimes()
	tr.EXPECT().Write(gomock.Any(), gomock.Any()).DoAndReturn(func(ctx context.Context, data []byte) error {
		writes <- data
		return nil
	}).AnyTimes()
	tr.EXPECT().Close(domain.CloseGoingAway, gomock.Any()).Return(nil).Times(1)

	rm := mocks.NewMockRoomManager(ctrl)
	rm.EXPECT().GetRoom(gomock.Any(), gomock.Any()).Return(domain.RoomID("lobby"), nil)

	ps := domain.NewSimplePubSub(16)
	ctrlCh := ps.Subscribe(domain.RoomCtrlTopic("lobby"))
	roomCh := ps.Subscribe(domain.RoomTopic("lobby"))

	s := domain.NewSession()
	codec := domain.JSONCodec{}
	cfg := domain.EndpointConfig{IdleTimeout: time.Minute, PingInterval: time.Minute}
	se, err := domain.NewSessionEndpoint(s, domain.NewConnection(s.ID(), tr), ps, rm, codec, cfg)
	if err != nil {
		t.Fatalf("NewSessionEndpoint failed: %v", err)
	}

	done := make(chan error, 1)
	go func() { done <- se.Run() }()

	// 最初にセッションIDが通知される
	event, payload, err := codec.Decode(expectFrame(t, writes))
	if err != nil {
		t.Fatalf("decode assign: %v", err)
	}
	if event != domain.EventAssign {
		t.Fatalf("first event = %q, want %q", event, domain.EventAssign)
	}
	id, err := domain.DecodePayload[domain.SessionID](codec, payload)
	if err != nil || id != s.ID() {
		t.Fatalf("assigned id = %q (err %v), want %q", id, err, s.ID())
	}

	join := expectMessage(t, ctrlCh)
	if join.Control != domain.ControlJoin || join.SessionID != s.ID() {
		t.Fatalf("ctrl message = %+v, want join from %s", join, s.ID())
	}

	// コマンドは room topic に転送され、pong と不正なフレームは転送されない
	reads <- []byte(`{"event":"pong"}`)
	reads <- []byte(`garbage`)
	reads <- []byte(`{"event":"fire","data":0}`)
	cmd := expectMessage(t, roomCh)
	if string(cmd.Data) != `{"event":"fire","data":0}` {
		t.Errorf("room message = %s", cmd.Data)
	}

	// 自分宛のメッセージは書き込まれる
	if err := ps.Publish(context.Background(), domain.SessionTopic(s.ID()), domain.Message{SessionID: s.ID(), Data: []byte("state")}); err != nil {
		t.Fatalf("publish to session: %v", err)
	}
	if got := expectFrame(t, writes); string(got) != "state" {
		t.Errorf("written = %q, want %q", got, "state")
	}

	// 読み込みエラーで終了し leave が publish される
	close(reads)
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after read error")
	}
	leave := expectMessage(t, ctrlCh)
	if leave.Control != domain.ControlLeave || leave.SessionID != s.ID() {
		t.Errorf("ctrl message = %+v, want leave from %s", leave, s.ID())
	}
	if !s.IsClosed() {
		t.Errorf("session is not closed")
	}
	if got := s.CloseReason(); got != domain.IdleClosed {
		t.Errorf("CloseReason = %s, want %s", got, domain.IdleClosed)
	}
	if len(roomCh) != 0 {
		t.Errorf("room received %d extra messages", len(roomCh))
	}
}

func TestSessionEndpoint_RoomLookupFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	tr := mocks.NewMockTransport(ctrl)
	tr.EXPECT().Close(domain.ClosePolicyViolate, gomock.Any()).Return(nil)
	rm := mocks.NewMockRoomManager(ctrl)
	lookupErr := errors.New("no room")
	rm.EXPECT().GetRoom(gomock.Any(), gomock.Any()).Return(domain.RoomID(""), lookupErr)

	s := domain.NewSession()
	se, err := domain.NewSessionEndpoint(s, domain.NewConnection(s.ID(), tr), mocks.NewMockPubSub(ctrl), rm, domain.JSONCodec{}, domain.DefaultEndpointConfig())
	if err != nil {
		t.Fatalf("NewSessionEndpoint failed: %v", err)
	}
	if err := se.Run(); !errors.Is(err, lookupErr) {
		t.Errorf("Run err = %v, want %v", err, lookupErr)
	}
}

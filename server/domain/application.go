package domain

import (
	"context"
	"time"
)

//go:generate go tool mockgen -destination=./mocks/application_mock.go -package=mocks . Application

// Application は Room の goroutine から直列に呼ばれるゲームロジックです。
// 戻り値の Outbound は Room がそのまま配送します。
type Application interface {
	Join(ctx context.Context, sessionID SessionID) ([]Outbound, error)
	Leave(ctx context.Context, sessionID SessionID) []Outbound
	HandleMessage(ctx context.Context, sessionID SessionID, data []byte) ([]Outbound, error)
	Tick(ctx context.Context, elapsed time.Duration) []Outbound
}

// OutboundKind は送信先の種類です。
type OutboundKind uint8

const (
	OutboundBroadcast OutboundKind = iota
	OutboundSendTo
	OutboundBroadcastExcept
)

// Outbound はエンコード済みの送信データと宛先です。
type Outbound struct {
	Kind      OutboundKind
	SessionID SessionID
	Data      []byte
}

func Broadcast(data []byte) Outbound {
	return Outbound{Kind: OutboundBroadcast, Data: data}
}

func SendTo(sessionID SessionID, data []byte) Outbound {
	return Outbound{Kind: OutboundSendTo, SessionID: sessionID, Data: data}
}

func BroadcastExcept(sessionID SessionID, data []byte) Outbound {
	return Outbound{Kind: OutboundBroadcastExcept, SessionID: sessionID, Data: data}
}

package domain

import (
	"context"
	"sync"
)

//go:generate go tool mockgen -destination=./mocks/pubsub_mock.go -package=mocks . PubSub

// Topic は PubSub の宛先です。
type Topic string

func SessionTopic(id SessionID) Topic { return Topic("session:" + id.String()) }
func RoomTopic(id RoomID) Topic       { return Topic("room:" + id.String()) }
func RoomCtrlTopic(id RoomID) Topic   { return Topic("room:" + id.String() + ":ctrl") }

// ControlKind は room 制御トピックに流れるメッセージの種類です。
type ControlKind uint8

const (
	ControlNone ControlKind = iota
	ControlJoin
	ControlLeave
)

// Message は PubSub で配送される 1 メッセージです。
type Message struct {
	SessionID SessionID
	Control   ControlKind
	Data      []byte
}

// PubSub はトピック単位の非同期配送です。Publish はブロックしません。
type PubSub interface {
	// Publish は購読者のバッファが満杯なら捨てて ErrBackpressure を返します。
	Publish(ctx context.Context, topic Topic, msg Message) error
	Subscribe(topic Topic) <-chan Message
	Unsubscribe(topic Topic, ch <-chan Message)
}

// SimplePubSub はプロセス内で完結する PubSub です。
type SimplePubSub struct {
	mu         sync.RWMutex
	subs       map[Topic][]chan Message
	bufferSize int
}

var _ PubSub = (*SimplePubSub)(nil)

func NewSimplePubSub(bufferSize int) *SimplePubSub {
	if bufferSize <= 0 {
		bufferSize = 256
	}
	return &SimplePubSub{
		subs:       make(map[Topic][]chan Message),
		bufferSize: bufferSize,
	}
}

func (p *SimplePubSub) Publish(ctx context.Context, topic Topic, msg Message) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	var err error
	for _, ch := range p.subs[topic] {
		select {
		case ch <- msg:
		default:
			err = ErrBackpressure
		}
	}
	return err
}

func (p *SimplePubSub) Subscribe(topic Topic) <-chan Message {
	ch := make(chan Message, p.bufferSize)
	p.mu.Lock()
	p.subs[topic] = append(p.subs[topic], ch)
	p.mu.Unlock()
	return ch
}

// Unsubscribe は購読を解除しチャネルを閉じます。
func (p *SimplePubSub) Unsubscribe(topic Topic, ch <-chan Message) {
	p.mu.Lock()
	defer p.mu.Unlock()
	subs := p.subs[topic]
	for i, c := range subs {
		if c == ch {
			close(c)
			subs = append(subs[:i], subs[i+1:]...)
			break
		}
	}
	if len(subs) == 0 {
		delete(p.subs, topic)
		return
	}
	p.subs[topic] = subs
}

package websocket

import (
	"context"

	"github.com/coder/websocket"

	"github.com/detrandix/tanks/server/domain"
)

// DefaultReadLimit はクライアントから受け付ける 1 フレームの上限です。コマンドは小さい。
const DefaultReadLimit = 4096

type wsTransport struct {
	conn        *websocket.Conn
	messageType websocket.MessageType
}

// NewTransportFrom は conn を domain.Transport として包みます。
// 書き込みは messageType のフレームで行います。
func NewTransportFrom(conn *websocket.Conn, messageType websocket.MessageType) domain.Transport {
	conn.SetReadLimit(DefaultReadLimit)
	return &wsTransport{conn: conn, messageType: messageType}
}

// MessageTypeFor はコーデックに合うフレーム種別を返します。
func MessageTypeFor(codec domain.Codec) websocket.MessageType {
	if codec.Name() == "msgpack" {
		return websocket.MessageBinary
	}
	return websocket.MessageText
}

func (t *wsTransport) Read(ctx context.Context) ([]byte, error) {
	_, data, err := t.conn.Read(ctx)
	if err != nil {
		return nil, err
	}
	return data, nil
}

func (t *wsTransport) Write(ctx context.Context, data []byte) error {
	return t.conn.Write(ctx, t.messageType, data)
}

func (t *wsTransport) Close(code int32, reason string) error {
	return t.conn.Close(websocket.StatusCode(code), reason)
}

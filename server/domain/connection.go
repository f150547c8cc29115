package domain

import (
	"context"

	"github.com/google/uuid"
)

type ConnectionID string

// Connection は物理的な接続を表します。
type Connection struct {
	SessionID    SessionID
	ConnectionID ConnectionID
	transport    Transport
}

func NewConnection(sessionID SessionID, transport Transport) *Connection {
	return &Connection{
		SessionID:    sessionID,
		ConnectionID: ConnectionID(uuid.NewString()),
		transport:    transport,
	}
}

func (c *Connection) Write(ctx context.Context, data []byte) error {
	return c.transport.Write(ctx, data)
}

func (c *Connection) Read(ctx context.Context) ([]byte, error) {
	return c.transport.Read(ctx)
}

// Close は接続を閉じます。reason はクライアントに close frame として送られます。
func (c *Connection) Close(code int32, reason string) {
	_ = c.transport.Close(code, reason)
}

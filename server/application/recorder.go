package application

import "context"

// Recorder はアプリケーションの計測値を受け取ります。
type Recorder interface {
	CommandHandled(ctx context.Context, command string)
	BulletsActive(ctx context.Context, n int)
	TankDestroyed(ctx context.Context)
	PlayersConnected(ctx context.Context, n int)
}

type nopRecorder struct{}

func (nopRecorder) CommandHandled(context.Context, string) {}
func (nopRecorder) BulletsActive(context.Context, int)     {}
func (nopRecorder) TankDestroyed(context.Context)          {}
func (nopRecorder) PlayersConnected(context.Context, int)  {}

package domain

import (
	"context"
)

//go:generate go tool mockgen -destination=./mocks/room_manager_mock.go -package=mocks . RoomManager

// RoomManager はセッションが参加する Room を決めます。
type RoomManager interface {
	GetRoom(ctx context.Context, sessionID SessionID) (RoomID, error)
}

// SingleRoomManager は全セッションを 1 つの Room に割り当てます。
type SingleRoomManager struct {
	roomID RoomID
}

func NewSingleRoomManager(roomID RoomID) *SingleRoomManager {
	return &SingleRoomManager{roomID: roomID}
}

func (m *SingleRoomManager) GetRoom(ctx context.Context, sessionID SessionID) (RoomID, error) {
	return m.roomID, nil
}

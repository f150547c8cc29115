package application

import (
	"github.com/detrandix/tanks/server/domain"
	"github.com/detrandix/tanks/server/game"
)

// session は接続とプレイヤーの対応です。プレイヤー ID はセッション ID をそのまま使います。
type session struct {
	id     domain.SessionID
	player game.PlayerID
}

func newSession(id domain.SessionID) *session {
	return &session{id: id, player: game.PlayerID(id)}
}

func sessionOf(player game.PlayerID) domain.SessionID {
	return domain.SessionID(player)
}

// sessionRegistry は Room の goroutine からのみ触るのでロックを持ちません。
type sessionRegistry struct {
	byID map[domain.SessionID]*session
}

func newSessionRegistry() *sessionRegistry {
	return &sessionRegistry{byID: make(map[domain.SessionID]*session)}
}

func (r *sessionRegistry) get(id domain.SessionID) (*session, bool) {
	s, ok := r.byID[id]
	return s, ok
}

func (r *sessionRegistry) add(s *session) { r.byID[s.id] = s }

func (r *sessionRegistry) remove(id domain.SessionID) { delete(r.byID, id) }

func (r *sessionRegistry) len() int { return len(r.byID) }

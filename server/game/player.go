package game

import "time"

// CurrentTank はプレイヤーが今操作している戦車です。
// 破壊から再配置までの間は NoTank になります。
type CurrentTank struct {
	id  TankID
	set bool
}

func NoTank() CurrentTank {
	return CurrentTank{}
}

func HasTank(id TankID) CurrentTank {
	return CurrentTank{id: id, set: true}
}

// ID は戦車 ID と、戦車を持っているかどうかを返します。
func (c CurrentTank) ID() (TankID, bool) {
	return c.id, c.set
}

// Player は接続中のプレイヤーです。戦車の破壊を跨いで生存し、切断時にのみ削除されます。
type Player struct {
	ID             PlayerID
	Name           string
	PreferredColor Color
	Connected      time.Time
	LastAction     time.Time
	Tank           CurrentTank
}

// PlayerState はイベントで送るプレイヤーのスナップショットです。
type PlayerState struct {
	PlayerID      PlayerID `json:"playerId" msgpack:"playerId"`
	Name          string   `json:"name" msgpack:"name"`
	PreferedColor Color    `json:"preferedColor" msgpack:"preferedColor"`
	Connected     int64    `json:"connected" msgpack:"connected"`
	LastAction    int64    `json:"lastAction" msgpack:"lastAction"`
	TankID        *TankID  `json:"tankId" msgpack:"tankId"`
}

func (p *Player) Snapshot() PlayerState {
	st := PlayerState{
		PlayerID:      p.ID,
		Name:          p.Name,
		PreferedColor: p.PreferredColor,
		Connected:     p.Connected.UnixMilli(),
		LastAction:    p.LastAction.UnixMilli(),
	}
	if id, ok := p.Tank.ID(); ok {
		st.TankID = &id
	}
	return st
}

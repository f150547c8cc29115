package game

import (
	"math"

	"github.com/detrandix/tanks/utils"
)

// TurretDeadZone 未満の砲塔回転は入力の揺れとして無視します。
const TurretDeadZone = 0.1

// Join はプレイヤーを参加させ、参加者本人に全体状態を、他の全員に新規参加を通知します。
func (w *World) Join(id PlayerID) ([]Emission, error) {
	if _, ok := w.players.Get(id); ok {
		return nil, ErrPlayerExists
	}
	p := w.playerFactory.Create(id)
	w.players.Set(id, p)

	var tank *TankState
	if t, err := w.spawnTank(p); err == nil {
		st := t.Snapshot()
		tank = &st
	}
	return []Emission{
		{To: OnlyTo(id), Event: w.initState()},
		{To: EveryoneExcept(id), Event: NewPlayer{Player: p.Snapshot(), Tank: tank}},
	}, nil
}

// controllable はコマンドを受け付けられる戦車を返します。
func (w *World) controllable(id PlayerID) (*Player, *Tank, bool) {
	p, ok := w.players.Get(id)
	if !ok {
		return nil, nil, false
	}
	tankID, ok := p.Tank.ID()
	if !ok {
		return nil, nil, false
	}
	t, ok := w.tanks.Get(tankID)
	if !ok || t.IsWreck() {
		return nil, nil, false
	}
	return p, t, true
}

func (w *World) RotateLeft(id PlayerID) []Emission   { return w.rotate(id, -1) }
func (w *World) RotateRight(id PlayerID) []Emission  { return w.rotate(id, 1) }
func (w *World) MoveForward(id PlayerID) []Emission  { return w.move(id, 1) }
func (w *World) MoveBackward(id PlayerID) []Emission { return w.move(id, -1) }

func (w *World) rotate(id PlayerID, delta float64) []Emission {
	p, t, ok := w.controllable(id)
	if !ok || !t.AddRotation(delta, w.tanks.Values()) {
		return nil
	}
	return w.moved(p, t)
}

func (w *World) move(id PlayerID, steps float64) []Emission {
	p, t, ok := w.controllable(id)
	if !ok || !t.Move(steps, w.tanks.Values()) {
		return nil
	}
	return w.moved(p, t)
}

// TurretRotate は砲塔を delta 度回転します。デッドゾーン未満や非有限値は無視します。
func (w *World) TurretRotate(id PlayerID, delta float64) []Emission {
	if !utils.IsFinite(delta) || math.Abs(delta) < TurretDeadZone {
		return nil
	}
	p, t, ok := w.controllable(id)
	if !ok {
		return nil
	}
	t.AddTurretRotation(delta)
	return w.moved(p, t)
}

func (w *World) moved(p *Player, t *Tank) []Emission {
	p.LastAction = w.now()
	return []Emission{{To: Everyone(), Event: TankMoved(t.Snapshot())}}
}

// Fire は slot の武器を発射します。装填中や不正なスロットなら何もしません。
func (w *World) Fire(id PlayerID, slot int) []Emission {
	p, t, ok := w.controllable(id)
	if !ok || !t.canFire(slot) {
		return nil
	}
	b := NewBullet(BulletID(w.ids.NewID()), t, slot)
	w.addBullet(b)
	t.startReload(slot)
	p.LastAction = w.now()
	return []Emission{{To: Everyone(), Event: TankUpdate(t.Snapshot())}}
}

// Disconnect はプレイヤーを削除します。生存中の戦車は残骸になります。
func (w *World) Disconnect(id PlayerID) []Emission {
	p, ok := w.players.Get(id)
	if !ok {
		return nil
	}
	var out []Emission
	if tankID, ok := p.Tank.ID(); ok {
		if t, ok := w.tanks.Get(tankID); ok && t.Wreck(w.cfg.WreckTTL) {
			out = append(out, Emission{To: Everyone(), Event: TankDestroyed{OldTank: t.Snapshot()}})
		}
	}
	w.players.Delete(id)
	return append(out, Emission{To: Everyone(), Event: RemovePlayer(id)})
}

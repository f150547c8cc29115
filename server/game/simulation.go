package game

import (
	"time"

	"github.com/detrandix/tanks/server/geometry"
)

// Tick はシミュレーションを elapsed だけ進め、送信すべきイベントを返します。
//
// 処理順は 弾丸の移動、命中判定、ダメージ処理、寿命切れ弾丸の削除、タイマー減算、
// 状態の配信 の順で固定です。
func (w *World) Tick(elapsed time.Duration) []Emission {
	var out []Emission
	updated := make(map[TankID]bool)

	for _, b := range w.bullets.Values() {
		b.Advance(elapsed)
		if target := w.hitTarget(b); target != nil {
			out = append(out, w.resolveHit(b, target, updated)...)
			w.bullets.Delete(b.ID)
			continue
		}
		if b.Expired() {
			w.bullets.Delete(b.ID)
		}
	}

	for _, t := range w.tanks.Values() {
		if t.IsWreck() {
			if t.TickWreck(elapsed) {
				w.tanks.Delete(t.ID)
				out = append(out, Emission{To: Everyone(), Event: RemoveTank(t.Snapshot())})
			}
			continue
		}
		if t.TickTimers(elapsed) {
			updated[t.ID] = true
		}
	}

	out = append(out, w.respawnWaiting()...)

	out = append(out, Emission{To: Everyone(), Event: w.bulletsUpdate()})
	for _, t := range w.tanks.Values() {
		if !updated[t.ID] || t.IsWreck() {
			continue
		}
		out = append(out, Emission{To: OnlyTo(t.PlayerID), Event: TankUpdate(t.Snapshot())})
	}
	return out
}

// hitTarget は弾丸の位置を含む最初の戦車を挿入順で探します。
// 生存中の発射元と無敵中の戦車は対象外です。
func (w *World) hitTarget(b *Bullet) *Tank {
	for _, t := range w.tanks.Values() {
		if t.ID == b.TankID && !t.IsWreck() {
			continue
		}
		if t.IsImmortal() {
			continue
		}
		if geometry.PointInsidePolygon(b.Position, t.polygon) {
			return t
		}
	}
	return nil
}

func (w *World) resolveHit(b *Bullet, target *Tank, updated map[TankID]bool) []Emission {
	if target.IsWreck() {
		return []Emission{{To: Everyone(), Event: explodeOf(b, target)}}
	}

	target.ApplyDamage(b.Damage)
	if target.HP > 0 {
		delete(updated, target.ID)
		return []Emission{
			{To: Everyone(), Event: explodeOf(b, target)},
			{To: OnlyTo(target.PlayerID), Event: TankUpdate(target.Snapshot())},
		}
	}

	if !target.Wreck(w.cfg.WreckTTL) {
		return nil
	}
	delete(updated, target.ID)
	explode := explodeOf(b, target)
	ev := TankDestroyed{
		Bullet:  &explode,
		OldTank: target.Snapshot(),
	}
	if p, ok := w.players.Get(target.PlayerID); ok {
		if current, ok := p.Tank.ID(); ok && current == target.ID {
			if next, err := w.spawnTank(p); err == nil {
				st := next.Snapshot()
				ev.NewTank = &st
			}
			ps := p.Snapshot()
			ev.UpdatedPlayer = &ps
		}
	}
	return []Emission{{To: Everyone(), Event: ev}}
}

// respawnWaiting は配置に失敗して戦車を持たないプレイヤーの再配置を試みます。
func (w *World) respawnWaiting() []Emission {
	var out []Emission
	for _, p := range w.players.Values() {
		if _, ok := p.Tank.ID(); ok {
			continue
		}
		t, err := w.spawnTank(p)
		if err != nil {
			continue
		}
		st := t.Snapshot()
		out = append(out, Emission{To: Everyone(), Event: NewPlayer{Player: p.Snapshot(), Tank: &st}})
	}
	return out
}

func explodeOf(b *Bullet, target *Tank) BulletExplode {
	return BulletExplode{
		ID:           b.ID,
		HittedTankID: target.ID,
		X:            b.Position.X,
		Y:            b.Position.Y,
		Angle:        b.Angle,
		UpdatedTank:  target.Snapshot(),
	}
}

package game

import (
	"time"

	"github.com/detrandix/tanks/server/geometry"
)

// Bullet は飛翔中の弾丸です。進行方向と速度は発射時に固定されます。
type Bullet struct {
	ID       BulletID
	TankID   TankID
	Position geometry.Point
	Angle    float64 // 度
	TTL      time.Duration
	Speed    float64 // px/ms
	Kind     WeaponKind
	Damage   int
}

// NewBullet は砲身の先端から砲塔の向きへ飛ぶ弾丸を作ります。
func NewBullet(id BulletID, tank *Tank, slot int) *Bullet {
	kind := tank.weapons[slot].Kind
	profile := kind.Profile()
	return &Bullet{
		ID:       id,
		TankID:   tank.ID,
		Position: tank.barrelEndPosition,
		Angle:    tank.turretAngle,
		TTL:      profile.TTL,
		Speed:    profile.Speed,
		Kind:     kind,
		Damage:   profile.Damage,
	}
}

// Advance は elapsed だけ弾丸を進めます。TTL を超えて進むことはありません。
func (b *Bullet) Advance(elapsed time.Duration) {
	used := min(elapsed, b.TTL)
	b.TTL -= used
	distance := b.Speed * float64(used) / float64(time.Millisecond)
	b.Position = geometry.MovePoint(b.Position, geometry.DegToRad(b.Angle-90), distance)
}

func (b *Bullet) Expired() bool {
	return b.TTL <= 0
}

// BulletState はイベントで送る弾丸のスナップショットです。
type BulletState struct {
	ID     BulletID `json:"id" msgpack:"id"`
	TankID TankID   `json:"tankId" msgpack:"tankId"`
	X      float64  `json:"x" msgpack:"x"`
	Y      float64  `json:"y" msgpack:"y"`
	Angle  float64  `json:"angle" msgpack:"angle"`
	TTL    int64    `json:"ttl" msgpack:"ttl"`
	Speed  float64  `json:"speed" msgpack:"speed"`
	Type   string   `json:"type" msgpack:"type"`
	Damage int      `json:"damage" msgpack:"damage"`
}

func (b *Bullet) Snapshot() BulletState {
	return BulletState{
		ID:     b.ID,
		TankID: b.TankID,
		X:      b.Position.X,
		Y:      b.Position.Y,
		Angle:  b.Angle,
		TTL:    b.TTL.Milliseconds(),
		Speed:  b.Speed,
		Type:   b.Kind.String(),
		Damage: b.Damage,
	}
}

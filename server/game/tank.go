package game

import (
	"math/rand/v2"
	"time"

	"github.com/detrandix/tanks/server/geometry"
)

// Color は戦車の見た目の色です。
type Color string

const (
	ColorBrown Color = "brown"
	ColorGreen Color = "green"
	ColorCyan  Color = "cyan"
	ColorBlue  Color = "blue"
)

var palette = []Color{ColorBrown, ColorGreen, ColorCyan, ColorBlue}

// RandomColor はパレットから色を 1 つ選びます。
func RandomColor(rng *rand.Rand) Color {
	return palette[rng.IntN(len(palette))]
}

// TankSetup は戦車の寸法と装備の定義です。
type TankSetup struct {
	Width            float64
	Height           float64
	Radius           float64
	BodyOrigin       geometry.Point
	TurretYOffset    float64
	TurretOrigin     geometry.Point
	BarrelEndYOffset float64
	MaxHP            int
	Weapons          []WeaponKind
}

// DefaultTankSetup は標準の戦車定義を返します。
func DefaultTankSetup() TankSetup {
	const width, height = 164.0, 245.0
	return TankSetup{
		Width:            width,
		Height:           height,
		Radius:           geometry.Distance(geometry.Point{}, geometry.Point{X: width / 2, Y: height / 2}),
		BodyOrigin:       geometry.Point{X: 0.5, Y: 0.52},
		TurretYOffset:    50,
		TurretOrigin:     geometry.Point{X: 0.5, Y: 0.8},
		BarrelEndYOffset: -160,
		MaxHP:            100,
		Weapons:          []WeaponKind{WeaponHeavy, WeaponGrenade},
	}
}

// LifeState は戦車のライフサイクル上の状態です。
type LifeState uint8

const (
	StateAlive LifeState = iota
	StateWreck
)

// Tank は 1 両の戦車です。幾何情報は変更のたびに同期的に再計算されます。
type Tank struct {
	ID       TankID
	PlayerID PlayerID
	Color    Color
	HP       int
	MaxHP    int

	setup TankSetup

	center  geometry.Point
	angle   float64 // 度
	polygon geometry.Polygon

	turretAngle       float64 // 度
	turretPosition    geometry.Point
	barrelEndPosition geometry.Point

	state       LifeState
	wreckTTL    time.Duration
	immortality time.Duration

	weapons []WeaponSlot
}

// NewTank は center を中心とした角度 0 の戦車を作ります。
func NewTank(id TankID, playerID PlayerID, setup TankSetup, center geometry.Point, color Color, immortality time.Duration) *Tank {
	hw, hh := setup.Width/2, setup.Height/2
	weapons := make([]WeaponSlot, len(setup.Weapons))
	for i, kind := range setup.Weapons {
		weapons[i] = WeaponSlot{Kind: kind}
	}
	t := &Tank{
		ID:       id,
		PlayerID: playerID,
		Color:    color,
		HP:       setup.MaxHP,
		MaxHP:    setup.MaxHP,
		setup:    setup,
		center:   center,
		polygon: geometry.MustPolygon([]geometry.Point{
			{X: center.X - hw, Y: center.Y - hh},
			{X: center.X + hw, Y: center.Y - hh},
			{X: center.X + hw, Y: center.Y + hh},
			{X: center.X - hw, Y: center.Y + hh},
		}),
		immortality: immortality,
		weapons:     weapons,
	}
	t.updateTurret()
	return t
}

func (t *Tank) Center() geometry.Point            { return t.center }
func (t *Tank) Angle() float64                    { return t.angle }
func (t *Tank) Polygon() geometry.Polygon         { return t.polygon }
func (t *Tank) Radius() float64                   { return t.setup.Radius }
func (t *Tank) TurretAngle() float64              { return t.turretAngle }
func (t *Tank) TurretPosition() geometry.Point    { return t.turretPosition }
func (t *Tank) BarrelEndPosition() geometry.Point { return t.barrelEndPosition }

// Weapons は武器スロットのコピーを返します。
func (t *Tank) Weapons() []WeaponSlot {
	out := make([]WeaponSlot, len(t.weapons))
	copy(out, t.weapons)
	return out
}

func (t *Tank) IsWreck() bool              { return t.state == StateWreck }
func (t *Tank) IsImmortal() bool           { return t.immortality > 0 }
func (t *Tank) Immortality() time.Duration { return t.immortality }
func (t *Tank) WreckTTL() time.Duration    { return t.wreckTTL }

func (t *Tank) circle(center geometry.Point) geometry.Circle {
	return geometry.Circle{Center: center, Radius: t.setup.Radius}
}

func (t *Tank) updateTurret() {
	t.turretPosition = geometry.MovePoint(t.center, geometry.DegToRad(t.angle+90), t.setup.TurretYOffset)
	t.updateBarrel()
}

func (t *Tank) updateBarrel() {
	t.barrelEndPosition = geometry.MovePoint(t.turretPosition, geometry.DegToRad(t.turretAngle+90), t.setup.BarrelEndYOffset)
}

// CollisionWithOtherTank は center/polygon に置いたときに重なる最初の生存戦車を返します。
// 自分自身と残骸は対象外です。
func (t *Tank) CollisionWithOtherTank(center geometry.Point, polygon geometry.Polygon, tanks []*Tank) *Tank {
	me := t.circle(center)
	for _, other := range tanks {
		if other.ID == t.ID || other.IsWreck() {
			continue
		}
		if !geometry.CirclesIntersect(me, other.circle(other.center)) {
			continue
		}
		if geometry.PolygonsOverlap(polygon, other.polygon) {
			return other
		}
	}
	return nil
}

// AddRotation は車体を delta 度回転します。砲塔も一緒に回ります。
// 他の戦車と重なる場合は何も変更せず false を返します。
func (t *Tank) AddRotation(delta float64, tanks []*Tank) bool {
	candidate := geometry.RotatePolygonAround(t.polygon, t.center, geometry.DegToRad(delta))
	if t.CollisionWithOtherTank(t.center, candidate, tanks) != nil {
		return false
	}
	t.angle += delta
	t.polygon = candidate
	t.turretAngle += delta
	t.updateTurret()
	return true
}

// Move は車体の前方 (angle - 90 度) へ steps だけ移動します。
// 他の戦車と重なる場合は何も変更せず false を返します。
func (t *Tank) Move(steps float64, tanks []*Tank) bool {
	dir := geometry.DegToRad(t.angle - 90)
	center := geometry.MovePoint(t.center, dir, steps)
	candidate := geometry.MovePolygon(t.polygon, dir, steps)
	if t.CollisionWithOtherTank(center, candidate, tanks) != nil {
		return false
	}
	t.center = center
	t.polygon = candidate
	t.updateTurret()
	return true
}

// AddTurretRotation は砲塔だけを回転します。衝突判定はしません。
func (t *Tank) AddTurretRotation(delta float64) {
	t.turretAngle += delta
	t.updateBarrel()
}

// ApplyDamage は HP を減らします。破壊判定は呼び出し側の責務です。
func (t *Tank) ApplyDamage(amount int) {
	t.HP -= amount
}

// Wreck は戦車を残骸にします。既に残骸なら false を返します。
func (t *Tank) Wreck(ttl time.Duration) bool {
	if t.state == StateWreck {
		return false
	}
	t.state = StateWreck
	t.wreckTTL = ttl
	// 残骸は無敵にならず、弾丸を受け止め続ける
	t.immortality = 0
	return true
}

// TickWreck は残骸のカウントダウンを進め、0 に達したら true を返します。
func (t *Tank) TickWreck(elapsed time.Duration) bool {
	if t.state != StateWreck {
		return false
	}
	t.wreckTTL = decay(t.wreckTTL, elapsed)
	return t.wreckTTL == 0
}

// TickTimers は生存戦車の装填と無敵時間を進めます。いずれかが変化したら true を返します。
func (t *Tank) TickTimers(elapsed time.Duration) bool {
	if t.state != StateAlive {
		return false
	}
	changed := false
	for i := range t.weapons {
		if t.weapons[i].Ready() {
			continue
		}
		t.weapons[i].Reload = decay(t.weapons[i].Reload, elapsed)
		changed = true
	}
	if t.immortality > 0 {
		t.immortality = decay(t.immortality, elapsed)
		changed = true
	}
	return changed
}

// canFire は slot の武器が発射可能かを返します。
func (t *Tank) canFire(slot int) bool {
	if t.state != StateAlive || slot < 0 || slot >= len(t.weapons) {
		return false
	}
	return t.weapons[slot].Ready()
}

func (t *Tank) startReload(slot int) {
	t.weapons[slot].Reload = t.weapons[slot].Kind.Profile().Reload
}

func decay(d, elapsed time.Duration) time.Duration {
	if d <= elapsed {
		return 0
	}
	return d - elapsed
}

// TankState はイベントで送る戦車のスナップショットです。
type TankState struct {
	ID                TankID           `json:"id" msgpack:"id"`
	PlayerID          PlayerID         `json:"playerId" msgpack:"playerId"`
	Color             Color            `json:"color" msgpack:"color"`
	Center            geometry.Point   `json:"center" msgpack:"center"`
	Width             float64          `json:"width" msgpack:"width"`
	Height            float64          `json:"height" msgpack:"height"`
	Radius            float64          `json:"radius" msgpack:"radius"`
	Angle             float64          `json:"angle" msgpack:"angle"`
	Polygon           []geometry.Point `json:"polygon" msgpack:"polygon"`
	BodyOrigin        geometry.Point   `json:"bodyOrigin" msgpack:"bodyOrigin"`
	TurretAngle       float64          `json:"turretAngle" msgpack:"turretAngle"`
	TurretYOffset     float64          `json:"turretYOffset" msgpack:"turretYOffset"`
	TurretPosition    geometry.Point   `json:"turretPosition" msgpack:"turretPosition"`
	TurretOrigin      geometry.Point   `json:"turretOrigin" msgpack:"turretOrigin"`
	BarrelEndYOffset  float64          `json:"barrelEndYOffset" msgpack:"barrelEndYOffset"`
	BarrelEndPosition geometry.Point   `json:"barrelEndPosition" msgpack:"barrelEndPosition"`
	HP                int              `json:"hp" msgpack:"hp"`
	MaxHP             int              `json:"maxHp" msgpack:"maxHp"`
	// Destroyed は残骸のとき撤去までの残り ms、生存中は nil です。
	Destroyed *int64 `json:"destroyed" msgpack:"destroyed"`
	// ImmortalityTTL は無敵時間の残り ms、無敵でなければ nil です。
	ImmortalityTTL *int64        `json:"immortalityTtl" msgpack:"immortalityTtl"`
	Weapons        []WeaponState `json:"weapons" msgpack:"weapons"`
}

// Snapshot は現在の状態の値コピーを返します。
func (t *Tank) Snapshot() TankState {
	weapons := make([]WeaponState, len(t.weapons))
	for i, w := range t.weapons {
		weapons[i] = w.snapshot()
	}
	st := TankState{
		ID:                t.ID,
		PlayerID:          t.PlayerID,
		Color:             t.Color,
		Center:            t.center,
		Width:             t.setup.Width,
		Height:            t.setup.Height,
		Radius:            t.setup.Radius,
		Angle:             t.angle,
		Polygon:           t.polygon.Points(),
		BodyOrigin:        t.setup.BodyOrigin,
		TurretAngle:       t.turretAngle,
		TurretYOffset:     t.setup.TurretYOffset,
		TurretPosition:    t.turretPosition,
		TurretOrigin:      t.setup.TurretOrigin,
		BarrelEndYOffset:  t.setup.BarrelEndYOffset,
		BarrelEndPosition: t.barrelEndPosition,
		HP:                t.HP,
		MaxHP:             t.MaxHP,
		Weapons:           weapons,
	}
	if t.state == StateWreck {
		ms := t.wreckTTL.Milliseconds()
		st.Destroyed = &ms
	}
	if t.immortality > 0 {
		ms := t.immortality.Milliseconds()
		st.ImmortalityTTL = &ms
	}
	return st
}

// Package game は戦車戦のサーバー側シミュレーションです。
//
// World は内部でロックを取りません。Room の goroutine だけが所有し、
// コマンドと Tick を直列に呼び出す前提です。
package game

import (
	"errors"
	"math/rand/v2"
	"time"
)

// ErrPlayerExists は同じ ID のプレイヤーが既に参加している場合に返されます。
var ErrPlayerExists = errors.New("game: player already joined")

// Config はシミュレーションの調整値です。
type Config struct {
	Arena             Arena
	Setup             TankSetup
	Immortality       time.Duration
	WreckTTL          time.Duration
	PlacementMargin   float64
	PlacementAttempts int
}

// DefaultConfig は標準の調整値を返します。
func DefaultConfig() Config {
	return Config{
		Arena:             Arena{Width: 2000, Height: 2000},
		Setup:             DefaultTankSetup(),
		Immortality:       3000 * time.Millisecond,
		WreckTTL:          10000 * time.Millisecond,
		PlacementMargin:   50,
		PlacementAttempts: 1000,
	}
}

// World はプレイヤー、戦車、弾丸を保持する唯一のレジストリです。
type World struct {
	cfg Config

	players *registry[PlayerID, *Player]
	tanks   *registry[TankID, *Tank]
	bullets *registry[BulletID, *Bullet]

	playerFactory *PlayerFactory
	tankFactory   *TankFactory
	ids           IDGenerator
	now           func() time.Time
}

func NewWorld(cfg Config, ids IDGenerator, rng *rand.Rand) *World {
	w := &World{
		cfg:     cfg,
		players: newRegistry[PlayerID, *Player](),
		tanks:   newRegistry[TankID, *Tank](),
		bullets: newRegistry[BulletID, *Bullet](),
		ids:     ids,
		now:     time.Now,
	}
	w.playerFactory = NewPlayerFactory(rng, func() time.Time { return w.now() })
	w.tankFactory = NewTankFactory(cfg.Setup, cfg.Arena, cfg.PlacementMargin, cfg.PlacementAttempts, cfg.Immortality, ids, rng)
	return w
}

func (w *World) Player(id PlayerID) (*Player, bool) {
	return w.players.Get(id)
}

func (w *World) Tank(id TankID) (*Tank, bool) {
	return w.tanks.Get(id)
}

// TankOf はプレイヤーが操作中の戦車を返します。
func (w *World) TankOf(id PlayerID) (*Tank, bool) {
	p, ok := w.players.Get(id)
	if !ok {
		return nil, false
	}
	tankID, ok := p.Tank.ID()
	if !ok {
		return nil, false
	}
	return w.tanks.Get(tankID)
}

func (w *World) Tanks() []*Tank     { return w.tanks.Values() }
func (w *World) Bullets() []*Bullet { return w.bullets.Values() }
func (w *World) BulletCount() int   { return w.bullets.Len() }

// spawnTank はプレイヤーに新しい戦車を割り当てます。
// 空き位置が無いときプレイヤーは NoTank のままになり、次の Tick で再試行されます。
func (w *World) spawnTank(p *Player) (*Tank, error) {
	t, err := w.tankFactory.Create(p, w.tanks.Values())
	if err != nil {
		p.Tank = NoTank()
		return nil, err
	}
	w.tanks.Set(t.ID, t)
	p.Tank = HasTank(t.ID)
	return t, nil
}

func (w *World) addTank(t *Tank) {
	w.tanks.Set(t.ID, t)
	if p, ok := w.players.Get(t.PlayerID); ok {
		p.Tank = HasTank(t.ID)
	}
}

func (w *World) addBullet(b *Bullet) {
	w.bullets.Set(b.ID, b)
}

func (w *World) initState() InitState {
	st := InitState{
		Players: make(map[PlayerID]PlayerState, w.players.Len()),
		Tanks:   make(map[TankID]TankState, w.tanks.Len()),
	}
	for _, p := range w.players.Values() {
		st.Players[p.ID] = p.Snapshot()
	}
	for _, t := range w.tanks.Values() {
		st.Tanks[t.ID] = t.Snapshot()
	}
	return st
}

func (w *World) bulletsUpdate() BulletsUpdate {
	out := make(BulletsUpdate, w.bullets.Len())
	for _, b := range w.bullets.Values() {
		out[b.ID] = b.Snapshot()
	}
	return out
}

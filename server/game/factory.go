package game

import (
	"errors"
	"math/rand/v2"
	"time"

	"github.com/detrandix/tanks/server/geometry"
)

// ErrNoFreePosition は試行回数内に空き位置が見つからなかったときに返されます。
var ErrNoFreePosition = errors.New("game: no free position for tank")

// Arena は戦車を配置できる範囲です。
type Arena struct {
	Width  float64
	Height float64
}

// FindAvailablePosition は既存の戦車から radius + 相手の半径 + margin 以上離れた整数座標を
// 棄却サンプリングで探します。
func FindAvailablePosition(rng *rand.Rand, arena Arena, radius float64, tanks []*Tank, margin float64, attempts int) (geometry.Point, error) {
	w := max(int(arena.Width), 1)
	h := max(int(arena.Height), 1)
	for range attempts {
		p := geometry.Point{X: float64(rng.IntN(w)), Y: float64(rng.IntN(h))}
		if isFree(p, radius, tanks, margin) {
			return p, nil
		}
	}
	return geometry.Point{}, ErrNoFreePosition
}

func isFree(p geometry.Point, radius float64, tanks []*Tank, margin float64) bool {
	for _, t := range tanks {
		if geometry.Distance(p, t.center) < radius+t.Radius()+margin {
			return false
		}
	}
	return true
}

// TankFactory は空き位置に新しい戦車を配置します。
type TankFactory struct {
	Setup       TankSetup
	Arena       Arena
	Margin      float64
	Attempts    int
	Immortality time.Duration

	ids IDGenerator
	rng *rand.Rand
}

func NewTankFactory(setup TankSetup, arena Arena, margin float64, attempts int, immortality time.Duration, ids IDGenerator, rng *rand.Rand) *TankFactory {
	return &TankFactory{
		Setup:       setup,
		Arena:       arena,
		Margin:      margin,
		Attempts:    attempts,
		Immortality: immortality,
		ids:         ids,
		rng:         rng,
	}
}

// Create は player の戦車を作ります。tanks は配置済みの全戦車 (残骸を含む) です。
func (f *TankFactory) Create(player *Player, tanks []*Tank) (*Tank, error) {
	center, err := FindAvailablePosition(f.rng, f.Arena, f.Setup.Radius, tanks, f.Margin, f.Attempts)
	if err != nil {
		return nil, err
	}
	return NewTank(TankID(f.ids.NewID()), player.ID, f.Setup, center, player.PreferredColor, f.Immortality), nil
}

// PlayerFactory は新しく接続したプレイヤーを作ります。
type PlayerFactory struct {
	rng *rand.Rand
	now func() time.Time
}

func NewPlayerFactory(rng *rand.Rand, now func() time.Time) *PlayerFactory {
	return &PlayerFactory{rng: rng, now: now}
}

func (f *PlayerFactory) Create(id PlayerID) *Player {
	created := f.now()
	return &Player{
		ID:             id,
		Name:           "Player" + string(id),
		PreferredColor: RandomColor(f.rng),
		Connected:      created,
		LastAction:     created,
		Tank:           NoTank(),
	}
}

package game

import (
	"strconv"

	"github.com/google/uuid"
)

type PlayerID string

func (id PlayerID) String() string { return string(id) }

type TankID string

func (id TankID) String() string { return string(id) }

type BulletID string

func (id BulletID) String() string { return string(id) }

// IDGenerator は戦車と弾丸の ID を払い出します。
type IDGenerator interface {
	NewID() string
}

// UUIDGenerator は本番用の IDGenerator です。
type UUIDGenerator struct{}

func (UUIDGenerator) NewID() string {
	return uuid.NewString()
}

// SequenceGenerator は Prefix に連番を付けた ID を返します。
// 同一 goroutine からのみ呼ばれる前提です。
type SequenceGenerator struct {
	Prefix string
	n      int
}

func (g *SequenceGenerator) NewID() string {
	g.n++
	return g.Prefix + strconv.Itoa(g.n)
}

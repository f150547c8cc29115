package application

import (
	"math"
	"math/rand/v2"

	"github.com/detrandix/tanks/server/game"
	"github.com/detrandix/tanks/server/geometry"
)

const (
	botMaxTurretStep float64 = 5.0  // 1 回の砲塔回転の上限 (度)
	botBodyTolerance float64 = 10.0 // 車体の向きをこれ以上ずれたら旋回する
	rushChance       float64 = 0.02 // 毎回 2% の確率で突撃
)

// RuleBotController はルールベースのボットAIです。
// ボットごとに異なる個性パラメータを持ちます。
type RuleBotController struct {
	CloseRange   float64 // 後退を始める距離
	MidRange     float64 // 接近をやめる距離
	AimTolerance float64 // 砲塔のずれがこれ未満なら撃つ (度)
}

// NewRuleBotController はランダムな個性を持つボットAIを生成します。
func NewRuleBotController() *RuleBotController {
	return &RuleBotController{
		CloseRange:   300 + rand.Float64()*200, // 300〜500
		MidRange:     600 + rand.Float64()*400, // 600〜1000
		AimTolerance: 2 + rand.Float64()*4,     // 2〜6
	}
}

func (r *RuleBotController) Decide(self game.TankState, enemies []game.TankState) BotAction {
	action := Idle()

	nearest, ok := findNearestEnemy(self, enemies)
	if !ok {
		// 敵がいなければその場で旋回して待つ
		action.Body = EventBodyRotateRight
		return action
	}

	// 砲塔を最寄り敵に向ける
	aim := angleDiff(headingTo(self.TurretPosition, nearest.Center), self.TurretAngle)
	if math.Abs(aim) >= game.TurretDeadZone {
		action.TurretDelta = math.Max(-botMaxTurretStep, math.Min(botMaxTurretStep, aim))
	}
	if math.Abs(aim) < r.AimTolerance {
		action.Fire = readySlot(self)
	}

	// ランダム突撃: 一定確率で向きに関係なく前進
	if rand.Float64() < rushChance {
		action.Body = EventMoveForward
		return action
	}

	body := angleDiff(headingTo(self.Center, nearest.Center), self.Angle)
	dist := geometry.Distance(self.Center, nearest.Center)
	switch {
	case body > botBodyTolerance:
		action.Body = EventBodyRotateRight
	case body < -botBodyTolerance:
		action.Body = EventBodyRotateLeft
	case dist < r.CloseRange:
		// 近距離: 後退
		action.Body = EventMoveBackward
	case dist > r.MidRange:
		// 遠距離: 接近
		action.Body = EventMoveForward
	}
	return action
}

// findNearestEnemy は最寄りの生存敵を探します。
func findNearestEnemy(self game.TankState, enemies []game.TankState) (game.TankState, bool) {
	var nearest game.TankState
	found := false
	nearestDist := math.MaxFloat64
	for _, other := range enemies {
		if other.ID == self.ID || other.Destroyed != nil {
			continue
		}
		d := geometry.Distance(self.Center, other.Center)
		if d < nearestDist {
			nearestDist = d
			nearest = other
			found = true
		}
	}
	return nearest, found
}

// readySlot は装填済みの武器スロットを返します。無ければ -1 です。
func readySlot(self game.TankState) int {
	for i, w := range self.Weapons {
		if w.TimeToReload == nil {
			return i
		}
	}
	return -1
}

// headingTo は from から to を向く角度 (度) を返します。角度 0 は -Y 方向です。
func headingTo(from, to geometry.Point) float64 {
	return math.Atan2(to.X-from.X, from.Y-to.Y) * 180 / math.Pi
}

// angleDiff は current から target への回転量を (-180, 180] で返します。
func angleDiff(target, current float64) float64 {
	d := math.Mod(target-current, 360)
	if d > 180 {
		d -= 360
	} else if d <= -180 {
		d += 360
	}
	return d
}

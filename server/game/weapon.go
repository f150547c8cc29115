package game

import (
	"fmt"
	"time"

	"github.com/detrandix/tanks/server/geometry"
)

// WeaponKind は武器の種類です。値は profiles の添字と一致します。
type WeaponKind uint8

const (
	WeaponHeavy WeaponKind = iota
	WeaponGrenade
	weaponKindCount
)

// BallisticProfile は武器ごとの弾道と装填時間です。
type BallisticProfile struct {
	TTL    time.Duration
	Speed  float64 // px/ms
	Damage int
	Reload time.Duration
}

var profiles = [weaponKindCount]BallisticProfile{
	WeaponHeavy: {
		TTL:    1000 * time.Millisecond,
		Speed:  0.5,
		Damage: 20,
		Reload: 1000 * time.Millisecond,
	},
	WeaponGrenade: {
		TTL:    800 * time.Millisecond,
		Speed:  1.0,
		Damage: 10,
		Reload: 2000 * time.Millisecond,
	},
}

// Profile は武器の弾道を返します。未定義の種類はプログラムの誤りなので panic します。
func (k WeaponKind) Profile() BallisticProfile {
	if k >= weaponKindCount {
		panic(fmt.Sprintf("game: unknown weapon kind %d", k))
	}
	return profiles[k]
}

func (k WeaponKind) String() string {
	switch k {
	case WeaponHeavy:
		return "heavy"
	case WeaponGrenade:
		return "grenade"
	default:
		return fmt.Sprintf("WeaponKind(%d)", k)
	}
}

// WeaponSlot は戦車に搭載された武器 1 つ分の状態です。Reload が 0 なら発射可能です。
type WeaponSlot struct {
	Kind   WeaponKind
	Reload time.Duration
}

func (w WeaponSlot) Ready() bool {
	return w.Reload <= 0
}

// ReloadState は装填中の武器のクライアント向け表現です。
type ReloadState struct {
	TTL      int64   `json:"ttl" msgpack:"ttl"`
	Total    int64   `json:"total" msgpack:"total"`
	Progress float64 `json:"progress" msgpack:"progress"` // 装填完了率 (%)
}

type WeaponState struct {
	Type         string       `json:"type" msgpack:"type"`
	TimeToReload *ReloadState `json:"timeToReload" msgpack:"timeToReload"`
}

func (w WeaponSlot) snapshot() WeaponState {
	st := WeaponState{Type: w.Kind.String()}
	if w.Ready() {
		return st
	}
	total := w.Kind.Profile().Reload
	st.TimeToReload = &ReloadState{
		TTL:      w.Reload.Milliseconds(),
		Total:    total.Milliseconds(),
		Progress: geometry.Round1(float64(total-w.Reload) / float64(total) * 100),
	}
	return st
}

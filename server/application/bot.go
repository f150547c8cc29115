package application

import (
	"fmt"

	"github.com/detrandix/tanks/server/domain"
	"github.com/detrandix/tanks/server/game"
)

// BotAction はボットの 1 回分の行動を表します。
type BotAction struct {
	// Body は車体コマンドのイベント名です。空なら動かしません。
	Body        string
	TurretDelta float64
	// Fire は発射する武器スロットです。負なら撃ちません。
	Fire int
}

// Idle は何もしない行動です。
func Idle() BotAction { return BotAction{Fire: -1} }

// Frames は行動をサーバーへ送るフレーム列に符号化します。
func (a BotAction) Frames(codec domain.Codec) ([][]byte, error) {
	var frames [][]byte
	add := func(event string, data any) error {
		frame, err := codec.Encode(event, data)
		if err != nil {
			return err
		}
		frames = append(frames, frame)
		return nil
	}
	if a.Body != "" {
		if err := add(a.Body, nil); err != nil {
			return nil, err
		}
	}
	if a.TurretDelta != 0 {
		if err := add(EventTurretRotate, a.TurretDelta); err != nil {
			return nil, err
		}
	}
	if a.Fire >= 0 {
		if err := add(EventFire, a.Fire); err != nil {
			return nil, err
		}
	}
	return frames, nil
}

// BotController はボットの意思決定インターフェースです。
type BotController interface {
	Decide(self game.TankState, enemies []game.TankState) BotAction
}

// BotView はボットがサーバーから受け取ったイベントで組み立てる盤面です。
type BotView struct {
	SessionID domain.SessionID
	Tanks     map[game.TankID]game.TankState
	Bullets   game.BulletsUpdate
}

func NewBotView() *BotView {
	return &BotView{Tanks: make(map[game.TankID]game.TankState)}
}

// Apply は受信フレームを盤面に反映し、イベント名を返します。
func (v *BotView) Apply(codec domain.Codec, frame []byte) (string, error) {
	event, payload, err := codec.Decode(frame)
	if err != nil {
		return "", err
	}

	switch event {
	case domain.EventAssign:
		id, err := domain.DecodePayload[domain.SessionID](codec, payload)
		if err != nil {
			return event, err
		}
		v.SessionID = id
	case game.EventInitState:
		st, err := domain.DecodePayload[game.InitState](codec, payload)
		if err != nil {
			return event, err
		}
		v.Tanks = make(map[game.TankID]game.TankState, len(st.Tanks))
		for id, t := range st.Tanks {
			v.Tanks[id] = t
		}
	case game.EventNewPlayer:
		np, err := domain.DecodePayload[game.NewPlayer](codec, payload)
		if err != nil {
			return event, err
		}
		if np.Tank != nil {
			v.Tanks[np.Tank.ID] = *np.Tank
		}
	case game.EventTankMoved, game.EventTankUpdate:
		t, err := domain.DecodePayload[game.TankState](codec, payload)
		if err != nil {
			return event, err
		}
		v.Tanks[t.ID] = t
	case game.EventTankDestroyed:
		td, err := domain.DecodePayload[game.TankDestroyed](codec, payload)
		if err != nil {
			return event, err
		}
		v.Tanks[td.OldTank.ID] = td.OldTank
		if td.NewTank != nil {
			v.Tanks[td.NewTank.ID] = *td.NewTank
		}
	case game.EventRemoveTank:
		t, err := domain.DecodePayload[game.TankState](codec, payload)
		if err != nil {
			return event, err
		}
		delete(v.Tanks, t.ID)
	case game.EventBulletsUpdate:
		bu, err := domain.DecodePayload[game.BulletsUpdate](codec, payload)
		if err != nil && len(payload) != 0 {
			return event, err
		}
		v.Bullets = bu
	case game.EventBulletExplode:
		be, err := domain.DecodePayload[game.BulletExplode](codec, payload)
		if err != nil {
			return event, err
		}
		v.Tanks[be.UpdatedTank.ID] = be.UpdatedTank
	case game.EventRemovePlayer, domain.EventPing:
	default:
		return event, fmt.Errorf("%w: %q", ErrUnknownEvent, event)
	}
	return event, nil
}

// Self は自分の生存中の戦車を返します。
func (v *BotView) Self() (game.TankState, bool) {
	for _, t := range v.Tanks {
		if t.PlayerID == game.PlayerID(v.SessionID) && t.Destroyed == nil {
			return t, true
		}
	}
	return game.TankState{}, false
}

// Enemies は自分以外の生存中の戦車を返します。
func (v *BotView) Enemies() []game.TankState {
	out := make([]game.TankState, 0, len(v.Tanks))
	for _, t := range v.Tanks {
		if t.PlayerID == game.PlayerID(v.SessionID) || t.Destroyed != nil {
			continue
		}
		out = append(out, t)
	}
	return out
}

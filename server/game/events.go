package game

// イベント名はクライアントとの取り決めなので変更しないこと。
const (
	EventInitState     = "init-state"
	EventNewPlayer     = "new-player"
	EventRemovePlayer  = "remove-player"
	EventTankMoved     = "tank-moved"
	EventTankUpdate    = "tank-update"
	EventTankDestroyed = "tank-destroyed"
	EventRemoveTank    = "remove-tank"
	EventBulletsUpdate = "bullets-update"
	EventBulletExplode = "bullet-explode"
)

// Event はクライアントへ送る状態変化です。
type Event interface {
	EventName() string
}

// AudienceKind は Emission の宛先の種類です。
type AudienceKind uint8

const (
	AudienceAll AudienceKind = iota
	AudiencePlayer
	AudienceOthers
)

// Audience はイベントの宛先です。Player は AudiencePlayer と AudienceOthers でのみ使います。
type Audience struct {
	Kind   AudienceKind
	Player PlayerID
}

func Everyone() Audience { return Audience{Kind: AudienceAll} }

func OnlyTo(id PlayerID) Audience { return Audience{Kind: AudiencePlayer, Player: id} }

func EveryoneExcept(id PlayerID) Audience { return Audience{Kind: AudienceOthers, Player: id} }

// Emission は宛先付きのイベントです。
type Emission struct {
	To    Audience
	Event Event
}

type InitState struct {
	Players map[PlayerID]PlayerState `json:"players" msgpack:"players"`
	Tanks   map[TankID]TankState     `json:"tanks" msgpack:"tanks"`
}

type NewPlayer struct {
	Player PlayerState `json:"player" msgpack:"player"`
	Tank   *TankState  `json:"tank" msgpack:"tank"`
}

// RemovePlayer は切断したプレイヤーの ID です。
type RemovePlayer PlayerID

type TankMoved TankState

type TankUpdate TankState

type RemoveTank TankState

type TankDestroyed struct {
	Bullet        *BulletExplode `json:"bullet" msgpack:"bullet"`
	UpdatedPlayer *PlayerState   `json:"updatedPlayer" msgpack:"updatedPlayer"`
	OldTank       TankState      `json:"oldTank" msgpack:"oldTank"`
	NewTank       *TankState     `json:"newTank" msgpack:"newTank"`
}

type BulletsUpdate map[BulletID]BulletState

type BulletExplode struct {
	ID           BulletID  `json:"id" msgpack:"id"`
	HittedTankID TankID    `json:"hittedTankId" msgpack:"hittedTankId"`
	X            float64   `json:"x" msgpack:"x"`
	Y            float64   `json:"y" msgpack:"y"`
	Angle        float64   `json:"angle" msgpack:"angle"`
	UpdatedTank  TankState `json:"updatedTank" msgpack:"updatedTank"`
}

func (InitState) EventName() string     { return EventInitState }
func (NewPlayer) EventName() string     { return EventNewPlayer }
func (RemovePlayer) EventName() string  { return EventRemovePlayer }
func (TankMoved) EventName() string     { return EventTankMoved }
func (TankUpdate) EventName() string    { return EventTankUpdate }
func (RemoveTank) EventName() string    { return EventRemoveTank }
func (TankDestroyed) EventName() string { return EventTankDestroyed }
func (BulletsUpdate) EventName() string { return EventBulletsUpdate }
func (BulletExplode) EventName() string { return EventBulletExplode }

package domain

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// エンドポイント自身が扱うイベント名
const (
	EventPing   = "ping"
	EventPong   = "pong"
	EventAssign = "assign"
)

var (
	// ErrEmptyMessage は空のフレームを受信した場合に返されます。
	ErrEmptyMessage = errors.New("empty message")
	// ErrMalformedMessage はフレームを envelope として解釈できない場合に返されます。
	ErrMalformedMessage = errors.New("malformed message")
	// ErrUnknownCodec は設定されたコーデック名が不明な場合に返されます。
	ErrUnknownCodec = errors.New("unknown codec")
)

// Codec は {event, data} envelope を 1 フレームに符号化します。
//
// Decode は data 部を解釈せずに返します。data の型はイベント名でしか決まらないので、
// 呼び出し側が Unmarshal で取り出します。
type Codec interface {
	Name() string
	Encode(event string, data any) ([]byte, error)
	Decode(frame []byte) (event string, payload []byte, err error)
	Unmarshal(payload []byte, v any) error
}

// NewCodec は名前からコーデックを返します。空文字は JSON です。
func NewCodec(name string) (Codec, error) {
	switch name {
	case "", "json":
		return JSONCodec{}, nil
	case "msgpack":
		return MsgpackCodec{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownCodec, name)
	}
}

// DecodePayload は payload を T として取り出します。payload が無ければ ErrEmptyMessage です。
func DecodePayload[T any](c Codec, payload []byte) (T, error) {
	var v T
	if len(payload) == 0 {
		return v, ErrEmptyMessage
	}
	if err := c.Unmarshal(payload, &v); err != nil {
		return v, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}
	return v, nil
}

type jsonEnvelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// JSONCodec はテキストフレーム向けの JSON envelope です。
type JSONCodec struct{}

func (JSONCodec) Name() string { return "json" }

func (JSONCodec) Encode(event string, data any) ([]byte, error) {
	env := jsonEnvelope{Event: event}
	if data != nil {
		raw, err := json.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", event, err)
		}
		env.Data = raw
	}
	return json.Marshal(env)
}

func (JSONCodec) Decode(frame []byte) (string, []byte, error) {
	if len(frame) == 0 {
		return "", nil, ErrEmptyMessage
	}
	var env jsonEnvelope
	if err := json.Unmarshal(frame, &env); err != nil {
		return "", nil, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}
	if env.Event == "" {
		return "", nil, fmt.Errorf("%w: missing event", ErrMalformedMessage)
	}
	if string(env.Data) == "null" {
		env.Data = nil
	}
	return env.Event, env.Data, nil
}

func (JSONCodec) Unmarshal(payload []byte, v any) error {
	return json.Unmarshal(payload, v)
}

type msgpackEnvelope struct {
	Event string             `msgpack:"event"`
	Data  msgpack.RawMessage `msgpack:"data,omitempty"`
}

// MsgpackCodec はバイナリフレーム向けの MessagePack envelope です。
type MsgpackCodec struct{}

func (MsgpackCodec) Name() string { return "msgpack" }

func (MsgpackCodec) Encode(event string, data any) ([]byte, error) {
	env := msgpackEnvelope{Event: event}
	if data != nil {
		raw, err := msgpack.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", event, err)
		}
		env.Data = raw
	}
	return msgpack.Marshal(&env)
}

func (MsgpackCodec) Decode(frame []byte) (string, []byte, error) {
	if len(frame) == 0 {
		return "", nil, ErrEmptyMessage
	}
	var env msgpackEnvelope
	if err := msgpack.Unmarshal(frame, &env); err != nil {
		return "", nil, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}
	if env.Event == "" {
		return "", nil, fmt.Errorf("%w: missing event", ErrMalformedMessage)
	}
	// nil は 0xc0 の 1 バイトで表される
	if len(env.Data) == 1 && env.Data[0] == 0xc0 {
		env.Data = nil
	}
	return env.Event, env.Data, nil
}

func (MsgpackCodec) Unmarshal(payload []byte, v any) error {
	return msgpack.Unmarshal(payload, v)
}

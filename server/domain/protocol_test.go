package domain

import (
	"errors"
	"testing"
)

type samplePayload struct {
	X float64 `json:"x" msgpack:"x"`
	Y float64 `json:"y" msgpack:"y"`
}

func codecs() []Codec {
	return []Codec{JSONCodec{}, MsgpackCodec{}}
}

func TestCodec_EncodeDecode(t *testing.T) {
	for _, c := range codecs() {
		t.Run(c.Name(), func(t *testing.T) {
			frame, err := c.Encode("tank-moved", samplePayload{X: 1.5, Y: -2})
			if err != nil {
				t.Fatalf("Encode failed: %v", err)
			}

			event, payload, err := c.Decode(frame)
			if err != nil {
				t.Fatalf("Decode failed: %v", err)
			}
			if event != "tank-moved" {
				t.Errorf("event = %q, want %q", event, "tank-moved")
			}

			got, err := DecodePayload[samplePayload](c, payload)
			if err != nil {
				t.Fatalf("DecodePayload failed: %v", err)
			}
			if got.X != 1.5 || got.Y != -2 {
				t.Errorf("payload = %+v, want {X:1.5 Y:-2}", got)
			}
		})
	}
}

func TestCodec_EventWithoutData(t *testing.T) {
	for _, c := range codecs() {
		t.Run(c.Name(), func(t *testing.T) {
			frame, err := c.Encode(EventPing, nil)
			if err != nil {
				t.Fatalf("Encode failed: %v", err)
			}
			event, payload, err := c.Decode(frame)
			if err != nil {
				t.Fatalf("Decode failed: %v", err)
			}
			if event != EventPing {
				t.Errorf("event = %q, want %q", event, EventPing)
			}
			if len(payload) != 0 {
				t.Errorf("payload length = %d, want 0", len(payload))
			}
			if _, err := DecodePayload[float64](c, payload); !errors.Is(err, ErrEmptyMessage) {
				t.Errorf("DecodePayload error = %v, want ErrEmptyMessage", err)
			}
		})
	}
}

func TestJSONCodec_ClientFrames(t *testing.T) {
	c := JSONCodec{}
	tests := []struct {
		name      string
		frame     string
		wantEvent string
		wantErr   error
	}{
		{name: "command without data", frame: `{"event":"move-forward"}`, wantEvent: "move-forward"},
		{name: "command with number", frame: `{"event":"fire","data":1}`, wantEvent: "fire"},
		{name: "null data", frame: `{"event":"fire","data":null}`, wantEvent: "fire"},
		{name: "empty", frame: ``, wantErr: ErrEmptyMessage},
		{name: "not json", frame: `fire`, wantErr: ErrMalformedMessage},
		{name: "missing event", frame: `{"data":1}`, wantErr: ErrMalformedMessage},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			event, _, err := c.Decode([]byte(tt.frame))
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("err = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Decode failed: %v", err)
			}
			if event != tt.wantEvent {
				t.Errorf("event = %q, want %q", event, tt.wantEvent)
			}
		})
	}
}

func TestDecodePayload_WrongType(t *testing.T) {
	c := JSONCodec{}
	_, payload, err := c.Decode([]byte(`{"event":"fire","data":"heavy"}`))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if _, err := DecodePayload[int](c, payload); !errors.Is(err, ErrMalformedMessage) {
		t.Errorf("err = %v, want ErrMalformedMessage", err)
	}
}

func TestNewCodec(t *testing.T) {
	tests := []struct {
		name    string
		want    string
		wantErr bool
	}{
		{name: "", want: "json"},
		{name: "json", want: "json"},
		{name: "msgpack", want: "msgpack"},
		{name: "protobuf", wantErr: true},
	}
	for _, tt := range tests {
		c, err := NewCodec(tt.name)
		if tt.wantErr {
			if !errors.Is(err, ErrUnknownCodec) {
				t.Errorf("NewCodec(%q) err = %v, want ErrUnknownCodec", tt.name, err)
			}
			continue
		}
		if err != nil {
			t.Fatalf("NewCodec(%q) failed: %v", tt.name, err)
		}
		if c.Name() != tt.want {
			t.Errorf("NewCodec(%q).Name() = %q, want %q", tt.name, c.Name(), tt.want)
		}
	}
}

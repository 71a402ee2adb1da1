package hub

import (
	"time"

	"github.com/Alia5/padmap/calibration"
	"github.com/Alia5/padmap/semantic"
)

const (
	TypeCalibration = "calibration"
	TypeState       = "state"
	TypeSelected    = "selected"
)

// Message is sent from the server to websocket clients.
type Message struct {
	Type      string             `json:"type"`
	Seq       int64              `json:"seq"`
	Timestamp int64              `json:"timestamp"` // unix milliseconds
	Slot      *int               `json:"slot,omitempty"`
	Event     *calibration.Event `json:"event,omitempty"`
	State     *semantic.State    `json:"state,omitempty"`
}

func newCalibrationMessage(seq int64, ev calibration.Event) *Message {
	return &Message{Type: TypeCalibration, Seq: seq, Timestamp: time.Now().UnixMilli(), Event: &ev}
}

func newStateMessage(seq int64, slot int, st semantic.State) *Message {
	return &Message{Type: TypeState, Seq: seq, Timestamp: time.Now().UnixMilli(), Slot: &slot, State: &st}
}

func newSelectedMessage(slot int) *Message {
	m := &Message{Type: TypeSelected, Timestamp: time.Now().UnixMilli()}
	if slot >= 0 {
		m.Slot = &slot
	}
	return m
}

// ClientMessage is sent from a websocket client to the server.
// {"type":"select","slot":1} limits state messages to slot 1, a missing
// slot selects all of them again.
type ClientMessage struct {
	Type string `json:"type"`
	Slot *int   `json:"slot,omitempty"`
}

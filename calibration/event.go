package calibration

import (
	"fmt"

	"github.com/Alia5/padmap/mapping"
)

// EventType classifies session output.
type EventType int

const (
	// EventPrompt asks the user for the input of a new step.
	EventPrompt EventType = iota
	// EventComplete carries the finished mapping.
	EventComplete
	// EventCanceled reports the session was abandoned.
	EventCanceled
)

func (t EventType) String() string {
	switch t {
	case EventPrompt:
		return "prompt"
	case EventComplete:
		return "complete"
	case EventCanceled:
		return "canceled"
	}
	return fmt.Sprintf("EventType(%d)", int(t))
}

func (t EventType) MarshalText() ([]byte, error) { return []byte(t.String()), nil }

func (t *EventType) UnmarshalText(b []byte) error {
	for c := EventPrompt; c <= EventCanceled; c++ {
		if c.String() == string(b) {
			*t = c
			return nil
		}
	}
	return fmt.Errorf("unknown event type %q", b)
}

// Event is emitted by a Session to whatever presents calibration to the user.
type Event struct {
	Type      EventType        `json:"type"`
	Index     int              `json:"index"`
	DeviceID  string           `json:"deviceId"`
	Phase     Phase            `json:"phase"`
	Step      int              `json:"step"`
	Control   string           `json:"control,omitempty"`
	Prompt    string           `json:"prompt,omitempty"`
	Highlight string           `json:"highlight"`
	Record    string           `json:"record,omitempty"`
	Mapping   *mapping.Mapping `json:"-"`
}

// Listener receives session events synchronously, from within Start, Tick
// and Cancel.
type Listener func(Event)

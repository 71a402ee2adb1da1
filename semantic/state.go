package semantic

import (
	"time"

	"github.com/Alia5/padmap/mapping"
)

// ControlState is the exported view of one control.
type ControlState struct {
	Value    float64       `json:"value"`
	Prev     float64       `json:"prev"`
	HeldTics int           `json:"heldTics"`
	HeldTime time.Duration `json:"heldTime"`
}

// State is a value copy of everything a Device exposes, for publishing.
type State struct {
	Slot      int                     `json:"slot"`
	Index     int                     `json:"index"`
	ID        string                  `json:"id"`
	Live      bool                    `json:"live"`
	Controls  map[string]ControlState `json:"controls"`
	DpadX     int                     `json:"dpadX"`
	DpadY     int                     `json:"dpadY"`
	Deadzones Deadzones               `json:"deadzones"`
}

// State captures the current values; stick values are deadzone filtered.
func (d *Device) State() State {
	st := State{
		Index:     d.index,
		ID:        d.m.ID(),
		Live:      d.live,
		Controls:  make(map[string]ControlState, mapping.NumControls),
		Deadzones: d.dz,
	}
	for _, c := range mapping.Controls() {
		st.Controls[c.String()] = ControlState{
			Value:    d.Value(c),
			Prev:     d.Prev(c),
			HeldTics: d.HeldTics(c),
			HeldTime: d.HeldTime(c),
		}
	}
	st.DpadX, st.DpadY = d.Dpad()
	return st
}

// Value returns the value of c, zero if absent.
func (s State) Value(c mapping.Control) float64 {
	return s.Controls[c.String()].Value
}

// Changed reports whether any value differs from o. Held counters are
// ignored.
func (s State) Changed(o State) bool {
	if s.ID != o.ID || s.Live != o.Live || s.DpadX != o.DpadX || s.DpadY != o.DpadY || s.Deadzones != o.Deadzones {
		return true
	}
	if len(s.Controls) != len(o.Controls) {
		return true
	}
	for k, v := range s.Controls {
		if ov, ok := o.Controls[k]; !ok || ov.Value != v.Value {
			return true
		}
	}
	return false
}

// Package mapping holds the association between a controller's raw button
// and axis indices and the named controls of the semantic vocabulary.
package mapping

import (
	"errors"
	"fmt"
	"strings"
)

// Unassigned marks a slot that has not been mapped yet.
const Unassigned = -1

var (
	// ErrIncomplete is returned where a complete mapping is required.
	ErrIncomplete = errors.New("mapping incomplete")
	// ErrMappingComplete is returned when mutating a finalized mapping.
	ErrMappingComplete = errors.New("mapping is complete")
)

// Quirks are device reporting peculiarities that change how controls are read.
type Quirks struct {
	// AxisDpad means the d-pad reports through axes.
	AxisDpad bool `json:"axisDpad"`
	// RudderShoulders means L2/R2 report through axes resting at -1.
	RudderShoulders bool `json:"rudderShoulders"`
	// SingleAxisDpadHack means the d-pad is one combined 8-way axis.
	SingleAxisDpadHack bool `json:"singleAxisDpadHack"`
}

// Mapping assigns a raw index to every control of one controller.
type Mapping struct {
	id       string
	slots    [NumControls]int
	complete bool
	quirks   Quirks
}

// New returns an empty mapping for the given controller identifier.
func New(id string) *Mapping {
	m := &Mapping{id: id}
	for i := range m.slots {
		m.slots[i] = Unassigned
	}
	return m
}

func (m *Mapping) ID() string { return m.id }

func (m *Mapping) Complete() bool { return m.complete }

func (m *Mapping) Quirks() Quirks { return m.quirks }

// Slot returns the raw index assigned to c, or Unassigned.
func (m *Mapping) Slot(c Control) int { return m.slots[c] }

// Slots returns a copy of every slot in vocabulary order.
func (m *Mapping) Slots() [NumControls]int { return m.slots }

// Assign records the raw index for c.
func (m *Mapping) Assign(c Control, index int) error {
	if m.complete {
		return ErrMappingComplete
	}
	if c < 0 || int(c) >= NumControls {
		return fmt.Errorf("assign: unknown control %d", int(c))
	}
	if index < Unassigned {
		return fmt.Errorf("assign %s: invalid index %d", c, index)
	}
	m.slots[c] = index
	return nil
}

// SetQuirks replaces the quirk flags.
func (m *Mapping) SetQuirks(q Quirks) error {
	if m.complete {
		return ErrMappingComplete
	}
	m.quirks = q
	return nil
}

// Missing lists the controls that are still unassigned.
func (m *Mapping) Missing() []Control {
	var out []Control
	for i, s := range m.slots {
		if s == Unassigned {
			out = append(out, Control(i))
		}
	}
	return out
}

// Finalize marks the mapping complete. It fails with ErrIncomplete while
// any slot is unassigned.
func (m *Mapping) Finalize() error {
	if m.complete {
		return nil
	}
	if missing := m.Missing(); len(missing) > 0 {
		names := make([]string, len(missing))
		for i, c := range missing {
			names[i] = c.String()
		}
		return fmt.Errorf("%w: unassigned %s", ErrIncomplete, strings.Join(names, ","))
	}
	m.complete = true
	return nil
}

// Kind reports whether the slot of c holds a button or an axis index.
func (m *Mapping) Kind(c Control) Kind {
	switch {
	case c.IsStick():
		return KindAxis
	case c.IsTrigger() && m.quirks.RudderShoulders:
		return KindAxis
	case c.IsDpad() && m.quirks.AxisDpad:
		return KindAxis
	default:
		return KindButton
	}
}

// Claimed reports whether any slot of the given kind holds index.
func (m *Mapping) Claimed(kind Kind, index int) bool {
	if index < 0 {
		return false
	}
	for i, s := range m.slots {
		if s == index && m.Kind(Control(i)) == kind {
			return true
		}
	}
	return false
}

// Clone returns an independent copy. The copy of a complete mapping is
// complete as well.
func (m *Mapping) Clone() *Mapping {
	if m == nil {
		return nil
	}
	c := *m
	return &c
}

// Equal reports whether two mappings hold the same data.
func (m *Mapping) Equal(o *Mapping) bool {
	if m == nil || o == nil {
		return m == o
	}
	return *m == *o
}

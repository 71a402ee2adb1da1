package mapping

import (
	"fmt"
	"strings"
)

// Control is one named control of the semantic vocabulary.
type Control int

const (
	A Control = iota
	B
	X
	Y
	Select
	Start
	L1
	R1
	L2
	R2
	L3
	R3
	DpadUp
	DpadDown
	DpadLeft
	DpadRight
	Lx
	Ly
	Rx
	Ry

	// NumControls is the number of slots in a Mapping.
	NumControls = int(Ry) + 1
)

var controlNames = [NumControls]string{
	A:         "a",
	B:         "b",
	X:         "x",
	Y:         "y",
	Select:    "select",
	Start:     "start",
	L1:        "l1",
	R1:        "r1",
	L2:        "l2",
	R2:        "r2",
	L3:        "l3",
	R3:        "r3",
	DpadUp:    "dpadUp",
	DpadDown:  "dpadDown",
	DpadLeft:  "dpadLeft",
	DpadRight: "dpadRight",
	Lx:        "lx",
	Ly:        "ly",
	Rx:        "rx",
	Ry:        "ry",
}

func (c Control) String() string {
	if c < 0 || int(c) >= NumControls {
		return fmt.Sprintf("Control(%d)", int(c))
	}
	return controlNames[c]
}

// ParseControl resolves a control by name, case-insensitively.
func ParseControl(s string) (Control, error) {
	for i, n := range controlNames {
		if strings.EqualFold(n, s) {
			return Control(i), nil
		}
	}
	return 0, fmt.Errorf("unknown control %q", s)
}

// Controls returns every control in vocabulary order.
func Controls() []Control {
	out := make([]Control, NumControls)
	for i := range out {
		out[i] = Control(i)
	}
	return out
}

func (c Control) IsTrigger() bool { return c == L2 || c == R2 }

func (c Control) IsDpad() bool { return c >= DpadUp && c <= DpadRight }

func (c Control) IsStick() bool { return c >= Lx && c <= Ry }

// Kind tells which raw index space a slot refers to.
type Kind int

const (
	KindButton Kind = iota
	KindAxis
)

func (k Kind) String() string {
	if k == KindAxis {
		return "axis"
	}
	return "button"
}

package calibration

import (
	"fmt"

	"github.com/Alia5/padmap/mapping"
)

// Phase is a group of calibration steps.
type Phase int

const (
	PhaseButtons Phase = iota
	PhaseShoulders
	PhaseDpad
	PhaseAxes
	PhaseDone
)

var phaseNames = [...]string{
	PhaseButtons:   "buttons",
	PhaseShoulders: "shoulders",
	PhaseDpad:      "dpad",
	PhaseAxes:      "axes",
	PhaseDone:      "done",
}

func (p Phase) String() string {
	if p < 0 || int(p) >= len(phaseNames) {
		return fmt.Sprintf("Phase(%d)", int(p))
	}
	return phaseNames[p]
}

func (p Phase) MarshalText() ([]byte, error) { return []byte(p.String()), nil }

func (p *Phase) UnmarshalText(b []byte) error {
	for i, name := range phaseNames {
		if name == string(b) {
			*p = Phase(i)
			return nil
		}
	}
	return fmt.Errorf("unknown phase %q", b)
}

// Highlight targets name the part of a controller picture a front end
// should emphasise for the current step.
const (
	HighlightNone        = ""
	HighlightFaceBottom  = "face-bottom"
	HighlightFaceRight   = "face-right"
	HighlightFaceLeft    = "face-left"
	HighlightFaceTop     = "face-top"
	HighlightSelect      = "select"
	HighlightStart       = "start"
	HighlightLeftStick   = "stick-left-click"
	HighlightRightStick  = "stick-right-click"
	HighlightL1          = "shoulder-l1"
	HighlightR1          = "shoulder-r1"
	HighlightL2          = "trigger-l2"
	HighlightR2          = "trigger-r2"
	HighlightDpadDown    = "dpad-down"
	HighlightDpadUp      = "dpad-up"
	HighlightDpadRight   = "dpad-right"
	HighlightDpadLeft    = "dpad-left"
	HighlightLeftStickX  = "stick-left-x"
	HighlightLeftStickY  = "stick-left-y"
	HighlightRightStickX = "stick-right-x"
	HighlightRightStickY = "stick-right-y"
)

// Step is one prompt of the calibration sequence.
type Step struct {
	Control   mapping.Control
	Prompt    string
	Highlight string
}

var phaseSteps = [...][]Step{
	PhaseButtons: {
		{mapping.A, "Press the (A) button on your controller.", HighlightFaceBottom},
		{mapping.B, "Press the (B) button on your controller.", HighlightFaceRight},
		{mapping.X, "Press the (X) button on your controller.", HighlightFaceLeft},
		{mapping.Y, "Press the (Y) button on your controller.", HighlightFaceTop},
		{mapping.Select, "Press the select button on your controller.", HighlightSelect},
		{mapping.Start, "Press the start button on your controller.", HighlightStart},
		{mapping.L3, "CLICK the L stick on your controller.", HighlightLeftStick},
		{mapping.R3, "CLICK the R stick on your controller.", HighlightRightStick},
		{mapping.L1, "Press the L1 button on your controller.", HighlightL1},
		{mapping.R1, "Press the R1 button on your controller.", HighlightR1},
	},
	PhaseShoulders: {
		{mapping.L2, "Pull the L2 trigger on your controller.", HighlightL2},
		{mapping.R2, "Pull the R2 trigger on your controller.", HighlightR2},
	},
	PhaseDpad: {
		{mapping.DpadDown, "Press down on the directional pad.", HighlightDpadDown},
		{mapping.DpadUp, "Press up on the directional pad.", HighlightDpadUp},
		{mapping.DpadRight, "Press right on the directional pad.", HighlightDpadRight},
		{mapping.DpadLeft, "Press left on the directional pad.", HighlightDpadLeft},
	},
	PhaseAxes: {
		{mapping.Lx, "Move the left stick left or right.", HighlightLeftStickX},
		{mapping.Ly, "Move the left stick up or down.", HighlightLeftStickY},
		{mapping.Rx, "Move the right stick left or right.", HighlightRightStickX},
		{mapping.Ry, "Move the right stick up or down.", HighlightRightStickY},
	},
}

// Steps returns the steps of a phase in prompt order.
func Steps(p Phase) []Step {
	if p < PhaseButtons || p >= PhaseDone {
		return nil
	}
	return append([]Step(nil), phaseSteps[p]...)
}

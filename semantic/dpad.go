package semantic

import (
	"math"

	"github.com/Alia5/padmap/mapping"
	"github.com/Alia5/padmap/rawinput"
)

// DecodeSingleAxis turns the combined 8-way d-pad axis into a vector.
// Each compass state owns a range of the axis, starting north and turning
// clockwise; values outside -1..1 are centered.
func DecodeSingleAxis(v float64) (x, y int) {
	switch {
	case v < -1 || v > 1:
		return 0, 0
	case v <= -0.72:
		return 0, -1
	case v <= -0.43:
		return 1, -1
	case v <= -0.143:
		return 1, 0
	case v <= 0.142:
		return 1, 1
	case v <= 0.42:
		return 0, 1
	case v <= 0.71:
		return -1, 1
	case v < 1:
		return -1, 0
	default:
		return -1, -1
	}
}

// step rounds an axis-backed d-pad value to -1, 0 or 1.
func step(v float64) int {
	return int(math.Max(-1, math.Min(1, math.Round(v))))
}

// dpadDirection reads one d-pad direction from the axis stored in its
// slot: the down/up slots hold the vertical axis, right/left the
// horizontal one. With the single-axis quirk both hold the combined axis.
func dpadDirection(c mapping.Control, singleAxis bool) func(float64) float64 {
	return func(v float64) float64 {
		var x, y int
		if singleAxis {
			x, y = DecodeSingleAxis(v)
		} else {
			x, y = step(v), step(v)
		}
		var on bool
		switch c {
		case mapping.DpadUp:
			on = y < 0
		case mapping.DpadDown:
			on = y > 0
		case mapping.DpadLeft:
			on = x < 0
		case mapping.DpadRight:
			on = x > 0
		}
		if on {
			return 1
		}
		return 0
	}
}

func (d *Device) readDpad(raw *rawinput.RawDevice) (x, y int) {
	q := d.m.Quirks()
	switch {
	case q.SingleAxisDpadHack:
		return DecodeSingleAxis(raw.Axis(d.m.Slot(mapping.DpadDown)))
	case q.AxisDpad:
		return step(raw.Axis(d.m.Slot(mapping.DpadRight))), step(raw.Axis(d.m.Slot(mapping.DpadDown)))
	}
	return opposing(d.controls[mapping.DpadLeft].value, d.controls[mapping.DpadRight].value),
		opposing(d.controls[mapping.DpadUp].value, d.controls[mapping.DpadDown].value)
}

// opposing resolves two opposite digital directions, engaging neither when
// both are held.
func opposing(neg, pos float64) int {
	switch {
	case neg != 0 && pos <= 0:
		return -1
	case neg == 0 && pos != 0:
		return 1
	}
	return 0
}

package testing

import "github.com/Alia5/padmap/rawinput"

// Pad returns a connected raw device at rest.
func Pad(index int, id string, buttons, axes int) *rawinput.RawDevice {
	return &rawinput.RawDevice{
		Index:     index,
		ID:        id,
		Connected: true,
		Buttons:   make([]rawinput.Button, buttons),
		Axes:      make([]float64, axes),
	}
}

// Press returns a copy of d with the given buttons pressed.
func Press(d *rawinput.RawDevice, buttons ...int) *rawinput.RawDevice {
	out := d.Clone()
	for _, b := range buttons {
		out.Buttons[b] = rawinput.Button{Pressed: true, Value: 1}
	}
	return out
}

// Analog returns a copy of d with button b reporting value without the
// pressed flag.
func Analog(d *rawinput.RawDevice, b int, value float64) *rawinput.RawDevice {
	out := d.Clone()
	out.Buttons[b] = rawinput.Button{Value: value}
	return out
}

// Move returns a copy of d with axis set to v.
func Move(d *rawinput.RawDevice, axis int, v float64) *rawinput.RawDevice {
	out := d.Clone()
	out.Axes[axis] = v
	return out
}

// Snap places every device at its Index.
func Snap(devs ...*rawinput.RawDevice) rawinput.Snapshot {
	n := 0
	for _, d := range devs {
		n = max(n, d.Index+1)
	}
	out := make(rawinput.Snapshot, n)
	for _, d := range devs {
		out[d.Index] = d
	}
	return out
}

// Calibrate drives a full calibration of the digital pad rest through
// tick: buttons 0-15 in the conventional layout and axes 0-3 as sticks.
func Calibrate(rest *rawinput.RawDevice, tick func(rawinput.Snapshot)) {
	for _, b := range []int{0, 1, 2, 3, 8, 9, 10, 11, 4, 5, 6, 7, 13, 12, 15, 14} {
		tick(Snap(Press(rest, b)))
		tick(Snap(rest))
	}
	for axis, v := range []float64{-1, 1, 1, -1} {
		tick(Snap(Move(rest, axis, v)))
		tick(Snap(rest))
	}
}

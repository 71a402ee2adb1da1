// Package rawinput describes controllers exactly as the host reports them:
// an indexed list of devices, each with unnamed buttons and axes.
package rawinput

// Button is a single raw button. Analog buttons may report a Value between
// 0 and 1 without setting Pressed.
type Button struct {
	Pressed bool    `json:"pressed" yaml:"pressed"`
	Value   float64 `json:"value" yaml:"value"`
}

// RawDevice is one controller in a Snapshot.
type RawDevice struct {
	// Index is the stable position of the device within a snapshot.
	Index     int      `json:"index" yaml:"index"`
	ID        string   `json:"id" yaml:"id"`
	Connected bool     `json:"connected" yaml:"connected"`
	Buttons   []Button `json:"buttons" yaml:"buttons"`
	// Axes hold values in the range -1..1.
	Axes []float64 `json:"axes" yaml:"axes"`
}

// ButtonPressed reports whether button i exists and is pressed.
func (d *RawDevice) ButtonPressed(i int) bool {
	if i < 0 || i >= len(d.Buttons) {
		return false
	}
	return d.Buttons[i].Pressed
}

// ButtonValue returns 1 for a pressed button, the analog value otherwise.
func (d *RawDevice) ButtonValue(i int) float64 {
	if i < 0 || i >= len(d.Buttons) {
		return 0
	}
	if d.Buttons[i].Pressed {
		return 1
	}
	return d.Buttons[i].Value
}

// Axis returns axis i or 0 if the device has no such axis.
func (d *RawDevice) Axis(i int) float64 {
	if i < 0 || i >= len(d.Axes) {
		return 0
	}
	return d.Axes[i]
}

// Clone returns a deep copy of d.
func (d *RawDevice) Clone() *RawDevice {
	if d == nil {
		return nil
	}
	out := *d
	out.Buttons = append([]Button(nil), d.Buttons...)
	out.Axes = append([]float64(nil), d.Axes...)
	return &out
}

// Snapshot is the state of every host device slot at one tick.
// Entries may be nil for empty slots.
type Snapshot []*RawDevice

// Device returns the connected device at index i, or nil.
func (s Snapshot) Device(i int) *RawDevice {
	if i < 0 || i >= len(s) {
		return nil
	}
	d := s[i]
	if d == nil || !d.Connected {
		return nil
	}
	return d
}

// IDs returns the identifier of every slot, empty for absent devices.
func (s Snapshot) IDs() []string {
	out := make([]string, len(s))
	for i := range s {
		if d := s.Device(i); d != nil {
			out[i] = d.ID
		}
	}
	return out
}

// Connected returns the number of connected devices.
func (s Snapshot) Connected() int {
	n := 0
	for i := range s {
		if s.Device(i) != nil {
			n++
		}
	}
	return n
}

// Clone returns a deep copy of s.
func (s Snapshot) Clone() Snapshot {
	out := make(Snapshot, len(s))
	for i, d := range s {
		out[i] = d.Clone()
	}
	return out
}

// Change describes a device appearing at or leaving an index.
type Change struct {
	Index int
	Old   string
	New   string
}

// Diff compares the identifiers at every index of two snapshots.
func Diff(prev, cur Snapshot) []Change {
	a, b := prev.IDs(), cur.IDs()
	n := max(len(a), len(b))
	var out []Change
	for i := 0; i < n; i++ {
		var o, c string
		if i < len(a) {
			o = a[i]
		}
		if i < len(b) {
			c = b[i]
		}
		if o != c {
			out = append(out, Change{Index: i, Old: o, New: c})
		}
	}
	return out
}

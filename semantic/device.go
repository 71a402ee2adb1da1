// Package semantic exposes a raw controller through the named controls of
// a completed Mapping, tracking per-control history between polls.
package semantic

import (
	"fmt"
	"time"

	"github.com/Alia5/padmap/mapping"
	"github.com/Alia5/padmap/rawinput"
)

type bindingKind int

const (
	bindDigital bindingKind = iota
	bindAxis
)

// binding is how one control is read from the raw device: a button value,
// or an axis value passed through an optional transform.
type binding struct {
	kind      bindingKind
	slot      int
	transform func(float64) float64
}

func (b binding) read(d *rawinput.RawDevice) float64 {
	if b.kind == bindDigital {
		return d.ButtonValue(b.slot)
	}
	v := d.Axis(b.slot)
	if b.transform != nil {
		v = b.transform(v)
	}
	return v
}

// held tracks the history of one value across polls. A zero value is idle
// and never counts as held.
type held struct {
	value float64
	prev  float64
	tics  int
	time  time.Duration
	since time.Time
}

func (h *held) update(v float64, now time.Time) {
	h.prev = h.value
	h.value = v
	switch {
	case v == 0:
		h.tics = 0
		h.time = 0
	case v == h.prev:
		h.tics++
		h.time = now.Sub(h.since)
	default:
		h.tics = 0
		h.time = 0
		h.since = now
	}
}

// Device is the runtime view of one mapped controller. The raw device is
// looked up by index on every poll and never retained.
type Device struct {
	index    int
	m        *mapping.Mapping
	bindings [mapping.NumControls]binding
	controls [mapping.NumControls]held
	dpad     [2]held
	dz       Deadzones
	live     bool
}

// New builds a device for the raw index from a copy of m.
func New(index int, m *mapping.Mapping) (*Device, error) {
	if m == nil || !m.Complete() {
		return nil, fmt.Errorf("semantic device %d: %w", index, mapping.ErrIncomplete)
	}
	d := &Device{index: index, m: m.Clone()}
	q := d.m.Quirks()
	for _, c := range mapping.Controls() {
		slot := d.m.Slot(c)
		switch {
		case c.IsStick():
			d.bindings[c] = binding{kind: bindAxis, slot: slot}
		case c.IsTrigger() && q.RudderShoulders:
			d.bindings[c] = binding{kind: bindAxis, slot: slot, transform: rudder}
		case c.IsDpad() && q.AxisDpad:
			d.bindings[c] = binding{kind: bindAxis, slot: slot, transform: dpadDirection(c, q.SingleAxisDpadHack)}
		default:
			d.bindings[c] = binding{kind: bindDigital, slot: slot}
		}
	}
	return d, nil
}

func rudder(v float64) float64 { return (v + 1) / 2 }

func (d *Device) Index() int { return d.index }

func (d *Device) ID() string { return d.m.ID() }

// Mapping returns a copy of the mapping the device was built from.
func (d *Device) Mapping() *mapping.Mapping { return d.m.Clone() }

// Live reports whether the last poll found the raw device.
func (d *Device) Live() bool { return d.live }

// Poll reads the raw device and advances every control. It returns false
// and leaves all state untouched when the index no longer resolves to the
// mapped controller.
func (d *Device) Poll(snap rawinput.Snapshot, now time.Time) bool {
	raw := snap.Device(d.index)
	if raw == nil || raw.ID != d.m.ID() {
		d.live = false
		return false
	}
	d.live = true
	for c := range d.bindings {
		d.controls[c].update(d.bindings[c].read(raw), now)
	}
	x, y := d.readDpad(raw)
	d.dpad[0].update(float64(x), now)
	d.dpad[1].update(float64(y), now)
	return true
}

// Value returns the current value of c. Stick values are deadzone filtered.
func (d *Device) Value(c mapping.Control) float64 {
	return d.filter(c, d.controls[c].value)
}

// Prev returns the value of c at the previous poll.
func (d *Device) Prev(c mapping.Control) float64 {
	return d.filter(c, d.controls[c].prev)
}

// Raw returns the unfiltered current value of c.
func (d *Device) Raw(c mapping.Control) float64 { return d.controls[c].value }

func (d *Device) Pressed(c mapping.Control) bool { return d.Value(c) != 0 }

// JustPressed reports a transition from idle this poll.
func (d *Device) JustPressed(c mapping.Control) bool {
	return d.Value(c) != 0 && d.Prev(c) == 0
}

// HeldTics is the number of consecutive polls c kept its current non-zero value.
func (d *Device) HeldTics(c mapping.Control) int { return d.controls[c].tics }

// HeldTime is how long c has kept its current non-zero value.
func (d *Device) HeldTime(c mapping.Control) time.Duration { return d.controls[c].time }

// Dpad returns the d-pad vector, x to the right and y downwards.
func (d *Device) Dpad() (x, y int) {
	return int(d.dpad[0].value), int(d.dpad[1].value)
}

func (d *Device) DpadPrev() (x, y int) {
	return int(d.dpad[0].prev), int(d.dpad[1].prev)
}

func (d *Device) DpadHeldTics() (x, y int) {
	return d.dpad[0].tics, d.dpad[1].tics
}

func (d *Device) DpadHeldTime() (x, y time.Duration) {
	return d.dpad[0].time, d.dpad[1].time
}

func (d *Device) filter(c mapping.Control, v float64) float64 {
	switch c {
	case mapping.Lx, mapping.Ly:
		return applyDeadzone(v, d.dz.Left)
	case mapping.Rx, mapping.Ry:
		return applyDeadzone(v, d.dz.Right)
	}
	return v
}

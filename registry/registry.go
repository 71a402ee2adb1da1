// Package registry keeps the stored mappings and binds them to the raw
// controllers the host reports, one semantic device per slot.
package registry

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/Alia5/padmap/mapping"
	"github.com/Alia5/padmap/rawinput"
	"github.com/Alia5/padmap/semantic"
)

// MaxDevices is the number of semantic device slots.
const MaxDevices = 4

var (
	ErrSlotRange = errors.New("slot out of range")
	ErrSlotEmpty = errors.New("slot is empty")
)

// Entry is an occupied slot.
type Entry struct {
	Slot   int
	Device *semantic.Device
}

// Binding reports a device being attached to or detached from a slot.
type Binding struct {
	Slot     int    `json:"slot"`
	Index    int    `json:"index"`
	ID       string `json:"id"`
	Attached bool   `json:"attached"`
}

// Registry owns the mappings and the device slots. It is not safe for
// concurrent use.
type Registry struct {
	mappings  map[string]*mapping.Mapping
	deadzones map[string]semantic.Deadzones
	slots     [MaxDevices]*semantic.Device
	// detached by Put or Remove, reported by the next Reconcile
	pending []Binding
}

func New() *Registry {
	return &Registry{
		mappings:  make(map[string]*mapping.Mapping),
		deadzones: make(map[string]semantic.Deadzones),
	}
}

// Put stores a copy of a completed mapping, replacing any mapping with the
// same identifier. Devices built from the old mapping are detached; the
// next Reconcile reports them and rebuilds the devices.
func (r *Registry) Put(m *mapping.Mapping) error {
	if m == nil || !m.Complete() {
		return fmt.Errorf("registry put: %w", mapping.ErrIncomplete)
	}
	r.mappings[m.ID()] = m.Clone()
	r.detach(m.ID())
	return nil
}

// Remove deletes the mapping for id and detaches its devices. It reports
// whether a mapping existed.
func (r *Registry) Remove(id string) bool {
	if _, ok := r.mappings[id]; !ok {
		return false
	}
	delete(r.mappings, id)
	r.detach(id)
	return true
}

func (r *Registry) detach(id string) {
	for i, d := range r.slots {
		if d != nil && d.ID() == id {
			r.slots[i] = nil
			r.pending = append(r.pending, Binding{Slot: i, Index: d.Index(), ID: id})
		}
	}
}

// Reconcile drops devices whose controller vanished or changed and binds
// every connected, mapped controller that has no device yet to the first
// free slot. Devices detached by Put or Remove since the last call are
// reported first.
func (r *Registry) Reconcile(snap rawinput.Snapshot) []Binding {
	out := r.pending
	r.pending = nil
	bound := make(map[int]bool, MaxDevices)
	for i, d := range r.slots {
		if d == nil {
			continue
		}
		raw := snap.Device(d.Index())
		if raw == nil || raw.ID != d.ID() {
			r.slots[i] = nil
			out = append(out, Binding{Slot: i, Index: d.Index(), ID: d.ID()})
			continue
		}
		bound[d.Index()] = true
	}

	for idx := range snap {
		raw := snap.Device(idx)
		if raw == nil || bound[idx] {
			continue
		}
		m, ok := r.mappings[raw.ID]
		if !ok {
			continue
		}
		slot := r.freeSlot()
		if slot < 0 {
			break
		}
		d, err := semantic.New(idx, m)
		if err != nil {
			continue
		}
		if dz, ok := r.deadzones[raw.ID]; ok {
			_ = d.SetDeadzones(dz)
		}
		r.slots[slot] = d
		bound[idx] = true
		out = append(out, Binding{Slot: slot, Index: idx, ID: raw.ID, Attached: true})
	}
	return out
}

func (r *Registry) freeSlot() int {
	for i, d := range r.slots {
		if d == nil {
			return i
		}
	}
	return -1
}

// Poll advances every device and returns the slots whose controller was
// found.
func (r *Registry) Poll(snap rawinput.Snapshot, now time.Time) []int {
	var live []int
	for i, d := range r.slots {
		if d != nil && d.Poll(snap, now) {
			live = append(live, i)
		}
	}
	return live
}

// ConnectedCount is the number of connected raw controllers.
func (r *Registry) ConnectedCount(snap rawinput.Snapshot) int {
	return snap.Connected()
}

// MappedCount is the number of connected raw controllers with a stored
// mapping.
func (r *Registry) MappedCount(snap rawinput.Snapshot) int {
	n := 0
	for i := range snap {
		if raw := snap.Device(i); raw != nil && r.HasMapping(raw.ID) {
			n++
		}
	}
	return n
}

func (r *Registry) HasMapping(id string) bool {
	_, ok := r.mappings[id]
	return ok
}

// Mapping returns a copy of the mapping stored for id.
func (r *Registry) Mapping(id string) (*mapping.Mapping, bool) {
	m, ok := r.mappings[id]
	if !ok {
		return nil, false
	}
	return m.Clone(), true
}

// Mappings returns copies of all stored mappings ordered by identifier.
func (r *Registry) Mappings() []*mapping.Mapping {
	out := make([]*mapping.Mapping, 0, len(r.mappings))
	for _, m := range r.mappings {
		out = append(out, m.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out
}

// Devices returns the occupied slots in slot order.
func (r *Registry) Devices() []Entry {
	var out []Entry
	for i, d := range r.slots {
		if d != nil {
			out = append(out, Entry{Slot: i, Device: d})
		}
	}
	return out
}

func (r *Registry) Device(slot int) (*semantic.Device, error) {
	if slot < 0 || slot >= MaxDevices {
		return nil, fmt.Errorf("slot %d: %w", slot, ErrSlotRange)
	}
	if r.slots[slot] == nil {
		return nil, fmt.Errorf("slot %d: %w", slot, ErrSlotEmpty)
	}
	return r.slots[slot], nil
}

// SetDeadzones applies dz to the device in slot and remembers it for the
// device's identifier.
func (r *Registry) SetDeadzones(slot int, dz semantic.Deadzones) error {
	d, err := r.Device(slot)
	if err != nil {
		return err
	}
	if err := d.SetDeadzones(dz); err != nil {
		return err
	}
	r.deadzones[d.ID()] = dz
	return nil
}

// RememberDeadzones records dz for id without a device being present.
func (r *Registry) RememberDeadzones(id string, dz semantic.Deadzones) error {
	if err := dz.Validate(); err != nil {
		return err
	}
	r.deadzones[id] = dz
	return nil
}

// DeadzonesFor returns the deadzones remembered for id.
func (r *Registry) DeadzonesFor(id string) (semantic.Deadzones, bool) {
	dz, ok := r.deadzones[id]
	return dz, ok
}

// AllDeadzones returns a copy of every remembered deadzone pair.
func (r *Registry) AllDeadzones() map[string]semantic.Deadzones {
	out := make(map[string]semantic.Deadzones, len(r.deadzones))
	for k, v := range r.deadzones {
		out[k] = v
	}
	return out
}

package engine

import (
	"context"
	"fmt"

	"github.com/Alia5/padmap/calibration"
	"github.com/Alia5/padmap/mapping"
	"github.com/Alia5/padmap/semantic"
)

// StartCalibration begins calibrating the controller at the raw index.
func (e *Engine) StartCalibration(index int) (calibration.Status, error) {
	e.mu.Lock()
	if e.session != nil {
		st := e.session.Status()
		e.mu.Unlock()
		return st, fmt.Errorf("%w for %q", ErrSessionActive, st.DeviceID)
	}
	s, err := calibration.Start(e.snapshot(), index, e.src.Host(), e.logger, e.collect)
	if err != nil {
		e.unlockAndFlush()
		return calibration.Status{}, err
	}
	e.session = s
	st := s.Status()
	e.unlockAndFlush()
	return st, nil
}

// CancelCalibration abandons the running session.
func (e *Engine) CancelCalibration() (calibration.Status, error) {
	e.mu.Lock()
	if e.session == nil {
		e.mu.Unlock()
		return calibration.Status{}, ErrNoSession
	}
	e.session.Cancel()
	e.endSession()
	st := *e.last
	e.unlockAndFlush()
	return st, nil
}

// CalibrationStatus returns the running session's progress and true, or
// the final status of the last session and false.
func (e *Engine) CalibrationStatus() (calibration.Status, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.session != nil {
		return e.session.Status(), true
	}
	if e.last != nil {
		return *e.last, false
	}
	return calibration.Status{Index: -1}, false
}

// DetectDeadzones samples the sticks of the device in slot and applies
// the result. It blocks until sampling finished or ctx is done; the poll
// loop keeps running meanwhile.
func (e *Engine) DetectDeadzones(ctx context.Context, slot int) (semantic.Deadzones, error) {
	e.mu.Lock()
	dev, err := e.reg.Device(slot)
	if err != nil {
		e.mu.Unlock()
		return semantic.Deadzones{}, err
	}
	if _, ok := e.samplers[slot]; ok {
		e.mu.Unlock()
		return semantic.Deadzones{}, fmt.Errorf("slot %d: %w", slot, ErrSamplerActive)
	}
	s := semantic.NewDeadzoneSampler(dev, e.now)
	e.samplers[slot] = s
	e.mu.Unlock()
	e.logger.Info("deadzone detection started", "slot", slot, "id", dev.ID())

	select {
	case <-s.Done():
		return s.Result()
	case <-ctx.Done():
		e.mu.Lock()
		s.Cancel()
		if e.samplers[slot] == s {
			delete(e.samplers, slot)
		}
		e.mu.Unlock()
		return semantic.Deadzones{}, ctx.Err()
	}
}

// DetectingDeadzones reports whether deadzone detection runs for slot.
func (e *Engine) DetectingDeadzones(slot int) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, ok := e.samplers[slot]
	return ok
}

// SetDeadzones applies and persists deadzones for the device in slot.
func (e *Engine) SetDeadzones(slot int, dz semantic.Deadzones) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.reg.SetDeadzones(slot, dz); err != nil {
		return err
	}
	delete(e.states, slot)
	return e.save()
}

// Devices lists the occupied slots.
func (e *Engine) Devices() []DeviceInfo {
	e.mu.Lock()
	defer e.mu.Unlock()
	var out []DeviceInfo
	for _, en := range e.reg.Devices() {
		out = append(out, DeviceInfo{
			Slot:      en.Slot,
			Index:     en.Device.Index(),
			ID:        en.Device.ID(),
			Live:      en.Device.Live(),
			Deadzones: en.Device.Deadzones(),
		})
	}
	return out
}

// DeviceState returns the current state of the device in slot.
func (e *Engine) DeviceState(slot int) (semantic.State, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	d, err := e.reg.Device(slot)
	if err != nil {
		return semantic.State{}, err
	}
	st := d.State()
	st.Slot = slot
	return st, nil
}

// Counts returns the number of connected controllers and how many of
// them have a mapping.
func (e *Engine) Counts() (connected, mapped int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	snap := e.snapshot()
	return e.reg.ConnectedCount(snap), e.reg.MappedCount(snap)
}

func (e *Engine) HasMapping(id string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.reg.HasMapping(id)
}

func (e *Engine) Mappings() []*mapping.Mapping {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.reg.Mappings()
}

// RemoveMapping deletes the mapping for id and persists the change.
func (e *Engine) RemoveMapping(id string) (bool, error) {
	e.mu.Lock()
	if !e.reg.Remove(id) {
		e.mu.Unlock()
		return false, nil
	}
	e.logger.Info("mapping removed", "id", id)
	e.snapshot()
	e.reconcile()
	err := e.save()
	e.unlockAndFlush()
	return true, err
}

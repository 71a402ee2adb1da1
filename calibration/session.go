// Package calibration implements the interactive protocol that builds a
// Mapping for a controller of unknown layout.
//
// A Session walks the user through four phases (buttons, shoulders, d-pad,
// sticks). It consumes one raw snapshot per tick and accepts at most one
// input per tick. Buttons are scanned before axes, each in ascending index
// order, and indices already claimed by the mapping under construction are
// never accepted twice.
package calibration

import (
	"errors"
	"fmt"
	"log/slog"
	"math"

	"github.com/Alia5/padmap/mapping"
	"github.com/Alia5/padmap/rawinput"
)

// ErrNoDevice is returned when the calibration target is not connected.
var ErrNoDevice = errors.New("no device at index")

const (
	// stickThreshold is the magnitude an axis must exceed to be taken as a stick.
	stickThreshold = 0.5
	// saturated is the axis value that identifies rudder triggers and d-pad axes.
	saturated = 1.0
	// singleAxisDpad is the axis carrying the combined d-pad of the
	// single-axis quirk.
	singleAxisDpad = 9
)

// Session is one calibration run against a single raw device index.
type Session struct {
	index    int
	id       string
	m        *mapping.Mapping
	phase    Phase
	step     int
	prev     []bool
	paused   bool
	done     bool
	canceled bool

	listener Listener
	logger   *slog.Logger
}

// Status is a point-in-time view of a session.
type Status struct {
	Index     int            `json:"index"`
	DeviceID  string         `json:"deviceId"`
	Phase     Phase          `json:"phase"`
	Step      int            `json:"step"`
	Control   string         `json:"control,omitempty"`
	Prompt    string         `json:"prompt,omitempty"`
	Highlight string         `json:"highlight"`
	Paused    bool           `json:"paused"`
	Done      bool           `json:"done"`
	Canceled  bool           `json:"canceled"`
	Quirks    mapping.Quirks `json:"quirks"`
}

// Start begins calibrating the device at index. The quirk flags are
// detected once here and the first prompt is emitted before Start returns.
func Start(snap rawinput.Snapshot, index int, host rawinput.Host, logger *slog.Logger, listener Listener) (*Session, error) {
	d := snap.Device(index)
	if d == nil {
		return nil, fmt.Errorf("%w %d", ErrNoDevice, index)
	}
	if logger == nil {
		logger = slog.Default()
	}
	m := mapping.New(d.ID)
	q := mapping.DetectQuirks(d.ID, len(d.Axes), host)
	if err := m.SetQuirks(q); err != nil {
		return nil, err
	}
	s := &Session{
		index:    index,
		id:       d.ID,
		m:        m,
		prev:     pressedSet(d),
		listener: listener,
		logger:   logger.With("index", index, "device", d.ID),
	}
	s.logger.Info("calibration started",
		"axes", len(d.Axes), "buttons", len(d.Buttons),
		"axisDpad", q.AxisDpad, "rudderShoulders", q.RudderShoulders, "singleAxisDpadHack", q.SingleAxisDpadHack)
	s.emitPrompt()
	return s, nil
}

func (s *Session) Index() int { return s.index }

func (s *Session) DeviceID() string { return s.id }

func (s *Session) Phase() Phase { return s.phase }

func (s *Session) Step() int { return s.step }

// Paused reports whether the last tick found the target missing.
func (s *Session) Paused() bool { return s.paused }

func (s *Session) Done() bool { return s.done }

func (s *Session) Canceled() bool { return s.canceled }

// Mapping returns a copy of the completed mapping, or nil while the
// session is still running.
func (s *Session) Mapping() *mapping.Mapping {
	if !s.done {
		return nil
	}
	return s.m.Clone()
}

// Status returns the current progress.
func (s *Session) Status() Status {
	st := Status{
		Index:    s.index,
		DeviceID: s.id,
		Phase:    s.phase,
		Step:     s.step,
		Paused:   s.paused,
		Done:     s.done,
		Canceled: s.canceled,
		Quirks:   s.m.Quirks(),
	}
	if cur, ok := s.current(); ok && !s.canceled {
		st.Control = cur.Control.String()
		st.Prompt = cur.Prompt
		st.Highlight = cur.Highlight
	}
	return st
}

// Tick consumes one snapshot and reports whether the session completed.
// A missing target, or another device at the target index, pauses the
// session until the same device is back.
func (s *Session) Tick(snap rawinput.Snapshot) bool {
	if s.done || s.canceled {
		return s.done
	}
	d := snap.Device(s.index)
	if d == nil || d.ID != s.id {
		if !s.paused {
			s.paused = true
			s.logger.Warn("calibration paused, device lost")
		}
		return false
	}
	if s.paused {
		s.paused = false
		s.prev = pressedSet(d)
		s.logger.Info("calibration resumed")
		return false
	}

	switch s.phase {
	case PhaseButtons:
		if i, ok := s.newPress(d); ok {
			s.accept(i)
		}
	case PhaseShoulders:
		s.tickShoulders(d)
	case PhaseDpad:
		s.tickDpad(d)
	case PhaseAxes:
		s.tickAxes(d)
	}
	if !s.done {
		s.prev = pressedSet(d)
	}
	return s.done
}

// Cancel abandons the session. Nothing is persisted.
func (s *Session) Cancel() {
	if s.done || s.canceled {
		return
	}
	s.canceled = true
	s.logger.Info("calibration canceled", "phase", s.phase, "step", s.step)
	s.emit(Event{Type: EventCanceled, Highlight: HighlightNone})
}

func (s *Session) tickShoulders(d *rawinput.RawDevice) {
	q := s.m.Quirks()
	if !q.RudderShoulders {
		if i, ok := s.newPress(d); ok {
			s.accept(i)
			return
		}
		// L2 was a button, so R2 has to be one as well.
		if s.step > 0 {
			return
		}
	}
	i, ok := s.saturatedAxis(d)
	if !ok {
		return
	}
	if !q.RudderShoulders {
		q.RudderShoulders = true
		_ = s.m.SetQuirks(q)
		s.logger.Debug("triggers report as axes")
	}
	s.accept(i)
}

func (s *Session) tickDpad(d *rawinput.RawDevice) {
	q := s.m.Quirks()
	if !q.AxisDpad {
		if i, ok := s.newPress(d); ok {
			s.accept(i)
			return
		}
		if s.step > 0 {
			return
		}
	}
	i, ok := s.saturatedAxis(d)
	if !ok {
		return
	}
	if !q.AxisDpad {
		q.AxisDpad = true
		_ = s.m.SetQuirks(q)
		s.logger.Debug("d-pad reports as axes")
	}
	// One axis carries both directions of a d-pad component: down also
	// fills up, right also fills left.
	cur, _ := s.current()
	switch cur.Control {
	case mapping.DpadDown:
		s.assign(mapping.DpadDown, i)
		s.assign(mapping.DpadUp, i)
	case mapping.DpadRight:
		s.assign(mapping.DpadRight, i)
		s.assign(mapping.DpadLeft, i)
	default:
		return
	}
	s.advance(2)
}

func (s *Session) tickAxes(d *rawinput.RawDevice) {
	for i, v := range d.Axes {
		if math.Abs(v) <= stickThreshold || s.m.Claimed(mapping.KindAxis, i) {
			continue
		}
		s.accept(i)
		return
	}
}

// newPress returns the lowest unclaimed button that went down this tick.
func (s *Session) newPress(d *rawinput.RawDevice) (int, bool) {
	for i, b := range d.Buttons {
		if !b.Pressed || s.wasPressed(i) {
			continue
		}
		if s.m.Claimed(mapping.KindButton, i) {
			continue
		}
		return i, true
	}
	return -1, false
}

// saturatedAxis returns the lowest unclaimed axis sitting at +1.
func (s *Session) saturatedAxis(d *rawinput.RawDevice) (int, bool) {
	for i, v := range d.Axes {
		if v != saturated || s.m.Claimed(mapping.KindAxis, i) {
			continue
		}
		return i, true
	}
	return -1, false
}

func (s *Session) wasPressed(i int) bool {
	return i < len(s.prev) && s.prev[i]
}

func (s *Session) current() (Step, bool) {
	if s.phase >= PhaseDone {
		return Step{}, false
	}
	steps := phaseSteps[s.phase]
	if s.step >= len(steps) {
		return Step{}, false
	}
	return steps[s.step], true
}

func (s *Session) assign(c mapping.Control, index int) {
	if err := s.m.Assign(c, index); err != nil {
		s.logger.Error("assign failed", "control", c, "index", index, "error", err)
	}
}

func (s *Session) accept(index int) {
	cur, ok := s.current()
	if !ok {
		return
	}
	s.assign(cur.Control, index)
	s.logger.Debug("calibration step accepted", "control", cur.Control, "kind", s.m.Kind(cur.Control), "rawIndex", index)
	s.advance(1)
}

func (s *Session) advance(n int) {
	s.step += n
	for s.phase < PhaseDone && s.step >= len(phaseSteps[s.phase]) {
		s.phase++
		s.step = 0
		if s.phase == PhaseDpad && s.m.Quirks().SingleAxisDpadHack {
			s.applySingleAxisDpad()
			s.phase++
		}
	}
	if s.phase == PhaseDone {
		s.finish()
		return
	}
	s.emitPrompt()
}

func (s *Session) applySingleAxisDpad() {
	q := s.m.Quirks()
	q.AxisDpad = true
	_ = s.m.SetQuirks(q)
	for _, c := range []mapping.Control{mapping.DpadUp, mapping.DpadDown, mapping.DpadLeft, mapping.DpadRight} {
		s.assign(c, singleAxisDpad)
	}
	s.logger.Debug("d-pad phase skipped, single axis d-pad", "axis", singleAxisDpad)
}

func (s *Session) finish() {
	if err := s.m.Finalize(); err != nil {
		s.logger.Error("calibration could not be finalized", "error", err)
		s.Cancel()
		return
	}
	s.done = true
	s.logger.Info("calibration complete", "record", mapping.Encode(s.m))
	s.emit(Event{
		Type:      EventComplete,
		Highlight: HighlightNone,
		Record:    mapping.Encode(s.m),
		Mapping:   s.m.Clone(),
	})
}

func (s *Session) emitPrompt() {
	cur, ok := s.current()
	if !ok {
		return
	}
	s.emit(Event{
		Type:      EventPrompt,
		Control:   cur.Control.String(),
		Prompt:    cur.Prompt,
		Highlight: cur.Highlight,
	})
}

func (s *Session) emit(ev Event) {
	ev.Index = s.index
	ev.DeviceID = s.id
	ev.Phase = s.phase
	ev.Step = s.step
	if s.listener != nil {
		s.listener(ev)
	}
}

func pressedSet(d *rawinput.RawDevice) []bool {
	out := make([]bool, len(d.Buttons))
	for i, b := range d.Buttons {
		out[i] = b.Pressed
	}
	return out
}

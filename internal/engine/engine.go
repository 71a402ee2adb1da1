// Package engine runs the poll loop: it owns the input source, the device
// registry, the calibration session and the deadzone samplers, and hands
// every event and device state to the registered sinks.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Alia5/padmap/calibration"
	"github.com/Alia5/padmap/internal/log"
	"github.com/Alia5/padmap/internal/store"
	"github.com/Alia5/padmap/mapping"
	"github.com/Alia5/padmap/rawinput"
	"github.com/Alia5/padmap/registry"
	"github.com/Alia5/padmap/semantic"
)

var (
	ErrSessionActive = errors.New("calibration already in progress")
	ErrNoSession     = errors.New("no calibration in progress")
	ErrSamplerActive = errors.New("deadzone detection already running")
)

// Config is the engine section of the serve command.
type Config struct {
	TickInterval time.Duration `help:"Interval between two input polls" default:"16ms" env:"PADMAP_ENGINE_TICK"`
}

// Sink receives calibration events and changed device states. Calls are
// made without holding the engine lock, from the goroutine that caused
// them.
type Sink interface {
	PublishEvent(ev calibration.Event)
	PublishState(slot int, st semantic.State)
}

// DeviceInfo describes an occupied registry slot.
type DeviceInfo struct {
	Slot      int
	Index     int
	ID        string
	Live      bool
	Deadzones semantic.Deadzones
}

type stateUpdate struct {
	slot int
	st   semantic.State
}

// Engine serializes all access to the core behind one mutex.
type Engine struct {
	mu       sync.Mutex
	cfg      Config
	src      rawinput.Source
	store    store.Store
	reg      *registry.Registry
	session  *calibration.Session
	last     *calibration.Status
	samplers map[int]*semantic.DeadzoneSampler
	snap     rawinput.Snapshot
	now      time.Time
	dirty    bool
	states   map[int]semantic.State

	events  []calibration.Event
	updates []stateUpdate

	sinks     []Sink
	logger    *slog.Logger
	rawLogger log.RawLogger
}

// New creates an engine and loads the stored mappings. Corrupt records
// are logged and skipped; a document from a newer release is an error so
// that it is never overwritten.
func New(cfg Config, src rawinput.Source, st store.Store, logger *slog.Logger, rawLogger log.RawLogger, sinks ...Sink) (*Engine, error) {
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = 16 * time.Millisecond
	}
	if logger == nil {
		logger = slog.Default()
	}
	if rawLogger == nil {
		rawLogger = log.NewRaw(nil)
	}
	e := &Engine{
		cfg:       cfg,
		src:       src,
		store:     st,
		reg:       registry.New(),
		samplers:  make(map[int]*semantic.DeadzoneSampler),
		states:    make(map[int]semantic.State),
		dirty:     true,
		sinks:     sinks,
		logger:    logger,
		rawLogger: rawLogger,
	}
	if err := e.load(); err != nil {
		return nil, err
	}
	return e, nil
}

func (e *Engine) load() error {
	data, err := e.store.Load()
	if err != nil {
		return fmt.Errorf("load mappings: %w", err)
	}
	ms, dz, err := data.Decode()
	if errors.Is(err, store.ErrNewerVersion) {
		return fmt.Errorf("load mappings: %w", err)
	}
	if err != nil {
		e.logger.Warn("skipped stored mapping records", "error", err)
	}
	for _, m := range ms {
		if err := e.reg.Put(m); err != nil {
			e.logger.Warn("skipped stored mapping", "id", m.ID(), "missing", m.Missing(), "error", err)
		}
	}
	for id, v := range dz {
		_ = e.reg.RememberDeadzones(id, v)
	}
	e.logger.Info("mappings loaded", "count", len(e.reg.Mappings()), "deadzones", len(dz))
	return nil
}

// AddSink registers another sink.
func (e *Engine) AddSink(s Sink) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.sinks = append(e.sinks, s)
}

// Config returns the engine configuration.
func (e *Engine) Config() Config { return e.cfg }

// Run ticks until ctx is done.
func (e *Engine) Run(ctx context.Context) error {
	t := time.NewTicker(e.cfg.TickInterval)
	defer t.Stop()
	e.logger.Info("engine running", "tick", e.cfg.TickInterval)
	for {
		select {
		case <-ctx.Done():
			e.shutdown()
			return nil
		case now := <-t.C:
			e.Tick(now)
		}
	}
}

func (e *Engine) shutdown() {
	e.mu.Lock()
	for slot, s := range e.samplers {
		s.Cancel()
		delete(e.samplers, slot)
	}
	if e.session != nil {
		e.session.Cancel()
		e.endSession()
	}
	e.unlockAndFlush()
}

// Tick runs one poll cycle at now.
func (e *Engine) Tick(now time.Time) {
	e.mu.Lock()
	e.now = now
	snap := e.src.Snapshot()
	e.rawLogger.Log(now, snap)

	for _, ch := range rawinput.Diff(e.snap, snap) {
		switch {
		case ch.Old == "":
			e.logger.Info("controller connected", "index", ch.Index, "id", ch.New)
		case ch.New == "":
			e.logger.Info("controller disconnected", "index", ch.Index, "id", ch.Old)
		default:
			e.logger.Info("controller replaced", "index", ch.Index, "old", ch.Old, "new", ch.New)
		}
		e.dirty = true
	}
	e.snap = snap
	if e.dirty {
		e.reconcile()
	}

	live := e.reg.Poll(snap, now)
	e.tickSession()
	e.tickSamplers(now)

	for _, slot := range live {
		d, err := e.reg.Device(slot)
		if err != nil {
			continue
		}
		st := d.State()
		st.Slot = slot
		if prev, ok := e.states[slot]; ok && !prev.Changed(st) {
			continue
		}
		e.states[slot] = st
		e.updates = append(e.updates, stateUpdate{slot: slot, st: st})
	}
	e.unlockAndFlush()
}

func (e *Engine) reconcile() {
	e.dirty = false
	for _, b := range e.reg.Reconcile(e.snap) {
		if b.Attached {
			e.logger.Info("device attached", "slot", b.Slot, "index", b.Index, "id", b.ID)
			continue
		}
		e.logger.Info("device detached", "slot", b.Slot, "index", b.Index, "id", b.ID)
		delete(e.states, b.Slot)
		if s, ok := e.samplers[b.Slot]; ok {
			s.Cancel()
			delete(e.samplers, b.Slot)
		}
		e.updates = append(e.updates, stateUpdate{
			slot: b.Slot,
			st:   semantic.State{Slot: b.Slot, Index: b.Index, ID: b.ID},
		})
	}
}

func (e *Engine) tickSession() {
	if e.session == nil {
		return
	}
	if !e.session.Tick(e.snap) {
		return
	}
	m := e.session.Mapping()
	if err := e.reg.Put(m); err != nil {
		e.logger.Error("store calibrated mapping", "id", m.ID(), "error", err)
	} else {
		e.logger.Info("calibration complete", "id", m.ID(), "record", mapping.Encode(m))
		_ = e.save()
	}
	e.endSession()
	e.reconcile()
}

func (e *Engine) endSession() {
	st := e.session.Status()
	e.last = &st
	e.session = nil
}

func (e *Engine) tickSamplers(now time.Time) {
	for slot, s := range e.samplers {
		if d, err := e.reg.Device(slot); err != nil || d != s.Device() {
			e.logger.Warn("deadzone detection canceled, device left the slot", "slot", slot, "id", s.Device().ID())
			s.Cancel()
			delete(e.samplers, slot)
			continue
		}
		if !s.Tick(now) {
			continue
		}
		delete(e.samplers, slot)
		dz, err := s.Result()
		if err != nil {
			continue
		}
		if err := e.reg.SetDeadzones(slot, dz); err != nil {
			e.logger.Warn("apply detected deadzones", "slot", slot, "error", err)
			continue
		}
		e.logger.Info("deadzones detected", "slot", slot, "id", s.Device().ID(), "left", dz.Left, "right", dz.Right)
		_ = e.save()
	}
}

func (e *Engine) save() error {
	if err := e.store.Save(store.NewData(e.reg.Mappings(), e.reg.AllDeadzones())); err != nil {
		e.logger.Error("save mappings", "error", err)
		return fmt.Errorf("save mappings: %w", err)
	}
	return nil
}

func (e *Engine) collect(ev calibration.Event) {
	e.events = append(e.events, ev)
}

// unlockAndFlush releases the lock and then delivers everything queued
// while it was held.
func (e *Engine) unlockAndFlush() {
	events, updates, sinks := e.events, e.updates, e.sinks
	e.events, e.updates = nil, nil
	e.mu.Unlock()
	for _, s := range sinks {
		for _, ev := range events {
			s.PublishEvent(ev)
		}
		for _, u := range updates {
			s.PublishState(u.slot, u.st)
		}
	}
}

func (e *Engine) snapshot() rawinput.Snapshot {
	if e.snap == nil {
		e.snap = e.src.Snapshot()
	}
	return e.snap
}

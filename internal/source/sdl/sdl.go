// Package sdl reads raw joysticks through SDL3.
package sdl

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"sync"

	"github.com/jupiterrider/purego-sdl3/sdl"

	"github.com/Alia5/padmap/internal/source"
	"github.com/Alia5/padmap/internal/util"
	"github.com/Alia5/padmap/rawinput"
)

// Environment is reported as rawinput.Host.Environment.
const Environment = "SDL"

const pollDelayNS = 4_000_000

type joystick struct {
	js    *sdl.Joystick
	id    string
	index int
}

// Source is a rawinput.Source over every joystick SDL reports. Snapshot
// may be called from any goroutine while Run drives SDL.
type Source struct {
	mu   sync.Mutex
	snap rawinput.Snapshot

	joysticks map[sdl.JoystickID]*joystick
	slots     source.Slots[sdl.JoystickID]
	host      rawinput.Host
	logger    *slog.Logger
}

func New(logger *slog.Logger) *Source {
	return &Source{
		joysticks: make(map[sdl.JoystickID]*joystick),
		host:      rawinput.Host{Environment: Environment, Platform: util.Platform()},
		logger:    logger,
	}
}

// Run initializes SDL and polls joysticks until ctx is done. SDL is bound
// to the calling OS thread for the whole run.
func (s *Source) Run(ctx context.Context) error {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	if !sdl.Init(sdl.InitJoystick) {
		return fmt.Errorf("sdl init: %s", sdl.GetError())
	}
	defer sdl.Quit()
	s.logger.Info("SDL joystick subsystem initialized")

	for _, id := range sdl.GetJoysticks() {
		s.open(id)
	}
	for {
		select {
		case <-ctx.Done():
			s.closeAll()
			return nil
		default:
		}
		s.processEvents()
		s.poll()
		sdl.DelayNS(pollDelayNS)
	}
}

func (s *Source) processEvents() {
	var event sdl.Event
	for sdl.PollEvent(&event) {
		switch event.Type() {
		case sdl.EventJoystickAdded:
			s.open(event.JDevice().Which)
		case sdl.EventJoystickRemoved:
			s.remove(event.JDevice().Which)
		}
	}
}

func (s *Source) open(instanceID sdl.JoystickID) {
	if _, ok := s.joysticks[instanceID]; ok {
		return
	}
	js := sdl.OpenJoystick(instanceID)
	if js == nil {
		s.logger.Warn("failed to open joystick", "instance", instanceID, "error", sdl.GetError())
		return
	}
	j := &joystick{
		js:    js,
		id:    source.DeviceID(sdl.GetJoystickName(js), sdl.GetJoystickVendor(js), sdl.GetJoystickProduct(js)),
		index: s.slots.Add(instanceID),
	}
	s.joysticks[instanceID] = j
	s.logger.Info("joystick opened",
		"index", j.index,
		"id", j.id,
		"axes", sdl.GetNumJoystickAxes(js),
		"buttons", sdl.GetNumJoystickButtons(js),
		"hats", sdl.GetNumJoystickHats(js),
	)
}

func (s *Source) remove(instanceID sdl.JoystickID) {
	j, ok := s.joysticks[instanceID]
	if !ok {
		return
	}
	sdl.CloseJoystick(j.js)
	delete(s.joysticks, instanceID)
	s.slots.Remove(instanceID)
	s.logger.Info("joystick closed", "index", j.index, "id", j.id)
}

func (s *Source) closeAll() {
	for id := range s.joysticks {
		s.remove(id)
	}
	s.mu.Lock()
	s.snap = nil
	s.mu.Unlock()
}

// poll builds the snapshot: axes first, then two synthetic axes per hat.
func (s *Source) poll() {
	snap := make(rawinput.Snapshot, s.slots.Len())
	for _, j := range s.joysticks {
		d := &rawinput.RawDevice{
			Index:     j.index,
			ID:        j.id,
			Connected: sdl.JoystickConnected(j.js),
		}
		for i := int32(0); i < sdl.GetNumJoystickAxes(j.js); i++ {
			d.Axes = append(d.Axes, source.NormalizeAxis(sdl.GetJoystickAxis(j.js, i)))
		}
		for i := int32(0); i < sdl.GetNumJoystickHats(j.js); i++ {
			x, y := source.HatAxes(sdl.GetJoystickHat(j.js, i))
			d.Axes = append(d.Axes, x, y)
		}
		for i := int32(0); i < sdl.GetNumJoystickButtons(j.js); i++ {
			b := rawinput.Button{Pressed: sdl.GetJoystickButton(j.js, i)}
			if b.Pressed {
				b.Value = 1
			}
			d.Buttons = append(d.Buttons, b)
		}
		snap[j.index] = d
	}
	s.mu.Lock()
	s.snap = snap
	s.mu.Unlock()
}

func (s *Source) Snapshot() rawinput.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snap.Clone()
}

func (s *Source) Host() rawinput.Host { return s.host }

// Close is a no-op; the lifetime of SDL is bound to Run's context.
func (s *Source) Close() error { return nil }

var _ rawinput.Source = (*Source)(nil)

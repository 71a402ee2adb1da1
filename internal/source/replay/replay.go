// Package replay plays scripted controller snapshots from a YAML file.
//
//	host: {environment: Firefox, platform: Win32}
//	frames:
//	  - repeat: 10
//	    devices:
//	      - id: "Wireless Controller (Vendor: 054c Product: 09cc)"
//	        buttons: [1, 0, 0.5]
//	        axes: [0, -1]
//
// Every Snapshot call consumes one frame; the last frame is held. A button
// value of 1 is a press, values between 0 and 1 are analog.
package replay

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/Alia5/padmap/internal/util"
	"github.com/Alia5/padmap/rawinput"
)

// Environment is the host environment reported when the script sets none.
const Environment = "REPLAY"

type Script struct {
	Host   *rawinput.Host `yaml:"host"`
	Frames []Frame        `yaml:"frames"`
}

type Frame struct {
	Repeat  int      `yaml:"repeat"`
	Devices []Device `yaml:"devices"`
}

type Device struct {
	// Index defaults to the position in the frame.
	Index     *int      `yaml:"index"`
	ID        string    `yaml:"id"`
	Connected *bool     `yaml:"connected"`
	Buttons   []float64 `yaml:"buttons"`
	Axes      []float64 `yaml:"axes"`
}

// Source is a rawinput.Source returning one scripted frame per Snapshot.
type Source struct {
	mu     sync.Mutex
	frames []rawinput.Snapshot
	pos    int
	host   rawinput.Host
}

// Load reads a script from path.
func Load(path string) (*Source, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("replay: %w", err)
	}
	s, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("replay %s: %w", path, err)
	}
	return s, nil
}

// Parse builds a Source from script data.
func Parse(data []byte) (*Source, error) {
	var sc Script
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&sc); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	if len(sc.Frames) == 0 {
		return nil, errors.New("no frames")
	}

	s := &Source{host: rawinput.Host{Environment: Environment, Platform: util.Platform()}}
	if sc.Host != nil {
		s.host = *sc.Host
	}
	for i, f := range sc.Frames {
		snap, err := f.snapshot()
		if err != nil {
			return nil, fmt.Errorf("frame %d: %w", i, err)
		}
		for n := max(f.Repeat, 1); n > 0; n-- {
			s.frames = append(s.frames, snap)
		}
	}
	return s, nil
}

func (f Frame) snapshot() (rawinput.Snapshot, error) {
	var snap rawinput.Snapshot
	for pos, d := range f.Devices {
		idx := pos
		if d.Index != nil {
			idx = *d.Index
		}
		if idx < 0 {
			return nil, fmt.Errorf("device %q: negative index %d", d.ID, idx)
		}
		for len(snap) <= idx {
			snap = append(snap, nil)
		}
		if snap[idx] != nil {
			return nil, fmt.Errorf("device %q: index %d used twice", d.ID, idx)
		}
		raw := &rawinput.RawDevice{Index: idx, ID: d.ID, Connected: d.Connected == nil || *d.Connected}
		for _, v := range d.Buttons {
			if v < 0 || v > 1 {
				return nil, fmt.Errorf("device %q: button value %v out of range", d.ID, v)
			}
			raw.Buttons = append(raw.Buttons, rawinput.Button{Pressed: v == 1, Value: v})
		}
		for _, v := range d.Axes {
			raw.Axes = append(raw.Axes, min(1, max(-1, v)))
		}
		snap[idx] = raw
	}
	return snap, nil
}

// Snapshot returns the next frame.
func (s *Source) Snapshot() rawinput.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := s.frames[s.pos]
	if s.pos < len(s.frames)-1 {
		s.pos++
	}
	return snap.Clone()
}

// Remaining is the number of frames left before the last one is held.
func (s *Source) Remaining() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.frames) - 1 - s.pos
}

func (s *Source) Host() rawinput.Host { return s.host }

func (s *Source) Close() error { return nil }

var _ rawinput.Source = (*Source)(nil)

// Package source holds what the concrete input sources share: their
// configuration, stable device indices and joystick value conversion.
package source

import (
	"fmt"
	"math"
)

const (
	SourceSDL    = "sdl"
	SourceReplay = "replay"
)

// Config selects the input source of the engine.
type Config struct {
	Source     string `help:"Input source (sdl or replay)" enum:"sdl,replay" default:"sdl" env:"PADMAP_ENGINE_SOURCE"`
	ReplayFile string `help:"YAML file with scripted frames for the replay source" env:"PADMAP_ENGINE_REPLAY_FILE"`
}

// Hat bits as reported by SDL.
const (
	HatUp    uint8 = 0x01
	HatRight uint8 = 0x02
	HatDown  uint8 = 0x04
	HatLeft  uint8 = 0x08
)

// NormalizeAxis maps a raw joystick axis onto -1..1.
func NormalizeAxis(raw int16) float64 {
	return max(-1, float64(raw)/math.MaxInt16)
}

// HatAxes turns a hat into a synthetic x and y axis, each -1, 0 or 1.
// Up and left are negative.
func HatAxes(hat uint8) (x, y float64) {
	if hat&HatLeft != 0 {
		x--
	}
	if hat&HatRight != 0 {
		x++
	}
	if hat&HatUp != 0 {
		y--
	}
	if hat&HatDown != 0 {
		y++
	}
	return x, y
}

// DeviceID formats the identifier of a joystick. The vendor and product
// are what quirk detection matches on.
func DeviceID(name string, vendor, product uint16) string {
	return fmt.Sprintf("%s (Vendor: %04x Product: %04x)", name, vendor, product)
}

// Slots hands out snapshot indices to host device handles. An index stays
// with its device until it is removed, after which the lowest free index
// is reused.
type Slots[K comparable] struct {
	index map[K]int
	used  []bool
}

// Add returns the index of k, assigning one if k is new.
func (s *Slots[K]) Add(k K) int {
	if s.index == nil {
		s.index = make(map[K]int)
	}
	if i, ok := s.index[k]; ok {
		return i
	}
	i := 0
	for i < len(s.used) && s.used[i] {
		i++
	}
	if i == len(s.used) {
		s.used = append(s.used, true)
	} else {
		s.used[i] = true
	}
	s.index[k] = i
	return i
}

// Remove frees the index of k.
func (s *Slots[K]) Remove(k K) (int, bool) {
	i, ok := s.index[k]
	if !ok {
		return 0, false
	}
	delete(s.index, k)
	s.used[i] = false
	for n := len(s.used); n > 0 && !s.used[n-1]; n-- {
		s.used = s.used[:n-1]
	}
	return i, true
}

func (s *Slots[K]) Index(k K) (int, bool) {
	i, ok := s.index[k]
	return i, ok
}

// Len is one past the highest index in use.
func (s *Slots[K]) Len() int { return len(s.used) }

package semantic

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/Alia5/padmap/mapping"
)

const (
	// SampleCount is the number of samples a deadzone detection takes.
	SampleCount = 61
	// SampleInterval is the minimum time between two samples.
	SampleInterval = 50 * time.Millisecond
)

var (
	ErrInvalidDeadzone = errors.New("deadzone must be within 0..1")
	ErrSamplerCanceled = errors.New("deadzone sampling canceled")
)

// Deadzones are the per-stick magnitudes below which stick reads are zero.
// Both axes of a stick share one threshold.
type Deadzones struct {
	Left  float64 `json:"left" yaml:"left" toml:"left"`
	Right float64 `json:"right" yaml:"right" toml:"right"`
}

func (dz Deadzones) Validate() error {
	if dz.Left < 0 || dz.Left > 1 || dz.Right < 0 || dz.Right > 1 {
		return fmt.Errorf("%w: left=%v right=%v", ErrInvalidDeadzone, dz.Left, dz.Right)
	}
	return nil
}

func (d *Device) Deadzones() Deadzones { return d.dz }

func (d *Device) SetDeadzones(dz Deadzones) error {
	if err := dz.Validate(); err != nil {
		return err
	}
	d.dz = dz
	return nil
}

func applyDeadzone(v, dz float64) float64 {
	if math.Abs(v) < dz {
		return 0
	}
	return v
}

// ceilHundredths rounds up to two decimals. The epsilon keeps values that
// are already on a hundredth, like 0.05, from being bumped by float error.
func ceilHundredths(v float64) float64 {
	if v <= 0 {
		return 0
	}
	return math.Ceil(v*100-1e-9) / 100
}

// DeadzoneSampler measures the resting noise of both sticks of a device.
// It never blocks: Tick is called from the poll loop after the device was
// polled and takes a sample whenever SampleInterval has passed. The result
// becomes available through Done and Result.
type DeadzoneSampler struct {
	dev      *Device
	interval time.Duration
	count    int
	taken    int
	last     time.Time
	maxLeft  float64
	maxRight float64

	result Deadzones
	err    error
	done   chan struct{}
}

// NewDeadzoneSampler starts sampling dev. The first sample is taken one
// interval after now.
func NewDeadzoneSampler(dev *Device, now time.Time) *DeadzoneSampler {
	return &DeadzoneSampler{
		dev:      dev,
		interval: SampleInterval,
		count:    SampleCount,
		last:     now,
		done:     make(chan struct{}),
	}
}

// Device returns the device being sampled.
func (s *DeadzoneSampler) Device() *Device { return s.dev }

// Progress returns the number of samples taken and the total.
func (s *DeadzoneSampler) Progress() (taken, total int) { return s.taken, s.count }

// Tick takes a sample if due and reports whether sampling finished.
// Polls that did not find the device are not counted.
func (s *DeadzoneSampler) Tick(now time.Time) bool {
	if s.finished() {
		return true
	}
	if now.Sub(s.last) < s.interval {
		return false
	}
	s.last = now
	if !s.dev.Live() {
		return false
	}
	s.maxLeft = math.Max(s.maxLeft, math.Max(math.Abs(s.dev.Raw(mapping.Lx)), math.Abs(s.dev.Raw(mapping.Ly))))
	s.maxRight = math.Max(s.maxRight, math.Max(math.Abs(s.dev.Raw(mapping.Rx)), math.Abs(s.dev.Raw(mapping.Ry))))
	s.taken++
	if s.taken < s.count {
		return false
	}
	s.result = Deadzones{Left: ceilHundredths(s.maxLeft), Right: ceilHundredths(s.maxRight)}
	s.err = s.dev.SetDeadzones(s.result)
	close(s.done)
	return true
}

// Cancel stops sampling without touching the device.
func (s *DeadzoneSampler) Cancel() {
	if s.finished() {
		return
	}
	s.err = ErrSamplerCanceled
	close(s.done)
}

// Done is closed once a result or an error is available.
func (s *DeadzoneSampler) Done() <-chan struct{} { return s.done }

// Result returns the measured deadzones. It is only meaningful after Done
// was closed.
func (s *DeadzoneSampler) Result() (Deadzones, error) { return s.result, s.err }

func (s *DeadzoneSampler) finished() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}

package engine_test

import (
	"context"
	"log/slog"
	"runtime"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alia5/padmap/calibration"
	"github.com/Alia5/padmap/internal/engine"
	"github.com/Alia5/padmap/internal/store"
	th "github.com/Alia5/padmap/internal/testing"
	"github.com/Alia5/padmap/mapping"
	"github.com/Alia5/padmap/rawinput"
	"github.com/Alia5/padmap/registry"
	"github.com/Alia5/padmap/semantic"
)

const padID = "Generic USB Gamepad"

type sink struct {
	mu     sync.Mutex
	events []calibration.Event
	states map[int][]semantic.State
}

func newSink() *sink { return &sink{states: map[int][]semantic.State{}} }

func (s *sink) PublishEvent(ev calibration.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
}

func (s *sink) PublishState(slot int, st semantic.State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states[slot] = append(s.states[slot], st)
}

func (s *sink) eventTypes() []calibration.EventType {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []calibration.EventType
	for _, ev := range s.events {
		out = append(out, ev.Type)
	}
	return out
}

type harness struct {
	e    *engine.Engine
	src  *rawinput.Static
	st   *store.Memory
	sink *sink
	now  time.Time
	rest *rawinput.RawDevice
}

func newHarness(t *testing.T, data store.Data) *harness {
	t.Helper()
	h := &harness{
		src:  rawinput.NewStatic(rawinput.Host{Environment: "test", Platform: "LINUX"}),
		st:   store.NewMemory(data),
		sink: newSink(),
		now:  time.Unix(1000, 0),
		rest: th.Pad(0, padID, 16, 4),
	}
	h.src.Set(th.Snap(h.rest))
	e, err := engine.New(engine.Config{}, h.src, h.st, slog.Default(), nil, h.sink)
	require.NoError(t, err)
	h.e = e
	return h
}

func (h *harness) tick(d *rawinput.RawDevice) {
	h.src.Set(th.Snap(d))
	h.now = h.now.Add(semantic.SampleInterval)
	h.e.Tick(h.now)
}

func (h *harness) tap(b int) {
	h.tick(th.Press(h.rest, b))
	h.tick(h.rest)
}

func (h *harness) push(axis int, v float64) {
	h.tick(th.Move(h.rest, axis, v))
	h.tick(h.rest)
}

func (h *harness) calibrate(t *testing.T) {
	t.Helper()
	_, err := h.e.StartCalibration(0)
	require.NoError(t, err)
	for _, b := range []int{0, 1, 2, 3, 8, 9, 10, 11, 4, 5, 6, 7, 13, 12, 15, 14} {
		h.tap(b)
	}
	for axis, v := range []float64{-1, 1, 1, -1} {
		h.push(axis, v)
	}
}

func TestCalibrationFlow(t *testing.T) {
	h := newHarness(t, store.Data{})
	h.tick(h.rest)
	connected, mapped := h.e.Counts()
	assert.Equal(t, 1, connected)
	assert.Equal(t, 0, mapped)
	assert.Empty(t, h.e.Devices())

	st, err := h.e.StartCalibration(0)
	require.NoError(t, err)
	assert.Equal(t, calibration.PhaseButtons, st.Phase)
	assert.Equal(t, "a", st.Control)
	_, err = h.e.StartCalibration(0)
	assert.ErrorIs(t, err, engine.ErrSessionActive)

	_, err = h.e.CancelCalibration()
	require.NoError(t, err)

	h.calibrate(t)

	assert.True(t, h.e.HasMapping(padID))
	assert.Equal(t, 1, h.st.Saves())
	data, err := h.st.Load()
	require.NoError(t, err)
	ms, _, err := data.Decode()
	require.NoError(t, err)
	require.Len(t, ms, 1)
	assert.Equal(t, 13, ms[0].Slot(mapping.DpadDown))

	h.tick(h.rest)
	devs := h.e.Devices()
	require.Len(t, devs, 1)
	assert.Equal(t, engine.DeviceInfo{Slot: 0, Index: 0, ID: padID, Live: true}, devs[0])

	status, active := h.e.CalibrationStatus()
	assert.False(t, active)
	assert.True(t, status.Done)

	types := h.sink.eventTypes()
	assert.Equal(t, calibration.EventPrompt, types[0])
	assert.Equal(t, calibration.EventCanceled, types[1])
	assert.Equal(t, calibration.EventComplete, types[len(types)-1])

	h.tick(th.Press(h.rest, 1))
	state, err := h.e.DeviceState(0)
	require.NoError(t, err)
	assert.Equal(t, 1.0, state.Value(mapping.B))
	h.sink.mu.Lock()
	published := h.sink.states[0]
	h.sink.mu.Unlock()
	require.NotEmpty(t, published)
	assert.Equal(t, 1.0, published[len(published)-1].Value(mapping.B))

	connected, mapped = h.e.Counts()
	assert.Equal(t, 1, connected)
	assert.Equal(t, 1, mapped)
}

func TestStatesOnlyOnChange(t *testing.T) {
	h := newHarness(t, store.Data{})
	h.calibrate(t)
	h.tick(h.rest)
	h.sink.mu.Lock()
	n := len(h.sink.states[0])
	h.sink.mu.Unlock()

	h.tick(h.rest)
	h.tick(h.rest)
	h.sink.mu.Lock()
	assert.Len(t, h.sink.states[0], n)
	h.sink.mu.Unlock()
}

func TestLoadSkipsCorrupt(t *testing.T) {
	m := mapping.New(padID)
	for _, c := range mapping.Controls() {
		require.NoError(t, m.Assign(c, int(c)))
	}
	require.NoError(t, m.Finalize())
	data := store.NewData([]*mapping.Mapping{m}, map[string]semantic.Deadzones{padID: {Left: 0.1}})
	data.Mappings = "1|2|oops" + mapping.RecordSeparator + data.Mappings

	h := newHarness(t, data)
	assert.True(t, h.e.HasMapping(padID))
	h.tick(h.rest)
	devs := h.e.Devices()
	require.Len(t, devs, 1)
	assert.Equal(t, 0.1, devs[0].Deadzones.Left)
}

func TestNewerStoreIsNotOverwritten(t *testing.T) {
	m := mapping.New("Pad A")
	for _, c := range mapping.Controls() {
		require.NoError(t, m.Assign(c, int(c)))
	}
	require.NoError(t, m.Finalize())
	data := store.NewData([]*mapping.Mapping{m}, nil)
	data.Version = store.Version + 1
	st := store.NewMemory(data)

	src := rawinput.NewStatic(rawinput.Host{Environment: "test", Platform: "LINUX"})
	_, err := engine.New(engine.Config{}, src, st, slog.Default(), nil)
	assert.ErrorIs(t, err, store.ErrNewerVersion)
	assert.Equal(t, 0, st.Saves())

	got, err := st.Load()
	require.NoError(t, err)
	assert.Equal(t, data, got)
}

func TestDetectDeadzones(t *testing.T) {
	h := newHarness(t, store.Data{})
	h.calibrate(t)
	saves := h.st.Saves()

	type result struct {
		dz  semantic.Deadzones
		err error
	}
	res := make(chan result, 1)
	go func() {
		dz, err := h.e.DetectDeadzones(context.Background(), 0)
		res <- result{dz, err}
	}()

	noisy := th.Move(th.Move(h.rest, 1, 0.031), 2, -0.07)
	var got result
loop:
	for i := 0; i < 100000; i++ {
		h.tick(noisy)
		select {
		case got = <-res:
			break loop
		default:
			runtime.Gosched()
		}
	}
	require.NoError(t, got.err)
	assert.Equal(t, semantic.Deadzones{Left: 0.04, Right: 0.07}, got.dz)
	assert.Equal(t, saves+1, h.st.Saves())
	assert.Equal(t, got.dz, h.e.Devices()[0].Deadzones)

	_, err := h.e.DetectDeadzones(context.Background(), 3)
	assert.ErrorIs(t, err, registry.ErrSlotEmpty)
}

func TestDetectDeadzonesCanceled(t *testing.T) {
	h := newHarness(t, store.Data{})
	h.calibrate(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := h.e.DetectDeadzones(ctx, 0)
	assert.ErrorIs(t, err, context.Canceled)

	_, err = h.e.DetectDeadzones(ctx, 0)
	assert.ErrorIs(t, err, context.Canceled, "a canceled sampler must not block the slot")
}

func TestDetectDeadzonesStopsWhenDeviceLeaves(t *testing.T) {
	tests := []struct {
		name  string
		leave func(t *testing.T, h *harness)
	}{
		{
			name: "mapping removed",
			leave: func(t *testing.T, h *harness) {
				ok, err := h.e.RemoveMapping(padID)
				require.NoError(t, err)
				require.True(t, ok)
			},
		},
		{
			name:  "recalibrated",
			leave: func(t *testing.T, h *harness) { h.calibrate(t) },
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, store.Data{})
			h.calibrate(t)

			res := make(chan error, 1)
			go func() {
				_, err := h.e.DetectDeadzones(context.Background(), 0)
				res <- err
			}()
			require.Eventually(t, func() bool { return h.e.DetectingDeadzones(0) }, time.Second, time.Millisecond)

			noisy := th.Move(h.rest, 0, 0.3)
			for i := 0; i < 5; i++ {
				h.tick(noisy)
			}
			tt.leave(t, h)

			select {
			case err := <-res:
				assert.ErrorIs(t, err, semantic.ErrSamplerCanceled)
			case <-time.After(2 * time.Second):
				t.Fatal("detection still running")
			}
			assert.False(t, h.e.DetectingDeadzones(0))

			// another controller takes the slot and rests at zero
			h.rest = th.Pad(0, "Pad B", 16, 4)
			h.calibrate(t)
			for i := 0; i < semantic.SampleCount; i++ {
				h.tick(h.rest)
			}
			devs := h.e.Devices()
			require.NotEmpty(t, devs)
			for _, d := range devs {
				assert.Equal(t, semantic.Deadzones{}, d.Deadzones, d.ID)
			}
			data, err := h.st.Load()
			require.NoError(t, err)
			assert.Empty(t, data.Deadzones)
		})
	}
}

func TestDetachPublishesOfflineState(t *testing.T) {
	h := newHarness(t, store.Data{})
	h.calibrate(t)
	h.tick(h.rest)

	_, err := h.e.RemoveMapping(padID)
	require.NoError(t, err)

	h.sink.mu.Lock()
	published := h.sink.states[0]
	h.sink.mu.Unlock()
	require.NotEmpty(t, published)
	last := published[len(published)-1]
	assert.False(t, last.Live)
	assert.Equal(t, padID, last.ID)

	// unplugging publishes the same
	h.rest = th.Pad(0, "Pad B", 16, 4)
	h.calibrate(t)
	h.tick(h.rest)
	h.src.Set(th.Snap())
	h.now = h.now.Add(semantic.SampleInterval)
	h.e.Tick(h.now)
	h.sink.mu.Lock()
	published = h.sink.states[0]
	h.sink.mu.Unlock()
	last = published[len(published)-1]
	assert.False(t, last.Live)
	assert.Equal(t, "Pad B", last.ID)
}

func TestSetDeadzonesAndRemove(t *testing.T) {
	h := newHarness(t, store.Data{})
	h.calibrate(t)

	require.NoError(t, h.e.SetDeadzones(0, semantic.Deadzones{Left: 0.2, Right: 0.3}))
	assert.ErrorIs(t, h.e.SetDeadzones(0, semantic.Deadzones{Left: -1}), semantic.ErrInvalidDeadzone)
	assert.ErrorIs(t, h.e.SetDeadzones(2, semantic.Deadzones{}), registry.ErrSlotEmpty)

	data, err := h.st.Load()
	require.NoError(t, err)
	assert.Equal(t, []store.Deadzone{{ID: padID, Left: 0.2, Right: 0.3}}, data.Deadzones)

	ok, err := h.e.RemoveMapping(padID)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = h.e.RemoveMapping(padID)
	require.NoError(t, err)
	assert.False(t, ok)
	h.tick(h.rest)
	assert.Empty(t, h.e.Devices())
	assert.Empty(t, h.e.Mappings())
}

func TestCancelCalibration(t *testing.T) {
	h := newHarness(t, store.Data{})
	_, err := h.e.CancelCalibration()
	assert.ErrorIs(t, err, engine.ErrNoSession)

	_, err = h.e.StartCalibration(5)
	assert.ErrorIs(t, err, calibration.ErrNoDevice)

	_, err = h.e.StartCalibration(0)
	require.NoError(t, err)
	h.tap(0)
	st, err := h.e.CancelCalibration()
	require.NoError(t, err)
	assert.True(t, st.Canceled)
	assert.False(t, h.e.HasMapping(padID))
	assert.Equal(t, 0, h.st.Saves())
}

func TestRunStopsOnCancel(t *testing.T) {
	h := newHarness(t, store.Data{})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- h.e.Run(ctx) }()
	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("engine did not stop")
	}
}

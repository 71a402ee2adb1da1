package semantic_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	th "github.com/Alia5/padmap/internal/testing"
	"github.com/Alia5/padmap/mapping"
	"github.com/Alia5/padmap/semantic"
)

const padID = "Generic USB Gamepad"

// digitalMapping maps control c to raw index c; sticks use axes 0-3.
func digitalMapping(t *testing.T, id string, q mapping.Quirks) *mapping.Mapping {
	t.Helper()
	m := mapping.New(id)
	require.NoError(t, m.SetQuirks(q))
	for _, c := range mapping.Controls() {
		idx := int(c)
		if c.IsStick() {
			idx = int(c - mapping.Lx)
		}
		require.NoError(t, m.Assign(c, idx))
	}
	require.NoError(t, m.Finalize())
	return m
}

func TestNewRejectsIncompleteMapping(t *testing.T) {
	_, err := semantic.New(0, mapping.New(padID))
	assert.ErrorIs(t, err, mapping.ErrIncomplete)
	_, err = semantic.New(0, nil)
	assert.ErrorIs(t, err, mapping.ErrIncomplete)
}

func TestCopyOnConstruct(t *testing.T) {
	m := digitalMapping(t, padID, mapping.Quirks{})
	stored := m.Clone()

	d, err := semantic.New(0, m)
	require.NoError(t, err)
	got := d.Mapping()
	got2 := d.Mapping()
	assert.Equal(t, stored, got)
	assert.NotSame(t, got, got2)

	d2, err := semantic.New(0, m)
	require.NoError(t, err)
	d2.Poll(th.Snap(th.Pad(0, padID, 16, 4)), time.Now())
	assert.True(t, m.Equal(stored))
}

func TestHeldTics(t *testing.T) {
	d, err := semantic.New(0, digitalMapping(t, padID, mapping.Quirks{}))
	require.NoError(t, err)

	rest := th.Pad(0, padID, 16, 4)
	pressed := th.Press(rest, int(mapping.A))
	t0 := time.Unix(1000, 0)

	for i := 0; i < 5; i++ {
		require.True(t, d.Poll(th.Snap(pressed), t0.Add(time.Duration(i)*16*time.Millisecond)))
	}
	assert.Equal(t, 4, d.HeldTics(mapping.A))
	assert.Equal(t, 64*time.Millisecond, d.HeldTime(mapping.A))
	assert.Equal(t, 1.0, d.Value(mapping.A))
	assert.Equal(t, 1.0, d.Prev(mapping.A))
	assert.False(t, d.JustPressed(mapping.A))

	d.Poll(th.Snap(rest), t0.Add(80*time.Millisecond))
	assert.Equal(t, 0, d.HeldTics(mapping.A))
	assert.Equal(t, time.Duration(0), d.HeldTime(mapping.A))
	assert.Equal(t, 0.0, d.Value(mapping.A))
	assert.Equal(t, 1.0, d.Prev(mapping.A))

	d.Poll(th.Snap(pressed), t0.Add(96*time.Millisecond))
	assert.True(t, d.JustPressed(mapping.A))
	assert.Equal(t, 0, d.HeldTics(mapping.A))
}

func TestAnalogButtonValue(t *testing.T) {
	d, err := semantic.New(0, digitalMapping(t, padID, mapping.Quirks{}))
	require.NoError(t, err)
	rest := th.Pad(0, padID, 16, 4)
	now := time.Unix(0, 0)

	d.Poll(th.Snap(th.Analog(rest, int(mapping.L2), 0.3)), now)
	assert.Equal(t, 0.3, d.Value(mapping.L2))
	d.Poll(th.Snap(th.Analog(rest, int(mapping.L2), 0.3)), now.Add(time.Millisecond))
	assert.Equal(t, 1, d.HeldTics(mapping.L2))
	d.Poll(th.Snap(th.Analog(rest, int(mapping.L2), 0.5)), now.Add(2*time.Millisecond))
	assert.Equal(t, 0, d.HeldTics(mapping.L2))
	assert.Equal(t, 0.3, d.Prev(mapping.L2))
}

func TestRudderShoulders(t *testing.T) {
	m := mapping.New(padID)
	require.NoError(t, m.SetQuirks(mapping.Quirks{RudderShoulders: true}))
	for _, c := range mapping.Controls() {
		require.NoError(t, m.Assign(c, int(c)))
	}
	require.NoError(t, m.Assign(mapping.L2, 4))
	require.NoError(t, m.Assign(mapping.R2, 5))
	require.NoError(t, m.Assign(mapping.Lx, 0))
	require.NoError(t, m.Assign(mapping.Ly, 1))
	require.NoError(t, m.Assign(mapping.Rx, 2))
	require.NoError(t, m.Assign(mapping.Ry, 3))
	require.NoError(t, m.Finalize())

	d, err := semantic.New(0, m)
	require.NoError(t, err)
	rest := th.Pad(0, padID, 16, 6)
	rest.Axes[4], rest.Axes[5] = -1, -1
	now := time.Unix(0, 0)

	d.Poll(th.Snap(rest), now)
	assert.Equal(t, 0.0, d.Value(mapping.L2))
	d.Poll(th.Snap(th.Move(rest, 4, 0)), now.Add(time.Millisecond))
	assert.Equal(t, 0.5, d.Value(mapping.L2))
	d.Poll(th.Snap(th.Move(rest, 4, 0)), now.Add(2*time.Millisecond))
	assert.Equal(t, 1, d.HeldTics(mapping.L2))
	d.Poll(th.Snap(th.Move(rest, 5, 1)), now.Add(3*time.Millisecond))
	assert.Equal(t, 1.0, d.Value(mapping.R2))
	assert.Equal(t, 0.0, d.Value(mapping.L2))
}

func TestDigitalDpad(t *testing.T) {
	d, err := semantic.New(0, digitalMapping(t, padID, mapping.Quirks{}))
	require.NoError(t, err)
	rest := th.Pad(0, padID, 16, 4)
	up, down := int(mapping.DpadUp), int(mapping.DpadDown)
	left, right := int(mapping.DpadLeft), int(mapping.DpadRight)

	tests := []struct {
		name    string
		pressed []int
		x, y    int
	}{
		{name: "idle"},
		{name: "up", pressed: []int{up}, y: -1},
		{name: "down", pressed: []int{down}, y: 1},
		{name: "up and down", pressed: []int{up, down}, y: 0},
		{name: "left", pressed: []int{left}, x: -1},
		{name: "left and right", pressed: []int{left, right}, x: 0},
		{name: "down right", pressed: []int{down, right}, x: 1, y: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d.Poll(th.Snap(th.Press(rest, tt.pressed...)), time.Now())
			x, y := d.Dpad()
			assert.Equal(t, tt.x, x)
			assert.Equal(t, tt.y, y)
		})
	}
}

func TestDpadHeld(t *testing.T) {
	d, err := semantic.New(0, digitalMapping(t, padID, mapping.Quirks{}))
	require.NoError(t, err)
	rest := th.Pad(0, padID, 16, 4)
	now := time.Unix(0, 0)
	for i := 0; i < 3; i++ {
		d.Poll(th.Snap(th.Press(rest, int(mapping.DpadRight))), now.Add(time.Duration(i)*time.Second))
	}
	tx, ty := d.DpadHeldTics()
	assert.Equal(t, 2, tx)
	assert.Equal(t, 0, ty)
	hx, _ := d.DpadHeldTime()
	assert.Equal(t, 2*time.Second, hx)
	px, _ := d.DpadPrev()
	assert.Equal(t, 1, px)
}

func TestAxisDpad(t *testing.T) {
	m := mapping.New(padID)
	require.NoError(t, m.SetQuirks(mapping.Quirks{AxisDpad: true}))
	for _, c := range mapping.Controls() {
		require.NoError(t, m.Assign(c, int(c)))
	}
	require.NoError(t, m.Assign(mapping.DpadDown, 7))
	require.NoError(t, m.Assign(mapping.DpadUp, 7))
	require.NoError(t, m.Assign(mapping.DpadRight, 6))
	require.NoError(t, m.Assign(mapping.DpadLeft, 6))
	for i, c := range []mapping.Control{mapping.Lx, mapping.Ly, mapping.Rx, mapping.Ry} {
		require.NoError(t, m.Assign(c, i))
	}
	require.NoError(t, m.Finalize())

	d, err := semantic.New(0, m)
	require.NoError(t, err)
	rest := th.Pad(0, padID, 16, 8)

	d.Poll(th.Snap(th.Move(th.Move(rest, 6, -1), 7, 1)), time.Now())
	x, y := d.Dpad()
	assert.Equal(t, -1, x)
	assert.Equal(t, 1, y)
	assert.True(t, d.Pressed(mapping.DpadLeft))
	assert.True(t, d.Pressed(mapping.DpadDown))
	assert.False(t, d.Pressed(mapping.DpadUp))
	assert.False(t, d.Pressed(mapping.DpadRight))
}

func TestSingleAxisDpadDevice(t *testing.T) {
	m := mapping.New(padID)
	require.NoError(t, m.SetQuirks(mapping.Quirks{AxisDpad: true, SingleAxisDpadHack: true}))
	for _, c := range mapping.Controls() {
		require.NoError(t, m.Assign(c, int(c)))
	}
	for _, c := range []mapping.Control{mapping.DpadUp, mapping.DpadDown, mapping.DpadLeft, mapping.DpadRight} {
		require.NoError(t, m.Assign(c, 9))
	}
	for i, c := range []mapping.Control{mapping.Lx, mapping.Ly, mapping.Rx, mapping.Ry} {
		require.NoError(t, m.Assign(c, i))
	}
	require.NoError(t, m.Finalize())

	d, err := semantic.New(0, m)
	require.NoError(t, err)
	rest := th.Pad(0, padID, 16, 10)

	d.Poll(th.Snap(th.Move(rest, 9, 0.3)), time.Now())
	x, y := d.Dpad()
	assert.Equal(t, 0, x)
	assert.Equal(t, 1, y)
	assert.True(t, d.Pressed(mapping.DpadDown))
	assert.False(t, d.Pressed(mapping.DpadLeft))
}

func TestDecodeSingleAxis(t *testing.T) {
	tests := []struct {
		v    float64
		x, y int
	}{
		{v: -1, x: 0, y: -1},
		{v: -0.72, x: 0, y: -1},
		{v: -0.5, x: 1, y: -1},
		{v: -0.2, x: 1, y: 0},
		{v: 0.0, x: 1, y: 1},
		{v: 0.3, x: 0, y: 1},
		{v: 0.6, x: -1, y: 1},
		{v: 0.9, x: -1, y: 0},
		{v: 1, x: -1, y: -1},
		{v: 1.2, x: 0, y: 0},
		{v: -1.3, x: 0, y: 0},
	}
	for _, tt := range tests {
		x, y := semantic.DecodeSingleAxis(tt.v)
		assert.Equal(t, [2]int{tt.x, tt.y}, [2]int{x, y}, "v=%v", tt.v)
	}
}

func TestStickDeadzone(t *testing.T) {
	d, err := semantic.New(0, digitalMapping(t, padID, mapping.Quirks{}))
	require.NoError(t, err)
	require.NoError(t, d.SetDeadzones(semantic.Deadzones{Left: 0.05, Right: 0.2}))
	rest := th.Pad(0, padID, 16, 4)

	d.Poll(th.Snap(th.Move(rest, 0, 0.04)), time.Now())
	assert.Equal(t, 0.0, d.Value(mapping.Lx))
	assert.Equal(t, 0.04, d.Raw(mapping.Lx))

	d.Poll(th.Snap(th.Move(th.Move(rest, 0, 0.06), 3, -0.15)), time.Now())
	assert.Equal(t, 0.06, d.Value(mapping.Lx))
	assert.Equal(t, 0.0, d.Value(mapping.Ry))
	assert.Equal(t, 0.0, d.Prev(mapping.Lx))

	assert.ErrorIs(t, d.SetDeadzones(semantic.Deadzones{Left: 1.5}), semantic.ErrInvalidDeadzone)
	assert.Equal(t, semantic.Deadzones{Left: 0.05, Right: 0.2}, d.Deadzones())
}

func TestPollMissingDevice(t *testing.T) {
	d, err := semantic.New(1, digitalMapping(t, padID, mapping.Quirks{}))
	require.NoError(t, err)
	rest := th.Pad(1, padID, 16, 4)
	d.Poll(th.Snap(th.Press(rest, 0)), time.Now())
	require.True(t, d.Live())

	assert.False(t, d.Poll(th.Snap(th.Pad(0, padID, 16, 4)), time.Now()))
	assert.False(t, d.Poll(th.Snap(th.Pad(1, "Other", 16, 4)), time.Now()))
	assert.False(t, d.Live())
	assert.Equal(t, 1.0, d.Value(mapping.A))
}

func TestState(t *testing.T) {
	d, err := semantic.New(0, digitalMapping(t, padID, mapping.Quirks{}))
	require.NoError(t, err)
	rest := th.Pad(0, padID, 16, 4)
	d.Poll(th.Snap(th.Press(rest, int(mapping.B), int(mapping.DpadUp))), time.Now())

	st := d.State()
	assert.Equal(t, padID, st.ID)
	assert.Equal(t, 1.0, st.Value(mapping.B))
	assert.Equal(t, -1, st.DpadY)
	assert.Len(t, st.Controls, mapping.NumControls)
	assert.False(t, st.Changed(d.State()))

	d.Poll(th.Snap(rest), time.Now())
	assert.True(t, st.Changed(d.State()))
}

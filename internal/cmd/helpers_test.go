package cmd

import (
	"bytes"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	cmdTest "github.com/Alia5/padmap/internal/testing"
	"github.com/Alia5/padmap/mapping"
	"github.com/Alia5/padmap/rawinput"
)

const padID = "Generic USB Gamepad"

func rest() *rawinput.RawDevice { return cmdTest.Pad(0, padID, 16, 4) }

func calibrated(t *testing.T, env *cmdTest.Env) {
	t.Helper()
	env.Tick(cmdTest.Snap(rest()))
	_, err := env.Engine.StartCalibration(0)
	require.NoError(t, err)
	cmdTest.Calibrate(rest(), env.Tick)
	require.True(t, env.Engine.HasMapping(padID))
	env.Tick(cmdTest.Snap(rest()))
}

func complete(t *testing.T, id string, q mapping.Quirks) *mapping.Mapping {
	t.Helper()
	m := mapping.New(id)
	for _, c := range mapping.Controls() {
		idx := int(c)
		if c.IsStick() {
			idx = int(c - mapping.Lx)
		}
		require.NoError(t, m.Assign(c, idx))
	}
	require.NoError(t, m.SetQuirks(q))
	require.NoError(t, m.Finalize())
	return m
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

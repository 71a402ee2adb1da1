package cmd

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alia5/padmap/calibration"
	"github.com/Alia5/padmap/internal/store"
	cmdTest "github.com/Alia5/padmap/internal/testing"
)

func startInteractive(t *testing.T, ctx context.Context, env *cmdTest.Env, keys io.Reader, out io.Writer) <-chan error {
	t.Helper()
	errCh := make(chan error, 1)
	go func() { errCh <- CalibrateInteractive(ctx, env.Engine, 0, 0, keys, out) }()
	return errCh
}

func waitResult(t *testing.T, errCh <-chan error) error {
	t.Helper()
	select {
	case err := <-errCh:
		return err
	case <-time.After(2 * time.Second):
		t.Fatal("calibration did not finish")
		return nil
	}
}

func TestCalibrateInteractive(t *testing.T) {
	env := cmdTest.NewEnv(t, store.Data{})
	env.Tick(cmdTest.Snap(rest()))

	keys, keysW := io.Pipe()
	defer keysW.Close()
	var out syncBuffer
	errCh := startInteractive(t, context.Background(), env, keys, &out)

	require.Eventually(t, func() bool {
		_, active := env.Engine.CalibrationStatus()
		return active
	}, time.Second, 5*time.Millisecond)
	cmdTest.Calibrate(rest(), env.Tick)

	require.NoError(t, waitResult(t, errCh))
	assert.Contains(t, out.String(), "[buttons 1] Press the (A) button on your controller.\r\n")
	assert.Contains(t, out.String(), "Calibration of Generic USB Gamepad complete.")
	assert.True(t, env.Engine.HasMapping(padID))
	assert.Equal(t, 1, env.Store.Saves())
}

func TestCalibrateInteractiveAbort(t *testing.T) {
	tests := []struct {
		name string
		keys string
	}{
		{name: "q", keys: "xq"},
		{name: "escape", keys: "\x1b"},
		{name: "ctrl-c", keys: "\x03"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := cmdTest.NewEnv(t, store.Data{})
			env.Tick(cmdTest.Snap(rest()))

			var out syncBuffer
			err := waitResult(t, startInteractive(t, context.Background(), env, strings.NewReader(tt.keys), &out))
			assert.ErrorIs(t, err, ErrCalibrationCanceled)
			assert.Contains(t, out.String(), "Calibration canceled, nothing was stored.")
			assert.False(t, env.Engine.HasMapping(padID))
			assert.Zero(t, env.Store.Saves())
		})
	}
}

func TestCalibrateInteractiveContext(t *testing.T) {
	env := cmdTest.NewEnv(t, store.Data{})
	env.Tick(cmdTest.Snap(rest()))

	ctx, cancel := context.WithCancel(context.Background())
	keys, keysW := io.Pipe()
	defer keysW.Close()
	var out syncBuffer
	errCh := startInteractive(t, ctx, env, keys, &out)
	require.Eventually(t, func() bool {
		_, active := env.Engine.CalibrationStatus()
		return active
	}, time.Second, 5*time.Millisecond)

	cancel()
	assert.ErrorIs(t, waitResult(t, errCh), context.Canceled)
	st, active := env.Engine.CalibrationStatus()
	assert.False(t, active)
	assert.True(t, st.Canceled)
}

func TestCalibrateInteractiveNoDevice(t *testing.T) {
	env := cmdTest.NewEnv(t, store.Data{})
	err := CalibrateInteractive(context.Background(), env.Engine, 0, 0, strings.NewReader(""), io.Discard)
	assert.ErrorIs(t, err, calibration.ErrNoDevice)
}

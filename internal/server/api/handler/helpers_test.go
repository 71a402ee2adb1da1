package handler_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	handlerTest "github.com/Alia5/padmap/internal/testing"
	"github.com/Alia5/padmap/rawinput"
)

const padID = "Generic USB Gamepad"

func rest() *rawinput.RawDevice { return handlerTest.Pad(0, padID, 16, 4) }

// calibrated connects a pad at index 0, calibrates it and leaves it bound
// to slot 0.
func calibrated(t *testing.T, env *handlerTest.Env) {
	t.Helper()
	env.Tick(handlerTest.Snap(rest()))
	_, err := env.Engine.StartCalibration(0)
	require.NoError(t, err)
	handlerTest.Calibrate(rest(), env.Tick)
	require.True(t, env.Engine.HasMapping(padID))
	env.Tick(handlerTest.Snap(rest()))
}

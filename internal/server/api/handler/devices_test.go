package handler_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Alia5/padmap/apiclient"
	"github.com/Alia5/padmap/internal/engine"
	"github.com/Alia5/padmap/internal/server/api"
	"github.com/Alia5/padmap/internal/server/api/handler"
	handlerTest "github.com/Alia5/padmap/internal/testing"
)

func TestDevices(t *testing.T) {
	tests := []struct {
		name             string
		setup            func(t *testing.T, env *handlerTest.Env)
		path             string
		pathParams       map[string]string
		expectedResponse string
	}{
		{
			name:             "list empty",
			path:             "devices/list",
			expectedResponse: `{"devices":[]}`,
		},
		{
			name:             "list calibrated",
			setup:            calibrated,
			path:             "devices/list",
			expectedResponse: `{"devices":[{"slot":0,"index":0,"id":"Generic USB Gamepad","live":true,"deadzones":{"left":0,"right":0}}]}`,
		},
		{
			name: "count unmapped",
			setup: func(t *testing.T, env *handlerTest.Env) {
				env.Tick(handlerTest.Snap(rest(), handlerTest.Pad(2, "Other Pad", 12, 2)))
			},
			path:             "devices/count",
			expectedResponse: `{"connected":2,"mapped":0}`,
		},
		{
			name: "count mapped",
			setup: func(t *testing.T, env *handlerTest.Env) {
				calibrated(t, env)
				env.Tick(handlerTest.Snap(rest(), handlerTest.Pad(2, "Other Pad", 12, 2)))
			},
			path:             "devices/count",
			expectedResponse: `{"connected":2,"mapped":1}`,
		},
		{
			name: "state",
			setup: func(t *testing.T, env *handlerTest.Env) {
				calibrated(t, env)
				env.Tick(handlerTest.Snap(handlerTest.Press(rest(), 13)))
			},
			path:       "devices/{slot}/state",
			pathParams: map[string]string{"slot": "0"},
			expectedResponse: `{"slot":0,"index":0,"id":"Generic USB Gamepad","live":true,"dpadX":0,"dpadY":1,
				"deadzones":{"left":0,"right":0},
				"controls":{
					"a":{"value":0,"prev":0,"heldTics":0,"heldTime":0},
					"b":{"value":0,"prev":0,"heldTics":0,"heldTime":0},
					"x":{"value":0,"prev":0,"heldTics":0,"heldTime":0},
					"y":{"value":0,"prev":0,"heldTics":0,"heldTime":0},
					"select":{"value":0,"prev":0,"heldTics":0,"heldTime":0},
					"start":{"value":0,"prev":0,"heldTics":0,"heldTime":0},
					"l1":{"value":0,"prev":0,"heldTics":0,"heldTime":0},
					"r1":{"value":0,"prev":0,"heldTics":0,"heldTime":0},
					"l2":{"value":0,"prev":0,"heldTics":0,"heldTime":0},
					"r2":{"value":0,"prev":0,"heldTics":0,"heldTime":0},
					"l3":{"value":0,"prev":0,"heldTics":0,"heldTime":0},
					"r3":{"value":0,"prev":0,"heldTics":0,"heldTime":0},
					"dpadUp":{"value":0,"prev":0,"heldTics":0,"heldTime":0},
					"dpadDown":{"value":1,"prev":0,"heldTics":0,"heldTime":0},
					"dpadLeft":{"value":0,"prev":0,"heldTics":0,"heldTime":0},
					"dpadRight":{"value":0,"prev":0,"heldTics":0,"heldTime":0},
					"lx":{"value":0,"prev":0,"heldTics":0,"heldTime":0},
					"ly":{"value":0,"prev":0,"heldTics":0,"heldTime":0},
					"rx":{"value":0,"prev":0,"heldTics":0,"heldTime":0},
					"ry":{"value":0,"prev":0,"heldTics":0,"heldTime":0}
				}}`,
		},
		{
			name:             "state empty slot",
			path:             "devices/{slot}/state",
			pathParams:       map[string]string{"slot": "1"},
			expectedResponse: `{"status":404,"title":"Not Found","detail":"slot 1: slot is empty"}`,
		},
		{
			name:             "state slot out of range",
			path:             "devices/{slot}/state",
			pathParams:       map[string]string{"slot": "9"},
			expectedResponse: `{"status":400,"title":"Bad Request","detail":"slot 9: slot out of range"}`,
		},
		{
			name:             "state invalid slot",
			path:             "devices/{slot}/state",
			pathParams:       map[string]string{"slot": "abc"},
			expectedResponse: `{"status":400,"title":"Bad Request","detail":"invalid slot: strconv.Atoi: parsing \"abc\": invalid syntax"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			addr, env, done := handlerTest.StartAPIServer(t, func(r *api.Router, e *engine.Engine, apiSrv *api.Server) {
				r.Register("devices/list", handler.DevicesList(e))
				r.Register("devices/count", handler.DevicesCount(e))
				r.Register("devices/{slot}/state", handler.DeviceState(e))
			})
			defer done()

			if tt.setup != nil {
				tt.setup(t, env)
			}
			c := apiclient.NewTransport(addr)
			line, err := c.Do(tt.path, nil, tt.pathParams)
			assert.NoError(t, err)
			assert.JSONEq(t, tt.expectedResponse, line)
		})
	}
}

package hub_test

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alia5/padmap/calibration"
	"github.com/Alia5/padmap/internal/hub"
	"github.com/Alia5/padmap/mapping"
	"github.com/Alia5/padmap/semantic"
)

func startHub(t *testing.T) (*hub.Hub, string) {
	t.Helper()
	h := hub.NewHub(slog.Default())
	ctx, cancel := context.WithCancel(context.Background())
	go h.Run(ctx)
	srv := httptest.NewServer(hub.Handler(h))
	t.Cleanup(func() {
		cancel()
		srv.Close()
	})
	return h, "ws" + strings.TrimPrefix(srv.URL, "http")
}

func dial(t *testing.T, h *hub.Hub, url string) *websocket.Conn {
	t.Helper()
	before := h.Count()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	require.Eventually(t, func() bool { return h.Count() == before+1 }, time.Second, 5*time.Millisecond)
	return conn
}

func read(t *testing.T, conn *websocket.Conn) hub.Message {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg hub.Message
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func state(slot int, v float64) semantic.State {
	return semantic.State{
		Slot:     slot,
		ID:       "pad",
		Live:     true,
		Controls: map[string]semantic.ControlState{"a": {Value: v}},
	}
}

func TestBroadcast(t *testing.T) {
	h, url := startHub(t)
	conn := dial(t, h, url)

	h.PublishEvent(calibration.Event{Type: calibration.EventPrompt, DeviceID: "pad", Control: "a", Highlight: "face-bottom"})
	msg := read(t, conn)
	assert.Equal(t, hub.TypeCalibration, msg.Type)
	require.NotNil(t, msg.Event)
	assert.Equal(t, calibration.EventPrompt, msg.Event.Type)
	assert.Equal(t, "face-bottom", msg.Event.Highlight)

	h.PublishState(1, state(1, 1))
	msg = read(t, conn)
	assert.Equal(t, hub.TypeState, msg.Type)
	require.NotNil(t, msg.Slot)
	assert.Equal(t, 1, *msg.Slot)
	require.NotNil(t, msg.State)
	assert.Equal(t, 1.0, msg.State.Value(mapping.A))
}

func TestSelectFiltersStates(t *testing.T) {
	tests := []struct {
		name     string
		selected string
		expected []int
	}{
		{name: "single slot", selected: `{"type":"select","slot":2}`, expected: []int{2}},
		{name: "all slots", selected: `{"type":"select"}`, expected: []int{0, 2}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, url := startHub(t)
			conn := dial(t, h, url)

			require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(tt.selected)))
			ack := read(t, conn)
			assert.Equal(t, hub.TypeSelected, ack.Type)

			h.PublishState(0, state(0, 1))
			h.PublishState(2, state(2, 1))
			// events are never filtered and mark the end of the batch
			h.PublishEvent(calibration.Event{Type: calibration.EventCanceled})

			var got []int
			for {
				msg := read(t, conn)
				if msg.Type == hub.TypeCalibration {
					break
				}
				got = append(got, *msg.Slot)
			}
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestNewClientGetsLastState(t *testing.T) {
	h, url := startHub(t)
	h.PublishEvent(calibration.Event{Type: calibration.EventPrompt, Control: "b"})
	h.PublishState(0, state(0, 1))
	h.PublishState(3, state(3, 0.5))
	gone := state(3, 0)
	gone.Live = false
	h.PublishState(3, gone)

	conn := dial(t, h, url)
	msg := read(t, conn)
	assert.Equal(t, hub.TypeCalibration, msg.Type)
	assert.Equal(t, "b", msg.Event.Control)
	msg = read(t, conn)
	assert.Equal(t, hub.TypeState, msg.Type)
	assert.Equal(t, 0, *msg.Slot)
}

func TestMessageJSON(t *testing.T) {
	h, url := startHub(t)
	conn := dial(t, h, url)
	h.PublishEvent(calibration.Event{Type: calibration.EventComplete, Phase: calibration.PhaseDone, Record: "r"})

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Equal(t, "calibration", raw["type"])
	ev := raw["event"].(map[string]any)
	assert.Equal(t, "complete", ev["type"])
	assert.Equal(t, "done", ev["phase"])
	assert.Equal(t, "r", ev["record"])
}

func TestClientDisconnect(t *testing.T) {
	h, url := startHub(t)
	conn := dial(t, h, url)
	require.NoError(t, conn.Close())
	assert.Eventually(t, func() bool { return h.Count() == 0 }, time.Second, 5*time.Millisecond)
}

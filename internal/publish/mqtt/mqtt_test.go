package mqtt_test

import (
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alia5/padmap/calibration"
	"github.com/Alia5/padmap/internal/publish/mqtt"
	"github.com/Alia5/padmap/semantic"
)

type token struct{ err error }

func (t *token) Wait() bool                     { return true }
func (t *token) WaitTimeout(time.Duration) bool { return true }
func (t *token) Error() error                   { return t.err }
func (t *token) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}

type published struct {
	topic    string
	retained bool
	payload  []byte
}

// client records publishes; every other method panics through the nil
// embedded interface.
type client struct {
	paho.Client
	mu           sync.Mutex
	msgs         []published
	err          error
	disconnected bool
}

func (c *client) Publish(topic string, qos byte, retained bool, payload any) paho.Token {
	c.mu.Lock()
	defer c.mu.Unlock()
	var b []byte
	switch p := payload.(type) {
	case []byte:
		b = p
	case string:
		b = []byte(p)
	}
	c.msgs = append(c.msgs, published{topic: topic, retained: retained, payload: b})
	return &token{err: c.err}
}

func (c *client) Disconnect(uint) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.disconnected = true
}

func (c *client) messages() []published {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]published(nil), c.msgs...)
}

func TestTopics(t *testing.T) {
	tests := []struct {
		name        string
		prefix      string
		calibration string
		device      string
	}{
		{name: "plain", prefix: "padmap", calibration: "padmap/calibration", device: "padmap/devices/2"},
		{name: "trailing slash", prefix: "home/pads/", calibration: "home/pads/calibration", device: "home/pads/devices/2"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := mqtt.New(&client{}, tt.prefix, slog.Default())
			assert.Equal(t, tt.calibration, p.CalibrationTopic())
			assert.Equal(t, tt.device, p.DeviceTopic(2))
		})
	}
}

func TestPublish(t *testing.T) {
	c := &client{}
	p := mqtt.New(c, "padmap", slog.Default())

	p.PublishEvent(calibration.Event{Type: calibration.EventPrompt, DeviceID: "pad", Control: "a", Highlight: "face-bottom"})
	p.PublishState(1, semantic.State{Slot: 1, ID: "pad", Live: true, DpadY: -1})

	msgs := c.messages()
	require.Len(t, msgs, 2)

	assert.Equal(t, "padmap/calibration", msgs[0].topic)
	assert.True(t, msgs[0].retained)
	var ev map[string]any
	require.NoError(t, json.Unmarshal(msgs[0].payload, &ev))
	assert.Equal(t, "prompt", ev["type"])
	assert.Equal(t, "a", ev["control"])

	assert.Equal(t, "padmap/devices/1", msgs[1].topic)
	var st semantic.State
	require.NoError(t, json.Unmarshal(msgs[1].payload, &st))
	assert.Equal(t, -1, st.DpadY)
	assert.True(t, st.Live)
}

func TestPublishErrorDoesNotBlock(t *testing.T) {
	c := &client{err: errors.New("not connected")}
	p := mqtt.New(c, "padmap", slog.Default())
	p.PublishState(0, semantic.State{})
	assert.Len(t, c.messages(), 1)
}

func TestClose(t *testing.T) {
	c := &client{}
	p := mqtt.New(c, "padmap", slog.Default())
	p.Close()
	msgs := c.messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "padmap/status", msgs[0].topic)
	assert.Equal(t, "offline", string(msgs[0].payload))
	assert.True(t, c.disconnected)
}

func TestConnectRequiresBroker(t *testing.T) {
	_, err := mqtt.Connect(mqtt.Config{}, slog.Default())
	assert.Error(t, err)
}

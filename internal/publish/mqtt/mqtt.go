// Package mqtt publishes calibration events and device states to an MQTT
// broker.
package mqtt

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/Alia5/padmap/calibration"
	"github.com/Alia5/padmap/semantic"
)

const (
	qos            = 0
	publishTimeout = 5 * time.Second
	disconnectWait = 250 // milliseconds
)

// Config is the MQTT section of the serve command.
type Config struct {
	Broker      string `help:"MQTT broker URL, e.g. tcp://localhost:1883; empty disables MQTT" default:"" env:"PADMAP_MQTT_BROKER"`
	ClientID    string `help:"MQTT client id" default:"padmap" env:"PADMAP_MQTT_CLIENT_ID"`
	TopicPrefix string `help:"Prefix of every published topic" default:"padmap" env:"PADMAP_MQTT_TOPIC_PREFIX"`
}

// Publisher implements engine.Sink on top of an MQTT client.
type Publisher struct {
	client paho.Client
	prefix string
	logger *slog.Logger
}

// Connect dials the configured broker. The broker keeps "offline" on the
// status topic once the connection is lost.
func Connect(cfg Config, logger *slog.Logger) (*Publisher, error) {
	if cfg.Broker == "" {
		return nil, errors.New("mqtt: no broker configured")
	}
	prefix := strings.TrimSuffix(cfg.TopicPrefix, "/")
	opts := paho.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(cfg.ClientID).
		SetAutoReconnect(true).
		SetWill(prefix+"/status", "offline", qos, true).
		SetConnectionLostHandler(func(_ paho.Client, err error) {
			logger.Warn("mqtt connection lost", "error", err)
		})

	client := paho.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("mqtt connect %s: %w", cfg.Broker, token.Error())
	}
	logger.Info("connected to mqtt broker", "broker", cfg.Broker, "prefix", prefix)

	p := New(client, prefix, logger)
	p.publish(p.statusTopic(), "online")
	return p, nil
}

// New wraps an already connected client.
func New(client paho.Client, prefix string, logger *slog.Logger) *Publisher {
	return &Publisher{client: client, prefix: strings.TrimSuffix(prefix, "/"), logger: logger}
}

func (p *Publisher) statusTopic() string { return p.prefix + "/status" }

func (p *Publisher) CalibrationTopic() string { return p.prefix + "/calibration" }

func (p *Publisher) DeviceTopic(slot int) string { return fmt.Sprintf("%s/devices/%d", p.prefix, slot) }

func (p *Publisher) PublishEvent(ev calibration.Event) {
	payload, err := json.Marshal(ev)
	if err != nil {
		p.logger.Error("marshal calibration event", "error", err)
		return
	}
	p.publish(p.CalibrationTopic(), payload)
}

func (p *Publisher) PublishState(slot int, st semantic.State) {
	payload, err := json.Marshal(st)
	if err != nil {
		p.logger.Error("marshal device state", "slot", slot, "error", err)
		return
	}
	p.publish(p.DeviceTopic(slot), payload)
}

// publish does not block the caller; failures are logged once the
// broker answered.
func (p *Publisher) publish(topic string, payload any) {
	token := p.client.Publish(topic, qos, true, payload)
	go func() {
		if token.WaitTimeout(publishTimeout) && token.Error() != nil {
			p.logger.Warn("mqtt publish failed", "topic", topic, "error", token.Error())
		}
	}()
}

// Close announces the shutdown and disconnects.
func (p *Publisher) Close() {
	token := p.client.Publish(p.statusTopic(), qos, true, "offline")
	token.WaitTimeout(time.Second)
	p.client.Disconnect(disconnectWait)
}

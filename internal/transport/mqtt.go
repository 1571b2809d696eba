package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"github.com/joshp123/containment/internal/monitor"
)

// Publisher is the narrow MQTT surface the senders need.
type Publisher interface {
	Publish(ctx context.Context, topic string, retained bool, payload []byte) error
}

// MQTTClient wraps a connected paho client.
type MQTTClient struct {
	client mqtt.Client
}

type MQTTConfig struct {
	Broker   string
	Username string
	Password string
	ClientID string
}

func NewMQTTClient(cfg MQTTConfig) (*MQTTClient, error) {
	if cfg.Broker == "" {
		return nil, fmt.Errorf("mqtt broker is required")
	}
	clientID := cfg.ClientID
	if clientID == "" {
		clientID = "containment-" + uuid.NewString()
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetUsername(cfg.Username)
	opts.SetPassword(cfg.Password)
	opts.SetClientID(clientID)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectTimeout(10 * time.Second)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, token.Error()
	}
	return &MQTTClient{client: client}, nil
}

// Publish sends at QoS 1 and waits for the broker or ctx.
func (c *MQTTClient) Publish(ctx context.Context, topic string, retained bool, payload []byte) error {
	token := c.client.Publish(topic, 1, retained, payload)
	select {
	case <-token.Done():
		return token.Error()
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close disconnects, allowing in-flight messages a short grace period.
func (c *MQTTClient) Close() {
	c.client.Disconnect(250)
}

// MQTTSender publishes telemetry JSON to a topic.
type MQTTSender struct {
	pub   Publisher
	topic string
}

func NewMQTTSender(pub Publisher, topic string) (*MQTTSender, error) {
	if pub == nil {
		return nil, fmt.Errorf("mqtt publisher is required")
	}
	if topic == "" {
		return nil, fmt.Errorf("mqtt topic is required")
	}
	return &MQTTSender{pub: pub, topic: topic}, nil
}

func (s *MQTTSender) Name() string {
	return "mqtt"
}

func (s *MQTTSender) Send(ctx context.Context, record monitor.Telemetry) error {
	payload, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("encode telemetry: %w", err)
	}
	if err := s.pub.Publish(ctx, s.topic, false, payload); err != nil {
		return fmt.Errorf("publish %s: %w", s.topic, err)
	}
	return nil
}

// Package automation pushes per-plant display state to Home Assistant over MQTT.
//
// Publishing is fire-and-forget at QoS 0. A nil error from Publish only means the
// broker client accepted the message.
package automation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
)

// Publisher sends a payload to a topic on the automation bus.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload []byte) error
}

// RetainedPublisher can publish messages the broker keeps for late subscribers.
type RetainedPublisher interface {
	PublishRetained(ctx context.Context, topic string, payload []byte) error
}

// ErrPublish marks a failure to hand a message to the automation bus.
var ErrPublish = errors.New("automation publish failed")

var errNotConnected = errors.New("mqtt client not connected")

// MQTTConfig holds the configuration for an MQTTPublisher.
type MQTTConfig struct {
	Logger   *slog.Logger
	Broker   string
	ClientID string
	Username string
	Password string
	// OnConnect, if set, runs in its own goroutine after every (re)connect.
	OnConnect func(pub RetainedPublisher)
}

// MQTTPublisher publishes to an MQTT broker with QoS 0.
type MQTTPublisher struct {
	client mqtt.Client
	logger *slog.Logger
}

// Ensure MQTTPublisher implements both publisher interfaces.
var (
	_ Publisher         = (*MQTTPublisher)(nil)
	_ RetainedPublisher = (*MQTTPublisher)(nil)
)

// NewMQTTPublisher creates the client and starts connecting in the background.
// The automation bus is optional for the pipeline, so an unreachable broker is
// not an error here; publishes fail until the connection comes up.
func NewMQTTPublisher(cfg *MQTTConfig) (*MQTTPublisher, error) {
	if cfg == nil {
		return nil, errors.New("mqtt config cannot be nil")
	}
	if cfg.Logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	if cfg.Broker == "" {
		return nil, errors.New("mqtt broker cannot be empty")
	}

	clientID := cfg.ClientID
	if clientID == "" {
		clientID = "plant-processor-" + uuid.NewString()[:8]
	}

	logger := cfg.Logger
	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID(clientID)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
	}
	if cfg.Password != "" {
		opts.SetPassword(cfg.Password)
	}
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(5 * time.Second)
	opts.SetCleanSession(true)
	opts.SetOnConnectHandler(func(c mqtt.Client) {
		logger.Info("connected to MQTT broker", "broker", cfg.Broker)
		if cfg.OnConnect != nil {
			go cfg.OnConnect(&MQTTPublisher{client: c, logger: logger})
		}
	})
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		logger.Warn("MQTT connection lost", "error", err)
	})

	client := mqtt.NewClient(opts)
	// With ConnectRetry the token only completes once connected; do not wait on it.
	client.Connect()

	return &MQTTPublisher{
		client: client,
		logger: logger,
	}, nil
}

// Publish implements Publisher.
func (p *MQTTPublisher) Publish(ctx context.Context, topic string, payload []byte) error {
	return p.publish(ctx, topic, payload, false)
}

// PublishRetained implements RetainedPublisher.
func (p *MQTTPublisher) PublishRetained(ctx context.Context, topic string, payload []byte) error {
	return p.publish(ctx, topic, payload, true)
}

func (p *MQTTPublisher) publish(ctx context.Context, topic string, payload []byte, retained bool) error {
	if !p.client.IsConnectionOpen() {
		return fmt.Errorf("publish to %s: %w", topic, errNotConnected)
	}

	token := p.client.Publish(topic, 0, retained, payload)
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-token.Done():
	}

	if err := token.Error(); err != nil {
		return fmt.Errorf("failed to publish to topic %s: %w", topic, err)
	}
	return nil
}

// IsConnected reports whether the broker connection is up.
func (p *MQTTPublisher) IsConnected() bool {
	return p.client.IsConnectionOpen()
}

// Close disconnects from the broker, allowing 250ms for in-flight work.
func (p *MQTTPublisher) Close() {
	p.client.Disconnect(250)
	p.logger.Info("MQTT client disconnected")
}

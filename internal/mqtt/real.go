package mqtt

import (
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/sweeney/espresso-gauge/internal/logic"
)

// Options configures a RealPublisher.
type Options struct {
	Broker   string
	ClientID string
	// ConnectWait bounds how long NewRealPublisher waits for the first
	// connection. The client keeps retrying in the background afterwards.
	ConnectWait time.Duration
	Now         func() time.Time
}

// RealPublisher publishes to an actual MQTT broker.
type RealPublisher struct {
	client    paho.Client
	topic     string
	now       func() time.Time
	connected atomic.Bool
}

// NewRealPublisher creates a publisher for the given broker. An unreachable
// broker is not an error: the gauge must work offline, so the client keeps
// retrying and IsConnected reports false until it succeeds.
func NewRealPublisher(o Options) (*RealPublisher, error) {
	if o.ClientID == "" {
		o.ClientID = "espresso-gauge"
	}
	if o.ConnectWait <= 0 {
		o.ConnectWait = 2 * time.Second
	}
	if o.Now == nil {
		o.Now = time.Now
	}

	p := &RealPublisher{topic: Topic, now: o.Now}

	will, err := FormatSystemPayload(SystemEvent{Timestamp: o.Now(), Event: "OFFLINE", Reason: "LWT"})
	if err != nil {
		return nil, fmt.Errorf("format will: %w", err)
	}

	opts := paho.NewClientOptions().
		AddBroker(o.Broker).
		SetClientID(o.ClientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second).
		SetWill(TopicSystem, string(will), 1, true).
		SetOnConnectHandler(func(paho.Client) {
			p.connected.Store(true)
			slog.Info("mqtt connected", "broker", o.Broker)
		}).
		SetConnectionLostHandler(func(_ paho.Client, err error) {
			p.connected.Store(false)
			slog.Warn("mqtt connection lost", "err", err)
		})

	p.client = paho.NewClient(opts)
	token := p.client.Connect()
	if !token.WaitTimeout(o.ConnectWait) {
		slog.Warn("mqtt not connected yet, retrying in background", "broker", o.Broker)
		return p, nil
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connect to broker: %w", err)
	}

	return p, nil
}

// IsConnected reports the state last set by the connection callbacks.
func (p *RealPublisher) IsConnected() bool {
	return p.connected.Load()
}

// UpdatePressure hands a pressure sample to the client without waiting for
// the broker. An error is only returned if the publish already failed.
func (p *RealPublisher) UpdatePressure(pr logic.Pressure) error {
	payload, err := FormatPayload(pr, p.now())
	if err != nil {
		return fmt.Errorf("format payload: %w", err)
	}

	// QoS 0 (at-most-once), not retained
	token := p.client.Publish(p.topic, 0, false, payload)
	select {
	case <-token.Done():
		if err := token.Error(); err != nil {
			return fmt.Errorf("publish: %w", err)
		}
	default:
	}
	return nil
}

// PublishSystem sends a system lifecycle event to the MQTT broker. Retained
// events wait up to 5s for the broker; others (heartbeats) return without
// waiting, like UpdatePressure.
func (p *RealPublisher) PublishSystem(event SystemEvent) error {
	payload, err := FormatSystemPayload(event)
	if err != nil {
		return fmt.Errorf("format system payload: %w", err)
	}

	// QoS 1 (at-least-once) - lifecycle events should be delivered
	token := p.client.Publish(TopicSystem, 1, event.Retained, payload)
	if !event.Retained {
		select {
		case <-token.Done():
			if err := token.Error(); err != nil {
				return fmt.Errorf("publish system: %w", err)
			}
		default:
		}
		return nil
	}
	if !token.WaitTimeout(5 * time.Second) {
		return fmt.Errorf("publish system timeout")
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish system: %w", err)
	}

	return nil
}

// Close disconnects from the broker.
func (p *RealPublisher) Close() error {
	p.client.Disconnect(1000) // 1 second timeout
	p.connected.Store(false)
	return nil
}

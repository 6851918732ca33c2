// Package mqtt provides MQTT telemetry with abstraction for testing.
package mqtt

import (
	"encoding/json"
	"time"

	"github.com/sweeney/espresso-gauge/internal/logic"
)

// Topic is the MQTT topic for pressure updates.
const Topic = "espresso/gauge/pressure"

// TopicSystem is the MQTT topic for system lifecycle events.
const TopicSystem = "espresso/gauge/system"

// Publisher publishes gauge telemetry.
type Publisher interface {
	// UpdatePressure sends the latest calibrated pressure. It must not block
	// on network round trips; a nil return means the message was handed off.
	UpdatePressure(p logic.Pressure) error

	// PublishSystem sends a system lifecycle event to the broker.
	PublishSystem(event SystemEvent) error

	// Close disconnects from the broker.
	Close() error
}

// ConnectionStatus reports whether the MQTT connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// SystemEvent represents a system lifecycle event (e.g., startup, power off, heartbeat).
type SystemEvent struct {
	Timestamp  time.Time
	Event      string // e.g., "STARTUP", "POWER_OFF", "HEARTBEAT"
	Reason     string // e.g., "SIGTERM", "IDLE" (terminal events only)
	RawPayload []byte // Pre-formatted JSON payload; if set, FormatSystemPayload returns it directly
	Retained   bool   // Whether the message should be retained by the broker
}

// Payload represents the MQTT message payload for a pressure update.
type Payload struct {
	Pressure PressurePayload `json:"pressure"`
}

// PressurePayload contains one pressure sample.
type PressurePayload struct {
	Timestamp string  `json:"timestamp"`
	Mbar      int32   `json:"mbar"`
	Bar       float64 `json:"bar"`
}

// FormatPayload creates the JSON payload for a pressure update.
func FormatPayload(p logic.Pressure, t time.Time) ([]byte, error) {
	payload := Payload{
		Pressure: PressurePayload{
			Timestamp: t.UTC().Format(time.RFC3339Nano),
			Mbar:      int32(p),
			Bar:       p.Bar(),
		},
	}
	return json.Marshal(payload)
}

// SystemPayload represents the MQTT message payload for system events.
// Used for simple events (LWT) that don't carry a full status snapshot.
type SystemPayload struct {
	System SystemPayloadInner `json:"system"`
}

// SystemPayloadInner contains the system event details.
type SystemPayloadInner struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	Reason    string `json:"reason,omitempty"`
}

// FormatSystemPayload creates the JSON payload for a system event.
// If event.RawPayload is set, it is returned directly (used for full status snapshots).
func FormatSystemPayload(event SystemEvent) ([]byte, error) {
	if event.RawPayload != nil {
		return event.RawPayload, nil
	}

	payload := SystemPayload{
		System: SystemPayloadInner{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Event:     event.Event,
			Reason:    event.Reason,
		},
	}
	return json.Marshal(payload)
}

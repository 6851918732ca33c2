package status

import (
	"encoding/json"
	"time"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event         string       `json:"event,omitempty"`
	Reason        string       `json:"reason,omitempty"`
	Ready         bool         `json:"ready"`
	Pressure      PressureJSON `json:"pressure"`
	Shot          ShotJSON     `json:"shot"`
	Telemetry     string       `json:"telemetry"`
	SensorOK      bool         `json:"sensor_ok"`
	Battery       BatteryJSON  `json:"battery"`
	UptimeSeconds int64        `json:"uptime_seconds"`
	StartTime     string       `json:"start_time"`
	Timestamp     string       `json:"timestamp"`
	MQTT          MQTTStatus   `json:"mqtt"`
	History       []int32      `json:"history,omitempty"`
	Debug         *DebugJSON   `json:"debug,omitempty"`
	Config        ConfigJSON   `json:"config"`
}

// PressureJSON is the latest classified reading.
type PressureJSON struct {
	Mbar     int32   `json:"mbar"`
	Bar      float64 `json:"bar"`
	Zone     string  `json:"zone"`
	Position float32 `json:"position"`
	Alarm    bool    `json:"alarm"`
	ScaleMax int32   `json:"scale_mbar"`
}

// ShotJSON is the shot timer state.
type ShotJSON struct {
	State      string `json:"state"`
	DurationMs int64  `json:"duration_ms"`
}

// BatteryJSON reports charge and its display band.
type BatteryJSON struct {
	Percent int    `json:"percent"`
	Level   string `json:"level"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
}

// DebugJSON carries the debug-mode detail.
type DebugJSON struct {
	SensorHex    string `json:"sensor_hex"`
	LastActivity string `json:"last_activity"`
	PowerOffInMs int64  `json:"power_off_in_ms"`
}

// ConfigJSON is the JSON representation of gauge config.
type ConfigJSON struct {
	TickMs        int64  `json:"tick_ms"`
	HistorySize   int    `json:"history_size"`
	FlowThreshold int32  `json:"flow_threshold_mbar"`
	IdleTimeoutMs int64  `json:"idle_timeout_ms"`
	HeartbeatMs   int64  `json:"heartbeat_ms"`
	SensorSource  string `json:"sensor_source"`
	Broker        string `json:"broker"`
	HTTPAddr      string `json:"http_addr"`
	SerialPort    string `json:"serial_port,omitempty"`
}

// BatteryLevel maps a charge percentage to its display band.
func BatteryLevel(pct int) string {
	switch {
	case pct < 0:
		return "unknown"
	case pct > 25:
		return "green"
	case pct > 15:
		return "yellow"
	case pct > 5:
		return "orange"
	}
	return "red"
}

func buildInner(snap Snapshot) StatusInner {
	f := snap.Frame

	state := string(f.Timer.State)
	if state == "" {
		state = "STOPPED"
	}
	zone := string(f.Severity.Zone)
	if zone == "" {
		zone = "UNKNOWN"
	}
	tel := string(f.Telemetry)
	if tel == "" {
		tel = "OFF"
	}

	inner := StatusInner{
		Ready: snap.Rendered,
		Pressure: PressureJSON{
			Mbar:     int32(f.Pressure),
			Bar:      f.Pressure.Bar(),
			Zone:     zone,
			Position: f.Severity.Position,
			Alarm:    f.Severity.Alarm,
			ScaleMax: int32(f.MaxRange),
		},
		Shot:          ShotJSON{State: state, DurationMs: f.Timer.Duration.Milliseconds()},
		Telemetry:     tel,
		SensorOK:      f.SensorOK,
		Battery:       BatteryJSON{Percent: snap.Battery, Level: BatteryLevel(snap.Battery)},
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		MQTT:          MQTTStatus{Connected: snap.MQTTConnected, Broker: snap.Config.Broker},
		Config: ConfigJSON{
			TickMs:        snap.Config.TickMs,
			HistorySize:   snap.Config.HistorySize,
			FlowThreshold: snap.Config.FlowThreshold,
			IdleTimeoutMs: snap.Config.IdleTimeoutMs,
			HeartbeatMs:   snap.Config.HeartbeatMs,
			SensorSource:  snap.Config.SensorSource,
			Broker:        snap.Config.Broker,
			HTTPAddr:      snap.Config.HTTPAddr,
			SerialPort:    snap.Config.SerialPort,
		},
	}
	if d := f.Debug; d != nil {
		inner.Debug = &DebugJSON{
			SensorHex:    d.SensorHex,
			LastActivity: d.LastActivity.UTC().Format(time.RFC3339),
			PowerOffInMs: d.PowerOffIn.Milliseconds(),
		}
	}
	return inner
}

// FormatJSON returns the JSON status for the web endpoint, including the
// history (no event/reason).
func FormatJSON(snap Snapshot) []byte {
	inner := buildInner(snap)
	inner.History = make([]int32, len(snap.Frame.History))
	for i, p := range snap.Frame.History {
		inner.History[i] = int32(p)
	}

	data, _ := json.MarshalIndent(StatusJSON{Status: inner}, "", "  ")
	return data
}

// FormatStatusEvent returns the JSON status for an MQTT system event.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	inner.Reason = reason

	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}

// Package logic contains the pure measurement state of the gauge: history,
// shot timer, idle policy and severity classification.
// This package has NO hardware, network or OS dependencies.
// Time is always injectable via time.Time parameters.
package logic

import (
	"strconv"
	"time"
)

// Pressure is a calibrated reading in millibar (bar x 1000).
type Pressure int32

// Bar returns the pressure in bar.
func (p Pressure) Bar() float64 {
	return float64(p) / 1000
}

// String formats the pressure as bar with one decimal, e.g. "9.2".
func (p Pressure) String() string {
	return strconv.FormatFloat(p.Bar(), 'f', 1, 64)
}

// TimerState is the shot timer state.
type TimerState string

const (
	TimerStopped TimerState = "STOPPED"
	TimerRunning TimerState = "RUNNING"
)

// TelemetryStatus is the rendered state of the telemetry link.
type TelemetryStatus string

const (
	TelemetryOff    TelemetryStatus = "OFF"
	TelemetryOK     TelemetryStatus = "OK"
	TelemetryFailed TelemetryStatus = "FAILED"
)

// TimerSnapshot is a point-in-time copy of the shot timer.
type TimerSnapshot struct {
	State    TimerState
	Duration time.Duration
}

// Debug holds diagnostic detail shown when debug mode is on.
type Debug struct {
	SensorHex    string
	LastActivity time.Time
	PowerOffIn   time.Duration
}

// Frame is everything the render and telemetry collaborators need for one tick.
type Frame struct {
	Time      time.Time
	Pressure  Pressure
	History   []Pressure // oldest first
	Timer     TimerSnapshot
	Severity  Severity
	MaxRange  Pressure // scale ceiling for graphs (sensor max minus headroom)
	Telemetry TelemetryStatus
	SensorOK  bool
	Debug     *Debug // nil unless debug mode is on
}

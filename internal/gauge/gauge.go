// Package gauge drives one measurement tick: read, record, time, classify
// and forward to the render and telemetry collaborators.
// The Orchestrator exclusively owns the history, shot timer and activity
// state; it is not safe for concurrent use and is meant to be driven from a
// single loop.
package gauge

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/sweeney/espresso-gauge/internal/input"
	"github.com/sweeney/espresso-gauge/internal/logic"
	"github.com/sweeney/espresso-gauge/internal/power"
)

// Sensor produces calibrated readings.
type Sensor interface {
	Read(ctx context.Context) (logic.Pressure, error)
	HexData() string
	MaxRange() logic.Pressure
}

// Renderer consumes one frame per processed tick.
type Renderer interface {
	Render(f logic.Frame) error
}

// Renderers fans a frame out to several renderers.
type Renderers []Renderer

// Render sends f to every renderer and joins their errors.
func (rs Renderers) Render(f logic.Frame) error {
	var errs []error
	for _, r := range rs {
		if err := r.Render(f); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Telemetry is the remote link. UpdatePressure must not block on the network.
type Telemetry interface {
	UpdatePressure(p logic.Pressure) error
	IsConnected() bool
}

// Outcome describes what a Tick or HandleButton call did.
type Outcome int

const (
	Skipped    Outcome = iota // period not yet elapsed
	Processed                 // normal tick or input
	PoweredOff                // idle policy fired; terminal
	Restarted                 // restart requested; terminal
	Halted                    // called after a terminal outcome
)

func (o Outcome) String() string {
	switch o {
	case Skipped:
		return "skipped"
	case Processed:
		return "processed"
	case PoweredOff:
		return "powered_off"
	case Restarted:
		return "restarted"
	case Halted:
		return "halted"
	}
	return "unknown"
}

// Config holds the tick pipeline parameters.
type Config struct {
	Period        time.Duration
	HistorySize   int
	FlowThreshold logic.Pressure
	IdleTimeout   time.Duration
	Thresholds    logic.Thresholds
	Headroom      logic.Pressure
	Gradient      []logic.GradientStop // nil = logic.DefaultGradient

	// Telemetry and Debug are the initial states of the B and A toggles.
	Telemetry bool
	Debug     bool
}

// Orchestrator is the gauge's periodic driver.
type Orchestrator struct {
	cfg       Config
	sensor    Sensor
	renderer  Renderer
	telemetry Telemetry
	power     power.Controller

	history    *logic.History
	timer      *logic.ShotTimer
	activity   *logic.ActivityMonitor
	classifier *logic.Classifier

	lastTick    time.Time
	ticked      bool
	debug       bool
	telemetryOn bool
	telStatus   logic.TelemetryStatus
	sensorDown  bool
	halted      bool
	last        logic.Frame
}

// New creates an Orchestrator whose idle clock starts at start.
// renderer and telemetry may be nil.
func New(cfg Config, s Sensor, r Renderer, t Telemetry, pc power.Controller, start time.Time) *Orchestrator {
	return &Orchestrator{
		cfg:         cfg,
		sensor:      s,
		renderer:    r,
		telemetry:   t,
		power:       pc,
		history:     logic.NewHistory(cfg.HistorySize),
		timer:       logic.NewShotTimer(cfg.FlowThreshold),
		activity:    logic.NewActivityMonitor(cfg.IdleTimeout, start),
		classifier:  logic.NewClassifier(cfg.Thresholds, cfg.Headroom, cfg.Gradient),
		debug:       cfg.Debug,
		telemetryOn: cfg.Telemetry,
		telStatus:   logic.TelemetryOff,
	}
}

// Tick runs the pipeline once if at least one period has elapsed since the
// last processed tick. The first call always processes.
func (o *Orchestrator) Tick(ctx context.Context, now time.Time) Outcome {
	if o.halted {
		return Halted
	}
	if o.ticked && now.Sub(o.lastTick) < o.cfg.Period {
		return Skipped
	}
	o.lastTick = now
	o.ticked = true

	p, sensorOK := o.read(ctx)
	o.history.Push(p)

	if o.activity.Observe(p, now) {
		slog.Info("idle timeout reached, powering off",
			"idle", now.Sub(o.activity.LastActivity()), "pressure_mbar", int32(p))
		o.halted = true
		if err := o.power.PowerOff(); err != nil {
			slog.Error("power off failed", "err", err)
		}
		return PoweredOff
	}

	if o.timer.Update(p, now) {
		slog.Info("shot timer", "state", o.timer.State(), "duration", o.timer.Duration(), "pressure_mbar", int32(p))
	}

	maxRange := o.sensor.MaxRange()
	frame := logic.Frame{
		Time:      now,
		Pressure:  p,
		History:   o.history.Snapshot(),
		Timer:     o.timer.Snapshot(),
		Severity:  o.classifier.Classify(p, maxRange),
		MaxRange:  o.classifier.Scale(maxRange),
		Telemetry: o.sendTelemetry(p),
		SensorOK:  sensorOK,
	}
	if o.debug {
		frame.Debug = &logic.Debug{
			SensorHex:    o.sensor.HexData(),
			LastActivity: o.activity.LastActivity(),
			PowerOffIn:   o.activity.Remaining(now),
		}
	}
	o.last = frame

	if o.renderer != nil {
		if err := o.renderer.Render(frame); err != nil {
			slog.Debug("render failed", "err", err)
		}
	}
	return Processed
}

// read returns the sensor value, or the previous history value if the read
// failed. Only the first failure of a streak is logged.
func (o *Orchestrator) read(ctx context.Context) (logic.Pressure, bool) {
	p, err := o.sensor.Read(ctx)
	if err != nil {
		if !o.sensorDown {
			slog.Warn("sensor read failed, holding last value", "err", err, "hex", o.sensor.HexData())
			o.sensorDown = true
		}
		return o.history.Latest(), false
	}
	if o.sensorDown {
		slog.Info("sensor recovered", "pressure_mbar", int32(p))
		o.sensorDown = false
	}
	return p, true
}

func (o *Orchestrator) sendTelemetry(p logic.Pressure) logic.TelemetryStatus {
	switch {
	case !o.telemetryOn:
		o.telStatus = logic.TelemetryOff
	case o.telemetry == nil || !o.telemetry.IsConnected():
		o.telStatus = logic.TelemetryFailed
	default:
		if err := o.telemetry.UpdatePressure(p); err != nil {
			slog.Debug("telemetry update failed", "err", err)
			o.telStatus = logic.TelemetryFailed
		} else {
			o.telStatus = logic.TelemetryOK
		}
	}
	return o.telStatus
}

// HandleButton applies a button press. Every press counts as activity.
// A toggles debug detail, B toggles telemetry and C restarts the device.
func (o *Orchestrator) HandleButton(b input.Button, now time.Time) Outcome {
	if o.halted {
		return Halted
	}
	o.activity.NoteUserInput(now)

	switch b {
	case input.ButtonA:
		o.debug = !o.debug
		slog.Info("debug toggled", "debug", o.debug)
	case input.ButtonB:
		o.telemetryOn = !o.telemetryOn
		slog.Info("telemetry toggled", "enabled", o.telemetryOn)
	case input.ButtonC:
		slog.Info("restart requested")
		o.halted = true
		if err := o.power.Restart(); err != nil {
			slog.Error("restart failed", "err", err)
		}
		return Restarted
	}
	return Processed
}

// ResetShotTimer clears the accumulated shot time. It counts as activity.
func (o *Orchestrator) ResetShotTimer(now time.Time) {
	if o.halted {
		return
	}
	o.activity.NoteUserInput(now)
	o.timer.Reset(now)
	slog.Info("shot timer reset")
}

// Halted reports whether a terminal outcome has occurred.
func (o *Orchestrator) Halted() bool {
	return o.halted
}

// Debug reports whether debug detail is on.
func (o *Orchestrator) Debug() bool {
	return o.debug
}

// TelemetryEnabled reports whether telemetry is switched on.
func (o *Orchestrator) TelemetryEnabled() bool {
	return o.telemetryOn
}

// TelemetryStatus returns the status set by the last processed tick.
func (o *Orchestrator) TelemetryStatus() logic.TelemetryStatus {
	return o.telStatus
}

// LastFrame returns the frame built by the last processed tick.
func (o *Orchestrator) LastFrame() logic.Frame {
	return o.last
}

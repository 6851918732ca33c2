package internal

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/sweeney/espresso-gauge/internal/console"
	"github.com/sweeney/espresso-gauge/internal/gauge"
	"github.com/sweeney/espresso-gauge/internal/logic"
	"github.com/sweeney/espresso-gauge/internal/mqtt"
	"github.com/sweeney/espresso-gauge/internal/power"
	"github.com/sweeney/espresso-gauge/internal/sensor"
	"github.com/sweeney/espresso-gauge/internal/status"
)

var startTime = time.Date(2026, 1, 1, 7, 0, 0, 0, time.UTC)

const period = 20 * time.Millisecond

type rig struct {
	ex      *sensor.FakeExchanger
	tracker *status.Tracker
	serial  *bytes.Buffer
	pub     *mqtt.FakePublisher
	power   *power.FakeController
	gauge   *gauge.Orchestrator
}

// newRig wires a gauge from a scripted exchanger (one frame per tick) to the
// status tracker, a console writer and a fake publisher.
func newRig(idle time.Duration, profile ...logic.Pressure) *rig {
	frames := make([][sensor.FrameSize]byte, len(profile))
	for i, p := range profile {
		frames[i] = sensor.Encode(sensor.DefaultCalibration.Invert(p))
	}
	r := &rig{
		ex:      sensor.NewFakeExchanger(frames...),
		tracker: status.NewTracker(startTime, status.Config{TickMs: period.Milliseconds(), HistorySize: 16}),
		serial:  &bytes.Buffer{},
		pub:     mqtt.NewFakePublisher(),
		power:   &power.FakeController{},
	}
	r.pub.Connected = true
	reader := sensor.NewReader(r.ex, sensor.Config{Samples: 1, Settle: -1})
	r.gauge = gauge.New(gauge.Config{
		Period:        period,
		HistorySize:   16,
		FlowThreshold: 1000,
		IdleTimeout:   idle,
		Thresholds:    logic.DefaultThresholds,
		Headroom:      10000,
		Telemetry:     true,
	}, reader, gauge.Renderers{r.tracker, console.NewWriter(r.serial)}, r.pub, r.power, startTime)
	return r
}

// runTicks processes n ticks one period apart and returns the last outcome.
func (r *rig) runTicks(n int) gauge.Outcome {
	var out gauge.Outcome
	for i := 0; i < n; i++ {
		out = r.gauge.Tick(context.Background(), startTime.Add(time.Duration(i)*period))
		if out != gauge.Processed {
			return out
		}
	}
	return out
}

func (r *rig) lines() []string {
	return strings.Split(strings.TrimSuffix(r.serial.String(), "\r\n"), "\r\n")
}

// TestIntegrationShotProfile drives a full shot through every render surface.
func TestIntegrationShotProfile(t *testing.T) {
	profile := []logic.Pressure{0, 0, 2000, 6000, 9500, 9500, 9500, 3000, 500, 0}
	r := newRig(10*time.Minute, profile...)

	if out := r.runTicks(len(profile)); out != gauge.Processed {
		t.Fatalf("unexpected outcome %s", out)
	}

	// flowing from t=40ms until the drop below threshold at t=160ms
	snap := r.tracker.Snapshot()
	if snap.Frame.Timer.State != logic.TimerStopped {
		t.Errorf("expected STOPPED, got %s", snap.Frame.Timer.State)
	}
	if snap.Frame.Timer.Duration != 120*time.Millisecond {
		t.Errorf("expected 120ms shot, got %v", snap.Frame.Timer.Duration)
	}

	if len(r.pub.Pressures) != len(profile) {
		t.Fatalf("expected %d telemetry updates, got %d", len(profile), len(r.pub.Pressures))
	}
	for i, p := range profile {
		if r.pub.Pressures[i] != p {
			t.Errorf("update %d: got %d, want %d", i, r.pub.Pressures[i], p)
		}
	}

	lines := r.lines()
	if len(lines) != len(profile) {
		t.Fatalf("expected %d console lines, got %d", len(profile), len(lines))
	}
	if !strings.Contains(lines[4], "p=9.500bar") || !strings.Contains(lines[4], "zone=WARNING") {
		t.Errorf("peak line: %q", lines[4])
	}
	if !strings.Contains(lines[4], "shot=RUNNING") {
		t.Errorf("expected running timer at the peak: %q", lines[4])
	}
	if !strings.HasPrefix(lines[9], "07:00:00.180 ") {
		t.Errorf("last line timestamp: %q", lines[9])
	}

	var sj status.StatusJSON
	if err := json.Unmarshal(status.FormatJSON(snap), &sj); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	if sj.Status.Shot.DurationMs != 120 || sj.Status.Shot.State != "STOPPED" {
		t.Errorf("shot JSON: %+v", sj.Status.Shot)
	}
	if sj.Status.Telemetry != "OK" {
		t.Errorf("telemetry: got %q, want OK", sj.Status.Telemetry)
	}
	hist := sj.Status.History
	if len(hist) == 0 || hist[len(hist)-1] != 0 {
		t.Errorf("history should end at the latest reading: %v", hist)
	}
	peak := int32(0)
	for _, v := range hist {
		if v > peak {
			peak = v
		}
	}
	if peak != 9500 {
		t.Errorf("history peak: got %d, want 9500", peak)
	}
}

func TestIntegrationDangerAlarm(t *testing.T) {
	r := newRig(10*time.Minute, 12500)
	r.runTicks(1)

	f := r.tracker.Snapshot().Frame
	if f.Severity.Zone != logic.ZoneDanger || !f.Severity.Alarm {
		t.Errorf("expected DANGER alarm, got %+v", f.Severity)
	}
	if !strings.Contains(r.lines()[0], "STOP!") {
		t.Errorf("console line missing alarm: %q", r.lines()[0])
	}
}

func TestIntegrationSensorFailureHoldsReading(t *testing.T) {
	r := newRig(10*time.Minute, 4000)
	r.runTicks(2)

	r.ex.ExchangeError = errors.New("bus error")
	r.gauge.Tick(context.Background(), startTime.Add(2*period))

	f := r.tracker.Snapshot().Frame
	if f.SensorOK {
		t.Error("expected sensor failure")
	}
	if f.Pressure != 4000 {
		t.Errorf("expected held 4000, got %d", f.Pressure)
	}
	if !strings.Contains(r.lines()[2], "sensor=ERR") {
		t.Errorf("console line should flag the sensor: %q", r.lines()[2])
	}
}

func TestIntegrationPublishFailureDoesNotStopRendering(t *testing.T) {
	r := newRig(10*time.Minute, 3000)
	r.pub.PublishError = errors.New("broker unavailable")

	r.runTicks(3)

	if len(r.lines()) != 3 {
		t.Errorf("expected 3 console lines, got %d", len(r.lines()))
	}
	if got := r.tracker.Snapshot().Frame.Telemetry; got != logic.TelemetryFailed {
		t.Errorf("expected FAILED, got %s", got)
	}
}

func TestIntegrationIdlePowerOff(t *testing.T) {
	r := newRig(100*time.Millisecond, 0)

	// idle clock starts at startTime; t=100ms reaches the timeout
	if out := r.runTicks(10); out != gauge.PoweredOff {
		t.Fatalf("expected PoweredOff, got %s", out)
	}
	if r.power.PowerOffs != 1 {
		t.Errorf("expected 1 power off, got %d", r.power.PowerOffs)
	}
	if len(r.lines()) != 5 {
		t.Errorf("expected 5 rendered frames before power off, got %d", len(r.lines()))
	}

	if out := r.gauge.Tick(context.Background(), startTime.Add(time.Second)); out != gauge.Halted {
		t.Errorf("expected Halted after power off, got %s", out)
	}
}

func TestIntegrationStatusEventPayload(t *testing.T) {
	r := newRig(10*time.Minute, 7000)
	r.runTicks(1)
	r.tracker.SetMQTTConnected(true)

	snap := r.tracker.Snapshot()
	err := r.pub.PublishSystem(mqtt.SystemEvent{
		Timestamp:  snap.Now,
		Event:      "STARTUP",
		Retained:   true,
		RawPayload: status.FormatStatusEvent(snap, "STARTUP", ""),
	})
	if err != nil {
		t.Fatalf("publish: %v", err)
	}

	var sj status.StatusJSON
	if err := json.Unmarshal(r.pub.SystemPayloads[0], &sj); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if sj.Status.Event != "STARTUP" {
		t.Errorf("event: got %q", sj.Status.Event)
	}
	if sj.Status.Reason != "" {
		t.Errorf("reason should be empty, got %q", sj.Status.Reason)
	}
	if sj.Status.Pressure.Mbar != 7000 || sj.Status.Pressure.Zone != "ELEVATED" {
		t.Errorf("pressure: %+v", sj.Status.Pressure)
	}
	if !sj.Status.MQTT.Connected {
		t.Error("expected MQTT connected in payload")
	}
	if sj.Status.History != nil {
		t.Error("status events should not carry history")
	}
}

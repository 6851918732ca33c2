package status

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/sweeney/espresso-gauge/internal/logic"
)

var start = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func sampleFrame() logic.Frame {
	return logic.Frame{
		Time:      start.Add(time.Minute),
		Pressure:  9250,
		History:   []logic.Pressure{0, 4000, 9250},
		Timer:     logic.TimerSnapshot{State: logic.TimerRunning, Duration: 12500 * time.Millisecond},
		Severity:  logic.Severity{Zone: logic.ZoneWarning, Position: 0.925},
		MaxRange:  10000,
		Telemetry: logic.TelemetryOK,
		SensorOK:  true,
	}
}

func TestNewTracker(t *testing.T) {
	cfg := Config{TickMs: 20, HistorySize: 160, Broker: "tcp://localhost:1883", HTTPAddr: ":8080"}
	tr := NewTracker(start, cfg)

	snap := tr.Snapshot()
	if !snap.StartTime.Equal(start) {
		t.Errorf("StartTime: got %v, want %v", snap.StartTime, start)
	}
	if snap.Config.TickMs != 20 {
		t.Errorf("Config.TickMs: got %d, want 20", snap.Config.TickMs)
	}
	if snap.Rendered {
		t.Error("expected Rendered=false initially")
	}
	if snap.MQTTConnected {
		t.Error("expected MQTTConnected=false initially")
	}
	if snap.Battery != -1 {
		t.Errorf("Battery: got %d, want -1", snap.Battery)
	}
}

func TestRenderAndSnapshot(t *testing.T) {
	tr := NewTracker(start, Config{})

	if err := tr.Render(sampleFrame()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	snap := tr.Snapshot()
	if !snap.Rendered {
		t.Error("expected Rendered=true")
	}
	if snap.Frame.Pressure != 9250 {
		t.Errorf("Pressure: got %d, want 9250", snap.Frame.Pressure)
	}
	if len(snap.Frame.History) != 3 {
		t.Errorf("History: got %d entries, want 3", len(snap.Frame.History))
	}
}

func TestSetMQTTConnectedAndBattery(t *testing.T) {
	tr := NewTracker(start, Config{})

	tr.SetMQTTConnected(true)
	tr.SetBattery(42)
	snap := tr.Snapshot()
	if !snap.MQTTConnected {
		t.Error("expected MQTTConnected=true")
	}
	if snap.Battery != 42 {
		t.Errorf("Battery: got %d, want 42", snap.Battery)
	}
}

func TestSnapshotUptime(t *testing.T) {
	snap := Snapshot{StartTime: start, Now: start.Add(15 * time.Minute)}

	if snap.Uptime() != 15*time.Minute {
		t.Errorf("Uptime: got %v, want 15m", snap.Uptime())
	}
}

func TestSnapshotNowIsSet(t *testing.T) {
	tr := NewTracker(start, Config{})
	tr.now = func() time.Time { return start.Add(time.Hour) }

	if got := tr.Snapshot().Now; !got.Equal(start.Add(time.Hour)) {
		t.Errorf("Now: got %v", got)
	}
}

func TestSnapshotIsCopy(t *testing.T) {
	tr := NewTracker(start, Config{})
	tr.Render(sampleFrame())

	snap1 := tr.Snapshot()

	next := sampleFrame()
	next.Pressure = 100
	tr.Render(next)

	if snap1.Frame.Pressure != 9250 {
		t.Error("snapshot should be a copy; pressure was modified")
	}
}

func TestBatteryLevel(t *testing.T) {
	tests := []struct {
		pct  int
		want string
	}{
		{-1, "unknown"},
		{100, "green"},
		{26, "green"},
		{25, "yellow"},
		{16, "yellow"},
		{15, "orange"},
		{6, "orange"},
		{5, "red"},
		{0, "red"},
	}
	for _, tt := range tests {
		if got := BatteryLevel(tt.pct); got != tt.want {
			t.Errorf("BatteryLevel(%d) = %q, want %q", tt.pct, got, tt.want)
		}
	}
}

func TestFormatJSON(t *testing.T) {
	snap := Snapshot{
		Frame:         sampleFrame(),
		Rendered:      true,
		Battery:       80,
		StartTime:     start,
		Now:           start.Add(15 * time.Minute),
		MQTTConnected: true,
		Config:        Config{TickMs: 20, HistorySize: 160, HeartbeatMs: 900000, Broker: "tcp://localhost:1883", HTTPAddr: ":8080"},
	}

	data := FormatJSON(snap)

	var parsed StatusJSON
	if err := json.Unmarshal(data, &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}

	s := parsed.Status
	if !s.Ready {
		t.Error("expected Ready=true")
	}
	if s.Pressure.Mbar != 9250 || s.Pressure.Bar != 9.25 {
		t.Errorf("Pressure: got %+v", s.Pressure)
	}
	if s.Pressure.Zone != "WARNING" {
		t.Errorf("Zone: got %q, want WARNING", s.Pressure.Zone)
	}
	if s.Pressure.ScaleMax != 10000 {
		t.Errorf("ScaleMax: got %d, want 10000", s.Pressure.ScaleMax)
	}
	if s.Shot.State != "RUNNING" || s.Shot.DurationMs != 12500 {
		t.Errorf("Shot: got %+v", s.Shot)
	}
	if s.Telemetry != "OK" {
		t.Errorf("Telemetry: got %q, want OK", s.Telemetry)
	}
	if s.Battery.Percent != 80 || s.Battery.Level != "green" {
		t.Errorf("Battery: got %+v", s.Battery)
	}
	if s.UptimeSeconds != 900 {
		t.Errorf("UptimeSeconds: got %d, want 900", s.UptimeSeconds)
	}
	if !s.MQTT.Connected {
		t.Error("expected MQTT.Connected=true")
	}
	if len(s.History) != 3 || s.History[2] != 9250 {
		t.Errorf("History: got %v", s.History)
	}
	if s.Debug != nil {
		t.Error("expected no debug block")
	}
	if s.Event != "" || s.Reason != "" {
		t.Errorf("expected empty event/reason for web format, got %q/%q", s.Event, s.Reason)
	}
}

func TestFormatJSONBeforeFirstFrame(t *testing.T) {
	snap := Snapshot{
		Battery:   -1,
		StartTime: start,
		Now:       start.Add(time.Second),
	}

	var parsed StatusJSON
	json.Unmarshal(FormatJSON(snap), &parsed)

	if parsed.Status.Ready {
		t.Error("expected Ready=false")
	}
	if parsed.Status.Pressure.Zone != "UNKNOWN" {
		t.Errorf("Zone: got %q, want UNKNOWN", parsed.Status.Pressure.Zone)
	}
	if parsed.Status.Shot.State != "STOPPED" {
		t.Errorf("Shot.State: got %q, want STOPPED", parsed.Status.Shot.State)
	}
	if parsed.Status.Telemetry != "OFF" {
		t.Errorf("Telemetry: got %q, want OFF", parsed.Status.Telemetry)
	}
	if parsed.Status.Battery.Level != "unknown" {
		t.Errorf("Battery.Level: got %q, want unknown", parsed.Status.Battery.Level)
	}
}

func TestFormatJSONDebug(t *testing.T) {
	f := sampleFrame()
	f.Debug = &logic.Debug{
		SensorHex:    "0F4240",
		LastActivity: start.Add(30 * time.Second),
		PowerOffIn:   9 * time.Minute,
	}
	snap := Snapshot{Frame: f, Rendered: true, StartTime: start, Now: start.Add(time.Minute)}

	var parsed StatusJSON
	json.Unmarshal(FormatJSON(snap), &parsed)

	d := parsed.Status.Debug
	if d == nil {
		t.Fatal("expected debug block")
	}
	if d.SensorHex != "0F4240" {
		t.Errorf("SensorHex: got %q", d.SensorHex)
	}
	if d.LastActivity != "2026-01-01T00:00:30Z" {
		t.Errorf("LastActivity: got %q", d.LastActivity)
	}
	if d.PowerOffInMs != 540000 {
		t.Errorf("PowerOffInMs: got %d, want 540000", d.PowerOffInMs)
	}
}

func TestFormatStatusEvent(t *testing.T) {
	snap := Snapshot{
		Frame:         sampleFrame(),
		Rendered:      true,
		StartTime:     start,
		Now:           start.Add(15 * time.Minute),
		MQTTConnected: true,
		Config:        Config{Broker: "tcp://localhost:1883"},
	}

	data := FormatStatusEvent(snap, "HEARTBEAT", "")

	var parsed StatusJSON
	if err := json.Unmarshal(data, &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}

	if parsed.Status.Event != "HEARTBEAT" {
		t.Errorf("Event: got %q, want HEARTBEAT", parsed.Status.Event)
	}
	if parsed.Status.Pressure.Mbar != 9250 {
		t.Errorf("Pressure.Mbar: got %d, want 9250", parsed.Status.Pressure.Mbar)
	}
	if parsed.Status.History != nil {
		t.Error("system events should not carry history")
	}
}

func TestFormatStatusEventPowerOff(t *testing.T) {
	snap := Snapshot{StartTime: start, Now: start.Add(30 * time.Minute)}

	data := FormatStatusEvent(snap, "POWER_OFF", "IDLE")

	var parsed StatusJSON
	if err := json.Unmarshal(data, &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}

	if parsed.Status.Event != "POWER_OFF" {
		t.Errorf("Event: got %q, want POWER_OFF", parsed.Status.Event)
	}
	if parsed.Status.Reason != "IDLE" {
		t.Errorf("Reason: got %q, want IDLE", parsed.Status.Reason)
	}
}

func TestFormatStatusEventOmitsReasonWhenEmpty(t *testing.T) {
	snap := Snapshot{StartTime: start, Now: start.Add(time.Second)}

	data := FormatStatusEvent(snap, "STARTUP", "")

	var raw map[string]interface{}
	json.Unmarshal(data, &raw)
	status := raw["status"].(map[string]interface{})
	if _, exists := status["reason"]; exists {
		t.Error("reason should be omitted when empty")
	}
	if status["event"] != "STARTUP" {
		t.Errorf("event: got %v, want STARTUP", status["event"])
	}
}

func TestConcurrentAccess(t *testing.T) {
	tr := NewTracker(time.Now(), Config{})
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			f := sampleFrame()
			f.Pressure = logic.Pressure(i)
			tr.Render(f)
			tr.SetMQTTConnected(i%2 == 0)
			tr.SetBattery(i % 100)
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			snap := tr.Snapshot()
			_ = FormatJSON(snap)
		}
	}()

	wg.Wait()
}

// Package status holds the latest rendered gauge state for readers outside
// the tick loop: the HTTP page and MQTT system events.
package status

import (
	"sync"
	"time"

	"github.com/sweeney/espresso-gauge/internal/logic"
)

// Config contains gauge configuration for display.
type Config struct {
	TickMs        int64
	HistorySize   int
	FlowThreshold int32
	IdleTimeoutMs int64
	HeartbeatMs   int64
	SensorSource  string
	Broker        string
	HTTPAddr      string
	SerialPort    string
}

// Snapshot is a point-in-time view of gauge state.
// It is a value type; the Frame's History slice is never mutated after Render.
type Snapshot struct {
	Frame         logic.Frame
	Rendered      bool // at least one frame has been rendered
	Battery       int  // percent, or -1 if unknown
	StartTime     time.Time
	Now           time.Time
	MQTTConnected bool
	Config        Config
}

// Uptime returns the duration since the gauge started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Tracker holds mutable gauge state behind an RWMutex.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
	now  func() time.Time
}

// NewTracker creates a Tracker with the given start time and config.
func NewTracker(startTime time.Time, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			StartTime: startTime,
			Battery:   -1,
			Config:    cfg,
		},
		now: time.Now,
	}
}

// Render stores the frame. Called from the tick loop on every processed tick.
func (t *Tracker) Render(f logic.Frame) error {
	t.mu.Lock()
	t.snap.Frame = f
	t.snap.Rendered = true
	t.mu.Unlock()
	return nil
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// SetBattery sets the battery percentage.
func (t *Tracker) SetBattery(pct int) {
	t.mu.Lock()
	t.snap.Battery = pct
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the gauge state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	t.mu.RUnlock()
	s.Now = t.now()
	return s
}

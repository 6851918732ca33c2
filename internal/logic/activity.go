package logic

import "time"

// ActivityMonitor implements the auto-off policy: the device powers off once
// neither the pressure nor any button has changed for the idle timeout.
type ActivityMonitor struct {
	timeout      time.Duration
	lastActivity time.Time
	lastPressure Pressure
	seen         bool // a pressure has been observed
	asleep       bool
}

// NewActivityMonitor creates a monitor whose idle clock starts at start.
func NewActivityMonitor(timeout time.Duration, start time.Time) *ActivityMonitor {
	return &ActivityMonitor{
		timeout:      timeout,
		lastActivity: start,
	}
}

// NoteUserInput records a button press.
func (a *ActivityMonitor) NoteUserInput(now time.Time) {
	a.lastActivity = now
}

// Observe records the tick's pressure and reports whether the device should
// power off now. It returns true at most once; afterwards the monitor is asleep.
func (a *ActivityMonitor) Observe(p Pressure, now time.Time) bool {
	if !a.seen || p != a.lastPressure {
		a.seen = true
		a.lastPressure = p
		a.lastActivity = now
	}

	if a.asleep {
		return false
	}
	if now.Sub(a.lastActivity) >= a.timeout {
		a.asleep = true
		return true
	}
	return false
}

// LastActivity returns the time of the most recent activity.
func (a *ActivityMonitor) LastActivity() time.Time {
	return a.lastActivity
}

// Remaining returns the time left before auto-off, never negative.
func (a *ActivityMonitor) Remaining(now time.Time) time.Duration {
	d := a.timeout - now.Sub(a.lastActivity)
	if d < 0 {
		return 0
	}
	return d
}

// Asleep reports whether the power-off decision has already fired.
func (a *ActivityMonitor) Asleep() bool {
	return a.asleep
}

package logic

import "time"

// ShotTimer accumulates the time pressure spends above the flow threshold.
// The total is cumulative until Reset; a new shot does not clear it.
type ShotTimer struct {
	threshold Pressure
	running   bool
	start     time.Time
	total     time.Duration
}

// NewShotTimer creates a stopped timer that runs while pressure > threshold.
func NewShotTimer(threshold Pressure) *ShotTimer {
	return &ShotTimer{threshold: threshold}
}

// Update advances the timer with the pressure sampled at now.
// It reports whether the timer changed state.
func (s *ShotTimer) Update(p Pressure, now time.Time) bool {
	flowing := p > s.threshold

	switch {
	case flowing && !s.running:
		s.running = true
		s.start = now
		return true
	case flowing && s.running:
		s.accumulate(now)
		return false
	case !flowing && s.running:
		// Count the last partial interval before stopping.
		s.accumulate(now)
		s.running = false
		return true
	}
	return false
}

// accumulate adds the interval since start and re-bases start to now.
func (s *ShotTimer) accumulate(now time.Time) {
	if d := now.Sub(s.start); d > 0 {
		s.total += d
	}
	s.start = now
}

// Reset clears the accumulated duration. A running timer keeps running from now.
func (s *ShotTimer) Reset(now time.Time) {
	s.total = 0
	s.start = now
}

// State returns RUNNING or STOPPED.
func (s *ShotTimer) State() TimerState {
	if s.running {
		return TimerRunning
	}
	return TimerStopped
}

// Duration returns the accumulated shot time.
func (s *ShotTimer) Duration() time.Duration {
	return s.total
}

// Snapshot returns a copy of the timer's state.
func (s *ShotTimer) Snapshot() TimerSnapshot {
	return TimerSnapshot{State: s.State(), Duration: s.total}
}

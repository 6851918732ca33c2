//go:build !linux

package power

import "log/slog"

// System is a no-op outside Linux. With DryRun it logs and succeeds.
type System struct {
	DryRun bool
}

// PowerOff is not implemented on non-Linux platforms.
func (s *System) PowerOff() error {
	return s.unsupported("power off")
}

// Restart is not implemented on non-Linux platforms.
func (s *System) Restart() error {
	return s.unsupported("restart")
}

func (s *System) unsupported(action string) error {
	if s.DryRun {
		slog.Warn("power: dry run, not performing action", "action", action)
		return nil
	}
	return ErrUnsupported
}

//go:build linux

package power

import (
	"fmt"
	"log/slog"

	"golang.org/x/sys/unix"
)

// System controls the host through the reboot syscall. Requires CAP_SYS_BOOT.
type System struct {
	// DryRun logs the action instead of performing it.
	DryRun bool
}

// PowerOff flushes filesystems and halts the machine.
func (s *System) PowerOff() error {
	return s.reboot("power off", unix.LINUX_REBOOT_CMD_POWER_OFF)
}

// Restart flushes filesystems and reboots the machine.
func (s *System) Restart() error {
	return s.reboot("restart", unix.LINUX_REBOOT_CMD_RESTART)
}

func (s *System) reboot(action string, cmd int) error {
	if s.DryRun {
		slog.Warn("power: dry run, not performing action", "action", action)
		return nil
	}
	unix.Sync()
	if err := unix.Reboot(cmd); err != nil {
		return fmt.Errorf("%s: %w", action, err)
	}
	return nil
}

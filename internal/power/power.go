// Package power switches the device off or restarts it and reports battery level.
package power

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// ErrUnsupported is returned where the host cannot control power.
var ErrUnsupported = errors.New("power: not supported on this platform")

// Controller performs terminal power actions. Neither call is expected to
// return on real hardware unless it fails.
type Controller interface {
	PowerOff() error
	Restart() error
}

// DefaultSysfsRoot is where the kernel exposes power supplies.
const DefaultSysfsRoot = "/sys/class/power_supply"

// BatteryUnknown is reported when no battery can be read.
const BatteryUnknown = -1

// ReadBattery returns the charge percentage of the first battery under root.
func ReadBattery(root string) (int, error) {
	dirs, err := filepath.Glob(filepath.Join(root, "*"))
	if err != nil {
		return BatteryUnknown, fmt.Errorf("list power supplies: %w", err)
	}
	for _, dir := range dirs {
		typ, err := os.ReadFile(filepath.Join(dir, "type"))
		if err != nil || strings.TrimSpace(string(typ)) != "Battery" {
			continue
		}
		raw, err := os.ReadFile(filepath.Join(dir, "capacity"))
		if err != nil {
			return BatteryUnknown, fmt.Errorf("read capacity: %w", err)
		}
		pct, err := strconv.Atoi(strings.TrimSpace(string(raw)))
		if err != nil {
			return BatteryUnknown, fmt.Errorf("parse capacity %q: %w", raw, err)
		}
		return pct, nil
	}
	return BatteryUnknown, fmt.Errorf("no battery under %s", root)
}

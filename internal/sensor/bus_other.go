//go:build !linux

package sensor

import "errors"

// OpenBus returns an error on non-Linux platforms.
func OpenBus(name string) (Bus, error) {
	return nil, errors.New("sensor: i2c not supported on this platform (requires Linux)")
}

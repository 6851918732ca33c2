//go:build linux

package input

import (
	"fmt"

	"github.com/warthog618/go-gpiocdev"
)

// RealReader reads buttons from actual hardware using Linux GPIO character device.
type RealReader struct {
	chip  *gpiocdev.Chip
	lines [3]*gpiocdev.Line
}

// NewRealReader requests the three button lines on chip (e.g. "gpiochip0").
// Buttons short to ground, so lines are pulled up and read active-low.
func NewRealReader(chip string, pinA, pinB, pinC int) (*RealReader, error) {
	c, err := gpiocdev.NewChip(chip)
	if err != nil {
		return nil, fmt.Errorf("open gpio chip: %w", err)
	}

	r := &RealReader{chip: c}
	for i, pin := range []int{pinA, pinB, pinC} {
		l, err := c.RequestLine(pin, gpiocdev.AsInput, gpiocdev.AsActiveLow, gpiocdev.WithPullUp)
		if err != nil {
			r.Close()
			return nil, fmt.Errorf("request button %s pin %d: %w", Button(i), pin, err)
		}
		r.lines[i] = l
	}
	return r, nil
}

// Read returns the pressed state of each button.
func (r *RealReader) Read() (Sample, error) {
	var v [3]int
	for i, l := range r.lines {
		val, err := l.Value()
		if err != nil {
			return Sample{}, fmt.Errorf("read button %s: %w", Button(i), err)
		}
		v[i] = val
	}
	// Active-low: the kernel already reports a pressed button as 1.
	return Sample{A: v[0] == 1, B: v[1] == 1, C: v[2] == 1}, nil
}

// Close releases GPIO resources.
func (r *RealReader) Close() error {
	var errs []error
	for i, l := range r.lines {
		if l == nil {
			continue
		}
		if err := l.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close button %s: %w", Button(i), err))
		}
	}
	if r.chip != nil {
		if err := r.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}

package sensor

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/sweeney/espresso-gauge/internal/logic"
)

// Synthetic produces frames that follow a slow sine wave between 0 and Peak.
// Frames are encoded through the inverse calibration, so they decode to the
// wave's value exactly as real hardware frames would.
type Synthetic struct {
	Calibration Calibration
	Peak        logic.Pressure
	Period      time.Duration
	Now         func() time.Time

	start time.Time
}

// NewSynthetic creates a source cycling 0..12 bar every 10 seconds.
func NewSynthetic(cal Calibration) *Synthetic {
	return &Synthetic{
		Calibration: cal,
		Peak:        12000,
		Period:      10 * time.Second,
		Now:         time.Now,
	}
}

// Value returns the wave's pressure at t.
func (s *Synthetic) Value(t time.Time) logic.Pressure {
	if s.start.IsZero() {
		s.start = t
	}
	phase := 2 * math.Pi * float64(t.Sub(s.start)) / float64(s.Period)
	v := 0.5 * (math.Sin(phase-math.Pi/2) + 1) * float64(s.Peak)
	return logic.Pressure(math.Round(v))
}

// Exchange fills buf with the frame for the current time.
func (s *Synthetic) Exchange(ctx context.Context, buf []byte) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	if len(buf) < FrameSize {
		return ErrShortFrame
	}
	frame := Encode(s.Calibration.Invert(s.Value(s.Now())))
	copy(buf, frame[:])
	return nil
}

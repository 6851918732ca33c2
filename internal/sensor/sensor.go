// Package sensor turns raw transducer frames into calibrated pressure.
// Frames come from an Exchanger: a real I2C bus, a synthetic sine source,
// or a scripted fake for tests.
package sensor

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/sweeney/espresso-gauge/internal/logic"
)

// FrameSize is the number of bytes in one raw ADC frame.
const FrameSize = 3

// Default bus location of the transducer (XGZP6897D-style 24-bit ADC).
const (
	DefaultAddress  = 0x6D
	DefaultRegister = 0x06
)

// Errors returned by exchangers and the reader.
var (
	ErrExchange   = errors.New("sensor: exchange failed")
	ErrTimeout    = fmt.Errorf("%w: timeout", ErrExchange)
	ErrShortFrame = fmt.Errorf("%w: short frame", ErrExchange)
)

// Exchanger reads one raw frame from the transducer into buf.
// Implementations must return once ctx is done.
type Exchanger interface {
	Exchange(ctx context.Context, buf []byte) error
}

// Decode reassembles a big-endian 24-bit frame into a signed ADC code.
func Decode(frame [FrameSize]byte) int32 {
	raw := uint32(frame[0])<<16 | uint32(frame[1])<<8 | uint32(frame[2])
	return SignExtend(raw)
}

// SignExtend interprets the low 24 bits of raw as two's complement.
func SignExtend(raw uint32) int32 {
	raw &= 0xFFFFFF
	if raw&0x800000 != 0 {
		return int32(raw) - 1<<24
	}
	return int32(raw)
}

// Encode is the inverse of Decode. Codes outside the 24-bit range are clamped.
func Encode(code int32) [FrameSize]byte {
	const lo, hi = -1 << 23, 1<<23 - 1
	if code < lo {
		code = lo
	}
	if code > hi {
		code = hi
	}
	raw := uint32(code) & 0xFFFFFF
	return [FrameSize]byte{byte(raw >> 16), byte(raw >> 8), byte(raw)}
}

// Calibration is the factory linear fit bar = A*code + B.
type Calibration struct {
	A float64 `yaml:"a"`
	B float64 `yaml:"b"`
}

// DefaultCalibration maps the full positive code range to roughly 20 bar
// with a 0.25 bar zero offset.
var DefaultCalibration = Calibration{A: 2.5e-6, B: -0.25}

// Apply converts an ADC code to millibar, rounding to the nearest unit.
// Negative results are clamped to 0.
func (c Calibration) Apply(code int32) logic.Pressure {
	mbar := math.Round((c.A*float64(code) + c.B) * 1000)
	if mbar < 0 {
		return 0
	}
	if mbar > math.MaxInt32 {
		return math.MaxInt32
	}
	return logic.Pressure(mbar)
}

// Invert returns the ADC code that calibrates to p.
func (c Calibration) Invert(p logic.Pressure) int32 {
	if c.A == 0 {
		return 0
	}
	code := math.Round((p.Bar() - c.B) / c.A)
	return int32(math.Max(math.Min(code, math.MaxInt32), math.MinInt32))
}

package sensor

import (
	"context"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/sweeney/espresso-gauge/internal/logic"
)

// HexError is the diagnostic raw data shown after a failed exchange.
const HexError = "error"

// Config controls acquisition. Zero fields take the defaults below.
type Config struct {
	Calibration Calibration
	Samples     int            // acquisitions averaged per Read; default 3
	Settle      time.Duration  // delay between acquisitions; default 5ms
	Timeout     time.Duration  // bound on a single exchange; default 100ms
	MaxRange    logic.Pressure // sensor full scale; default 20000 mbar
}

// Reader samples an Exchanger and returns calibrated pressure.
// Not safe for concurrent use.
type Reader struct {
	src   Exchanger
	cfg   Config
	sleep func(ctx context.Context, d time.Duration) error

	buf [FrameSize]byte
	hex string
}

// NewReader creates a Reader over src.
func NewReader(src Exchanger, cfg Config) *Reader {
	if cfg.Calibration == (Calibration{}) {
		cfg.Calibration = DefaultCalibration
	}
	if cfg.Samples <= 0 {
		cfg.Samples = 3
	}
	if cfg.Settle < 0 {
		cfg.Settle = 0
	} else if cfg.Settle == 0 {
		cfg.Settle = 5 * time.Millisecond
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 100 * time.Millisecond
	}
	if cfg.MaxRange <= 0 {
		cfg.MaxRange = 20000
	}
	return &Reader{src: src, cfg: cfg, sleep: sleepCtx}
}

// Read performs Samples acquisitions, averages their calibrated values and
// returns the result. Any failed acquisition fails the whole Read; there are
// no retries.
func (r *Reader) Read(ctx context.Context) (logic.Pressure, error) {
	var sum int64
	for i := 0; i < r.cfg.Samples; i++ {
		if i > 0 && r.cfg.Settle > 0 {
			if err := r.sleep(ctx, r.cfg.Settle); err != nil {
				return 0, fmt.Errorf("settle: %w", err)
			}
		}
		p, err := r.acquire(ctx)
		if err != nil {
			return 0, fmt.Errorf("sample %d: %w", i, err)
		}
		sum += int64(p)
	}
	n := int64(r.cfg.Samples)
	return logic.Pressure((sum + n/2) / n), nil
}

func (r *Reader) acquire(ctx context.Context) (logic.Pressure, error) {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.Timeout)
	defer cancel()

	if err := r.src.Exchange(ctx, r.buf[:]); err != nil {
		r.hex = HexError
		return 0, err
	}
	r.hex = strings.ToUpper(hex.EncodeToString(r.buf[:]))
	return r.cfg.Calibration.Apply(Decode(r.buf)), nil
}

// HexData returns the last raw frame as hex, HexError after a failed
// exchange, or "" before the first read.
func (r *Reader) HexData() string {
	return r.hex
}

// MaxRange returns the sensor's declared full-scale pressure.
func (r *Reader) MaxRange() logic.Pressure {
	return r.cfg.MaxRange
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

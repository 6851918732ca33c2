// Package console writes one text line per frame to a serial port.
package console

import (
	"fmt"
	"io"
	"strings"
	"time"

	"go.bug.st/serial"
	"periph.io/x/conn/v3/physic"

	"github.com/sweeney/espresso-gauge/internal/logic"
)

// DefaultBaudRate matches the firmware's debug port.
const DefaultBaudRate = 115200

// Writer renders frames as lines of key=value pairs.
type Writer struct {
	w io.Writer
	c io.Closer
}

// NewWriter creates a Writer over w.
func NewWriter(w io.Writer) *Writer {
	wr := &Writer{w: w}
	if c, ok := w.(io.Closer); ok {
		wr.c = c
	}
	return wr
}

// Open opens a serial port and returns a Writer on it.
func Open(port string, baud int) (*Writer, error) {
	if baud <= 0 {
		baud = DefaultBaudRate
	}
	p, err := serial.Open(port, &serial.Mode{BaudRate: baud})
	if err != nil {
		return nil, fmt.Errorf("open serial port %s: %w", port, err)
	}
	return NewWriter(p), nil
}

// Render writes f as a single line.
func (w *Writer) Render(f logic.Frame) error {
	if _, err := io.WriteString(w.w, FormatLine(f)+"\r\n"); err != nil {
		return fmt.Errorf("console write: %w", err)
	}
	return nil
}

// Close closes the underlying port, if any.
func (w *Writer) Close() error {
	if w.c == nil {
		return nil
	}
	return w.c.Close()
}

// SI converts millibar to a periph pressure value.
func SI(p logic.Pressure) physic.Pressure {
	return physic.Pressure(p) * 100 * physic.Pascal
}

// FormatLine renders f without a line terminator, e.g.
//
//	07:00:00.020 p=9.250bar (925kPa) zone=WARNING shot=RUNNING/12.3s tel=OK
func FormatLine(f logic.Frame) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s p=%.3fbar (%s) zone=%s", f.Time.Format("15:04:05.000"), f.Pressure.Bar(), SI(f.Pressure), f.Severity.Zone)
	if f.Severity.Alarm {
		b.WriteString(" STOP!")
	}
	fmt.Fprintf(&b, " shot=%s/%.1fs tel=%s", f.Timer.State, f.Timer.Duration.Seconds(), f.Telemetry)
	if !f.SensorOK {
		b.WriteString(" sensor=ERR")
	}
	if d := f.Debug; d != nil {
		fmt.Fprintf(&b, " raw=%s last=%s off_in=%s", d.SensorHex, d.LastActivity.Format("15:04:05"), d.PowerOffIn.Truncate(time.Second))
	}
	return b.String()
}

// Package input provides button reading with hardware abstraction.
// The real implementation uses the Linux GPIO character device.
// The fake implementation allows testing without hardware.
package input

import "fmt"

// Button identifies one of the gauge's three front buttons.
type Button int

const (
	ButtonA Button = iota // debug overlay
	ButtonB               // telemetry on/off
	ButtonC               // restart
)

func (b Button) String() string {
	switch b {
	case ButtonA:
		return "A"
	case ButtonB:
		return "B"
	case ButtonC:
		return "C"
	}
	return fmt.Sprintf("Button(%d)", int(b))
}

// Default pin definitions (BCM numbering).
const (
	DefaultPinA = 5
	DefaultPinB = 6
	DefaultPinC = 13
)

// Sample is the pressed state of every button at one instant.
type Sample struct {
	A bool // true = pressed
	B bool
	C bool
}

// Reader reads button levels.
type Reader interface {
	// Read returns which buttons are currently held down.
	Read() (Sample, error)

	// Close releases GPIO resources.
	Close() error
}

// Poller turns level samples into press events.
type Poller struct {
	r    Reader
	prev Sample
}

// NewPoller creates a Poller. Buttons already held when polling starts do not
// count as presses.
func NewPoller(r Reader) *Poller {
	return &Poller{r: r}
}

// Poll reads the buttons and returns those that went down since the last
// poll, in A, B, C order.
func (p *Poller) Poll() ([]Button, error) {
	s, err := p.r.Read()
	if err != nil {
		return nil, err
	}
	var pressed []Button
	if s.A && !p.prev.A {
		pressed = append(pressed, ButtonA)
	}
	if s.B && !p.prev.B {
		pressed = append(pressed, ButtonB)
	}
	if s.C && !p.prev.C {
		pressed = append(pressed, ButtonC)
	}
	p.prev = s
	return pressed, nil
}

package sensor

import (
	"context"
	"errors"
)

// FakeExchanger is a test double that returns scripted frames.
type FakeExchanger struct {
	// Frames contains scripted raw frames. Each Exchange consumes the next one;
	// once exhausted the last frame repeats.
	Frames [][FrameSize]byte

	// ExchangeError, if set, is returned by every Exchange.
	ExchangeError error

	// Calls counts Exchange invocations.
	Calls int

	index int
}

// NewFakeExchanger creates a FakeExchanger with the given frames.
func NewFakeExchanger(frames ...[FrameSize]byte) *FakeExchanger {
	return &FakeExchanger{Frames: frames}
}

// Exchange copies the next scripted frame into buf.
func (f *FakeExchanger) Exchange(ctx context.Context, buf []byte) error {
	f.Calls++
	if f.ExchangeError != nil {
		return f.ExchangeError
	}
	if len(f.Frames) == 0 {
		return errors.New("no frames configured")
	}

	frame := f.Frames[f.index]
	if f.index < len(f.Frames)-1 {
		f.index++
	}
	copy(buf, frame[:])
	return nil
}

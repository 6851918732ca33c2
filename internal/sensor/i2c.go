package sensor

import (
	"context"
	"fmt"
	"io"
	"sync/atomic"

	"tinygo.org/x/drivers"
)

// Bus is an I2C bus that can be released.
type Bus interface {
	drivers.I2C
	io.Closer
}

// I2CExchanger reads frames from a fixed device register.
//
// drivers.I2C transfers cannot be cancelled, so a transfer that outlives ctx
// keeps the exchanger busy and later calls fail fast until it returns.
type I2CExchanger struct {
	bus  drivers.I2C
	addr uint16
	reg  byte
	busy atomic.Bool
}

// NewI2CExchanger creates an exchanger for the device at addr, reading reg.
func NewI2CExchanger(bus drivers.I2C, addr uint16, reg byte) *I2CExchanger {
	return &I2CExchanger{bus: bus, addr: addr, reg: reg}
}

type txResult struct {
	data []byte
	err  error
}

// Exchange writes the register address and reads len(buf) bytes back with a
// repeated start.
func (e *I2CExchanger) Exchange(ctx context.Context, buf []byte) error {
	if !e.busy.CompareAndSwap(false, true) {
		return fmt.Errorf("%w: bus busy with a timed-out transfer", ErrExchange)
	}

	done := make(chan txResult, 1)
	go func() {
		defer e.busy.Store(false)
		r := make([]byte, len(buf))
		err := e.bus.Tx(e.addr, []byte{e.reg}, r)
		done <- txResult{data: r, err: err}
	}()

	select {
	case res := <-done:
		if res.err != nil {
			return fmt.Errorf("%w: i2c 0x%02X reg 0x%02X: %v", ErrExchange, e.addr, e.reg, res.err)
		}
		copy(buf, res.data)
		return nil
	case <-ctx.Done():
		return fmt.Errorf("%w: i2c 0x%02X: %v", ErrTimeout, e.addr, ctx.Err())
	}
}

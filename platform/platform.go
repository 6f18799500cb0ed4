// Package platform supplies I²C buses to the acquisition drivers: real
// /dev/i2c-N buses on Linux, or simulated buses carrying MS4525 and ETS
// sensors for hosts without hardware.
package platform

import (
	"fmt"
	"log/slog"
	"sync"

	"tinygo.org/x/drivers"
)

// I2CFactory hands out buses by number. Repeated calls for the same bus
// return the same handle so that sessions on one bus share its lock.
type I2CFactory interface {
	ByNumber(bus int, frequency uint32) (drivers.I2C, error)
	Close() error
}

// DefaultFrequency is used when a start request does not name one.
const DefaultFrequency = 100000

// MaxBus is the highest bus number a device id can carry.
const MaxBus = 31

// New returns the simulated factory when simulate is set, and the hardware
// factory otherwise.
func New(simulate bool, log *slog.Logger) I2CFactory {
	if log == nil {
		log = slog.Default()
	}
	if simulate {
		return NewSim(log)
	}
	return newHardware(log)
}

func checkBus(bus int) error {
	if bus < 0 || bus > MaxBus {
		return fmt.Errorf("platform: bus %d out of range 0..%d", bus, MaxBus)
	}
	return nil
}

// lockedI2C serialises transfers on a shared bus.
type lockedI2C struct {
	mu  sync.Mutex
	bus drivers.I2C
}

func (l *lockedI2C) Tx(addr uint16, w, r []byte) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.bus.Tx(addr, w, r)
}

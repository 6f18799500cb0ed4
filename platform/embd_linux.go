//go:build linux

package platform

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/kidoman/embd"
	_ "github.com/kidoman/embd/host/all"
	"tinygo.org/x/drivers"

	"airspeed-go/errcode"
)

// embdI2C adapts an embd bus to the drivers.I2C transfer shape. A transfer
// with both halves is issued as a write followed by a read.
type embdI2C struct {
	bus embd.I2CBus
}

func (e *embdI2C) Tx(addr uint16, w, r []byte) error {
	if len(w) > 0 {
		if err := e.bus.WriteBytes(byte(addr), w); err != nil {
			return err
		}
	}
	if len(r) > 0 {
		b, err := e.bus.ReadBytes(byte(addr), len(r))
		if err != nil {
			return err
		}
		if len(b) != len(r) {
			return fmt.Errorf("short read: %d of %d bytes", len(b), len(r))
		}
		copy(r, b)
	}
	return nil
}

type hardware struct {
	log *slog.Logger

	mu    sync.Mutex
	init  bool
	buses map[int]*lockedI2C
}

func newHardware(log *slog.Logger) I2CFactory {
	return &hardware{log: log, buses: map[int]*lockedI2C{}}
}

func (h *hardware) ByNumber(bus int, frequency uint32) (drivers.I2C, error) {
	if err := checkBus(bus); err != nil {
		return nil, errcode.Wrap(errcode.UnknownBus, "platform", err)
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if b, ok := h.buses[bus]; ok {
		return b, nil
	}
	if !h.init {
		if err := embd.InitI2C(); err != nil {
			return nil, errcode.Wrap(errcode.InitFailed, "platform: i2c", err)
		}
		h.init = true
	}

	// The kernel driver owns the clock rate.
	if frequency != 0 && frequency != DefaultFrequency {
		h.log.Warn("i2c frequency is set by the kernel, ignoring", "bus", bus, "frequency", frequency)
	}

	b := &lockedI2C{bus: &embdI2C{bus: embd.NewI2CBus(byte(bus))}}
	h.buses[bus] = b
	h.log.Info("i2c bus opened", "bus", bus)
	return b, nil
}

func (h *hardware) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.init {
		return nil
	}
	h.buses = map[int]*lockedI2C{}
	h.init = false
	return embd.CloseI2C()
}

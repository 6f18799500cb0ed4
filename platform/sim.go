package platform

import (
	"encoding/binary"
	"errors"
	"log/slog"
	"math"
	"sync"

	"tinygo.org/x/drivers"

	"airspeed-go/drivers/ets"
	"airspeed-go/drivers/ms4525"
	"airspeed-go/errcode"
)

// ErrNoDevice is returned for transfers to an address with nothing attached.
var ErrNoDevice = errors.New("platform: no device at address")

// SimDevice is a device attached to a simulated bus.
type SimDevice interface {
	Write(w []byte) error
	Read(r []byte) error
}

// SimBus is an in-memory I²C bus.
type SimBus struct {
	mu      sync.Mutex
	devices map[uint16]SimDevice
}

var _ drivers.I2C = (*SimBus)(nil)

func NewSimBus() *SimBus { return &SimBus{devices: map[uint16]SimDevice{}} }

// Attach places dev at addr, replacing whatever was there.
func (b *SimBus) Attach(addr uint16, dev SimDevice) {
	b.mu.Lock()
	b.devices[addr] = dev
	b.mu.Unlock()
}

func (b *SimBus) Tx(addr uint16, w, r []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	dev, ok := b.devices[addr]
	if !ok {
		return ErrNoDevice
	}
	if len(w) > 0 {
		if err := dev.Write(w); err != nil {
			return err
		}
	}
	if len(r) > 0 {
		return dev.Read(r)
	}
	return nil
}

// Sim is the simulated factory. Each bus it opens carries an MS4525 at both
// variant addresses and an ETS sensor at its default address.
type Sim struct {
	log *slog.Logger

	mu    sync.Mutex
	buses map[int]*SimBus
}

func NewSim(log *slog.Logger) *Sim {
	if log == nil {
		log = slog.Default()
	}
	return &Sim{log: log, buses: map[int]*SimBus{}}
}

func (s *Sim) ByNumber(bus int, _ uint32) (drivers.I2C, error) {
	if err := checkBus(bus); err != nil {
		return nil, errcode.Wrap(errcode.UnknownBus, "platform", err)
	}
	return s.Bus(bus), nil
}

// Bus returns the simulated bus, populating it on first use.
func (s *Sim) Bus(bus int) *SimBus {
	s.mu.Lock()
	defer s.mu.Unlock()
	if b, ok := s.buses[bus]; ok {
		return b
	}
	b := NewSimBus()
	b.Attach(ms4525.Address4525, NewSimMS4525(120, 21))
	b.Attach(ms4525.Address4515, NewSimMS4525(-40, 19))
	b.Attach(ets.Address, NewSimETS(95))
	s.buses[bus] = b
	s.log.Info("simulated i2c bus", "bus", bus)
	return b
}

func (s *Sim) Close() error { return nil }

// SimMS4525 answers the MS4525 protocol. Each conversion dithers both counts
// by one so that consecutive frames always differ.
type SimMS4525 struct {
	mu       sync.Mutex
	psi      float32
	celsius  float32
	status   ms4525.Status
	fresh    bool
	dither   uint16
	Failures int // pending transfers to NACK
}

// NewSimMS4525 creates a sensor reading pa pascals at celsius degrees.
func NewSimMS4525(pa, celsius float32) *SimMS4525 {
	d := &SimMS4525{}
	d.Set(pa, celsius)
	return d
}

// Set changes the simulated pressure and temperature.
func (d *SimMS4525) Set(pa, celsius float32) {
	d.mu.Lock()
	d.psi = pa / ms4525.PascalsPerPSI
	d.celsius = celsius
	d.mu.Unlock()
}

// SetStatus forces the status bits of subsequent frames.
func (d *SimMS4525) SetStatus(st ms4525.Status) {
	d.mu.Lock()
	d.status = st
	d.mu.Unlock()
}

func (d *SimMS4525) Write(w []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.Failures > 0 {
		d.Failures--
		return ErrNoDevice
	}
	d.fresh = true
	d.dither ^= 1
	return nil
}

func (d *SimMS4525) Read(r []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.Failures > 0 {
		d.Failures--
		return ErrNoDevice
	}
	st := d.status
	if st == ms4525.StatusNormal && !d.fresh {
		st = ms4525.StatusStale
	}
	d.fresh = false
	f := ms4525.Encode(st,
		ms4525.CountsForPSI(d.psi)+d.dither,
		ms4525.CountsForCelsius(d.celsius)+d.dither)
	copy(r, f[:])
	return nil
}

// SimETS answers the ETS protocol with a fixed pressure.
type SimETS struct {
	mu sync.Mutex
	pa uint16
}

func NewSimETS(pa float32) *SimETS {
	return &SimETS{pa: uint16(math.Max(0, float64(pa)))}
}

func (d *SimETS) Write([]byte) error { return nil }

func (d *SimETS) Read(r []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], d.pa)
	copy(r, b[:])
	return nil
}

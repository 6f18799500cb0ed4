// Package ms4525 provides a driver for the MEAS MS4525DO and MS4515DO digital
// differential pressure sensors. It exposes a two-phase measurement API:
//
//	d.Measure()          // command a conversion (single 0x00 byte)
//	r, err := d.Collect() // read the 4-byte result one conversion later
//
// Collect returns ErrStale or ErrReserved when no new data is available and
// ErrFault when the sensor reports a fault. The conversion helpers on Raw are
// pure and may be used without a device.
//
// Datasheet: http://www.meas-spec.com/downloads/MS4525DO.pdf
package ms4525

import (
	"strconv"
	"time"

	"tinygo.org/x/drivers"

	"airspeed-go/errcode"
	"airspeed-go/x/timex"
)

// I2C addresses. The MS4525DO address depends on the order code; 0x28 is
// code "I".
const (
	Address4525 = 0x28
	Address4515 = 0x46
)

// DevType identifies the sensor family inside a packed device id.
const DevType = 0x1C

// MeasurementRate is the sensor's internal conversion rate in Hz.
const MeasurementRate = 100

const cmdMeasure = 0x00

// Type selects a device variant.
type Type int

const (
	Type4525 Type = 4525
	Type4515 Type = 4515
)

// ParseType accepts "4525" or "4515". Any other number selects the 4515.
func ParseType(s string) (Type, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, &errcode.E{C: errcode.Usage, Op: "ms4525", Msg: "device type must be 4525 or 4515"}
	}
	if Type(n) == Type4525 {
		return Type4525, nil
	}
	return Type4515, nil
}

// Address returns the bus address of the variant.
func (t Type) Address() uint16 {
	if t == Type4525 {
		return Address4525
	}
	return Address4515
}

func (t Type) String() string { return strconv.Itoa(int(t)) }

// ConversionInterval is the minimum time between Measure and Collect.
func ConversionInterval() time.Duration {
	return timex.PeriodFromHz(MeasurementRate)
}

// Config controls non-hardware behaviour. All fields are optional.
type Config struct {
	// Type defaults to Type4525.
	Type Type
	// Address overrides the variant's default address if non-zero.
	Address uint16
}

// Device wraps an I2C connection to an MS4525 family sensor.
type Device struct {
	bus     drivers.I2C
	Address uint16
	Type    Type

	cmd [1]byte
	buf [4]byte // reused read buffer
}

// New creates a new MS4525 connection. The I2C bus must already be configured.
// This function does not touch the device.
func New(bus drivers.I2C) Device {
	return Device{
		bus:     bus,
		Address: Address4525,
		Type:    Type4525,
	}
}

// Configure applies optional config.
func (d *Device) Configure(cfg Config) {
	if cfg.Type != 0 {
		d.Type = cfg.Type
	}
	d.Address = d.Type.Address()
	if cfg.Address != 0 {
		d.Address = cfg.Address
	}
}

// Measure commands a conversion. Bus failures are returned wrapped in
// errcode.CommsError.
func (d *Device) Measure() error {
	d.cmd[0] = cmdMeasure
	if err := d.bus.Tx(d.Address, d.cmd[:], nil); err != nil {
		return errcode.Wrap(errcode.CommsError, "ms4525: measure", err)
	}
	return nil
}

// Collect reads and decodes one 4-byte result.
func (d *Device) Collect() (Raw, error) {
	if err := d.bus.Tx(d.Address, nil, d.buf[:]); err != nil {
		return Raw{}, errcode.Wrap(errcode.CommsError, "ms4525: collect", err)
	}
	return Decode(d.buf)
}

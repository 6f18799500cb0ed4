// Package ets provides a driver for the Eagle Tree Airspeed V3 sensor. The
// sensor reports differential pressure in pascals directly and has no
// temperature output.
//
// The V3 cannot resolve speeds below about 15 km/h and reports zero there.
package ets

import (
	"time"

	"tinygo.org/x/drivers"

	"airspeed-go/errcode"
	"airspeed-go/x/timex"
)

// Address is the 7-bit address (0xEA in 8-bit form).
const Address = 0x75

// DevType identifies the sensor family inside a packed device id.
const DevType = 0x1B

// MeasurementRate is the conversion rate in Hz.
const MeasurementRate = 100

const cmdRead = 0x07

// ConversionInterval is the minimum time between Measure and Collect.
func ConversionInterval() time.Duration {
	return timex.PeriodFromHz(MeasurementRate)
}

// Device wraps an I2C connection to an ETS airspeed sensor.
type Device struct {
	bus     drivers.I2C
	Address uint16

	cmd [1]byte
	buf [2]byte
}

func New(bus drivers.I2C) Device {
	return Device{bus: bus, Address: Address}
}

// Measure sends the read command.
func (d *Device) Measure() error {
	d.cmd[0] = cmdRead
	if err := d.bus.Tx(d.Address, d.cmd[:], nil); err != nil {
		return errcode.Wrap(errcode.CommsError, "ets: measure", err)
	}
	return nil
}

// Collect reads the little-endian pressure word.
func (d *Device) Collect() (uint16, error) {
	if err := d.bus.Tx(d.Address, nil, d.buf[:]); err != nil {
		return 0, errcode.Wrap(errcode.CommsError, "ets: collect", err)
	}
	return uint16(d.buf[1])<<8 | uint16(d.buf[0]), nil
}

// PressurePa converts a raw reading. A zero reading is replaced by 0 or
// 0.001 Pa depending on the sample time so consumers can still tell a live
// sensor from a stuck one.
func PressurePa(raw uint16, ts time.Time) float32 {
	if raw == 0 {
		return 0.001 * float32(ts.UnixMicro()&0x01)
	}
	return float32(raw)
}

package acquire

import (
	"math"
	"time"

	"tinygo.org/x/drivers"

	"airspeed-go/drivers/ets"
	"airspeed-go/types"
)

// ETS adapts the Eagle Tree driver to Sensor. Every reading is published.
type ETS struct {
	dev ets.Device
	id  types.DeviceID
}

func NewETS(bus drivers.I2C, busNum int, addr uint16) *ETS {
	dev := ets.New(bus)
	if addr != 0 {
		dev.Address = addr
	}
	return &ETS{
		dev: dev,
		id:  types.MakeDeviceID(types.BusTypeI2C, uint8(busNum), uint8(dev.Address), ets.DevType),
	}
}

func (e *ETS) Measure() error                    { return e.dev.Measure() }
func (e *ETS) ConversionInterval() time.Duration { return ets.ConversionInterval() }
func (e *ETS) DeviceID() types.DeviceID          { return e.id }
func (e *ETS) Address() uint16                   { return e.dev.Address }

func (e *ETS) Collect(ts time.Time) (Reading, bool, error) {
	raw, err := e.dev.Collect()
	if err != nil {
		return Reading{}, false, err
	}
	return Reading{
		TimestampSample: ts,
		PressurePa:      ets.PressurePa(raw, ts),
		Temperature:     float32(math.NaN()),
	}, true, nil
}

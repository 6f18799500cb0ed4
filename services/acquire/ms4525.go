package acquire

import (
	"time"

	"tinygo.org/x/drivers"

	"airspeed-go/drivers/ms4525"
	"airspeed-go/types"
)

// MS4525 adapts the ms4525 driver to Sensor and holds the previous-sample
// cache used for change suppression.
type MS4525 struct {
	dev ms4525.Device
	id  types.DeviceID

	prevPressure    uint16
	prevTemperature uint16
}

func NewMS4525(bus drivers.I2C, busNum int, cfg ms4525.Config) *MS4525 {
	dev := ms4525.New(bus)
	dev.Configure(cfg)
	return &MS4525{
		dev: dev,
		id:  types.MakeDeviceID(types.BusTypeI2C, uint8(busNum), uint8(dev.Address), ms4525.DevType),
	}
}

func (m *MS4525) Measure() error                    { return m.dev.Measure() }
func (m *MS4525) ConversionInterval() time.Duration { return ms4525.ConversionInterval() }
func (m *MS4525) DeviceID() types.DeviceID          { return m.id }
func (m *MS4525) Device() *ms4525.Device            { return &m.dev }

func (m *MS4525) Collect(ts time.Time) (Reading, bool, error) {
	r, err := m.dev.Collect()
	if err != nil {
		return Reading{}, false, err
	}

	// Only changes are published, and both counts have to move. A reading
	// where just one of them changed is dropped.
	if r.Pressure == m.prevPressure || r.Temperature == m.prevTemperature {
		return Reading{}, false, nil
	}
	m.prevPressure = r.Pressure
	m.prevTemperature = r.Temperature

	return Reading{
		TimestampSample: ts,
		PressurePa:      r.DifferentialPa(),
		Temperature:     r.Celsius(),
	}, true, nil
}

package types

import (
	"encoding/json"
	"fmt"
	"math"
	"time"
)

// BusType is the transport a device sits on.
type BusType uint8

const (
	BusTypeUnknown BusType = 0
	BusTypeI2C     BusType = 1
	BusTypeSPI     BusType = 2
)

// DeviceID packs bus type, bus number, address and device type into 32 bits:
// bus_type[0:3] bus[3:8] address[8:16] devtype[16:24].
type DeviceID uint32

func MakeDeviceID(bt BusType, bus uint8, addr uint8, devType uint8) DeviceID {
	return DeviceID(uint32(bt)&0x7 | (uint32(bus)&0x1F)<<3 | uint32(addr)<<8 | uint32(devType)<<16)
}

func (d DeviceID) BusType() BusType { return BusType(d & 0x7) }
func (d DeviceID) Bus() uint8       { return uint8(d>>3) & 0x1F }
func (d DeviceID) Address() uint8   { return uint8(d >> 8) }
func (d DeviceID) DevType() uint8   { return uint8(d >> 16) }

func (d DeviceID) String() string {
	return fmt.Sprintf("%d:%d:0x%02x:0x%02x", d.BusType(), d.Bus(), d.Address(), d.DevType())
}

// DifferentialPressure is one accepted sample published by a driver session.
type DifferentialPressure struct {
	TimestampSample        time.Time `json:"timestamp_sample"`
	DeviceID               DeviceID  `json:"device_id"`
	DifferentialPressurePa float32   `json:"differential_pressure_pa"`
	Temperature            float32   `json:"temperature"` // °C, NaN if the sensor has none
	ErrorCount             uint64    `json:"error_count"`
	Timestamp              time.Time `json:"timestamp"` // publish time
}

// Airspeed is derived from averaged differential pressure samples.
type Airspeed struct {
	TimestampSample       time.Time `json:"timestamp_sample"`
	DeviceID              DeviceID  `json:"device_id"`
	IndicatedAirspeedMS   float32   `json:"indicated_airspeed_m_s"`
	TrueAirspeedMS        float32   `json:"true_airspeed_m_s"`
	AirTemperatureCelsius float32   `json:"air_temperature_celsius"`
	Samples               int       `json:"samples"`
	Timestamp             time.Time `json:"timestamp"`
}

// MarshalJSON writes a missing temperature as null.
func (s DifferentialPressure) MarshalJSON() ([]byte, error) {
	type plain DifferentialPressure
	return json.Marshal(struct {
		plain
		Temperature *float32 `json:"temperature"`
	}{plain(s), finite(s.Temperature)})
}

// MarshalJSON writes a missing temperature as null.
func (a Airspeed) MarshalJSON() ([]byte, error) {
	type plain Airspeed
	return json.Marshal(struct {
		plain
		AirTemperatureCelsius *float32 `json:"air_temperature_celsius"`
	}{plain(a), finite(a.AirTemperatureCelsius)})
}

func finite(v float32) *float32 {
	if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
		return nil
	}
	return &v
}

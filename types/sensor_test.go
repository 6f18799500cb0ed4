package types

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeviceIDPacking(t *testing.T) {
	id := MakeDeviceID(BusTypeI2C, 1, 0x28, 0x1C)

	assert.Equal(t, BusTypeI2C, id.BusType())
	assert.Equal(t, uint8(1), id.Bus())
	assert.Equal(t, uint8(0x28), id.Address())
	assert.Equal(t, uint8(0x1C), id.DevType())
	assert.Equal(t, uint32(0x1C2809), uint32(id))
	assert.Equal(t, "1:1:0x28:0x1c", id.String())
}

func TestMissingTemperatureEncodesAsNull(t *testing.T) {
	b, err := json.Marshal(DifferentialPressure{DifferentialPressurePa: 12, Temperature: float32(math.NaN())})
	require.NoError(t, err)

	var m map[string]any
	require.NoError(t, json.Unmarshal(b, &m))
	assert.Nil(t, m["temperature"])
	assert.Contains(t, m, "temperature")
	assert.Equal(t, 12.0, m["differential_pressure_pa"])

	b, err = json.Marshal(Airspeed{AirTemperatureCelsius: 20})
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(b, &m))
	assert.Equal(t, 20.0, m["air_temperature_celsius"])
}

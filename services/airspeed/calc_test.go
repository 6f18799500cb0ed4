package airspeed

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIndicated(t *testing.T) {
	// 0.5·ρ·v² at 20 m/s
	q := float32(0.5 * AirDensitySeaLevel * 20 * 20)
	assert.InDelta(t, 20, Indicated(q, AirDensitySeaLevel), 1e-4)
	assert.InDelta(t, -20, Indicated(-q, AirDensitySeaLevel), 1e-4)
	assert.Zero(t, Indicated(0, AirDensitySeaLevel))
}

func TestTrueFromCalibrated(t *testing.T) {
	// Standard day at sea level: TAS equals CAS.
	assert.InDelta(t, 30, TrueFromCalibrated(30, StandardPressurePa, StandardTempC), 0.05)

	// Thinner air reads a higher true airspeed.
	assert.Greater(t, TrueFromCalibrated(30, 70000, StandardTempC), float32(35))

	nan := float32(math.NaN())
	assert.Equal(t, TrueFromCalibrated(30, 90000, StandardTempC), TrueFromCalibrated(30, 90000, nan))
}

func TestAirDensity(t *testing.T) {
	assert.InDelta(t, AirDensitySeaLevel, AirDensity(StandardPressurePa, StandardTempC), 0.002)
}

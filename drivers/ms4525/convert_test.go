package ms4525

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMidScaleIsZero(t *testing.T) {
	r := Raw{Pressure: 8192}
	assert.InDelta(t, 0.0, r.DifferentialPSI(), 1e-3)
	assert.InDelta(t, 0.0, r.DifferentialPa(), 1.0)
}

func TestFullScaleEndpoints(t *testing.T) {
	// 10% of span is -1 psi on the datasheet curve; negated, +1 psi.
	low := Raw{Pressure: 1638}
	assert.InDelta(t, 1.0, low.DifferentialPSI(), 1e-3)
	assert.InDelta(t, 6894.757, low.DifferentialPa(), 5)

	high := Raw{Pressure: 14745}
	assert.InDelta(t, -1.0, high.DifferentialPSI(), 1e-3)
}

func TestTopPortHigherPressureIsPositive(t *testing.T) {
	r := Raw{Pressure: CountsForPSI(0.2)}
	assert.Greater(t, r.DifferentialPa(), float32(0))
	assert.InDelta(t, 0.2*6894.757, r.DifferentialPa(), 2)
}

func TestTemperature(t *testing.T) {
	assert.InDelta(t, -50.0, Raw{Temperature: 0}.Celsius(), 1e-4)
	assert.InDelta(t, 150.0, Raw{Temperature: 2047}.Celsius(), 1e-4)
	assert.InDelta(t, 25.0, Raw{Temperature: CountsForCelsius(25)}.Celsius(), 0.1)
}

func TestCountsClamp(t *testing.T) {
	assert.Equal(t, uint16(0), CountsForPSI(5))
	assert.Equal(t, uint16(16383), CountsForPSI(-5))
	assert.Equal(t, uint16(2047), CountsForCelsius(500))
	assert.Equal(t, uint16(0), CountsForCelsius(-100))
}

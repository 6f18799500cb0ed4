package ms4525

// Transfer function constants for the ±1 psi differential part.
const (
	countsFullScale = 16383
	pMinPSI         = -1.0
	pMaxPSI         = 1.0
)

const PascalsPerPSI = 6894.757

// Celsius returns the temperature in °C.
func (r Raw) Celsius() float32 {
	return ((200.0 * float32(r.Temperature)) / 2047) - 50
}

// DifferentialPSI inverts the datasheet pressure transfer function
// (output = 80% span centred at 50%). The result is negated so that a higher
// pressure on the top port (the dynamic port of a pitot) reads positive.
func (r Raw) DifferentialPSI() float32 {
	return -((float32(r.Pressure)-0.1*countsFullScale)*(pMaxPSI-pMinPSI)/(0.8*countsFullScale) + pMinPSI)
}

// DifferentialPa returns the differential pressure in pascals. Positive
// means the top port sees the higher pressure.
func (r Raw) DifferentialPa() float32 {
	return r.DifferentialPSI() * PascalsPerPSI
}

// CountsForPSI is the inverse of DifferentialPSI rounded to the nearest count.
// Simulators use it to synthesise responses.
func CountsForPSI(psi float32) uint16 {
	c := ((-psi-pMinPSI)*(0.8*countsFullScale))/(pMaxPSI-pMinPSI) + 0.1*countsFullScale
	if c < 0 {
		return 0
	}
	if c > countsFullScale {
		return countsFullScale
	}
	return uint16(c + 0.5)
}

// CountsForCelsius is the inverse of Celsius rounded to the nearest count.
func CountsForCelsius(c float32) uint16 {
	n := (c + 50) * 2047 / 200
	if n < 0 {
		return 0
	}
	if n > 2047 {
		return 2047
	}
	return uint16(n + 0.5)
}

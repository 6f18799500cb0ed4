package airspeed

import (
	"math"

	"airspeed-go/x/mathx"
)

const (
	AirDensitySeaLevel = 1.225   // kg/m³, ISA at 15 °C
	StandardPressurePa = 101325  // Pa
	AirGasConstant     = 287.1   // J/(kg·K)
	AbsoluteNullC      = -273.15 // °C
	StandardTempC      = 15      // °C
)

// Indicated converts a differential pressure to indicated airspeed.
// Negative pressure gives a negative speed.
func Indicated(dpPa, rho0 float32) float32 {
	v := float32(math.Sqrt(2 * math.Abs(float64(dpPa)) / float64(rho0)))
	return mathx.CopySign(v, dpPa)
}

// AirDensity from static pressure and temperature.
func AirDensity(staticPa, tempC float32) float32 {
	return staticPa / (AirGasConstant * (tempC - AbsoluteNullC))
}

// TrueFromCalibrated scales calibrated airspeed by the density ratio. A
// missing temperature falls back to the standard atmosphere.
func TrueFromCalibrated(cas, staticPa, tempC float32) float32 {
	if math.IsNaN(float64(tempC)) || math.IsInf(float64(tempC), 0) {
		tempC = StandardTempC
	}
	return cas * float32(math.Sqrt(float64(AirDensitySeaLevel/AirDensity(staticPa, tempC))))
}

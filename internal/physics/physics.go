// Package physics holds the pure calibration and physical model functions
// shared by the processing modules: Mach number from pressures, the
// adiabatic-recovery temperature relation, polynomial calibration curves and
// natural cubic splines.
package physics

import "math"

// ICAO standard atmosphere constants. Pressures throughout the package are
// in hPa and temperatures in Kelvin.
const (
	SpeedOfSound = 340.294  // m s-1 at ICAO standard conditions
	ICAOStdTemp  = 288.15   // K
	ICAOStdPress = 1013.25  // hPa
	ZeroCelsius  = 273.15   // K
)

// Mach validity bounds. Values outside this range, or non-physical input
// pressures, raise the validity flag; the data value is still produced.
const (
	machValidMin = 0.05
	machValidMax = 1.0
)

// CelsiusToKelvin converts a temperature in degrees Celsius to Kelvin.
func CelsiusToKelvin(c float64) float64 {
	return c + ZeroCelsius
}

// Mach returns the isentropic-flow Mach number for one sample, from
// pitot-static (dynamic) and static pressure in consistent units.
func Mach(q, p float64) float64 {
	return math.Sqrt(5 * (math.Pow(1+q/p, 2.0/7.0) - 1))
}

// MachFromPressures computes the Mach number elementwise from dynamic and
// static pressure series. The inputs must be equally long.
func MachFromPressures(q, p []float64) []float64 {
	mach := make([]float64, len(q))
	for i := range q {
		mach[i] = Mach(q[i], p[i])
	}
	return mach
}

// MachFromPressuresFlagged computes the Mach number elementwise and returns
// a validity mask alongside, true where the inputs are non-physical
// (negative dynamic pressure, non-positive static pressure) or the
// resulting Mach number falls outside a sane range.
func MachFromPressuresFlagged(q, p []float64) ([]float64, []bool) {
	mach := MachFromPressures(q, p)
	bad := make([]bool, len(mach))
	for i, m := range mach {
		switch {
		case p[i] <= 0 || q[i] < 0:
			bad[i] = true
		case math.IsNaN(m):
			bad[i] = true
		case m < machValidMin || m > machValidMax:
			bad[i] = true
		}
	}
	return mach, bad
}

// FloorMach clamps Mach numbers below the validity minimum up to it, in
// place, and returns the slice. Applied by the temperature modules after
// flagging to avoid a divide-by-zero downstream.
func FloorMach(mach []float64) []float64 {
	for i, m := range mach {
		if m < machValidMin {
			mach[i] = machValidMin
		}
	}
	return mach
}

// TrueAirTempSample inverts the adiabatic-recovery relation for one sample:
// the indicated temperature (K) is reduced by the dynamic heating term
// 0.2 r M^2.
func TrueAirTempSample(iat, mach, recovery float64) float64 {
	return iat / (1 + 0.2*mach*mach*recovery)
}

// TrueAirTemp applies TrueAirTempSample elementwise.
func TrueAirTemp(iat, mach []float64, recovery float64) []float64 {
	out := make([]float64, len(iat))
	for i := range iat {
		out[i] = TrueAirTempSample(iat[i], mach[i], recovery)
	}
	return out
}

package modules

import (
	"math"

	"decadespp/internal/timeseries"
)

// heaterCorrection computes the deiced-probe self-heating correction, a
// double exponential in Mach number and total pressure taken from the
// Rosemount technical report curves. The correction applies only where the
// heater flag is set; heaterFlag must already be filled to the working
// frequency with undefined samples treated as heater-off.
func heaterCorrection(mach, q, p, heaterFlag []float64) []float64 {
	corr := make([]float64, len(mach))
	for i := range mach {
		if heaterFlag[i] == 0 || math.IsNaN(heaterFlag[i]) {
			continue
		}
		corr[i] = 0.1 * math.Exp(math.Exp(
			1.171+(math.Log(mach[i])+2.738)*(-0.000568*(q[i]+p[i])-0.452),
		))
	}
	return corr
}

// fillHeaterFlag carries the 1 Hz heater indicator onto the working grid:
// forward fill, then any remaining undefined samples count as heater-off.
func fillHeaterFlag(src *timeseries.Series, target timeseries.Index, n int) []float64 {
	vals := timeseries.Resample(src, target, n, timeseries.FillPolicy{Method: timeseries.Pad})
	timeseries.ForwardFill(vals)
	return timeseries.FillNaN(vals, 0)
}

package segment

import (
	"fmt"
	"math"
)

// SLRParams controls steady-level-run detection. All windows and lengths
// are in samples of the 1 Hz inputs.
type SLRParams struct {
	MinLength      int     // minimum run length, default 120
	MaxLength      int     // split runs longer than this; 0 disables
	PressureStdLim float64 // rolling static-pressure std threshold, default 2
	RollRangeLim   float64 // rolling roll-range threshold, default 3
	RollMeanWindow int     // trailing mean applied to roll first, default 5
}

// DefaultSLRParams returns the standard detection parameters.
func DefaultSLRParams() SLRParams {
	return SLRParams{
		MinLength:      120,
		MaxLength:      0,
		PressureStdLim: 2,
		RollRangeLim:   3,
		RollMeanWindow: 5,
	}
}

// SteadyLevelRuns detects straight-and-level flight segments from 1 Hz
// weight-on-wheels, static pressure and roll series. A sample passes when
// the aircraft is airborne, the centered rolling standard deviation of
// static pressure is below the pressure limit, and the centered rolling
// range of the smoothed roll is below the roll limit. Maximal passing runs
// shorter than MinLength are rejected; runs longer than MaxLength are split
// into MaxLength chunks, keeping a trailing remainder only if it is itself
// at least MinLength.
func SteadyLevelRuns(wow, ps, roll []float64, p SLRParams) ([]Run, error) {
	if len(ps) != len(wow) || len(roll) != len(wow) {
		return nil, fmt.Errorf("steady level runs: input lengths differ: %d, %d, %d", len(wow), len(ps), len(roll))
	}
	if p.MaxLength != 0 && p.MaxLength < p.MinLength {
		return nil, fmt.Errorf("steady level runs: max length %d < min length %d", p.MaxLength, p.MinLength)
	}

	// Ground samples are removed from consideration entirely.
	psAir := make([]float64, len(ps))
	rollAir := make([]float64, len(roll))
	for i := range wow {
		if wow[i] != 0 || math.IsNaN(wow[i]) {
			psAir[i] = math.NaN()
			rollAir[i] = math.NaN()
		} else {
			psAir[i] = ps[i]
			rollAir[i] = roll[i]
		}
	}

	psStd := RollingStd(psAir, p.MinLength)
	rollRange := RollingRange(RollingMean(rollAir, p.RollMeanWindow), p.MinLength)

	mask := make([]bool, len(wow))
	for i := range mask {
		mask[i] = psStd[i] < p.PressureStdLim && rollRange[i] < p.RollRangeLim
	}
	mask = FilterShortRuns(mask, p.MinLength)

	var out []Run
	for _, r := range Runs(mask) {
		if p.MaxLength == 0 {
			out = append(out, r)
			continue
		}
		start := r.Start
		for start+p.MaxLength <= r.End {
			out = append(out, Run{Start: start, End: start + p.MaxLength})
			start += p.MaxLength
		}
		if r.End-start >= p.MinLength {
			out = append(out, Run{Start: start, End: r.End})
		}
	}
	return out, nil
}

// Package segment provides the selection and segmentation utilities shared
// by the processing modules: rolling-window statistics collapsed to
// per-sample pass/fail tests, run-length filtering, grouped averaging over
// flagged regions and steady-level-run detection.
package segment

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// Run is a maximal half-open sample range [Start, End).
type Run struct {
	Start, End int
}

// Len returns the number of samples in the run.
func (r Run) Len() int {
	return r.End - r.Start
}

// Mid returns the index of the run's middle sample.
func (r Run) Mid() int {
	return r.Start + r.Len()/2
}

// Runs enumerates the maximal runs of true samples in mask.
func Runs(mask []bool) []Run {
	var runs []Run
	start := -1
	for i, m := range mask {
		if m && start < 0 {
			start = i
		}
		if !m && start >= 0 {
			runs = append(runs, Run{Start: start, End: i})
			start = -1
		}
	}
	if start >= 0 {
		runs = append(runs, Run{Start: start, End: len(mask)})
	}
	return runs
}

// FilterShortRuns rejects every maximal true-run shorter than minLen,
// returning a new mask. Runs of at least minLen samples are preserved
// unchanged.
func FilterShortRuns(mask []bool, minLen int) []bool {
	out := make([]bool, len(mask))
	for _, r := range Runs(mask) {
		if r.Len() >= minLen {
			for i := r.Start; i < r.End; i++ {
				out[i] = true
			}
		}
	}
	return out
}

// centeredBounds returns the sample range covered by a centered window of
// the given size at position i, or ok=false where the window would run off
// either end.
func centeredBounds(i, window, n int) (start, end int, ok bool) {
	start = i - (window-1)/2
	end = start + window
	return start, end, start >= 0 && end <= n
}

// RollingRange computes the centered rolling range (max minus min) of x.
// Samples whose window is incomplete or contains an undefined value are
// undefined.
func RollingRange(x []float64, window int) []float64 {
	out := make([]float64, len(x))
	for i := range x {
		start, end, ok := centeredBounds(i, window, len(x))
		if !ok {
			out[i] = math.NaN()
			continue
		}
		lo, hi := math.Inf(1), math.Inf(-1)
		bad := false
		for _, v := range x[start:end] {
			if math.IsNaN(v) {
				bad = true
				break
			}
			lo = math.Min(lo, v)
			hi = math.Max(hi, v)
		}
		if bad {
			out[i] = math.NaN()
			continue
		}
		out[i] = hi - lo
	}
	return out
}

// RollingStd computes the centered rolling sample standard deviation of x,
// undefined where the window is incomplete or contains undefined values.
func RollingStd(x []float64, window int) []float64 {
	out := make([]float64, len(x))
	for i := range x {
		start, end, ok := centeredBounds(i, window, len(x))
		if !ok || hasNaN(x[start:end]) {
			out[i] = math.NaN()
			continue
		}
		out[i] = stat.StdDev(x[start:end], nil)
	}
	return out
}

// RollingMean computes the trailing rolling mean of x over the given
// window, undefined until a full window is available.
func RollingMean(x []float64, window int) []float64 {
	out := make([]float64, len(x))
	for i := range x {
		start := i - window + 1
		if start < 0 || hasNaN(x[start:i+1]) {
			out[i] = math.NaN()
			continue
		}
		out[i] = stat.Mean(x[start:i+1], nil)
	}
	return out
}

func hasNaN(x []float64) bool {
	for _, v := range x {
		if math.IsNaN(v) {
			return true
		}
	}
	return false
}

func nanMean(x []float64) float64 {
	var sum float64
	var n int
	for _, v := range x {
		if math.IsNaN(v) {
			continue
		}
		sum += v
		n++
	}
	if n == 0 {
		return math.NaN()
	}
	return sum / float64(n)
}

// AvgOptions parameterizes FlaggedAverage.
type AvgOptions struct {
	// FlagValue selects the runs to average over.
	FlagValue int
	// SkipStart and SkipEnd drop samples at the head and tail of each run
	// before averaging.
	SkipStart, SkipEnd int
	// Interpolate spreads the averaged values linearly across the full
	// index instead of placing each at its run's midpoint.
	Interpolate bool
}

// FlaggedAverage computes the mean of data within each maximal run where
// flag equals the target value. With Interpolate false the averaged value
// is placed at the run's midpoint and every other sample is undefined; with
// Interpolate true the averages are linearly interpolated across the full
// index (undefined before the first midpoint, held constant after the
// last).
func FlaggedAverage(flag []int, data []float64, opts AvgOptions) []float64 {
	mask := make([]bool, len(flag))
	for i, v := range flag {
		mask[i] = v == opts.FlagValue
	}

	type point struct {
		idx  int
		mean float64
	}
	var points []point
	for _, r := range Runs(mask) {
		start := r.Start + opts.SkipStart
		end := r.End - opts.SkipEnd
		if start >= end {
			continue
		}
		points = append(points, point{idx: r.Mid(), mean: nanMean(data[start:end])})
	}

	out := make([]float64, len(data))
	for i := range out {
		out[i] = math.NaN()
	}

	if !opts.Interpolate {
		for _, p := range points {
			out[p.idx] = p.mean
		}
		return out
	}

	if len(points) == 0 {
		return out
	}
	for k := 0; k < len(points)-1; k++ {
		a, b := points[k], points[k+1]
		for i := a.idx; i < b.idx; i++ {
			frac := float64(i-a.idx) / float64(b.idx-a.idx)
			out[i] = a.mean + frac*(b.mean-a.mean)
		}
	}
	last := points[len(points)-1]
	for i := last.idx; i < len(out); i++ {
		out[i] = last.mean
	}
	return out
}

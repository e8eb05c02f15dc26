package timeseries

import (
	"math"
	"time"
)

// Method selects how values are carried from a source grid onto a target
// grid during resampling.
type Method int

const (
	// Onto takes the nearest source sample within the gap limit.
	Onto Method = iota
	// Pad takes the most recent source sample at or before the target
	// instant, within the gap limit.
	Pad
	// Circular behaves like Onto but treats the variable as an angle in
	// degrees, unwrapping across the 0/360 discontinuity before filling and
	// wrapping the result back into [0, 360).
	Circular
)

// FillPolicy describes resampling behaviour for one variable. A zero
// GapLimit means no limit.
type FillPolicy struct {
	Method   Method
	GapLimit time.Duration
}

// GapSamples returns a policy limiting fill distance to n samples of the
// source series being resampled.
func GapSamples(m Method, n int, srcFreq int) FillPolicy {
	return FillPolicy{Method: m, GapLimit: time.Duration(n) * (time.Second / time.Duration(srcFreq))}
}

// Resample carries src onto the target index, producing n samples. Target
// instants further than the policy's gap limit from a usable source sample
// become undefined rather than stale-filled.
func Resample(src *Series, target Index, n int, policy FillPolicy) []float64 {
	if policy.Method == Circular {
		return resampleCircular(src, target, n, policy)
	}

	out := make([]float64, n)
	period := src.Index.Period()

	for i := 0; i < n; i++ {
		t := target.TimeAt(i)
		off := t.Sub(src.Index.Start)

		var j int
		switch policy.Method {
		case Pad:
			j = int(off / period)
			if off < 0 {
				j = -1
			}
		default: // Onto
			j = int((off + period/2) / period)
			if off < -period/2 {
				j = -1
			}
		}

		if j < 0 || j >= src.Len() {
			// Pad fills beyond the final sample as long as the gap allows.
			if policy.Method == Pad && j >= src.Len() && src.Len() > 0 {
				j = src.Len() - 1
			} else {
				out[i] = math.NaN()
				continue
			}
		}

		gap := t.Sub(src.Index.TimeAt(j))
		if gap < 0 {
			gap = -gap
		}
		if policy.GapLimit > 0 && gap > policy.GapLimit {
			out[i] = math.NaN()
			continue
		}
		out[i] = src.Values[j]
	}

	return out
}

// ResampleString carries a status-string series onto the target index using
// nearest-sample fill. Target instants with no usable source sample within
// the gap limit become the empty string.
func ResampleString(src *StringSeries, target Index, n int, policy FillPolicy) []string {
	out := make([]string, n)
	period := src.Index.Period()

	for i := 0; i < n; i++ {
		t := target.TimeAt(i)
		off := t.Sub(src.Index.Start)

		j := int((off + period/2) / period)
		if off < -period/2 || j < 0 || j >= src.Len() {
			continue
		}

		gap := t.Sub(src.Index.TimeAt(j))
		if gap < 0 {
			gap = -gap
		}
		if policy.GapLimit > 0 && gap > policy.GapLimit {
			continue
		}
		out[i] = src.Values[j]
	}

	return out
}

// resampleCircular unwraps the source angles, fills as Onto, then wraps the
// result back into [0, 360).
func resampleCircular(src *Series, target Index, n int, policy FillPolicy) []float64 {
	unwrapped := Unwrap(append([]float64(nil), src.Values...))
	flat := &Series{Index: src.Index, Values: unwrapped}

	out := Resample(flat, target, n, FillPolicy{Method: Onto, GapLimit: policy.GapLimit})
	for i, v := range out {
		out[i] = Wrap360(v)
	}
	return out
}

// Unwrap removes discontinuities in angular data: whenever consecutive
// samples jump by more than 180 degrees, the remainder of the series is
// shifted by a full turn. Operates in place and returns its argument.
func Unwrap(ang []float64) []float64 {
	offset := 0.0
	prev := math.NaN()
	for i, v := range ang {
		if math.IsNaN(v) {
			continue
		}
		if !math.IsNaN(prev) {
			d := v - prev
			if d > 180 {
				offset -= 360
			} else if d < -180 {
				offset += 360
			}
		}
		prev = v
		ang[i] = v + offset
	}
	return ang
}

// Wrap360 maps an angle into [0, 360). NaN stays NaN.
func Wrap360(v float64) float64 {
	if math.IsNaN(v) {
		return v
	}
	v = math.Mod(v, 360)
	if v < 0 {
		v += 360
	}
	return v
}

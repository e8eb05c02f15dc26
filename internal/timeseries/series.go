package timeseries

import (
	"fmt"
	"math"
	"time"
)

// Index describes a regular sample grid: a start instant and a nominal
// frequency in Hz. Sample i falls at Start + i/Freq seconds.
type Index struct {
	Start time.Time
	Freq  int
}

// NewIndex creates an index, validating the frequency.
func NewIndex(start time.Time, freq int) (Index, error) {
	if freq < 1 || freq > 256 {
		return Index{}, fmt.Errorf("frequency out of range [1, 256]: %d", freq)
	}
	if time.Second%time.Duration(freq) != 0 {
		return Index{}, fmt.Errorf("frequency does not divide one second: %d Hz", freq)
	}
	return Index{Start: start, Freq: freq}, nil
}

// Period returns the sample spacing.
func (ix Index) Period() time.Duration {
	return time.Second / time.Duration(ix.Freq)
}

// TimeAt returns the instant of sample i.
func (ix Index) TimeAt(i int) time.Time {
	return ix.Start.Add(time.Duration(i) * ix.Period())
}

// OneHertzSpan constructs a uniform one-second grid spanning first to last,
// with both endpoints rounded to the nearest whole second. It returns the
// index and the number of samples on the grid.
func OneHertzSpan(first, last time.Time) (Index, int) {
	start := first.Round(time.Second)
	end := last.Round(time.Second)
	if end.Before(start) {
		return Index{Start: start, Freq: 1}, 0
	}
	n := int(end.Sub(start)/time.Second) + 1
	return Index{Start: start, Freq: 1}, n
}

// Series is a regularly sampled numeric time series. Values are owned by the
// series; callers treat a series as immutable once produced by a module.
type Series struct {
	Index  Index
	Values []float64
}

// New creates a series over the given index.
func New(ix Index, values []float64) *Series {
	return &Series{Index: ix, Values: values}
}

// Len returns the number of samples.
func (s *Series) Len() int {
	return len(s.Values)
}

// At returns the value of sample i.
func (s *Series) At(i int) float64 {
	return s.Values[i]
}

// First returns the instant of the first sample.
func (s *Series) First() time.Time {
	return s.Index.Start
}

// Last returns the instant of the final sample.
func (s *Series) Last() time.Time {
	if len(s.Values) == 0 {
		return s.Index.Start
	}
	return s.Index.TimeAt(len(s.Values) - 1)
}

// Copy returns a deep copy of the series.
func (s *Series) Copy() *Series {
	vals := make([]float64, len(s.Values))
	copy(vals, s.Values)
	return &Series{Index: s.Index, Values: vals}
}

// StringSeries is a regularly sampled series of status strings, used for
// instrument status words that accompany numeric channels.
type StringSeries struct {
	Index  Index
	Values []string
}

// Len returns the number of samples.
func (s *StringSeries) Len() int {
	return len(s.Values)
}

// NaNs returns a slice of n undefined values.
func NaNs(n int) []float64 {
	vals := make([]float64, n)
	for i := range vals {
		vals[i] = math.NaN()
	}
	return vals
}

// FillNaN replaces undefined values with v, in place, and returns the slice.
func FillNaN(vals []float64, v float64) []float64 {
	for i, x := range vals {
		if math.IsNaN(x) {
			vals[i] = v
		}
	}
	return vals
}

// ForwardFill replaces undefined values with the most recent defined value,
// in place. Leading undefined values are left undefined.
func ForwardFill(vals []float64) []float64 {
	last := math.NaN()
	for i, x := range vals {
		if math.IsNaN(x) {
			vals[i] = last
		} else {
			last = x
		}
	}
	return vals
}

package timeseries

import (
	"fmt"
)

// Frame is a per-module working frame: a set of equally long columns, keyed
// by variable name and aligned to one common index. A frame is built fresh
// for each Process call, owned by that module invocation, and discarded when
// the module finishes.
type Frame struct {
	index Index
	n     int
	cols  map[string][]float64
}

// NewFrame creates an empty frame over the given index with n samples.
func NewFrame(ix Index, n int) *Frame {
	return &Frame{index: ix, n: n, cols: make(map[string][]float64)}
}

// Index returns the frame's common index.
func (f *Frame) Index() Index {
	return f.index
}

// Len returns the number of samples in every column.
func (f *Frame) Len() int {
	return f.n
}

// Align resamples src onto the frame index under the given policy and stores
// the result as a named column.
func (f *Frame) Align(name string, src *Series, policy FillPolicy) {
	f.cols[name] = Resample(src, f.index, f.n, policy)
}

// Set stores a derived column. The column length must match the frame.
func (f *Frame) Set(name string, values []float64) error {
	if len(values) != f.n {
		return fmt.Errorf("column %s: length %d does not match frame length %d", name, len(values), f.n)
	}
	f.cols[name] = values
	return nil
}

// Get returns a named column, or an error if it has not been set.
func (f *Frame) Get(name string) ([]float64, error) {
	col, ok := f.cols[name]
	if !ok {
		return nil, fmt.Errorf("column not in frame: %s", name)
	}
	return col, nil
}

// MustGet returns a named column, panicking if absent. Used by module
// internals for columns the module itself has already set.
func (f *Frame) MustGet(name string) []float64 {
	col, ok := f.cols[name]
	if !ok {
		panic(fmt.Sprintf("column not in frame: %s", name))
	}
	return col
}

// Has reports whether the frame holds a named column.
func (f *Frame) Has(name string) bool {
	_, ok := f.cols[name]
	return ok
}

// Series wraps a named column as a Series on the frame index.
func (f *Frame) Series(name string) (*Series, error) {
	col, err := f.Get(name)
	if err != nil {
		return nil, err
	}
	return &Series{Index: f.index, Values: col}, nil
}

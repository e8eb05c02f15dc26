// Package timeseries provides the time-indexed series model used by the
// post-processing modules: regularly sampled numeric series, frequency-aware
// resampling onto a target index, and the per-module working frame.
//
// A Series is an ordered sequence of float64 samples at a fixed nominal
// frequency between 1 and 256 Hz. Undefined samples are NaN and stay NaN
// through any downstream arithmetic; they are never coerced to zero.
package timeseries

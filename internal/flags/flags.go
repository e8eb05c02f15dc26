// Package flags implements the per-sample data quality annotations attached
// to output variables: a plain scalar flag, and a bitmask-style flag built
// from independently named boolean conditions.
package flags

// Reporter is the read side of a flag: one small non-negative severity per
// sample, 0 meaning good data.
type Reporter interface {
	Values() []int
	Len() int
}

// Flag is a scalar per-sample quality code. Merging further flag arrays
// keeps the elementwise maximum, so no contributing condition is lost.
type Flag struct {
	values []int
}

// NewFlag returns a zero-initialized scalar flag of n samples.
func NewFlag(n int) *Flag {
	return &Flag{values: make([]int, n)}
}

// Len returns the number of samples.
func (f *Flag) Len() int {
	return len(f.values)
}

// Values returns the per-sample severities.
func (f *Flag) Values() []int {
	return f.values
}

// Set assigns severity v at sample i if it exceeds the current value.
func (f *Flag) Set(i, v int) {
	if v > f.values[i] {
		f.values[i] = v
	}
}

// Add merges another flag array by elementwise maximum.
func (f *Flag) Add(values []int) {
	for i, v := range values {
		if i >= len(f.values) {
			break
		}
		if v > f.values[i] {
			f.values[i] = v
		}
	}
}

// AddCondition raises the flag to severity where cond holds.
func (f *Flag) AddCondition(cond []bool, severity int) {
	for i, c := range cond {
		if i >= len(f.values) {
			break
		}
		if c && severity > f.values[i] {
			f.values[i] = severity
		}
	}
}

// Mask is one named boolean condition contributing to a bitmask flag.
type Mask struct {
	Label    string
	Severity int
	Cond     []bool
}

// Bitmask is a flag assembled from independent named conditions. The
// reported scalar value per sample is the maximum severity of the
// conditions active there, but every mask remains individually
// discoverable.
type Bitmask struct {
	n     int
	masks []Mask
}

// NewBitmask returns an empty bitmask flag of n samples.
func NewBitmask(n int) *Bitmask {
	return &Bitmask{n: n}
}

// Len returns the number of samples.
func (b *Bitmask) Len() int {
	return b.n
}

// AddMask registers a named condition at severity 1.
func (b *Bitmask) AddMask(cond []bool, label string) {
	b.AddMaskSeverity(cond, label, 1)
}

// AddMaskSeverity registers a named condition with an explicit severity.
// Conditions shorter than the flag are treated as false beyond their end.
func (b *Bitmask) AddMaskSeverity(cond []bool, label string, severity int) {
	c := make([]bool, b.n)
	copy(c, cond)
	b.masks = append(b.masks, Mask{Label: label, Severity: severity, Cond: c})
}

// Masks returns the registered conditions.
func (b *Bitmask) Masks() []Mask {
	return b.masks
}

// Values reports the per-sample maximum severity across all masks.
func (b *Bitmask) Values() []int {
	out := make([]int, b.n)
	for _, m := range b.masks {
		for i, c := range m.Cond {
			if c && m.Severity > out[i] {
				out[i] = m.Severity
			}
		}
	}
	return out
}

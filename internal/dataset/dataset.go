// Package dataset implements the flight dataset store the processing
// modules run against: named raw and derived time series, the per-flight
// calibration constants table, and the output sink contract.
package dataset

import (
	"fmt"
	"sync"

	"decadespp/internal/flags"
	"decadespp/internal/timeseries"
)

// Output is one finished output variable: a numeric series with descriptive
// metadata and an optional quality flag. Unit and name metadata are carried
// through unchanged by the store. Write false marks a variable that must
// not be persisted (a partial internal failure), though it remains
// available to downstream consumers in memory.
type Output struct {
	Name         string
	Units        string
	Frequency    int
	LongName     string
	StandardName string
	Series       *timeseries.Series
	Flag         flags.Reporter
	Write        bool
}

// NewOutput returns an output with Write enabled, to be filled in by the
// declaring module.
func NewOutput(name, units string, frequency int, longName string) Output {
	return Output{
		Name:      name,
		Units:     units,
		Frequency: frequency,
		LongName:  longName,
		Write:     true,
	}
}

// Sink receives finished output variables from a module.
type Sink interface {
	AddOutput(Output) error
}

// Dataset maps variable names to time series and holds the per-flight
// constants table. Raw inputs and constants are read-only for modules;
// produced outputs are registered back so later modules can consume them.
type Dataset struct {
	mu        sync.RWMutex
	series    map[string]*timeseries.Series
	strings   map[string]*timeseries.StringSeries
	constants map[string]any
	outputs   []Output
}

// New returns an empty dataset.
func New() *Dataset {
	return &Dataset{
		series:    make(map[string]*timeseries.Series),
		strings:   make(map[string]*timeseries.StringSeries),
		constants: make(map[string]any),
	}
}

// SetConstants installs the flight constants table.
func (d *Dataset) SetConstants(constants map[string]any) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for k, v := range constants {
		d.constants[k] = v
	}
}

// AddSeries registers a raw input series under its name.
func (d *Dataset) AddSeries(name string, s *timeseries.Series) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.series[name] = s
}

// AddStringSeries registers a status-string series under its name.
func (d *Dataset) AddStringSeries(name string, s *timeseries.StringSeries) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.strings[name] = s
}

// Series returns the named numeric series. Absence of a required series is
// fatal for the requesting module.
func (d *Dataset) Series(name string) (*timeseries.Series, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	s, ok := d.series[name]
	if !ok {
		return nil, fmt.Errorf("series not in dataset: %s", name)
	}
	return s, nil
}

// StringSeries returns the named status-string series.
func (d *Dataset) StringSeries(name string) (*timeseries.StringSeries, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	s, ok := d.strings[name]
	if !ok {
		return nil, fmt.Errorf("string series not in dataset: %s", name)
	}
	return s, nil
}

// HasSeries reports whether a numeric series is available.
func (d *Dataset) HasSeries(name string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	_, ok := d.series[name]
	return ok
}

// Has reports whether name resolves to a series, string series or constant.
func (d *Dataset) Has(name string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if _, ok := d.series[name]; ok {
		return true
	}
	if _, ok := d.strings[name]; ok {
		return true
	}
	_, ok := d.constants[name]
	return ok
}

// AddOutput registers a finished output variable and exposes its series to
// later modules under the output name. Implements Sink.
func (d *Dataset) AddOutput(o Output) error {
	if o.Series == nil {
		return fmt.Errorf("output %s has no series", o.Name)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.outputs = append(d.outputs, o)
	d.series[o.Name] = o.Series
	return nil
}

// Outputs returns the outputs registered so far.
func (d *Dataset) Outputs() []Output {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]Output, len(d.outputs))
	copy(out, d.outputs)
	return out
}

// Output returns a registered output by name.
func (d *Dataset) Output(name string) (Output, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	for _, o := range d.outputs {
		if o.Name == name {
			return o, true
		}
	}
	return Output{}, false
}

// Package modules implements the per-instrument post-processing modules.
// Each module declares the inputs it requires and the outputs it produces,
// builds an aligned working frame for one Process call, applies its
// calibration transform and emits flagged output variables through the
// sink. One concrete type exists per instrument; dispatch is static.
package modules

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"

	"decadespp/internal/dataset"
	"decadespp/internal/timeseries"
)

// validate checks the typed constant bundles modules assemble from the
// flight constants table.
var validate = validator.New()

// State tracks the module lifecycle. A module is constructed once per
// processing run; DeclareOutputs may be called repeatedly before data is
// available, Process exactly once.
type State int

const (
	StateCreated State = iota
	StateOutputsDeclared
	StateProcessed
)

// Module is one processing unit. DeclareOutputs registers the shape of what
// the module will produce (metadata only, no data) and must be idempotent;
// it may depend only on constants. Process materializes the data and pushes
// finished outputs to the sink.
type Module interface {
	Name() string
	Inputs() []string
	DeclareOutputs(ds *dataset.Dataset) ([]dataset.Output, error)
	Process(ctx context.Context, ds *dataset.Dataset, sink dataset.Sink) error
}

// ConfigError reports an unrecognized sensor, vane or circuit variant.
// Fatal for the module at DeclareOutputs time; the module then contributes
// nothing to the run.
type ConfigError struct {
	Module  string
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("%s: configuration: %s", e.Module, e.Message)
}

// MissingInputError reports a required input absent from the dataset.
// Fatal for the module; the run continues without it.
type MissingInputError struct {
	Module string
	Input  string
}

func (e *MissingInputError) Error() string {
	return fmt.Sprintf("%s: required input not available: %s", e.Module, e.Input)
}

// Base carries the common module state and helpers.
type Base struct {
	name   string
	inputs []string
	state  State
	log    *slog.Logger
}

func newBase(name string, inputs []string) Base {
	return Base{
		name:   name,
		inputs: inputs,
		log:    slog.Default().With("module", name),
	}
}

// Name returns the module name.
func (b *Base) Name() string {
	return b.name
}

// Inputs returns the declared input names.
func (b *Base) Inputs() []string {
	return b.inputs
}

// State returns the lifecycle state.
func (b *Base) State() State {
	return b.state
}

func (b *Base) markDeclared() {
	if b.state == StateCreated {
		b.state = StateOutputsDeclared
	}
}

func (b *Base) markProcessed() {
	b.state = StateProcessed
}

// requireSeries fetches a required numeric series, converting absence into
// a MissingInputError.
func (b *Base) requireSeries(ds *dataset.Dataset, name string) (*timeseries.Series, error) {
	s, err := ds.Series(name)
	if err != nil {
		return nil, &MissingInputError{Module: b.name, Input: name}
	}
	return s, nil
}

// requireFloat fetches a required scalar constant.
func (b *Base) requireFloat(ds *dataset.Dataset, name string) (float64, error) {
	v, err := ds.Float(name)
	if err != nil {
		return 0, &MissingInputError{Module: b.name, Input: name}
	}
	return v, nil
}

// requireFloats fetches a required array constant.
func (b *Base) requireFloats(ds *dataset.Dataset, name string) ([]float64, error) {
	v, err := ds.Floats(name)
	if err != nil {
		return nil, &MissingInputError{Module: b.name, Input: name}
	}
	return v, nil
}

// alignSpec names one input to carry onto a module's working frame.
type alignSpec struct {
	name   string
	policy timeseries.FillPolicy
}

// onto is the default alignment policy: nearest sample within the given
// number of target-grid periods.
func onto(target timeseries.Index, gapSamples int) timeseries.FillPolicy {
	return timeseries.FillPolicy{
		Method:   timeseries.Onto,
		GapLimit: time.Duration(gapSamples) * target.Period(),
	}
}

// circular is onto with wrap-aware fill for angular variables.
func circular(target timeseries.Index, gapSamples int) timeseries.FillPolicy {
	return timeseries.FillPolicy{
		Method:   timeseries.Circular,
		GapLimit: time.Duration(gapSamples) * target.Period(),
	}
}

// buildFrame constructs the working frame on the target index and aligns
// each named input onto it. Every spec names a required series.
func (b *Base) buildFrame(ds *dataset.Dataset, target timeseries.Index, n int, specs []alignSpec) (*timeseries.Frame, error) {
	frame := timeseries.NewFrame(target, n)
	for _, spec := range specs {
		src, err := b.requireSeries(ds, spec.name)
		if err != nil {
			return nil, err
		}
		frame.Align(spec.name, src, spec.policy)
	}
	return frame, nil
}

// reverse returns a reversed copy of coeffs. Calibration polynomials are
// stored lowest order first in the flight constants; evaluation wants
// highest order first.
func reverse(coeffs []float64) []float64 {
	out := make([]float64, len(coeffs))
	for i, c := range coeffs {
		out[len(coeffs)-1-i] = c
	}
	return out
}

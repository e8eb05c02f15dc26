package modules

import (
	"context"
	"fmt"
	"math"

	"decadespp/internal/dataset"
	"decadespp/internal/flags"
	"decadespp/internal/physics"
	"decadespp/internal/timeseries"
)

// defaultDeltaTThreshold is the disagreement, in Kelvin, between the deiced
// and non-deiced true air temperatures beyond which both are flagged.
const defaultDeltaTThreshold = 1.0

// RosemountTemps derives true air temperatures from the platinum-resistance
// deiced and non-deiced temperature probes, including the heater
// self-heating correction for the deiced sensor.
type RosemountTemps struct {
	Base
}

// NewRosemountTemps constructs the platinum-probe temperature module.
func NewRosemountTemps() *RosemountTemps {
	return &RosemountTemps{Base: newBase("rosemount_temps", []string{
		"TRFCTR",                  // recovery factors (const)
		"CALDIT",                  // deiced calibration (const)
		"CALNDT",                  // non-deiced calibration (const)
		"PS_RVSM",                 // static pressure
		"Q_RVSM",                  // pitot-static pressure
		"CORCON_di_temp",          // deiced temperature counts
		"CORCON_ndi_temp",         // non-deiced temperature counts
		"PRTAFT_deiced_temp_flag", // deiced heater indicator, 1 Hz
	})}
}

type rosemountConstants struct {
	Recovery []float64 `validate:"len=2"`
	CalDI    []float64 `validate:"min=2,max=4"`
	CalNDI   []float64 `validate:"min=2,max=4"`
}

func (m *RosemountTemps) constants(ds *dataset.Dataset) (*rosemountConstants, error) {
	recovery, err := m.requireFloats(ds, "TRFCTR")
	if err != nil {
		return nil, err
	}
	calDI, err := m.requireFloats(ds, "CALDIT")
	if err != nil {
		return nil, err
	}
	calNDI, err := m.requireFloats(ds, "CALNDT")
	if err != nil {
		return nil, err
	}
	c := &rosemountConstants{Recovery: recovery, CalDI: calDI, CalNDI: calNDI}
	if err := validate.Struct(c); err != nil {
		return nil, &ConfigError{Module: m.name, Message: fmt.Sprintf("constants: %v", err)}
	}
	return c, nil
}

// DeclareOutputs registers the deiced and non-deiced true air temperature
// outputs.
func (m *RosemountTemps) DeclareOutputs(ds *dataset.Dataset) ([]dataset.Output, error) {
	m.markDeclared()

	di := dataset.NewOutput("TAT_DI_R", "degK", 32,
		"True air temperature from the Rosemount deiced temperature sensor")
	di.StandardName = "air_temperature"

	nd := dataset.NewOutput("TAT_ND_R", "degK", 32,
		"True air temperature from the Rosemount non-deiced temperature sensor")
	nd.StandardName = "air_temperature"

	return []dataset.Output{di, nd}, nil
}

// Process materializes TAT_DI_R and TAT_ND_R. Samples where the two probes
// disagree by more than the delta threshold, and samples with an invalid
// Mach number, are flagged on both outputs.
func (m *RosemountTemps) Process(ctx context.Context, ds *dataset.Dataset, sink dataset.Sink) error {
	defer m.markProcessed()

	consts, err := m.constants(ds)
	if err != nil {
		return err
	}

	primary, err := m.requireSeries(ds, "CORCON_di_temp")
	if err != nil {
		return err
	}
	heater, err := m.requireSeries(ds, "PRTAFT_deiced_temp_flag")
	if err != nil {
		return err
	}

	target := primary.Index
	n := primary.Len()
	frame, err := m.buildFrame(ds, target, n, []alignSpec{
		{name: "PS_RVSM", policy: onto(target, 1)},
		{name: "Q_RVSM", policy: onto(target, 1)},
		{name: "CORCON_ndi_temp", policy: onto(target, 1)},
	})
	if err != nil {
		return err
	}
	if err := frame.Set("CORCON_di_temp", primary.Values); err != nil {
		return err
	}

	psV := frame.MustGet("PS_RVSM")
	qV := frame.MustGet("Q_RVSM")

	mach, machBad := physics.MachFromPressuresFlagged(qV, psV)
	physics.FloorMach(mach)

	// Heater flag is at 1 Hz; fill to the working frequency before gating
	// the correction.
	heaterFlag := fillHeaterFlag(heater, target, n)
	correction := heaterCorrection(mach, qV, psV, heaterFlag)

	ndIAT := physics.Polyval(reverse(consts.CalNDI), frame.MustGet("CORCON_ndi_temp"))
	diIAT := physics.Polyval(reverse(consts.CalDI), frame.MustGet("CORCON_di_temp"))
	for i := 0; i < n; i++ {
		ndIAT[i] = physics.CelsiusToKelvin(ndIAT[i])
		diIAT[i] = physics.CelsiusToKelvin(diIAT[i]) - correction[i]
	}

	tatDI := physics.TrueAirTemp(diIAT, mach, consts.Recovery[0])
	tatND := physics.TrueAirTemp(ndIAT, mach, consts.Recovery[1])

	threshold := ds.FloatOr("TAT_DELTA_THRESH", defaultDeltaTThreshold)
	deltaBad := make([]bool, n)
	for i := 0; i < n; i++ {
		deltaBad[i] = math.Abs(tatDI[i]-tatND[i]) > threshold
	}

	declared, err := m.DeclareOutputs(ds)
	if err != nil {
		return err
	}
	values := map[string][]float64{
		"TAT_DI_R": tatDI,
		"TAT_ND_R": tatND,
	}

	for _, out := range declared {
		flag := flags.NewFlag(n)
		flag.AddCondition(machBad, 1)
		flag.AddCondition(deltaBad, 1)
		out.Series = timeseries.New(target, values[out.Name])
		out.Flag = flag
		if err := sink.AddOutput(out); err != nil {
			return err
		}
	}
	return nil
}

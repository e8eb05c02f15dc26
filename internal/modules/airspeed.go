package modules

import (
	"context"
	"math"

	"decadespp/internal/dataset"
	"decadespp/internal/flags"
	"decadespp/internal/physics"
	"decadespp/internal/timeseries"
)

// Airspeed derives indicated and true air speed from the aircraft RVSM air
// data system and the deiced true air temperature.
type Airspeed struct {
	Base
}

// NewAirspeed constructs the airspeed module.
func NewAirspeed() *Airspeed {
	return &Airspeed{Base: newBase("airspeed", []string{
		"TASCORR",  // airspeed correction factor (const)
		"PS_RVSM",  // static pressure
		"Q_RVSM",   // pitot-static pressure
		"TAT_DI_R", // deiced true air temperature
	})}
}

// DeclareOutputs registers the output metadata.
func (m *Airspeed) DeclareOutputs(ds *dataset.Dataset) ([]dataset.Output, error) {
	m.markDeclared()

	ias := dataset.NewOutput("IAS_RVSM", "m s-1", 32,
		"Indicated air speed from the aircraft RVSM (air data) system")

	tas := dataset.NewOutput("TAS_RVSM", "m s-1", 32,
		"True air speed from the aircraft RVSM (air data) system and deiced temperature")
	tas.StandardName = "platform_speed_wrt_air"

	return []dataset.Output{ias, tas}, nil
}

// Process materializes IAS_RVSM and TAS_RVSM; both inherit the Mach
// validity flag.
func (m *Airspeed) Process(ctx context.Context, ds *dataset.Dataset, sink dataset.Sink) error {
	defer m.markProcessed()

	tascorr, err := m.requireFloat(ds, "TASCORR")
	if err != nil {
		return err
	}
	ps, err := m.requireSeries(ds, "PS_RVSM")
	if err != nil {
		return err
	}

	target := ps.Index
	n := ps.Len()
	frame, err := m.buildFrame(ds, target, n, []alignSpec{
		{name: "Q_RVSM", policy: onto(target, 1)},
		{name: "TAT_DI_R", policy: onto(target, 1)},
	})
	if err != nil {
		return err
	}
	if err := frame.Set("PS_RVSM", ps.Values); err != nil {
		return err
	}

	psV := frame.MustGet("PS_RVSM")
	qV := frame.MustGet("Q_RVSM")
	tatV := frame.MustGet("TAT_DI_R")

	mach, machBad := physics.MachFromPressuresFlagged(qV, psV)

	ias := make([]float64, n)
	tas := make([]float64, n)
	for i := 0; i < n; i++ {
		ias[i] = physics.SpeedOfSound * mach[i] * math.Sqrt(psV[i]/physics.ICAOStdPress)
		tas[i] = tascorr * physics.SpeedOfSound * mach[i] * math.Sqrt(tatV[i]/physics.ICAOStdTemp)
	}

	declared, err := m.DeclareOutputs(ds)
	if err != nil {
		return err
	}
	values := map[string][]float64{
		"IAS_RVSM": ias,
		"TAS_RVSM": tas,
	}

	for _, out := range declared {
		flag := flags.NewFlag(n)
		flag.AddCondition(machBad, 1)
		out.Series = timeseries.New(target, values[out.Name])
		out.Flag = flag
		if err := sink.AddOutput(out); err != nil {
			return err
		}
	}
	return nil
}

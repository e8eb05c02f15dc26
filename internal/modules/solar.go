package modules

import (
	"context"
	"math"

	"decadespp/internal/dataset"
	"decadespp/internal/flags"
	"decadespp/internal/solarpos"
	"decadespp/internal/timeseries"
)

// Solar derives the solar zenith and azimuth angles at the aircraft position
// from an astronomical ephemeris. Both outputs are produced at 1 Hz on a
// grid spanning the GIN position record.
type Solar struct {
	Base
}

// NewSolar constructs the solar angles module.
func NewSolar() *Solar {
	return &Solar{Base: newBase("solar", []string{"LAT_GIN", "LON_GIN"})}
}

// DeclareOutputs registers the zenith and azimuth outputs.
func (m *Solar) DeclareOutputs(ds *dataset.Dataset) ([]dataset.Output, error) {
	m.markDeclared()

	zen := dataset.NewOutput("SOL_ZEN", "degree", 1,
		"Solar zenith derived from aircraft position and time")
	zen.StandardName = "solar_zenith_angle"

	azim := dataset.NewOutput("SOL_AZIM", "degree", 1,
		"Solar azimuth derived from aircraft position and time")
	azim.StandardName = "solar_azimuth_angle"

	return []dataset.Output{zen, azim}, nil
}

// Process evaluates the ephemeris once per second at the aircraft position.
func (m *Solar) Process(ctx context.Context, ds *dataset.Dataset, sink dataset.Sink) error {
	defer m.markProcessed()

	latSrc, err := m.requireSeries(ds, "LAT_GIN")
	if err != nil {
		return err
	}
	lonSrc, err := m.requireSeries(ds, "LON_GIN")
	if err != nil {
		return err
	}

	target, n := timeseries.OneHertzSpan(latSrc.Index.TimeAt(0), latSrc.Index.TimeAt(latSrc.Len()-1))

	lat := timeseries.Resample(latSrc, target, n, onto(target, 1))
	lon := timeseries.Resample(lonSrc, target, n, onto(target, 1))

	zen := make([]float64, n)
	azim := make([]float64, n)
	bad := make([]bool, n)
	for i := 0; i < n; i++ {
		if math.IsNaN(lat[i]) || math.IsNaN(lon[i]) {
			zen[i], azim[i] = math.NaN(), math.NaN()
			bad[i] = true
			continue
		}
		alt, az := solarpos.Position(lat[i], lon[i], target.TimeAt(i))
		zen[i] = 90 - alt
		azim[i] = az
	}

	flag := flags.NewFlag(n)
	flag.AddCondition(bad, 1)

	declared, err := m.DeclareOutputs(ds)
	if err != nil {
		return err
	}
	for _, out := range declared {
		switch out.Name {
		case "SOL_ZEN":
			out.Series = timeseries.New(target, zen)
		case "SOL_AZIM":
			out.Series = timeseries.New(target, azim)
		}
		out.Flag = flag
		if err := sink.AddOutput(out); err != nil {
			return err
		}
	}
	return nil
}

package modules

import (
	"context"
	"math"

	"decadespp/internal/dataset"
	"decadespp/internal/flags"
	"decadespp/internal/physics"
	"decadespp/internal/timeseries"
)

// windsRollLimit is the bank angle, in degrees, beyond which the
// non-turbulent wind estimate degrades.
const windsRollLimit = 2.0

// windsHeadingGap limits how far the heading may be carried when filling
// onto the wind grid, in target samples.
const windsHeadingGap = 50

// windsTASPoly corrects the RVSM true airspeed to match the radome probe.
// The offset is a quadratic in Mach number, subtracted from the RVSM TAS,
// with coefficients from flight calibration against reciprocal headings.
var windsTASPoly = []float64{52.7136, -32.1681, 4.0739}

// Winds derives the non-turbulent horizontal wind components by
// subtracting the true airspeed vector, rotated through the corrected
// aircraft heading, from the GIN ground velocity.
type Winds struct {
	Base
}

// NewWinds constructs the wind components module.
func NewWinds() *Winds {
	return &Winds{Base: newBase("winds_gin", []string{
		"TAS_RVSM", "TAT_DI_R", "VELN_GIN", "VELE_GIN", "HDG_GIN",
		"ROLL_GIN", "GIN_HDG_OFFSET",
	})}
}

// DeclareOutputs registers the eastward and northward wind outputs.
func (m *Winds) DeclareOutputs(ds *dataset.Dataset) ([]dataset.Output, error) {
	m.markDeclared()

	u := dataset.NewOutput("U_NOTURB", "m s-1", 1,
		"Eastward wind component derived from the GIN and RVSM airspeed")
	u.StandardName = "eastward_wind"

	v := dataset.NewOutput("V_NOTURB", "m s-1", 1,
		"Northward wind component derived from the GIN and RVSM airspeed")
	v.StandardName = "northward_wind"

	return []dataset.Output{u, v}, nil
}

// correctTAS adjusts the RVSM true airspeed towards the radome probe by
// subtracting the calibrated Mach-dependent offset, then applies the
// optional reverse-heading scale factor. The deiced true air temperature
// is in kelvin.
func correctTAS(tas, tat []float64, scale float64) []float64 {
	out := make([]float64, len(tas))
	for i := range tas {
		mach := tas[i] / physics.SpeedOfSound / math.Sqrt(tat[i]/physics.ICAOStdTemp)
		out[i] = (tas[i] - physics.PolyvalSample(windsTASPoly, mach)) * scale
	}
	return out
}

// Process evaluates the wind triangle at 1 Hz over the span of the
// airspeed record.
func (m *Winds) Process(ctx context.Context, ds *dataset.Dataset, sink dataset.Sink) error {
	defer m.markProcessed()

	hdgOffset, err := m.requireFloat(ds, "GIN_HDG_OFFSET")
	if err != nil {
		return err
	}
	tasCor := ds.FloatOr("GINWIND_TASCOR", 1.0)

	tasSrc, err := m.requireSeries(ds, "TAS_RVSM")
	if err != nil {
		return err
	}

	target, n := timeseries.OneHertzSpan(tasSrc.Index.TimeAt(0), tasSrc.Index.TimeAt(tasSrc.Len()-1))

	frame, err := m.buildFrame(ds, target, n, []alignSpec{
		{name: "TAT_DI_R", policy: onto(target, 1)},
		{name: "VELN_GIN", policy: onto(target, 1)},
		{name: "VELE_GIN", policy: onto(target, 1)},
		{name: "HDG_GIN", policy: circular(target, windsHeadingGap)},
		{name: "ROLL_GIN", policy: onto(target, 1)},
	})
	if err != nil {
		return err
	}

	tasRaw := timeseries.Resample(tasSrc, target, n, onto(target, 1))
	tat := frame.MustGet("TAT_DI_R")
	veln := frame.MustGet("VELN_GIN")
	vele := frame.MustGet("VELE_GIN")
	hdg := frame.MustGet("HDG_GIN")
	roll := frame.MustGet("ROLL_GIN")

	tas := correctTAS(tasRaw, tat, tasCor)

	u := make([]float64, n)
	v := make([]float64, n)
	banked := make([]bool, n)
	for i := 0; i < n; i++ {
		h := (hdg[i] + hdgOffset) * math.Pi / 180
		u[i] = vele[i] - tas[i]*math.Sin(h)
		v[i] = veln[i] - tas[i]*math.Cos(h)
		banked[i] = math.Abs(roll[i]) > windsRollLimit
	}

	mask := flags.NewBitmask(n)
	mask.AddMask(banked, "roll_exceeds_threshold")

	declared, err := m.DeclareOutputs(ds)
	if err != nil {
		return err
	}
	for _, out := range declared {
		switch out.Name {
		case "U_NOTURB":
			out.Series = timeseries.New(target, u)
		case "V_NOTURB":
			out.Series = timeseries.New(target, v)
		}
		out.Flag = mask
		if err := sink.AddOutput(out); err != nil {
			return err
		}
	}
	return nil
}

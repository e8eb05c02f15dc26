package modules

import (
	"context"
	"fmt"
	"math"
	"strings"

	"decadespp/internal/dataset"
	"decadespp/internal/flags"
	"decadespp/internal/physics"
	"decadespp/internal/timeseries"
)

// Thermistor calibration grid: 12000 points from -65 C, 1200 points per
// ten degrees, spanning the 12-point calibration tables.
const (
	thGridStart = -65.0
	thGridSpan  = 120.0
	thGridN     = 12000

	thHighVinIdeal = 5.0
	thLowVinIdeal  = 5.0 / math.Sqrt2
	thLowVinNorm   = 3.5355
	thShuntOhms    = 10.0e6
)

// ThermistorTemps derives indicated and true air temperature from the V1
// thermistor circuit. The module is a no-op for any other circuit type.
type ThermistorTemps struct {
	Base
}

// NewThermistorTemps constructs the thermistor temperature module.
func NewThermistorTemps() *ThermistorTemps {
	return &ThermistorTemps{Base: newBase("thermistor_temps", []string{
		"RM_RECFAC",               // recovery factors (const)
		"NDTSENS",                 // non-deiced sensor type (const)
		"DITSENS",                 // deiced sensor type (const)
		"TH_CIRCUIT_TYPE",         // circuit variant (const)
		"TH_DISS_MUL",             // dissipation multiplier (const)
		"TH_RESISTANCE",           // bridge resistances (const)
		"TH_DECADES",              // counts-to-volts calibration (const)
		"TH_CAL_TEMPS",            // calibration temperatures (const)
		"TH_CAL_TEMPS_HI",         // calibration temperatures, high excitation (const)
		"TH_CAL_TEMPS_LO",         // calibration temperatures, low excitation (const)
		"TH_HIGH_VIN",             // measured high excitation voltage (const)
		"TH_LOW_VIN",              // measured low excitation voltage (const)
		"TH_HIGH_VOUT",            // output voltages at high excitation (const)
		"TH_LOW_VOUT",             // output voltages at low excitation (const)
		"CORCON_fast_temp",        // deiced channel counts
		"CORCON_padding1",         // non-deiced channel counts
		"PRTAFT_deiced_temp_flag", // deiced heater indicator, 1 Hz
		"PS_RVSM",                 // static pressure
		"Q_RVSM",                  // pitot-static pressure
	})}
}

type thermistorConstants struct {
	Housing  string
	Recovery float64
	DissMul  float64

	RF, RF1, RF2, RB1, RB2 float64

	CalTemps   []float64 `validate:"len=12"`
	CalTempsHi []float64 `validate:"len=12"`
	CalTempsLo []float64 `validate:"len=12"`
	HighVin    []float64 `validate:"len=12"`
	LowVin     []float64 `validate:"len=12"`
	HighVout   []float64 `validate:"len=12"`
	LowVout    []float64 `validate:"len=12"`

	Channel1 []float64 `validate:"len=2"` // padding1 counts to volts
	Channel2 []float64 `validate:"len=2"` // fast_temp counts to volts
}

// housing returns which probe housing carries the thermistor, DI taking
// precedence, or "" when neither does.
func (m *ThermistorTemps) housing(ds *dataset.Dataset) string {
	if sens, err := ds.Strings("DITSENS"); err == nil && len(sens) > 1 &&
		strings.EqualFold(sens[1], "thermistor") {
		return "DI"
	}
	if sens, err := ds.Strings("NDTSENS"); err == nil && len(sens) > 1 &&
		strings.EqualFold(sens[1], "thermistor") {
		return "ND"
	}
	return ""
}

func (m *ThermistorTemps) constants(ds *dataset.Dataset, housing string) (*thermistorConstants, error) {
	recfac, err := ds.FloatMap("RM_RECFAC")
	if err != nil {
		return nil, &MissingInputError{Module: m.name, Input: "RM_RECFAC"}
	}
	dissMul, err := ds.FloatMap("TH_DISS_MUL")
	if err != nil {
		return nil, &MissingInputError{Module: m.name, Input: "TH_DISS_MUL"}
	}
	resistance, err := ds.NestedFloatMap("TH_RESISTANCE")
	if err != nil {
		return nil, &MissingInputError{Module: m.name, Input: "TH_RESISTANCE"}
	}
	decades, err := ds.FloatsMap("TH_DECADES")
	if err != nil {
		return nil, &MissingInputError{Module: m.name, Input: "TH_DECADES"}
	}

	perHousing := func(name string) ([]float64, error) {
		table, err := ds.FloatsMap(name)
		if err != nil {
			return nil, &MissingInputError{Module: m.name, Input: name}
		}
		vals, ok := table[housing]
		if !ok {
			return nil, &ConfigError{Module: m.name, Message: fmt.Sprintf("%s has no entry for housing %s", name, housing)}
		}
		return vals, nil
	}

	c := &thermistorConstants{
		Housing:  housing,
		Recovery: recfac[housing],
		// The dissipation multiplier table is read from its ND entry for
		// either housing.
		DissMul:  dissMul["ND"],
		RF:       resistance[housing]["RF"],
		RF1:      resistance[housing]["RF1"],
		RF2:      resistance[housing]["RF2"],
		RB1:      resistance[housing]["RB1"],
		RB2:      resistance[housing]["RB2"],
		Channel1: decades["CHANNEL1"],
		Channel2: decades["CHANNEL2"],
	}

	for name, dst := range map[string]*[]float64{
		"TH_CAL_TEMPS":    &c.CalTemps,
		"TH_CAL_TEMPS_HI": &c.CalTempsHi,
		"TH_CAL_TEMPS_LO": &c.CalTempsLo,
		"TH_HIGH_VIN":     &c.HighVin,
		"TH_LOW_VIN":      &c.LowVin,
		"TH_HIGH_VOUT":    &c.HighVout,
		"TH_LOW_VOUT":     &c.LowVout,
	} {
		vals, err := perHousing(name)
		if err != nil {
			return nil, err
		}
		*dst = vals
	}

	if err := validate.Struct(c); err != nil {
		return nil, &ConfigError{Module: m.name, Message: fmt.Sprintf("constants: %v", err)}
	}
	return c, nil
}

// DeclareOutputs registers indicated and true air temperature outputs for
// whichever probes carry a thermistor sensor. The indicated temperatures
// are working variables and are not persisted.
func (m *ThermistorTemps) DeclareOutputs(ds *dataset.Dataset) ([]dataset.Output, error) {
	m.markDeclared()

	var outputs []dataset.Output
	declare := func(housing, probe string) {
		tat := dataset.NewOutput("TAT_"+housing+"_R", "K", 32,
			"True air temperature from the Rosemount "+probe+" temperature sensor")
		tat.StandardName = "air_temperature"

		iat := dataset.NewOutput("IAT_"+housing+"_R", "K", 32,
			"Indicated air temperature from the Rosemount "+probe+" temperature sensor")
		iat.Write = false

		outputs = append(outputs, tat, iat)
	}

	if sens, err := ds.Strings("DITSENS"); err == nil && len(sens) > 1 &&
		strings.EqualFold(sens[1], "thermistor") {
		declare("DI", "deiced")
	}
	if sens, err := ds.Strings("NDTSENS"); err == nil && len(sens) > 1 &&
		strings.EqualFold(sens[1], "thermistor") {
		declare("ND", "non-deiced")
	}
	return outputs, nil
}

// thermistorCalCurves holds the calibration-time products: the dissipation
// polynomial and the resistance-to-temperature spline.
type thermistorCalCurves struct {
	k0           []float64 // cubic dissipation fit, highest order first
	resistSpline *physics.Spline
}

// calibrationCurves builds the self-heating and resistance calibration
// curves from the 12-point bench calibration tables.
func calibrationCurves(c *thermistorConstants) (*thermistorCalCurves, error) {
	adjHigh := make([]float64, 12)
	adjLow := make([]float64, 12)
	for i := 0; i < 12; i++ {
		adjHigh[i] = c.HighVout[i] * thHighVinIdeal / c.HighVin[i]
		adjLow[i] = c.LowVout[i] * thLowVinIdeal / c.LowVin[i]
	}

	// Normalize by the two ideal excitation voltages, 5 and 5/sqrt(2) V.
	normHigh := make([]float64, 12)
	normLow := make([]float64, 12)
	for i := 0; i < 12; i++ {
		normHigh[i] = adjHigh[i] / thHighVinIdeal
		normLow[i] = adjLow[i] / thLowVinNorm
	}

	csHigh, err := physics.NewNaturalSpline(c.CalTempsHi, normHigh)
	if err != nil {
		return nil, err
	}
	csLow, err := physics.NewNaturalSpline(c.CalTempsLo, normLow)
	if err != nil {
		return nil, err
	}

	grid := make([]float64, thGridN)
	for i := range grid {
		grid[i] = thGridStart + thGridSpan*float64(i)/float64(thGridN)
	}

	interpHigh := csHigh.Eval(grid)
	interpLow := csLow.Eval(grid)

	// Self-heating from the spread between the two excitation levels,
	// scaled by the (high) slope; the low slope is near-identical.
	selfHeating := make([]float64, thGridN)
	dissConst := make([]float64, thGridN)
	for i, t := range grid {
		selfHeating[i] = 2 * (interpHigh[i] - interpLow[i]) / csHigh.Derivative(t)

		rt := 1 / ((thHighVinIdeal-thHighVinIdeal*interpHigh[i])/(thHighVinIdeal*interpHigh[i]*c.RF) - 1/thShuntOhms)
		dissConst[i] = math.Pow(interpHigh[i]*thHighVinIdeal, 2) / (rt * selfHeating[i])
	}

	probeTempK := make([]float64, 12)
	resistOut := make([]float64, 12)
	dissOut := make([]float64, 12)
	for j, t := range c.CalTemps {
		gi := -1
		for i, g := range grid {
			if math.Abs(g-t) < 0.001 {
				gi = i
				break
			}
		}
		if gi < 0 {
			return nil, fmt.Errorf("calibration temperature %.2f not on interpolation grid", t)
		}
		probeTempK[j] = physics.CelsiusToKelvin(t + selfHeating[gi])
		resistOut[j] = 1 / ((thHighVinIdeal-adjHigh[j])/(adjHigh[j]*c.RF) - 1/thShuntOhms)
		dissOut[j] = dissConst[gi]
	}

	// Cubic dissipation-vs-temperature fit over the ten interior points.
	k0, err := physics.Polyfit(probeTempK[1:11], dissOut[1:11], 3)
	if err != nil {
		return nil, err
	}

	// Thermistor resistance decreases with temperature; reverse both
	// tables so the spline abscissa increases.
	resistSpline, err := physics.NewNaturalSpline(reverse(resistOut), reverse(probeTempK))
	if err != nil {
		return nil, err
	}

	return &thermistorCalCurves{k0: k0, resistSpline: resistSpline}, nil
}

// Process materializes the thermistor temperatures.
func (m *ThermistorTemps) Process(ctx context.Context, ds *dataset.Dataset, sink dataset.Sink) error {
	defer m.markProcessed()

	if !strings.EqualFold(ds.StringOr("TH_CIRCUIT_TYPE", ""), "v1") {
		m.log.Info("circuit type is not V1, nothing to do")
		return nil
	}
	housing := m.housing(ds)
	if housing == "" {
		m.log.Info("no thermistor sensor fitted, nothing to do")
		return nil
	}

	consts, err := m.constants(ds, housing)
	if err != nil {
		return err
	}

	primary, err := m.requireSeries(ds, "CORCON_fast_temp")
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
		{name: "CORCON_padding1", policy: onto(target, 1)},
		{name: "PS_RVSM", policy: onto(target, 1)},
		{name: "Q_RVSM", policy: onto(target, 1)},
	})
	if err != nil {
		return err
	}
	if err := frame.Set("CORCON_fast_temp", primary.Values); err != nil {
		return err
	}

	psV := frame.MustGet("PS_RVSM")
	qV := frame.MustGet("Q_RVSM")
	mach, machBad := physics.MachFromPressuresFlagged(qV, psV)
	physics.FloorMach(mach)

	heaterFlag := fillHeaterFlag(heater, target, n)
	if err := frame.Set("HEATING_CORRECTION", heaterCorrection(mach, qV, psV, heaterFlag)); err != nil {
		return err
	}

	curves, err := calibrationCurves(consts)
	if err != nil {
		return err
	}

	// Counts to bridge output volts.
	padding1 := frame.MustGet("CORCON_padding1")
	fastTemp := frame.MustGet("CORCON_fast_temp")
	voutNDI := make([]float64, n)
	voutDI := make([]float64, n)
	for i := 0; i < n; i++ {
		voutNDI[i] = consts.Channel1[0]*padding1[i] + consts.Channel1[1]
		voutDI[i] = consts.Channel2[0]*fastTemp[i] + consts.Channel2[1]
	}

	// Invert the resistor bridge for the selected housing.
	rTherm := make([]float64, n)
	v2outR := make([]float64, n)
	switch housing {
	case "ND":
		for i := 0; i < n; i++ {
			rTherm[i] = consts.RF1 * consts.RB1 /
				(consts.RB1*(voutDI[i]/voutNDI[i])*((consts.RF2+consts.RB2)/consts.RB2) - (consts.RB1 + consts.RF1))
			v2outR[i] = voutNDI[i] * voutNDI[i] / rTherm[i]
		}
	case "DI":
		for i := 0; i < n; i++ {
			rTherm[i] = consts.RF2 * consts.RB2 /
				(consts.RB2*(voutNDI[i]/voutDI[i])*((consts.RF1+consts.RB1)/consts.RB1) - (consts.RB2 + consts.RF2))
			v2outR[i] = voutDI[i] * voutDI[i] / rTherm[i]
		}
	default:
		return &ConfigError{Module: m.name, Message: "invalid housing: " + housing}
	}

	// Map resistance to indicated temperature, then remove the fitted
	// self-heating term. The dissipation lookup keeps using the indicated
	// temperature that still contains the self-heating bias; the residual
	// error is accepted.
	iat := make([]float64, n)
	for i := 0; i < n; i++ {
		itTherm := curves.resistSpline.At(rTherm[i])
		k0 := physics.PolyvalSample(curves.k0, itTherm)
		fittedSH := v2outR[i] / (k0 * consts.DissMul)
		iat[i] = itTherm - fittedSH
	}
	tat := physics.TrueAirTemp(iat, mach, consts.Recovery)

	declared, err := m.DeclareOutputs(ds)
	if err != nil {
		return err
	}
	values := map[string][]float64{
		"IAT_" + housing + "_R": iat,
		"TAT_" + housing + "_R": tat,
	}

	for _, out := range declared {
		vals, ok := values[out.Name]
		if !ok {
			continue
		}
		flag := flags.NewBitmask(n)
		flag.AddMask(machBad, "mach_out_of_range")
		out.Series = timeseries.New(target, vals)
		out.Flag = flag
		if err := sink.AddOutput(out); err != nil {
			return err
		}
	}
	return nil
}

package modules

import (
	"context"
	"fmt"
	"math"
	"strings"

	"gonum.org/v1/gonum/optimize"

	"decadespp/internal/dataset"
	"decadespp/internal/flags"
	"decadespp/internal/segment"
	"decadespp/internal/timeseries"
)

// Clear-air detection parameters: the rolling range of the total-water
// collector power inside a window, with a minimum time in or out of cloud
// before the state may flip.
const (
	nevWindowSecs   = 3
	nevMinCloudSecs = 5
	nevRangeLo      = 1e-12
	nevRangeHi      = 0.1

	nevGroundSeverity = 3
)

// nevInstruments lists the sensor heads per vane type.
var nevInstruments = map[string][]string{
	"1t1l2r": {"twc", "lwc"},
	"1t2l1r": {"twc", "lwc1", "lwc2"},
}

// nevMeasurements are the raw channels per sensor head: collector and
// reference, current and voltage.
var nevMeasurements = []string{"icol", "vcol", "iref", "vref"}

// The raw channels are named for the old vane type, with one total, one
// liquid and two reference sensors. Running the newer vane, with one total,
// two liquid and one reference, aliases the old names onto the roles of the
// new wiring; entries resolve against the working frame first and fall back
// to the constants table.
var nevRemap1t2l1r = [][2]string{
	{"CORCON_nv_lwc1_vcol", "CORCON_nv_lwc_vcol"},
	{"CORCON_nv_lwc1_icol", "CORCON_nv_lwc_icol"},
	{"CORCON_nv_lwc1_vref", "CORCON_nv_lwc_vref"},
	{"CORCON_nv_lwc1_iref", "CORCON_nv_lwc_iref"},
	{"CORCON_nv_lwc2_vcol", "CORCON_nv_twc_vref"},
	{"CORCON_nv_lwc2_icol", "CORCON_nv_twc_iref"},
	{"CORCON_nv_lwc2_vref", "CORCON_nv_lwc_vref"},
	{"CORCON_nv_lwc2_iref", "CORCON_nv_lwc_iref"},
	{"CORCON_nv_twc_vref", "CORCON_nv_lwc_vref"},
	{"CORCON_nv_twc_iref", "CORCON_nv_lwc_iref"},
	{"CLWC1ICOL", "CLWCICOL"},
	{"CLWC1VCOL", "CLWCVCOL"},
	{"CLWC1IREF", "CLWCIREF"},
	{"CLWC1VREF", "CLWCVREF"},
	{"CLWC2ICOL", "CTWCIREF"},
	{"CLWC2VCOL", "CTWCVREF"},
	{"CLWC2IREF", "CLWCIREF"},
	{"CLWC2VREF", "CLWCVREF"},
	{"CTWCICOL", "CTWCICOL"},
	{"CTWCVCOL", "CTWCVCOL"},
	{"CTWCIREF", "CLWCIREF"},
	{"CTWCVREF", "CLWCVREF"},
}

// Nevzorov derives liquid and total condensed water content from the
// Nevzorov hot-wire probe, for both the 1T1L2R and 1T2L1R vane types.
type Nevzorov struct {
	Base
}

// NewNevzorov constructs the cloud-water module.
func NewNevzorov() *Nevzorov {
	return &Nevzorov{Base: newBase("nevzorov", []string{
		"CORCON_nv_lwc_vcol", "CORCON_nv_lwc_icol",
		"CORCON_nv_lwc_vref", "CORCON_nv_lwc_iref",
		"CORCON_nv_twc_vcol", "CORCON_nv_twc_icol",
		"CORCON_nv_twc_vref", "CORCON_nv_twc_iref",
		"TAS_RVSM", "IAS_RVSM", "PS_RVSM", "WOW_IND",
		"CLWCIREF", "CLWCVREF", "CLWCICOL", "CLWCVCOL",
		"CTWCIREF", "CTWCVREF", "CTWCICOL", "CTWCVCOL",
		// Per-head CALNV* sensor constants are vane dependent and are
		// resolved at processing time.
		"CALNVTWC", "CALNVL", "VANETYPE",
	})}
}

// clearAirMask marks samples that are airborne and outside cloud, from the
// rolling range of the total-water collector power. Candidate segments
// shorter than the minimum duration are rejected back to in-cloud.
func clearAirMask(twcColP, wow []float64, freq int) []bool {
	r := segment.RollingRange(twcColP, freq*nevWindowSecs)

	mask := make([]bool, len(twcColP))
	for i := range mask {
		mask[i] = r[i] > nevRangeLo && r[i] < nevRangeHi
		if wow[i] == 1 || math.IsNaN(wow[i]) {
			mask[i] = false
		}
	}
	return segment.FilterShortRuns(mask, nevMinCloudSecs*freq)
}

// fitBaselineK fits the two-parameter correction to the collector/reference
// baseline ratio as a function of inverse airspeed and log static pressure,
// restricted to clear-air samples, returning the fitted K series over the
// full index.
func fitBaselineK(colP, refP, ias, ps []float64, clearAir []bool, k float64) ([]float64, [2]float64, error) {
	var sel []int
	for i := range colP {
		if !clearAir[i] {
			continue
		}
		if math.IsNaN(colP[i]) || math.IsNaN(refP[i]) || math.IsNaN(ias[i]) || math.IsNaN(ps[i]) {
			continue
		}
		if refP[i] == 0 || ias[i] == 0 || ps[i] <= 0 {
			continue
		}
		sel = append(sel, i)
	}
	if len(sel) < 2 {
		return nil, [2]float64{}, fmt.Errorf("baseline fit: only %d usable clear-air samples", len(sel))
	}

	problem := optimize.Problem{
		Func: func(x []float64) float64 {
			a, b := x[0], x[1]
			var sum float64
			for _, i := range sel {
				r := colP[i]/refP[i] - k - (a/ias[i] + b*math.Log10(ps[i]))
				sum += r * r
			}
			return sum
		},
	}

	result, err := optimize.Minimize(problem, []float64{0, 0}, nil, &optimize.NelderMead{})
	if err != nil {
		return nil, [2]float64{}, fmt.Errorf("baseline fit: %w", err)
	}
	if math.IsNaN(result.F) || math.IsInf(result.F, 0) {
		return nil, [2]float64{}, fmt.Errorf("baseline fit did not converge")
	}

	a, b := result.X[0], result.X[1]
	fitted := make([]float64, len(ias))
	for i := range fitted {
		fitted[i] = k + a/ias[i] + b*math.Log10(ps[i])
	}
	return fitted, [2]float64{a, b}, nil
}

func (m *Nevzorov) vaneType(ds *dataset.Dataset) (string, error) {
	vane, err := ds.String("VANETYPE")
	if err != nil {
		return "", &MissingInputError{Module: m.name, Input: "VANETYPE"}
	}
	vane = strings.ToLower(vane)
	if _, ok := nevInstruments[vane]; !ok {
		return "", &ConfigError{Module: m.name, Message: "unknown vane type: " + vane}
	}
	return vane, nil
}

// DeclareOutputs registers the outputs for the fitted vane type.
func (m *Nevzorov) DeclareOutputs(ds *dataset.Dataset) ([]dataset.Output, error) {
	m.markDeclared()

	vane, err := m.vaneType(ds)
	if err != nil {
		return nil, err
	}

	water := func(name, qualifier, suffix string) dataset.Output {
		o := dataset.NewOutput(name, "gram m-3", 64,
			qualifier+" water content from the Nevzorov probe"+suffix)
		if strings.Contains(name, "LWC") {
			o.StandardName = "mass_concentration_of_liquid_water_in_air"
		}
		return o
	}
	power := func(name, long string) dataset.Output {
		return dataset.NewOutput(name, "W", 64, long)
	}

	outputs := []dataset.Output{
		water("NV_TWC_U", "Uncorrected total condensed", ""),
		water("NV_TWC_C", "Corrected total condensed", ""),
		power("NV_TWC_COL_P", "TWC collector power"),
	}

	switch vane {
	case "1t1l2r":
		outputs = append(outputs,
			water("NV_LWC_U", "Uncorrected liquid", ""),
			water("NV_LWC_C", "Corrected liquid", ""),
			power("NV_TWC_REF_P", "TWC reference power"),
			power("NV_LWC_COL_P", "LWC collector power"),
			power("NV_LWC_REF_P", "LWC reference power"),
		)
	case "1t2l1r":
		outputs = append(outputs,
			water("NV_LWC1_U", "Uncorrected liquid", " (1st collector)"),
			water("NV_LWC1_C", "Corrected liquid", " (1st collector)"),
			water("NV_LWC2_U", "Uncorrected liquid", " (2nd collector)"),
			water("NV_LWC2_C", "Corrected liquid", " (2nd collector)"),
			power("NV_REF_P", "Reference power"),
			power("NV_LWC1_COL_P", "LWC1 collector power"),
			power("NV_LWC2_COL_P", "LWC2 collector power"),
		)
	}
	return outputs, nil
}

// remap aliases the old-naming-scheme channels and calibration constants
// onto the roles of the 1T2L1R wiring.
func (m *Nevzorov) remap(frame *timeseries.Frame, ds *dataset.Dataset) error {
	for _, pair := range nevRemap1t2l1r {
		dst, src := pair[0], pair[1]
		if frame.Has(src) {
			col, err := frame.Get(src)
			if err != nil {
				return err
			}
			if err := frame.Set(dst, col); err != nil {
				return err
			}
			continue
		}
		if v, ok := ds.Const(src); ok {
			ds.SetConst(dst, v)
			continue
		}
		return &MissingInputError{Module: m.name, Input: src}
	}
	return nil
}

// Process materializes the water content, collector and reference power
// outputs for each sensor head. A baseline fit failure suppresses the
// corrected water content and keeps the uncorrected variant.
func (m *Nevzorov) Process(ctx context.Context, ds *dataset.Dataset, sink dataset.Sink) error {
	defer m.markProcessed()

	vane, err := m.vaneType(ds)
	if err != nil {
		return err
	}
	nvl, err := m.requireFloat(ds, "CALNVL")
	if err != nil {
		return err
	}
	primary, err := m.requireSeries(ds, "CORCON_nv_twc_vcol")
	if err != nil {
		return err
	}

	target := primary.Index
	n := primary.Len()

	specs := []alignSpec{
		{name: "TAS_RVSM", policy: onto(target, 63)},
		{name: "IAS_RVSM", policy: onto(target, 63)},
		{name: "PS_RVSM", policy: onto(target, 63)},
		{name: "WOW_IND", policy: onto(target, 63)},
	}
	for _, head := range []string{"lwc", "twc"} {
		for _, meas := range nevMeasurements {
			name := fmt.Sprintf("CORCON_nv_%s_%s", head, meas)
			if name == "CORCON_nv_twc_vcol" {
				continue
			}
			specs = append(specs, alignSpec{name: name, policy: onto(target, 63)})
		}
	}
	frame, err := m.buildFrame(ds, target, n, specs)
	if err != nil {
		return err
	}
	if err := frame.Set("CORCON_nv_twc_vcol", primary.Values); err != nil {
		return err
	}

	wow := frame.MustGet("WOW_IND")
	tas := frame.MustGet("TAS_RVSM")
	ias := frame.MustGet("IAS_RVSM")
	ps := frame.MustGet("PS_RVSM")

	groundFlag := flags.NewFlag(n)
	for i, w := range wow {
		if w == 1 {
			groundFlag.Set(i, nevGroundSeverity)
		}
	}

	if vane == "1t2l1r" {
		if err := m.remap(frame, ds); err != nil {
			return err
		}
	}

	declared, err := m.DeclareOutputs(ds)
	if err != nil {
		return err
	}
	meta := make(map[string]dataset.Output, len(declared))
	for _, o := range declared {
		meta[o.Name] = o
	}

	emit := func(name string, vals []float64, write bool) error {
		out, ok := meta[name]
		if !ok {
			return fmt.Errorf("output not declared: %s", name)
		}
		out.Series = timeseries.New(target, vals)
		out.Flag = groundFlag
		out.Write = write
		return sink.AddOutput(out)
	}

	var clearAir []bool

	for _, head := range nevInstruments[vane] {
		headUC := strings.ToUpper(head)

		// Sensor area and the constants-file collector/reference ratio.
		calconst, err := m.requireFloats(ds, "CALNV"+headUC)
		if err != nil {
			return err
		}
		if len(calconst) < 2 {
			return &ConfigError{Module: m.name, Message: "CALNV" + headUC + " needs [K, area]"}
		}
		k, area := calconst[0], calconst[1]

		// Calibrate each raw channel to amps/volts.
		cal := make(map[string][]float64, len(nevMeasurements))
		for _, meas := range nevMeasurements {
			raw, err := frame.Get(fmt.Sprintf("CORCON_nv_%s_%s", head, meas))
			if err != nil {
				return err
			}
			cals, err := m.requireFloats(ds, "C"+headUC+strings.ToUpper(meas))
			if err != nil {
				return err
			}
			if len(cals) < 3 {
				return &ConfigError{Module: m.name, Message: "C" + headUC + strings.ToUpper(meas) + " needs 3 coefficients"}
			}
			out := make([]float64, n)
			for i, r := range raw {
				out[i] = (cals[0] + cals[1]*r) * cals[2]
			}
			cal[meas] = out
		}

		colP := make([]float64, n)
		refP := make([]float64, n)
		for i := 0; i < n; i++ {
			colP[i] = cal["icol"][i] * cal["vcol"][i]
			refP[i] = cal["iref"][i] * cal["vref"][i]
		}

		// The cloud mask comes from the total water sensor and is shared
		// by the liquid heads.
		if head == "twc" {
			clearAir = clearAirMask(colP, wow, target.Freq)
		}

		fittedK, params, fitErr := fitBaselineK(colP, refP, ias, ps, clearAir, k)
		if fitErr != nil {
			m.log.Warn("baseline fit failed, writing uncorrected only",
				"head", head, "error", fitErr)
		} else {
			m.log.Info("baseline fit", "head", head, "a", params[0], "b", params[1])
		}

		corrected := make([]float64, n)
		uncorrected := make([]float64, n)
		for i := 0; i < n; i++ {
			fk := 0.0
			if fitErr == nil {
				fk = fittedK[i]
			}
			corrected[i] = (colP[i] - fk*refP[i]) / (tas[i] * area * nvl)
			uncorrected[i] = (colP[i] - k*refP[i]) / (tas[i] * area * nvl)
		}

		if err := emit("NV_"+headUC+"_C", corrected, fitErr == nil); err != nil {
			return err
		}
		if err := emit("NV_"+headUC+"_U", uncorrected, true); err != nil {
			return err
		}
		if err := emit("NV_"+headUC+"_COL_P", colP, true); err != nil {
			return err
		}

		if vane == "1t1l2r" {
			if err := emit("NV_"+headUC+"_REF_P", refP, true); err != nil {
				return err
			}
		} else if head == "twc" {
			if err := emit("NV_REF_P", refP, true); err != nil {
				return err
			}
		}
	}
	return nil
}

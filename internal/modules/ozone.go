package modules

import (
	"context"
	"math"
	"strings"

	"decadespp/internal/dataset"
	"decadespp/internal/flags"
	"decadespp/internal/timeseries"
)

// Operating thresholds for the TECO 49 ozone analyser.
const (
	ozoneMinConc = -10.0
	ozoneMinFlow = 0.5
)

// ozoneNominalStatus reports whether an analyser status word indicates
// normal operation. The instrument emits either 1c100000 or 0c100000 in
// flight depending on its firmware. A missing word is never nominal.
func ozoneNominalStatus(status string) bool {
	s := strings.ToLower(status)
	return s == "1c100000" || s == "0c100000"
}

// Ozone carries the TECO 49 ozone concentration through to output, building
// a bitmask flag from the instrument status word, the sample flows, the
// concentration range and the weight-on-wheels state.
type Ozone struct {
	Base
}

// NewOzone constructs the ozone module.
func NewOzone() *Ozone {
	return &Ozone{Base: newBase("tei_ozone", []string{
		"TEIOZO_conc", "TEIOZO_flag", "TEIOZO_FlowA", "TEIOZO_FlowB",
		"WOW_IND",
	})}
}

// DeclareOutputs registers the ozone concentration output.
func (m *Ozone) DeclareOutputs(ds *dataset.Dataset) ([]dataset.Output, error) {
	m.markDeclared()

	o3 := dataset.NewOutput("O3_TECO", "ppb", 1,
		"Mole fraction of ozone in air from the TECO 49 instrument")
	o3.StandardName = "mole_fraction_of_ozone_in_air"

	return []dataset.Output{o3}, nil
}

// Process aligns the analyser channels onto a 1 Hz grid and attaches the
// condition masks.
func (m *Ozone) Process(ctx context.Context, ds *dataset.Dataset, sink dataset.Sink) error {
	defer m.markProcessed()

	concSrc, err := m.requireSeries(ds, "TEIOZO_conc")
	if err != nil {
		return err
	}
	statusSrc, err := ds.StringSeries("TEIOZO_flag")
	if err != nil {
		return &MissingInputError{Module: m.name, Input: "TEIOZO_flag"}
	}

	target, n := timeseries.OneHertzSpan(concSrc.Index.TimeAt(0), concSrc.Index.TimeAt(concSrc.Len()-1))

	frame, err := m.buildFrame(ds, target, n, []alignSpec{
		{name: "TEIOZO_FlowA", policy: onto(target, 1)},
		{name: "TEIOZO_FlowB", policy: onto(target, 1)},
		{name: "WOW_IND", policy: onto(target, 1)},
	})
	if err != nil {
		return err
	}

	conc := timeseries.Resample(concSrc, target, n, onto(target, 1))
	status := timeseries.ResampleString(statusSrc, target, n, onto(target, 1))
	flowA := frame.MustGet("TEIOZO_FlowA")
	flowB := frame.MustGet("TEIOZO_FlowB")
	wow := frame.MustGet("WOW_IND")

	alarm := make([]bool, n)
	concBad := make([]bool, n)
	flowBad := make([]bool, n)
	ground := make([]bool, n)
	for i := 0; i < n; i++ {
		alarm[i] = !ozoneNominalStatus(status[i])
		concBad[i] = conc[i] < ozoneMinConc || math.IsNaN(conc[i])
		flowBad[i] = flowA[i] < ozoneMinFlow || flowB[i] < ozoneMinFlow ||
			math.IsNaN(flowA[i]) || math.IsNaN(flowB[i])
		ground[i] = wow[i] == 1
	}

	mask := flags.NewBitmask(n)
	mask.AddMask(alarm, "instrument_alarm")
	mask.AddMask(concBad, "conc_out_of_range")
	mask.AddMask(flowBad, "flow_out_of_range")
	mask.AddMask(ground, "aircraft_on_ground")

	declared, err := m.DeclareOutputs(ds)
	if err != nil {
		return err
	}
	out := declared[0]
	out.Series = timeseries.New(target, conc)
	out.Flag = mask
	return sink.AddOutput(out)
}

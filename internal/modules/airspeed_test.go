package modules

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"decadespp/internal/dataset"
	"decadespp/internal/physics"
)

func TestAirspeedProcess(t *testing.T) {
	const (
		ps      = 900.0
		q       = 129.0
		tat     = 285.0
		tascorr = 0.9984
		n       = 64
	)

	ds := dataset.New()
	ds.SetConstants(map[string]any{"TASCORR": tascorr})
	ds.AddSeries("PS_RVSM", constSeries(t, 32, n, ps))
	ds.AddSeries("Q_RVSM", constSeries(t, 32, n, q))
	ds.AddSeries("TAT_DI_R", constSeries(t, 32, n, tat))

	sink := &captureSink{}
	m := NewAirspeed()
	require.NoError(t, m.Process(context.Background(), ds, sink))

	mach := physics.Mach(q, ps)
	wantIAS := physics.SpeedOfSound * mach * math.Sqrt(ps/physics.ICAOStdPress)
	wantTAS := tascorr * physics.SpeedOfSound * mach * math.Sqrt(tat/physics.ICAOStdTemp)

	ias := sink.get(t, "IAS_RVSM")
	tas := sink.get(t, "TAS_RVSM")

	require.Equal(t, n, ias.Series.Len())
	require.Equal(t, n, tas.Series.Len())
	for i := 0; i < n; i++ {
		assert.InDelta(t, wantIAS, ias.Series.At(i), 1e-6)
		assert.InDelta(t, wantTAS, tas.Series.At(i), 1e-6)
		assert.Equal(t, 0, ias.Flag.Values()[i])
		assert.Equal(t, 0, tas.Flag.Values()[i])
	}
	assert.Equal(t, StateProcessed, m.State())
}

func TestAirspeedFlagsInvalidMach(t *testing.T) {
	const n = 8
	ds := dataset.New()
	ds.SetConstants(map[string]any{"TASCORR": 1.0})

	psVals := constSeries(t, 32, n, 900)
	qVals := constSeries(t, 32, n, 129)
	qVals.Values[3] = -5 // non-physical dynamic pressure
	qVals.Values[5] = 0.01

	ds.AddSeries("PS_RVSM", psVals)
	ds.AddSeries("Q_RVSM", qVals)
	ds.AddSeries("TAT_DI_R", constSeries(t, 32, n, 285))

	sink := &captureSink{}
	require.NoError(t, NewAirspeed().Process(context.Background(), ds, sink))

	for _, name := range []string{"IAS_RVSM", "TAS_RVSM"} {
		flag := sink.get(t, name).Flag.Values()
		assert.Equal(t, 1, flag[3], "%s negative q", name)
		assert.Equal(t, 1, flag[5], "%s mach below range", name)
		assert.Equal(t, 0, flag[0], "%s valid sample", name)
	}
}

func TestAirspeedMissingInput(t *testing.T) {
	ds := dataset.New()
	ds.SetConstants(map[string]any{"TASCORR": 1.0})
	ds.AddSeries("PS_RVSM", constSeries(t, 32, 8, 900))

	err := NewAirspeed().Process(context.Background(), ds, &captureSink{})
	require.Error(t, err)

	var miss *MissingInputError
	require.ErrorAs(t, err, &miss)
	assert.Equal(t, "Q_RVSM", miss.Input)
}

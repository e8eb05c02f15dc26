package modules

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"decadespp/internal/dataset"
	"decadespp/internal/solarpos"
)

func TestSolarProcess(t *testing.T) {
	const n = 10
	ds := dataset.New()
	ds.AddSeries("LAT_GIN", constSeries(t, 1, n, 51.5))
	ds.AddSeries("LON_GIN", constSeries(t, 1, n, -1.1))

	sink := &captureSink{}
	require.NoError(t, NewSolar().Process(context.Background(), ds, sink))

	zen := sink.get(t, "SOL_ZEN")
	azim := sink.get(t, "SOL_AZIM")
	require.Equal(t, n, zen.Series.Len())
	require.Equal(t, n, azim.Series.Len())

	for i := 0; i < n; i++ {
		alt, az := solarpos.Position(51.5, -1.1, zen.Series.Index.TimeAt(i))
		assert.InDelta(t, 90-alt, zen.Series.At(i), 1e-9, "sample %d", i)
		assert.InDelta(t, az, azim.Series.At(i), 1e-9, "sample %d", i)
		assert.Equal(t, 0, zen.Flag.Values()[i])
	}
}

func TestSolarFlagsMissingPosition(t *testing.T) {
	const n = 6
	lat := constSeries(t, 1, n, 51.5)
	lat.Values[2] = math.NaN()

	ds := dataset.New()
	ds.AddSeries("LAT_GIN", lat)
	ds.AddSeries("LON_GIN", constSeries(t, 1, n, 0))

	sink := &captureSink{}
	require.NoError(t, NewSolar().Process(context.Background(), ds, sink))

	zen := sink.get(t, "SOL_ZEN")
	assert.True(t, math.IsNaN(zen.Series.At(2)))
	assert.Equal(t, 1, zen.Flag.Values()[2])
	assert.Equal(t, 0, zen.Flag.Values()[1])
}

func TestSolarRunsAtOneHertz(t *testing.T) {
	// A 32 Hz position feed still yields a 1 Hz ephemeris grid.
	const n = 96
	ds := dataset.New()
	ds.AddSeries("LAT_GIN", constSeries(t, 32, n, 10))
	ds.AddSeries("LON_GIN", constSeries(t, 32, n, 20))

	sink := &captureSink{}
	require.NoError(t, NewSolar().Process(context.Background(), ds, sink))

	zen := sink.get(t, "SOL_ZEN")
	assert.Equal(t, 1, zen.Series.Index.Freq)
	assert.Equal(t, 4, zen.Series.Len())
	assert.Equal(t, 1, zen.Frequency)
}

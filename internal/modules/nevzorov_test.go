package modules

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"decadespp/internal/dataset"
)

func TestClearAirMask(t *testing.T) {
	const freq = 1
	const n = 60

	colP := make([]float64, n)
	wow := make([]float64, n)
	for i := range colP {
		// Quiet baseline with millwatt-scale jitter.
		colP[i] = 1.0 + 1e-3*float64(i%2)
	}
	// An in-cloud excursion: the collector power swings hard.
	for i := 25; i < 35; i++ {
		colP[i] = 1.0 + float64(i%3)
	}

	mask := clearAirMask(colP, wow, freq)

	assert.True(t, mask[10], "quiet airborne segment is clear air")
	assert.True(t, mask[50])
	for i := 25; i < 35; i++ {
		assert.False(t, mask[i], "cloud sample %d", i)
	}
}

func TestClearAirMaskRejectsGround(t *testing.T) {
	const n = 40
	colP := make([]float64, n)
	wow := make([]float64, n)
	for i := range colP {
		colP[i] = 1.0 + 1e-3*float64(i%2)
		wow[i] = 1
	}

	mask := clearAirMask(colP, wow, 1)
	for i := range mask {
		assert.False(t, mask[i], "sample %d", i)
	}
}

func TestClearAirMaskRejectsShortSegments(t *testing.T) {
	const n = 40
	colP := make([]float64, n)
	wow := make([]float64, n)
	for i := range colP {
		colP[i] = 1.0 + float64(i%3) // everything looks like cloud
	}
	// A clear-air pocket shorter than the minimum duration.
	for i := 18; i < 21; i++ {
		colP[i] = 1.0 + 1e-3*float64(i%2)
	}

	mask := clearAirMask(colP, wow, 1)
	for i := range mask {
		assert.False(t, mask[i], "sample %d", i)
	}
}

func TestFitBaselineKRecoversParameters(t *testing.T) {
	const (
		k = 0.7
		a = 30.0
		b = 0.05
		n = 200
	)

	colP := make([]float64, n)
	refP := make([]float64, n)
	ias := make([]float64, n)
	ps := make([]float64, n)
	clear := make([]bool, n)
	for i := range colP {
		ias[i] = 80 + float64(i)*0.5
		ps[i] = 700 + float64(i)
		refP[i] = 2.0
		colP[i] = refP[i] * (k + a/ias[i] + b*math.Log10(ps[i]))
		clear[i] = true
	}

	fitted, params, err := fitBaselineK(colP, refP, ias, ps, clear, k)
	require.NoError(t, err)

	assert.InDelta(t, a, params[0], 1e-2)
	assert.InDelta(t, b, params[1], 1e-3)
	for i := 0; i < n; i += 20 {
		assert.InDelta(t, colP[i]/refP[i], fitted[i], 1e-4, "sample %d", i)
	}
}

func TestFitBaselineKNeedsClearAir(t *testing.T) {
	n := 10
	zeros := make([]float64, n)
	clear := make([]bool, n)

	_, _, err := fitBaselineK(zeros, zeros, zeros, zeros, clear, 0.7)
	assert.Error(t, err)
}

func TestNevzorovVaneType(t *testing.T) {
	m := NewNevzorov()

	ds := dataset.New()
	_, err := m.vaneType(ds)
	var miss *MissingInputError
	require.ErrorAs(t, err, &miss)
	assert.Equal(t, "VANETYPE", miss.Input)

	ds.SetConst("VANETYPE", "2t2l2r")
	_, err = m.vaneType(ds)
	var cfg *ConfigError
	assert.ErrorAs(t, err, &cfg)

	ds.SetConst("VANETYPE", "1T2L1R")
	vane, err := m.vaneType(ds)
	require.NoError(t, err)
	assert.Equal(t, "1t2l1r", vane, "vane type comparison is case-insensitive")
}

func TestNevzorovDeclaredOutputsPerVane(t *testing.T) {
	names := func(outs []dataset.Output) []string {
		var out []string
		for _, o := range outs {
			out = append(out, o.Name)
		}
		return out
	}

	ds := dataset.New()
	ds.SetConst("VANETYPE", "1t1l2r")
	outs, err := NewNevzorov().DeclareOutputs(ds)
	require.NoError(t, err)
	got := names(outs)
	assert.Contains(t, got, "NV_LWC_C")
	assert.Contains(t, got, "NV_TWC_REF_P")
	assert.NotContains(t, got, "NV_LWC1_C")

	ds.SetConst("VANETYPE", "1t2l1r")
	outs, err = NewNevzorov().DeclareOutputs(ds)
	require.NoError(t, err)
	got = names(outs)
	assert.Contains(t, got, "NV_LWC1_C")
	assert.Contains(t, got, "NV_LWC2_U")
	assert.Contains(t, got, "NV_REF_P")
	assert.NotContains(t, got, "NV_LWC_C")

	for _, o := range outs {
		if o.Name == "NV_LWC1_C" {
			assert.Equal(t, "mass_concentration_of_liquid_water_in_air", o.StandardName)
		}
	}
}

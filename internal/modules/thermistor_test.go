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

// syntheticThermistor models a bench calibration of an exponential
// thermistor behind the V1 bridge: R(T) = 1e5 exp(-0.04 (T + 65)), with the
// low-excitation readings shifted as if the element ran half a degree
// cooler.
func syntheticThermistor() *thermistorConstants {
	const (
		rf    = 1.0e5
		shift = 0.5
	)
	resistance := func(tempC float64) float64 {
		return 1e5 * math.Exp(-0.04*(tempC+65))
	}
	normalized := func(tempC float64) float64 {
		g := 1/resistance(tempC) + 1/thShuntOhms
		return 1 / (1 + rf*g)
	}

	c := &thermistorConstants{
		Housing:  "ND",
		Recovery: 0.999,
		DissMul:  1.0,
		RF:       rf,
	}
	for i := 0; i < 12; i++ {
		tempC := -60.0 + 10*float64(i)
		c.CalTemps = append(c.CalTemps, tempC)
		c.CalTempsHi = append(c.CalTempsHi, tempC)
		c.CalTempsLo = append(c.CalTempsLo, tempC)
		c.HighVin = append(c.HighVin, thHighVinIdeal)
		c.LowVin = append(c.LowVin, thLowVinIdeal)
		c.HighVout = append(c.HighVout, normalized(tempC)*thHighVinIdeal)
		c.LowVout = append(c.LowVout, normalized(tempC-shift)*thLowVinNorm)
	}
	return c
}

func TestCalibrationCurves(t *testing.T) {
	c := syntheticThermistor()

	curves, err := calibrationCurves(c)
	require.NoError(t, err)

	// The bench resistances must map back onto the self-heating-corrected
	// probe temperatures through the spline.
	for j := 1; j < 11; j++ {
		tempC := c.CalTemps[j]
		r := 1e5 * math.Exp(-0.04*(tempC+65))

		got := curves.resistSpline.At(r)
		// A half-degree excitation shift shows up as roughly one degree
		// of self-heating on top of the bath temperature.
		assert.InDelta(t, physics.CelsiusToKelvin(tempC)+1.0, got, 0.5, "cal point %d", j)
	}

	// The dissipation polynomial must be finite and positive over the
	// calibrated range.
	for _, tempK := range []float64{233.15, 273.15, 313.15} {
		k0 := physics.PolyvalSample(curves.k0, tempK)
		assert.False(t, math.IsNaN(k0))
		assert.Greater(t, k0, 0.0, "dissipation at %v K", tempK)
	}
}

func TestCalibrationCurvesRejectsOffGridTemps(t *testing.T) {
	c := syntheticThermistor()
	c.CalTemps[3] = -30.0042 // not representable on the lookup grid

	_, err := calibrationCurves(c)
	assert.Error(t, err)
}

func TestThermistorHousingPrecedence(t *testing.T) {
	m := NewThermistorTemps()

	ds := dataset.New()
	assert.Equal(t, "", m.housing(ds))

	ds.SetConst("NDTSENS", []any{"0000", "thermistor"})
	assert.Equal(t, "ND", m.housing(ds))

	ds.SetConst("DITSENS", []any{"0000", "Thermistor"})
	assert.Equal(t, "DI", m.housing(ds), "deiced housing takes precedence")

	ds.SetConst("DITSENS", []any{"0000", "plate"})
	assert.Equal(t, "ND", m.housing(ds))
}

func TestThermistorDeclaresPerSensor(t *testing.T) {
	ds := dataset.New()
	ds.SetConst("NDTSENS", []any{"0000", "thermistor"})

	outs, err := NewThermistorTemps().DeclareOutputs(ds)
	require.NoError(t, err)
	require.Len(t, outs, 2)
	assert.Equal(t, "TAT_ND_R", outs[0].Name)
	assert.True(t, outs[0].Write)
	assert.Equal(t, "IAT_ND_R", outs[1].Name)
	assert.False(t, outs[1].Write, "indicated temperature is a working variable")
}

func TestThermistorNoOpForOtherCircuits(t *testing.T) {
	ds := dataset.New()
	ds.SetConst("TH_CIRCUIT_TYPE", "v2")
	ds.SetConst("DITSENS", []any{"0000", "thermistor"})

	sink := &captureSink{}
	m := NewThermistorTemps()
	require.NoError(t, m.Process(context.Background(), ds, sink))
	assert.Empty(t, sink.outputs)
	assert.Equal(t, StateProcessed, m.State())
}

func TestThermistorNoOpWithoutSensor(t *testing.T) {
	ds := dataset.New()
	ds.SetConst("TH_CIRCUIT_TYPE", "V1")
	ds.SetConst("DITSENS", []any{"0000", "plate"})
	ds.SetConst("NDTSENS", []any{"0000", "plate"})

	sink := &captureSink{}
	require.NoError(t, NewThermistorTemps().Process(context.Background(), ds, sink))
	assert.Empty(t, sink.outputs)
}

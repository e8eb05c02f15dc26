package segment

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRuns(t *testing.T) {
	tests := []struct {
		name string
		mask []bool
		want []Run
	}{
		{
			name: "empty",
			mask: nil,
			want: nil,
		},
		{
			name: "all false",
			mask: []bool{false, false, false},
			want: nil,
		},
		{
			name: "interior run",
			mask: []bool{false, true, true, false},
			want: []Run{{Start: 1, End: 3}},
		},
		{
			name: "run reaching the end",
			mask: []bool{false, true, true},
			want: []Run{{Start: 1, End: 3}},
		},
		{
			name: "several runs",
			mask: []bool{true, false, true, true, false, true},
			want: []Run{{Start: 0, End: 1}, {Start: 2, End: 4}, {Start: 5, End: 6}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Runs(tt.mask))
		})
	}
}

func TestFilterShortRuns(t *testing.T) {
	mask := []bool{true, true, false, true, true, true, false, true}

	got := FilterShortRuns(mask, 3)

	// Only the length-3 run survives; shorter runs are cleared in full.
	assert.Equal(t, []bool{false, false, false, true, true, true, false, false}, got)
}

func TestFilterShortRunsPreservesLongRunsExactly(t *testing.T) {
	mask := make([]bool, 50)
	for i := 10; i < 40; i++ {
		mask[i] = true
	}

	got := FilterShortRuns(mask, 30)
	assert.Equal(t, mask, got)

	got = FilterShortRuns(mask, 31)
	assert.Equal(t, make([]bool, 50), got)
}

func TestRunMid(t *testing.T) {
	assert.Equal(t, 3, Run{Start: 2, End: 5}.Mid())
	assert.Equal(t, 4, Run{Start: 2, End: 6}.Mid())
}

func TestRollingRange(t *testing.T) {
	x := []float64{1, 5, 2, 8, 3}

	got := RollingRange(x, 3)

	assert.True(t, math.IsNaN(got[0]), "incomplete leading window")
	assert.Equal(t, 4.0, got[1])
	assert.Equal(t, 6.0, got[2])
	assert.Equal(t, 6.0, got[3])
	assert.True(t, math.IsNaN(got[4]), "incomplete trailing window")
}

func TestRollingRangePropagatesUndefined(t *testing.T) {
	x := []float64{1, math.NaN(), 2, 3, 4, 5}

	got := RollingRange(x, 3)

	assert.True(t, math.IsNaN(got[2]), "window touching the gap")
	assert.Equal(t, 2.0, got[4])
}

func TestRollingMeanIsTrailing(t *testing.T) {
	x := []float64{2, 4, 6, 8}

	got := RollingMean(x, 2)

	assert.True(t, math.IsNaN(got[0]))
	assert.Equal(t, 3.0, got[1])
	assert.Equal(t, 5.0, got[2])
	assert.Equal(t, 7.0, got[3])
}

func TestRollingStd(t *testing.T) {
	x := []float64{1, 1, 1, 1, 1}

	got := RollingStd(x, 3)
	assert.Equal(t, 0.0, got[2])
}

func TestFlaggedAverageMidpoint(t *testing.T) {
	flag := []int{0, 1, 1, 1, 0, 0, 1, 1, 1, 1}
	data := []float64{9, 1, 2, 3, 9, 9, 4, 5, 6, 7}

	got := FlaggedAverage(flag, data, AvgOptions{FlagValue: 1})

	// Each averaged value lands at its run's midpoint, everything else is
	// undefined.
	assert.InDelta(t, 2.0, got[2], 1e-12)
	assert.InDelta(t, 5.5, got[8], 1e-12)
	for _, i := range []int{0, 1, 3, 4, 5, 6, 7, 9} {
		assert.True(t, math.IsNaN(got[i]), "sample %d", i)
	}
}

func TestFlaggedAverageSkipsRunEdges(t *testing.T) {
	flag := []int{1, 1, 1, 1, 1}
	data := []float64{100, 2, 4, 6, 100}

	got := FlaggedAverage(flag, data, AvgOptions{FlagValue: 1, SkipStart: 1, SkipEnd: 1})

	assert.InDelta(t, 4.0, got[2], 1e-12)
}

func TestFlaggedAverageSkipConsumesRun(t *testing.T) {
	flag := []int{1, 1}
	data := []float64{1, 2}

	got := FlaggedAverage(flag, data, AvgOptions{FlagValue: 1, SkipStart: 1, SkipEnd: 1})

	for i := range got {
		assert.True(t, math.IsNaN(got[i]), "sample %d", i)
	}
}

func TestFlaggedAverageInterpolates(t *testing.T) {
	flag := []int{0, 1, 1, 1, 0, 1, 1, 1, 0, 0}
	data := []float64{0, 2, 2, 2, 0, 6, 6, 6, 0, 0}

	got := FlaggedAverage(flag, data, AvgOptions{FlagValue: 1, Interpolate: true})

	// Midpoints are samples 2 and 6; linear in between, undefined before,
	// held after.
	assert.True(t, math.IsNaN(got[0]))
	assert.True(t, math.IsNaN(got[1]))
	assert.InDelta(t, 2.0, got[2], 1e-12)
	assert.InDelta(t, 4.0, got[4], 1e-12)
	assert.InDelta(t, 6.0, got[6], 1e-12)
	assert.InDelta(t, 6.0, got[9], 1e-12)
}

func TestFlaggedAverageIgnoresUndefinedData(t *testing.T) {
	flag := []int{1, 1, 1}
	data := []float64{2, math.NaN(), 4}

	got := FlaggedAverage(flag, data, AvgOptions{FlagValue: 1})

	assert.InDelta(t, 3.0, got[1], 1e-12)
}

func TestSteadyLevelRunsDetectsLevelFlight(t *testing.T) {
	const n = 360
	wow := make([]float64, n)
	ps := make([]float64, n)
	roll := make([]float64, n)
	for i := range ps {
		ps[i] = 900
	}

	runs, err := SteadyLevelRuns(wow, ps, roll, DefaultSLRParams())
	require.NoError(t, err)

	require.Len(t, runs, 1)
	assert.GreaterOrEqual(t, runs[0].Len(), DefaultSLRParams().MinLength)
}

func TestSteadyLevelRunsRejectsGround(t *testing.T) {
	const n = 360
	wow := make([]float64, n)
	ps := make([]float64, n)
	roll := make([]float64, n)
	for i := range wow {
		wow[i] = 1
		ps[i] = 900
	}

	runs, err := SteadyLevelRuns(wow, ps, roll, DefaultSLRParams())
	require.NoError(t, err)
	assert.Empty(t, runs)
}

func TestSteadyLevelRunsSplitsLongRuns(t *testing.T) {
	const n = 1000
	wow := make([]float64, n)
	ps := make([]float64, n)
	roll := make([]float64, n)
	for i := range ps {
		ps[i] = 850
	}

	p := DefaultSLRParams()
	p.MaxLength = 200

	runs, err := SteadyLevelRuns(wow, ps, roll, p)
	require.NoError(t, err)

	require.NotEmpty(t, runs)
	for i, r := range runs {
		assert.LessOrEqual(t, r.Len(), p.MaxLength, "run %d", i)
		assert.GreaterOrEqual(t, r.Len(), p.MinLength, "run %d", i)
		if i > 0 {
			assert.Equal(t, runs[i-1].End, r.Start, "chunks must be contiguous")
		}
	}
}

func TestSteadyLevelRunsValidation(t *testing.T) {
	_, err := SteadyLevelRuns([]float64{0}, []float64{1, 2}, []float64{0}, DefaultSLRParams())
	assert.Error(t, err)

	p := DefaultSLRParams()
	p.MaxLength = 10
	_, err = SteadyLevelRuns([]float64{0}, []float64{1}, []float64{0}, p)
	assert.Error(t, err, "max length below min length")
}

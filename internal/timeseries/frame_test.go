package timeseries

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFrameSetAndGet(t *testing.T) {
	f := NewFrame(mustIndex(t, 1), 3)

	require.NoError(t, f.Set("PS_RVSM", []float64{900, 901, 902}))
	assert.Error(t, f.Set("PS_RVSM", []float64{900}), "length mismatch must be rejected")

	col, err := f.Get("PS_RVSM")
	require.NoError(t, err)
	assert.Equal(t, []float64{900, 901, 902}, col)

	_, err = f.Get("Q_RVSM")
	assert.Error(t, err)
	assert.False(t, f.Has("Q_RVSM"))

	assert.Panics(t, func() { f.MustGet("Q_RVSM") })
}

func TestFrameAlign(t *testing.T) {
	src := New(mustIndex(t, 1), []float64{5, 6, 7})
	f := NewFrame(mustIndex(t, 2), 6)

	f.Align("TAT_DI_R", src, FillPolicy{Method: Onto, GapLimit: time.Second})

	col := f.MustGet("TAT_DI_R")
	assert.Len(t, col, 6)
	assert.Equal(t, 5.0, col[0])
	assert.Equal(t, 6.0, col[2])

	s, err := f.Series("TAT_DI_R")
	require.NoError(t, err)
	assert.Equal(t, f.Index(), s.Index)
	assert.Equal(t, f.Len(), s.Len())
}

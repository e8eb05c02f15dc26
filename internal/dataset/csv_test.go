package dataset

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"decadespp/internal/timeseries"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadCSV(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "teiozo.csv", strings.Join([]string{
		"time,TEIOZO_conc,TEIOZO_flag",
		"2026-03-14T09:00:00Z,31.2,1c100000",
		"2026-03-14T09:00:01Z,,1c100000",
		"2026-03-14T09:00:02Z,30.8,0c100002",
		"",
	}, "\n"))

	ds := New()
	require.NoError(t, LoadCSV(path, ds))

	conc, err := ds.Series("TEIOZO_conc")
	require.NoError(t, err)
	assert.Equal(t, 1, conc.Index.Freq)
	assert.Equal(t, 31.2, conc.At(0))
	assert.True(t, math.IsNaN(conc.At(1)), "empty cell is undefined")
	assert.Equal(t, 30.8, conc.At(2))

	status, err := ds.StringSeries("TEIOZO_flag")
	require.NoError(t, err)
	assert.Equal(t, []string{"1c100000", "1c100000", "0c100002"}, status.Values)
}

func TestLoadCSVInfersFrequency(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "corcon.csv", strings.Join([]string{
		"time,CORCON_di_temp",
		"2026-03-14T09:00:00Z,7000",
		"2026-03-14T09:00:00.03125Z,7001",
		"2026-03-14T09:00:00.0625Z,7002",
		"",
	}, "\n"))

	ds := New()
	require.NoError(t, LoadCSV(path, ds))

	s, err := ds.Series("CORCON_di_temp")
	require.NoError(t, err)
	assert.Equal(t, 32, s.Index.Freq)
}

func TestLoadCSVRejectsBadInput(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name    string
		content string
	}{
		{
			name: "missing time column",
			content: "timestamp,X\n" +
				"2026-03-14T09:00:00Z,1\n" +
				"2026-03-14T09:00:01Z,2\n",
		},
		{
			name:    "too few rows",
			content: "time,X\n2026-03-14T09:00:00Z,1\n",
		},
		{
			name: "non-increasing timestamps",
			content: "time,X\n" +
				"2026-03-14T09:00:01Z,1\n" +
				"2026-03-14T09:00:01Z,2\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, dir, strings.ReplaceAll(tt.name, " ", "_")+".csv", tt.content)
			assert.Error(t, LoadCSV(path, New()))
		})
	}
}

func TestWriteOutputsCSV(t *testing.T) {
	ds := New()
	ix, err := timeseries.NewIndex(time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC), 1)
	require.NoError(t, err)

	kept := NewOutput("TAS_RVSM", "m s-1", 1, "True airspeed")
	kept.Series = timeseries.New(ix, []float64{120, math.NaN()})
	require.NoError(t, ds.AddOutput(kept))

	suppressed := NewOutput("NV_TWC_C", "gram m-3", 1, "Corrected total water")
	suppressed.Series = timeseries.New(ix, []float64{0.1, 0.2})
	suppressed.Write = false
	require.NoError(t, ds.AddOutput(suppressed))

	dir := t.TempDir()
	require.NoError(t, WriteOutputsCSV(ds, dir))

	data, err := os.ReadFile(filepath.Join(dir, "TAS_RVSM.csv"))
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "time,TAS_RVSM,flag", lines[0])
	assert.Contains(t, lines[1], ",120,")
	assert.True(t, strings.HasSuffix(lines[2], ",,0"), "undefined values serialize empty: %q", lines[2])

	_, err = os.Stat(filepath.Join(dir, "NV_TWC_C.csv"))
	assert.True(t, os.IsNotExist(err), "suppressed outputs must not be written")
}

// Package qa summarises a processing run into a spreadsheet report, one row
// per output variable, for post-flight review.
package qa

import (
	"fmt"
	"math"

	"github.com/montanaflynn/stats"
	"github.com/xuri/excelize/v2"
	"gonum.org/v1/gonum/stat"

	"decadespp/internal/dataset"
)

// Summary holds the per-output statistics reported to reviewers.
type Summary struct {
	Name      string
	Units     string
	Frequency int
	Samples   int
	Coverage  float64
	Min       float64
	Max       float64
	Mean      float64
	Median    float64
	P05       float64
	P95       float64
	StdDev    float64
	// Flagged is the fraction of samples carrying a non-zero flag.
	Flagged float64
	Written bool
}

// Summarise computes the statistics for one output.
func Summarise(o dataset.Output) Summary {
	s := Summary{
		Name:      o.Name,
		Units:     o.Units,
		Frequency: o.Frequency,
		Written:   o.Write,
		Min:       math.NaN(),
		Max:       math.NaN(),
		Mean:      math.NaN(),
		Median:    math.NaN(),
		P05:       math.NaN(),
		P95:       math.NaN(),
		StdDev:    math.NaN(),
	}
	if o.Series == nil {
		return s
	}

	s.Samples = o.Series.Len()

	var valid []float64
	for _, v := range o.Series.Values {
		if !math.IsNaN(v) {
			valid = append(valid, v)
		}
	}
	if s.Samples > 0 {
		s.Coverage = float64(len(valid)) / float64(s.Samples)
	}

	if o.Flag != nil && o.Flag.Len() == s.Samples && s.Samples > 0 {
		flagged := 0
		for _, f := range o.Flag.Values() {
			if f != 0 {
				flagged++
			}
		}
		s.Flagged = float64(flagged) / float64(s.Samples)
	}

	if len(valid) == 0 {
		return s
	}

	s.Mean = stat.Mean(valid, nil)
	s.StdDev = stat.StdDev(valid, nil)

	// Order statistics come from the stats package, tolerating its
	// errors on degenerate inputs.
	if v, err := stats.Min(valid); err == nil {
		s.Min = v
	}
	if v, err := stats.Max(valid); err == nil {
		s.Max = v
	}
	if v, err := stats.Median(valid); err == nil {
		s.Median = v
	}
	if v, err := stats.Percentile(valid, 5); err == nil {
		s.P05 = v
	}
	if v, err := stats.Percentile(valid, 95); err == nil {
		s.P95 = v
	}
	return s
}

var reportHeader = []string{
	"Variable", "Units", "Frequency (Hz)", "Samples", "Coverage",
	"Min", "Max", "Mean", "Median", "P05", "P95", "Std dev",
	"Flagged", "Written",
}

// WriteReport writes one summary row per dataset output to an xlsx file.
func WriteReport(ds *dataset.Dataset, path string) error {
	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Outputs"
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return fmt.Errorf("naming report sheet: %w", err)
	}

	for col, h := range reportHeader {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return err
		}
	}

	for row, o := range ds.Outputs() {
		s := Summarise(o)
		values := []any{
			s.Name, s.Units, s.Frequency, s.Samples, s.Coverage,
			cellFloat(s.Min), cellFloat(s.Max), cellFloat(s.Mean),
			cellFloat(s.Median), cellFloat(s.P05), cellFloat(s.P95),
			cellFloat(s.StdDev), s.Flagged, s.Written,
		}
		for col, v := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, row+2)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				return err
			}
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("saving report: %w", err)
	}
	return nil
}

// cellFloat keeps undefined statistics readable in the spreadsheet.
func cellFloat(v float64) any {
	if math.IsNaN(v) {
		return ""
	}
	return v
}

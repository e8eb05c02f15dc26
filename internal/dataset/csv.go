package dataset

import (
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"decadespp/internal/timeseries"
)

// csvTimeLayout is the timestamp format of the first column of every input
// and output file.
const csvTimeLayout = time.RFC3339Nano

// LoadCSVDir loads every .csv file under dir into the dataset. Files are
// loaded in name order so repeated variable names resolve deterministically.
func LoadCSVDir(dir string, ds *Dataset) error {
	paths, err := filepath.Glob(filepath.Join(dir, "*.csv"))
	if err != nil {
		return fmt.Errorf("scanning %s: %w", dir, err)
	}
	sort.Strings(paths)

	for _, path := range paths {
		if err := LoadCSV(path, ds); err != nil {
			return fmt.Errorf("loading %s: %w", filepath.Base(path), err)
		}
	}
	return nil
}

// LoadCSV loads one raw-data file. The first column must be named "time"
// and hold evenly spaced RFC 3339 timestamps; every other column becomes a
// variable on that grid. A column whose values do not all parse as numbers
// is loaded as a status-string series. Empty cells become undefined.
func LoadCSV(path string, ds *Dataset) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return fmt.Errorf("parsing csv: %w", err)
	}
	if len(records) < 3 {
		return fmt.Errorf("need a header and at least two samples, got %d rows", len(records)-1)
	}

	header := records[0]
	if len(header) < 2 || !strings.EqualFold(header[0], "time") {
		return fmt.Errorf("first column must be \"time\"")
	}
	rows := records[1:]

	start, err := time.Parse(csvTimeLayout, rows[0][0])
	if err != nil {
		return fmt.Errorf("parsing start time: %w", err)
	}
	second, err := time.Parse(csvTimeLayout, rows[1][0])
	if err != nil {
		return fmt.Errorf("parsing second timestamp: %w", err)
	}
	step := second.Sub(start)
	if step <= 0 {
		return fmt.Errorf("timestamps must be strictly increasing")
	}

	freq := int(math.Round(float64(time.Second) / float64(step)))
	index, err := timeseries.NewIndex(start, freq)
	if err != nil {
		return fmt.Errorf("deriving sample frequency: %w", err)
	}

	for col := 1; col < len(header); col++ {
		name := strings.TrimSpace(header[col])
		if name == "" {
			return fmt.Errorf("column %d has no name", col)
		}

		raw := make([]string, len(rows))
		numeric := true
		for i, row := range rows {
			if col >= len(row) {
				return fmt.Errorf("row %d is short", i+2)
			}
			raw[i] = strings.TrimSpace(row[col])
			if raw[i] == "" {
				continue
			}
			if _, err := strconv.ParseFloat(raw[i], 64); err != nil {
				numeric = false
			}
		}

		if !numeric {
			ds.AddStringSeries(name, &timeseries.StringSeries{Index: index, Values: raw})
			continue
		}

		values := make([]float64, len(raw))
		for i, s := range raw {
			if s == "" {
				values[i] = math.NaN()
				continue
			}
			values[i], _ = strconv.ParseFloat(s, 64)
		}
		ds.AddSeries(name, timeseries.New(index, values))
	}
	return nil
}

// WriteOutputsCSV writes every writable output to its own file under dir,
// with time, value and flag columns.
func WriteOutputsCSV(ds *Dataset, dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	for _, o := range ds.Outputs() {
		if !o.Write || o.Series == nil {
			continue
		}
		if err := writeOutputCSV(o, filepath.Join(dir, o.Name+".csv")); err != nil {
			return fmt.Errorf("writing %s: %w", o.Name, err)
		}
	}
	return nil
}

func writeOutputCSV(o Output, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"time", o.Name, "flag"}); err != nil {
		return err
	}

	var flagVals []int
	if o.Flag != nil && o.Flag.Len() == o.Series.Len() {
		flagVals = o.Flag.Values()
	}

	for i, v := range o.Series.Values {
		value := ""
		if !math.IsNaN(v) {
			value = strconv.FormatFloat(v, 'g', -1, 64)
		}
		flag := "0"
		if flagVals != nil {
			flag = strconv.Itoa(flagVals[i])
		}
		record := []string{
			o.Series.Index.TimeAt(i).Format(csvTimeLayout),
			value,
			flag,
		}
		if err := w.Write(record); err != nil {
			return err
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return err
	}
	return f.Close()
}

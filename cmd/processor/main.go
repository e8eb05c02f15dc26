// Command processor runs the post-flight calibration and derivation chain
// over a flight's raw instrument data. It loads the flight constants and the
// raw series, executes every satisfiable processing module, and writes the
// derived outputs plus an optional QA spreadsheet.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"decadespp/internal/config"
	"decadespp/internal/dataset"
	"decadespp/internal/modules"
	"decadespp/internal/qa"
	"decadespp/internal/runner"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	flag.StringVar(&cfg.Paths.Constants, "constants", cfg.Paths.Constants, "flight constants YAML file")
	flag.StringVar(&cfg.Paths.DataDir, "data", cfg.Paths.DataDir, "directory of raw instrument CSV files")
	flag.StringVar(&cfg.Paths.OutputDir, "out", cfg.Paths.OutputDir, "directory for derived outputs")
	flag.BoolVar(&cfg.Processing.Parallel, "parallel", cfg.Processing.Parallel, "run independent modules concurrently")
	flag.BoolVar(&cfg.Processing.QAReport, "qa", cfg.Processing.QAReport, "write the QA summary spreadsheet")
	flag.Parse()

	if err := cfg.Validate(); err != nil {
		return err
	}

	log := cfg.Logging.NewLogger()
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ds := dataset.New()

	constants, err := dataset.LoadConstantsYAML(cfg.Paths.Constants)
	if err != nil {
		return fmt.Errorf("loading flight constants: %w", err)
	}
	ds.SetConstants(constants)

	if err := dataset.LoadCSVDir(cfg.Paths.DataDir, ds); err != nil {
		return fmt.Errorf("loading raw data: %w", err)
	}

	r := runner.New([]modules.Module{
		modules.NewRosemountTemps(),
		modules.NewThermistorTemps(),
		modules.NewAirspeed(),
		modules.NewNevzorov(),
		modules.NewSolar(),
		modules.NewOzone(),
		modules.NewWinds(),
	}, runner.WithParallel(cfg.Processing.Parallel), runner.WithLogger(log))

	report, err := r.Run(ctx, ds)
	if err != nil {
		return err
	}

	if err := dataset.WriteOutputsCSV(ds, cfg.Paths.OutputDir); err != nil {
		return fmt.Errorf("writing outputs: %w", err)
	}

	if cfg.Processing.QAReport {
		path := filepath.Join(cfg.Paths.OutputDir, "qa_report.xlsx")
		if err := qa.WriteReport(ds, path); err != nil {
			return fmt.Errorf("writing qa report: %w", err)
		}
		log.Info("qa report written", "path", path)
	}

	if report.Failed() {
		return fmt.Errorf("run %s finished with module failures", report.RunID)
	}
	return nil
}

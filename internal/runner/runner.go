// Package runner schedules processing modules against a dataset. Modules
// declare the variables they need; the runner executes whichever modules are
// satisfiable, commits their outputs back to the dataset, and repeats until
// no further module can make progress. Derived outputs therefore feed
// downstream modules without an explicit dependency graph.
package runner

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"decadespp/internal/dataset"
	"decadespp/internal/modules"
)

// ModuleResult records the outcome of one module execution.
type ModuleResult struct {
	Module   string
	Outputs  int
	Duration time.Duration
	Err      error
}

// Report summarises a processing run.
type Report struct {
	RunID   string
	Results []ModuleResult
	// Skipped maps each module that never became runnable to the inputs
	// it was waiting for.
	Skipped map[string][]string
}

// Failed reports whether any executed module returned an error.
func (r *Report) Failed() bool {
	for _, res := range r.Results {
		if res.Err != nil {
			return true
		}
	}
	return false
}

// Option configures a Runner.
type Option func(*Runner)

// WithParallel executes the modules of each scheduling pass concurrently.
func WithParallel(parallel bool) Option {
	return func(r *Runner) { r.parallel = parallel }
}

// WithLogger overrides the default logger.
func WithLogger(log *slog.Logger) Option {
	return func(r *Runner) { r.log = log }
}

// Runner owns a set of modules and drives them over a dataset.
type Runner struct {
	modules  []modules.Module
	log      *slog.Logger
	parallel bool
}

// New constructs a runner over the given modules.
func New(mods []modules.Module, opts ...Option) *Runner {
	r := &Runner{
		modules: mods,
		log:     slog.Default().With("component", "runner"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// missingInputs returns the inputs of m not yet present in the dataset.
func missingInputs(ds *dataset.Dataset, m modules.Module) []string {
	var missing []string
	for _, input := range m.Inputs() {
		if !ds.Has(input) {
			missing = append(missing, input)
		}
	}
	return missing
}

// bufferSink collects outputs during a pass so that concurrently running
// modules never observe each other's half-committed results.
type bufferSink struct {
	mu      sync.Mutex
	outputs []dataset.Output
}

func (b *bufferSink) AddOutput(o dataset.Output) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.outputs = append(b.outputs, o)
	return nil
}

func (b *bufferSink) commit(ds *dataset.Dataset) error {
	for _, o := range b.outputs {
		if err := ds.AddOutput(o); err != nil {
			return err
		}
	}
	return nil
}

// Run executes the modules until every one has either run or can never be
// satisfied. The returned report covers all modules; a non-nil error means
// the run itself was aborted, not that a module failed.
func (r *Runner) Run(ctx context.Context, ds *dataset.Dataset) (*Report, error) {
	report := &Report{
		RunID:   uuid.NewString(),
		Skipped: make(map[string][]string),
	}
	log := r.log.With("run_id", report.RunID)
	log.Info("run started", "modules", len(r.modules), "parallel", r.parallel)

	pending := make([]modules.Module, len(r.modules))
	copy(pending, r.modules)

	for len(pending) > 0 {
		if err := ctx.Err(); err != nil {
			return report, &RunError{Kind: KindCancelled, Message: "run cancelled", Cause: err}
		}

		var runnable, deferred []modules.Module
		for _, m := range pending {
			if len(missingInputs(ds, m)) == 0 {
				runnable = append(runnable, m)
			} else {
				deferred = append(deferred, m)
			}
		}
		if len(runnable) == 0 {
			break
		}

		results, err := r.runPass(ctx, ds, runnable, log)
		report.Results = append(report.Results, results...)
		if err != nil {
			return report, err
		}
		pending = deferred
	}

	for _, m := range pending {
		missing := missingInputs(ds, m)
		report.Skipped[m.Name()] = missing
		log.Warn("module skipped", "module", m.Name(), "missing", missing)
	}

	log.Info("run finished",
		"executed", len(report.Results),
		"skipped", len(report.Skipped),
		"failed", report.Failed())
	return report, nil
}

func (r *Runner) runPass(ctx context.Context, ds *dataset.Dataset, pass []modules.Module, log *slog.Logger) ([]ModuleResult, error) {
	if !r.parallel || len(pass) == 1 {
		results := make([]ModuleResult, 0, len(pass))
		for _, m := range pass {
			sink := &bufferSink{}
			res := r.runModule(ctx, ds, sink, m, log)
			if res.Err == nil {
				if err := sink.commit(ds); err != nil {
					return results, err
				}
				res.Outputs = len(sink.outputs)
			}
			results = append(results, res)
		}
		return results, nil
	}

	sinks := make([]*bufferSink, len(pass))
	results := make([]ModuleResult, len(pass))

	g, gctx := errgroup.WithContext(ctx)
	for i, m := range pass {
		sinks[i] = &bufferSink{}
		g.Go(func() error {
			results[i] = r.runModule(gctx, ds, sinks[i], m, log)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return results, err
	}

	// Outputs commit only after the whole pass has settled, in pass order.
	for i := range pass {
		if results[i].Err != nil {
			continue
		}
		if err := sinks[i].commit(ds); err != nil {
			return results, err
		}
		results[i].Outputs = len(sinks[i].outputs)
	}
	return results, nil
}

func (r *Runner) runModule(ctx context.Context, ds *dataset.Dataset, sink dataset.Sink, m modules.Module, log *slog.Logger) ModuleResult {
	start := time.Now()
	log.Info("module started", "module", m.Name())

	err := m.Process(ctx, ds, sink)
	res := ModuleResult{
		Module:   m.Name(),
		Duration: time.Since(start),
		Err:      classify(m.Name(), err),
	}

	if res.Err != nil {
		log.Error("module failed", "module", m.Name(), "error", res.Err, "duration", res.Duration)
	} else {
		log.Info("module finished", "module", m.Name(), "duration", res.Duration)
	}
	return res
}

// classify maps module-level error types onto run error kinds.
func classify(module string, err error) error {
	if err == nil {
		return nil
	}

	var cfgErr *modules.ConfigError
	if errors.As(err, &cfgErr) {
		return NewConfigError(module, cfgErr.Message)
	}
	var missErr *modules.MissingInputError
	if errors.As(err, &missErr) {
		return NewMissingInputError(module, missErr.Input)
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return &RunError{Kind: KindCancelled, Module: module, Message: "cancelled", Cause: err}
	}
	return NewExecutionError(module, err)
}

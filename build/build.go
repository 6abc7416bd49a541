// Package build compiles the units of a manifest in parallel.
package build

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/gogpu/sdsl"
	"github.com/gogpu/sdsl/diag"
	"github.com/gogpu/sdsl/effect"
	"github.com/gogpu/sdsl/manifest"
)

// Options configures a build.
type Options struct {
	// Progress is called after every unit, from the worker that compiled
	// it. Calls are serialized.
	Progress func(Report)
	// DryRun compiles without writing modules.
	DryRun bool
	Logger *zap.Logger
}

// DefaultOptions returns the default build options.
func DefaultOptions() Options {
	return Options{Logger: zap.NewNop()}
}

// Report is the outcome of one unit.
type Report struct {
	Unit manifest.Unit
	// Done and Total count finished and scheduled units.
	Done, Total int
	Size        int
	Warnings    diag.List
	Err         error
}

// UnitError is a failed unit.
type UnitError struct {
	Unit   string
	Source string
	Err    error
}

func (e *UnitError) Error() string { return e.Unit + ": " + e.Err.Error() }

func (e *UnitError) Unwrap() error { return e.Err }

// Run compiles every unit of m and writes the modules. A failing unit does
// not stop the others; all failures are returned together as UnitErrors.
// Cancelling ctx skips the units not yet started.
func Run(ctx context.Context, m *manifest.Manifest, opts Options) ([]Report, error) {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("build")
	units := m.Units()
	limit := m.Concurrency
	if limit <= 0 {
		limit = runtime.GOMAXPROCS(0)
	}

	reports := make([]Report, len(units))
	var (
		mu   sync.Mutex
		done int
		errs error
	)
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i, u := range units {
		g.Go(func() error {
			r := Report{Unit: u, Total: len(units)}
			if err := ctx.Err(); err != nil {
				r.Err = err
			} else {
				r.Size, r.Warnings, r.Err = compile(u, opts.DryRun, log)
			}

			mu.Lock()
			defer mu.Unlock()
			done++
			r.Done = done
			reports[i] = r
			if r.Err != nil {
				errs = multierr.Append(errs, &UnitError{Unit: u.Name, Source: u.Source, Err: r.Err})
				log.Warn("unit failed", zap.String("unit", u.Name), zap.Error(r.Err))
			} else {
				log.Debug("unit compiled", zap.String("unit", u.Name),
					zap.String("output", u.Output), zap.Int("bytes", r.Size))
			}
			if opts.Progress != nil {
				opts.Progress(r)
			}
			return nil
		})
	}
	_ = g.Wait()
	log.Info("build finished", zap.Int("units", len(units)),
		zap.Int("failed", len(multierr.Errors(errs))))
	return reports, errs
}

// compile builds one unit with its own compilation state.
func compile(u manifest.Unit, dryRun bool, log *zap.Logger) (int, diag.List, error) {
	source, err := os.ReadFile(u.Source)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to read source: %w", err)
	}
	params, err := effect.ParseParams(u.Params)
	if err != nil {
		return 0, nil, err
	}
	opts := sdsl.DefaultOptions()
	opts.Effect = u.Effect
	opts.Shader = u.Shader
	opts.Stages = u.Stages
	opts.Macros = u.Macros
	opts.Params = params
	opts.Debug = u.Debug
	opts.Logger = log.With(zap.String("unit", u.Name))

	r, err := sdsl.CompileWithOptions(string(source), opts)
	if err != nil {
		return 0, nil, err
	}
	data := r.Bytes()
	if dryRun {
		return len(data), r.Warnings, nil
	}
	if err := os.MkdirAll(filepath.Dir(u.Output), 0o755); err != nil {
		return 0, r.Warnings, fmt.Errorf("failed to create output directory: %w", err)
	}
	if err := os.WriteFile(u.Output, data, 0o644); err != nil {
		return 0, r.Warnings, fmt.Errorf("failed to write module: %w", err)
	}
	return len(data), r.Warnings, nil
}

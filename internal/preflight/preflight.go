package preflight

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"subgen/internal/config"
	"subgen/internal/job"
)

// ErrNotReady wraps the failed checks returned by Check.
var ErrNotReady = errors.New("preflight failed")

// Result reports the outcome of a single preflight check.
type Result struct {
	Name     string
	Passed   bool
	Optional bool
	Detail   string
}

// Func validates a submission before any job runs.
type Func func(ctx context.Context, opts job.Options) error

// RunAll executes every check for the given config and job options.
func RunAll(ctx context.Context, cfg *config.Config, opts job.Options) []Result {
	if cfg == nil {
		return nil
	}

	var results []Result
	for _, status := range CheckSystemDeps(cfg) {
		results = append(results, resultFromStatus(status))
	}
	results = append(results, CheckModelTier(opts.Model))
	if opts.Model.Valid() {
		results = append(results, CheckModel(cfg, opts.Model))
	}
	results = append(results, CheckLanguage(opts.Language))
	results = append(results, CheckWritableDirectory("Output directory", opts.OutputDir))
	results = append(results, CheckWritableDirectory("Work directory", cfg.Paths.WorkDir))
	if ctx.Err() != nil {
		results = append(results, Result{Name: "Preflight", Detail: ctx.Err().Error()})
	}
	return results
}

// Failed returns the required checks that did not pass.
func Failed(results []Result) []Result {
	var failed []Result
	for _, r := range results {
		if !r.Passed && !r.Optional {
			failed = append(failed, r)
		}
	}
	return failed
}

// Check runs RunAll and folds failures into a single ErrNotReady error.
func Check(ctx context.Context, cfg *config.Config, opts job.Options) error {
	failed := Failed(RunAll(ctx, cfg, opts))
	if len(failed) == 0 {
		return nil
	}
	parts := make([]string, 0, len(failed))
	for _, r := range failed {
		parts = append(parts, fmt.Sprintf("%s: %s", r.Name, r.Detail))
	}
	return fmt.Errorf("%w: %s", ErrNotReady, strings.Join(parts, "; "))
}

// ForBatch binds cfg into a Func suitable for the batch scheduler.
func ForBatch(cfg *config.Config) Func {
	return func(ctx context.Context, opts job.Options) error {
		return Check(ctx, cfg, opts)
	}
}

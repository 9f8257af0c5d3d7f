package runner

import (
	"context"
	"iter"
	"path/filepath"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/abdul-hamid-achik/flagrun/packages/core/config"
	"github.com/abdul-hamid-achik/flagrun/packages/logging"
)

// NotStartedMessage is the output of units skipped because the run was cancelled.
const NotStartedMessage = "not started: run cancelled"

// UnitExecutor runs a single unit. Implementations must be safe for
// concurrent use and must always return a result.
type UnitExecutor interface {
	Run(ctx context.Context, unit config.Unit) *RunResult
}

type Config struct {
	// Jobs bounds in-flight runs. Zero or less means runtime.NumCPU().
	Jobs int
	// LaunchRate limits process starts per second. Zero means unlimited.
	LaunchRate float64
}

type Runner struct {
	config   *Config
	executor UnitExecutor
	limiter  *rate.Limiter
}

// Option configures a Runner.
type Option func(*Runner)

// WithExecutor replaces the default Executor.
func WithExecutor(e UnitExecutor) Option {
	return func(r *Runner) {
		r.executor = e
	}
}

func NewRunner(cfg *Config, opts ...Option) *Runner {
	if cfg == nil {
		cfg = &Config{}
	}

	r := &Runner{config: cfg}
	if cfg.LaunchRate > 0 {
		r.limiter = rate.NewLimiter(rate.Limit(cfg.LaunchRate), 1)
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.executor == nil {
		r.executor = NewExecutor()
	}
	return r
}

// Jobs returns the effective parallelism.
func (r *Runner) Jobs() int {
	if r.config.Jobs <= 0 {
		return runtime.NumCPU()
	}
	return r.config.Jobs
}

// Run dispatches every unit to a bounded pool and streams results in
// completion order. The channel is closed after exactly one result per unit
// has been sent. Cancelling ctx kills in-flight runs and reports queued
// units as errors.
func (r *Runner) Run(ctx context.Context, units iter.Seq[config.Unit]) <-chan *RunResult {
	results := make(chan *RunResult)
	log := logging.FromContext(ctx)

	go func() {
		defer close(results)

		var g errgroup.Group
		g.SetLimit(r.Jobs())

		for unit := range units {
			if ctx.Err() != nil {
				results <- notStarted(unit)
				continue
			}

			g.Go(func() error {
				if ctx.Err() != nil {
					results <- notStarted(unit)
					return nil
				}
				if r.limiter != nil {
					if err := r.limiter.Wait(ctx); err != nil {
						results <- notStarted(unit)
						return nil
					}
				}
				results <- r.executor.Run(ctx, unit)
				return nil
			})
		}

		_ = g.Wait()
		log.Debug("all units finished")
	}()

	return results
}

// RunAll runs every unit and returns the summary. handle, when non-nil, is
// called for each result as it arrives.
func (r *Runner) RunAll(ctx context.Context, units iter.Seq[config.Unit], handle func(*RunResult)) *Summary {
	summary := NewSummary()
	start := time.Now()

	for result := range r.Run(ctx, units) {
		summary.Add(result)
		if handle != nil {
			handle(result)
		}
	}

	summary.Duration = time.Since(start)
	return summary
}

func notStarted(unit config.Unit) *RunResult {
	return &RunResult{
		Unit:   unit,
		Name:   filepath.Base(unit.Program),
		Status: StatusError,
		Output: NotStartedMessage,
	}
}

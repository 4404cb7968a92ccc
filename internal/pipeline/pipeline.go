package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/nao1215/sitecrawl/internal/model"
)

// Step defines the interface that all pipeline steps must implement.
// Steps are executed in sequence, each receiving the run filled by the
// previous ones.
type Step interface {
	// Do executes the pipeline step.
	// Returns an error if the step fails critically; non-critical errors
	// should be recorded in the run and return nil.
	Do(ctx context.Context, run *model.CrawlRun) error

	// Name returns the step's name for logging purposes.
	Name() string
}

// CancelTolerant is implemented by steps that still run after the context
// was cancelled, such as storing the partial results of a cancelled crawl.
type CancelTolerant interface {
	RunsAfterCancel() bool
}

// Pipeline orchestrates the execution of multiple steps.
type Pipeline struct {
	// steps contains the ordered list of steps to execute.
	steps []Step

	// logger is used for structured logging during execution.
	logger *slog.Logger

	// continueOnError determines whether to continue executing steps
	// after one fails. If false, the pipeline stops on first error.
	continueOnError bool
}

// Option is a function that configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets a custom logger for the pipeline.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// WithContinueOnError configures the pipeline to continue execution
// even when a step fails. Failed steps are logged and their errors
// are recorded in the run, but subsequent steps still execute.
func WithContinueOnError(continueOnError bool) Option {
	return func(p *Pipeline) {
		p.continueOnError = continueOnError
	}
}

// New creates a new Pipeline with the given options.
func New(opts ...Option) *Pipeline {
	p := &Pipeline{
		steps:           make([]Step, 0),
		continueOnError: false,
	}

	for _, opt := range opts {
		opt(p)
	}

	if p.logger == nil {
		p.logger = slog.Default()
	}

	return p
}

// AddStep appends a step to the pipeline.
func (p *Pipeline) AddStep(step Step) {
	p.steps = append(p.steps, step)
}

// AddSteps appends multiple steps to the pipeline.
func (p *Pipeline) AddSteps(steps ...Step) {
	p.steps = append(p.steps, steps...)
}

// Execute runs all pipeline steps in sequence.
//
// Cancellation is checked before each step. Once the context is done only
// CancelTolerant steps still run, and the run is marked cancelled if no
// step has set an outcome yet.
//
// Returns the first error encountered. With continueOnError the remaining
// steps run anyway.
func (p *Pipeline) Execute(ctx context.Context, run *model.CrawlRun) error {
	var firstErr error

	for _, step := range p.steps {
		if err := ctx.Err(); err != nil && !runsAfterCancel(step) {
			p.logger.Warn("pipeline cancelled",
				"step", step.Name(),
				"seed", run.Seed,
				"reason", err,
			)
			markCancelled(run)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}

		p.logger.Info("executing step",
			"step", step.Name(),
			"seed", run.Seed,
		)

		if err := step.Do(ctx, run); err != nil {
			p.logger.Error("step failed",
				"step", step.Name(),
				"seed", run.Seed,
				"error", err,
			)

			if run.Error == "" {
				run.Error = err.Error()
			}
			if firstErr == nil {
				firstErr = err
			}

			if !p.continueOnError {
				return firstErr
			}
			continue
		}

		p.logger.Debug("step completed",
			"step", step.Name(),
			"seed", run.Seed,
		)
	}

	return firstErr
}

func runsAfterCancel(step Step) bool {
	ct, ok := step.(CancelTolerant)
	return ok && ct.RunsAfterCancel()
}

func markCancelled(run *model.CrawlRun) {
	if run.Outcome != "" {
		return
	}
	run.Outcome = model.OutcomeCancelled
	run.FinishedAt = time.Now()
}

// StepCount returns the number of steps in the pipeline.
func (p *Pipeline) StepCount() int {
	return len(p.steps)
}

// StepNames returns the names of all steps in execution order.
func (p *Pipeline) StepNames() []string {
	names := make([]string, len(p.steps))
	for i, step := range p.steps {
		names[i] = step.Name()
	}
	return names
}

package pipeline

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nao1215/sitecrawl/internal/model"
)

// DefaultConcurrency is the number of seeds crawled at once when
// WithConcurrency is not given.
const DefaultConcurrency = 4

// BatchProcessor crawls several seeds concurrently. Every seed gets a
// fresh pipeline from the factory, so no state leaks between runs.
type BatchProcessor struct {
	// pipelineFactory creates a new pipeline for each seed.
	pipelineFactory func() *Pipeline

	// concurrency is the maximum number of concurrent runs.
	concurrency int

	// logger is used for batch-level logging.
	logger *slog.Logger
}

// BatchOption configures a BatchProcessor.
type BatchOption func(*BatchProcessor)

// WithBatchLogger sets a custom logger for batch processing.
func WithBatchLogger(logger *slog.Logger) BatchOption {
	return func(b *BatchProcessor) {
		b.logger = logger
	}
}

// WithConcurrency sets the maximum number of concurrent runs.
// Non-positive values keep the default.
func WithConcurrency(n int) BatchOption {
	return func(b *BatchProcessor) {
		if n > 0 {
			b.concurrency = n
		}
	}
}

// NewBatchProcessor creates a new BatchProcessor.
func NewBatchProcessor(pipelineFactory func() *Pipeline, opts ...BatchOption) *BatchProcessor {
	bp := &BatchProcessor{
		pipelineFactory: pipelineFactory,
		concurrency:     DefaultConcurrency,
	}

	for _, opt := range opts {
		opt(bp)
	}

	if bp.logger == nil {
		bp.logger = slog.Default()
	}

	return bp
}

// ProcessBatch crawls every seed and returns the runs in seed order.
// Runs that failed are returned too, with the failure recorded in them.
// A seed whose run never started because of cancellation has a nil entry,
// and the context's error is returned.
func (bp *BatchProcessor) ProcessBatch(ctx context.Context, seeds []string) ([]*model.CrawlRun, error) {
	runs := make([]*model.CrawlRun, len(seeds))
	err := bp.ProcessBatchWithCallback(ctx, seeds, func(run *model.CrawlRun, index int) {
		// Each index is written by exactly one goroutine.
		runs[index] = run
	})
	return runs, err
}

// ProcessBatchWithCallback crawls every seed and calls callback as soon as
// a run finishes. The callback is called from the goroutine that ran the
// pipeline, so it must be safe for concurrent use.
func (bp *BatchProcessor) ProcessBatchWithCallback(
	ctx context.Context,
	seeds []string,
	callback func(run *model.CrawlRun, index int),
) error {
	bp.logger.Info("starting batch",
		"seeds", len(seeds),
		"concurrency", bp.concurrency,
	)
	startTime := time.Now()

	var g errgroup.Group
	g.SetLimit(bp.concurrency)

	for i, seed := range seeds {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			bp.logger.Info("crawling seed",
				"seed", seed,
				"index", i+1,
				"total", len(seeds),
			)

			run := model.NewCrawlRun(seed, 0)
			if err := bp.pipelineFactory().Execute(ctx, run); err != nil {
				// Recorded in the run; the other seeds go on.
				bp.logger.Warn("run failed", "seed", seed, "error", err)
			}

			callback(run, i)
			return nil
		})
	}

	err := g.Wait()
	if err == nil {
		err = ctx.Err()
	}

	bp.logger.Info("batch complete",
		"seeds", len(seeds),
		"elapsed", time.Since(startTime),
	)

	return err
}

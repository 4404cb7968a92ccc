package pipeline

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/nao1215/sitecrawl/internal/model"
)

// TestBatchProcessorNew tests the BatchProcessor constructor.
func TestBatchProcessorNew(t *testing.T) {
	t.Parallel()

	t.Run("creates processor with defaults", func(t *testing.T) {
		t.Parallel()

		bp := NewBatchProcessor(func() *Pipeline { return New() })

		if bp == nil {
			t.Fatal("expected non-nil processor")
		}
		if bp.concurrency != DefaultConcurrency {
			t.Errorf("expected default concurrency %d, got %d", DefaultConcurrency, bp.concurrency)
		}
	})

	t.Run("applies WithConcurrency option", func(t *testing.T) {
		t.Parallel()

		bp := NewBatchProcessor(func() *Pipeline { return New() }, WithConcurrency(5))

		if bp.concurrency != 5 {
			t.Errorf("expected concurrency 5, got %d", bp.concurrency)
		}
	})

	t.Run("ignores non-positive concurrency", func(t *testing.T) {
		t.Parallel()

		bp := NewBatchProcessor(func() *Pipeline { return New() }, WithConcurrency(0))

		if bp.concurrency != DefaultConcurrency {
			t.Errorf("expected concurrency %d, got %d", DefaultConcurrency, bp.concurrency)
		}
	})

	t.Run("applies WithBatchLogger option", func(t *testing.T) {
		t.Parallel()

		logger := discardLogger()
		bp := NewBatchProcessor(func() *Pipeline { return New() }, WithBatchLogger(logger))

		if bp.logger != logger {
			t.Error("expected custom logger to be set")
		}
	})
}

// TestBatchProcessorProcessBatch tests crawling several seeds.
func TestBatchProcessorProcessBatch(t *testing.T) {
	t.Parallel()

	t.Run("returns runs in seed order", func(t *testing.T) {
		t.Parallel()

		factory := func() *Pipeline {
			p := New(WithLogger(discardLogger()))
			p.AddStep(&mockStep{name: "fill", doFunc: func(_ context.Context, run *model.CrawlRun) error {
				run.Add(model.PageResult{URL: run.Seed, ContentKind: model.ContentKindHTML})
				run.Outcome = model.OutcomeCompleted
				return nil
			}})
			return p
		}

		seeds := []string{"https://a.test/", "https://b.test/", "https://c.test/"}
		bp := NewBatchProcessor(factory, WithConcurrency(2), WithBatchLogger(discardLogger()))

		runs, err := bp.ProcessBatch(t.Context(), seeds)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(runs) != len(seeds) {
			t.Fatalf("expected %d runs, got %d", len(seeds), len(runs))
		}
		for i, run := range runs {
			if run.Seed != seeds[i] {
				t.Errorf("run %d: expected seed %s, got %s", i, seeds[i], run.Seed)
			}
			if len(run.Results) != 1 {
				t.Errorf("run %d: expected 1 result, got %d", i, len(run.Results))
			}
		}
	})

	t.Run("failed runs do not stop the batch", func(t *testing.T) {
		t.Parallel()

		factory := func() *Pipeline {
			p := New(WithLogger(discardLogger()))
			p.AddStep(&mockStep{name: "maybe-fail", doFunc: func(_ context.Context, run *model.CrawlRun) error {
				if run.Seed == "https://bad.test/" {
					return errors.New("unreachable")
				}
				return nil
			}})
			return p
		}

		bp := NewBatchProcessor(factory, WithBatchLogger(discardLogger()))
		runs, err := bp.ProcessBatch(t.Context(), []string{"https://bad.test/", "https://good.test/"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if runs[0].Error != "unreachable" {
			t.Errorf("expected failure recorded, got %q", runs[0].Error)
		}
		if runs[1].Error != "" {
			t.Errorf("expected no error for good seed, got %q", runs[1].Error)
		}
	})

	t.Run("respects concurrency limit", func(t *testing.T) {
		t.Parallel()

		var current, peak atomic.Int32
		factory := func() *Pipeline {
			p := New(WithLogger(discardLogger()))
			p.AddStep(&mockStep{name: "slow", doFunc: func(context.Context, *model.CrawlRun) error {
				n := current.Add(1)
				for {
					old := peak.Load()
					if n <= old || peak.CompareAndSwap(old, n) {
						break
					}
				}
				time.Sleep(20 * time.Millisecond)
				current.Add(-1)
				return nil
			}})
			return p
		}

		seeds := make([]string, 8)
		for i := range seeds {
			seeds[i] = "https://example.com/"
		}

		bp := NewBatchProcessor(factory, WithConcurrency(2), WithBatchLogger(discardLogger()))
		if _, err := bp.ProcessBatch(t.Context(), seeds); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if peak.Load() > 2 {
			t.Errorf("expected at most 2 concurrent runs, saw %d", peak.Load())
		}
	})

	t.Run("cancelled context returns error", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(t.Context())
		cancel()

		bp := NewBatchProcessor(func() *Pipeline { return New(WithLogger(discardLogger())) },
			WithBatchLogger(discardLogger()))
		runs, err := bp.ProcessBatch(ctx, []string{"https://a.test/"})
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
		if runs[0] != nil {
			t.Error("expected no run for a seed that never started")
		}
	})
}

// TestBatchProcessorCallback tests that the callback sees every run.
func TestBatchProcessorCallback(t *testing.T) {
	t.Parallel()

	var (
		mu   sync.Mutex
		seen = make(map[int]string)
	)

	bp := NewBatchProcessor(func() *Pipeline { return New(WithLogger(discardLogger())) },
		WithConcurrency(3), WithBatchLogger(discardLogger()))

	seeds := []string{"https://a.test/", "https://b.test/", "https://c.test/", "https://d.test/"}
	err := bp.ProcessBatchWithCallback(t.Context(), seeds, func(run *model.CrawlRun, index int) {
		mu.Lock()
		defer mu.Unlock()
		seen[index] = run.Seed
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(seen) != len(seeds) {
		t.Fatalf("expected %d callbacks, got %d", len(seeds), len(seen))
	}
	for i, seed := range seeds {
		if seen[i] != seed {
			t.Errorf("index %d: expected %s, got %s", i, seed, seen[i])
		}
	}
}

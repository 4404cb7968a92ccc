package report

import (
	"fmt"
	"io"
	"sync"

	"github.com/nao1215/sitecrawl/internal/model"
)

// StreamPrinter prints each result on its own line as soon as it is
// emitted, numbered in arrival order. It has the method set of a crawler
// sink.
type StreamPrinter struct {
	mu     sync.Mutex
	output io.Writer
	count  int
}

// NewStreamPrinter creates a StreamPrinter writing to output.
func NewStreamPrinter(output io.Writer) *StreamPrinter {
	return &StreamPrinter{output: output}
}

// Emit prints one result.
func (p *StreamPrinter) Emit(result model.PageResult) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.count++
	line := fmt.Sprintf("#%d [%3d] %-10s d=%d %s", p.count, result.StatusCode, result.ContentKind, result.Depth, result.URL)
	if result.HasTitle() {
		line += fmt.Sprintf(" %q", truncateString(result.Title, maxCellWidth))
	}
	if result.Error != "" {
		line += " error: " + result.Error
	}
	_, _ = fmt.Fprintln(p.output, line) //nolint:errcheck
}

// Done prints the end-of-run marker.
func (p *StreamPrinter) Done(summary model.RunSummary) {
	p.mu.Lock()
	defer p.mu.Unlock()

	_, _ = fmt.Fprintf(p.output, "done: %s, %d page(s), %d error(s), %d link(s) skipped\n", //nolint:errcheck
		summary.Outcome, summary.Pages, summary.Errors, summary.Skipped)
}

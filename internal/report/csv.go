package report

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/nao1215/sitecrawl/internal/model"
)

// CSVWriter writes one header row and one row per result.
type CSVWriter struct {
	baseWriter
}

// NewCSVWriter creates a CSVWriter that outputs to the given writer.
func NewCSVWriter(output io.Writer, opts ...Option) *CSVWriter {
	return &CSVWriter{baseWriter: newBaseWriter(output, opts)}
}

// Write outputs the run as CSV.
func (w *CSVWriter) Write(run *model.CrawlRun) (int, error) {
	cw := &countingWriter{w: w.output}
	enc := csv.NewWriter(cw)

	if err := enc.Write(headerRow(w.columns)); err != nil {
		return cw.n, fmt.Errorf("failed to write CSV header: %w", err)
	}
	for _, r := range run.Results {
		if err := enc.Write(resultRow(w.columns, r)); err != nil {
			return cw.n, fmt.Errorf("failed to write CSV row for %s: %w", r.URL, err)
		}
	}

	enc.Flush()
	if err := enc.Error(); err != nil {
		return cw.n, fmt.Errorf("failed to flush CSV: %w", err)
	}
	return cw.n, nil
}

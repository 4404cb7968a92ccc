package report

import (
	"fmt"
	"io"
	"slices"
	"strings"
	"time"

	"github.com/rodaine/table"

	"github.com/nao1215/sitecrawl/internal/model"
)

// maxCellWidth bounds free-text cells in the terminal table.
const maxCellWidth = 60

// SimpleWriter outputs a human-readable table for terminal display.
type SimpleWriter struct {
	baseWriter
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...Option) *SimpleWriter {
	return &SimpleWriter{baseWriter: newBaseWriter(output, opts)}
}

// Write outputs the run as a table followed by a summary.
func (w *SimpleWriter) Write(run *model.CrawlRun) (int, error) {
	cw := &countingWriter{w: w.output}

	var sb strings.Builder
	sb.WriteString("\n")
	sb.WriteString(fmt.Sprintf("Seed:     %s\n", run.Seed))
	sb.WriteString(fmt.Sprintf("Started:  %s\n", run.StartedAt.Format("2006-01-02 15:04:05 MST")))
	sb.WriteString(fmt.Sprintf("Status:   %s\n", statusText(run)))
	if run.Error != "" {
		sb.WriteString(fmt.Sprintf("Error:    %s\n", run.Error))
	}
	sb.WriteString("\n")
	if _, err := io.WriteString(cw, sb.String()); err != nil {
		return cw.n, err
	}

	cols := w.columns
	if w.showErrors && !slices.Contains(cols, ColumnError) {
		cols = append(cols[:len(cols):len(cols)], ColumnError)
	}

	if len(run.Results) > 0 {
		header := make([]any, len(cols))
		for i, c := range cols {
			header[i] = string(c)
		}
		tbl := table.New(header...).WithWriter(cw)
		for _, r := range run.Results {
			row := make([]any, len(cols))
			for i, c := range cols {
				row[i] = truncateString(c.Value(r), maxCellWidth)
			}
			tbl.AddRow(row...)
		}
		tbl.Print()
		if _, err := io.WriteString(cw, "\n"); err != nil {
			return cw.n, err
		}
	}

	if _, err := io.WriteString(cw, summaryLine(run)+"\n"); err != nil {
		return cw.n, err
	}
	return cw.n, nil
}

// summaryLine renders counts per kind, skipping kinds with no results.
func summaryLine(run *model.CrawlRun) string {
	counts := run.CountByKind()
	parts := make([]string, 0, len(model.AllContentKinds))
	for _, k := range model.AllContentKinds {
		if counts[k] > 0 {
			parts = append(parts, fmt.Sprintf("%s=%d", k, counts[k]))
		}
	}

	line := fmt.Sprintf("%d page(s) in %s", len(run.Results), run.Elapsed().Round(time.Millisecond))
	if len(parts) > 0 {
		line += " (" + strings.Join(parts, ", ") + ")"
	}
	return line
}

// truncateString truncates a string to maxLen runes with ellipsis.
func truncateString(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(r[:maxLen])
	}
	return string(r[:maxLen-3]) + "..."
}

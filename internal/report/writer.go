package report

import (
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/nao1215/sitecrawl/internal/model"
)

// ErrUnknownFormat is returned by NewWriter for an unsupported format name.
var ErrUnknownFormat = errors.New("unknown output format")

// Format names accepted by NewWriter.
const (
	FormatText     = "text"
	FormatJSON     = "json"
	FormatCSV      = "csv"
	FormatXLSX     = "xlsx"
	FormatMarkdown = "markdown"
)

// Writer defines the interface for run output.
type Writer interface {
	// Write renders the run to the configured destination.
	// Returns the number of bytes written and any error encountered.
	Write(run *model.CrawlRun) (int, error)
}

// NewWriter returns the writer for the named format.
func NewWriter(format string, output io.Writer, opts ...Option) (Writer, error) {
	switch strings.ToLower(format) {
	case FormatText, "":
		return NewSimpleWriter(output, opts...), nil
	case FormatJSON:
		return NewJSONWriter(output, opts...), nil
	case FormatCSV:
		return NewCSVWriter(output, opts...), nil
	case FormatXLSX:
		return NewXLSXWriter(output, opts...), nil
	case FormatMarkdown, "md":
		return NewMarkdownWriter(output, opts...), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

// MultiWriter writes a run to several Writers, for example the terminal
// and a file.
type MultiWriter struct {
	writers []Writer
}

// NewMultiWriter creates a Writer that writes to all provided Writers.
func NewMultiWriter(writers ...Writer) *MultiWriter {
	return &MultiWriter{writers: writers}
}

// Write outputs the run to all configured Writers.
// Returns the total bytes written across all writers.
// Stops on first error encountered.
func (m *MultiWriter) Write(run *model.CrawlRun) (int, error) {
	var total int
	for _, w := range m.writers {
		n, err := w.Write(run)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// Option configures a writer.
type Option func(*baseWriter)

// WithColumns selects and orders the columns of the tabular writers.
// JSONWriter ignores it: the persisted format always carries every field.
func WithColumns(columns ...Column) Option {
	return func(w *baseWriter) {
		if len(columns) > 0 {
			w.columns = slices.Clone(columns)
		}
	}
}

// WithPrettyPrint indents JSON output.
func WithPrettyPrint() Option {
	return func(w *baseWriter) {
		w.indent = true
	}
}

// WithErrors adds the fetch error message to the terminal table.
func WithErrors(show bool) Option {
	return func(w *baseWriter) {
		w.showErrors = show
	}
}

// baseWriter provides common functionality for run writers.
type baseWriter struct {
	output     io.Writer
	columns    []Column
	indent     bool
	showErrors bool
}

func newBaseWriter(output io.Writer, opts []Option) baseWriter {
	w := baseWriter{
		output:  output,
		columns: slices.Clone(DefaultColumns),
	}
	for _, opt := range opts {
		opt(&w)
	}
	return w
}

// countingWriter counts bytes for writers whose encoders do not report them.
type countingWriter struct {
	w io.Writer
	n int
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += n
	return n, err
}

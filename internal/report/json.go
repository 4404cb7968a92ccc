package report

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/nao1215/sitecrawl/internal/model"
)

// JSONWriter writes the persisted-run format: a JSON array of page results
// in the order they are stored in the run.
type JSONWriter struct {
	baseWriter
}

// NewJSONWriter creates a JSONWriter that outputs to the given writer.
func NewJSONWriter(output io.Writer, opts ...Option) *JSONWriter {
	return &JSONWriter{baseWriter: newBaseWriter(output, opts)}
}

// Write outputs the results of the run as a JSON array.
func (w *JSONWriter) Write(run *model.CrawlRun) (int, error) {
	results := run.Results
	if results == nil {
		results = []model.PageResult{}
	}

	var (
		data []byte
		err  error
	)
	if w.indent {
		data, err = json.MarshalIndent(results, "", "  ")
	} else {
		data, err = json.Marshal(results)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to encode results: %w", err)
	}

	// Add trailing newline for better terminal output
	data = append(data, '\n')

	return w.output.Write(data)
}

// ReadJSON loads results written by JSONWriter. Unknown fields and unknown
// content kinds are rejected.
func ReadJSON(r io.Reader) ([]model.PageResult, error) {
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()

	var results []model.PageResult
	if err := dec.Decode(&results); err != nil {
		return nil, fmt.Errorf("failed to decode results: %w", err)
	}
	if results == nil {
		results = []model.PageResult{}
	}
	return results, nil
}

// ReadJSONFile is ReadJSON on a file.
func ReadJSONFile(path string) ([]model.PageResult, error) {
	f, err := os.Open(path) //nolint:gosec // path is given by the user
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	return ReadJSON(f)
}

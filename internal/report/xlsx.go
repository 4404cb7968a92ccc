package report

import (
	"fmt"
	"io"
	"strconv"

	"github.com/xuri/excelize/v2"

	"github.com/nao1215/sitecrawl/internal/model"
)

const (
	resultsSheet = "Results"
	summarySheet = "Summary"
)

// XLSXWriter writes the results table as a spreadsheet with a second sheet
// of counts per content kind.
type XLSXWriter struct {
	baseWriter
}

// NewXLSXWriter creates an XLSXWriter that outputs to the given writer.
func NewXLSXWriter(output io.Writer, opts ...Option) *XLSXWriter {
	return &XLSXWriter{baseWriter: newBaseWriter(output, opts)}
}

// Write outputs the run as an XLSX workbook.
func (w *XLSXWriter) Write(run *model.CrawlRun) (int, error) {
	f := excelize.NewFile()
	defer func() {
		_ = f.Close() //nolint:errcheck
	}()

	if err := f.SetSheetName("Sheet1", resultsSheet); err != nil {
		return 0, fmt.Errorf("failed to name sheet: %w", err)
	}
	if err := w.writeResults(f, run); err != nil {
		return 0, err
	}
	if err := w.writeSummary(f, run); err != nil {
		return 0, err
	}

	n, err := f.WriteTo(w.output)
	if err != nil {
		return int(n), fmt.Errorf("failed to write workbook: %w", err)
	}
	return int(n), nil
}

func (w *XLSXWriter) writeResults(f *excelize.File, run *model.CrawlRun) error {
	header := make([]any, len(w.columns))
	for i, c := range w.columns {
		header[i] = string(c)
	}
	if err := f.SetSheetRow(resultsSheet, "A1", &header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for i, r := range run.Results {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("failed to compute cell: %w", err)
		}
		row := make([]any, len(w.columns))
		for j, c := range w.columns {
			row[j] = cellValue(c, r)
		}
		if err := f.SetSheetRow(resultsSheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write row for %s: %w", r.URL, err)
		}
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("failed to create style: %w", err)
	}
	lastHeader, err := excelize.CoordinatesToCellName(len(w.columns), 1)
	if err != nil {
		return fmt.Errorf("failed to compute cell: %w", err)
	}
	if err := f.SetCellStyle(resultsSheet, "A1", lastHeader, bold); err != nil {
		return fmt.Errorf("failed to style header: %w", err)
	}

	if err := f.SetPanes(resultsSheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return fmt.Errorf("failed to freeze header: %w", err)
	}

	if len(run.Results) > 0 {
		lastCell, err := excelize.CoordinatesToCellName(len(w.columns), len(run.Results)+1)
		if err != nil {
			return fmt.Errorf("failed to compute cell: %w", err)
		}
		if err := f.AutoFilter(resultsSheet, "A1:"+lastCell, nil); err != nil {
			return fmt.Errorf("failed to add filter: %w", err)
		}
	}
	return nil
}

func (w *XLSXWriter) writeSummary(f *excelize.File, run *model.CrawlRun) error {
	if _, err := f.NewSheet(summarySheet); err != nil {
		return fmt.Errorf("failed to add summary sheet: %w", err)
	}

	rows := [][]any{
		{"seed", run.Seed},
		{"outcome", string(run.Outcome)},
		{"pages", len(run.Results)},
	}
	counts := run.CountByKind()
	for _, k := range model.AllContentKinds {
		rows = append(rows, []any{k.String(), counts[k]})
	}

	for i, row := range rows {
		if err := f.SetSheetRow(summarySheet, "A"+strconv.Itoa(i+1), &row); err != nil {
			return fmt.Errorf("failed to write summary: %w", err)
		}
	}
	return nil
}

// cellValue keeps numeric columns numeric so that spreadsheets can sort
// and filter them.
func cellValue(c Column, r model.PageResult) any {
	switch c {
	case ColumnStatus:
		return r.StatusCode
	case ColumnDepth:
		return r.Depth
	default:
		return c.Value(r)
	}
}

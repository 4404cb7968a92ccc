package report

import (
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"

	"github.com/nao1215/sitecrawl/internal/model"
)

// MarkdownWriter outputs runs in Markdown format, for sharing in issues
// and pull requests.
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer, opts ...Option) *MarkdownWriter {
	return &MarkdownWriter{baseWriter: newBaseWriter(output, opts)}
}

// Write outputs the run in Markdown format.
func (w *MarkdownWriter) Write(run *model.CrawlRun) (int, error) {
	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, run)
	w.writeKinds(md, run)
	w.writeResults(md, run)
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, run *model.CrawlRun) {
	md.H1("Crawl Report")
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Seed", "`" + run.Seed + "`"},
			{"Started", run.StartedAt.Format("2006-01-02 15:04:05 MST")},
			{"Elapsed", run.Elapsed().Round(time.Millisecond).String()},
			{"Max Depth", strconv.Itoa(run.MaxDepth)},
			{"Pages", strconv.Itoa(len(run.Results))},
			{"Status", statusText(run)},
		},
	})
	md.PlainText("")

	switch {
	case run.Outcome == model.OutcomeInvalidSeed:
		md.Cautionf("The seed could not be crawled: %s", run.Error)
	case run.Outcome == model.OutcomeCancelled:
		md.Warning("The crawl was cancelled; results are partial.")
	case run.ErrorCount() > 0:
		md.Importantf("%d URL(s) could not be fetched.", run.ErrorCount())
	default:
		md.Tip("Every discovered URL was fetched.")
	}
	md.PlainText("")
}

func statusText(run *model.CrawlRun) string {
	switch run.Outcome {
	case model.OutcomeCompleted:
		return "Complete"
	case model.OutcomeCancelled:
		return "Cancelled (partial results)"
	case model.OutcomeInvalidSeed:
		return "Invalid seed"
	default:
		return "In progress"
	}
}

func (w *MarkdownWriter) writeKinds(md *markdown.Markdown, run *model.CrawlRun) {
	md.H2("Content Kinds")
	md.PlainText("")

	counts := run.CountByKind()
	rows := make([][]string, 0, len(model.AllContentKinds))
	for _, k := range model.AllContentKinds {
		rows = append(rows, []string{k.String(), strconv.Itoa(counts[k])})
	}
	md.Table(markdown.TableSet{
		Header: []string{"Kind", "Count"},
		Rows:   rows,
	})
	md.PlainText("")

	if len(run.Results) == 0 {
		return
	}

	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Content Kind Distribution"),
		piechart.WithShowData(true),
	)
	for _, k := range model.AllContentKinds {
		if counts[k] > 0 {
			chart.LabelAndIntValue(k.String(), uint64(counts[k])) //nolint:gosec // counts are non-negative
		}
	}
	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

func (w *MarkdownWriter) writeResults(md *markdown.Markdown, run *model.CrawlRun) {
	md.H2("Results")
	md.PlainText("")

	if len(run.Results) == 0 {
		md.PlainText("No pages were visited.")
		md.PlainText("")
		return
	}

	rows := make([][]string, len(run.Results))
	for i, r := range run.Results {
		row := resultRow(w.columns, r)
		for j := range row {
			row[j] = escapeCell(row[j])
		}
		rows[i] = row
	}

	md.Table(markdown.TableSet{
		Header: headerRow(w.columns),
		Rows:   rows,
	})
	md.PlainText("")
}

func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Report generated by [sitecrawl](https://github.com/nao1215/sitecrawl)*")
}

// escapeCell keeps cell text from breaking the table layout.
func escapeCell(s string) string {
	s = strings.ReplaceAll(s, "|", `\|`)
	s = strings.ReplaceAll(s, "\n", " ")
	return s
}

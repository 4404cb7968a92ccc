// Package report renders crawl runs.
//
// Every format implements the Writer interface:
//   - JSONWriter: the persisted-run format, a JSON array of page results
//     that ReadJSON loads back without loss
//   - CSVWriter and XLSXWriter: tabular exports for spreadsheets
//   - MarkdownWriter: a summary and a results table for sharing
//   - SimpleWriter: a terminal table
//
// The tabular writers accept WithColumns to choose and order the columns.
// StreamPrinter is not a Writer: it prints results one by one while a
// crawl is still running.
package report

package report

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/nao1215/sitecrawl/internal/model"
)

// Column names a field of a page result in tabular output.
type Column string

// Columns, named as they appear in the header row.
const (
	ColumnStatus          Column = "responseStatus"
	ColumnURL             Column = "URL"
	ColumnKind            Column = "contentKind"
	ColumnTitle           Column = "title"
	ColumnH1              Column = "h1"
	ColumnMetaDescription Column = "metaDescription"
	ColumnDepth           Column = "depth"
	ColumnError           Column = "error"
)

// DefaultColumns is the column order of the spreadsheet export.
var DefaultColumns = []Column{
	ColumnStatus,
	ColumnURL,
	ColumnKind,
	ColumnTitle,
	ColumnH1,
	ColumnMetaDescription,
	ColumnDepth,
}

var knownColumns = map[string]Column{
	"responsestatus":  ColumnStatus,
	"status":          ColumnStatus,
	"url":             ColumnURL,
	"contentkind":     ColumnKind,
	"kind":            ColumnKind,
	"title":           ColumnTitle,
	"h1":              ColumnH1,
	"metadescription": ColumnMetaDescription,
	"meta":            ColumnMetaDescription,
	"depth":           ColumnDepth,
	"error":           ColumnError,
}

// ParseColumns parses a comma-separated column list. Names are matched
// case-insensitively and a few short aliases (status, kind, meta) are
// accepted.
func ParseColumns(s string) ([]Column, error) {
	var cols []Column
	for name := range strings.SplitSeq(s, ",") {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		c, ok := knownColumns[strings.ToLower(name)]
		if !ok {
			return nil, fmt.Errorf("unknown column %q", name)
		}
		cols = append(cols, c)
	}
	if len(cols) == 0 {
		return nil, fmt.Errorf("no columns in %q", s)
	}
	return cols, nil
}

// Value returns the cell text of the column for r.
func (c Column) Value(r model.PageResult) string {
	switch c {
	case ColumnStatus:
		return strconv.Itoa(r.StatusCode)
	case ColumnURL:
		return r.URL
	case ColumnKind:
		return r.ContentKind.String()
	case ColumnTitle:
		return r.Title
	case ColumnH1:
		return r.H1
	case ColumnMetaDescription:
		return r.MetaDescription
	case ColumnDepth:
		return strconv.Itoa(r.Depth)
	case ColumnError:
		return r.Error
	default:
		return ""
	}
}

func headerRow(cols []Column) []string {
	row := make([]string, len(cols))
	for i, c := range cols {
		row[i] = string(c)
	}
	return row
}

func resultRow(cols []Column, r model.PageResult) []string {
	row := make([]string, len(cols))
	for i, c := range cols {
		row[i] = c.Value(r)
	}
	return row
}

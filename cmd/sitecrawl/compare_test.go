package main

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/nao1215/sitecrawl/internal/model"
)

func TestNewCompareCmd(t *testing.T) {
	t.Parallel()

	cmd := NewCompareCmd()

	if cmd.Use != "compare <seed-url>" {
		t.Errorf("unexpected Use: got %q", cmd.Use)
	}

	flagsWithShort := map[string]string{
		"with-run-id": "i",
		"json":        "j",
	}
	for flag, shorthand := range flagsWithShort {
		f := cmd.Flags().Lookup(flag)
		if f == nil {
			t.Errorf("expected flag %q to exist", flag)
			continue
		}
		if f.Shorthand != shorthand {
			t.Errorf("flag %q: expected shorthand %q, got %q", flag, shorthand, f.Shorthand)
		}
	}
}

func TestCompareRuns(t *testing.T) {
	t.Parallel()

	start := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

	previous := model.NewCrawlRun("https://example.com/", 2)
	previous.ID = 1
	previous.StartedAt = start
	previous.Add(model.PageResult{URL: "https://example.com/", StatusCode: 200, ContentKind: model.ContentKindHTML})
	previous.Add(model.PageResult{URL: "https://example.com/old", StatusCode: 200, ContentKind: model.ContentKindHTML})
	previous.Add(model.PageResult{URL: "https://example.com/moved", StatusCode: 200, ContentKind: model.ContentKindHTML})
	previous.Add(model.PageResult{URL: "https://example.com/file", StatusCode: 200, ContentKind: model.ContentKindOther})

	current := model.NewCrawlRun("https://example.com/", 2)
	current.ID = 2
	current.StartedAt = start.Add(24 * time.Hour)
	current.Add(model.PageResult{URL: "https://example.com/", StatusCode: 200, ContentKind: model.ContentKindHTML})
	current.Add(model.PageResult{URL: "https://example.com/moved", StatusCode: 404, ContentKind: model.ContentKindHTML})
	current.Add(model.PageResult{URL: "https://example.com/file", StatusCode: 200, ContentKind: model.ContentKindImage})
	current.Add(model.PageResult{URL: "https://example.com/b-new", StatusCode: 200, ContentKind: model.ContentKindHTML})
	current.Add(model.PageResult{URL: "https://example.com/a-new", StatusCode: 200, ContentKind: model.ContentKindHTML})

	result := compareRuns(previous, current)

	t.Run("finds added urls in order", func(t *testing.T) {
		t.Parallel()
		if len(result.Added) != 2 || result.Added[0].URL != "https://example.com/a-new" {
			t.Errorf("unexpected added %+v", result.Added)
		}
	})

	t.Run("finds removed urls", func(t *testing.T) {
		t.Parallel()
		if len(result.Removed) != 1 || result.Removed[0].URL != "https://example.com/old" {
			t.Errorf("unexpected removed %+v", result.Removed)
		}
	})

	t.Run("finds status and kind changes", func(t *testing.T) {
		t.Parallel()
		if len(result.Changed) != 2 {
			t.Fatalf("expected 2 changes, got %+v", result.Changed)
		}
		file, moved := result.Changed[0], result.Changed[1]
		if file.PreviousKind != model.ContentKindOther || file.CurrentKind != model.ContentKindImage {
			t.Errorf("unexpected kind change %+v", file)
		}
		if moved.PreviousStatus != 200 || moved.CurrentStatus != 404 {
			t.Errorf("unexpected status change %+v", moved)
		}
	})

	t.Run("counts unchanged urls and run info", func(t *testing.T) {
		t.Parallel()
		if result.UnchangedCount != 1 {
			t.Errorf("expected 1 unchanged, got %d", result.UnchangedCount)
		}
		if result.PreviousRun.ID != 1 || result.CurrentRun.Pages != 5 {
			t.Errorf("unexpected run info %+v / %+v", result.PreviousRun, result.CurrentRun)
		}
	})

	t.Run("text output", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if err := outputComparisonText(&buf, result); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		out := buf.String()
		for _, want := range []string{
			"Added URLs (2)",
			"Removed URLs (1)",
			"status: 200 -> 404",
			"kind:   Other -> Image",
			"Unchanged: 1 URLs",
			"+1",
		} {
			if !strings.Contains(out, want) {
				t.Errorf("expected %q in output:\n%s", want, out)
			}
		}
	})
}

func TestFormatDelta(t *testing.T) {
	t.Parallel()

	tests := map[int]string{3: "+3", 0: "0", -2: "-2"}
	for delta, want := range tests {
		if got := formatDelta(delta); got != want {
			t.Errorf("formatDelta(%d) = %q, expected %q", delta, got, want)
		}
	}
}

// TestCompareCommand compares two stored crawls of a changing site.
func TestCompareCommand(t *testing.T) {
	t.Parallel()

	site := newTestSite(t)
	dbDir := t.TempDir()

	if _, err := executeCommand(t, "compare", "--db-dir", dbDir, site.URL); err == nil {
		t.Error("expected error without a database")
	}

	if _, err := executeCommand(t, crawlArgs(t, dbDir, "-f", "json", site.URL)...); err != nil {
		t.Fatalf("first crawl failed: %v", err)
	}

	if _, err := executeCommand(t, "compare", "--db-dir", dbDir, site.URL); err == nil ||
		!strings.Contains(err.Error(), "at least 2 runs") {
		t.Errorf("expected error with a single run, got %v", err)
	}

	site.extended.Store(true)
	if _, err := executeCommand(t, crawlArgs(t, dbDir, "-f", "json", site.URL)...); err != nil {
		t.Fatalf("second crawl failed: %v", err)
	}

	out, err := executeCommand(t, "compare", "--db-dir", dbDir, "--json", site.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var result ComparisonResult
	if err := json.Unmarshal([]byte(out), &result); err != nil {
		t.Fatalf("invalid JSON output: %v\n%s", err, out)
	}
	if len(result.Added) != 1 || result.Added[0].URL != site.URL+"/new" {
		t.Errorf("expected /new to be added, got %+v", result.Added)
	}
	if len(result.Removed) != 0 || result.UnchangedCount != 2 {
		t.Errorf("unexpected comparison %+v", result)
	}

	if _, err := executeCommand(t, "compare", "--db-dir", dbDir, "-i", "2", site.URL); err == nil {
		t.Error("expected error when comparing the latest run with itself")
	}
}

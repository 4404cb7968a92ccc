package model

import (
	"encoding/json"
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"
)

// TestPageResultJSON tests the persisted-run field names and reload fidelity.
func TestPageResultJSON(t *testing.T) {
	t.Parallel()

	t.Run("uses data model field names", func(t *testing.T) {
		t.Parallel()

		r := PageResult{
			URL:             "https://example.com/",
			StatusCode:      200,
			ContentKind:     ContentKindHTML,
			Title:           "Example",
			H1:              "Welcome",
			MetaDescription: "An example page",
			Depth:           0,
		}

		data, err := json.Marshal(r)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		out := string(data)
		for _, key := range []string{`"url"`, `"statusCode"`, `"contentKind":"HTML"`, `"title"`, `"h1"`, `"metaDescription"`, `"depth"`} {
			if !strings.Contains(out, key) {
				t.Errorf("expected %s in %s", key, out)
			}
		}
		if strings.Contains(out, `"error"`) {
			t.Errorf("expected empty error to be omitted, got %s", out)
		}
	})

	t.Run("reload reproduces identical values", func(t *testing.T) {
		t.Parallel()

		results := []PageResult{
			{URL: "https://example.com/", StatusCode: 200, ContentKind: ContentKindHTML, Title: "Home", H1: NoH1, MetaDescription: "desc", Depth: 0},
			{URL: "https://example.com/logo.png", StatusCode: 200, ContentKind: ContentKindImage, Title: NotHTML, H1: NotHTML, MetaDescription: NotHTML, Depth: 1},
			NewFetchErrorResult("https://down.example.com/", 2, errors.New("dial tcp: connection refused")),
		}

		data, err := json.Marshal(results)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		var reloaded []PageResult
		if err := json.Unmarshal(data, &reloaded); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if !reflect.DeepEqual(results, reloaded) {
			t.Errorf("round trip mismatch:\n got  %+v\n want %+v", reloaded, results)
		}
	})

	t.Run("rejects unknown content kind", func(t *testing.T) {
		t.Parallel()

		var r PageResult
		err := json.Unmarshal([]byte(`{"url":"https://x.test/","contentKind":"Video"}`), &r)
		if err == nil {
			t.Error("expected error for unknown content kind")
		}
	})
}

// TestNewFetchErrorResult tests the sentinel values of a failed fetch.
func TestNewFetchErrorResult(t *testing.T) {
	t.Parallel()

	r := NewFetchErrorResult("https://example.com/a", 1, errors.New("timeout"))

	if r.StatusCode != StatusFetchError {
		t.Errorf("expected status %d, got %d", StatusFetchError, r.StatusCode)
	}
	if r.ContentKind != ContentKindFetchError {
		t.Errorf("expected FetchError kind, got %s", r.ContentKind)
	}
	if r.Title != FetchErrorValue || r.H1 != FetchErrorValue || r.MetaDescription != FetchErrorValue {
		t.Errorf("expected fetch error sentinels, got %+v", r)
	}
	if r.Error != "timeout" {
		t.Errorf("expected error message to be kept, got %q", r.Error)
	}
	if !r.Failed() {
		t.Error("expected Failed to be true")
	}
	if r.HasTitle() {
		t.Error("expected HasTitle to be false")
	}
}

// TestParseContentKind tests kind parsing.
func TestParseContentKind(t *testing.T) {
	t.Parallel()

	for _, k := range AllContentKinds {
		got, err := ParseContentKind(k.String())
		if err != nil {
			t.Errorf("unexpected error for %s: %v", k, err)
		}
		if got != k {
			t.Errorf("got %s, expected %s", got, k)
		}
	}

	if _, err := ParseContentKind("html"); err == nil {
		t.Error("expected kinds to be case-sensitive")
	}
}

// TestCrawlRun tests the run aggregate helpers.
func TestCrawlRun(t *testing.T) {
	t.Parallel()

	newRun := func() *CrawlRun {
		run := NewCrawlRun("https://example.com", 3)
		run.Add(PageResult{URL: "https://example.com/b", ContentKind: ContentKindHTML, Depth: 1})
		run.Add(PageResult{URL: "https://example.com/", ContentKind: ContentKindHTML, Depth: 0})
		run.Add(PageResult{URL: "https://example.com/a.css", ContentKind: ContentKindStylesheet, Depth: 1})
		run.Add(NewFetchErrorResult("https://example.com/a", 1, nil))
		return run
	}

	t.Run("counts by kind", func(t *testing.T) {
		t.Parallel()

		run := newRun()
		if got := run.Count(ContentKindHTML); got != 2 {
			t.Errorf("expected 2 HTML results, got %d", got)
		}
		if got := run.ErrorCount(); got != 1 {
			t.Errorf("expected 1 error, got %d", got)
		}

		counts := run.CountByKind()
		if len(counts) != len(AllContentKinds) {
			t.Errorf("expected every kind present, got %v", counts)
		}
		if counts[ContentKindScript] != 0 {
			t.Errorf("expected 0 scripts, got %d", counts[ContentKindScript])
		}
	})

	t.Run("sorts by depth then url", func(t *testing.T) {
		t.Parallel()

		run := newRun()
		run.Sort()

		want := []string{
			"https://example.com/",
			"https://example.com/a",
			"https://example.com/a.css",
			"https://example.com/b",
		}
		for i, u := range want {
			if run.Results[i].URL != u {
				t.Errorf("position %d: got %s, expected %s", i, run.Results[i].URL, u)
			}
		}
	})

	t.Run("finish records outcome", func(t *testing.T) {
		t.Parallel()

		run := newRun()
		start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
		run.Finish(RunSummary{
			Outcome:    OutcomeCancelled,
			StartedAt:  start,
			FinishedAt: start.Add(3 * time.Second),
		})

		if run.Outcome != OutcomeCancelled {
			t.Errorf("expected cancelled, got %s", run.Outcome)
		}
		if run.Elapsed() != 3*time.Second {
			t.Errorf("expected 3s elapsed, got %v", run.Elapsed())
		}
	})

	t.Run("lookup finds result", func(t *testing.T) {
		t.Parallel()

		run := newRun()
		if _, ok := run.Lookup("https://example.com/a.css"); !ok {
			t.Error("expected lookup to find stylesheet")
		}
		if _, ok := run.Lookup("https://example.com/missing"); ok {
			t.Error("expected lookup miss")
		}
	})
}

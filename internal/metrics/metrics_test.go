package metrics

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/nao1215/sitecrawl/internal/model"
)

func TestRecorder(t *testing.T) {
	t.Parallel()

	t.Run("counts emitted results", func(t *testing.T) {
		t.Parallel()

		r := NewRecorder()
		r.Emit(model.PageResult{URL: "https://example.com/", StatusCode: 200, ContentKind: model.ContentKindHTML})
		r.Emit(model.PageResult{URL: "https://example.com/a", StatusCode: 404, ContentKind: model.ContentKindHTML})
		r.Emit(model.PageResult{URL: "https://example.com/logo.png", StatusCode: 200, ContentKind: model.ContentKindImage})
		r.Emit(model.NewFetchErrorResult("https://down.example.com/", 1, errors.New("refused")))

		if got := testutil.ToFloat64(r.pages.WithLabelValues("HTML")); got != 2 {
			t.Errorf("expected 2 HTML pages, got %v", got)
		}
		if got := testutil.ToFloat64(r.pages.WithLabelValues("Image")); got != 1 {
			t.Errorf("expected 1 image, got %v", got)
		}
		if got := testutil.ToFloat64(r.fetchErrors); got != 1 {
			t.Errorf("expected 1 fetch error, got %v", got)
		}
		if got := testutil.ToFloat64(r.statuses.WithLabelValues("200")); got != 2 {
			t.Errorf("expected 2 responses with 200, got %v", got)
		}
		if got := testutil.ToFloat64(r.statuses.WithLabelValues("0")); got != 0 {
			t.Errorf("expected fetch errors to have no status, got %v", got)
		}
	})

	t.Run("counts runs and retries", func(t *testing.T) {
		t.Parallel()

		r := NewRecorder()
		start := time.Now()
		r.Done(model.RunSummary{Outcome: model.OutcomeCompleted, Skipped: 4, StartedAt: start, FinishedAt: start.Add(time.Second)})
		r.Done(model.RunSummary{Outcome: model.OutcomeCancelled})
		r.ObserveRetry("https://example.com/", 1, errors.New("timeout"))
		r.ObserveRetry("https://example.com/", 2, errors.New("timeout"))

		if got := testutil.ToFloat64(r.runs.WithLabelValues("completed")); got != 1 {
			t.Errorf("expected 1 completed run, got %v", got)
		}
		if got := testutil.ToFloat64(r.runs.WithLabelValues("cancelled")); got != 1 {
			t.Errorf("expected 1 cancelled run, got %v", got)
		}
		if got := testutil.ToFloat64(r.skipped); got != 4 {
			t.Errorf("expected 4 skipped links, got %v", got)
		}
		if got := testutil.ToFloat64(r.retries); got != 2 {
			t.Errorf("expected 2 retries, got %v", got)
		}
		if got := testutil.CollectAndCount(r.duration); got != 1 {
			t.Errorf("expected one duration series, got %d", got)
		}
	})

	t.Run("recorders do not share state", func(t *testing.T) {
		t.Parallel()

		a, b := NewRecorder(), NewRecorder()
		a.ObserveRetry("", 1, nil)
		if got := testutil.ToFloat64(b.retries); got != 0 {
			t.Errorf("expected independent registries, got %v", got)
		}
	})
}

func TestRecorderHandler(t *testing.T) {
	t.Parallel()

	r := NewRecorder()
	r.Emit(model.PageResult{URL: "https://example.com/", StatusCode: 200, ContentKind: model.ContentKindHTML})

	srv := httptest.NewServer(r.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL) //nolint:noctx
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, want := range []string{
		`sitecrawl_pages_total{kind="HTML"} 1`,
		"sitecrawl_fetch_errors_total 0",
		"go_goroutines",
	} {
		if !strings.Contains(string(body), want) {
			t.Errorf("expected %q in metrics output", want)
		}
	}
}

func TestRecorderServe(t *testing.T) {
	t.Parallel()

	t.Run("stops on cancel", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(t.Context())
		done := make(chan error, 1)
		go func() {
			done <- NewRecorder().Serve(ctx, "127.0.0.1:0", nil)
		}()

		cancel()
		select {
		case err := <-done:
			if err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		case <-time.After(5 * time.Second):
			t.Fatal("Serve did not return after cancel")
		}
	})

	t.Run("invalid address", func(t *testing.T) {
		t.Parallel()

		if err := NewRecorder().Serve(t.Context(), "not-an-address", nil); err == nil {
			t.Error("expected error for invalid address")
		}
	})
}

package crawler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/nao1215/sitecrawl/internal/model"
)

func TestChannelSink(t *testing.T) {
	t.Parallel()

	sink := NewChannelSink(t.Context(), 1)

	go func() {
		sink.Emit(model.PageResult{URL: "https://example.com/"})
		sink.Emit(model.PageResult{URL: "https://example.com/a"})
		sink.Done(model.RunSummary{Outcome: model.OutcomeCompleted, Pages: 2})
		// A second Done must not panic on the closed channels.
		sink.Done(model.RunSummary{Outcome: model.OutcomeCancelled})
	}()

	var urls []string
	for r := range sink.Results() {
		urls = append(urls, r.URL)
	}
	if len(urls) != 2 || urls[0] != "https://example.com/" {
		t.Errorf("unexpected results %v", urls)
	}

	summary, ok := <-sink.Summary()
	if !ok {
		t.Fatal("expected a summary")
	}
	if summary.Outcome != model.OutcomeCompleted || summary.Pages != 2 {
		t.Errorf("unexpected summary %+v", summary)
	}
	if _, ok := <-sink.Summary(); ok {
		t.Error("expected summary channel to be closed after one value")
	}
}

func TestChannelSinkCancelled(t *testing.T) {
	t.Parallel()

	t.Run("emit gives up on a full buffer after cancel", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(t.Context())
		sink := NewChannelSink(ctx, 1)
		sink.Emit(model.PageResult{URL: "https://example.com/"})

		returned := make(chan struct{})
		go func() {
			sink.Emit(model.PageResult{URL: "https://example.com/a"})
			close(returned)
		}()

		select {
		case <-returned:
			t.Fatal("expected Emit to wait while the buffer is full")
		case <-time.After(20 * time.Millisecond):
		}

		cancel()
		select {
		case <-returned:
		case <-time.After(time.Second):
			t.Fatal("Emit did not return after cancellation")
		}
		if sink.Dropped() != 1 {
			t.Errorf("expected 1 dropped result, got %d", sink.Dropped())
		}

		sink.Done(model.RunSummary{Outcome: model.OutcomeCancelled})
		var urls []string
		for r := range sink.Results() {
			urls = append(urls, r.URL)
		}
		if len(urls) != 1 || urls[0] != "https://example.com/" {
			t.Errorf("expected the buffered result only, got %v", urls)
		}
	})

	t.Run("crawl with an abandoned consumer finishes", func(t *testing.T) {
		t.Parallel()

		f := newFakeFetcher(map[string]fakePage{
			"https://site.test/":  htmlPage("root", "/a", "/b"),
			"https://site.test/a": htmlPage("a"),
			"https://site.test/b": htmlPage("b"),
		})

		// Nobody reads Results, so the seed's Emit waits for the cancel.
		ctx, cancel := context.WithCancel(t.Context())
		sink := NewChannelSink(ctx, 0)
		time.AfterFunc(20*time.Millisecond, cancel)

		done := make(chan error, 1)
		go func() {
			_, err := NewSpider(f).Crawl(ctx, "https://site.test/", sink)
			done <- err
		}()

		select {
		case err := <-done:
			if !errors.Is(err, context.Canceled) {
				t.Errorf("expected context.Canceled, got %v", err)
			}
		case <-time.After(5 * time.Second):
			t.Fatal("crawl blocked on an unread sink")
		}
		if summary, ok := <-sink.Summary(); !ok || summary.Outcome != model.OutcomeCancelled {
			t.Errorf("expected cancelled summary, got %+v", summary)
		}
		if sink.Dropped() != 1 {
			t.Errorf("expected the seed result to be dropped, got %d", sink.Dropped())
		}
		if f.fetchCount("https://site.test/a") != 0 {
			t.Error("expected no fetch after cancellation")
		}
	})
}

func TestCollectSink(t *testing.T) {
	t.Parallel()

	sink := NewCollectSink()
	if _, done := sink.Summary(); done {
		t.Error("expected no summary before Done")
	}

	sink.Emit(model.PageResult{URL: "https://example.com/"})
	results := sink.Results()
	results[0].URL = "mutated"

	if sink.Results()[0].URL != "https://example.com/" {
		t.Error("expected Results to return a copy")
	}

	sink.Done(model.RunSummary{Outcome: model.OutcomeCompleted})
	if s, done := sink.Summary(); !done || s.Outcome != model.OutcomeCompleted {
		t.Errorf("unexpected summary %+v", s)
	}
}

func TestMultiSink(t *testing.T) {
	t.Parallel()

	a, b := NewCollectSink(), NewCollectSink()
	var emitted int
	sink := MultiSink{a, b, FuncSink{OnEmit: func(model.PageResult) { emitted++ }}, FuncSink{}}

	sink.Emit(model.PageResult{URL: "https://example.com/"})
	sink.Done(model.RunSummary{Outcome: model.OutcomeCompleted})

	if len(a.Results()) != 1 || len(b.Results()) != 1 || emitted != 1 {
		t.Errorf("expected fan-out to every sink")
	}
	if _, done := b.Summary(); !done {
		t.Error("expected Done to reach every sink")
	}
}

func TestVisitedSet(t *testing.T) {
	t.Parallel()

	t.Run("claims a url once", func(t *testing.T) {
		t.Parallel()

		v := NewVisitedSet()
		if !v.TryVisit("https://example.com/") {
			t.Error("expected first visit to succeed")
		}
		if v.TryVisit("https://example.com/") {
			t.Error("expected second visit to fail")
		}
		if !v.Has("https://example.com/") || v.Has("https://example.com/other") {
			t.Error("unexpected membership")
		}
		if v.Len() != 1 {
			t.Errorf("expected 1, got %d", v.Len())
		}
	})

	t.Run("exactly one concurrent winner", func(t *testing.T) {
		t.Parallel()

		v := NewVisitedSet()
		var (
			wg   sync.WaitGroup
			mu   sync.Mutex
			wins int
		)
		for range 50 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if v.TryVisit("https://example.com/race") {
					mu.Lock()
					wins++
					mu.Unlock()
				}
			}()
		}
		wg.Wait()

		if wins != 1 {
			t.Errorf("expected exactly one winner, got %d", wins)
		}
	})
}

package crawler

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/nao1215/sitecrawl/internal/model"
)

// Sink receives the results of a run as they are produced.
//
// The Spider serializes calls: Emit is never called concurrently, and Done
// is called exactly once, after the last Emit.
type Sink interface {
	// Emit delivers one result.
	Emit(result model.PageResult)

	// Done marks the end of the run.
	Done(summary model.RunSummary)
}

// ChannelSink exposes a run as channels. Emit blocks while the results
// buffer is full, until the consumer reads or ctx is done. Results emitted
// after ctx is done and never read are dropped and counted.
type ChannelSink struct {
	ctx     context.Context
	results chan model.PageResult
	summary chan model.RunSummary
	once    sync.Once
	dropped atomic.Int64
}

// NewChannelSink creates a ChannelSink whose results channel holds up to
// buffer entries. Pass the context of the crawl so that an abandoned
// consumer cannot stall it.
func NewChannelSink(ctx context.Context, buffer int) *ChannelSink {
	if buffer < 0 {
		buffer = 0
	}
	return &ChannelSink{
		ctx:     ctx,
		results: make(chan model.PageResult, buffer),
		summary: make(chan model.RunSummary, 1),
	}
}

// Results returns the channel of results. It is closed after Done.
func (s *ChannelSink) Results() <-chan model.PageResult {
	return s.results
}

// Summary returns a channel that yields the terminal summary once and is
// then closed.
func (s *ChannelSink) Summary() <-chan model.RunSummary {
	return s.summary
}

// Dropped returns the number of results given up on after cancellation.
func (s *ChannelSink) Dropped() int {
	return int(s.dropped.Load())
}

// Emit implements Sink.
func (s *ChannelSink) Emit(result model.PageResult) {
	select {
	case s.results <- result:
	case <-s.ctx.Done():
		s.dropped.Add(1)
	}
}

// Done implements Sink.
func (s *ChannelSink) Done(summary model.RunSummary) {
	s.once.Do(func() {
		s.summary <- summary
		close(s.summary)
		close(s.results)
	})
}

// CollectSink keeps every result in memory.
type CollectSink struct {
	mu      sync.Mutex
	results []model.PageResult
	summary *model.RunSummary
}

// NewCollectSink creates an empty CollectSink.
func NewCollectSink() *CollectSink {
	return &CollectSink{results: make([]model.PageResult, 0)}
}

// Emit implements Sink.
func (s *CollectSink) Emit(result model.PageResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results = append(s.results, result)
}

// Done implements Sink.
func (s *CollectSink) Done(summary model.RunSummary) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.summary = &summary
}

// Results returns a copy of the collected results in emission order.
func (s *CollectSink) Results() []model.PageResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.PageResult, len(s.results))
	copy(out, s.results)
	return out
}

// Summary returns the terminal summary and whether Done was called.
func (s *CollectSink) Summary() (model.RunSummary, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.summary == nil {
		return model.RunSummary{}, false
	}
	return *s.summary, true
}

// FuncSink adapts plain functions. Nil fields are ignored.
type FuncSink struct {
	OnEmit func(model.PageResult)
	OnDone func(model.RunSummary)
}

// Emit implements Sink.
func (f FuncSink) Emit(result model.PageResult) {
	if f.OnEmit != nil {
		f.OnEmit(result)
	}
}

// Done implements Sink.
func (f FuncSink) Done(summary model.RunSummary) {
	if f.OnDone != nil {
		f.OnDone(summary)
	}
}

// MultiSink forwards every call to each sink in order.
type MultiSink []Sink

// Emit implements Sink.
func (m MultiSink) Emit(result model.PageResult) {
	for _, s := range m {
		s.Emit(result)
	}
}

// Done implements Sink.
func (m MultiSink) Done(summary model.RunSummary) {
	for _, s := range m {
		s.Done(summary)
	}
}

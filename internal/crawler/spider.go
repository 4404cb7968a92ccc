package crawler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/nao1215/sitecrawl/internal/fetcher"
	"github.com/nao1215/sitecrawl/internal/model"
	"github.com/nao1215/sitecrawl/internal/parser"
	"golang.org/x/sync/errgroup"
)

// Defaults applied by NewSpider.
const (
	// DefaultMaxDepth is the number of link hops followed from the seed.
	DefaultMaxDepth = 3

	// DefaultRetryCount is the number of metadata fetch attempts made after
	// a failed link-discovery fetch.
	DefaultRetryCount = 3

	// DefaultRetryDelay is the fixed pause between those attempts.
	DefaultRetryDelay = 5 * time.Second

	// DefaultWorkers keeps a single fetch in flight.
	DefaultWorkers = 1
)

// Fetcher is what the Spider needs from the network layer.
// *fetcher.Client satisfies it.
type Fetcher interface {
	Fetch(ctx context.Context, url string) *fetcher.Outcome
	FetchWithRetry(ctx context.Context, url string, policy fetcher.RetryPolicy) *fetcher.Outcome
}

// Spider crawls a site breadth-first up to a fixed depth. Its configuration
// is fixed at construction; all per-run state lives in a session.
type Spider struct {
	fetcher Fetcher

	// maxDepth is the deepest level scheduled. The seed is level 0.
	maxDepth int

	// retry bounds the metadata fetch after a failed discovery fetch.
	retry fetcher.RetryPolicy

	// excludedDomains are lower-case hosts whose links are never followed,
	// subdomains included.
	excludedDomains []string

	// workers is the number of targets of one level fetched concurrently.
	workers int

	// maxPages stops the run after this many results. 0 means no limit.
	maxPages int

	// sameHost restricts scheduling to the seed's host.
	sameHost bool

	linkSources parser.LinkSource

	// ignorePatterns and followPatterns filter link paths with globs.
	ignorePatterns []string
	followPatterns []string

	logger *slog.Logger
}

// SpiderOption configures a Spider.
type SpiderOption func(*Spider)

// WithMaxDepth sets the maximum crawl depth.
// 0 = only the seed, 1 = the seed plus the resources it links to, etc.
func WithMaxDepth(depth int) SpiderOption {
	return func(s *Spider) {
		if depth < 0 {
			depth = 0
		}
		s.maxDepth = depth
	}
}

// WithRetry sets how many metadata fetch attempts are made for a URL whose
// first fetch failed, and the pause between them.
func WithRetry(count int, delay time.Duration) SpiderOption {
	return func(s *Spider) {
		s.retry = fetcher.RetryPolicy{Attempts: count, Delay: delay}
	}
}

// WithExcludedDomains prevents links to the given hosts and their
// subdomains from being followed. The seed itself is never excluded.
func WithExcludedDomains(domains []string) SpiderOption {
	return func(s *Spider) {
		s.excludedDomains = normalizeDomains(domains)
	}
}

// WithWorkers sets how many targets of the same level may be fetched at
// once. Values below 1 mean 1.
func WithWorkers(n int) SpiderOption {
	return func(s *Spider) {
		if n < 1 {
			n = 1
		}
		s.workers = n
	}
}

// WithMaxPages stops scheduling after n results. 0 means unlimited.
func WithMaxPages(n int) SpiderOption {
	return func(s *Spider) {
		if n < 0 {
			n = 0
		}
		s.maxPages = n
	}
}

// WithSameHost restricts the crawl to the seed's host.
func WithSameHost(enabled bool) SpiderOption {
	return func(s *Spider) {
		s.sameHost = enabled
	}
}

// WithLinkSources selects which elements contribute links.
func WithLinkSources(sources parser.LinkSource) SpiderOption {
	return func(s *Spider) {
		s.linkSources = sources
	}
}

// WithIgnorePatterns sets URL path patterns to skip.
// Patterns use glob syntax (e.g., "/admin/*", "*.pdf").
func WithIgnorePatterns(patterns []string) SpiderOption {
	return func(s *Spider) {
		s.ignorePatterns = patterns
	}
}

// WithFollowPatterns sets URL path patterns to follow.
// When set, only matching paths are scheduled.
func WithFollowPatterns(patterns []string) SpiderOption {
	return func(s *Spider) {
		s.followPatterns = patterns
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) SpiderOption {
	return func(s *Spider) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewSpider creates a Spider that fetches through f.
func NewSpider(f Fetcher, opts ...SpiderOption) *Spider {
	s := &Spider{
		fetcher:     f,
		maxDepth:    DefaultMaxDepth,
		retry:       fetcher.RetryPolicy{Attempts: DefaultRetryCount, Delay: DefaultRetryDelay},
		workers:     DefaultWorkers,
		linkSources: parser.AllLinkSources,
		logger:      slog.Default(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Crawl runs one crawl from seed and reports every visited URL to sink.
//
// The sink's Done is always called before Crawl returns. The returned error
// is nil for a completed run, wraps ErrInvalidSeed for a seed that cannot be
// normalized, and is the context's error after cancellation. Per-URL
// failures are never returned; they are emitted as FetchError results.
func (s *Spider) Crawl(ctx context.Context, seed string, sink Sink) (model.RunSummary, error) {
	sess := newSession(s, sink)

	start, err := parser.NormalizeSeed(seed)
	if err != nil {
		summary := sess.finish(seed, model.OutcomeInvalidSeed)
		return summary, fmt.Errorf("%w %q: %w", ErrInvalidSeed, seed, err)
	}
	sess.seedHost = parser.Host(start)
	sess.visited.TryVisit(start)

	s.logger.Debug("crawl started", "seed", start, "max_depth", s.maxDepth, "workers", s.workers)

	level := []model.CrawlTarget{{URL: start, Depth: 0}}
	for len(level) > 0 {
		next, err := sess.runLevel(ctx, level)
		if err != nil {
			summary := sess.finish(start, model.OutcomeCancelled)
			s.logger.Debug("crawl cancelled", "seed", start, "pages", summary.Pages)
			return summary, err
		}
		level = next
	}

	summary := sess.finish(start, model.OutcomeCompleted)
	s.logger.Debug("crawl completed",
		"seed", start,
		"pages", summary.Pages,
		"errors", summary.Errors,
		"skipped", summary.Skipped,
		"elapsed", summary.Elapsed())
	return summary, nil
}

// session is the state of one run.
type session struct {
	spider   *Spider
	sink     Sink
	visited  *VisitedSet
	seedHost string
	started  time.Time

	// dispatched is only touched by the goroutine running the levels.
	dispatched int

	// mu serializes sink calls and guards the counters below.
	mu      sync.Mutex
	pages   int
	errors  int
	skipped int
}

func newSession(s *Spider, sink Sink) *session {
	return &session{
		spider:  s,
		sink:    sink,
		visited: NewVisitedSet(),
		started: time.Now(),
	}
}

// runLevel processes every target of one depth level and returns the next
// level. It stops dispatching as soon as ctx is done, waits for the fetches
// already in flight, and returns the context's error. A cancellation that
// arrives while the level is in flight is reported the same way, even when
// every target had already been dispatched.
func (sess *session) runLevel(ctx context.Context, level []model.CrawlTarget) ([]model.CrawlTarget, error) {
	// Each target writes only its own slot, which keeps the next level in
	// discovery order regardless of the number of workers.
	discovered := make([][]model.CrawlTarget, len(level))

	g := new(errgroup.Group)
	g.SetLimit(sess.spider.workers)

	for i, target := range level {
		if ctx.Err() != nil || sess.limitReached() {
			break
		}
		sess.dispatched++

		// g.Go waits for a free worker, so ctx may be done by the time
		// the function runs.
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			discovered[i] = sess.visit(ctx, target)
			return nil
		})
	}
	_ = g.Wait() //nolint:errcheck // visit never fails

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if sess.limitReached() {
		return nil, nil
	}

	next := make([]model.CrawlTarget, 0)
	for _, targets := range discovered {
		next = append(next, targets...)
	}
	return next, nil
}

func (sess *session) limitReached() bool {
	limit := sess.spider.maxPages
	return limit > 0 && sess.dispatched >= limit
}

// visit fetches one target, emits its result and returns the targets it
// schedules.
func (sess *session) visit(ctx context.Context, target model.CrawlTarget) []model.CrawlTarget {
	s := sess.spider

	out := s.fetcher.Fetch(ctx, target.URL)
	followLinks := true
	if out.Failed() && ctx.Err() != nil {
		return nil
	}
	if out.Failed() {
		s.logger.Debug("fetch failed, retrying for metadata",
			"url", target.URL,
			"depth", target.Depth,
			"error", out.Err)
		out = s.fetcher.FetchWithRetry(ctx, target.URL, s.retry)
		followLinks = false
	}

	if out.Failed() {
		// A fetch cut short by cancellation says nothing about the URL.
		if ctx.Err() != nil {
			return nil
		}
		s.logger.Warn("giving up on url", "url", target.URL, "attempts", out.Attempts, "error", out.Err)
		sess.emit(model.NewFetchErrorResult(target.URL, target.Depth, out.Err))
		return nil
	}

	kind := fetcher.Classify(target.URL, out.ContentType)

	var ex *parser.Extraction
	if kind == model.ContentKindHTML {
		ex = parser.ExtractDocument(out.ContentType, out.Body, parser.WithLinkSources(s.linkSources))
	} else {
		ex = parser.NotHTMLExtraction()
	}

	sess.emit(model.PageResult{
		URL:             target.URL,
		StatusCode:      out.StatusCode,
		ContentKind:     kind,
		Title:           ex.Title,
		H1:              ex.H1,
		MetaDescription: ex.MetaDescription,
		Depth:           target.Depth,
	})

	if !followLinks {
		return nil
	}

	base := out.FinalURL
	if base == "" {
		base = target.URL
	}
	return sess.schedule(base, target.Depth, ex.Links)
}

// schedule filters the raw links of a page at depth and claims the
// survivors in the visited set.
func (sess *session) schedule(base string, depth int, links []string) []model.CrawlTarget {
	s := sess.spider
	next := make([]model.CrawlTarget, 0, len(links))
	skipped := 0

	for _, raw := range links {
		abs, err := parser.Normalize(base, raw)
		if err != nil {
			skipped++
			continue
		}
		host := parser.Host(abs)
		if s.isExcluded(host) {
			skipped++
			continue
		}
		if s.sameHost && host != sess.seedHost {
			skipped++
			continue
		}
		if !s.shouldCrawl(abs) {
			skipped++
			continue
		}
		if depth+1 > s.maxDepth {
			skipped++
			continue
		}
		if !sess.visited.TryVisit(abs) {
			skipped++
			continue
		}
		next = append(next, model.CrawlTarget{URL: abs, Depth: depth + 1})
	}

	if skipped > 0 {
		sess.mu.Lock()
		sess.skipped += skipped
		sess.mu.Unlock()
	}
	return next
}

func (sess *session) emit(result model.PageResult) {
	sess.mu.Lock()
	defer sess.mu.Unlock()

	sess.pages++
	if result.Failed() {
		sess.errors++
	}
	sess.sink.Emit(result)
}

// finish hands the terminal summary to the sink and returns it.
func (sess *session) finish(seed string, outcome model.Outcome) model.RunSummary {
	sess.mu.Lock()
	defer sess.mu.Unlock()

	summary := model.RunSummary{
		Seed:       seed,
		Outcome:    outcome,
		Pages:      sess.pages,
		Errors:     sess.errors,
		Skipped:    sess.skipped,
		StartedAt:  sess.started,
		FinishedAt: time.Now(),
	}
	sess.sink.Done(summary)
	return summary
}

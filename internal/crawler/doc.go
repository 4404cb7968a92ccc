// Package crawler implements the bounded-depth crawl engine.
//
// # Architecture
//
// The Spider coordinates a run. Each call to Crawl creates a fresh session
// holding the visited set, the frontier and the counters, so one Spider can
// serve many runs, even concurrently, and no state survives between them.
//
// The frontier is processed breadth-first, one depth level at a time. For
// every target the Spider fetches the resource, classifies it, extracts
// metadata and links from HTML, and emits exactly one model.PageResult to
// the Sink. Discovered links are normalized, filtered (excluded domains,
// patterns, depth limit) and claimed through the VisitedSet before they are
// scheduled.
//
// # Failures
//
// A failed link-discovery fetch is followed by a metadata fetch with retries.
// If that succeeds, the page is recorded but its links are not followed. If
// it fails too, a FetchError result is emitted and the crawl goes on. Only an
// invalid seed or cancellation of the context ends a run early; both are
// reported to the Sink through Done and returned to the caller.
//
// # Usage
//
//	spider := crawler.NewSpider(fetcher.New(), crawler.WithMaxDepth(2))
//	sink := crawler.NewCollectSink()
//	summary, err := spider.Crawl(ctx, "https://example.com", sink)
package crawler

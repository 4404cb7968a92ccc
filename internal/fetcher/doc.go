// Package fetcher retrieves resources over HTTP for the crawl engine.
//
// Every request is bounded by a timeout and never fails with a panic or a
// returned error: network problems (connection refused, DNS failure, timeout,
// reset) come back inside an Outcome so that the caller can record them as
// data and keep crawling.
//
// FetchWithRetry repeats a GET a fixed number of times with a fixed pause.
// Only transport failures are retried; any HTTP response, including a 5xx,
// ends the loop.
//
// The package also classifies resources into model.ContentKind values, first
// by file extension and then by the declared Content-Type.
package fetcher

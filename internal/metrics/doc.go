// Package metrics exposes crawl counters in the Prometheus format.
//
// A Recorder owns its registry, so several recorders (one per test, or one
// per process) never collide on metric names. It doubles as a crawler sink:
// plug it into a crawler.MultiSink and every emitted result is counted.
package metrics

// Package model defines the data structures shared across sitecrawl.
//
// This package contains the following main types:
//   - PageResult: One record per visited URL with its extracted metadata
//   - ContentKind: Classification of a fetched resource's media type
//   - CrawlTarget: A URL scheduled for fetching together with its depth
//   - CrawlRun: All results of one crawl run plus its outcome
//   - RunSummary: The terminal marker delivered to a result sink
//
// Models live in their own package so that the crawler, database and report
// packages can share them without import cycles. Every type here is
// serializable to JSON; the JSON field names of PageResult are part of the
// persisted-run format and must not change.
package model

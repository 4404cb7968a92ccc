// Package pipeline runs crawl runs through a sequence of steps.
//
// A run for one seed passes through a CrawlStep, which drives the spider
// and fills the run with results, and a SaveStep, which stores it. Steps
// share a *model.CrawlRun and record failures in it.
//
// BatchProcessor crawls several seeds concurrently, one fresh pipeline per
// seed, with the concurrency bounded by errgroup.
package pipeline

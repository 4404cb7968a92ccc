package model

import (
	"sort"
	"time"
)

// Outcome describes how a crawl run ended.
type Outcome string

const (
	// OutcomeCompleted means the frontier was exhausted.
	OutcomeCompleted Outcome = "completed"

	// OutcomeCancelled means the run was stopped from outside before the
	// frontier was exhausted. Results emitted before the stop are kept.
	OutcomeCancelled Outcome = "cancelled"

	// OutcomeInvalidSeed means the seed URL could not be normalized and no
	// fetch was attempted.
	OutcomeInvalidSeed Outcome = "invalid_seed"
)

// RunSummary is the terminal marker handed to a result sink after the last
// PageResult of a run.
type RunSummary struct {
	// Seed is the normalized seed URL, or the raw input if it was invalid.
	Seed string `json:"seed"`

	// Outcome tells how the run ended.
	Outcome Outcome `json:"outcome"`

	// Pages is the number of PageResults emitted.
	Pages int `json:"pages"`

	// Errors is the number of emitted results with ContentKindFetchError.
	Errors int `json:"errors"`

	// Skipped counts discovered links that were never scheduled
	// (invalid, excluded, already visited or beyond the depth limit).
	Skipped int `json:"skipped"`

	// StartedAt and FinishedAt bound the run.
	StartedAt  time.Time `json:"startedAt"`
	FinishedAt time.Time `json:"finishedAt"`
}

// Elapsed returns the wall-clock duration of the run.
func (s RunSummary) Elapsed() time.Duration {
	if s.FinishedAt.IsZero() || s.StartedAt.IsZero() {
		return 0
	}
	return s.FinishedAt.Sub(s.StartedAt)
}

// CrawlRun aggregates everything known about a single run. It is what the
// pipeline fills, the database stores and the report writers render.
type CrawlRun struct {
	// ID is the database identifier; zero until the run has been saved.
	ID int64 `json:"id,omitempty"`

	// Seed is the seed URL as given by the user.
	Seed string `json:"seed"`

	// MaxDepth is the depth limit the run was started with.
	MaxDepth int `json:"maxDepth"`

	// StartedAt and FinishedAt bound the run.
	StartedAt  time.Time `json:"startedAt"`
	FinishedAt time.Time `json:"finishedAt"`

	// Outcome is empty while the run is in progress.
	Outcome Outcome `json:"outcome,omitempty"`

	// Results holds one entry per visited URL in emission order.
	Results []PageResult `json:"results"`

	// Error holds a run-level failure message (invalid seed, cancellation,
	// storage failure). Per-URL failures live in Results instead.
	Error string `json:"error,omitempty"`
}

// NewCrawlRun creates an empty run for the given seed.
func NewCrawlRun(seed string, maxDepth int) *CrawlRun {
	return &CrawlRun{
		Seed:      seed,
		MaxDepth:  maxDepth,
		StartedAt: time.Now(),
		Results:   make([]PageResult, 0),
	}
}

// Add appends a result.
func (r *CrawlRun) Add(result PageResult) {
	r.Results = append(r.Results, result)
}

// Finish records the terminal summary.
func (r *CrawlRun) Finish(summary RunSummary) {
	r.Outcome = summary.Outcome
	if !summary.StartedAt.IsZero() {
		r.StartedAt = summary.StartedAt
	}
	r.FinishedAt = summary.FinishedAt
	if r.FinishedAt.IsZero() {
		r.FinishedAt = time.Now()
	}
}

// Count returns how many results have the given kind.
func (r *CrawlRun) Count(kind ContentKind) int {
	n := 0
	for _, res := range r.Results {
		if res.ContentKind == kind {
			n++
		}
	}
	return n
}

// CountByKind returns the number of results per content kind. Kinds with no
// results are present with a zero count.
func (r *CrawlRun) CountByKind() map[ContentKind]int {
	counts := make(map[ContentKind]int, len(AllContentKinds))
	for _, k := range AllContentKinds {
		counts[k] = 0
	}
	for _, res := range r.Results {
		counts[res.ContentKind]++
	}
	return counts
}

// ErrorCount returns the number of results that could not be fetched.
func (r *CrawlRun) ErrorCount() int {
	return r.Count(ContentKindFetchError)
}

// Sort orders results by depth, then URL. Emission order is not stable when
// the crawl runs with several workers; sorting gives reproducible exports.
func (r *CrawlRun) Sort() {
	sort.SliceStable(r.Results, func(i, j int) bool {
		if r.Results[i].Depth != r.Results[j].Depth {
			return r.Results[i].Depth < r.Results[j].Depth
		}
		return r.Results[i].URL < r.Results[j].URL
	})
}

// Lookup returns the result for url, if present.
func (r *CrawlRun) Lookup(url string) (PageResult, bool) {
	for _, res := range r.Results {
		if res.URL == url {
			return res, true
		}
	}
	return PageResult{}, false
}

// Elapsed returns the wall-clock duration of the run.
func (r *CrawlRun) Elapsed() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

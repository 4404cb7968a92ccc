package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/nao1215/sitecrawl/internal/config"
	"github.com/nao1215/sitecrawl/internal/crawler"
	"github.com/nao1215/sitecrawl/internal/database"
	"github.com/nao1215/sitecrawl/internal/fetcher"
	"github.com/nao1215/sitecrawl/internal/model"
	"github.com/nao1215/sitecrawl/internal/parser"
)

// saveTimeout bounds SaveStep, which runs on a context that is never
// cancelled.
const saveTimeout = 30 * time.Second

// CrawlStep crawls the run's seed and fills the run with the results.
//
// Global options come from the Config; per-site options from its
// SiteConfigs, looked up by the seed's host.
type CrawlStep struct {
	cfg *config.Config

	// httpClient overrides the client built from the Config. Tests use it.
	httpClient *http.Client

	// sinks receive every result in addition to the run itself.
	sinks []crawler.Sink

	onRetry fetcher.RetryHook
	logger  *slog.Logger
}

// CrawlStepOption configures a CrawlStep.
type CrawlStepOption func(*CrawlStep)

// WithCrawlHTTPClient sets the HTTP client used for every request.
func WithCrawlHTTPClient(hc *http.Client) CrawlStepOption {
	return func(s *CrawlStep) {
		s.httpClient = hc
	}
}

// WithCrawlSinks adds sinks that observe the crawl as it runs.
func WithCrawlSinks(sinks ...crawler.Sink) CrawlStepOption {
	return func(s *CrawlStep) {
		s.sinks = append(s.sinks, sinks...)
	}
}

// WithCrawlRetryHook registers a function observing every retry.
func WithCrawlRetryHook(hook fetcher.RetryHook) CrawlStepOption {
	return func(s *CrawlStep) {
		s.onRetry = hook
	}
}

// WithCrawlLogger sets a custom logger for the crawl step.
func WithCrawlLogger(logger *slog.Logger) CrawlStepOption {
	return func(s *CrawlStep) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewCrawlStep creates a crawl step. A nil cfg uses the defaults.
func NewCrawlStep(cfg *config.Config, opts ...CrawlStepOption) *CrawlStep {
	if cfg == nil {
		cfg = config.NewConfig()
	}
	s := &CrawlStep{
		cfg:    cfg,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name returns the step name.
func (s *CrawlStep) Name() string {
	return "crawl"
}

// Do crawls run.Seed. The run receives every result, the outcome and the
// timing even when the crawl is cancelled or the seed is invalid; those
// cases are returned as errors as well.
func (s *CrawlStep) Do(ctx context.Context, run *model.CrawlRun) error {
	site := s.siteConfig(run.Seed)

	depth := s.cfg.MaxDepth
	if site.Depth > 0 {
		depth = site.Depth
	}
	excluded := s.cfg.ExcludedDomains
	if len(site.ExcludedDomains) > 0 {
		excluded = site.ExcludedDomains
	}
	run.MaxDepth = depth

	fetchOpts := []fetcher.Option{
		fetcher.WithTimeout(s.cfg.RequestTimeout),
		fetcher.WithUserAgent(s.cfg.UserAgent),
		fetcher.WithMaxBodySize(s.cfg.MaxBodySize),
		fetcher.WithHeaders(site.Headers),
		fetcher.WithCookie(site.Cookie),
		fetcher.WithLogger(s.logger),
	}
	switch {
	case s.httpClient != nil:
		fetchOpts = append(fetchOpts, fetcher.WithHTTPClient(s.httpClient))
	case s.cfg.Proxy != "":
		hc, err := fetcher.NewProxyHTTPClient(s.cfg.RequestTimeout, s.cfg.Proxy)
		if err != nil {
			run.Error = err.Error()
			return fmt.Errorf("crawl %s: %w", run.Seed, err)
		}
		fetchOpts = append(fetchOpts, fetcher.WithHTTPClient(hc))
	}
	if s.onRetry != nil {
		fetchOpts = append(fetchOpts, fetcher.WithRetryHook(s.onRetry))
	}

	sources, err := parser.ParseLinkSources(s.cfg.LinkSources)
	if err != nil {
		run.Error = err.Error()
		return fmt.Errorf("crawl %s: %w", run.Seed, err)
	}

	spider := crawler.NewSpider(fetcher.New(fetchOpts...),
		crawler.WithMaxDepth(depth),
		crawler.WithRetry(s.cfg.RetryCount, s.cfg.RetryDelay),
		crawler.WithExcludedDomains(excluded),
		crawler.WithWorkers(s.cfg.Workers),
		crawler.WithMaxPages(s.cfg.MaxPages),
		crawler.WithSameHost(s.cfg.SameHost),
		crawler.WithLinkSources(sources),
		crawler.WithIgnorePatterns(site.IgnorePatterns),
		crawler.WithFollowPatterns(site.FollowPatterns),
		crawler.WithLogger(s.logger),
	)

	collect := crawler.NewCollectSink()
	sink := append(crawler.MultiSink{collect}, s.sinks...)

	summary, err := spider.Crawl(ctx, run.Seed, sink)

	run.Results = collect.Results()
	run.Finish(summary)
	if summary.Outcome != model.OutcomeInvalidSeed {
		run.Seed = summary.Seed
	}

	if err != nil {
		run.Error = err.Error()
		return fmt.Errorf("crawl %s: %w", run.Seed, err)
	}

	s.logger.Info("crawl finished",
		"seed", run.Seed,
		"pages", summary.Pages,
		"errors", summary.Errors,
		"elapsed", summary.Elapsed(),
	)
	return nil
}

// siteConfig returns the per-site settings for seed. An unparsable seed or
// a missing config file yields the zero value.
func (s *CrawlStep) siteConfig(seed string) config.SiteConfig {
	if s.cfg.SiteConfigs == nil {
		return config.SiteConfig{}
	}
	normalized, err := parser.NormalizeSeed(seed)
	if err != nil {
		return config.SiteConfig{}
	}
	return s.cfg.SiteConfigs.GetSiteConfig(parser.Host(normalized))
}

// SaveStep stores the run in the database.
//
// It also runs after cancellation, so an interrupted crawl keeps the
// results gathered so far. Runs with an invalid seed are not stored.
type SaveStep struct {
	db     *database.CrawlDB
	logger *slog.Logger
}

// SaveStepOption configures a SaveStep.
type SaveStepOption func(*SaveStep)

// WithSaveLogger sets a custom logger for the save step.
func WithSaveLogger(logger *slog.Logger) SaveStepOption {
	return func(s *SaveStep) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewSaveStep creates a save step. A nil db makes the step a no-op.
func NewSaveStep(db *database.CrawlDB, opts ...SaveStepOption) *SaveStep {
	s := &SaveStep{
		db:     db,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name returns the step name.
func (s *SaveStep) Name() string {
	return "save"
}

// RunsAfterCancel implements CancelTolerant.
func (s *SaveStep) RunsAfterCancel() bool {
	return true
}

// Do stores the run and sets its ID.
func (s *SaveStep) Do(ctx context.Context, run *model.CrawlRun) error {
	if s.db == nil {
		return nil
	}
	switch run.Outcome {
	case model.OutcomeInvalidSeed:
		s.logger.Debug("not saving run with invalid seed", "seed", run.Seed)
		return nil
	case "":
		s.logger.Debug("not saving run that never started", "seed", run.Seed)
		return nil
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), saveTimeout)
	defer cancel()

	id, err := s.db.SaveRun(ctx, run)
	if err != nil {
		return fmt.Errorf("save run: %w", err)
	}

	s.logger.Info("run saved", "seed", run.Seed, "id", id, "db", s.db.Path())
	return nil
}

// DefaultPipeline creates the standard pipeline: crawl, then save.
// db may be nil when results are not stored.
func DefaultPipeline(
	cfg *config.Config,
	db *database.CrawlDB,
	pipelineOpts []Option,
	crawlOpts ...CrawlStepOption,
) *Pipeline {
	p := New(pipelineOpts...)

	p.AddStep(NewCrawlStep(cfg, append([]CrawlStepOption{WithCrawlLogger(p.logger)}, crawlOpts...)...))
	p.AddStep(NewSaveStep(db, WithSaveLogger(p.logger)))

	return p
}

// IsCancelled reports whether err comes from a cancelled context.
func IsCancelled(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

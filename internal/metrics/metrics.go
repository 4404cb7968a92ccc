package metrics

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nao1215/sitecrawl/internal/model"
)

const namespace = "sitecrawl"

// Recorder counts crawl activity.
type Recorder struct {
	registry    *prometheus.Registry
	pages       *prometheus.CounterVec
	statuses    *prometheus.CounterVec
	fetchErrors prometheus.Counter
	retries     prometheus.Counter
	skipped     prometheus.Counter
	runs        *prometheus.CounterVec
	duration    prometheus.Histogram
}

// NewRecorder creates a Recorder with a fresh registry. Go runtime and
// process collectors are registered alongside the crawl counters.
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		pages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pages_total",
			Help:      "Number of page results emitted, by content kind.",
		}, []string{"kind"}),
		statuses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "responses_total",
			Help:      "Number of HTTP responses received, by status code.",
		}, []string{"code"}),
		fetchErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetch_errors_total",
			Help:      "Number of URLs that could not be fetched after every retry.",
		}),
		retries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "retries_total",
			Help:      "Number of fetch retries.",
		}),
		skipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "skipped_links_total",
			Help:      "Number of discovered links that were not scheduled.",
		}),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Number of finished crawl runs, by outcome.",
		}, []string{"outcome"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Wall-clock duration of crawl runs.",
			Buckets:   prometheus.ExponentialBuckets(0.5, 2, 12),
		}),
	}

	r.registry.MustRegister(
		r.pages, r.statuses, r.fetchErrors, r.retries, r.skipped, r.runs, r.duration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return r
}

// Registry returns the registry the counters live in.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Emit counts one page result.
func (r *Recorder) Emit(result model.PageResult) {
	r.pages.WithLabelValues(result.ContentKind.String()).Inc()
	if result.Failed() {
		r.fetchErrors.Inc()
		return
	}
	r.statuses.WithLabelValues(strconv.Itoa(result.StatusCode)).Inc()
}

// Done counts a finished run.
func (r *Recorder) Done(summary model.RunSummary) {
	r.runs.WithLabelValues(string(summary.Outcome)).Inc()
	r.skipped.Add(float64(summary.Skipped))
	if d := summary.Elapsed(); d > 0 {
		r.duration.Observe(d.Seconds())
	}
}

// ObserveRetry has the signature of fetcher.RetryHook.
func (r *Recorder) ObserveRetry(_ string, _ int, _ error) {
	r.retries.Inc()
}

// Handler returns the HTTP handler that serves the registry.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}

// Serve exposes /metrics on addr until ctx is cancelled.
func (r *Recorder) Serve(ctx context.Context, addr string, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", r.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	logger.Info("serving metrics", "addr", ln.Addr().String())

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("failed to shut down metrics server: %w", err)
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("metrics server stopped: %w", err)
	}
}

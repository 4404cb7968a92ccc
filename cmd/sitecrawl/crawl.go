package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/nao1215/sitecrawl/internal/config"
	"github.com/nao1215/sitecrawl/internal/crawler"
	"github.com/nao1215/sitecrawl/internal/database"
	sclog "github.com/nao1215/sitecrawl/internal/log"
	"github.com/nao1215/sitecrawl/internal/metrics"
	"github.com/nao1215/sitecrawl/internal/model"
	"github.com/nao1215/sitecrawl/internal/pipeline"
	"github.com/nao1215/sitecrawl/internal/report"
)

// dotenvFile is loaded before the environment is read, when present.
const dotenvFile = ".env"

// NewCrawlCmd creates the crawl command.
func NewCrawlCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "crawl <seed-url>...",
		Short: "Crawl a site from one or more seed URLs",
		Long: `Crawl walks a site breadth-first from each seed URL and reports every URL
it visits, up to the maximum depth.

A URL that cannot be fetched is retried for its metadata only; its links
are not followed. Results are stored in the local database unless
--no-save is given, and written as a report in the selected format.

Several seeds are crawled as independent runs, --batch at a time.

Examples:
  # Crawl a site two levels deep
  sitecrawl crawl -d 2 https://example.com

  # Stay on the seed host and write a spreadsheet
  sitecrawl crawl --same-host -f xlsx -o inventory.xlsx https://example.com

  # Print results as they arrive and skip social networks
  sitecrawl crawl --stream -x facebook.com -x twitter.com https://example.com

  # Crawl several sites, two at a time
  sitecrawl crawl -b 2 https://a.example https://b.example https://c.example

Configuration file (.sitecrawl) example:
  crawl:
    maxDepth: 2
  sites:
    example.com:
      cookie: "session_id=abc123"
      ignorePatterns:
        - "/admin/*"`,
		Args: cobra.ArbitraryArgs,
		RunE: runCrawlCmd,
	}

	// Crawl behavior flags
	cmd.Flags().IntP("depth", "d", config.DefaultMaxDepth,
		"Maximum link depth followed from the seed")
	cmd.Flags().DurationP("timeout", "t", config.DefaultRequestTimeout,
		"Timeout for each request")
	cmd.Flags().IntP("retries", "r", config.DefaultRetryCount,
		"Metadata fetch attempts for a URL whose first fetch failed")
	cmd.Flags().Duration("retry-delay", config.DefaultRetryDelay,
		"Pause between retries")
	cmd.Flags().StringSliceP("exclude", "x", nil,
		"Domain whose links are not followed (repeatable)")
	cmd.Flags().IntP("workers", "w", config.DefaultWorkers,
		"Concurrent fetches within one crawl")
	cmd.Flags().Int("max-pages", 0,
		"Stop a crawl after this many results (0 = unlimited)")
	cmd.Flags().Bool("same-host", false,
		"Only follow links on the seed's host")
	cmd.Flags().StringSlice("links", nil,
		"Link sources to follow: a, img, css, js (default all)")
	cmd.Flags().String("user-agent", config.DefaultUserAgent,
		"User-Agent header sent with every request")
	cmd.Flags().String("proxy", "",
		"Proxy URL for every request (http, https, socks5 or socks5h)")

	// Batch flags
	cmd.Flags().IntP("batch", "b", config.DefaultBatchSize,
		"Number of seeds crawled concurrently")

	// Configuration file
	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .sitecrawl in current or home directory)")

	// Report flags
	cmd.Flags().StringP("format", "f", config.DefaultFormat,
		"Report format: "+strings.Join(config.Formats, ", "))
	cmd.Flags().StringP("output", "o", "",
		"Write report to file (creates directories if needed)")
	cmd.Flags().String("columns", "",
		"Comma-separated report columns (default: status,url,kind,title,h1,meta,depth)")
	cmd.Flags().Bool("show-errors", false,
		"Add the fetch error column to the text report")
	cmd.Flags().Bool("stream", false,
		"Print each result as soon as it is fetched")
	cmd.Flags().Bool("pretty", false,
		"Indent JSON reports")
	cmd.Flags().Bool("tee", false,
		"Also print the text report to stdout when writing to --output")

	// Storage and metrics
	cmd.Flags().Bool("no-save", false,
		"Do not store the runs in the database")
	cmd.Flags().String("db-dir", "",
		"Database directory (default: XDG data directory)")
	cmd.Flags().String("metrics-addr", "",
		"Serve Prometheus metrics at this address while crawling (e.g. 127.0.0.1:9090)")

	return cmd
}

// runCrawlCmd executes the crawl command.
func runCrawlCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, args)
	if err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	opts, err := reportOptions(cmd)
	if err != nil {
		return err
	}

	logger, err := newLogger(cmd, cfg.Verbose)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-sigCh:
			logger.Warn("received shutdown signal, cancelling...")
			cancel()
		case <-ctx.Done():
		}
	}()

	return runCrawl(ctx, cfg, cmd.OutOrStdout(), logger, opts...)
}

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, err = cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return false
		}
	}
	return verbose
}

// newLogger builds the logger selected by --log-format. Logs go to stderr
// so that reports written to stdout stay machine-readable.
func newLogger(cmd *cobra.Command, verbose bool) (*slog.Logger, error) {
	format, err := cmd.Flags().GetString("log-format")
	if err != nil {
		format = "text"
	}
	switch format {
	case "text":
		return sclog.NewLogger(cmd.ErrOrStderr(), verbose), nil
	case "json":
		return sclog.NewJSONLogger(cmd.ErrOrStderr(), verbose), nil
	default:
		return nil, fmt.Errorf("unknown log format %q: use text or json", format)
	}
}

// buildConfig creates a Config from defaults, the config file, the
// environment and the flags the user set, in that order.
func buildConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg := config.NewConfig()
	flags := cmd.Flags()

	var err error
	cfg.ConfigFilePath, err = flags.GetString("config")
	if err != nil {
		return nil, err
	}

	// An explicit path that does not exist is an error; a missing default
	// file is not.
	configPath := config.FindConfigFile(cfg.ConfigFilePath)
	switch {
	case configPath != "":
		cfg.SiteConfigs, err = config.LoadConfigFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
		cfg.Apply(cfg.SiteConfigs.Crawl)
	case cfg.ConfigFilePath != "":
		return nil, fmt.Errorf("configuration file not found: %s", cfg.ConfigFilePath)
	default:
		cfg.SiteConfigs = &config.File{
			Sites: make(map[string]config.SiteConfig),
		}
	}

	env, err := config.LoadEnv(dotenvFile)
	if err != nil {
		return nil, err
	}
	cfg.Apply(env)

	if err := applyFlags(flags, cfg); err != nil {
		return nil, err
	}

	noSave, err := flags.GetBool("no-save")
	if err != nil {
		return nil, err
	}
	cfg.SaveToDB = !noSave

	cfg.Stream, err = flags.GetBool("stream")
	if err != nil {
		return nil, err
	}

	cfg.OutputFile, err = flags.GetString("output")
	if err != nil {
		return nil, err
	}

	cfg.Tee, err = flags.GetBool("tee")
	if err != nil {
		return nil, err
	}

	cfg.Verbose = getVerboseFlag(cmd)
	cfg.Seeds = args

	return cfg, nil
}

// applyFlags copies every flag the user set into cfg. Flags left at their
// default do not override the config file or the environment.
func applyFlags(flags *pflag.FlagSet, cfg *config.Config) error {
	setters := map[string]func() error{
		"depth": func() (err error) {
			cfg.MaxDepth, err = flags.GetInt("depth")
			return err
		},
		"timeout": func() (err error) {
			cfg.RequestTimeout, err = flags.GetDuration("timeout")
			return err
		},
		"retries": func() (err error) {
			cfg.RetryCount, err = flags.GetInt("retries")
			return err
		},
		"retry-delay": func() (err error) {
			cfg.RetryDelay, err = flags.GetDuration("retry-delay")
			return err
		},
		"exclude": func() (err error) {
			cfg.ExcludedDomains, err = flags.GetStringSlice("exclude")
			return err
		},
		"workers": func() (err error) {
			cfg.Workers, err = flags.GetInt("workers")
			return err
		},
		"max-pages": func() (err error) {
			cfg.MaxPages, err = flags.GetInt("max-pages")
			return err
		},
		"same-host": func() (err error) {
			cfg.SameHost, err = flags.GetBool("same-host")
			return err
		},
		"links": func() (err error) {
			cfg.LinkSources, err = flags.GetStringSlice("links")
			return err
		},
		"user-agent": func() (err error) {
			cfg.UserAgent, err = flags.GetString("user-agent")
			return err
		},
		"proxy": func() (err error) {
			cfg.Proxy, err = flags.GetString("proxy")
			return err
		},
		"batch": func() (err error) {
			cfg.BatchSize, err = flags.GetInt("batch")
			return err
		},
		"format": func() (err error) {
			cfg.Format, err = flags.GetString("format")
			return err
		},
		"db-dir": func() (err error) {
			cfg.DBDir, err = flags.GetString("db-dir")
			return err
		},
		"metrics-addr": func() (err error) {
			cfg.MetricsAddr, err = flags.GetString("metrics-addr")
			return err
		},
	}

	for name, set := range setters {
		if !flags.Changed(name) {
			continue
		}
		if err := set(); err != nil {
			return err
		}
	}
	return nil
}

// reportOptions builds the report writer options from the flags.
func reportOptions(cmd *cobra.Command) ([]report.Option, error) {
	var opts []report.Option

	columns, err := cmd.Flags().GetString("columns")
	if err != nil {
		return nil, err
	}
	if columns != "" {
		cols, err := report.ParseColumns(columns)
		if err != nil {
			return nil, err
		}
		opts = append(opts, report.WithColumns(cols...))
	}

	showErrors, err := cmd.Flags().GetBool("show-errors")
	if err != nil {
		return nil, err
	}
	opts = append(opts, report.WithErrors(showErrors))

	pretty, err := cmd.Flags().GetBool("pretty")
	if err != nil {
		return nil, err
	}
	if pretty {
		opts = append(opts, report.WithPrettyPrint())
	}

	return opts, nil
}

// runCrawl crawls every seed and writes one report per run.
func runCrawl(ctx context.Context, cfg *config.Config, out io.Writer, logger *slog.Logger, opts ...report.Option) error {
	logger.Info("starting crawl",
		"seeds", cfg.Seeds,
		"maxDepth", cfg.MaxDepth,
		"batchSize", cfg.BatchSize,
		"saveToDB", cfg.SaveToDB,
	)

	var db *database.CrawlDB
	if cfg.SaveToDB {
		var err error
		db, err = database.Open(cfg.DBDir, database.DefaultOptions())
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer db.Close()
		logger.Info("database opened", "path", db.Path())
	}

	recorder := metrics.NewRecorder()
	if cfg.MetricsAddr != "" {
		go func() {
			if err := recorder.Serve(ctx, cfg.MetricsAddr, logger); err != nil {
				logger.Error("metrics server failed", "error", err)
			}
		}()
	}

	sinks := []crawler.Sink{recorder}
	if cfg.Stream {
		sinks = append(sinks, report.NewStreamPrinter(out))
	}

	bp := pipeline.NewBatchProcessor(
		func() *pipeline.Pipeline {
			return pipeline.DefaultPipeline(cfg, db,
				[]pipeline.Option{
					pipeline.WithLogger(logger),
					pipeline.WithContinueOnError(true),
				},
				pipeline.WithCrawlSinks(sinks...),
				pipeline.WithCrawlRetryHook(recorder.ObserveRetry),
			)
		},
		pipeline.WithConcurrency(cfg.BatchSize),
		pipeline.WithBatchLogger(logger),
	)

	runs, batchErr := bp.ProcessBatch(ctx, cfg.Seeds)

	var errs []error
	for i, run := range runs {
		if run == nil {
			continue
		}
		run.Sort()

		path := outputPath(cfg.OutputFile, i, len(cfg.Seeds))
		if err := outputReport(cfg.Format, path, out, cfg.Tee, run, opts...); err != nil {
			errs = append(errs, fmt.Errorf("report for %s: %w", run.Seed, err))
		}
		if run.Error != "" {
			errs = append(errs, fmt.Errorf("%s: %s", run.Seed, run.Error))
		}
	}
	if batchErr != nil {
		errs = append(errs, batchErr)
	}

	return errors.Join(errs...)
}

// outputPath returns the report file of the run at index. With several
// seeds every run gets its own file: report.csv becomes report-1.csv,
// report-2.csv and so on. An empty base means stdout.
func outputPath(base string, index, total int) string {
	if base == "" || total <= 1 {
		return base
	}
	ext := filepath.Ext(base)
	return fmt.Sprintf("%s-%d%s", strings.TrimSuffix(base, ext), index+1, ext)
}

// outputReport writes run in format to path, or to stdout when path is
// empty.
func outputReport(format, path string, stdout io.Writer, tee bool, run *model.CrawlRun, opts ...report.Option) error {
	output := stdout
	if path != "" {
		dir := filepath.Dir(path)
		if dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0750); err != nil {
				return fmt.Errorf("failed to create output directory: %w", err)
			}
		}

		// Reports may contain URLs with session tokens.
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600) //nolint:gosec // User-provided output path is intentional
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		output = f
	}

	writer, err := report.NewWriter(format, output, opts...)
	if err != nil {
		return err
	}
	if tee && output != stdout {
		writer = report.NewMultiWriter(writer, report.NewSimpleWriter(stdout, opts...))
	}
	_, err = writer.Write(run)
	return err
}

package config

import (
	"fmt"
	"path/filepath"
	"slices"
	"time"

	"github.com/adrg/xdg"
	"github.com/nao1215/sitecrawl/internal/fetcher"
	"github.com/nao1215/sitecrawl/internal/parser"
)

// Default configuration values.
const (
	// AppName is the application name used for XDG directory paths.
	AppName = "sitecrawl"

	// DefaultMaxDepth is the number of link hops followed from the seed.
	// Three levels cover the navigation of most small and medium sites
	// without wandering across the whole web through external links.
	DefaultMaxDepth = 3

	// DefaultRequestTimeout bounds every HTTP request, body included.
	DefaultRequestTimeout = 10 * time.Second

	// DefaultRetryCount is the number of metadata fetch attempts made for a
	// URL whose first fetch failed.
	DefaultRetryCount = 3

	// DefaultRetryDelay is the fixed pause between those attempts.
	DefaultRetryDelay = 5 * time.Second

	// DefaultWorkers keeps one fetch in flight per crawl.
	DefaultWorkers = 1

	// DefaultBatchSize is the number of seeds crawled concurrently when
	// several are given.
	DefaultBatchSize = 4

	// DefaultUserAgent identifies sitecrawl in HTTP requests.
	DefaultUserAgent = "sitecrawl/1.0 (+https://github.com/nao1215/sitecrawl)"

	// DefaultMaxBodySize limits the response body read per request.
	DefaultMaxBodySize = 5 * 1024 * 1024 // 5MB

	// DefaultFormat is the output format for the terminal.
	DefaultFormat = "text"

	// DatabaseFileName is the SQLite file created in DBDir.
	DatabaseFileName = "sitecrawl.db"
)

// Formats lists the accepted values of Config.Format.
var Formats = []string{"text", "json", "csv", "xlsx", "markdown"}

// Config holds all configuration options for sitecrawl.
// It is built from defaults, then overlaid by the config file, the
// environment and finally the command-line flags.
type Config struct {
	// MaxDepth is the deepest link level crawled. The seed is level 0.
	MaxDepth int

	// RequestTimeout bounds a single HTTP request.
	RequestTimeout time.Duration

	// RetryCount is the number of metadata fetch attempts after a failed
	// link-discovery fetch.
	RetryCount int

	// RetryDelay is the fixed pause between retries.
	RetryDelay time.Duration

	// ExcludedDomains are hosts whose links are never followed. Subdomains
	// are excluded too.
	ExcludedDomains []string

	// Workers is the number of concurrent fetches within one crawl.
	Workers int

	// BatchSize is the number of seeds crawled concurrently.
	BatchSize int

	// MaxPages stops a crawl after this many results. 0 means no limit.
	MaxPages int

	// SameHost restricts a crawl to the seed's host.
	SameHost bool

	// LinkSources names the elements whose links are followed: a, img,
	// css, js. Empty means all of them.
	LinkSources []string

	// UserAgent is the User-Agent header sent with every request.
	UserAgent string

	// MaxBodySize is the maximum response body size in bytes to read.
	MaxBodySize int64

	// Proxy routes every request through an http, https or socks5 proxy,
	// e.g. "socks5://127.0.0.1:9050". Empty means a direct connection.
	Proxy string

	// Format selects the report writer. See Formats.
	Format string

	// OutputFile is where the report is written. Empty means stdout.
	OutputFile string

	// Stream prints each result as soon as it is emitted.
	Stream bool

	// Tee prints the text report to stdout as well when OutputFile is set.
	Tee bool

	// SaveToDB stores every run in the SQLite database.
	SaveToDB bool

	// DBDir is the directory holding the database.
	// Defaults to XDG data directory (~/.local/share/sitecrawl on Linux).
	DBDir string

	// MetricsAddr, when set, serves Prometheus metrics at /metrics.
	MetricsAddr string

	// Verbose enables detailed log output using slog.LevelDebug.
	// When false, only warnings and errors are logged.
	Verbose bool

	// ConfigFilePath is the path to the configuration file.
	// If empty, the tool searches for .sitecrawl in the current directory
	// and then in the user's home directory.
	ConfigFilePath string

	// SiteConfigs holds per-host settings loaded from the config file.
	SiteConfigs *File

	// Seeds are the start URLs, one run each.
	Seeds []string
}

// NewConfig creates a new Config with default values.
func NewConfig() *Config {
	return &Config{
		MaxDepth:       DefaultMaxDepth,
		RequestTimeout: DefaultRequestTimeout,
		RetryCount:     DefaultRetryCount,
		RetryDelay:     DefaultRetryDelay,
		Workers:        DefaultWorkers,
		BatchSize:      DefaultBatchSize,
		UserAgent:      DefaultUserAgent,
		MaxBodySize:    DefaultMaxBodySize,
		Format:         DefaultFormat,
		SaveToDB:       true,
		DBDir:          XDGDataDir(),
	}
}

// XDGDataDir returns the XDG data directory for sitecrawl.
// On Linux: ~/.local/share/sitecrawl
// On macOS: ~/Library/Application Support/sitecrawl
// On Windows: %LOCALAPPDATA%\sitecrawl
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for sitecrawl.
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// DatabasePath returns the full path of the SQLite database file.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.DBDir, DatabaseFileName)
}

// Validate checks if the configuration is valid.
// It returns the first problem found as one of the sentinel errors.
func (c *Config) Validate() error {
	if len(c.Seeds) == 0 {
		return ErrNoSeed
	}
	if c.MaxDepth < 1 {
		return ErrInvalidMaxDepth
	}
	if c.RequestTimeout <= 0 {
		return ErrInvalidTimeout
	}
	if c.RetryCount < 1 {
		return ErrInvalidRetryCount
	}
	if c.RetryDelay < 0 {
		return ErrInvalidRetryDelay
	}
	if c.Workers < 1 {
		return ErrInvalidWorkers
	}
	if c.BatchSize < 1 {
		return ErrInvalidBatchSize
	}
	if c.MaxPages < 0 {
		return ErrInvalidMaxPages
	}
	if c.MaxBodySize < 0 {
		return ErrInvalidMaxBodySize
	}
	if _, err := parser.ParseLinkSources(c.LinkSources); err != nil {
		return fmt.Errorf("invalid link sources: %w", err)
	}
	if c.Proxy != "" {
		if _, err := fetcher.ParseProxy(c.Proxy); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidProxy, err)
		}
	}
	if !slices.Contains(Formats, c.Format) {
		return ErrUnknownFormat
	}
	if c.Format == "xlsx" && c.OutputFile == "" {
		return ErrBinaryFormatNeedsFile
	}
	return nil
}

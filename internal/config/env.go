package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// EnvPrefix prefixes every environment variable read by LoadEnv,
// e.g. SITECRAWL_MAX_DEPTH.
const EnvPrefix = "SITECRAWL"

// Overrides is a partial configuration. Nil fields leave the current value
// untouched. The same struct is read from the "crawl" block of the config
// file and from the environment.
type Overrides struct {
	MaxDepth        *int           `yaml:"maxDepth,omitempty" envconfig:"MAX_DEPTH"`
	RequestTimeout  *time.Duration `yaml:"requestTimeout,omitempty" envconfig:"REQUEST_TIMEOUT"`
	RetryCount      *int           `yaml:"retryCount,omitempty" envconfig:"RETRY_COUNT"`
	RetryDelay      *time.Duration `yaml:"retryDelay,omitempty" envconfig:"RETRY_DELAY"`
	ExcludedDomains []string       `yaml:"excludedDomains,omitempty" envconfig:"EXCLUDED_DOMAINS"`
	Workers         *int           `yaml:"workers,omitempty" envconfig:"WORKERS"`
	BatchSize       *int           `yaml:"batchSize,omitempty" envconfig:"BATCH_SIZE"`
	MaxPages        *int           `yaml:"maxPages,omitempty" envconfig:"MAX_PAGES"`
	SameHost        *bool          `yaml:"sameHost,omitempty" envconfig:"SAME_HOST"`
	LinkSources     []string       `yaml:"linkSources,omitempty" envconfig:"LINK_SOURCES"`
	UserAgent       *string        `yaml:"userAgent,omitempty" envconfig:"USER_AGENT"`
	MaxBodySize     *int64         `yaml:"maxBodySize,omitempty" envconfig:"MAX_BODY_SIZE"`
	Proxy           *string        `yaml:"proxy,omitempty" envconfig:"PROXY"`
	Format          *string        `yaml:"format,omitempty" envconfig:"FORMAT"`
	DBDir           *string        `yaml:"dbDir,omitempty" envconfig:"DB_DIR"`
	MetricsAddr     *string        `yaml:"metricsAddr,omitempty" envconfig:"METRICS_ADDR"`
}

// LoadEnv reads SITECRAWL_* variables. When dotenvPath names an existing
// file, its variables are loaded into the process environment first;
// variables that are already set keep their value.
func LoadEnv(dotenvPath string) (Overrides, error) {
	var o Overrides

	if dotenvPath != "" {
		if err := godotenv.Load(dotenvPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return o, fmt.Errorf("failed to load %s: %w", dotenvPath, err)
		}
	}

	if err := envconfig.Process(EnvPrefix, &o); err != nil {
		return o, fmt.Errorf("failed to read environment: %w", err)
	}
	return o, nil
}

// Apply copies every non-nil override into c.
func (c *Config) Apply(o Overrides) {
	if o.MaxDepth != nil {
		c.MaxDepth = *o.MaxDepth
	}
	if o.RequestTimeout != nil {
		c.RequestTimeout = *o.RequestTimeout
	}
	if o.RetryCount != nil {
		c.RetryCount = *o.RetryCount
	}
	if o.RetryDelay != nil {
		c.RetryDelay = *o.RetryDelay
	}
	if o.ExcludedDomains != nil {
		c.ExcludedDomains = o.ExcludedDomains
	}
	if o.Workers != nil {
		c.Workers = *o.Workers
	}
	if o.BatchSize != nil {
		c.BatchSize = *o.BatchSize
	}
	if o.MaxPages != nil {
		c.MaxPages = *o.MaxPages
	}
	if o.SameHost != nil {
		c.SameHost = *o.SameHost
	}
	if o.LinkSources != nil {
		c.LinkSources = o.LinkSources
	}
	if o.UserAgent != nil {
		c.UserAgent = *o.UserAgent
	}
	if o.MaxBodySize != nil {
		c.MaxBodySize = *o.MaxBodySize
	}
	if o.Proxy != nil {
		c.Proxy = *o.Proxy
	}
	if o.Format != nil {
		c.Format = *o.Format
	}
	if o.DBDir != nil {
		c.DBDir = *o.DBDir
	}
	if o.MetricsAddr != nil {
		c.MetricsAddr = *o.MetricsAddr
	}
}

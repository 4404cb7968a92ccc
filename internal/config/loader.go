package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the default configuration file name.
const DefaultConfigFile = ".sitecrawl"

// xdgConfigFile is the file name looked up inside XDGConfigDir.
const xdgConfigFile = "config.yaml"

var (
	// ErrConfigNotFound is returned when the configuration file does not exist.
	ErrConfigNotFound = errors.New("configuration file not found")

	// ErrInvalidSiteConfig is returned for a site entry that cannot be used.
	ErrInvalidSiteConfig = errors.New("invalid site configuration")
)

// LoadConfigFile reads and checks a .sitecrawl YAML file. Unknown keys are
// rejected so that a misspelled option does not go unnoticed. Host keys of
// the sites block are lower-cased to match normalized URLs. An empty file is
// an empty configuration.
//
// A missing file yields ErrConfigNotFound; whether that is a problem is up
// to the caller.
func LoadConfigFile(path string) (*File, error) {
	data, err := os.ReadFile(path) //nolint:gosec // User-provided config path is intentional
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrConfigNotFound
		}
		return nil, err
	}

	var cf File
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cf); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	sites := make(map[string]SiteConfig, len(cf.Sites))
	for host, site := range cf.Sites {
		if err := checkSite(site); err != nil {
			return nil, fmt.Errorf("%w %q: %w", ErrInvalidSiteConfig, host, err)
		}
		sites[strings.ToLower(host)] = site
	}
	cf.Sites = sites

	if err := checkSite(cf.Defaults); err != nil {
		return nil, fmt.Errorf("%w defaults: %w", ErrInvalidSiteConfig, err)
	}

	return &cf, nil
}

func checkSite(site SiteConfig) error {
	if site.Depth < 0 {
		return errors.New("depth must not be negative")
	}
	for _, pattern := range slices.Concat(site.IgnorePatterns, site.FollowPatterns) {
		if _, err := filepath.Match(pattern, ""); err != nil {
			return fmt.Errorf("pattern %q: %w", pattern, err)
		}
	}
	return nil
}

// FindConfigFile returns the configuration file to load, or "" if there is
// none. An explicit configPath is used only if it exists. Otherwise the
// lookup order is:
//  1. .sitecrawl in the current directory
//  2. config.yaml in the XDG config directory
//  3. .sitecrawl in the user's home directory
func FindConfigFile(configPath string) string {
	if configPath != "" {
		if fileExists(configPath) {
			return configPath
		}
		return ""
	}

	candidates := make([]string, 0, 3)
	if cwd, err := os.Getwd(); err == nil {
		candidates = append(candidates, filepath.Join(cwd, DefaultConfigFile))
	}
	candidates = append(candidates, filepath.Join(XDGConfigDir(), xdgConfigFile))
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, DefaultConfigFile))
	}

	for _, path := range candidates {
		if fileExists(path) {
			return path
		}
	}
	return ""
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// Package config provides the configuration of sitecrawl: defaults,
// validation, the .sitecrawl YAML file with its per-host sections, and the
// SITECRAWL_* environment overlay.
package config

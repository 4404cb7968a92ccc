package config

import "errors"

// Configuration validation errors returned by Config.Validate.
var (
	// ErrNoSeed is returned when no start URL was given.
	ErrNoSeed = errors.New("no seed url specified")

	// ErrInvalidMaxDepth is returned when the depth limit is below 1.
	ErrInvalidMaxDepth = errors.New("invalid max depth: must be at least 1")

	// ErrInvalidTimeout is returned when the request timeout is not positive.
	ErrInvalidTimeout = errors.New("invalid timeout: must be positive")

	// ErrInvalidRetryCount is returned when the retry count is below 1.
	ErrInvalidRetryCount = errors.New("invalid retry count: must be at least 1")

	// ErrInvalidRetryDelay is returned when the retry delay is negative.
	// Use 0 for no pause between retries.
	ErrInvalidRetryDelay = errors.New("invalid retry delay: must be non-negative")

	// ErrInvalidWorkers is returned when the worker count is below 1.
	ErrInvalidWorkers = errors.New("invalid workers: must be at least 1")

	// ErrInvalidBatchSize is returned when the batch size is not positive.
	ErrInvalidBatchSize = errors.New("invalid batch size: must be positive")

	// ErrInvalidMaxPages is returned when the page limit is negative.
	// Use 0 for no limit.
	ErrInvalidMaxPages = errors.New("invalid max pages: must be non-negative")

	// ErrInvalidMaxBodySize is returned when the max body size is negative.
	ErrInvalidMaxBodySize = errors.New("invalid max body size: must be non-negative")

	// ErrInvalidProxy is returned for a proxy URL that cannot be used.
	ErrInvalidProxy = errors.New("invalid proxy")

	// ErrUnknownFormat is returned for an output format not in Formats.
	ErrUnknownFormat = errors.New("unknown output format: use text, json, csv, xlsx or markdown")

	// ErrBinaryFormatNeedsFile is returned when xlsx output would go to a
	// terminal.
	ErrBinaryFormatNeedsFile = errors.New("xlsx output requires --output")
)

package config

import "errors"

// Configuration errors returned by Validate.
var (
	// ErrNoSeed is returned when no seed URL is given.
	ErrNoSeed = errors.New("no seed URL specified")

	// ErrInvalidSeedURL is returned for a seed that is not an absolute
	// http(s) URL.
	ErrInvalidSeedURL = errors.New("invalid seed URL: must be an absolute http or https URL")

	// ErrInvalidMaxPages is returned when the page budget is not positive.
	ErrInvalidMaxPages = errors.New("invalid max pages: must be positive")

	ErrInvalidTimeout     = errors.New("invalid timeout: must be positive")
	ErrInvalidWorkers     = errors.New("invalid workers: must be positive")
	ErrInvalidBatchSize   = errors.New("invalid batch size: must be positive")
	ErrInvalidCrawlDelay  = errors.New("invalid crawl delay: must be non-negative")
	ErrInvalidMaxBodySize = errors.New("invalid max body size: must be non-negative")

	// ErrInvalidFormat is returned for an unknown report format.
	ErrInvalidFormat = errors.New("invalid report format: must be json, yaml or markdown")

	// ErrConflictingProxy is returned when both --tor and --proxy are set.
	ErrConflictingProxy = errors.New("conflicting proxy settings: --tor and --proxy cannot be used together")

	// ErrConfigNotFound is returned when the configuration file does not exist.
	ErrConfigNotFound = errors.New("configuration file not found")
)

package crawler

import "errors"

var (
	// ErrInvalidSeedURL is returned by NewSpider for a seed that is not an
	// absolute http or https URL.
	ErrInvalidSeedURL = errors.New("invalid seed URL")

	// ErrInvalidMaxPages is returned by NewSpider for a non-positive budget.
	ErrInvalidMaxPages = errors.New("max pages must be positive")

	// ErrInvalidPattern is returned for an ignore or follow pattern that is
	// not a valid glob.
	ErrInvalidPattern = errors.New("invalid URL pattern")

	// ErrSessionUsed is returned by a second call to Spider.Crawl.
	ErrSessionUsed = errors.New("crawl session already used")

	// errNoResponse stands in for the cause when a Fetcher returns neither a
	// response nor an error.
	errNoResponse = errors.New("fetcher returned no response")
)

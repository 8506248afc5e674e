// Package database keeps the history of crawl runs in SQLite
// (modernc.org/sqlite, no cgo).
//
// The CrawlDB stores:
//   - one crawl_runs row per crawl, with the seed, timings, headline
//     counters and the full result bundle as JSON
//   - one crawl_pages row per fetched page, with its word count, content
//     hash and body digest
//
// CompareRuns and CompareLatest use the page rows to report pages that
// appeared, disappeared or changed between two crawls of a domain, without
// decoding either bundle.
//
// Design decision: the database is a single file under the XDG data
// directory, opened in WAL mode with one connection. Timestamps are stored
// as fixed-width UTC strings so that ORDER BY on them is chronological, and
// foreign keys are enabled per connection so that deleting a run removes
// its pages.
package database

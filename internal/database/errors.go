package database

import "errors"

var (
	// ErrDatabaseNotFound is returned by Open when the database file is
	// missing and creation was not requested.
	ErrDatabaseNotFound = errors.New("database not found")

	// ErrNoResult is returned when a run without a result is saved.
	ErrNoResult = errors.New("run has no result")

	// ErrRunNotFound is returned when a referenced run does not exist.
	ErrRunNotFound = errors.New("crawl run not found")

	// ErrNotEnoughRuns is returned when a comparison needs more stored runs.
	ErrNotEnoughRuns = errors.New("at least two crawl runs are required")
)

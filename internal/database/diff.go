package database

import (
	"context"
	"fmt"
	"time"
)

// RunDiff describes what changed between two runs of the same domain.
type RunDiff struct {
	Previous RunRecord
	Current  RunRecord

	// Added lists pages crawled only in the current run.
	Added []string

	// Removed lists pages crawled only in the previous run.
	Removed []string

	// Changed lists pages present in both runs whose visible text differs.
	Changed []string

	// Unchanged counts pages present in both runs with identical text.
	Unchanged int
}

// WordCountDelta is the change in total word count.
func (d *RunDiff) WordCountDelta() int {
	return d.Current.TotalWordCount - d.Previous.TotalWordCount
}

// PageCountDelta is the change in crawled pages.
func (d *RunDiff) PageCountDelta() int {
	return d.Current.PagesCrawled - d.Previous.PagesCrawled
}

// HasChanges reports whether any page was added, removed or changed.
func (d *RunDiff) HasChanges() bool {
	return len(d.Added)+len(d.Removed)+len(d.Changed) > 0
}

// CompareRuns diffs the pages of two stored runs.
func (cdb *CrawlDB) CompareRuns(ctx context.Context, previousID, currentID int64) (*RunDiff, error) {
	previous, err := cdb.getRun(ctx, previousID)
	if err != nil {
		return nil, err
	}
	current, err := cdb.getRun(ctx, currentID)
	if err != nil {
		return nil, err
	}

	prevPages, err := cdb.GetPages(ctx, previousID)
	if err != nil {
		return nil, err
	}
	currPages, err := cdb.GetPages(ctx, currentID)
	if err != nil {
		return nil, err
	}

	diff := DiffPages(prevPages, currPages)
	diff.Previous = *previous
	diff.Current = *current
	return diff, nil
}

// CompareLatest diffs the newest run of domain against an older one. With
// a zero since, the older run is the one right before the newest.
// Otherwise it is the first run started at or after since.
func (cdb *CrawlDB) CompareLatest(ctx context.Context, domain string, since time.Time) (*RunDiff, error) {
	runs, err := cdb.ListRuns(ctx, domain)
	if err != nil {
		return nil, err
	}
	if len(runs) < 2 {
		return nil, fmt.Errorf("%w for %s (found %d)", ErrNotEnoughRuns, domain, len(runs))
	}

	current := runs[0]
	previous := runs[1]
	if !since.IsZero() {
		// runs is newest first, so the last match is the earliest.
		found := false
		for _, r := range runs[1:] {
			if !r.StartedAt.Before(since) {
				previous = r
				found = true
			}
		}
		if !found {
			return nil, fmt.Errorf("%w: no run of %s since %s", ErrRunNotFound, domain, since.Format(time.DateOnly))
		}
	}

	return cdb.CompareRuns(ctx, previous.ID, current.ID)
}

// DiffPages compares two page lists by URL and content hash. Result lists
// follow the order of the input lists.
func DiffPages(previous, current []PageSnapshot) *RunDiff {
	prev := make(map[string]string, len(previous))
	for _, p := range previous {
		prev[p.URL] = p.ContentHash
	}
	curr := make(map[string]struct{}, len(current))

	diff := &RunDiff{}
	for _, p := range current {
		curr[p.URL] = struct{}{}
		hash, ok := prev[p.URL]
		switch {
		case !ok:
			diff.Added = append(diff.Added, p.URL)
		case hash != p.ContentHash:
			diff.Changed = append(diff.Changed, p.URL)
		default:
			diff.Unchanged++
		}
	}
	for _, p := range previous {
		if _, ok := curr[p.URL]; !ok {
			diff.Removed = append(diff.Removed, p.URL)
		}
	}
	return diff
}

func (cdb *CrawlDB) getRun(ctx context.Context, id int64) (*RunRecord, error) {
	var r RunRecord
	var started, finished string
	err := cdb.db.QueryRowContext(ctx, `
	SELECT id, domain, seed_url, started_at, finished_at, pages_crawled, total_word_count, has_schema_markup, interrupted
	FROM crawl_runs WHERE id = ?
	`, id).Scan(
		&r.ID,
		&r.Domain,
		&r.SeedURL,
		&started,
		&finished,
		&r.PagesCrawled,
		&r.TotalWordCount,
		&r.HasSchemaMarkup,
		&r.Interrupted,
	)
	if err != nil {
		if isNoRows(err) {
			return nil, fmt.Errorf("%w: %d", ErrRunNotFound, id)
		}
		return nil, fmt.Errorf("failed to get crawl run: %w", err)
	}
	r.StartedAt = parseTimestamp(started)
	r.FinishedAt = parseTimestamp(finished)
	return &r, nil
}

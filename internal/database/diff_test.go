package database

import (
	"context"
	"errors"
	"slices"
	"testing"
	"time"
)

// TestDiffPages tests page-level comparison.
func TestDiffPages(t *testing.T) {
	t.Parallel()

	previous := []PageSnapshot{
		{URL: "/", ContentHash: "h1"},
		{URL: "/about", ContentHash: "h2"},
		{URL: "/old", ContentHash: "h3"},
	}
	current := []PageSnapshot{
		{URL: "/", ContentHash: "h1"},
		{URL: "/about", ContentHash: "changed"},
		{URL: "/new", ContentHash: "h4"},
	}

	diff := DiffPages(previous, current)
	if !slices.Equal(diff.Added, []string{"/new"}) {
		t.Errorf("unexpected added %v", diff.Added)
	}
	if !slices.Equal(diff.Removed, []string{"/old"}) {
		t.Errorf("unexpected removed %v", diff.Removed)
	}
	if !slices.Equal(diff.Changed, []string{"/about"}) {
		t.Errorf("unexpected changed %v", diff.Changed)
	}
	if diff.Unchanged != 1 {
		t.Errorf("expected 1 unchanged page, got %d", diff.Unchanged)
	}
	if !diff.HasChanges() {
		t.Error("expected changes")
	}

	if same := DiffPages(previous, previous); same.HasChanges() || same.Unchanged != 3 {
		t.Errorf("unexpected diff of identical runs %+v", same)
	}
}

// TestCompareLatest tests comparing stored runs.
func TestCompareLatest(t *testing.T) {
	t.Parallel()

	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	t.Run("compares the two newest runs", func(t *testing.T) {
		t.Parallel()

		db := setupTestDB(t)
		saveRun(t, db, base, testResult("example.com",
			testPage("https://example.com/", "first"),
		))
		saveRun(t, db, base.Add(24*time.Hour), testResult("example.com",
			testPage("https://example.com/", "second"),
			testPage("https://example.com/faq", "faq"),
		))
		saveRun(t, db, base.Add(48*time.Hour), testResult("example.com",
			testPage("https://example.com/", "second"),
			testPage("https://example.com/faq", "faq updated"),
			testPage("https://example.com/blog", "blog"),
		))

		diff, err := db.CompareLatest(context.Background(), "example.com", time.Time{})
		if err != nil {
			t.Fatalf("failed to compare: %v", err)
		}
		if !slices.Equal(diff.Added, []string{"https://example.com/blog"}) {
			t.Errorf("unexpected added %v", diff.Added)
		}
		if !slices.Equal(diff.Changed, []string{"https://example.com/faq"}) {
			t.Errorf("unexpected changed %v", diff.Changed)
		}
		if diff.PageCountDelta() != 1 {
			t.Errorf("expected page delta 1, got %d", diff.PageCountDelta())
		}
		if diff.WordCountDelta() != len("faq updated")+len("blog")-len("faq") {
			t.Errorf("unexpected word delta %d", diff.WordCountDelta())
		}
	})

	t.Run("compares against the first run since a date", func(t *testing.T) {
		t.Parallel()

		db := setupTestDB(t)
		saveRun(t, db, base, testResult("example.com", testPage("https://example.com/", "a")))
		saveRun(t, db, base.Add(24*time.Hour), testResult("example.com", testPage("https://example.com/b", "b")))
		saveRun(t, db, base.Add(48*time.Hour), testResult("example.com", testPage("https://example.com/b", "b")))

		diff, err := db.CompareLatest(context.Background(), "example.com", base.Add(time.Hour))
		if err != nil {
			t.Fatalf("failed to compare: %v", err)
		}
		if !diff.Previous.StartedAt.Equal(base.Add(24 * time.Hour)) {
			t.Errorf("unexpected previous run %v", diff.Previous.StartedAt)
		}
		if diff.HasChanges() {
			t.Errorf("expected no changes, got %+v", diff)
		}

		_, err = db.CompareLatest(context.Background(), "example.com", base.Add(72*time.Hour))
		if !errors.Is(err, ErrRunNotFound) {
			t.Errorf("expected ErrRunNotFound, got %v", err)
		}
	})

	t.Run("needs two runs", func(t *testing.T) {
		t.Parallel()

		db := setupTestDB(t)
		saveRun(t, db, base, testResult("example.com", testPage("https://example.com/", "a")))

		_, err := db.CompareLatest(context.Background(), "example.com", time.Time{})
		if !errors.Is(err, ErrNotEnoughRuns) {
			t.Errorf("expected ErrNotEnoughRuns, got %v", err)
		}
	})

	t.Run("unknown run id", func(t *testing.T) {
		t.Parallel()

		db := setupTestDB(t)
		_, err := db.CompareRuns(context.Background(), 1, 2)
		if !errors.Is(err, ErrRunNotFound) {
			t.Errorf("expected ErrRunNotFound, got %v", err)
		}
	})
}

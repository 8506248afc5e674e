package crawler

import (
	"fmt"
	"slices"
	"testing"
)

// TestFrontier tests FIFO order and enqueue-time dedup.
func TestFrontier(t *testing.T) {
	t.Parallel()

	t.Run("pops in push order", func(t *testing.T) {
		t.Parallel()

		f := NewFrontier(0)
		for _, u := range []string{"a", "b", "c"} {
			if !f.Push(u) {
				t.Fatalf("expected %q to be pushed", u)
			}
		}

		var got []string
		for {
			u, ok := f.Pop()
			if !ok {
				break
			}
			got = append(got, u)
		}
		if !slices.Equal(got, []string{"a", "b", "c"}) {
			t.Errorf("unexpected order: %v", got)
		}
	})

	t.Run("never queues a URL twice", func(t *testing.T) {
		t.Parallel()

		f := NewFrontier(0)
		f.Push("a")
		if f.Push("a") {
			t.Error("expected duplicate push to be rejected while queued")
		}

		_, _ = f.Pop()
		if f.Push("a") {
			t.Error("expected duplicate push to be rejected after pop")
		}
		if f.Len() != 0 {
			t.Errorf("expected empty frontier, got %d", f.Len())
		}
		if !f.Push("b") {
			t.Error("expected a new URL to be pushed")
		}
	})

	t.Run("pop on empty frontier", func(t *testing.T) {
		t.Parallel()

		f := NewFrontier(0)
		if _, ok := f.Pop(); ok {
			t.Error("expected Pop to fail on empty frontier")
		}
	})

	t.Run("keeps order across compaction", func(t *testing.T) {
		t.Parallel()

		f := NewFrontier(0)
		for i := range 200 {
			f.Push(fmt.Sprintf("u%d", i))
		}
		for i := range 150 {
			u, _ := f.Pop()
			if want := fmt.Sprintf("u%d", i); u != want {
				t.Fatalf("pop %d: got %q, want %q", i, u, want)
			}
		}
		if f.Len() != 50 {
			t.Errorf("expected 50 pending URLs, got %d", f.Len())
		}
		if u, _ := f.Pop(); u != "u150" {
			t.Errorf("expected u150 after compaction, got %q", u)
		}
	})
}

// TestVisitedSet tests the visited set.
func TestVisitedSet(t *testing.T) {
	t.Parallel()

	v := NewVisitedSet()
	v.Add("a")
	v.Add("a")
	v.Add("b")

	if v.Len() != 2 {
		t.Errorf("expected 2 entries, got %d", v.Len())
	}
	if !v.Contains("a") || v.Contains("c") {
		t.Error("unexpected membership")
	}
}

package model

import (
	"encoding/json"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"
)

// TestHeadingCounts tests the per-level heading counters.
func TestHeadingCounts(t *testing.T) {
	t.Parallel()

	t.Run("add and get by level", func(t *testing.T) {
		t.Parallel()

		var c HeadingCounts
		c.Add(1, 2)
		c.Add(6, 1)
		c.Add(0, 5)
		c.Add(7, 5)

		if c.Get(1) != 2 {
			t.Errorf("expected h1=2, got %d", c.Get(1))
		}
		if c.Get(6) != 1 {
			t.Errorf("expected h6=1, got %d", c.Get(6))
		}
		if c.Get(7) != 0 {
			t.Errorf("expected unknown level to be 0, got %d", c.Get(7))
		}
		if c.Total() != 3 {
			t.Errorf("expected total 3, got %d", c.Total())
		}
	})

	t.Run("serialises every level as h1..h6", func(t *testing.T) {
		t.Parallel()

		c := HeadingCounts{1, 0, 3, 0, 0, 0}
		data, err := json.Marshal(c)
		if err != nil {
			t.Fatalf("failed to marshal: %v", err)
		}

		expected := `{"h1":1,"h2":0,"h3":3,"h4":0,"h5":0,"h6":0}`
		if string(data) != expected {
			t.Errorf("expected %s, got %s", expected, data)
		}
	})

	t.Run("rejects unknown keys", func(t *testing.T) {
		t.Parallel()

		var c HeadingCounts
		if err := json.Unmarshal([]byte(`{"h9":1}`), &c); err == nil {
			t.Error("expected error for h9")
		}
		if err := json.Unmarshal([]byte(`{"x1":1}`), &c); err == nil {
			t.Error("expected error for x1")
		}
	})
}

// TestSiteMetadataFinalize tests average word count computation.
func TestSiteMetadataFinalize(t *testing.T) {
	t.Parallel()

	t.Run("average is omitted without pages", func(t *testing.T) {
		t.Parallel()

		m := NewSiteMetadata("example.com")
		m.Finalize()
		if m.AvgWordCount != nil {
			t.Errorf("expected nil average, got %v", *m.AvgWordCount)
		}

		data, err := json.Marshal(m)
		if err != nil {
			t.Fatalf("failed to marshal: %v", err)
		}
		if strings.Contains(string(data), "avg_word_count") {
			t.Errorf("expected avg_word_count to be omitted, got %s", data)
		}
	})

	t.Run("average is total over pages", func(t *testing.T) {
		t.Parallel()

		m := NewSiteMetadata("example.com")
		m.PagesCrawled = 4
		m.TotalWordCount = 1000
		m.Finalize()
		if m.AvgWordCount == nil || *m.AvgWordCount != 250 {
			t.Errorf("expected average 250, got %v", m.AvgWordCount)
		}
	})
}

// TestResultRoundTrip checks that nested maps and lists survive both
// serialisation formats.
func TestResultRoundTrip(t *testing.T) {
	t.Parallel()

	build := func() *Result {
		r := NewResult("example.com")
		r.Metadata.PagesCrawled = 1
		r.Metadata.TotalWordCount = 3
		r.Metadata.HeadingCount.Add(2, 1)
		r.Metadata.Finalize()
		r.Pages = append(r.Pages, PageRecord{
			URL:        "https://example.com/",
			Title:      "Home",
			WordCount:  3,
			Headings:   []Heading{{Level: 2, Text: "What is X?"}},
			Paragraphs: []string{"X is Y."},
			QAPairs:    []QAPair{{Question: "What is X?", Answer: "X is Y."}},
			FullText:   "What is X?",
		})
		r.StructuredData = append(r.StructuredData, StructuredDataRecord{
			URL:  "https://example.com/",
			Kind: KindEmbedded,
			Type: TypeJSONLD,
			Data: map[string]any{"@type": "Organization", "sameAs": []any{"a", "b"}},
		})
		return r
	}

	t.Run("json", func(t *testing.T) {
		t.Parallel()

		first, err := json.Marshal(build())
		if err != nil {
			t.Fatalf("failed to marshal: %v", err)
		}
		var decoded Result
		if err := json.Unmarshal(first, &decoded); err != nil {
			t.Fatalf("failed to unmarshal: %v", err)
		}
		second, err := json.Marshal(&decoded)
		if err != nil {
			t.Fatalf("failed to marshal again: %v", err)
		}
		if string(first) != string(second) {
			t.Errorf("round trip mismatch:\n%s\n%s", first, second)
		}
		if decoded.Metadata.HeadingCount.Get(2) != 1 {
			t.Errorf("expected h2=1 after decode, got %d", decoded.Metadata.HeadingCount.Get(2))
		}
	})

	t.Run("yaml", func(t *testing.T) {
		t.Parallel()

		first, err := yaml.Marshal(build())
		if err != nil {
			t.Fatalf("failed to marshal: %v", err)
		}
		var decoded Result
		if err := yaml.Unmarshal(first, &decoded); err != nil {
			t.Fatalf("failed to unmarshal: %v", err)
		}
		second, err := yaml.Marshal(&decoded)
		if err != nil {
			t.Fatalf("failed to marshal again: %v", err)
		}
		if string(first) != string(second) {
			t.Errorf("round trip mismatch:\n%s\n%s", first, second)
		}
		if decoded.Metadata.AvgWordCount == nil || *decoded.Metadata.AvgWordCount != 3 {
			t.Errorf("expected average 3 after decode, got %v", decoded.Metadata.AvgWordCount)
		}
	})
}

// TestPageRecord tests PageRecord helpers.
func TestPageRecord(t *testing.T) {
	t.Parallel()

	t.Run("thin threshold is exclusive", func(t *testing.T) {
		t.Parallel()

		if !(&PageRecord{WordCount: 299}).IsThin() {
			t.Error("expected 299 words to be thin")
		}
		if (&PageRecord{WordCount: 300}).IsThin() {
			t.Error("expected 300 words not to be thin")
		}
	})

	t.Run("content hash depends on text only", func(t *testing.T) {
		t.Parallel()

		a := &PageRecord{URL: "https://example.com/a", FullText: "same words"}
		b := &PageRecord{URL: "https://example.com/b", FullText: "same words"}
		a.ComputeContentHash()
		b.ComputeContentHash()
		if a.ContentHash == "" || a.ContentHash != b.ContentHash {
			t.Errorf("expected equal non-empty hashes, got %q and %q", a.ContentHash, b.ContentHash)
		}
		if len(a.ContentHash) != 16 {
			t.Errorf("expected 16 hex digits, got %q", a.ContentHash)
		}

		composed := &PageRecord{FullText: "Caf\u00e9 menu"}
		decomposed := &PageRecord{FullText: "Cafe\u0301 menu"}
		composed.ComputeContentHash()
		decomposed.ComputeContentHash()
		if composed.ContentHash != decomposed.ContentHash {
			t.Errorf("expected composition not to change the hash, got %q and %q", composed.ContentHash, decomposed.ContentHash)
		}
		if decomposed.FullText != "Cafe\u0301 menu" {
			t.Errorf("expected text to be left as is, got %q", decomposed.FullText)
		}

		empty := &PageRecord{}
		empty.ComputeContentHash()
		if empty.ContentHash != "" {
			t.Errorf("expected empty hash, got %q", empty.ContentHash)
		}
	})

	t.Run("headings at level keep document order", func(t *testing.T) {
		t.Parallel()

		p := &PageRecord{Headings: []Heading{
			{Level: 1, Text: "A"}, {Level: 2, Text: "B"}, {Level: 2, Text: "C"},
		}}
		got := p.HeadingsAt(2)
		if len(got) != 2 || got[0].Text != "B" || got[1].Text != "C" {
			t.Errorf("unexpected headings: %v", got)
		}
	})
}

func TestFileStem(t *testing.T) {
	t.Parallel()

	tests := []struct {
		domain   string
		expected string
	}{
		{"example.com", "example_com"},
		{"www.example.co.uk", "www_example_co_uk"},
		{"localhost:8080", "localhost_8080"},
	}

	for _, tt := range tests {
		t.Run(tt.domain, func(t *testing.T) {
			t.Parallel()
			if got := FileStem(tt.domain); got != tt.expected {
				t.Errorf("expected %q, got %q", tt.expected, got)
			}
		})
	}
}

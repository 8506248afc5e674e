package model

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// HeadingLevels is the number of HTML heading levels (h1-h6).
const HeadingLevels = 6

// HeadingCounts holds one counter per heading level. Index 0 is h1.
// It serialises as an object keyed "h1" through "h6".
type HeadingCounts [HeadingLevels]int

// Add increments the counter for level by n. Levels outside 1-6 are ignored.
func (c *HeadingCounts) Add(level, n int) {
	if level < 1 || level > HeadingLevels {
		return
	}
	c[level-1] += n
}

// Get returns the counter for level, or 0 for an unknown level.
func (c HeadingCounts) Get(level int) int {
	if level < 1 || level > HeadingLevels {
		return 0
	}
	return c[level-1]
}

// Total returns the sum over all levels.
func (c HeadingCounts) Total() int {
	total := 0
	for _, n := range c {
		total += n
	}
	return total
}

func (c HeadingCounts) toMap() map[string]int {
	m := make(map[string]int, HeadingLevels)
	for i, n := range c {
		m["h"+strconv.Itoa(i+1)] = n
	}
	return m
}

func (c *HeadingCounts) fromMap(m map[string]int) error {
	var out HeadingCounts
	for key, n := range m {
		level, err := strconv.Atoi(strings.TrimPrefix(key, "h"))
		if err != nil || !strings.HasPrefix(key, "h") || level < 1 || level > HeadingLevels {
			return fmt.Errorf("unknown heading level %q", key)
		}
		out[level-1] = n
	}
	*c = out
	return nil
}

// MarshalJSON implements json.Marshaler.
func (c HeadingCounts) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.toMap())
}

// UnmarshalJSON implements json.Unmarshaler.
func (c *HeadingCounts) UnmarshalJSON(data []byte) error {
	var m map[string]int
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	return c.fromMap(m)
}

// MarshalYAML implements yaml.Marshaler.
func (c HeadingCounts) MarshalYAML() (any, error) {
	return c.toMap(), nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (c *HeadingCounts) UnmarshalYAML(value *yaml.Node) error {
	var m map[string]int
	if err := value.Decode(&m); err != nil {
		return err
	}
	return c.fromMap(m)
}

// SiteMetadata is the site-wide aggregate of one crawl run.
type SiteMetadata struct {
	// Title and Description come from the seed page only.
	Title       string `json:"title" yaml:"title"`
	Description string `json:"description" yaml:"description"`

	// Domain is the host of the seed URL, including any port.
	Domain string `json:"domain" yaml:"domain"`

	PagesCrawled   int `json:"pages_crawled" yaml:"pages_crawled"`
	TotalWordCount int `json:"total_word_count" yaml:"total_word_count"`

	HeadingCount HeadingCounts `json:"heading_count" yaml:"heading_count"`

	// HasSchemaMarkup becomes true on the first successful structured-data
	// extraction and stays true.
	HasSchemaMarkup bool `json:"has_schema_markup" yaml:"has_schema_markup"`

	// InternalLinks and ExternalLinks count accepted link candidates. A URL
	// linked from several pages is counted once per page.
	InternalLinks int `json:"internal_links" yaml:"internal_links"`
	ExternalLinks int `json:"external_links" yaml:"external_links"`

	ImageCount           int `json:"image_count" yaml:"image_count"`
	PagesWithThinContent int `json:"pages_with_thin_content" yaml:"pages_with_thin_content"`

	// AvgWordCount is nil until Finalize runs with at least one page.
	AvgWordCount *float64 `json:"avg_word_count,omitempty" yaml:"avg_word_count,omitempty"`
}

// NewSiteMetadata returns zeroed metadata for the given domain.
func NewSiteMetadata(domain string) SiteMetadata {
	return SiteMetadata{Domain: domain}
}

// Finalize computes AvgWordCount. With no crawled pages the average stays
// undefined.
func (m *SiteMetadata) Finalize() {
	if m.PagesCrawled == 0 {
		m.AvgWordCount = nil
		return
	}
	avg := float64(m.TotalWordCount) / float64(m.PagesCrawled)
	m.AvgWordCount = &avg
}

package report

import (
	"slices"
	"time"

	"github.com/nao1215/readyscan/internal/model"
)

// RunInfo describes how a result was produced. None of it is part of the
// result bundle itself.
type RunInfo struct {
	SeedURL     string
	StartedAt   time.Time
	Duration    time.Duration
	Interrupted bool
	FetchErrors int
}

// Summary is the condensed view of a crawl printed after a run and stored
// alongside reports.
type Summary struct {
	Domain      string        `json:"domain" yaml:"domain"`
	SeedURL     string        `json:"seed_url,omitempty" yaml:"seed_url,omitempty"`
	Title       string        `json:"title" yaml:"title"`
	Description string        `json:"description" yaml:"description"`
	StartedAt   time.Time     `json:"started_at,omitzero" yaml:"started_at,omitempty"`
	Duration    time.Duration `json:"duration_ns,omitempty" yaml:"duration,omitempty"`
	Interrupted bool          `json:"interrupted" yaml:"interrupted"`
	FetchErrors int           `json:"fetch_errors" yaml:"fetch_errors"`

	PagesCrawled         int                 `json:"pages_crawled" yaml:"pages_crawled"`
	TotalWordCount       int                 `json:"total_word_count" yaml:"total_word_count"`
	AvgWordCount         float64             `json:"avg_word_count" yaml:"avg_word_count"`
	PagesWithThinContent int                 `json:"pages_with_thin_content" yaml:"pages_with_thin_content"`
	HeadingCount         model.HeadingCounts `json:"heading_count" yaml:"heading_count"`
	HasSchemaMarkup      bool                `json:"has_schema_markup" yaml:"has_schema_markup"`
	SchemaTypes          []string            `json:"schema_types" yaml:"schema_types"`
	InternalLinks        int                 `json:"internal_links" yaml:"internal_links"`
	ExternalLinks        int                 `json:"external_links" yaml:"external_links"`
	ImageCount           int                 `json:"image_count" yaml:"image_count"`
	QAPairCount          int                 `json:"qa_pair_count" yaml:"qa_pair_count"`

	// ThinPages lists the URLs below the thin-content threshold.
	ThinPages []string `json:"thin_pages" yaml:"thin_pages"`

	// PagesWithoutH1 lists the URLs that have no level-1 heading.
	PagesWithoutH1 []string `json:"pages_without_h1" yaml:"pages_without_h1"`

	// PagesWithoutDescription lists the URLs without a meta description.
	PagesWithoutDescription []string `json:"pages_without_description" yaml:"pages_without_description"`
}

// NewSummary condenses result. info may be the zero value.
func NewSummary(result *model.Result, info RunInfo) *Summary {
	m := result.Metadata
	s := &Summary{
		Domain:                  m.Domain,
		SeedURL:                 info.SeedURL,
		Title:                   m.Title,
		Description:             m.Description,
		StartedAt:               info.StartedAt,
		Duration:                info.Duration,
		Interrupted:             info.Interrupted,
		FetchErrors:             info.FetchErrors,
		PagesCrawled:            m.PagesCrawled,
		TotalWordCount:          m.TotalWordCount,
		PagesWithThinContent:    m.PagesWithThinContent,
		HeadingCount:            m.HeadingCount,
		HasSchemaMarkup:         m.HasSchemaMarkup,
		SchemaTypes:             SchemaTypes(result.StructuredData),
		InternalLinks:           m.InternalLinks,
		ExternalLinks:           m.ExternalLinks,
		ImageCount:              m.ImageCount,
		ThinPages:               []string{},
		PagesWithoutH1:          []string{},
		PagesWithoutDescription: []string{},
	}
	if m.AvgWordCount != nil {
		s.AvgWordCount = *m.AvgWordCount
	}

	for _, p := range result.Pages {
		s.QAPairCount += len(p.QAPairs)
		if p.IsThin() {
			s.ThinPages = append(s.ThinPages, p.URL)
		}
		if len(p.HeadingsAt(1)) == 0 {
			s.PagesWithoutH1 = append(s.PagesWithoutH1, p.URL)
		}
		if p.MetaDescription == "" {
			s.PagesWithoutDescription = append(s.PagesWithoutDescription, p.URL)
		}
	}
	return s
}

// SchemaTypes returns the sorted, distinct schema types found in records:
// "@type" values of JSON-LD objects, including those nested in arrays and
// "@graph", and the item types of microdata records.
func SchemaTypes(records []model.StructuredDataRecord) []string {
	seen := make(map[string]struct{})
	for _, r := range records {
		switch data := r.Data.(type) {
		case []model.MicrodataItem:
			for _, item := range data {
				seen[item.Type] = struct{}{}
			}
		default:
			collectJSONLDTypes(data, seen)
		}
	}

	types := make([]string, 0, len(seen))
	for t := range seen {
		types = append(types, t)
	}
	slices.Sort(types)
	return types
}

func collectJSONLDTypes(v any, seen map[string]struct{}) {
	switch v := v.(type) {
	case []any:
		for _, item := range v {
			collectJSONLDTypes(item, seen)
		}
	case map[string]any:
		switch t := v["@type"].(type) {
		case string:
			seen[t] = struct{}{}
		case []any:
			for _, item := range t {
				if s, ok := item.(string); ok {
					seen[s] = struct{}{}
				}
			}
		}
		collectJSONLDTypes(v["@graph"], seen)
	}
}

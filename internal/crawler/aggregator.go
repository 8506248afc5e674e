package crawler

import (
	"github.com/nao1215/readyscan/internal/model"
)

// Aggregator folds per-page extraction results into the site-wide result
// bundle. It has a single writer, the crawl loop, and is not safe for
// concurrent use.
type Aggregator struct {
	result *model.Result

	seedInfoSet bool

	contentHashes    map[string]struct{}
	duplicateContent int
	structuredErrors int
}

// NewAggregator returns an Aggregator with zeroed metadata for domain.
func NewAggregator(domain string) *Aggregator {
	return &Aggregator{
		result:        model.NewResult(domain),
		contentHashes: make(map[string]struct{}),
	}
}

// SetSeedInfo records the seed page's title and description. Only the
// first call has an effect.
func (a *Aggregator) SetSeedInfo(title, description string) {
	if a.seedInfoSet {
		return
	}
	a.seedInfoSet = true
	a.result.Metadata.Title = title
	a.result.Metadata.Description = description
}

// CountLink counts one accepted link candidate.
func (a *Aggregator) CountLink(internal bool) {
	if internal {
		a.result.Metadata.InternalLinks++
		return
	}
	a.result.Metadata.ExternalLinks++
}

// AddStructuredData appends the successful blocks, in order, and counts
// the failed ones. The schema-markup flag is set by the first success and
// never cleared.
func (a *Aggregator) AddStructuredData(blocks []BlockResult) []model.StructuredDataRecord {
	var added []model.StructuredDataRecord
	for _, b := range blocks {
		if b.Err != nil || b.Record == nil {
			a.structuredErrors++
			continue
		}
		added = append(added, *b.Record)
	}
	if len(added) > 0 {
		a.result.StructuredData = append(a.result.StructuredData, added...)
		a.result.Metadata.HasSchemaMarkup = true
	}
	return added
}

// AddPage appends the page record and folds its counters into the site
// metadata.
func (a *Aggregator) AddPage(pc *PageContent) {
	m := &a.result.Metadata
	m.TotalWordCount += pc.Record.WordCount
	if pc.Record.IsThin() {
		m.PagesWithThinContent++
	}
	for level := 1; level <= model.HeadingLevels; level++ {
		m.HeadingCount.Add(level, pc.HeadingCounts.Get(level))
	}
	m.ImageCount += pc.ImageCount

	if h := pc.Record.ContentHash; h != "" {
		if _, ok := a.contentHashes[h]; ok {
			a.duplicateContent++
		}
		a.contentHashes[h] = struct{}{}
	}

	a.result.Pages = append(a.result.Pages, pc.Record)
	m.PagesCrawled++
}

// Metadata returns a copy of the current metadata.
func (a *Aggregator) Metadata() model.SiteMetadata {
	return a.result.Metadata
}

// Finalize computes the average word count and returns the bundle. The
// aggregator must not be used afterwards.
func (a *Aggregator) Finalize() *model.Result {
	a.result.Metadata.Finalize()
	return a.result
}

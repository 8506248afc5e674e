package model

import (
	"fmt"

	"github.com/cespare/xxhash/v2"
	"golang.org/x/text/unicode/norm"
)

// ThinContentThreshold is the word count below which a page is reported as
// thin content.
const ThinContentThreshold = 300

// Heading is one h1-h6 element of a page.
type Heading struct {
	// Level is the heading level, 1 through 6.
	Level int `json:"level" yaml:"level"`

	// Text is the whitespace-collapsed heading text.
	Text string `json:"text" yaml:"text"`
}

// QAPair is a question-bearing heading or emphasis element paired with the
// paragraph that follows it.
type QAPair struct {
	Question string `json:"question" yaml:"question"`
	Answer   string `json:"answer" yaml:"answer"`
}

// PageRecord holds everything extracted from one successfully fetched page.
// It is not modified after the crawl loop appends it to the result.
type PageRecord struct {
	// URL is the address the page was requested with.
	URL string `json:"url" yaml:"url"`

	// Title is the trimmed <title> text, empty when absent.
	Title string `json:"title" yaml:"title"`

	// MetaDescription is the content of <meta name="description">.
	MetaDescription string `json:"meta_description" yaml:"meta_description"`

	// WordCount is the number of whitespace-delimited tokens in FullText.
	WordCount int `json:"word_count" yaml:"word_count"`

	// Headings lists h1 headings first, then h2, and so on. Within a level
	// the order is document order.
	Headings []Heading `json:"headings" yaml:"headings"`

	// Paragraphs holds the non-empty <p> texts in document order.
	Paragraphs []string `json:"paragraphs" yaml:"paragraphs"`

	// QAPairs holds the heuristically detected question/answer pairs.
	QAPairs []QAPair `json:"qa_pairs" yaml:"qa_pairs"`

	// FullText is the visible text with whitespace collapsed.
	FullText string `json:"full_text" yaml:"full_text"`

	// ContentHash fingerprints FullText. It is kept out of the bundle and
	// only used for duplicate detection and history storage.
	ContentHash string `json:"-" yaml:"-"`
}

// IsThin reports whether the page falls below ThinContentThreshold.
func (p *PageRecord) IsThin() bool {
	return p.WordCount < ThinContentThreshold
}

// ComputeContentHash sets ContentHash to the xxhash64 of the NFC form of
// FullText, so pages that differ only in Unicode composition hash alike.
// Pages without text get an empty hash.
func (p *PageRecord) ComputeContentHash() {
	if p.FullText == "" {
		p.ContentHash = ""
		return
	}
	p.ContentHash = fmt.Sprintf("%016x", xxhash.Sum64String(norm.NFC.String(p.FullText)))
}

// HeadingsAt returns the headings of the given level in document order.
func (p *PageRecord) HeadingsAt(level int) []Heading {
	var out []Heading
	for _, h := range p.Headings {
		if h.Level == level {
			out = append(out, h)
		}
	}
	return out
}

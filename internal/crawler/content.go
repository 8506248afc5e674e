package crawler

import (
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/nao1215/readyscan/internal/model"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// nonContentSelector matches subtrees dropped before any text is extracted.
const nonContentSelector = "script, style, noscript, iframe, head"

// questionTags are the elements whose text may pose a question.
var questionTags = map[atom.Atom]bool{
	atom.H2:     true,
	atom.H3:     true,
	atom.H4:     true,
	atom.Strong: true,
}

// PageContent is the output of ExtractContent: the page record plus the
// per-page counters the aggregator folds into site metadata.
type PageContent struct {
	Record        model.PageRecord
	HeadingCounts model.HeadingCounts
	ImageCount    int
}

// ExtractContent builds the PageRecord for doc. Title and meta description
// are read from the full document; everything else from a copy with
// script, style, noscript, iframe and head removed. doc is not modified.
func ExtractContent(doc *goquery.Document, pageURL string) *PageContent {
	pc := &PageContent{
		Record: model.PageRecord{
			URL:             pageURL,
			Title:           strings.TrimSpace(doc.Find("title").First().Text()),
			MetaDescription: metaDescription(doc),
			Headings:        []model.Heading{},
			Paragraphs:      []string{},
			QAPairs:         []model.QAPair{},
		},
	}

	clean := doc.Selection.Clone()
	clean.Find(nonContentSelector).Remove()

	pc.Record.FullText = visibleText(clean)
	pc.Record.WordCount = len(strings.Fields(pc.Record.FullText))

	for level := 1; level <= model.HeadingLevels; level++ {
		clean.Find("h" + strconv.Itoa(level)).Each(func(_ int, s *goquery.Selection) {
			pc.Record.Headings = append(pc.Record.Headings, model.Heading{Level: level, Text: elementText(s)})
			pc.HeadingCounts.Add(level, 1)
		})
	}

	pc.ImageCount = clean.Find("img").Length()

	clean.Find("p").Each(func(_ int, s *goquery.Selection) {
		if text := elementText(s); text != "" {
			pc.Record.Paragraphs = append(pc.Record.Paragraphs, text)
		}
	})

	pc.Record.QAPairs = append(pc.Record.QAPairs, extractQAPairs(clean.Nodes)...)
	pc.Record.ComputeContentHash()
	return pc
}

func metaDescription(doc *goquery.Document) string {
	var content string
	doc.Find("meta[name]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		name, _ := s.Attr("name")
		if !strings.EqualFold(strings.TrimSpace(name), "description") {
			return true
		}
		content, _ = s.Attr("content")
		return false
	})
	return content
}

// extractQAPairs pairs every question element with the first <p> after it
// in document order. A <p> nested inside the question element counts as
// following it. Questions with no later paragraph are dropped.
func extractQAPairs(roots []*html.Node) []model.QAPair {
	var elements []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			elements = append(elements, n)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for _, r := range roots {
		walk(r)
	}

	var pairs []model.QAPair
	for i, n := range elements {
		if !questionTags[n.DataAtom] {
			continue
		}
		question := nodeText(n)
		if !strings.Contains(question, "?") {
			continue
		}
		for _, next := range elements[i+1:] {
			if next.DataAtom == atom.P {
				pairs = append(pairs, model.QAPair{Question: question, Answer: nodeText(next)})
				break
			}
		}
	}
	return pairs
}

func nodeText(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return collapseSpace(b.String())
}

package crawler

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// skippedSchemes are href prefixes that never lead to a page.
var skippedSchemes = []string{"javascript:", "mailto:", "tel:"}

// Link is an accepted link candidate.
type Link struct {
	// URL is the absolute URL resolved against the page it was found on.
	URL string

	// Internal is true when the URL is on the seed host.
	Internal bool
}

// ExtractLinks resolves every <a href> of doc against pageURL and returns
// the candidates accepted by filter, in document order. A URL linked
// several times appears several times.
func ExtractLinks(doc *goquery.Document, pageURL string, filter *Filter, visited Membership) []Link {
	base, err := url.Parse(pageURL)
	if err != nil {
		return nil
	}

	var links []Link
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		href = strings.TrimSpace(href)
		if hasSkippedScheme(href) {
			return
		}

		ref, err := url.Parse(href)
		if err != nil {
			return
		}
		resolved := base.ResolveReference(ref)
		candidate := resolved.String()
		if !filter.Accept(candidate, visited) {
			return
		}
		links = append(links, Link{URL: candidate, Internal: filter.IsInternal(resolved)})
	})
	return links
}

func hasSkippedScheme(href string) bool {
	lower := strings.ToLower(href)
	for _, scheme := range skippedSchemes {
		if strings.HasPrefix(lower, scheme) {
			return true
		}
	}
	return false
}

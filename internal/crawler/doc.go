// Package crawler implements the crawl engine: a breadth-first traversal
// from one seed URL that extracts content, links and structured data from
// every fetched page and folds them into a site-wide result bundle.
//
// Design decision: the traversal is implemented here on goquery and
// x/net/html rather than on a crawling framework because:
//  1. The page budget must be exact, counting failed fetches too
//  2. Link filtering must see the visited set exactly as a one-page-at-a-time
//     crawl would, even when several fetches are in flight
//  3. Each page runs through a fixed sequence of extraction steps that
//     callers can extend
//
// # Components
//
//   - Filter: decides whether a discovered URL may enter the frontier
//   - ExtractLinks: resolves anchors and classifies them internal/external
//   - ExtractStructuredData: decodes JSON-LD blocks and microdata items
//   - ExtractContent: builds the PageRecord from the cleaned document
//   - Frontier and VisitedSet: FIFO queue with enqueue-time dedup
//   - Aggregator: running site metadata
//   - Spider: a single-use crawl session driving all of the above
//
// # Concurrency
//
// A Spider may fetch several pages at once (WithWorkers), but pages are
// always processed one at a time in frontier order, so results do not
// depend on the worker count. Requests are paced by a token bucket
// (WithDelay).
//
// # Text extraction
//
// Visible text is taken after removing script, style, noscript, iframe and
// head subtrees. Text nodes are joined with single spaces and whitespace is
// collapsed, so word counts are whitespace-delimited tokens of what a
// reader sees. Question/answer pairs come from h2-h4 and <strong> elements
// containing "?" and the next paragraph in document order.
//
// # Usage
//
//	client, _ := fetch.NewClient()
//	spider, err := crawler.NewSpider(client, "https://example.com", crawler.WithMaxPages(20))
//	if err != nil {
//		return err
//	}
//	result, err := spider.Crawl(ctx)
package crawler

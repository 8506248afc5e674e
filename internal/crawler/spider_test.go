package crawler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/nao1215/readyscan/internal/fetch"
	"github.com/nao1215/readyscan/internal/model"
	"github.com/nao1215/readyscan/internal/pipeline"
)

type hitLog struct {
	mu    sync.Mutex
	paths []string
}

func (h *hitLog) add(p string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.paths = append(h.paths, p)
}

func (h *hitLog) list() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return slices.Clone(h.paths)
}

func htmlPage(body string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(body)) //nolint:errcheck // test handler
	}
}

// newSite serves routes, where "/" matches the root only, and records every
// requested path.
func newSite(t *testing.T, routes map[string]http.HandlerFunc) (*httptest.Server, *hitLog) {
	t.Helper()

	mux := http.NewServeMux()
	for p, h := range routes {
		if p == "/" {
			p = "/{$}"
		}
		mux.Handle(p, h)
	}

	hits := &hitLog{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.add(r.URL.RequestURI())
		mux.ServeHTTP(w, r)
	}))
	t.Cleanup(server.Close)
	return server, hits
}

func newTestSpider(t *testing.T, seed string, opts ...Option) *Spider {
	t.Helper()

	client, err := fetch.NewClient()
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}
	spider, err := NewSpider(client, seed, append([]Option{WithDelay(0)}, opts...)...)
	if err != nil {
		t.Fatalf("failed to create spider: %v", err)
	}
	return spider
}

func pagePaths(t *testing.T, result *model.Result) []string {
	t.Helper()

	paths := make([]string, 0, len(result.Pages))
	for _, p := range result.Pages {
		u, err := url.Parse(p.URL)
		if err != nil {
			t.Fatalf("invalid page URL %q: %v", p.URL, err)
		}
		paths = append(paths, u.Path)
	}
	return paths
}

// checkInvariants verifies the properties every result bundle must hold.
func checkInvariants(t *testing.T, result *model.Result, maxPages int, seedHost string) {
	t.Helper()

	m := result.Metadata
	if len(result.Pages) > maxPages {
		t.Errorf("pages exceed budget: %d > %d", len(result.Pages), maxPages)
	}
	if m.PagesCrawled != len(result.Pages) {
		t.Errorf("pages_crawled %d != len(pages) %d", m.PagesCrawled, len(result.Pages))
	}

	seen := make(map[string]bool)
	var words, thin int
	var headings model.HeadingCounts
	for _, p := range result.Pages {
		if seen[p.URL] {
			t.Errorf("page fetched twice: %s", p.URL)
		}
		seen[p.URL] = true

		if seedHost != "" {
			u, err := url.Parse(p.URL)
			if err != nil || u.Host != seedHost {
				t.Errorf("page %s is off-site", p.URL)
			}
		}

		words += p.WordCount
		if p.WordCount < model.ThinContentThreshold {
			thin++
		}
		for _, h := range p.Headings {
			headings.Add(h.Level, 1)
		}
	}

	if m.TotalWordCount != words {
		t.Errorf("total_word_count %d != sum %d", m.TotalWordCount, words)
	}
	if m.PagesWithThinContent != thin {
		t.Errorf("pages_with_thin_content %d != %d", m.PagesWithThinContent, thin)
	}
	if m.HeadingCount != headings {
		t.Errorf("heading counts %v != %v", m.HeadingCount, headings)
	}
	if m.PagesCrawled > 0 {
		if m.AvgWordCount == nil || *m.AvgWordCount != float64(words)/float64(m.PagesCrawled) {
			t.Errorf("unexpected average %v", m.AvgWordCount)
		}
	} else if m.AvgWordCount != nil {
		t.Errorf("expected no average, got %v", *m.AvgWordCount)
	}
}

// TestSpiderSeedOnlyBudget tests a crawl whose budget is the seed page.
func TestSpiderSeedOnlyBudget(t *testing.T) {
	t.Parallel()

	body := `<html><head><title>Home</title><meta name="description" content="Welcome"></head><body>` +
		`<p>` + strings.Repeat("word ", 247) + `</p>` +
		`<a href="/about">about</a><a href="/contact">contact</a><a href="https://external.example.org/">ext</a>` +
		`</body></html>`

	server, hits := newSite(t, map[string]http.HandlerFunc{
		"/":        htmlPage(body),
		"/about":   htmlPage(`<p>about</p>`),
		"/contact": htmlPage(`<p>contact</p>`),
	})

	spider := newTestSpider(t, server.URL+"/", WithMaxPages(1))
	result, err := spider.Crawl(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	checkInvariants(t, result, 1, spider.Domain())

	m := result.Metadata
	if len(result.Pages) != 1 || result.Pages[0].WordCount != 250 {
		t.Fatalf("expected one 250-word page, got %+v", result.Pages)
	}
	if m.PagesWithThinContent != 1 {
		t.Errorf("expected 1 thin page, got %d", m.PagesWithThinContent)
	}
	if m.HasSchemaMarkup {
		t.Error("expected no schema markup")
	}
	if m.InternalLinks != 2 || m.ExternalLinks != 0 {
		t.Errorf("unexpected link counts %d/%d", m.InternalLinks, m.ExternalLinks)
	}
	if m.Title != "Home" || m.Description != "Welcome" {
		t.Errorf("unexpected site info %q / %q", m.Title, m.Description)
	}

	stats := spider.Stats()
	if stats.FrontierPending != 2 {
		t.Errorf("expected 2 pending URLs, got %d", stats.FrontierPending)
	}
	if got := hits.list(); !slices.Equal(got, []string{"/"}) {
		t.Errorf("unexpected requests: %v", got)
	}
}

func breadthFirstSite(t *testing.T) (*httptest.Server, *hitLog) {
	t.Helper()

	return newSite(t, map[string]http.HandlerFunc{
		"/": htmlPage(`<html><head><title>Root</title></head><body><h1>Root</h1>
			<a href="/a">a</a> <a href="/b">b</a></body></html>`),
		"/a": htmlPage(`<html><body><h2>A</h2><p>page a</p>
			<a href="/c">c</a> <a href="/b">b</a> <a href="/">home</a></body></html>`),
		"/b": htmlPage(`<html><body><h2>B</h2><h3>B.1</h3>
			<a href="/d">d</a> <a href="/a">a</a></body></html>`),
		"/c": htmlPage(`<html><body><h2>Is C a page?</h2><p>Yes it is.</p></body></html>`),
		"/d": htmlPage(`<html><body><img src="/d.png"><p>page d</p></body></html>`),
	})
}

// TestSpiderBreadthFirst tests traversal order and aggregate consistency.
func TestSpiderBreadthFirst(t *testing.T) {
	t.Parallel()

	server, _ := breadthFirstSite(t)

	var bundles [][]byte
	for _, workers := range []int{1, 3} {
		spider := newTestSpider(t, server.URL+"/", WithMaxPages(10), WithWorkers(workers))
		result, err := spider.Crawl(context.Background())
		if err != nil {
			t.Fatalf("workers=%d: unexpected error: %v", workers, err)
		}
		checkInvariants(t, result, 10, spider.Domain())

		want := []string{"/", "/a", "/b", "/c", "/d"}
		if got := pagePaths(t, result); !slices.Equal(got, want) {
			t.Errorf("workers=%d: unexpected order %v", workers, got)
		}
		if result.Metadata.InternalLinks != 5 {
			t.Errorf("workers=%d: expected 5 internal links, got %d", workers, result.Metadata.InternalLinks)
		}
		if result.Metadata.ImageCount != 1 {
			t.Errorf("workers=%d: expected 1 image, got %d", workers, result.Metadata.ImageCount)
		}

		data, err := json.Marshal(result)
		if err != nil {
			t.Fatalf("failed to marshal: %v", err)
		}
		bundles = append(bundles, data)
	}

	if !bytes.Equal(bundles[0], bundles[1]) {
		t.Error("expected identical bundles for 1 and 3 workers")
	}
}

// TestSpiderBudget tests that in-flight fetches never exceed the budget.
func TestSpiderBudget(t *testing.T) {
	t.Parallel()

	var links strings.Builder
	routes := map[string]http.HandlerFunc{}
	for _, name := range []string{"p1", "p2", "p3", "p4", "p5", "p6", "p7", "p8", "p9"} {
		links.WriteString(`<a href="/` + name + `">` + name + `</a>`)
		routes["/"+name] = htmlPage(`<p>` + name + `</p>`)
	}
	routes["/"] = htmlPage(`<html><body>` + links.String() + `</body></html>`)

	server, hits := newSite(t, routes)

	spider := newTestSpider(t, server.URL+"/", WithMaxPages(4), WithWorkers(8))
	result, err := spider.Crawl(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	checkInvariants(t, result, 4, spider.Domain())

	if len(result.Pages) != 4 {
		t.Errorf("expected 4 pages, got %d", len(result.Pages))
	}
	if n := len(hits.list()); n != 4 {
		t.Errorf("expected 4 requests, got %d", n)
	}
	if got := pagePaths(t, result); !slices.Equal(got, []string{"/", "/p1", "/p2", "/p3"}) {
		t.Errorf("unexpected pages %v", got)
	}
	if stats := spider.Stats(); stats.Visited != 4 || stats.FrontierPending != 6 {
		t.Errorf("unexpected stats %+v", stats)
	}
}

// TestSpiderFetchFailures tests that failed fetches are skipped.
func TestSpiderFetchFailures(t *testing.T) {
	t.Parallel()

	server, hits := newSite(t, map[string]http.HandlerFunc{
		"/": htmlPage(`<html><body>
			<a href="/broken">broken</a> <a href="/feed">feed</a> <a href="/ok">ok</a></body></html>`),
		"/broken": func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "text/html")
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`<a href="/hidden">hidden</a>`)) //nolint:errcheck // test handler
		},
		"/feed": func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"href": "/hidden"}`)) //nolint:errcheck // test handler
		},
		"/ok":     htmlPage(`<p>fine</p>`),
		"/hidden": htmlPage(`<p>hidden</p>`),
	})

	spider := newTestSpider(t, server.URL+"/", WithMaxPages(10))
	result, err := spider.Crawl(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	checkInvariants(t, result, 10, spider.Domain())

	if got := pagePaths(t, result); !slices.Equal(got, []string{"/", "/ok"}) {
		t.Errorf("unexpected pages %v", got)
	}
	if slices.Contains(hits.list(), "/hidden") {
		t.Error("links of a failed page must not be followed")
	}

	stats := spider.Stats()
	if stats.FetchErrors != 2 {
		t.Errorf("expected 2 fetch errors, got %d", stats.FetchErrors)
	}
	if stats.Visited != 4 || stats.PagesCrawled != 2 {
		t.Errorf("unexpected stats %+v", stats)
	}
}

// fetcherFunc adapts a function to Fetcher.
type fetcherFunc func(ctx context.Context, pageURL string) (*fetch.Response, error)

func (f fetcherFunc) Get(ctx context.Context, pageURL string) (*fetch.Response, error) {
	return f(ctx, pageURL)
}

// TestSpiderNilResponse tests that a fetcher returning no response and no
// error is counted as a failed fetch.
func TestSpiderNilResponse(t *testing.T) {
	t.Parallel()

	fetcher := fetcherFunc(func(_ context.Context, _ string) (*fetch.Response, error) {
		return nil, nil
	})
	spider, err := NewSpider(fetcher, "https://example.com/", WithMaxPages(3))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	result, err := spider.Crawl(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Pages) != 0 {
		t.Errorf("expected no pages, got %d", len(result.Pages))
	}
	if stats := spider.Stats(); stats.FetchErrors != 1 || stats.Visited != 1 {
		t.Errorf("unexpected stats %+v", stats)
	}
}

// TestSpiderStructuredData tests that the schema flag survives later pages.
func TestSpiderStructuredData(t *testing.T) {
	t.Parallel()

	server, _ := newSite(t, map[string]http.HandlerFunc{
		"/": htmlPage(`<html><head>
			<script type="application/ld+json">{"@context":"https://schema.org","@type":"Organization"}</script>
			<script type="application/ld+json">{not json</script>
			</head><body><a href="/plain">plain</a></body></html>`),
		"/plain": htmlPage(`<p>no markup here</p>`),
	})

	spider := newTestSpider(t, server.URL+"/", WithMaxPages(5))
	result, err := spider.Crawl(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(result.Pages) != 2 {
		t.Fatalf("expected 2 pages, got %d", len(result.Pages))
	}
	if len(result.StructuredData) != 1 {
		t.Fatalf("expected 1 structured data record, got %d", len(result.StructuredData))
	}
	rec := result.StructuredData[0]
	if rec.URL != server.URL+"/" || rec.Kind != model.KindEmbedded {
		t.Errorf("unexpected record %+v", rec)
	}
	if !result.Metadata.HasSchemaMarkup {
		t.Error("expected schema flag to remain set")
	}
	if stats := spider.Stats(); stats.StructuredDataErrors != 1 {
		t.Errorf("expected 1 structured data error, got %d", stats.StructuredDataErrors)
	}
}

// TestSpiderDomainScope tests same-domain-only against a second host.
func TestSpiderDomainScope(t *testing.T) {
	t.Parallel()

	other, otherHits := newSite(t, map[string]http.HandlerFunc{
		"/": htmlPage(`<p>elsewhere</p>`),
	})
	server, _ := newSite(t, map[string]http.HandlerFunc{
		"/": htmlPage(`<a href="` + other.URL + `/">other</a> <a href="/local">local</a>`),
		"/local": htmlPage(`<p>local</p>`),
	})

	t.Run("same domain only", func(t *testing.T) {
		t.Parallel()

		spider := newTestSpider(t, server.URL+"/", WithMaxPages(10))
		result, err := spider.Crawl(context.Background())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		checkInvariants(t, result, 10, spider.Domain())

		if result.Metadata.InternalLinks != 1 || result.Metadata.ExternalLinks != 0 {
			t.Errorf("unexpected link counts %d/%d", result.Metadata.InternalLinks, result.Metadata.ExternalLinks)
		}
	})

	t.Run("cross domain", func(t *testing.T) {
		t.Parallel()

		spider := newTestSpider(t, server.URL+"/", WithMaxPages(10), WithSameDomainOnly(false))
		result, err := spider.Crawl(context.Background())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		checkInvariants(t, result, 10, "")

		if len(result.Pages) != 3 {
			t.Errorf("expected 3 pages, got %d", len(result.Pages))
		}
		if result.Metadata.ExternalLinks != 1 {
			t.Errorf("expected 1 external link, got %d", result.Metadata.ExternalLinks)
		}
		if len(otherHits.list()) == 0 {
			t.Error("expected the other host to be fetched")
		}
	})
}

// TestSpiderCancellation tests that a cancelled crawl returns its partial
// result.
func TestSpiderCancellation(t *testing.T) {
	t.Parallel()

	server, hits := breadthFirstSite(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stopAfterSeed := pipeline.NewStep("stop", func(_ context.Context, pc *PageContext) error {
		if pc.IsSeed {
			cancel()
		}
		return nil
	})

	spider := newTestSpider(t, server.URL+"/", WithMaxPages(10), WithExtraSteps(stopAfterSeed))
	result, err := spider.Crawl(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if result == nil {
		t.Fatal("expected a partial result")
	}
	checkInvariants(t, result, 10, spider.Domain())

	if len(result.Pages) != 1 || result.Metadata.Title != "Root" {
		t.Errorf("expected the seed page only, got %v", pagePaths(t, result))
	}
	if got := hits.list(); !slices.Equal(got, []string{"/"}) {
		t.Errorf("unexpected requests after cancel: %v", got)
	}

	stats := spider.Stats()
	if !stats.Interrupted || stats.FrontierPending != 2 {
		t.Errorf("unexpected stats %+v", stats)
	}
}

// TestSpiderSingleUse tests that a session cannot be crawled twice.
func TestSpiderSingleUse(t *testing.T) {
	t.Parallel()

	server, _ := newSite(t, map[string]http.HandlerFunc{"/": htmlPage(`<p>once</p>`)})

	spider := newTestSpider(t, server.URL+"/")
	if _, err := spider.Crawl(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	result, err := spider.Crawl(context.Background())
	if !errors.Is(err, ErrSessionUsed) {
		t.Errorf("expected ErrSessionUsed, got %v", err)
	}
	if result != nil {
		t.Error("expected no result from a reused session")
	}
}

// TestSpiderExtraSteps tests custom steps and their failures.
func TestSpiderExtraSteps(t *testing.T) {
	t.Parallel()

	server, _ := breadthFirstSite(t)

	var mu sync.Mutex
	var seen []string
	record := pipeline.NewStep("record", func(_ context.Context, pc *PageContext) error {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, pc.Content.Record.URL)
		if strings.HasSuffix(pc.URL, "/c") {
			return errors.New("rejected")
		}
		return nil
	})

	spider := newTestSpider(t, server.URL+"/", WithExtraSteps(record))
	result, err := spider.Crawl(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(seen) != len(result.Pages) {
		t.Errorf("expected step to see %d pages, saw %d", len(result.Pages), len(seen))
	}
	if stats := spider.Stats(); stats.StepErrors != 1 {
		t.Errorf("expected 1 step error, got %d", stats.StepErrors)
	}
	if len(result.Pages) != 5 {
		t.Errorf("a failing extra step must not drop the page, got %d pages", len(result.Pages))
	}
}

// TestSpiderDelay tests request pacing.
func TestSpiderDelay(t *testing.T) {
	t.Parallel()

	server, _ := newSite(t, map[string]http.HandlerFunc{
		"/":  htmlPage(`<a href="/a">a</a> <a href="/b">b</a>`),
		"/a": htmlPage(`<p>a</p>`),
		"/b": htmlPage(`<p>b</p>`),
	})

	spider := newTestSpider(t, server.URL+"/", WithDelay(50*time.Millisecond), WithWorkers(3))
	start := time.Now()
	if _, err := spider.Crawl(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if elapsed := time.Since(start); elapsed < 100*time.Millisecond {
		t.Errorf("expected paced requests, finished in %v", elapsed)
	}
}

// TestNewSpider tests configuration validation.
func TestNewSpider(t *testing.T) {
	t.Parallel()

	client, err := fetch.NewClient()
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}

	tests := []struct {
		name    string
		seed    string
		opts    []Option
		wantErr error
	}{
		{name: "empty seed", seed: "", wantErr: ErrInvalidSeedURL},
		{name: "relative seed", seed: "/about", wantErr: ErrInvalidSeedURL},
		{name: "unsupported scheme", seed: "ftp://example.com/", wantErr: ErrInvalidSeedURL},
		{name: "missing host", seed: "http://", wantErr: ErrInvalidSeedURL},
		{name: "unparsable seed", seed: "http://[::1", wantErr: ErrInvalidSeedURL},
		{name: "zero budget", seed: "https://example.com/", opts: []Option{WithMaxPages(0)}, wantErr: ErrInvalidMaxPages},
		{name: "negative budget", seed: "https://example.com/", opts: []Option{WithMaxPages(-1)}, wantErr: ErrInvalidMaxPages},
		{name: "bad pattern", seed: "https://example.com/", opts: []Option{WithIgnorePatterns([]string{"[abc"})}, wantErr: ErrInvalidPattern},
		{name: "valid", seed: " https://example.com/ ", opts: []Option{WithWorkers(0)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			spider, err := NewSpider(client, tt.seed, tt.opts...)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if spider.SeedURL() != "https://example.com/" || spider.Domain() != "example.com" {
				t.Errorf("unexpected seed %q / %q", spider.SeedURL(), spider.Domain())
			}
			if spider.workers != 1 || spider.maxPages != DefaultMaxPages {
				t.Errorf("unexpected defaults workers=%d maxPages=%d", spider.workers, spider.maxPages)
			}
			if stats := spider.Stats(); stats.FrontierPending != 1 {
				t.Errorf("expected the seed to be queued, got %+v", stats)
			}
		})
	}
}

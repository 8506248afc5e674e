package crawler

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nao1215/readyscan/internal/fetch"
	"github.com/nao1215/readyscan/internal/model"
	"github.com/nao1215/readyscan/internal/pipeline"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// Default session settings.
const (
	DefaultMaxPages = 10
	DefaultWorkers  = 1
	DefaultDelay    = 1 * time.Second
)

// Fetcher retrieves one page. *fetch.Client implements it.
type Fetcher interface {
	Get(ctx context.Context, pageURL string) (*fetch.Response, error)
}

// Spider is a single crawl session: it owns the frontier, the visited set
// and the aggregate for one seed, and can run Crawl once.
//
// URLs are dequeued in FIFO order in waves of up to the worker count.
// A wave is fetched concurrently and then processed one page at a time in
// dequeue order, so the traversal order, the page budget and every
// aggregate counter are the same as with a single worker.
type Spider struct {
	fetcher Fetcher
	seedURL string
	seed    *url.URL

	maxPages       int
	sameDomainOnly bool
	workers        int
	delay          time.Duration
	logger         *slog.Logger
	ignorePatterns []string
	followPatterns []string
	extraSteps     []PageStep

	limiter  *rate.Limiter
	filter   *Filter
	visited  *VisitedSet
	inFlight map[string]struct{}
	frontier *Frontier
	agg      *Aggregator
	pages    *pipeline.Pipeline[*PageContext]

	used atomic.Bool

	mu    sync.Mutex
	stats Stats
}

// Stats describes the progress of a session.
type Stats struct {
	// Visited counts dequeued URLs, failed fetches included.
	Visited int

	// PagesCrawled counts pages that produced a PageRecord.
	PagesCrawled int

	// FetchErrors counts network errors, non-2xx statuses, non-HTML
	// responses and unparsable bodies.
	FetchErrors int

	// StructuredDataErrors counts JSON-LD blocks that failed to decode.
	StructuredDataErrors int

	// StepErrors counts errors returned by extra page steps.
	StepErrors int

	// DuplicateContent counts pages whose text matched an earlier page.
	DuplicateContent int

	// FrontierPending is the number of queued URLs never dequeued.
	FrontierPending int

	// Interrupted is true when the context ended the crawl early.
	Interrupted bool
}

// Option configures a Spider.
type Option func(*Spider)

// WithMaxPages sets the number of URLs the session may dequeue.
func WithMaxPages(n int) Option {
	return func(s *Spider) {
		s.maxPages = n
	}
}

// WithSameDomainOnly restricts the frontier to the seed host.
func WithSameDomainOnly(same bool) Option {
	return func(s *Spider) {
		s.sameDomainOnly = same
	}
}

// WithWorkers sets how many pages of a wave are fetched concurrently.
func WithWorkers(n int) Option {
	return func(s *Spider) {
		s.workers = n
	}
}

// WithDelay sets the minimum interval between two requests. Zero disables
// rate limiting.
func WithDelay(d time.Duration) Option {
	return func(s *Spider) {
		s.delay = d
	}
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Spider) {
		s.logger = logger
	}
}

// WithIgnorePatterns sets path globs that are never enqueued.
func WithIgnorePatterns(patterns []string) Option {
	return func(s *Spider) {
		s.ignorePatterns = patterns
	}
}

// WithFollowPatterns sets path globs that, when present, are the only ones
// enqueued.
func WithFollowPatterns(patterns []string) Option {
	return func(s *Spider) {
		s.followPatterns = patterns
	}
}

// WithExtraSteps appends steps that run after the built-in ones for every
// fetched page.
func WithExtraSteps(steps ...PageStep) Option {
	return func(s *Spider) {
		s.extraSteps = append(s.extraSteps, steps...)
	}
}

// NewSpider creates a session for seedURL. Configuration errors are
// returned here so that Crawl never starts with an invalid setup.
func NewSpider(fetcher Fetcher, seedURL string, opts ...Option) (*Spider, error) {
	s := &Spider{
		fetcher:        fetcher,
		seedURL:        strings.TrimSpace(seedURL),
		maxPages:       DefaultMaxPages,
		sameDomainOnly: true,
		workers:        DefaultWorkers,
		delay:          DefaultDelay,
	}
	for _, opt := range opts {
		opt(s)
	}

	seed, err := url.Parse(s.seedURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidSeedURL, err)
	}
	if (seed.Scheme != "http" && seed.Scheme != "https") || seed.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidSeedURL, s.seedURL)
	}
	if s.maxPages <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidMaxPages, s.maxPages)
	}
	s.seed = seed

	if s.workers < 1 {
		s.workers = 1
	}
	if s.logger == nil {
		s.logger = slog.New(slog.DiscardHandler)
	}
	s.logger = s.logger.With("seed", s.seedURL)

	if s.filter, err = NewFilter(seed.Host, s.sameDomainOnly, s.ignorePatterns, s.followPatterns); err != nil {
		return nil, err
	}

	if s.delay > 0 {
		s.limiter = rate.NewLimiter(rate.Every(s.delay), 1)
	} else {
		s.limiter = rate.NewLimiter(rate.Inf, 1)
	}

	s.visited = NewVisitedSet()
	s.inFlight = make(map[string]struct{})
	s.frontier = NewFrontier(s.maxPages)
	s.frontier.Push(s.seedURL)
	s.agg = NewAggregator(seed.Host)
	s.pages = s.newPagePipeline()
	s.stats.FrontierPending = s.frontier.Len()

	return s, nil
}

// SeedURL returns the seed as given to NewSpider.
func (s *Spider) SeedURL() string {
	return s.seedURL
}

// Domain returns the seed host.
func (s *Spider) Domain() string {
	return s.seed.Host
}

// Stats returns a snapshot of the session counters. It may be called while
// Crawl is running.
func (s *Spider) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

// Crawl runs the session and returns the result bundle. Fetch and parse
// failures are logged and skipped. When ctx is cancelled, no further URLs
// are dequeued, pages already fetched are still processed, and the partial
// bundle is returned together with ctx.Err().
func (s *Spider) Crawl(ctx context.Context) (*model.Result, error) {
	if !s.used.CompareAndSwap(false, true) {
		return nil, ErrSessionUsed
	}

	start := time.Now()
	s.logger.Info("crawl started",
		"max_pages", s.maxPages,
		"workers", s.workers,
		"same_domain_only", s.sameDomainOnly,
		"steps", s.pages.StepNames(),
	)

	var crawlErr error
	for s.frontier.Len() > 0 && s.visited.Len() < s.maxPages {
		if err := ctx.Err(); err != nil {
			crawlErr = err
			break
		}

		wave := s.dequeueWave()
		outcomes := s.fetchWave(ctx, wave)
		for i, u := range wave {
			s.processPage(ctx, u, outcomes[i])
		}
		s.syncStats()

		if err := ctx.Err(); err != nil {
			crawlErr = err
			break
		}
	}

	result := s.agg.Finalize()

	s.mu.Lock()
	s.stats.Interrupted = crawlErr != nil
	s.mu.Unlock()
	s.syncStats()

	stats := s.Stats()
	s.logger.Info("crawl finished",
		"pages_crawled", stats.PagesCrawled,
		"visited", stats.Visited,
		"fetch_errors", stats.FetchErrors,
		"pending", stats.FrontierPending,
		"interrupted", stats.Interrupted,
		"elapsed", time.Since(start),
	)
	return result, crawlErr
}

// dequeueWave pops up to workers URLs, never more than the remaining
// budget, and marks them visited.
func (s *Spider) dequeueWave() []string {
	n := min(s.workers, s.maxPages-s.visited.Len())
	wave := make([]string, 0, n)
	for len(wave) < n {
		u, ok := s.frontier.Pop()
		if !ok {
			break
		}
		if s.visited.Contains(u) {
			s.logger.Debug("skipping already visited URL", "url", u)
			continue
		}
		s.visited.Add(u)
		s.inFlight[u] = struct{}{}
		wave = append(wave, u)
	}
	return wave
}

type fetchOutcome struct {
	resp *fetch.Response
	err  error
}

func (s *Spider) fetchWave(ctx context.Context, wave []string) []fetchOutcome {
	outcomes := make([]fetchOutcome, len(wave))

	var g errgroup.Group
	g.SetLimit(s.workers)
	for i, u := range wave {
		g.Go(func() error {
			if err := s.limiter.Wait(ctx); err != nil {
				outcomes[i].err = err
				return nil
			}
			s.logger.Debug("fetching page", "url", u)
			outcomes[i].resp, outcomes[i].err = s.fetcher.Get(ctx, u)
			return nil
		})
	}
	_ = g.Wait() //nolint:errcheck // goroutines store their errors in outcomes

	return outcomes
}

// processPage runs the page steps for one fetched URL. Until this call, u
// is hidden from the link filter's view of the visited set, as it would be
// in a one-page-at-a-time crawl.
func (s *Spider) processPage(ctx context.Context, u string, out fetchOutcome) {
	delete(s.inFlight, u)

	if out.err == nil && out.resp == nil {
		out.err = &fetch.Error{URL: u, Err: errNoResponse}
	}
	if out.err != nil {
		s.recordFetchError(u, out.err)
		return
	}

	doc, err := ParseDocument(bytes.NewReader(out.resp.Body))
	if err != nil {
		s.recordFetchError(u, fmt.Errorf("parse %s: %w", u, err))
		return
	}

	pc := &PageContext{
		URL:      u,
		IsSeed:   u == s.seedURL,
		Response: out.resp,
		Document: doc,
	}
	if err := s.pages.Execute(ctx, pc); err != nil {
		s.mu.Lock()
		s.stats.StepErrors++
		s.mu.Unlock()
		s.logger.Warn("page step failed", "url", u, "error", err)
	}
	s.logger.Debug("page processed", "url", u, "links", len(pc.Links), "structured_data", len(pc.StructuredData))
}

func (s *Spider) recordFetchError(u string, err error) {
	s.mu.Lock()
	s.stats.FetchErrors++
	s.mu.Unlock()

	switch {
	case errors.Is(err, fetch.ErrContentType), errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		s.logger.Debug("page skipped", "url", u, "error", err)
	default:
		s.logger.Warn("page skipped", "url", u, "error", err)
	}
}

func (s *Spider) syncStats() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stats.Visited = s.visited.Len()
	s.stats.PagesCrawled = s.agg.result.Metadata.PagesCrawled
	s.stats.StructuredDataErrors = s.agg.structuredErrors
	s.stats.DuplicateContent = s.agg.duplicateContent
	s.stats.FrontierPending = s.frontier.Len()
}

// visitedView is the visited set as seen by the link filter.
type visitedView struct {
	visited  *VisitedSet
	inFlight map[string]struct{}
}

func (v visitedView) Contains(u string) bool {
	if _, ok := v.inFlight[u]; ok {
		return false
	}
	return v.visited.Contains(u)
}

func (s *Spider) visitedView() Membership {
	return visitedView{visited: s.visited, inFlight: s.inFlight}
}

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/nao1215/readyscan/internal/config"
	"github.com/nao1215/readyscan/internal/crawler"
	"github.com/nao1215/readyscan/internal/database"
	"github.com/nao1215/readyscan/internal/fetch"
	"github.com/nao1215/readyscan/internal/log"
	"github.com/nao1215/readyscan/internal/model"
	"github.com/nao1215/readyscan/internal/pipeline"
	"github.com/nao1215/readyscan/internal/report"
	"github.com/spf13/cobra"
)

// stdoutPath selects standard output for --output.
const stdoutPath = "-"

// errCrawlsFailed is returned when at least one seed could not be crawled.
var errCrawlsFailed = errors.New("one or more crawls failed")

// NewCrawlCmd creates the crawl command.
func NewCrawlCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "crawl <url>...",
		Short: "Crawl a website and write its AI search readiness report",
		Long: `Crawl visits a website breadth-first starting at each seed URL and collects
per-page content, headings, images, question/answer pairs, JSON-LD and
microdata, plus site-wide totals.

Every seed is crawled by its own session with its own page budget. Several
seeds are crawled concurrently (see --batch). Press Ctrl+C to stop early:
pages fetched so far are still reported.

Examples:
  # Crawl up to 10 pages of a site and write example_com_crawl_results.json
  readyscan crawl https://example.com

  # Crawl 100 pages with 4 concurrent fetches and no delay
  readyscan crawl -p 100 -w 4 -d 0 https://example.com

  # Write a Markdown report to stdout
  readyscan crawl -f markdown -o - https://example.com

  # Skip the blog and follow links to other hosts too
  readyscan crawl --ignore "/blog/**" --same-domain=false https://example.com

  # Crawl through an existing SOCKS5 proxy
  readyscan crawl --proxy 127.0.0.1:9050 https://example.com`,
		Args: cobra.MinimumNArgs(1),
		RunE: runCrawlCmd,
	}

	// Crawl behavior
	cmd.Flags().IntP("max-pages", "p", config.DefaultMaxPages,
		"Maximum number of URLs visited per site, failed fetches included")
	cmd.Flags().Bool("same-domain", true,
		"Only follow links on the seed's host")
	cmd.Flags().IntP("workers", "w", config.DefaultWorkers,
		"Number of pages fetched concurrently per site")
	cmd.Flags().IntP("batch", "b", config.DefaultBatchSize,
		"Number of sites crawled concurrently")
	cmd.Flags().DurationP("delay", "d", config.DefaultCrawlDelay,
		"Minimum interval between requests to a site (0 disables)")
	cmd.Flags().StringSlice("ignore", nil,
		"Path glob never crawled (repeatable)")
	cmd.Flags().StringSlice("follow", nil,
		"Only crawl paths matching this glob (repeatable)")

	// HTTP
	cmd.Flags().DurationP("timeout", "t", config.DefaultTimeout,
		"Timeout for each request")
	cmd.Flags().StringP("user-agent", "u", config.DefaultUserAgent,
		"User-Agent header sent with every request")
	cmd.Flags().StringArrayP("header", "H", nil,
		`Extra request header as "Name: value" (repeatable)`)
	cmd.Flags().Int64("max-body-size", config.DefaultMaxBodySize,
		"Maximum number of body bytes read per page")
	cmd.Flags().String("proxy", "",
		"Route requests through a SOCKS5 proxy (host:port)")
	cmd.Flags().Bool("tor", false,
		"Start an embedded Tor daemon and crawl through it")
	cmd.Flags().Duration("tor-timeout", config.DefaultTorStartupTimeout,
		"Timeout for embedded Tor startup")

	// Configuration file
	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .readyscan.yaml in current, config or home directory)")

	// Output
	cmd.Flags().StringP("format", "f", config.FormatJSON,
		"Report format: json, yaml or markdown")
	cmd.Flags().StringP("output", "o", "",
		`Report file path ("-" for stdout; default: <domain>_crawl_results.<ext>)`)
	cmd.Flags().String("output-dir", ".",
		"Directory for derived report file names")
	cmd.Flags().Bool("no-db", false,
		"Do not store the result in the history database")
	cmd.Flags().String("db-dir", "",
		"History database directory (default: XDG data directory)")
	cmd.Flags().Bool("log-json", false,
		"Write log records as JSON lines on stderr")

	return cmd
}

func runCrawlCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, args)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logJSON, err := cmd.Flags().GetBool("log-json")
	if err != nil {
		return err
	}
	newLogger := log.NewSecureLogger
	if logJSON {
		newLogger = log.NewSecureJSONLogger
	}
	logger := newLogger(cmd.ErrOrStderr(), cfg.Verbose)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return runCrawl(ctx, cfg, cmd.OutOrStdout(), cmd.ErrOrStderr(), logger)
}

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, err = cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return false
		}
	}
	return verbose
}

// buildConfig creates a Config from cobra command flags and the
// configuration file.
func buildConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg := config.NewConfig()
	flags := cmd.Flags()

	var err error
	if cfg.MaxPages, err = flags.GetInt("max-pages"); err != nil {
		return nil, err
	}
	if cfg.SameDomainOnly, err = flags.GetBool("same-domain"); err != nil {
		return nil, err
	}
	if cfg.Workers, err = flags.GetInt("workers"); err != nil {
		return nil, err
	}
	if cfg.BatchSize, err = flags.GetInt("batch"); err != nil {
		return nil, err
	}
	if cfg.CrawlDelay, err = flags.GetDuration("delay"); err != nil {
		return nil, err
	}
	if cfg.IgnorePatterns, err = flags.GetStringSlice("ignore"); err != nil {
		return nil, err
	}
	if cfg.FollowPatterns, err = flags.GetStringSlice("follow"); err != nil {
		return nil, err
	}
	if cfg.Timeout, err = flags.GetDuration("timeout"); err != nil {
		return nil, err
	}
	if cfg.UserAgent, err = flags.GetString("user-agent"); err != nil {
		return nil, err
	}
	if cfg.MaxBodySize, err = flags.GetInt64("max-body-size"); err != nil {
		return nil, err
	}
	if cfg.ProxyAddress, err = flags.GetString("proxy"); err != nil {
		return nil, err
	}
	if cfg.UseTor, err = flags.GetBool("tor"); err != nil {
		return nil, err
	}
	if cfg.TorStartupTimeout, err = flags.GetDuration("tor-timeout"); err != nil {
		return nil, err
	}
	if cfg.Format, err = flags.GetString("format"); err != nil {
		return nil, err
	}
	cfg.Format = normalizeFormat(cfg.Format)
	if cfg.OutputFile, err = flags.GetString("output"); err != nil {
		return nil, err
	}
	if cfg.OutputDir, err = flags.GetString("output-dir"); err != nil {
		return nil, err
	}

	rawHeaders, err := flags.GetStringArray("header")
	if err != nil {
		return nil, err
	}
	if cfg.Headers, err = parseHeaders(rawHeaders); err != nil {
		return nil, err
	}

	noDB, err := flags.GetBool("no-db")
	if err != nil {
		return nil, err
	}
	cfg.SaveToDB = !noDB
	dbDir, err := flags.GetString("db-dir")
	if err != nil {
		return nil, err
	}
	if dbDir != "" {
		cfg.DBDir = dbDir
	}

	if cfg.ConfigFilePath, err = flags.GetString("config"); err != nil {
		return nil, err
	}
	// An explicit path must exist; a missing default file is not an error.
	configPath := config.FindConfigFile(cfg.ConfigFilePath)
	switch {
	case configPath != "":
		cfg.SiteConfigs, err = config.LoadConfigFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	case cfg.ConfigFilePath != "":
		return nil, fmt.Errorf("%w: %s", config.ErrConfigNotFound, cfg.ConfigFilePath)
	default:
		cfg.SiteConfigs = &config.File{Sites: make(map[string]config.SiteConfig)}
	}

	cfg.Verbose = getVerboseFlag(cmd)

	cfg.Seeds = make([]string, 0, len(args))
	for _, arg := range args {
		cfg.Seeds = append(cfg.Seeds, strings.TrimSpace(arg))
	}
	return cfg, nil
}

// normalizeFormat maps the short aliases accepted by report.NewWriter to
// the names config.Validate knows.
func normalizeFormat(format string) string {
	switch f := strings.ToLower(strings.TrimSpace(format)); f {
	case "yml":
		return config.FormatYAML
	case "md":
		return config.FormatMarkdown
	default:
		return f
	}
}

// parseHeaders turns "Name: value" strings into a header map.
func parseHeaders(raw []string) (map[string]string, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	headers := make(map[string]string, len(raw))
	for _, h := range raw {
		name, value, ok := strings.Cut(h, ":")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid header %q: expected \"Name: value\"", h)
		}
		headers[name] = strings.TrimSpace(value)
	}
	return headers, nil
}

// siteRun is the outcome of crawling one seed.
type siteRun struct {
	seed       string
	domain     string
	result     *model.Result
	stats      crawler.Stats
	startedAt  time.Time
	finishedAt time.Time
	digests    map[string]string
}

// crawlRunner holds what every site crawl of one invocation shares.
type crawlRunner struct {
	cfg       *config.Config
	proxyAddr string
	db        *database.CrawlDB
	out       io.Writer
	errOut    io.Writer
	logger    *slog.Logger
}

// runCrawl crawls every seed in cfg and writes, prints and stores each
// result as soon as its crawl ends.
func runCrawl(ctx context.Context, cfg *config.Config, out, errOut io.Writer, logger *slog.Logger) error {
	if len(cfg.Seeds) > 1 && cfg.OutputFile != "" && cfg.OutputFile != stdoutPath {
		return errors.New("--output names a single file; use --output-dir with several seeds")
	}

	r := &crawlRunner{
		cfg:       cfg,
		proxyAddr: cfg.ProxyAddress,
		out:       out,
		errOut:    errOut,
		logger:    logger,
	}

	if cfg.SaveToDB {
		db, err := database.Open(cfg.DBDir, database.DefaultOptions())
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer db.Close()
		r.db = db
		logger.Info("database opened", "path", db.Path())
	}

	if cfg.ProxyAddress != "" {
		if err := fetch.CheckProxy(ctx, cfg.ProxyAddress); err != nil {
			return fmt.Errorf("proxy check failed for %s: %w", cfg.ProxyAddress, err)
		}
	}

	if cfg.UseTor {
		fmt.Fprintln(errOut, "Starting embedded Tor daemon...")
		fmt.Fprintf(errOut, "This may take 1-3 minutes while Tor bootstraps.\n\n")
		tor, err := fetch.StartTor(ctx, cfg.TorStartupTimeout)
		if err != nil {
			return err
		}
		defer func() {
			logger.Info("stopping embedded Tor daemon")
			if err := tor.Stop(); err != nil {
				logger.Error("failed to stop embedded Tor", "error", err)
			}
		}()
		r.proxyAddr = tor.SocksAddr()
		logger.Info("embedded Tor daemon started", "socks_addr", r.proxyAddr)
	}

	bp := pipeline.NewBatchProcessor(r.crawlSite,
		pipeline.WithConcurrency(cfg.BatchSize),
		pipeline.WithBatchLogger(logger),
	)

	var (
		mu     sync.Mutex
		failed int
	)
	bp.ProcessBatchWithCallback(ctx, cfg.Seeds, func(res pipeline.BatchResult[string, *siteRun]) {
		mu.Lock()
		defer mu.Unlock()

		if res.Value == nil {
			failed++
			fmt.Fprintf(errOut, "Crawl failed for %s: %v\n", res.Input, res.Err)
			return
		}
		if err := r.finish(ctx, res.Value); err != nil {
			failed++
			logger.Error("failed to record crawl", "seed", res.Input, "error", err)
			fmt.Fprintf(errOut, "Crawl of %s could not be recorded: %v\n", res.Input, err)
		}
	})

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("crawl interrupted: %w", err)
	}
	if failed > 0 {
		return fmt.Errorf("%w: %d of %d", errCrawlsFailed, failed, len(cfg.Seeds))
	}
	return nil
}

// crawlSite runs one crawl session for seed with its site settings applied.
func (r *crawlRunner) crawlSite(ctx context.Context, seed string) (*siteRun, error) {
	u, err := url.Parse(seed)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", config.ErrInvalidSeedURL, err)
	}
	host := strings.ToLower(u.Hostname())
	siteCfg, site := r.cfg.ForSite(host)

	headers := make(map[string]string, len(r.cfg.Headers)+len(site.Headers))
	maps.Copy(headers, r.cfg.Headers)
	maps.Copy(headers, site.Headers)

	clientOpts := []fetch.Option{
		fetch.WithUserAgent(siteCfg.UserAgent),
		fetch.WithTimeout(siteCfg.Timeout),
		fetch.WithMaxBodySize(siteCfg.MaxBodySize),
		fetch.WithHeaders(headers),
	}
	if r.proxyAddr != "" {
		clientOpts = append(clientOpts, fetch.WithProxy(r.proxyAddr))
	}
	client, err := fetch.NewClient(clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP client: %w", err)
	}

	// Pages are processed one at a time, so the map needs no lock.
	digests := make(map[string]string)
	recordDigest := pipeline.NewStep("body-digest", func(_ context.Context, pc *crawler.PageContext) error {
		if pc.Response != nil {
			digests[pc.URL] = pc.Response.Digest
		}
		return nil
	})

	spider, err := crawler.NewSpider(client, seed,
		crawler.WithMaxPages(siteCfg.MaxPages),
		crawler.WithSameDomainOnly(siteCfg.SameDomainOnly),
		crawler.WithWorkers(siteCfg.Workers),
		crawler.WithDelay(siteCfg.CrawlDelay),
		crawler.WithLogger(r.logger.With("site", host)),
		crawler.WithIgnorePatterns(slices.Concat(r.cfg.IgnorePatterns, site.IgnorePatterns)),
		crawler.WithFollowPatterns(slices.Concat(r.cfg.FollowPatterns, site.FollowPatterns)),
		crawler.WithExtraSteps(recordDigest),
	)
	if err != nil {
		return nil, err
	}

	fmt.Fprintf(r.errOut, "Crawling %s (max %d pages)...\n", spider.SeedURL(), siteCfg.MaxPages)
	started := time.Now()
	result, err := spider.Crawl(ctx)
	if result == nil {
		return nil, err
	}

	return &siteRun{
		seed:       spider.SeedURL(),
		domain:     spider.Domain(),
		result:     result,
		stats:      spider.Stats(),
		startedAt:  started,
		finishedAt: time.Now(),
		digests:    digests,
	}, nil
}

// finish writes the report, prints the summary and stores the run.
// Interrupted runs are recorded too.
func (r *crawlRunner) finish(ctx context.Context, run *siteRun) error {
	path, err := r.writeReport(run)
	if err != nil {
		return err
	}

	summary := report.NewSummary(run.result, report.RunInfo{
		SeedURL:     run.seed,
		StartedAt:   run.startedAt,
		Duration:    run.finishedAt.Sub(run.startedAt),
		Interrupted: run.stats.Interrupted,
		FetchErrors: run.stats.FetchErrors,
	})
	sw := report.NewSimpleWriter(r.errOut,
		report.WithVerbose(r.cfg.Verbose),
		report.WithShowEmpty(r.cfg.Verbose),
	)
	if _, err := sw.WriteSummary(summary); err != nil {
		return fmt.Errorf("failed to print summary: %w", err)
	}
	if path != stdoutPath {
		fmt.Fprintf(r.errOut, "Report written to %s\n\n", path)
	}

	if r.db == nil {
		return nil
	}
	// Store the run even when the crawl context was cancelled.
	id, err := r.db.SaveResult(context.WithoutCancel(ctx), &database.Run{
		SeedURL:     run.seed,
		StartedAt:   run.startedAt,
		FinishedAt:  run.finishedAt,
		Interrupted: run.stats.Interrupted,
		Result:      run.result,
		BodyDigests: run.digests,
	})
	if err != nil {
		return fmt.Errorf("failed to save crawl result: %w", err)
	}
	r.logger.Info("crawl result saved", "domain", run.domain, "run_id", id)
	return nil
}

// reportPath returns where the report for domain goes.
func (r *crawlRunner) reportPath(domain string) string {
	if r.cfg.OutputFile != "" {
		return r.cfg.OutputFile
	}
	return filepath.Join(r.cfg.OutputDir, report.DefaultFileName(domain, r.cfg.Format))
}

// writeReport writes the result bundle and returns the path written.
func (r *crawlRunner) writeReport(run *siteRun) (string, error) {
	path := r.reportPath(run.domain)
	if path == stdoutPath {
		return path, writeResult(r.out, r.cfg.Format, run.result)
	}

	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return "", fmt.Errorf("failed to create output directory: %w", err)
		}
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600) //nolint:gosec // path comes from the user
	if err != nil {
		return "", fmt.Errorf("failed to create output file: %w", err)
	}
	defer f.Close()

	if err := writeResult(f, r.cfg.Format, run.result); err != nil {
		return "", err
	}
	return path, nil
}

func writeResult(w io.Writer, format string, result *model.Result) error {
	rw, err := report.NewWriter(format, w)
	if err != nil {
		return err
	}
	if _, err := rw.Write(result); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}

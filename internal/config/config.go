package config

import (
	"fmt"
	"net/url"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
)

// Default configuration values.
const (
	// AppName is used for XDG directory paths.
	AppName = "readyscan"

	// DefaultMaxPages keeps a default crawl small.
	DefaultMaxPages = 10

	// DefaultTimeout bounds a single page request.
	DefaultTimeout = 10 * time.Second

	// DefaultCrawlDelay is the minimum interval between two requests.
	DefaultCrawlDelay = 1 * time.Second

	// DefaultWorkers is the number of pages fetched concurrently per site.
	DefaultWorkers = 1

	// DefaultBatchSize is the number of sites crawled concurrently.
	DefaultBatchSize = 4

	// DefaultUserAgent identifies readyscan in HTTP requests.
	DefaultUserAgent = "readyscan/1.0 (+https://github.com/nao1215/readyscan)"

	// DefaultMaxBodySize limits how much of a response is read.
	DefaultMaxBodySize = 5 * 1024 * 1024

	// DefaultTorStartupTimeout bounds the embedded Tor bootstrap.
	DefaultTorStartupTimeout = 3 * time.Minute
)

// Report formats accepted in Config.Format.
const (
	FormatJSON     = "json"
	FormatYAML     = "yaml"
	FormatMarkdown = "markdown"
)

// Config holds every option of a readyscan run. It is filled from CLI flags
// and the optional YAML file, validated once, then passed down explicitly.
type Config struct {
	// Seeds are the start URLs. Each seed is crawled by its own session.
	Seeds []string

	// MaxPages is the per-site budget of visited URLs, failed fetches included.
	MaxPages int

	// SameDomainOnly restricts the frontier to the seed's host.
	SameDomainOnly bool

	// Workers is the number of concurrent fetches within one site.
	// Page processing stays sequential in frontier order.
	Workers int

	// BatchSize is the number of sites crawled concurrently.
	BatchSize int

	// Timeout applies to each HTTP request.
	Timeout time.Duration

	// CrawlDelay is the minimum interval between requests to a site.
	// Zero disables rate limiting.
	CrawlDelay time.Duration

	UserAgent   string
	MaxBodySize int64

	// Headers are added to every request. Per-site headers from the YAML
	// file take precedence.
	Headers map[string]string

	// IgnorePatterns and FollowPatterns are path globs applied to every
	// site in addition to the per-site patterns from the YAML file.
	IgnorePatterns []string
	FollowPatterns []string

	// ProxyAddress routes requests through a SOCKS5 proxy (host:port).
	ProxyAddress string

	// UseTor starts an embedded Tor daemon and crawls through it.
	UseTor bool

	TorStartupTimeout time.Duration

	Verbose bool

	// Format is one of FormatJSON, FormatYAML or FormatMarkdown.
	Format string

	// OutputFile is the report path. "-" writes to stdout. Empty derives
	// "<domain>_crawl_results.<ext>" inside OutputDir.
	OutputFile string

	// OutputDir is where derived report files are written.
	OutputDir string

	// ConfigFilePath is an explicit YAML file. Empty searches the current
	// and home directories for DefaultConfigFile.
	ConfigFilePath string

	// SiteConfigs holds per-site settings loaded from the YAML file.
	SiteConfigs *File

	// DBDir is the crawl history directory. Defaults to XDGDataDir().
	DBDir string

	// SaveToDB stores each result in the history database.
	SaveToDB bool
}

// NewConfig returns a Config populated with defaults.
func NewConfig() *Config {
	return &Config{
		MaxPages:          DefaultMaxPages,
		SameDomainOnly:    true,
		Workers:           DefaultWorkers,
		BatchSize:         DefaultBatchSize,
		Timeout:           DefaultTimeout,
		CrawlDelay:        DefaultCrawlDelay,
		UserAgent:         DefaultUserAgent,
		MaxBodySize:       DefaultMaxBodySize,
		TorStartupTimeout: DefaultTorStartupTimeout,
		Format:            FormatJSON,
		OutputDir:         ".",
		DBDir:             XDGDataDir(),
		SaveToDB:          true,
	}
}

// XDGDataDir returns the data directory, e.g. ~/.local/share/readyscan.
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the config directory, e.g. ~/.config/readyscan.
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// Validate returns the first problem found, wrapping one of the sentinel
// errors in errors.go.
func (c *Config) Validate() error {
	if len(c.Seeds) == 0 {
		return ErrNoSeed
	}
	for _, seed := range c.Seeds {
		if err := ValidateSeed(seed); err != nil {
			return err
		}
	}
	if c.MaxPages <= 0 {
		return ErrInvalidMaxPages
	}
	if c.Timeout <= 0 {
		return ErrInvalidTimeout
	}
	if c.Workers <= 0 {
		return ErrInvalidWorkers
	}
	if c.BatchSize <= 0 {
		return ErrInvalidBatchSize
	}
	if c.CrawlDelay < 0 {
		return ErrInvalidCrawlDelay
	}
	if c.MaxBodySize < 0 {
		return ErrInvalidMaxBodySize
	}
	switch c.Format {
	case FormatJSON, FormatYAML, FormatMarkdown:
	default:
		return fmt.Errorf("%w: %q", ErrInvalidFormat, c.Format)
	}
	if c.UseTor && c.ProxyAddress != "" {
		return ErrConflictingProxy
	}
	return nil
}

// ValidateSeed checks that seed is an absolute http or https URL with a host.
func ValidateSeed(seed string) error {
	u, err := url.Parse(seed)
	if err != nil {
		return fmt.Errorf("%w: %q: %w", ErrInvalidSeedURL, seed, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: %q", ErrInvalidSeedURL, seed)
	}
	return nil
}

// ForSite returns a copy of c with the settings of the YAML section for
// host applied. Fields unset in the file keep the values in c.
func (c *Config) ForSite(host string) (*Config, SiteConfig) {
	out := *c
	if c.SiteConfigs == nil {
		return &out, SiteConfig{}
	}

	site := c.SiteConfigs.GetSiteConfig(host)
	if site.MaxPages > 0 {
		out.MaxPages = site.MaxPages
	}
	if site.SameDomainOnly != nil {
		out.SameDomainOnly = *site.SameDomainOnly
	}
	if site.CrawlDelay > 0 {
		out.CrawlDelay = site.CrawlDelay
	}
	return &out, site
}

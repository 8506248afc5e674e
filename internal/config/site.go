package config

import (
	"maps"
	"time"
)

// SiteConfig holds settings for one site, keyed by host in File.Sites.
type SiteConfig struct {
	// Headers are added to every request to this site.
	Headers map[string]string `yaml:"headers,omitempty"`

	// MaxPages overrides the page budget when positive.
	MaxPages int `yaml:"maxPages,omitempty"`

	// SameDomainOnly overrides the scope when set.
	SameDomainOnly *bool `yaml:"sameDomainOnly,omitempty"`

	// CrawlDelay overrides the request interval when positive ("2s").
	CrawlDelay time.Duration `yaml:"crawlDelay,omitempty"`

	// IgnorePatterns are path globs never enqueued.
	IgnorePatterns []string `yaml:"ignorePatterns,omitempty"`

	// FollowPatterns, when set, are the only path globs enqueued.
	FollowPatterns []string `yaml:"followPatterns,omitempty"`
}

// File is the YAML configuration file.
type File struct {
	// Sites maps a host such as "example.com" to its settings.
	Sites map[string]SiteConfig `yaml:"sites,omitempty"`

	// Defaults apply to every site unless overridden.
	Defaults SiteConfig `yaml:"defaults,omitempty"`
}

// GetSiteConfig merges the section for host over Defaults. Headers are
// merged key by key; other fields are replaced when set. The returned value
// shares no maps with the file.
func (cf *File) GetSiteConfig(host string) SiteConfig {
	result := cf.Defaults
	result.Headers = maps.Clone(cf.Defaults.Headers)

	site, ok := cf.Sites[host]
	if !ok {
		return result
	}

	if len(site.Headers) > 0 {
		if result.Headers == nil {
			result.Headers = make(map[string]string, len(site.Headers))
		}
		maps.Copy(result.Headers, site.Headers)
	}
	if site.MaxPages != 0 {
		result.MaxPages = site.MaxPages
	}
	if site.SameDomainOnly != nil {
		result.SameDomainOnly = site.SameDomainOnly
	}
	if site.CrawlDelay != 0 {
		result.CrawlDelay = site.CrawlDelay
	}
	if len(site.IgnorePatterns) > 0 {
		result.IgnorePatterns = site.IgnorePatterns
	}
	if len(site.FollowPatterns) > 0 {
		result.FollowPatterns = site.FollowPatterns
	}
	return result
}

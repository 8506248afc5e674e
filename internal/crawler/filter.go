package crawler

import (
	"fmt"
	"net/url"
	"path"
	"strings"

	"github.com/gobwas/glob"
)

// Membership reports whether a URL is in a set.
type Membership interface {
	Contains(u string) bool
}

// Verdict is the outcome of Filter.Check.
type Verdict int

const (
	// Accepted means the URL may enter the frontier.
	Accepted Verdict = iota
	RejectEmpty
	RejectInvalid
	RejectVisited
	RejectFragment
	RejectOffSite
	RejectExtension
	RejectPattern
)

// String returns a short name for logs.
func (v Verdict) String() string {
	switch v {
	case Accepted:
		return "accepted"
	case RejectEmpty:
		return "empty"
	case RejectInvalid:
		return "invalid"
	case RejectVisited:
		return "visited"
	case RejectFragment:
		return "fragment"
	case RejectOffSite:
		return "off-site"
	case RejectExtension:
		return "non-content extension"
	case RejectPattern:
		return "pattern"
	default:
		return "unknown"
	}
}

// nonContentExtensions are path suffixes of resources that are never HTML.
var nonContentExtensions = []string{
	".jpg", ".jpeg", ".png", ".gif", ".webp", ".svg", ".ico", ".bmp", ".tif", ".tiff", ".avif",
	".pdf",
	".zip", ".gz", ".tgz", ".tar", ".rar", ".7z", ".bz2", ".xz",
	".css",
	".js", ".mjs",
	".mp3", ".mp4", ".webm", ".avi", ".mov", ".wav", ".ogg",
	".woff", ".woff2", ".ttf", ".otf", ".eot",
	".exe", ".dmg", ".apk",
}

// Filter decides whether a discovered URL may enter the frontier.
// It has no state beyond its configuration and is safe for concurrent use.
type Filter struct {
	seedHost       string
	sameDomainOnly bool
	ignore         []glob.Glob
	follow         []glob.Glob
}

// NewFilter returns a Filter scoped to seedHost. Ignore and follow patterns
// are globs over the URL path where "*" stays within one segment and "**"
// spans segments. A pattern without "/" is matched against the last path
// segment only, so "*.xml" matches "/feeds/all.xml".
func NewFilter(seedHost string, sameDomainOnly bool, ignore, follow []string) (*Filter, error) {
	f := &Filter{
		seedHost:       strings.ToLower(seedHost),
		sameDomainOnly: sameDomainOnly,
	}
	var err error
	if f.ignore, err = compilePatterns(ignore); err != nil {
		return nil, err
	}
	if f.follow, err = compilePatterns(follow); err != nil {
		return nil, err
	}
	return f, nil
}

func compilePatterns(patterns []string) ([]glob.Glob, error) {
	out := make([]glob.Glob, 0, len(patterns))
	for _, p := range patterns {
		g, err := glob.Compile(p, '/')
		if err != nil {
			return nil, fmt.Errorf("%w %q: %w", ErrInvalidPattern, p, err)
		}
		out = append(out, patternGlob{Glob: g, segment: !strings.Contains(p, "/")})
	}
	return out, nil
}

// patternGlob matches a segment-only pattern against the last path segment.
type patternGlob struct {
	glob.Glob
	segment bool
}

func (g patternGlob) Match(p string) bool {
	if g.segment {
		return g.Glob.Match(path.Base(p))
	}
	return g.Glob.Match(p)
}

// Accept reports whether candidate may enter the frontier given the set of
// already visited URLs.
func (f *Filter) Accept(candidate string, visited Membership) bool {
	return f.Check(candidate, visited) == Accepted
}

// Check applies the rules in order and returns the first one that rejects
// candidate, or Accepted. It does not modify visited.
func (f *Filter) Check(candidate string, visited Membership) Verdict {
	if candidate == "" {
		return RejectEmpty
	}
	u, err := url.Parse(candidate)
	if err != nil {
		return RejectInvalid
	}
	if visited != nil && visited.Contains(candidate) {
		return RejectVisited
	}
	if u.Fragment != "" {
		return RejectFragment
	}
	if f.sameDomainOnly && !f.IsInternal(u) {
		return RejectOffSite
	}
	if hasNonContentExtension(u.Path) {
		return RejectExtension
	}
	if !f.matchesPatterns(u.Path) {
		return RejectPattern
	}
	return Accepted
}

// IsInternal reports whether u is on the seed host.
func (f *Filter) IsInternal(u *url.URL) bool {
	return strings.EqualFold(u.Host, f.seedHost)
}

func (f *Filter) matchesPatterns(p string) bool {
	if p == "" {
		p = "/"
	}
	for _, g := range f.ignore {
		if g.Match(p) {
			return false
		}
	}
	if len(f.follow) == 0 {
		return true
	}
	for _, g := range f.follow {
		if g.Match(p) {
			return true
		}
	}
	return false
}

func hasNonContentExtension(p string) bool {
	p = strings.ToLower(p)
	for _, ext := range nonContentExtensions {
		if strings.HasSuffix(p, ext) {
			return true
		}
	}
	return false
}

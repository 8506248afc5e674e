package model

import "strings"

// Result is the bundle a crawl session produces.
type Result struct {
	Metadata SiteMetadata `json:"metadata" yaml:"metadata"`

	// Pages is in crawl-completion order. Failed fetches have no entry.
	Pages []PageRecord `json:"pages" yaml:"pages"`

	StructuredData []StructuredDataRecord `json:"structured_data" yaml:"structured_data"`
}

// NewResult returns an empty bundle for domain with non-nil slices, so an
// empty crawl serialises as [] rather than null.
func NewResult(domain string) *Result {
	return &Result{
		Metadata:       NewSiteMetadata(domain),
		Pages:          []PageRecord{},
		StructuredData: []StructuredDataRecord{},
	}
}

// FileStem returns the domain with dots and colons replaced by underscores,
// suitable as the leading part of an output file name.
func FileStem(domain string) string {
	return strings.NewReplacer(".", "_", ":", "_").Replace(domain)
}

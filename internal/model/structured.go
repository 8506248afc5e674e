package model

// StructuredDataKind tells how a structured-data record was embedded in a page.
type StructuredDataKind string

const (
	// KindEmbedded is a self-contained data block such as a JSON-LD script.
	KindEmbedded StructuredDataKind = "embedded"

	// KindAttribute is a set of attribute annotations such as microdata.
	KindAttribute StructuredDataKind = "attribute"
)

// Type labels carried by StructuredDataRecord.Type.
const (
	TypeJSONLD    = "JSON-LD"
	TypeMicrodata = "Microdata"
)

// MicrodataItem is one element carrying itemscope and a non-empty itemtype.
type MicrodataItem struct {
	Type string `json:"type" yaml:"type"`
	URL  string `json:"url" yaml:"url"`
}

// StructuredDataRecord is one piece of machine-readable metadata found on a
// page. Records are appended in discovery order and never deduplicated.
type StructuredDataRecord struct {
	// URL is the page the data was found on.
	URL string `json:"url" yaml:"url"`

	// Kind is KindEmbedded or KindAttribute.
	Kind StructuredDataKind `json:"kind" yaml:"kind"`

	// Type is TypeJSONLD or TypeMicrodata.
	Type string `json:"type" yaml:"type"`

	// Data is the decoded JSON-LD value, or []MicrodataItem for microdata.
	Data any `json:"data" yaml:"data"`
}

// Package model defines the data structures produced by a readyscan crawl.
//
// The result bundle is the only artifact other components consume:
//   - Result: the bundle itself ({metadata, pages, structured_data})
//   - SiteMetadata: site-wide aggregate counters and flags
//   - PageRecord: the extracted content of one fetched page
//   - StructuredDataRecord: one JSON-LD block or one page's microdata items
//
// All types serialise to JSON and YAML with the same field names, so a
// bundle written in either format reads back into an equal value.
package model

// Package report writes crawl results.
//
// Writers:
//   - JSONWriter and YAMLWriter: the result bundle for other tools
//   - MarkdownWriter: a shareable document with tables and a heading chart
//   - SimpleWriter: a plain-text overview for the terminal
//
// Every writer can also emit a Summary, the condensed view built by
// NewSummary: page and word counts, schema types, and the pages with
// thin content, no h1 or no meta description.
//
// NewWriter picks a writer by format name and DefaultFileName derives the
// report file name from the crawled domain.
package report

// Package pipeline runs ordered processing steps over a value and fans
// independent jobs out with bounded concurrency.
//
// A Pipeline holds named Steps that run in order over one item. The
// crawler drives every fetched page through a pipeline of per-page steps
// (links, structured data, content, then any extra steps a caller adds).
// A failing step stops the pipeline unless WithContinueOnError is set;
// WithAtomic skips the cancellation check between steps so that a page is
// either fully processed or not at all.
//
// A BatchProcessor runs one job per input with at most WithConcurrency jobs
// in flight, using errgroup. The CLI uses it to crawl several seeds at
// once and handles each result in a callback as soon as its crawl ends.
package pipeline

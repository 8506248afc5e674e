// Package main provides the entry point for the readyscan CLI.
//
// readyscan crawls a website breadth-first and reports how ready its pages
// are for AI search: text content, heading structure, structured data and
// question/answer pairs.
//
// Usage:
//
//	readyscan crawl https://example.com
//	readyscan history example.com
//
// See --help for all available options.
package main

func main() {
	Execute()
}

// Package config holds readyscan's runtime configuration: crawl limits,
// fetch settings, report output, and per-site overrides read from a YAML
// file such as:
//
//	defaults:
//	  crawlDelay: 2s
//	sites:
//	  example.com:
//	    maxPages: 50
//	    ignorePatterns: ["/tag/*", "*.xml"]
//	    headers:
//	      X-Audit: readyscan
package config

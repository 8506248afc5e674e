// Package fetch retrieves HTML pages for the crawler.
//
// A Client issues GET requests with browser-like headers and returns the
// response body decoded to UTF-8. Only 2xx responses with an HTML content
// type are accepted; everything else is reported as a *Error so the crawler
// can skip the page and continue.
//
// Each Response carries the SHA3-256 digest of the raw, undecoded body,
// which the history database stores next to each page.
//
// # Proxies
//
// Requests can be routed through a SOCKS5 proxy, either one already running
// or an embedded Tor daemon started with StartTor. CheckProxy performs a
// SOCKS5 handshake so that a wrong address fails before any page is
// requested, rather than as one fetch error per page.
package fetch

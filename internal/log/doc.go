// Package log builds slog loggers that mask credentials, on top of the
// standard log/slog package.
//
// It provides:
//   - SecureHandler, an slog.Handler wrapper that sanitizes every record
//   - NewSecureLogger and NewSecureJSONLogger for text and JSON output
//   - Warn level by default, Debug level in verbose mode
//
// # Sanitization
//
// Crawled URLs and configured request headers can carry secrets. The
// handler masks:
//   - values of sensitive keys (Authorization, Cookie, Set-Cookie,
//     X-Api-Key, and any key containing "password", "secret" or "token")
//   - token-shaped values (JWTs, bearer and basic credentials, AWS keys)
//   - user passwords and sensitive query parameters (token, api_key, sig,
//     ...) in URLs, whether the URL is a string value, a *url.URL, or text
//     inside another value such as an error message
//
// The rest of a URL stays readable, so logs still show which page failed.
// Masking also applies in verbose mode.
//
// # Usage
//
//	logger := log.NewSecureLogger(os.Stderr, verbose)
//	logger.Warn("fetch failed", "url", "https://example.com/?token=abc")
//	// url="https://example.com/?token=%2A%2A%2AREDACTED%2A%2A%2A"
//
// The CLI passes the same logger to every crawl session and to the batch
// processor, tagging each session's records with its site.
package log

// Package log provides secure logging for sitecrawl, built on top of the
// standard slog package.
//
// The SecureHandler masks sensitive information before it reaches the
// output:
//   - HTTP headers a site config may inject (Authorization, Cookie, X-Api-Key)
//   - values that look like credentials (JWTs, bearer tokens, AWS keys)
//   - passwords in URL user info and sensitive query parameters such as
//     token, api_key or jsessionid, including URLs embedded in error messages
//
// Crawled URLs are logged at debug level for every fetch, so redaction
// applies in verbose mode as well.
//
// # Usage
//
//	logger := log.NewLogger(os.Stderr, verbose)
//	logger.Debug("fetching", "url", "https://example.com/?token=abc")
//	// url="https://example.com/?token=***REDACTED***"
package log

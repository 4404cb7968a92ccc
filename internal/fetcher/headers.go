package fetcher

import (
	"maps"
	"net/http"
)

// WithHeaders adds headers to every request. They override the defaults,
// User-Agent included.
func WithHeaders(headers map[string]string) Option {
	return func(c *Client) {
		if len(headers) > 0 {
			c.headers = maps.Clone(headers)
		}
	}
}

// WithCookie sends cookie with every request, after any cookie the jar
// already supplies.
func WithCookie(cookie string) Option {
	return func(c *Client) {
		c.cookie = cookie
	}
}

// withInjectedHeaders returns a shallow copy of hc whose transport adds
// cookie and headers. hc itself is left untouched.
func withInjectedHeaders(hc *http.Client, cookie string, headers map[string]string) *http.Client {
	if cookie == "" && len(headers) == 0 {
		return hc
	}
	base := hc.Transport
	if base == nil {
		base = http.DefaultTransport
	}
	clone := *hc
	clone.Transport = &headerTransport{base: base, cookie: cookie, headers: headers}
	return &clone
}

// headerTransport injects a cookie and fixed headers into every request.
type headerTransport struct {
	base    http.RoundTripper
	cookie  string
	headers map[string]string
}

// RoundTrip implements http.RoundTripper.
func (t *headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	clone := req.Clone(req.Context())

	if t.cookie != "" {
		if existing := clone.Header.Get("Cookie"); existing != "" {
			clone.Header.Set("Cookie", existing+"; "+t.cookie)
		} else {
			clone.Header.Set("Cookie", t.cookie)
		}
	}
	for key, value := range t.headers {
		clone.Header.Set(key, value)
	}

	return t.base.RoundTrip(clone)
}

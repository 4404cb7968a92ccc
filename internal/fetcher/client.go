package fetcher

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/cookiejar"
	"time"
)

// Defaults used by New when no option overrides them.
const (
	// DefaultTimeout bounds a single request, body included.
	DefaultTimeout = 10 * time.Second

	// DefaultUserAgent identifies the crawler to servers.
	DefaultUserAgent = "sitecrawl/1.0 (+https://github.com/nao1215/sitecrawl)"

	// DefaultMaxBodySize caps how much of a response body is read.
	// Larger bodies are truncated, not rejected.
	DefaultMaxBodySize int64 = 5 * 1024 * 1024

	// maxRedirects stops redirect loops. The last redirect response is
	// returned as is once the limit is reached.
	maxRedirects = 10
)

// Outcome is the result of one request. Exactly one of Err and StatusCode
// is meaningful: Err is set when no HTTP response was received.
type Outcome struct {
	// URL is the requested URL.
	URL string

	// FinalURL is the URL of the last request after redirects. Relative
	// links in the body resolve against it.
	FinalURL string

	// StatusCode is the HTTP status of the final response.
	StatusCode int

	// ContentType is the raw Content-Type header of the response.
	ContentType string

	// Body holds at most the configured maximum body size.
	Body []byte

	// Attempts is how many requests were made to produce this outcome.
	Attempts int

	// Err is the transport failure, if any.
	Err error
}

// Failed reports whether no HTTP response was obtained.
func (o *Outcome) Failed() bool {
	return o.Err != nil
}

// RetryHook is called before every retry with the attempt that just failed
// (starting at 1) and its error.
type RetryHook func(url string, attempt int, err error)

// Client performs bounded HTTP requests.
type Client struct {
	httpClient  *http.Client
	timeout     time.Duration
	userAgent   string
	maxBodySize int64
	onRetry     RetryHook
	headers     map[string]string
	cookie      string
	logger      *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout sets the per-request timeout. Zero disables it.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.timeout = d
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		if ua != "" {
			c.userAgent = ua
		}
	}
}

// WithMaxBodySize sets the maximum number of body bytes read per response.
func WithMaxBodySize(size int64) Option {
	return func(c *Client) {
		if size > 0 {
			c.maxBodySize = size
		}
	}
}

// WithHTTPClient replaces the underlying HTTP client. Tests use it to talk
// to httptest servers.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithRetryHook registers a function observing every retry.
func WithRetryHook(hook RetryHook) Option {
	return func(c *Client) {
		c.onRetry = hook
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New creates a Client.
func New(opts ...Option) *Client {
	c := &Client{
		timeout:     DefaultTimeout,
		userAgent:   DefaultUserAgent,
		maxBodySize: DefaultMaxBodySize,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.httpClient == nil {
		c.httpClient = NewHTTPClient(c.timeout)
	}
	c.httpClient = withInjectedHeaders(c.httpClient, c.cookie, c.headers)
	return c
}

// NewHTTPClient returns an HTTP client with dial, TLS and overall timeouts,
// a cookie jar and a redirect limit.
func NewHTTPClient(timeout time.Duration) *http.Client {
	dialer := &net.Dialer{
		Timeout:   timeout,
		KeepAlive: 30 * time.Second,
	}

	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           dialer.DialContext,
		TLSHandshakeTimeout:   timeout,
		ResponseHeaderTimeout: timeout,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   4,
		IdleConnTimeout:       90 * time.Second,
	}

	jar, _ := cookiejar.New(nil) //nolint:errcheck // cookiejar.New only fails with invalid options

	return &http.Client{
		Transport: transport,
		Timeout:   timeout,
		Jar:       jar,
		CheckRedirect: func(_ *http.Request, via []*http.Request) error {
			if len(via) >= maxRedirects {
				return http.ErrUseLastResponse
			}
			return nil
		},
	}
}

// Fetch issues a single GET for url and reads the body.
func (c *Client) Fetch(ctx context.Context, url string) *Outcome {
	return c.do(ctx, http.MethodGet, url)
}

// Head issues a single HEAD for url. The returned Outcome has no body.
func (c *Client) Head(ctx context.Context, url string) *Outcome {
	return c.do(ctx, http.MethodHead, url)
}

func (c *Client) do(ctx context.Context, method, url string) *Outcome {
	out := &Outcome{URL: url, Attempts: 1}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, method, url, nil)
	if err != nil {
		out.Err = fmt.Errorf("build request: %w", err)
		return out
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		out.Err = err
		return out
	}
	defer resp.Body.Close()

	out.StatusCode = resp.StatusCode
	out.FinalURL = resp.Request.URL.String()
	out.ContentType = resp.Header.Get("Content-Type")

	if method == http.MethodHead {
		return out
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBodySize))
	if err != nil {
		out.StatusCode = 0
		out.Err = fmt.Errorf("read body: %w", err)
		return out
	}
	out.Body = body

	return out
}

package fetcher

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/net/proxy"
)

// ErrUnsupportedProxy is returned for a proxy URL whose scheme is not one of
// http, https, socks5 or socks5h.
var ErrUnsupportedProxy = errors.New("unsupported proxy scheme: use http, https, socks5 or socks5h")

// ParseProxy checks a proxy URL and returns it parsed.
func ParseProxy(raw string) (*url.URL, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid proxy url: %w", err)
	}
	switch u.Scheme {
	case "http", "https", "socks5", "socks5h":
	default:
		return nil, ErrUnsupportedProxy
	}
	if u.Host == "" {
		return nil, fmt.Errorf("invalid proxy url %q: missing host", raw)
	}
	return u, nil
}

// NewProxyHTTPClient is NewHTTPClient routed through the proxy at rawProxy.
// HTTP(S) proxies are used through CONNECT; SOCKS5 proxies replace the
// dialer, so name resolution happens at the proxy.
func NewProxyHTTPClient(timeout time.Duration, rawProxy string) (*http.Client, error) {
	hc := NewHTTPClient(timeout)
	if rawProxy == "" {
		return hc, nil
	}

	u, err := ParseProxy(rawProxy)
	if err != nil {
		return nil, err
	}

	transport, ok := hc.Transport.(*http.Transport)
	if !ok {
		return nil, errors.New("unexpected transport type")
	}

	switch u.Scheme {
	case "http", "https":
		transport.Proxy = http.ProxyURL(u)
	default:
		forward := &net.Dialer{Timeout: timeout, KeepAlive: 30 * time.Second}
		dialer, err := proxy.FromURL(u, forward)
		if err != nil {
			return nil, fmt.Errorf("failed to create SOCKS5 dialer: %w", err)
		}
		transport.Proxy = nil
		transport.DialContext = contextDialer(dialer)
	}
	return hc, nil
}

// contextDialer adapts d to http.Transport.DialContext. The SOCKS5 dialer
// of x/net supports contexts directly; other dialers are wrapped so that a
// cancelled context stops waiting for the connection.
func contextDialer(d proxy.Dialer) func(ctx context.Context, network, addr string) (net.Conn, error) {
	if cd, ok := d.(proxy.ContextDialer); ok {
		return cd.DialContext
	}

	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		type dialResult struct {
			conn net.Conn
			err  error
		}
		done := make(chan dialResult, 1)
		go func() {
			conn, err := d.Dial(network, addr)
			done <- dialResult{conn, err}
		}()

		select {
		case <-ctx.Done():
			go func() {
				if r := <-done; r.conn != nil {
					_ = r.conn.Close() //nolint:errcheck // nobody is waiting for it
				}
			}()
			return nil, ctx.Err()
		case r := <-done:
			return r.conn, r.err
		}
	}
}

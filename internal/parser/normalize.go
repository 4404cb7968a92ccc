package parser

import (
	"fmt"
	"net/url"
	"strings"
)

// Schemes that survive normalization.
const (
	schemeHTTP  = "http"
	schemeHTTPS = "https"
)

// wwwPrefix marks a scheme-less host such as "www.example.com/page" that is
// still treated as an absolute link.
const wwwPrefix = "www."

// Normalize resolves raw against base and returns the canonical absolute form
// used for deduplication: http or https scheme, lower-case scheme and host,
// no fragment, and "/" for an empty path.
//
// base may be empty, in which case raw must already be absolute. Every
// returned error matches ErrInvalidURL.
//
// Normalize is idempotent: normalizing its own output against any base
// returns the same string.
func Normalize(base, raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", ErrEmptyHref
	}
	if strings.HasPrefix(raw, "#") {
		return "", ErrFragmentOnly
	}
	if strings.HasPrefix(strings.ToLower(raw), wwwPrefix) {
		raw = schemeHTTP + "://" + raw
	}

	ref, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrMalformed, err.Error())
	}
	if ref.Scheme != "" && !isWebScheme(ref.Scheme) {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedScheme, ref.Scheme)
	}

	resolved := ref
	if !ref.IsAbs() {
		if base == "" {
			return "", ErrNotAbsolute
		}
		baseURL, err := url.Parse(strings.TrimSpace(base))
		if err != nil {
			return "", fmt.Errorf("%w: base: %s", ErrMalformed, err.Error())
		}
		if !baseURL.IsAbs() || !isWebScheme(baseURL.Scheme) {
			return "", fmt.Errorf("%w: base %q", ErrNotAbsolute, base)
		}
		resolved = baseURL.ResolveReference(ref)
	}

	return canonical(resolved)
}

// NormalizeSeed normalizes a user-supplied start URL, which has no page to be
// resolved against.
func NormalizeSeed(raw string) (string, error) {
	return Normalize("", raw)
}

// Host returns the lower-cased host name (without port) of an absolute URL,
// or an empty string if u cannot be parsed.
func Host(u string) string {
	parsed, err := url.Parse(u)
	if err != nil {
		return ""
	}
	return strings.ToLower(parsed.Hostname())
}

func canonical(u *url.URL) (string, error) {
	u.Scheme = strings.ToLower(u.Scheme)
	if !isWebScheme(u.Scheme) {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedScheme, u.Scheme)
	}
	if u.Host == "" || u.Opaque != "" {
		return "", ErrNotAbsolute
	}

	u.Host = strings.ToLower(u.Host)
	u.Fragment = ""
	u.RawFragment = ""
	if u.Path == "" {
		u.Path = "/"
		u.RawPath = ""
	}

	return u.String(), nil
}

func isWebScheme(scheme string) bool {
	s := strings.ToLower(scheme)
	return s == schemeHTTP || s == schemeHTTPS
}

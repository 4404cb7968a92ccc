package parser

import "errors"

// ErrInvalidURL is matched by every error returned from Normalize.
var ErrInvalidURL = errors.New("invalid url")

// ErrUnknownLinkSource is returned by ParseLinkSources for an unknown name.
var ErrUnknownLinkSource = errors.New("unknown link source")

var (
	// ErrEmptyHref is returned for an empty or whitespace-only href.
	ErrEmptyHref = invalid("empty href")

	// ErrFragmentOnly is returned for hrefs such as "#top" that only point
	// inside the current document.
	ErrFragmentOnly = invalid("fragment-only href")

	// ErrUnsupportedScheme is returned for javascript:, mailto:, tel:, data:
	// and any other scheme that is not http or https.
	ErrUnsupportedScheme = invalid("unsupported scheme")

	// ErrNotAbsolute is returned when the href cannot be made absolute,
	// typically a relative href without a base.
	ErrNotAbsolute = invalid("not an absolute url")

	// ErrMalformed is returned when the href cannot be parsed at all.
	ErrMalformed = invalid("malformed url")
)

type invalidURLError struct {
	msg string
}

func invalid(msg string) error {
	return &invalidURLError{msg: msg}
}

func (e *invalidURLError) Error() string {
	return e.msg
}

func (e *invalidURLError) Unwrap() error {
	return ErrInvalidURL
}

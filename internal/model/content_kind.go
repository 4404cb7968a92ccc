package model

import "fmt"

// ContentKind classifies a fetched resource by its media type.
//
// The values are strings rather than iota constants because they are written
// verbatim into JSON exports, CSV cells and the database, and must read the
// same way in all of them.
type ContentKind string

const (
	// ContentKindHTML is an HTML or XHTML document. Only this kind is parsed
	// for links and metadata.
	ContentKindHTML ContentKind = "HTML"

	// ContentKindImage is any image/* resource.
	ContentKindImage ContentKind = "Image"

	// ContentKindStylesheet is a CSS stylesheet.
	ContentKindStylesheet ContentKind = "Stylesheet"

	// ContentKindScript is a JavaScript resource.
	ContentKindScript ContentKind = "Script"

	// ContentKindOther is a resource with a declared media type that is none
	// of the above (PDF, JSON, fonts, ...).
	ContentKindOther ContentKind = "Other"

	// ContentKindUnknown means the server did not declare a media type and
	// the URL gave no hint either.
	ContentKindUnknown ContentKind = "Unknown"

	// ContentKindFetchError means no response could be obtained at all.
	ContentKindFetchError ContentKind = "FetchError"
)

// AllContentKinds lists every kind in display order.
var AllContentKinds = []ContentKind{
	ContentKindHTML,
	ContentKindImage,
	ContentKindStylesheet,
	ContentKindScript,
	ContentKindOther,
	ContentKindUnknown,
	ContentKindFetchError,
}

// String returns the kind as written in exports.
func (k ContentKind) String() string {
	return string(k)
}

// IsValid reports whether k is one of the declared kinds.
func (k ContentKind) IsValid() bool {
	for _, known := range AllContentKinds {
		if k == known {
			return true
		}
	}
	return false
}

// ParseContentKind converts an exported kind string back into a ContentKind.
func ParseContentKind(s string) (ContentKind, error) {
	k := ContentKind(s)
	if !k.IsValid() {
		return "", fmt.Errorf("unknown content kind %q", s)
	}
	return k, nil
}

// UnmarshalText rejects kinds that sitecrawl never writes, so that a corrupted
// export fails loudly on reload instead of producing unknown values.
func (k *ContentKind) UnmarshalText(text []byte) error {
	parsed, err := ParseContentKind(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (k ContentKind) MarshalText() ([]byte, error) {
	return []byte(k), nil
}

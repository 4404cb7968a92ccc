package model

// Sentinel values stored in metadata fields when the real value is absent.
// They are plain strings so that exports stay readable without a legend.
const (
	// NoTitle is stored when an HTML page has no non-empty <title>.
	NoTitle = "no title"

	// NoH1 is stored when an HTML page has no non-empty <h1>.
	NoH1 = "no H1"

	// NoMetaDescription is stored when an HTML page has no
	// <meta name="description"> with content.
	NoMetaDescription = "no meta description"

	// NotHTML is stored in all three metadata fields for non-HTML content.
	NotHTML = "not an HTML page"

	// FetchErrorValue is stored in all three metadata fields when the page
	// could not be fetched after every retry.
	FetchErrorValue = "fetch error"
)

// StatusFetchError is the status code recorded when no HTTP response was
// received at all (connection refused, DNS failure, timeout).
const StatusFetchError = 0

// PageResult is the record produced for each URL visited during a crawl.
// Exactly one PageResult exists per unique URL per run.
//
// The JSON field names are the persisted-run format. Encoding a slice of
// PageResult and decoding it again yields identical values.
type PageResult struct {
	// URL is the absolute, normalized URL of the resource.
	URL string `json:"url"`

	// StatusCode is the HTTP response status, or StatusFetchError.
	StatusCode int `json:"statusCode"`

	// ContentKind classifies the resource.
	ContentKind ContentKind `json:"contentKind"`

	// Title is the trimmed text of the first <title> element.
	Title string `json:"title"`

	// H1 is the trimmed text of the first <h1> element.
	H1 string `json:"h1"`

	// MetaDescription is the content of the first description meta tag.
	MetaDescription string `json:"metaDescription"`

	// Depth is the distance from the seed; the seed itself is 0.
	Depth int `json:"depth"`

	// Error holds the terminal fetch error message, if any.
	Error string `json:"error,omitempty"`
}

// NewFetchErrorResult builds the result recorded for a URL that could not be
// fetched even after retries.
func NewFetchErrorResult(url string, depth int, err error) PageResult {
	r := PageResult{
		URL:             url,
		StatusCode:      StatusFetchError,
		ContentKind:     ContentKindFetchError,
		Title:           FetchErrorValue,
		H1:              FetchErrorValue,
		MetaDescription: FetchErrorValue,
		Depth:           depth,
	}
	if err != nil {
		r.Error = err.Error()
	}
	return r
}

// IsHTML reports whether the result describes an HTML page.
func (r PageResult) IsHTML() bool {
	return r.ContentKind == ContentKindHTML
}

// Failed reports whether the URL could not be fetched.
func (r PageResult) Failed() bool {
	return r.ContentKind == ContentKindFetchError
}

// HasTitle reports whether a real title was extracted.
func (r PageResult) HasTitle() bool {
	return r.Title != "" && r.Title != NoTitle && r.Title != NotHTML && r.Title != FetchErrorValue
}

// CrawlTarget is a URL waiting in the frontier together with the depth at
// which it was discovered. It is consumed exactly once.
type CrawlTarget struct {
	// URL is absolute and already normalized.
	URL string

	// Depth is the remaining-budget reference point: the seed is 0 and each
	// followed link adds one.
	Depth int
}

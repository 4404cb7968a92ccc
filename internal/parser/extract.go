package parser

import (
	"bytes"
	"fmt"
	"io"
	"mime"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/nao1215/sitecrawl/internal/model"
	"golang.org/x/net/html"
	"golang.org/x/net/html/charset"
	"golang.org/x/text/unicode/norm"
)

// LinkSource selects which elements contribute outbound links.
type LinkSource uint8

const (
	// LinkAnchor is <a href>.
	LinkAnchor LinkSource = 1 << iota
	// LinkImage is <img src>.
	LinkImage
	// LinkStylesheet is <link rel="stylesheet" href>.
	LinkStylesheet
	// LinkScript is <script src>.
	LinkScript

	// AllLinkSources enables every source. It is the default.
	AllLinkSources = LinkAnchor | LinkImage | LinkStylesheet | LinkScript
)

// Has reports whether s includes source.
func (s LinkSource) Has(source LinkSource) bool {
	return s&source != 0
}

// linkSourceNames maps the names accepted by ParseLinkSources.
var linkSourceNames = map[string]LinkSource{
	"a":          LinkAnchor,
	"anchor":     LinkAnchor,
	"img":        LinkImage,
	"image":      LinkImage,
	"css":        LinkStylesheet,
	"stylesheet": LinkStylesheet,
	"js":         LinkScript,
	"script":     LinkScript,
}

// ParseLinkSources turns names such as "a", "img", "css" and "js" into a
// LinkSource. No names means AllLinkSources.
func ParseLinkSources(names []string) (LinkSource, error) {
	var sources LinkSource
	for _, name := range names {
		name = strings.ToLower(strings.TrimSpace(name))
		if name == "" {
			continue
		}
		source, ok := linkSourceNames[name]
		if !ok {
			return 0, fmt.Errorf("%w %q: use a, img, css or js", ErrUnknownLinkSource, name)
		}
		sources |= source
	}
	if sources == 0 {
		return AllLinkSources, nil
	}
	return sources, nil
}

// linkSelector matches every candidate element in a single document-order
// pass; filtering by LinkSource happens afterwards.
const linkSelector = "a[href], img[src], link[href], script[src]"

// Extraction is what Extract pulls out of one document.
type Extraction struct {
	// Links holds raw, unresolved hrefs in document order. Duplicates are
	// kept; the crawl engine deduplicates after normalization.
	Links []string

	Title           string
	H1              string
	MetaDescription string
}

// ExtractOption configures Extract.
type ExtractOption func(*extractOptions)

type extractOptions struct {
	sources LinkSource
}

// WithLinkSources restricts link discovery to the given sources.
func WithLinkSources(sources LinkSource) ExtractOption {
	return func(o *extractOptions) {
		o.sources = sources
	}
}

// NotHTMLExtraction is the result for content that is not an HTML page.
func NotHTMLExtraction() *Extraction {
	return &Extraction{
		Links:           []string{},
		Title:           model.NotHTML,
		H1:              model.NotHTML,
		MetaDescription: model.NotHTML,
	}
}

// missingExtraction is the result for an HTML page that has none of the
// fields, or that could not be parsed.
func missingExtraction() *Extraction {
	return &Extraction{
		Links:           []string{},
		Title:           model.NoTitle,
		H1:              model.NoH1,
		MetaDescription: model.NoMetaDescription,
	}
}

// IsHTML reports whether contentType declares an HTML document.
func IsHTML(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return mediaType == "text/html" || mediaType == "application/xhtml+xml"
}

// Extract returns the links and metadata of body. Content that is not HTML
// according to contentType yields the "not an HTML page" sentinels and no
// links.
func Extract(contentType string, body []byte, opts ...ExtractOption) *Extraction {
	if !IsHTML(contentType) {
		return NotHTMLExtraction()
	}
	return ExtractDocument(contentType, body, opts...)
}

// ExtractDocument parses body as HTML without looking at the media type.
// contentType is only consulted for the character set. The crawl engine uses
// it when a resource was classified as HTML by its URL.
func ExtractDocument(contentType string, body []byte, opts ...ExtractOption) *Extraction {
	o := &extractOptions{sources: AllLinkSources}
	for _, opt := range opts {
		opt(o)
	}

	root, err := html.Parse(decode(contentType, body))
	if err != nil {
		return missingExtraction()
	}
	doc := goquery.NewDocumentFromNode(root)

	ex := missingExtraction()
	ex.Links = collectLinks(doc, o.sources)

	if v := cleanText(doc.Find("title").First().Text()); v != "" {
		ex.Title = v
	}
	if v := cleanText(doc.Find("h1").First().Text()); v != "" {
		ex.H1 = v
	}
	if v := metaDescription(doc); v != "" {
		ex.MetaDescription = v
	}

	return ex
}

// decode converts body to UTF-8 using the declared charset, falling back to
// <meta charset> sniffing and finally to the raw bytes.
func decode(contentType string, body []byte) io.Reader {
	r, err := charset.NewReader(bytes.NewReader(body), contentType)
	if err != nil {
		return bytes.NewReader(body)
	}
	return r
}

func collectLinks(doc *goquery.Document, sources LinkSource) []string {
	links := make([]string, 0)
	doc.Find(linkSelector).Each(func(_ int, s *goquery.Selection) {
		var (
			raw string
			ok  bool
		)
		switch goquery.NodeName(s) {
		case "a":
			if sources.Has(LinkAnchor) {
				raw, ok = s.Attr("href")
			}
		case "img":
			if sources.Has(LinkImage) {
				raw, ok = s.Attr("src")
			}
		case "link":
			if sources.Has(LinkStylesheet) && isStylesheet(s) {
				raw, ok = s.Attr("href")
			}
		case "script":
			if sources.Has(LinkScript) {
				raw, ok = s.Attr("src")
			}
		}
		if ok {
			links = append(links, raw)
		}
	})
	return links
}

func isStylesheet(s *goquery.Selection) bool {
	rel, _ := s.Attr("rel")
	for _, token := range strings.Fields(rel) {
		if strings.EqualFold(token, "stylesheet") {
			return true
		}
	}
	return false
}

func metaDescription(doc *goquery.Document) string {
	var content string
	doc.Find("meta[name]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		name, _ := s.Attr("name")
		if !strings.EqualFold(strings.TrimSpace(name), "description") {
			return true
		}
		c, _ := s.Attr("content")
		content = cleanText(c)
		return false
	})
	return content
}

// cleanText trims surrounding whitespace and applies Unicode NFC so that the
// same visible title always compares equal.
func cleanText(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}

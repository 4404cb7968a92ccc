package fetcher

import (
	"context"
	"mime"
	"net/url"
	"path"
	"strings"

	"github.com/nao1215/sitecrawl/internal/model"
)

// ClassifyExtension guesses the content kind from the file extension of the
// URL path. It returns model.ContentKindUnknown when the path has no
// extension or the extension is not registered.
func ClassifyExtension(rawURL string) model.ContentKind {
	u, err := url.Parse(rawURL)
	if err != nil {
		return model.ContentKindUnknown
	}
	ext := strings.ToLower(path.Ext(u.Path))
	if ext == "" {
		return model.ContentKindUnknown
	}
	mediaType := mime.TypeByExtension(ext)
	if mediaType == "" {
		return model.ContentKindUnknown
	}
	return ClassifyContentType(mediaType)
}

// ClassifyContentType maps a Content-Type header value to a content kind.
func ClassifyContentType(contentType string) model.ContentKind {
	if strings.TrimSpace(contentType) == "" {
		return model.ContentKindUnknown
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return model.ContentKindUnknown
	}

	switch {
	case mediaType == "text/html", mediaType == "application/xhtml+xml":
		return model.ContentKindHTML
	case strings.HasPrefix(mediaType, "image/"):
		return model.ContentKindImage
	case mediaType == "text/css":
		return model.ContentKindStylesheet
	case isScriptType(mediaType):
		return model.ContentKindScript
	default:
		return model.ContentKindOther
	}
}

func isScriptType(mediaType string) bool {
	switch mediaType {
	case "text/javascript", "application/javascript", "application/x-javascript",
		"application/ecmascript", "text/ecmascript":
		return true
	}
	return false
}

// Classify combines both classifiers for a fetched response: the declared
// Content-Type wins, and the URL extension decides only when the header is
// missing or cannot be parsed. A page served as text/html from /app.js is
// therefore HTML.
func Classify(rawURL, contentType string) model.ContentKind {
	if kind := ClassifyContentType(contentType); kind != model.ContentKindUnknown {
		return kind
	}
	return ClassifyExtension(rawURL)
}

// ProbeType classifies rawURL without downloading it: by extension when
// possible, otherwise by the Content-Type of a HEAD response. A HEAD that
// gets no response yields model.ContentKindFetchError.
func (c *Client) ProbeType(ctx context.Context, rawURL string) model.ContentKind {
	if kind := ClassifyExtension(rawURL); kind != model.ContentKindUnknown {
		return kind
	}

	out := c.Head(ctx, rawURL)
	if out.Failed() {
		c.logger.Debug("probe failed", "url", rawURL, "error", out.Err)
		return model.ContentKindFetchError
	}
	return ClassifyContentType(out.ContentType)
}

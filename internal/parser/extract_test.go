package parser

import (
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/nao1215/sitecrawl/internal/model"
)

const samplePage = `<!DOCTYPE html>
<html>
<head>
	<title>  Example Home  </title>
	<meta name="Description" content=" The example site ">
	<link rel="icon" href="/favicon.ico">
	<link rel="Stylesheet preload" href="/main.css">
	<script src="/app.js"></script>
	<script>var inline = 1;</script>
</head>
<body>
	<h1>Welcome</h1>
	<h1>Second heading</h1>
	<a href="/about">About</a>
	<img src="logo.png" alt="logo">
	<a href="/about">About again</a>
	<a name="anchor-without-href">x</a>
	<a href="mailto:info@example.com">Mail</a>
</body>
</html>`

func TestExtract(t *testing.T) {
	t.Parallel()

	t.Run("extracts links and metadata", func(t *testing.T) {
		t.Parallel()

		ex := Extract("text/html; charset=utf-8", []byte(samplePage))

		wantLinks := []string{"/main.css", "/app.js", "/about", "logo.png", "/about", "mailto:info@example.com"}
		if !reflect.DeepEqual(ex.Links, wantLinks) {
			t.Errorf("links: got %v, expected %v", ex.Links, wantLinks)
		}
		if ex.Title != "Example Home" {
			t.Errorf("title: got %q", ex.Title)
		}
		if ex.H1 != "Welcome" {
			t.Errorf("h1: got %q", ex.H1)
		}
		if ex.MetaDescription != "The example site" {
			t.Errorf("meta description: got %q", ex.MetaDescription)
		}
	})

	t.Run("restricts link sources", func(t *testing.T) {
		t.Parallel()

		ex := Extract("text/html", []byte(samplePage), WithLinkSources(LinkAnchor))
		for _, l := range ex.Links {
			if strings.HasSuffix(l, ".css") || strings.HasSuffix(l, ".js") || strings.HasSuffix(l, ".png") {
				t.Errorf("unexpected non-anchor link %q", l)
			}
		}
		if len(ex.Links) != 3 {
			t.Errorf("expected 3 anchor links, got %v", ex.Links)
		}
	})

	t.Run("missing fields use sentinels", func(t *testing.T) {
		t.Parallel()

		ex := Extract("text/html", []byte(`<html><head><title>   </title></head><body><p>hi</p></body></html>`))
		if ex.Title != model.NoTitle {
			t.Errorf("title: got %q", ex.Title)
		}
		if ex.H1 != model.NoH1 {
			t.Errorf("h1: got %q", ex.H1)
		}
		if ex.MetaDescription != model.NoMetaDescription {
			t.Errorf("meta: got %q", ex.MetaDescription)
		}
		if len(ex.Links) != 0 {
			t.Errorf("expected no links, got %v", ex.Links)
		}
	})

	t.Run("non-HTML content", func(t *testing.T) {
		t.Parallel()

		ex := Extract("image/png", []byte{0x89, 'P', 'N', 'G'})
		if ex.Title != model.NotHTML || ex.H1 != model.NotHTML || ex.MetaDescription != model.NotHTML {
			t.Errorf("expected not-HTML sentinels, got %+v", ex)
		}
		if len(ex.Links) != 0 {
			t.Errorf("expected no links, got %v", ex.Links)
		}
	})

	t.Run("empty content type is not HTML", func(t *testing.T) {
		t.Parallel()

		ex := Extract("", []byte(samplePage))
		if ex.Title != model.NotHTML {
			t.Errorf("expected not-HTML sentinel, got %q", ex.Title)
		}
	})

	t.Run("malformed markup does not escape", func(t *testing.T) {
		t.Parallel()

		body := []byte(`<html><head><title>Broken<body><h1>Still <b>here</h1><a href="/x"><img src=</a>`)
		ex := Extract("text/html", body)
		if ex == nil {
			t.Fatal("expected an extraction")
		}
		if ex.H1 == "" || ex.Title == "" {
			t.Errorf("expected fields to be filled, got %+v", ex)
		}
	})

	t.Run("decodes declared charset", func(t *testing.T) {
		t.Parallel()

		// "Café" in ISO-8859-1.
		body := []byte("<html><head><title>Caf\xe9</title></head></html>")
		ex := Extract("text/html; charset=iso-8859-1", body)
		if ex.Title != "Café" {
			t.Errorf("got %q", ex.Title)
		}
	})

	t.Run("normalizes to NFC", func(t *testing.T) {
		t.Parallel()

		// "e" followed by a combining acute accent.
		ex := Extract("text/html", []byte("<h1>Cafe\u0301</h1>"))
		if ex.H1 != "Café" {
			t.Errorf("got %q", ex.H1)
		}
	})
}

func TestExtractDocument(t *testing.T) {
	t.Parallel()

	ex := ExtractDocument("text/plain", []byte(`<title>Served as text</title>`))
	if ex.Title != "Served as text" {
		t.Errorf("got %q", ex.Title)
	}
}

func TestIsHTML(t *testing.T) {
	t.Parallel()

	tests := map[string]bool{
		"text/html":                true,
		"TEXT/HTML; charset=UTF-8": true,
		"application/xhtml+xml":    true,
		"text/plain":               false,
		"application/json":         false,
		"":                         false,
		"not a media type;;":       false,
	}
	for ct, want := range tests {
		if got := IsHTML(ct); got != want {
			t.Errorf("IsHTML(%q) = %v, expected %v", ct, got, want)
		}
	}
}

func TestParseLinkSources(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		names   []string
		want    LinkSource
		wantErr error
	}{
		{"none means all", nil, AllLinkSources, nil},
		{"blank entries are skipped", []string{" ", ""}, AllLinkSources, nil},
		{"short names", []string{"a", "img"}, LinkAnchor | LinkImage, nil},
		{"long names and case", []string{"Anchor", "STYLESHEET", "script"}, LinkAnchor | LinkStylesheet | LinkScript, nil},
		{"duplicates", []string{"css", "css"}, LinkStylesheet, nil},
		{"unknown name", []string{"a", "iframe"}, 0, ErrUnknownLinkSource},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := ParseLinkSources(tt.names)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("ParseLinkSources(%q) error = %v, want %v", tt.names, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseLinkSources(%q) = %b, want %b", tt.names, got, tt.want)
			}
		})
	}
}

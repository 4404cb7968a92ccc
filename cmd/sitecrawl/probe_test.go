package main

import (
	"strings"
	"testing"
)

func TestProbeCommand(t *testing.T) {
	t.Parallel()

	site := newTestSite(t)

	t.Run("classifies by extension and content type", func(t *testing.T) {
		t.Parallel()

		out, err := executeCommand(t, "probe", site.URL+"/logo.png", site.URL+"/about")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		lines := strings.Split(strings.TrimSpace(out), "\n")
		if len(lines) != 2 {
			t.Fatalf("expected 2 lines, got:\n%s", out)
		}
		if !strings.HasPrefix(lines[0], "Image") {
			t.Errorf("expected image, got %q", lines[0])
		}
		if !strings.HasPrefix(lines[1], "HTML") {
			t.Errorf("expected HTML, got %q", lines[1])
		}
	})

	t.Run("rejects invalid url", func(t *testing.T) {
		t.Parallel()

		if _, err := executeCommand(t, "probe", "ftp://example.com/file"); err == nil {
			t.Error("expected error for unsupported scheme")
		}
	})

	t.Run("requires an argument", func(t *testing.T) {
		t.Parallel()

		if _, err := executeCommand(t, "probe"); err == nil {
			t.Error("expected error without url")
		}
	})
}

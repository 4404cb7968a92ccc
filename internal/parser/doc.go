// Package parser turns raw hrefs into canonical absolute URLs and pulls links
// and page metadata out of HTML documents.
//
// Both halves are pure: they never touch the network, and malformed input is
// reported as data (an error value from Normalize, sentinel strings from
// Extract) rather than a panic.
//
// # Usage
//
//	abs, err := parser.Normalize("https://example.com/docs/", "../about#team")
//	// abs == "https://example.com/about"
//
//	ex := parser.Extract("text/html; charset=utf-8", body)
//	for _, raw := range ex.Links {
//		...
//	}
package parser

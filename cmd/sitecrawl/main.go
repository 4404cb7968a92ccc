// Package main provides the entry point for the sitecrawl CLI.
//
// sitecrawl crawls a web site breadth-first from a seed URL up to a fixed
// depth and reports the status, content kind, title, first heading and
// meta description of every URL it visits.
//
// Usage:
//
//	sitecrawl crawl https://example.com
//	sitecrawl crawl -d 2 -f csv -o report.csv https://example.com
//
// See --help for all available options.
package main

// main is the entry point for sitecrawl.
func main() {
	Execute()
}

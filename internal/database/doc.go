// Package database provides SQLite-based storage for sitecrawl runs.
//
// Every crawl run is stored with its page results, so a later invocation
// can show a previous run again or compare the two latest runs of a seed
// to see which URLs appeared, disappeared or changed status.
//
// The database uses modernc.org/sqlite, a CGO-free driver, and lives in a
// single file under the XDG data directory by default.
package database

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nao1215/sitecrawl/internal/model"
)

// FileName is the name of the database file inside the database directory.
const FileName = "sitecrawl.db"

// ErrRunNotFound is returned when no stored run matches the query.
var ErrRunNotFound = errors.New("crawl run not found")

// CrawlDB stores crawl runs and their page results in SQLite.
//
// One database file holds every run of every seed, so comparing two runs of
// the same site is a single query.
type CrawlDB struct {
	// db is the underlying SQL database connection.
	db *sql.DB

	// dbPath is the path to the SQLite database file.
	dbPath string
}

// Options configures CrawlDB behavior.
type Options struct {
	// CreateIfNotExists creates the database file if it doesn't exist.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates a CrawlDB in dbDir.
// If CreateIfNotExists is false and the database doesn't exist, an error is returned.
func Open(dbDir string, opts Options) (*CrawlDB, error) {
	dbPath := filepath.Join(dbDir, FileName)

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("database not found at %s (run a crawl first)", dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else if err := os.MkdirAll(dbDir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	// mode=rw refuses to create a missing file.
	mode := "rw"
	if opts.CreateIfNotExists {
		mode = "rwc"
	}
	dsn := dbPath + "?mode=" + mode + "&_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	cdb := &CrawlDB{
		db:     db,
		dbPath: dbPath,
	}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := cdb.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return cdb, nil
}

// Path returns the database file path.
func (cdb *CrawlDB) Path() string {
	return cdb.dbPath
}

// Close closes the database connection.
func (cdb *CrawlDB) Close() error {
	return cdb.db.Close()
}

func (cdb *CrawlDB) createTables() error {
	schema := `
	-- One row per crawl run
	CREATE TABLE IF NOT EXISTS runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		seed TEXT NOT NULL,
		max_depth INTEGER NOT NULL,
		started_at TEXT NOT NULL,
		finished_at TEXT,
		outcome TEXT,
		error TEXT,
		pages INTEGER DEFAULT 0,
		errors INTEGER DEFAULT 0
	);

	CREATE INDEX IF NOT EXISTS idx_runs_seed ON runs(seed);
	CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at);

	-- One row per visited URL of a run
	CREATE TABLE IF NOT EXISTS page_results (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id INTEGER NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
		url TEXT NOT NULL,
		status_code INTEGER NOT NULL,
		content_kind TEXT NOT NULL,
		title TEXT,
		h1 TEXT,
		meta_description TEXT,
		depth INTEGER NOT NULL,
		error TEXT,
		UNIQUE(run_id, url)
	);

	CREATE INDEX IF NOT EXISTS idx_results_run ON page_results(run_id);
	CREATE INDEX IF NOT EXISTS idx_results_kind ON page_results(content_kind);
	`

	_, err := cdb.db.ExecContext(context.Background(), schema)
	return err
}

// RunMetadata summarizes a stored run without loading its results.
type RunMetadata struct {
	// ID is the database identifier of the run.
	ID int64

	// Seed is the seed URL of the run.
	Seed string

	// StartedAt is when the run started.
	StartedAt time.Time

	// FinishedAt is when the run ended.
	FinishedAt time.Time

	// Outcome tells how the run ended.
	Outcome model.Outcome

	// Pages is the number of stored results.
	Pages int

	// Errors is the number of results that could not be fetched.
	Errors int
}

// SaveRun stores a run and all of its results in one transaction and sets
// run.ID.
func (cdb *CrawlDB) SaveRun(ctx context.Context, run *model.CrawlRun) (int64, error) {
	if run == nil {
		return 0, errors.New("cannot save nil run")
	}

	tx, err := cdb.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback() //nolint:errcheck // no-op after commit
	}()

	res, err := tx.ExecContext(ctx, `
	INSERT INTO runs (seed, max_depth, started_at, finished_at, outcome, error, pages, errors)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		run.Seed,
		run.MaxDepth,
		formatTimestamp(run.StartedAt),
		formatTimestamp(run.FinishedAt),
		string(run.Outcome),
		run.Error,
		len(run.Results),
		run.ErrorCount(),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert run: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get run id: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
	INSERT INTO page_results (run_id, url, status_code, content_kind, title, h1, meta_description, depth, error)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(run_id, url) DO UPDATE SET
		status_code = excluded.status_code,
		content_kind = excluded.content_kind,
		title = excluded.title,
		h1 = excluded.h1,
		meta_description = excluded.meta_description,
		depth = excluded.depth,
		error = excluded.error
	`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare result insert: %w", err)
	}
	defer stmt.Close()

	for _, r := range run.Results {
		if _, err := stmt.ExecContext(ctx,
			id,
			r.URL,
			r.StatusCode,
			r.ContentKind.String(),
			r.Title,
			r.H1,
			r.MetaDescription,
			r.Depth,
			r.Error,
		); err != nil {
			return 0, fmt.Errorf("failed to insert result %s: %w", r.URL, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit run: %w", err)
	}

	run.ID = id
	return id, nil
}

// GetRun loads a run and its results by ID.
func (cdb *CrawlDB) GetRun(ctx context.Context, id int64) (*model.CrawlRun, error) {
	return cdb.loadRun(ctx, `
	SELECT id, seed, max_depth, started_at, finished_at, outcome, error
	FROM runs WHERE id = ?
	`, id)
}

// GetLatestRun loads the most recent run of seed.
func (cdb *CrawlDB) GetLatestRun(ctx context.Context, seed string) (*model.CrawlRun, error) {
	return cdb.loadRun(ctx, `
	SELECT id, seed, max_depth, started_at, finished_at, outcome, error
	FROM runs WHERE seed = ?
	ORDER BY started_at DESC, id DESC
	LIMIT 1
	`, seed)
}

func (cdb *CrawlDB) loadRun(ctx context.Context, query string, arg any) (*model.CrawlRun, error) {
	var (
		run        model.CrawlRun
		startedAt  string
		finishedAt sql.NullString
		outcome    sql.NullString
		runErr     sql.NullString
	)

	err := cdb.db.QueryRowContext(ctx, query, arg).Scan(
		&run.ID,
		&run.Seed,
		&run.MaxDepth,
		&startedAt,
		&finishedAt,
		&outcome,
		&runErr,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %v", ErrRunNotFound, arg)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}

	run.StartedAt = parseTimestamp(startedAt)
	run.FinishedAt = parseTimestamp(finishedAt.String)
	run.Outcome = model.Outcome(outcome.String)
	run.Error = runErr.String

	results, err := cdb.loadResults(ctx, run.ID)
	if err != nil {
		return nil, err
	}
	run.Results = results

	return &run, nil
}

func (cdb *CrawlDB) loadResults(ctx context.Context, runID int64) ([]model.PageResult, error) {
	rows, err := cdb.db.QueryContext(ctx, `
	SELECT url, status_code, content_kind, title, h1, meta_description, depth, error
	FROM page_results
	WHERE run_id = ?
	ORDER BY id
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query results: %w", err)
	}
	defer rows.Close()

	results := make([]model.PageResult, 0)
	for rows.Next() {
		var (
			r               model.PageResult
			kind            string
			title, h1, meta sql.NullString
			fetchErr        sql.NullString
		)
		if err := rows.Scan(&r.URL, &r.StatusCode, &kind, &title, &h1, &meta, &r.Depth, &fetchErr); err != nil {
			return nil, fmt.Errorf("failed to scan result: %w", err)
		}

		r.ContentKind, err = model.ParseContentKind(kind)
		if err != nil {
			return nil, fmt.Errorf("result %s: %w", r.URL, err)
		}
		r.Title = title.String
		r.H1 = h1.String
		r.MetaDescription = meta.String
		r.Error = fetchErr.String

		results = append(results, r)
	}

	return results, rows.Err()
}

// ListRuns returns metadata for the runs of seed, newest first. An empty
// seed lists every run.
func (cdb *CrawlDB) ListRuns(ctx context.Context, seed string) ([]RunMetadata, error) {
	query := `
	SELECT id, seed, started_at, finished_at, outcome, pages, errors
	FROM runs
	WHERE 1=1
	`
	args := make([]any, 0)

	if seed != "" {
		query += " AND seed = ?"
		args = append(args, seed)
	}

	query += " ORDER BY started_at DESC, id DESC"

	rows, err := cdb.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var results []RunMetadata
	for rows.Next() {
		var (
			meta       RunMetadata
			startedAt  string
			finishedAt sql.NullString
			outcome    sql.NullString
		)
		if err := rows.Scan(&meta.ID, &meta.Seed, &startedAt, &finishedAt, &outcome, &meta.Pages, &meta.Errors); err != nil {
			return nil, fmt.Errorf("failed to scan run metadata: %w", err)
		}

		meta.StartedAt = parseTimestamp(startedAt)
		meta.FinishedAt = parseTimestamp(finishedAt.String)
		meta.Outcome = model.Outcome(outcome.String)
		results = append(results, meta)
	}

	return results, rows.Err()
}

// ListSeeds returns every seed that has at least one stored run.
func (cdb *CrawlDB) ListSeeds(ctx context.Context) ([]string, error) {
	rows, err := cdb.db.QueryContext(ctx, `SELECT DISTINCT seed FROM runs ORDER BY seed`)
	if err != nil {
		return nil, fmt.Errorf("failed to list seeds: %w", err)
	}
	defer rows.Close()

	var seeds []string
	for rows.Next() {
		var seed string
		if err := rows.Scan(&seed); err != nil {
			return nil, fmt.Errorf("failed to scan seed: %w", err)
		}
		seeds = append(seeds, seed)
	}

	return seeds, rows.Err()
}

// DeleteRun removes a run and its results.
func (cdb *CrawlDB) DeleteRun(ctx context.Context, id int64) error {
	res, err := cdb.db.ExecContext(ctx, `DELETE FROM runs WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete run: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete run: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %d", ErrRunNotFound, id)
	}
	return nil
}

// timestampFormats contains the timestamp formats accepted when reading.
// The order matters: more specific formats should come first.
var timestampFormats = []string{
	timestampLayout,           // written by formatTimestamp
	time.RFC3339Nano,          // RFC3339 with nanoseconds
	"2006-01-02 15:04:05",     // SQLite default datetime format
	"2006-01-02T15:04:05Z",    // ISO 8601 with Z suffix
	"2006-01-02T15:04:05",     // ISO 8601 without timezone
	time.RFC3339,              // Full RFC3339 format
	"2006-01-02 15:04:05.999", // SQLite with milliseconds
}

// timestampLayout has a fixed width so that stored timestamps sort
// chronologically as text.
const timestampLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(timestampLayout)
}

// parseTimestamp attempts to parse a timestamp string using multiple formats.
// If parsing fails with all formats, returns zero time.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

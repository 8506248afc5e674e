package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nao1215/readyscan/internal/model"
)

// FileName is the name of the database file inside the data directory.
const FileName = "readyscan.db"

// CrawlDB stores the history of crawl runs in SQLite. Each run keeps the
// complete result bundle plus one row per crawled page so that runs of the
// same domain can be compared without decoding every bundle.
type CrawlDB struct {
	db     *sql.DB
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

// Open opens or creates the database in dbDir. With CreateIfNotExists
// false, a missing database file is reported as ErrDatabaseNotFound and
// nothing is created on disk.
func Open(dbDir string, opts Options) (*CrawlDB, error) {
	dbPath := filepath.Join(dbDir, FileName)

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrDatabaseNotFound, dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else if err := os.MkdirAll(dbDir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	// mode=rw refuses to create a missing file, mode=rwc allows it.
	// Pragmas are set per connection so that deleting a run cascades and
	// a concurrent readyscan process waits for the lock instead of failing.
	mode := "rw"
	if opts.CreateIfNotExists {
		mode = "rwc"
	}
	dsn := dbPath + "?mode=" + mode + "&_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite has a single writer.
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
	CREATE TABLE IF NOT EXISTS crawl_runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		domain TEXT NOT NULL,
		seed_url TEXT NOT NULL,
		started_at TEXT NOT NULL,
		finished_at TEXT NOT NULL,
		pages_crawled INTEGER NOT NULL,
		total_word_count INTEGER NOT NULL,
		has_schema_markup INTEGER NOT NULL,
		interrupted INTEGER NOT NULL DEFAULT 0,
		result_json TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_runs_domain ON crawl_runs(domain);
	CREATE INDEX IF NOT EXISTS idx_runs_started ON crawl_runs(started_at);

	CREATE TABLE IF NOT EXISTS crawl_pages (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id INTEGER NOT NULL REFERENCES crawl_runs(id) ON DELETE CASCADE,
		url TEXT NOT NULL,
		title TEXT,
		word_count INTEGER NOT NULL,
		content_hash TEXT,
		body_digest TEXT,
		UNIQUE(run_id, url)
	);

	CREATE INDEX IF NOT EXISTS idx_pages_run ON crawl_pages(run_id);
	CREATE INDEX IF NOT EXISTS idx_pages_url ON crawl_pages(url);
	`

	_, err := cdb.db.ExecContext(context.Background(), schema)
	return err
}

// Run is a finished crawl to be stored.
type Run struct {
	SeedURL     string
	StartedAt   time.Time
	FinishedAt  time.Time
	Interrupted bool
	Result      *model.Result

	// BodyDigests maps page URLs to the digest of the raw response body.
	// Pages without an entry are stored with an empty digest.
	BodyDigests map[string]string
}

// RunRecord is the summary of a stored run.
type RunRecord struct {
	ID              int64
	Domain          string
	SeedURL         string
	StartedAt       time.Time
	FinishedAt      time.Time
	PagesCrawled    int
	TotalWordCount  int
	HasSchemaMarkup bool
	Interrupted     bool
}

// PageSnapshot is the stored fingerprint of one crawled page.
type PageSnapshot struct {
	URL         string
	Title       string
	WordCount   int
	ContentHash string
	BodyDigest  string
}

// SaveResult stores a run and its pages in one transaction and returns the
// new run ID.
func (cdb *CrawlDB) SaveResult(ctx context.Context, run *Run) (int64, error) {
	if run == nil || run.Result == nil {
		return 0, ErrNoResult
	}

	resultJSON, err := json.Marshal(run.Result)
	if err != nil {
		return 0, fmt.Errorf("failed to serialize result: %w", err)
	}

	tx, err := cdb.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback() //nolint:errcheck // no-op after commit
	}()

	m := run.Result.Metadata
	res, err := tx.ExecContext(ctx, `
	INSERT INTO crawl_runs (domain, seed_url, started_at, finished_at, pages_crawled, total_word_count, has_schema_markup, interrupted, result_json)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		m.Domain,
		run.SeedURL,
		formatTimestamp(run.StartedAt),
		formatTimestamp(run.FinishedAt),
		m.PagesCrawled,
		m.TotalWordCount,
		m.HasSchemaMarkup,
		run.Interrupted,
		string(resultJSON),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert crawl run: %w", err)
	}
	runID, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get run id: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
	INSERT INTO crawl_pages (run_id, url, title, word_count, content_hash, body_digest)
	VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare page insert: %w", err)
	}
	defer stmt.Close()

	for _, p := range run.Result.Pages {
		hash := p.ContentHash
		if hash == "" {
			p.ComputeContentHash()
			hash = p.ContentHash
		}
		if _, err := stmt.ExecContext(ctx, runID, p.URL, p.Title, p.WordCount, hash, run.BodyDigests[p.URL]); err != nil {
			return 0, fmt.Errorf("failed to insert page %s: %w", p.URL, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit crawl run: %w", err)
	}
	return runID, nil
}

// GetLatestResult returns the bundle of the most recent run for domain,
// or nil if the domain has never been crawled.
func (cdb *CrawlDB) GetLatestResult(ctx context.Context, domain string) (*model.Result, error) {
	query := `
	SELECT result_json FROM crawl_runs
	WHERE domain = ?
	ORDER BY started_at DESC, id DESC
	LIMIT 1
	`
	return cdb.queryResult(ctx, query, domain)
}

// GetResultByID returns the bundle of run id, or nil if there is none.
func (cdb *CrawlDB) GetResultByID(ctx context.Context, id int64) (*model.Result, error) {
	return cdb.queryResult(ctx, `SELECT result_json FROM crawl_runs WHERE id = ?`, id)
}

func (cdb *CrawlDB) queryResult(ctx context.Context, query string, args ...any) (*model.Result, error) {
	var resultJSON string
	err := cdb.db.QueryRowContext(ctx, query, args...).Scan(&resultJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get crawl result: %w", err)
	}

	var result model.Result
	if err := json.Unmarshal([]byte(resultJSON), &result); err != nil {
		return nil, fmt.Errorf("failed to parse crawl result: %w", err)
	}
	return &result, nil
}

// ListRuns returns the runs of domain, newest first.
func (cdb *CrawlDB) ListRuns(ctx context.Context, domain string) ([]RunRecord, error) {
	query := `
	SELECT id, domain, seed_url, started_at, finished_at, pages_crawled, total_word_count, has_schema_markup, interrupted
	FROM crawl_runs
	WHERE domain = ?
	ORDER BY started_at DESC, id DESC
	`

	rows, err := cdb.db.QueryContext(ctx, query, domain)
	if err != nil {
		return nil, fmt.Errorf("failed to list crawl runs: %w", err)
	}
	defer rows.Close()

	var runs []RunRecord
	for rows.Next() {
		var r RunRecord
		var started, finished string
		if err := rows.Scan(
			&r.ID,
			&r.Domain,
			&r.SeedURL,
			&started,
			&finished,
			&r.PagesCrawled,
			&r.TotalWordCount,
			&r.HasSchemaMarkup,
			&r.Interrupted,
		); err != nil {
			return nil, fmt.Errorf("failed to scan crawl run: %w", err)
		}
		r.StartedAt = parseTimestamp(started)
		r.FinishedAt = parseTimestamp(finished)
		runs = append(runs, r)
	}

	return runs, rows.Err()
}

// ListDomains returns every domain with at least one stored run.
func (cdb *CrawlDB) ListDomains(ctx context.Context) ([]string, error) {
	rows, err := cdb.db.QueryContext(ctx, `SELECT DISTINCT domain FROM crawl_runs ORDER BY domain`)
	if err != nil {
		return nil, fmt.Errorf("failed to list domains: %w", err)
	}
	defer rows.Close()

	var domains []string
	for rows.Next() {
		var domain string
		if err := rows.Scan(&domain); err != nil {
			return nil, fmt.Errorf("failed to scan domain: %w", err)
		}
		domains = append(domains, domain)
	}

	return domains, rows.Err()
}

// GetPages returns the page snapshots of run id in crawl order.
func (cdb *CrawlDB) GetPages(ctx context.Context, runID int64) ([]PageSnapshot, error) {
	query := `
	SELECT url, COALESCE(title, ''), word_count, COALESCE(content_hash, ''), COALESCE(body_digest, '')
	FROM crawl_pages
	WHERE run_id = ?
	ORDER BY id
	`

	rows, err := cdb.db.QueryContext(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to get pages: %w", err)
	}
	defer rows.Close()

	var pages []PageSnapshot
	for rows.Next() {
		var p PageSnapshot
		if err := rows.Scan(&p.URL, &p.Title, &p.WordCount, &p.ContentHash, &p.BodyDigest); err != nil {
			return nil, fmt.Errorf("failed to scan page: %w", err)
		}
		pages = append(pages, p)
	}

	return pages, rows.Err()
}

// DeleteRun removes a run and its pages. It returns ErrRunNotFound when no
// run has the given id.
func (cdb *CrawlDB) DeleteRun(ctx context.Context, id int64) error {
	res, err := cdb.db.ExecContext(ctx, `DELETE FROM crawl_runs WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete crawl run: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete crawl run: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: run %d", ErrRunNotFound, id)
	}
	return nil
}

// timestampLayout has a fixed width so that stored values sort by time.
const timestampLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTimestamp(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}

// timestampFormats contains the timestamp formats that may be stored.
// The order matters: more specific formats should come first.
var timestampFormats = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
}

// parseTimestamp returns the zero time when s matches no known format.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

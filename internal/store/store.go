package store

import (
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"
)

const dbFileName = "secops.db"

// Store persists assets, signals, findings and comments in SQLite.
// A single writer connection with WAL keeps the unique indexes on
// asset key and fingerprint authoritative across processes.
type Store struct {
	db     *sql.DB
	dbPath string
}

// New opens or creates the database under dataDir.
func New(dataDir string) (*Store, error) {
	path := filepath.Join(dataDir, dbFileName)
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	dsn := path + "?" + url.Values{
		"_pragma": []string{
			"busy_timeout(30000)",
			"journal_mode(WAL)",
			"synchronous(NORMAL)",
			"foreign_keys(ON)",
			"cache_size(-64000)",
		},
	}.Encode()

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	s := &Store{db: db, dbPath: path}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize schema for %q: %w", path, err)
	}
	return s, nil
}

// NewMemory opens an in-memory database, used by tests.
func NewMemory() (*Store, error) {
	db, err := sql.Open("sqlite", ":memory:?_pragma=foreign_keys(ON)")
	if err != nil {
		return nil, fmt.Errorf("failed to open in-memory database: %w", err)
	}
	db.SetMaxOpenConns(1)

	s := &Store{db: db, dbPath: ":memory:"}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS assets (
		id TEXT PRIMARY KEY,
		key TEXT NOT NULL UNIQUE,
		name TEXT NOT NULL DEFAULT '',
		environment TEXT NOT NULL DEFAULT 'unknown',
		owner TEXT NOT NULL DEFAULT '',
		criticality TEXT NOT NULL DEFAULT 'medium',
		exposure TEXT NOT NULL DEFAULT 'internal',
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	);

	CREATE TABLE IF NOT EXISTS signals (
		id TEXT PRIMARY KEY,
		tool TEXT NOT NULL,
		payload TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMP NOT NULL
	);

	CREATE TABLE IF NOT EXISTS findings (
		id TEXT PRIMARY KEY,
		fingerprint TEXT NOT NULL UNIQUE,
		tool TEXT NOT NULL,
		title TEXT NOT NULL,
		severity TEXT NOT NULL,
		asset_key TEXT NOT NULL,
		asset_id TEXT NOT NULL REFERENCES assets(id),
		exposure TEXT NOT NULL DEFAULT 'internal',
		criticality TEXT NOT NULL DEFAULT 'medium',
		status TEXT NOT NULL DEFAULT 'open',
		assignee TEXT NOT NULL DEFAULT '',
		risk_score INTEGER NOT NULL DEFAULT 0,
		occurrences INTEGER NOT NULL DEFAULT 1,
		first_seen TIMESTAMP NOT NULL,
		last_seen TIMESTAMP NOT NULL,
		signal_id TEXT NOT NULL DEFAULT ''
	);
	CREATE INDEX IF NOT EXISTS idx_findings_asset ON findings(asset_key);
	CREATE INDEX IF NOT EXISTS idx_findings_status ON findings(status);
	CREATE INDEX IF NOT EXISTS idx_findings_severity ON findings(severity);
	CREATE INDEX IF NOT EXISTS idx_findings_risk ON findings(risk_score DESC);

	CREATE TABLE IF NOT EXISTS comments (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		id TEXT NOT NULL UNIQUE,
		finding_id TEXT NOT NULL REFERENCES findings(id),
		author TEXT NOT NULL,
		content TEXT NOT NULL,
		action_type TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMP NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_comments_finding ON comments(finding_id);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the backing database file path.
func (s *Store) Path() string {
	return s.dbPath
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

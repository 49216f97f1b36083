package store

import (
	"database/sql"
	"errors"

	_ "modernc.org/sqlite" // CGO-free SQLite driver

	"github.com/dshills/clauseaudit/internal/schema"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// DB is the concrete storage backed by SQLite.
type DB struct {
	conn *sql.DB
}

// OpenSQLite opens (and creates if missing) a SQLite DB at path.
func OpenSQLite(path string) (*DB, error) {
	// Pragmas via DSN keep it portable with the modernc driver.
	dsn := "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)"
	c, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, &schema.StorageError{Op: "open", Err: err}
	}
	return &DB{conn: c}, nil
}

// Open opens the database at path and ensures the schema exists.
func Open(path string) (*DB, error) {
	db, err := OpenSQLite(path)
	if err != nil {
		return nil, err
	}
	if err := db.CreateSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

func (db *DB) Close() error { return db.conn.Close() }

// CreateSchema ensures tables exist.
func (db *DB) CreateSchema() error {
	_, err := db.conn.Exec(`
CREATE TABLE IF NOT EXISTS negative_list (
  rule_number    TEXT PRIMARY KEY,
  id             TEXT NOT NULL,
  description    TEXT NOT NULL,
  severity       TEXT NOT NULL,
  category       TEXT,
  remediation    TEXT,
  keywords       TEXT NOT NULL DEFAULT '[]',  -- JSON array
  patterns       TEXT NOT NULL DEFAULT '[]',  -- JSON array
  version        TEXT,
  effective_date TEXT,
  updated_at     TEXT NOT NULL                -- RFC3339
);

CREATE TABLE IF NOT EXISTS regulations (
  id             TEXT PRIMARY KEY,
  law_name       TEXT NOT NULL,
  article_number TEXT NOT NULL,
  content        TEXT NOT NULL,
  category       TEXT,
  effective_date TEXT,
  UNIQUE (law_name, article_number)
);

CREATE INDEX IF NOT EXISTS idx_regulations_law ON regulations(law_name);

CREATE TABLE IF NOT EXISTS regulation_chunks (
  id            TEXT PRIMARY KEY,
  regulation_id TEXT NOT NULL,
  chunk_index   INTEGER NOT NULL,
  chunk_text    TEXT NOT NULL,
  start_pos     INTEGER NOT NULL,
  end_pos       INTEGER NOT NULL,
  embedding     TEXT,                         -- JSON array; NULL until embedded
  FOREIGN KEY(regulation_id) REFERENCES regulations(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_chunks_regulation ON regulation_chunks(regulation_id);

CREATE TABLE IF NOT EXISTS audits (
  id            TEXT PRIMARY KEY,
  created_at    TEXT NOT NULL,                -- RFC3339
  product_name  TEXT,
  product_type  TEXT,
  audit_type    TEXT NOT NULL,
  score         INTEGER NOT NULL,
  grade         TEXT NOT NULL,
  violations    INTEGER NOT NULL,
  report_id     TEXT,
  document_hash TEXT,
  result_json   TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_audits_created ON audits(created_at);
`)
	if err != nil {
		return &schema.StorageError{Op: "create schema", Err: err}
	}
	return nil
}

package store

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// #region schema
const schema = `
CREATE TABLE IF NOT EXISTS requests (
	request_id       TEXT PRIMARY KEY,
	human_request    TEXT NOT NULL,
	task_description TEXT NOT NULL,
	file_path        TEXT NOT NULL,
	original_content TEXT,
	created_at       TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS code_generations (
	id                INTEGER PRIMARY KEY AUTOINCREMENT,
	request_id        TEXT NOT NULL,
	version           INTEGER NOT NULL,
	action            TEXT,
	generated_content TEXT NOT NULL,
	created_at        TEXT NOT NULL,
	FOREIGN KEY (request_id) REFERENCES requests(request_id)
);

CREATE TABLE IF NOT EXISTS transitions (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	request_id  TEXT NOT NULL,
	state       TEXT NOT NULL,
	action      TEXT NOT NULL,
	reward      REAL NOT NULL,
	next_state  TEXT NOT NULL,
	created_at  TEXT NOT NULL,
	FOREIGN KEY (request_id) REFERENCES requests(request_id)
);

CREATE TABLE IF NOT EXISTS qtable_versions (
	version_id  TEXT PRIMARY KEY,
	parent_id   TEXT,
	document    BLOB NOT NULL,
	note        TEXT,
	created_at  TEXT NOT NULL,
	FOREIGN KEY (parent_id) REFERENCES qtable_versions(version_id)
);

CREATE TABLE IF NOT EXISTS active_qtable (
	id          INTEGER PRIMARY KEY CHECK (id = 1),
	version_id  TEXT NOT NULL,
	FOREIGN KEY (version_id) REFERENCES qtable_versions(version_id)
);
`
// #endregion schema

// #region store-struct
// Store is the durable log: requests, generated code, transitions and
// versioned value-table snapshots, all in one SQLite file.
type Store struct {
	db *sql.DB
}
// #endregion store-struct

// #region constructor
// NewStore opens a SQLite database and runs migrations.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// one connection keeps per-connection pragmas in force and serializes writers
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("pragma %q: %w", p, err)
		}
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Store{db: db}, nil
}
// #endregion constructor

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying *sql.DB.
func (s *Store) DB() *sql.DB {
	return s.db
}

// #region helpers
func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
// #endregion helpers

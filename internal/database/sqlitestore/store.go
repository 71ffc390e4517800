// Package sqlitestore provides the SQLite-backed implementation of
// community.Store. The database file is opened once per process and the
// schema is applied on open.
package sqlitestore

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS posts (
	id          TEXT PRIMARY KEY,
	locale      TEXT NOT NULL,
	title       TEXT NOT NULL,
	body        TEXT NOT NULL,
	author_name TEXT,
	status      TEXT NOT NULL DEFAULT 'pending',
	created_at  TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_posts_status_created ON posts(status, created_at);

CREATE TABLE IF NOT EXISTS comments (
	id          TEXT PRIMARY KEY,
	post_id     TEXT NOT NULL,
	body        TEXT NOT NULL,
	author_name TEXT,
	status      TEXT NOT NULL DEFAULT 'pending',
	created_at  TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_comments_status_created ON comments(status, created_at);
CREATE INDEX IF NOT EXISTS idx_comments_post ON comments(post_id);

CREATE TABLE IF NOT EXISTS asks (
	id         TEXT PRIMARY KEY,
	locale     TEXT NOT NULL,
	subject    TEXT NOT NULL,
	body       TEXT NOT NULL,
	email      TEXT,
	status     TEXT NOT NULL DEFAULT 'pending',
	created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_asks_status_created ON asks(status, created_at);
`

// Open creates or opens the community database at the given path,
// creating parent directories as needed and applying the schema.
func Open(path string) (*CommunityStore, error) {
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// modernc's sqlite driver handles one writer at a time; a single
	// connection avoids SQLITE_BUSY churn under concurrent handlers.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &CommunityStore{db: db}, nil
}

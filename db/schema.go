// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package db

import (
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/danielhkuo/likey/kv"
)

// Open connects to a SQL database of the given type and verifies the
// connection. The driver must be registered by the caller.
func Open(dialect kv.Dialect, url string) (*sql.DB, error) {
	driver := string(dialect)
	dsn := url
	if dialect == kv.DialectSQLite {
		dsn = sqliteDSN(url)
	}

	conn, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s db: %w", driver, err)
	}
	// Every connection to an in-memory sqlite db gets its own empty copy
	if dialect == kv.DialectSQLite && inMemory(url) {
		conn.SetMaxOpenConns(1)
	}
	if err := conn.Ping(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("ping %s db: %w", driver, err)
	}
	return conn, nil
}

// CreateSchema creates all tables needed for the application.
// Safe to call multiple times - uses IF NOT EXISTS.
func CreateSchema(db *sql.DB, dialect kv.Dialect) error {
	schema := sqliteSchema
	if dialect == kv.DialectPostgres {
		schema = postgresSchema
	}

	_, err := db.Exec(schema)
	if err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	return nil
}

// sqliteDSN turns a path (or file: URL) into a modernc DSN with WAL, a busy
// timeout, and immediate write transactions.
func sqliteDSN(url string) string {
	path := strings.TrimPrefix(url, "file:")
	if strings.Contains(path, "?") {
		return url
	}
	if path != ":memory:" {
		path = filepath.Clean(path)
	}
	return "file:" + path +
		"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_txlock=immediate"
}

func inMemory(url string) bool {
	path, _, _ := strings.Cut(strings.TrimPrefix(url, "file:"), "?")
	return path == ":memory:" || strings.Contains(url, "mode=memory")
}

const sqliteSchema = `
-- Versioned key-value records
CREATE TABLE IF NOT EXISTS kv (
    k TEXT PRIMARY KEY,
    v BLOB NOT NULL,
    version INTEGER NOT NULL CHECK (version > 0)
);
`

const postgresSchema = `
-- Versioned key-value records; byte-order collation keeps prefix scans sorted
CREATE TABLE IF NOT EXISTS kv (
    k TEXT COLLATE "C" PRIMARY KEY,
    v BYTEA NOT NULL,
    version BIGINT NOT NULL CHECK (version > 0)
);
`

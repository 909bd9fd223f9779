// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package db opens SQL connections and creates the key-value schema.

# Connecting

	conn, err := db.Open(kv.DialectSQLite, "likey.db")

SQLite paths are expanded into a modernc DSN with WAL journaling, a 5s busy
timeout, and immediate write transactions so concurrent writers queue instead
of failing. Postgres URLs are passed through unchanged. Drivers are registered
by the caller (main imports modernc.org/sqlite and github.com/lib/pq).

# Schema Creation

	if err := db.CreateSchema(conn, kv.DialectSQLite); err != nil {
		log.Fatal(err)
	}

Safe to call multiple times - uses IF NOT EXISTS.

# Tables

A single table backs every logical record:

  - kv: k (primary key), v (payload bytes), version (starts at 1)

Logical keys used by the engine:

	banner:<id>
	vote:<id>:<voterId>
	session:<userId>
	user:<userId>
	config:global
	index:owner:<ownerId>:<createdAt>:<id>
	stats:users_count
	stats:likes_created

The Postgres key column uses the "C" collation so range scans follow byte
order, matching SQLite and BoltDB.
*/
package db

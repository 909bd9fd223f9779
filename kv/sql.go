// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package kv

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
)

// Dialect selects placeholder syntax for the SQL store.
type Dialect string

const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "postgres"
)

// SQL is a Store over a single "kv" table. The table is created by
// db.CreateSchema.
type SQL struct {
	db      *sql.DB
	dialect Dialect
}

func NewSQL(db *sql.DB, dialect Dialect) *SQL {
	return &SQL{db: db, dialect: dialect}
}

func (s *SQL) Get(ctx context.Context, key string) (Entry, error) {
	if err := validateKey(key); err != nil {
		return Entry{}, err
	}

	e := Entry{Key: key}
	err := s.db.QueryRowContext(ctx, s.bind(`
		SELECT v, version FROM kv WHERE k = ?
	`), key).Scan(&e.Value, &e.Version)

	if err == sql.ErrNoRows {
		return Entry{}, ErrNotFound
	}
	if err != nil {
		return Entry{}, unavailable("get", err)
	}
	return e, nil
}

func (s *SQL) Put(ctx context.Context, key string, value []byte) error {
	return s.Commit(ctx, Op{Key: key, Expect: AnyVersion, Value: value})
}

func (s *SQL) Delete(ctx context.Context, key string) error {
	return s.Commit(ctx, Op{Key: key, Expect: AnyVersion, Delete: true})
}

func (s *SQL) Commit(ctx context.Context, ops ...Op) error {
	if err := validateOps(ops); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return unavailable("begin", err)
	}
	defer tx.Rollback()

	for _, op := range ops {
		ok, err := s.apply(ctx, tx, op)
		if err != nil {
			return unavailable("commit "+op.Key, err)
		}
		if !ok {
			return ErrConflict
		}
	}

	if err := tx.Commit(); err != nil {
		return unavailable("commit", err)
	}
	return nil
}

// apply executes one op and reports whether its precondition held.
func (s *SQL) apply(ctx context.Context, tx *sql.Tx, op Op) (bool, error) {
	var res sql.Result
	var err error
	if op.Value == nil {
		op.Value = []byte{}
	}

	switch {
	case op.Delete && op.Expect == AnyVersion:
		_, err = tx.ExecContext(ctx, s.bind(`DELETE FROM kv WHERE k = ?`), op.Key)
		return err == nil, err

	case op.Delete && op.Expect == 0:
		var exists bool
		err = tx.QueryRowContext(ctx, s.bind(`
			SELECT EXISTS(SELECT 1 FROM kv WHERE k = ?)
		`), op.Key).Scan(&exists)
		return err == nil && !exists, err

	case op.Delete:
		res, err = tx.ExecContext(ctx, s.bind(`
			DELETE FROM kv WHERE k = ? AND version = ?
		`), op.Key, op.Expect)

	case op.Expect == AnyVersion:
		_, err = tx.ExecContext(ctx, s.bind(`
			INSERT INTO kv (k, v, version) VALUES (?, ?, 1)
			ON CONFLICT (k) DO UPDATE SET v = excluded.v, version = kv.version + 1
		`), op.Key, op.Value)
		return err == nil, err

	case op.Expect == 0:
		res, err = tx.ExecContext(ctx, s.bind(`
			INSERT INTO kv (k, v, version) VALUES (?, ?, 1)
			ON CONFLICT (k) DO NOTHING
		`), op.Key, op.Value)

	default:
		res, err = tx.ExecContext(ctx, s.bind(`
			UPDATE kv SET v = ?, version = version + 1
			WHERE k = ? AND version = ?
		`), op.Value, op.Key, op.Expect)
	}

	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (s *SQL) Scan(ctx context.Context, prefix, after string, limit int) ([]Entry, error) {
	query := `SELECT k, v, version FROM kv WHERE k >= ? AND k > ?`
	args := []any{prefix, after}
	if end := prefixEnd(prefix); end != "" {
		query += ` AND k < ?`
		args = append(args, end)
	}
	query += ` ORDER BY k`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, s.bind(query), args...)
	if err != nil {
		return nil, unavailable("scan", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.Key, &e.Value, &e.Version); err != nil {
			return nil, unavailable("scan", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("scan", err)
	}
	return out, nil
}

func (s *SQL) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// bind rewrites "?" placeholders to "$n" for postgres.
func (s *SQL) bind(query string) string {
	if s.dialect != DialectPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// ParseDialect maps a DATABASE_TYPE value to a Dialect.
func ParseDialect(name string) (Dialect, error) {
	switch Dialect(strings.ToLower(strings.TrimSpace(name))) {
	case DialectSQLite:
		return DialectSQLite, nil
	case DialectPostgres, "postgresql":
		return DialectPostgres, nil
	}
	return "", fmt.Errorf("unsupported sql dialect %q", name)
}

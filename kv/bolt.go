// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package kv

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"go.etcd.io/bbolt"
)

const boltBucket = "kv"

// Bolt is a Store backed by a single BoltDB file. Bolt serializes write
// transactions, so every Commit is trivially linearizable.
type Bolt struct {
	db *bbolt.DB
}

// OpenBolt opens (or creates) a BoltDB store at the provided path.
func OpenBolt(path string) (*Bolt, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}

	db, err := bbolt.Open(filepath.Clean(path), 0o600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open storage db: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists([]byte(boltBucket)); err != nil {
			return fmt.Errorf("create kv bucket: %w", err)
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Bolt{db: db}, nil
}

func (s *Bolt) Get(ctx context.Context, key string) (Entry, error) {
	if err := ctx.Err(); err != nil {
		return Entry{}, err
	}
	if err := validateKey(key); err != nil {
		return Entry{}, err
	}

	var e Entry
	err := s.db.View(func(tx *bbolt.Tx) error {
		raw := tx.Bucket([]byte(boltBucket)).Get([]byte(key))
		if raw == nil {
			return ErrNotFound
		}
		e = decodeBolt(key, raw)
		return nil
	})
	if err == ErrNotFound {
		return Entry{}, err
	}
	if err != nil {
		return Entry{}, unavailable("get", err)
	}
	return e, nil
}

func (s *Bolt) Put(ctx context.Context, key string, value []byte) error {
	return s.Commit(ctx, Op{Key: key, Expect: AnyVersion, Value: value})
}

func (s *Bolt) Delete(ctx context.Context, key string) error {
	return s.Commit(ctx, Op{Key: key, Expect: AnyVersion, Delete: true})
}

func (s *Bolt) Commit(ctx context.Context, ops ...Op) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := validateOps(ops); err != nil {
		return err
	}

	err := s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(boltBucket))

		current := make([]int64, len(ops))
		for i, op := range ops {
			if raw := bucket.Get([]byte(op.Key)); raw != nil {
				current[i] = decodeBolt(op.Key, raw).Version
			}
			if op.Expect != AnyVersion && current[i] != op.Expect {
				return ErrConflict
			}
		}

		for i, op := range ops {
			if op.Delete {
				if err := bucket.Delete([]byte(op.Key)); err != nil {
					return err
				}
				continue
			}
			if err := bucket.Put([]byte(op.Key), encodeBolt(current[i]+1, op.Value)); err != nil {
				return err
			}
		}
		return nil
	})
	if err == ErrConflict {
		return err
	}
	if err != nil {
		return unavailable("commit", err)
	}
	return nil
}

func (s *Bolt) Scan(ctx context.Context, prefix, after string, limit int) ([]Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	start := prefix
	if after > start {
		start = after
	}

	var out []Entry
	err := s.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket([]byte(boltBucket)).Cursor()
		for k, v := c.Seek([]byte(start)); k != nil && bytes.HasPrefix(k, []byte(prefix)); k, v = c.Next() {
			if string(k) <= after {
				continue
			}
			out = append(out, decodeBolt(string(k), v))
			if limit > 0 && len(out) >= limit {
				break
			}
		}
		return nil
	})
	if err != nil {
		return nil, unavailable("scan", err)
	}
	return out, nil
}

func (s *Bolt) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Values are stored as an 8-byte big-endian version followed by the payload.
func encodeBolt(version int64, value []byte) []byte {
	out := make([]byte, 8+len(value))
	binary.BigEndian.PutUint64(out, uint64(version))
	copy(out[8:], value)
	return out
}

func decodeBolt(key string, raw []byte) Entry {
	if len(raw) < 8 {
		return Entry{Key: key, Version: 1}
	}
	return Entry{
		Key:     key,
		Value:   clone(raw[8:]),
		Version: int64(binary.BigEndian.Uint64(raw[:8])),
	}
}

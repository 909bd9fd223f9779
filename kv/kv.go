// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package kv

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/danielhkuo/likey/models"
)

// AnyVersion makes an Op unconditional inside a Commit batch.
const AnyVersion int64 = -1

var (
	ErrNotFound = errors.New("key not found")
	ErrConflict = errors.New("version conflict")
	// ErrUnavailable is the same sentinel the engine reports upward.
	ErrUnavailable = models.ErrStoreUnavailable
)

// Entry is a stored value. Version starts at 1 and grows on every write;
// 0 means the key is absent.
type Entry struct {
	Key     string
	Value   []byte
	Version int64
}

// Op is one conditional write in a Commit batch.
//
// Expect 0 requires the key to be absent, a positive Expect requires the key
// to be at exactly that version, AnyVersion skips the check.
type Op struct {
	Key    string
	Expect int64
	Value  []byte
	Delete bool
}

// Store is a string-keyed byte store with per-key versions and an atomic
// conditional batch. Implementations must make Commit all-or-nothing and
// linearizable with respect to every other Commit touching the same keys.
type Store interface {
	Get(ctx context.Context, key string) (Entry, error)
	Put(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Commit(ctx context.Context, ops ...Op) error
	// Scan returns up to limit entries whose key starts with prefix and sorts
	// strictly after the cursor, in ascending byte order.
	Scan(ctx context.Context, prefix, after string, limit int) ([]Entry, error)
	Close() error
}

// Retry runs fn until it returns something other than ErrConflict, at most
// attempts times. Exhaustion is reported as models.ErrTransientConflict.
func Retry(ctx context.Context, attempts uint, fn func() error) error {
	if attempts == 0 {
		attempts = 1
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 2 * time.Millisecond
	b.MaxInterval = 50 * time.Millisecond

	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		err := fn()
		if err == nil || errors.Is(err, ErrConflict) {
			return struct{}{}, err
		}
		return struct{}{}, backoff.Permanent(err)
	}, backoff.WithBackOff(b), backoff.WithMaxTries(attempts))

	if errors.Is(err, ErrConflict) {
		return fmt.Errorf("%w: gave up after %d attempts: %w", models.ErrTransientConflict, attempts, err)
	}
	return err
}

func unavailable(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrUnavailable, op, err)
}

func validateKey(key string) error {
	if strings.TrimSpace(key) == "" {
		return fmt.Errorf("key is required")
	}
	return nil
}

func validateOps(ops []Op) error {
	if len(ops) == 0 {
		return fmt.Errorf("commit requires at least one op")
	}
	seen := make(map[string]bool, len(ops))
	for _, op := range ops {
		if err := validateKey(op.Key); err != nil {
			return err
		}
		if seen[op.Key] {
			return fmt.Errorf("duplicate key %q in commit", op.Key)
		}
		seen[op.Key] = true
		if op.Expect < AnyVersion {
			return fmt.Errorf("invalid expected version %d for %q", op.Expect, op.Key)
		}
	}
	return nil
}

// prefixEnd returns the smallest key greater than every key with the prefix,
// or "" when no such bound exists.
func prefixEnd(prefix string) string {
	b := []byte(prefix)
	for i := len(b) - 1; i >= 0; i-- {
		if b[i] < 0xff {
			b[i]++
			return string(b[:i+1])
		}
	}
	return ""
}

// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package kv

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
)

type memEntry struct {
	value   []byte
	version int64
}

// Memory is an in-process Store. Each Memory value stands in for one shared
// database, so every worker in a test must use the same instance.
type Memory struct {
	mu      sync.Mutex
	entries map[string]memEntry
	closed  bool
}

func NewMemory() *Memory {
	return &Memory{entries: make(map[string]memEntry)}
}

func (m *Memory) Get(ctx context.Context, key string) (Entry, error) {
	if err := ctx.Err(); err != nil {
		return Entry{}, err
	}
	if err := validateKey(key); err != nil {
		return Entry{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return Entry{}, unavailable("get", fmt.Errorf("store closed"))
	}

	e, ok := m.entries[key]
	if !ok {
		return Entry{}, ErrNotFound
	}
	return Entry{Key: key, Value: clone(e.value), Version: e.version}, nil
}

func (m *Memory) Put(ctx context.Context, key string, value []byte) error {
	return m.Commit(ctx, Op{Key: key, Expect: AnyVersion, Value: value})
}

func (m *Memory) Delete(ctx context.Context, key string) error {
	return m.Commit(ctx, Op{Key: key, Expect: AnyVersion, Delete: true})
}

func (m *Memory) Commit(ctx context.Context, ops ...Op) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := validateOps(ops); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return unavailable("commit", fmt.Errorf("store closed"))
	}

	for _, op := range ops {
		if op.Expect == AnyVersion {
			continue
		}
		if m.entries[op.Key].version != op.Expect {
			return ErrConflict
		}
	}

	for _, op := range ops {
		if op.Delete {
			delete(m.entries, op.Key)
			continue
		}
		m.entries[op.Key] = memEntry{
			value:   clone(op.Value),
			version: m.entries[op.Key].version + 1,
		}
	}
	return nil
}

func (m *Memory) Scan(ctx context.Context, prefix, after string, limit int) ([]Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, unavailable("scan", fmt.Errorf("store closed"))
	}

	var keys []string
	for k := range m.entries {
		if strings.HasPrefix(k, prefix) && k > after {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	if limit > 0 && len(keys) > limit {
		keys = keys[:limit]
	}

	out := make([]Entry, 0, len(keys))
	for _, k := range keys {
		e := m.entries[k]
		out = append(out, Entry{Key: k, Value: clone(e.value), Version: e.version})
	}
	return out, nil
}

func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

func clone(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

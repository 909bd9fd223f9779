// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package kv provides the versioned key-value capability the engine keeps all
shared state in.

# Versions

Every key carries a version that starts at 1 and grows on each write. A
missing key has version 0. Get returns ErrNotFound for missing keys.

# Conditional Batches

Commit applies a batch of ops all-or-nothing:

	err := store.Commit(ctx,
		kv.Op{Key: "banner:42", Expect: 7, Value: updated},
		kv.Op{Key: "vote:42:1001", Expect: 0, Value: marker},
	)

Expect 0 requires the key to be absent, a positive Expect requires that exact
version, and AnyVersion writes unconditionally. A failed precondition returns
ErrConflict and writes nothing. Commit is the only primitive that spans keys.

# Retrying

	err := kv.Retry(ctx, 8, func() error { ... return store.Commit(ctx, ops...) })

Retry reruns the closure on ErrConflict with jittered exponential backoff and
returns an error wrapping models.ErrTransientConflict once attempts run out.

# Backends

  - NewMemory: in-process map, for tests and single-process development
  - NewSQL: a "kv" table on SQLite (modernc.org/sqlite) or Postgres (lib/pq)
  - OpenBolt: a BoltDB file

Backend failures wrap ErrUnavailable (models.ErrStoreUnavailable).
*/
package kv

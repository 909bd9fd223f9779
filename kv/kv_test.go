// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package kv_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/danielhkuo/likey/kv"
	"github.com/danielhkuo/likey/models"
	"github.com/danielhkuo/likey/testutil"
)

// backends runs the same contract against every Store implementation
func backends(t *testing.T) map[string]func(t *testing.T) kv.Store {
	t.Helper()
	return map[string]func(t *testing.T) kv.Store{
		"memory": func(t *testing.T) kv.Store { return kv.NewMemory() },
		"sqlite": func(t *testing.T) kv.Store { return testutil.SetupTestDB(t) },
		"bolt":   func(t *testing.T) kv.Store { return testutil.SetupBoltStore(t) },
	}
}

func TestStoreGetPut(t *testing.T) {
	for name, open := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			store := open(t)

			if _, err := store.Get(ctx, "missing"); !errors.Is(err, kv.ErrNotFound) {
				t.Fatalf("expected ErrNotFound, got %v", err)
			}

			if err := store.Put(ctx, "a", []byte("one")); err != nil {
				t.Fatalf("put: %v", err)
			}
			e, err := store.Get(ctx, "a")
			if err != nil {
				t.Fatalf("get: %v", err)
			}
			if string(e.Value) != "one" || e.Version != 1 {
				t.Errorf("expected one@1, got %s@%d", e.Value, e.Version)
			}

			if err := store.Put(ctx, "a", []byte("two")); err != nil {
				t.Fatalf("put: %v", err)
			}
			e, _ = store.Get(ctx, "a")
			if string(e.Value) != "two" || e.Version != 2 {
				t.Errorf("expected two@2, got %s@%d", e.Value, e.Version)
			}

			if err := store.Delete(ctx, "a"); err != nil {
				t.Fatalf("delete: %v", err)
			}
			if _, err := store.Get(ctx, "a"); !errors.Is(err, kv.ErrNotFound) {
				t.Errorf("expected ErrNotFound after delete, got %v", err)
			}

			// Deleting a missing key is a no-op
			if err := store.Delete(ctx, "a"); err != nil {
				t.Errorf("delete missing: %v", err)
			}
		})
	}
}

func TestStoreCommitPreconditions(t *testing.T) {
	for name, open := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			store := open(t)

			if err := store.Commit(ctx,
				kv.Op{Key: "counter", Expect: 0, Value: []byte("1")},
				kv.Op{Key: "marker", Expect: 0, Value: []byte("x")},
			); err != nil {
				t.Fatalf("create batch: %v", err)
			}

			// Marker already exists: whole batch must be rejected
			err := store.Commit(ctx,
				kv.Op{Key: "counter", Expect: 1, Value: []byte("2")},
				kv.Op{Key: "marker", Expect: 0, Value: []byte("y")},
			)
			if !errors.Is(err, kv.ErrConflict) {
				t.Fatalf("expected ErrConflict, got %v", err)
			}
			e, _ := store.Get(ctx, "counter")
			if string(e.Value) != "1" || e.Version != 1 {
				t.Errorf("partial write leaked: counter=%s@%d", e.Value, e.Version)
			}

			// Stale version
			err = store.Commit(ctx, kv.Op{Key: "counter", Expect: 5, Value: []byte("2")})
			if !errors.Is(err, kv.ErrConflict) {
				t.Fatalf("expected ErrConflict for stale version, got %v", err)
			}

			// Correct version
			if err := store.Commit(ctx, kv.Op{Key: "counter", Expect: 1, Value: []byte("2")}); err != nil {
				t.Fatalf("cas update: %v", err)
			}

			// Conditional delete
			if err := store.Commit(ctx, kv.Op{Key: "marker", Expect: 1, Delete: true}); err != nil {
				t.Fatalf("cas delete: %v", err)
			}
			if _, err := store.Get(ctx, "marker"); !errors.Is(err, kv.ErrNotFound) {
				t.Errorf("expected marker deleted, got %v", err)
			}

			// Absence check on an existing key
			err = store.Commit(ctx, kv.Op{Key: "counter", Expect: 0, Delete: true})
			if !errors.Is(err, kv.ErrConflict) {
				t.Errorf("expected ErrConflict for absence check, got %v", err)
			}
		})
	}
}

func TestStoreCommitRejectsBadBatches(t *testing.T) {
	store := kv.NewMemory()
	ctx := context.Background()

	tests := []struct {
		name string
		ops  []kv.Op
	}{
		{"empty", nil},
		{"blank key", []kv.Op{{Key: " ", Expect: 0}}},
		{"duplicate key", []kv.Op{{Key: "a", Expect: 0}, {Key: "a", Expect: kv.AnyVersion}}},
		{"bad version", []kv.Op{{Key: "a", Expect: -7}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := store.Commit(ctx, tt.ops...)
			if err == nil {
				t.Fatal("expected error")
			}
			if errors.Is(err, kv.ErrConflict) {
				t.Errorf("validation error must not look like a conflict: %v", err)
			}
		})
	}
}

func TestStoreScan(t *testing.T) {
	for name, open := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			store := open(t)

			keys := []string{"idx:1:c", "idx:1:a", "idx:12:a", "idx:1:b", "other"}
			for _, k := range keys {
				if err := store.Put(ctx, k, []byte(k)); err != nil {
					t.Fatalf("put %s: %v", k, err)
				}
			}

			page, err := store.Scan(ctx, "idx:1:", "", 2)
			if err != nil {
				t.Fatalf("scan: %v", err)
			}
			if len(page) != 2 || page[0].Key != "idx:1:a" || page[1].Key != "idx:1:b" {
				t.Fatalf("unexpected first page: %+v", page)
			}

			page, err = store.Scan(ctx, "idx:1:", page[1].Key, 2)
			if err != nil {
				t.Fatalf("scan: %v", err)
			}
			if len(page) != 1 || page[0].Key != "idx:1:c" {
				t.Fatalf("unexpected second page: %+v", page)
			}

			all, err := store.Scan(ctx, "", "", 0)
			if err != nil {
				t.Fatalf("scan all: %v", err)
			}
			if len(all) != len(keys) {
				t.Errorf("expected %d entries, got %d", len(keys), len(all))
			}
		})
	}
}

// TestStoreConcurrentIncrement races CAS increments; no update may be lost
func TestStoreConcurrentIncrement(t *testing.T) {
	for name, open := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			store := open(t)

			workers := 10
			var wg sync.WaitGroup
			var failures atomic.Int32

			for i := 0; i < workers; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					err := kv.Retry(ctx, 200, func() error {
						var n int
						var version int64
						e, err := store.Get(ctx, "n")
						switch {
						case errors.Is(err, kv.ErrNotFound):
						case err != nil:
							return err
						default:
							fmt.Sscanf(string(e.Value), "%d", &n)
							version = e.Version
						}
						return store.Commit(ctx, kv.Op{Key: "n", Expect: version, Value: []byte(fmt.Sprint(n + 1))})
					})
					if err != nil {
						failures.Add(1)
						t.Errorf("increment: %v", err)
					}
				}()
			}
			wg.Wait()

			if failures.Load() > 0 {
				return
			}
			e, err := store.Get(ctx, "n")
			if err != nil {
				t.Fatalf("get: %v", err)
			}
			if string(e.Value) != fmt.Sprint(workers) {
				t.Errorf("expected %d, got %s", workers, e.Value)
			}
		})
	}
}

func TestRetry(t *testing.T) {
	ctx := context.Background()

	t.Run("succeeds after conflicts", func(t *testing.T) {
		calls := 0
		err := kv.Retry(ctx, 5, func() error {
			calls++
			if calls < 3 {
				return kv.ErrConflict
			}
			return nil
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if calls != 3 {
			t.Errorf("expected 3 calls, got %d", calls)
		}
	})

	t.Run("exhaustion is transient", func(t *testing.T) {
		calls := 0
		err := kv.Retry(ctx, 4, func() error {
			calls++
			return kv.ErrConflict
		})
		if !errors.Is(err, models.ErrTransientConflict) {
			t.Fatalf("expected ErrTransientConflict, got %v", err)
		}
		if !models.IsRetryable(err) {
			t.Error("exhausted retries should be retryable")
		}
		if calls != 4 {
			t.Errorf("expected 4 calls, got %d", calls)
		}
	})

	t.Run("other errors stop immediately", func(t *testing.T) {
		boom := errors.New("boom")
		calls := 0
		err := kv.Retry(ctx, 4, func() error {
			calls++
			return boom
		})
		if !errors.Is(err, boom) {
			t.Fatalf("expected boom, got %v", err)
		}
		if calls != 1 {
			t.Errorf("expected 1 call, got %d", calls)
		}
	})
}

func TestClosedMemoryIsUnavailable(t *testing.T) {
	store := kv.NewMemory()
	store.Close()

	_, err := store.Get(context.Background(), "a")
	if !errors.Is(err, models.ErrStoreUnavailable) {
		t.Errorf("expected ErrStoreUnavailable, got %v", err)
	}
}

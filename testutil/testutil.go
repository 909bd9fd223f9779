// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package testutil

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"github.com/danielhkuo/likey/cliparse"
	"github.com/danielhkuo/likey/db"
	"github.com/danielhkuo/likey/kv"
	"github.com/danielhkuo/likey/models"
)

// SetupTestDB creates a fresh SQLite-backed store in a temp directory
func SetupTestDB(t *testing.T) *kv.SQL {
	t.Helper()

	conn, err := db.Open(kv.DialectSQLite, filepath.Join(t.TempDir(), "likey.db"))
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}

	if err := db.CreateSchema(conn, kv.DialectSQLite); err != nil {
		conn.Close()
		t.Fatalf("Failed to create schema: %v", err)
	}

	store := kv.NewSQL(conn, kv.DialectSQLite)
	t.Cleanup(func() { store.Close() })
	return store
}

// SetupBoltStore creates a fresh BoltDB-backed store in a temp directory
func SetupBoltStore(t *testing.T) *kv.Bolt {
	t.Helper()

	store, err := kv.OpenBolt(filepath.Join(t.TempDir(), "likey.bolt"))
	if err != nil {
		t.Fatalf("Failed to open bolt store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

// GetTestConfig returns a standard test configuration
func GetTestConfig() cliparse.Config {
	return cliparse.Config{
		Port:          3319,
		DatabaseType:  "memory",
		BotToken:      "test-token",
		AdminIDs:      []int64{1},
		Mode:          cliparse.ModeWebhook,
		SessionTTL:    15 * time.Minute,
		OracleTimeout: time.Second,
		VoteRetries:   8,
		Workers:       4,
	}
}

// Clock is a manually advanced time source
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

func NewClock() *Clock {
	return &Clock{now: time.Date(2026, 1, 23, 12, 0, 0, 0, time.UTC)}
}

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// FakeOracle answers membership queries from a table
type FakeOracle struct {
	mu       sync.Mutex
	statuses map[string]models.MemberStatus
	Err      error
	Calls    int
}

func NewFakeOracle() *FakeOracle {
	return &FakeOracle{statuses: make(map[string]models.MemberStatus)}
}

func (o *FakeOracle) Set(channel models.ChannelRef, userID int64, status models.MemberStatus) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.statuses[fmt.Sprintf("%s/%d", channel, userID)] = status
}

func (o *FakeOracle) SetErr(err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.Err = err
}

func (o *FakeOracle) CallCount() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.Calls
}

// IsMember reports "left" for unknown pairs
func (o *FakeOracle) IsMember(ctx context.Context, channel models.ChannelRef, userID int64) (models.MemberStatus, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.Calls++
	if o.Err != nil {
		return "", o.Err
	}
	status, ok := o.statuses[fmt.Sprintf("%s/%d", channel, userID)]
	if !ok {
		return models.MemberLeft, nil
	}
	return status, nil
}

// Admins is a fixed allow-list
type Admins map[int64]bool

func (a Admins) IsAdmin(userID int64) bool { return a[userID] }

// MakeRequest creates an HTTP test request
func MakeRequest(method, path string, body interface{}, headers map[string]string) *http.Request {
	var req *http.Request
	if body != nil {
		var raw []byte
		switch b := body.(type) {
		case string:
			raw = []byte(b)
		case []byte:
			raw = b
		default:
			raw, _ = json.Marshal(body)
		}
		req = httptest.NewRequest(method, path, bytes.NewReader(raw))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}

	for k, v := range headers {
		req.Header.Set(k, v)
	}

	return req
}

// AssertStatus checks that the response has the expected status code
func AssertStatus(t *testing.T, w *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if w.Code != expected {
		t.Errorf("Expected status %d, got %d. Body: %s", expected, w.Code, w.Body.String())
	}
}

// AssertJSON decodes the response body into the provided struct
func AssertJSON(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.NewDecoder(w.Body).Decode(v); err != nil {
		t.Fatalf("Failed to decode JSON response: %v", err)
	}
}

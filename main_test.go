package main

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/danielhkuo/likey/cliparse"
	"github.com/danielhkuo/likey/kv"
	"github.com/danielhkuo/likey/testutil"
)

func TestOpenStore(t *testing.T) {
	tests := []struct {
		name   string
		dbType string
		file   string
	}{
		{"memory", cliparse.DatabaseMemory, ""},
		{"sqlite", cliparse.DatabaseSQLite, "likey.db"},
		{"bolt", cliparse.DatabaseBolt, "likey.bolt"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testutil.GetTestConfig()
			cfg.DatabaseType = tt.dbType
			if tt.file != "" {
				cfg.DatabaseURL = filepath.Join(t.TempDir(), tt.file)
			}

			store, err := openStore(cfg)
			if err != nil {
				t.Fatalf("open store: %v", err)
			}
			defer store.Close()

			ctx := context.Background()
			if err := store.Commit(ctx, kv.Op{Key: "marker", Expect: 0, Value: []byte("1")}); err != nil {
				t.Fatalf("commit: %v", err)
			}
			entry, err := store.Get(ctx, "marker")
			if err != nil || string(entry.Value) != "1" || entry.Version == 0 {
				t.Fatalf("unexpected entry %+v, err %v", entry, err)
			}
		})
	}
}

func TestOpenStoreBadPostgresURL(t *testing.T) {
	cfg := testutil.GetTestConfig()
	cfg.DatabaseType = cliparse.DatabasePostgres
	cfg.DatabaseURL = "postgres://nobody@127.0.0.1:1/none?sslmode=disable&connect_timeout=1"

	if store, err := openStore(cfg); err == nil {
		store.Close()
		t.Fatal("expected connection error")
	}
}

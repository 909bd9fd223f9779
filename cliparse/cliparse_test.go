// cliparse/cliparse_test.go
package cliparse

import (
	"log/slog"
	"testing"
	"time"
)

func TestParseFlags_EnvVars(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("BOT_TOKEN", "123:abc")
	t.Setenv("ADMIN_IDS", "1, 2,3")
	t.Setenv("SESSION_TTL", "10m")
	t.Setenv("GATE_FAIL_OPEN", "true")

	cfg, err := ParseFlags([]string{})
	if err != nil {
		t.Fatal(err)
	}

	if cfg.Port != 9000 {
		t.Errorf("expected port 9000, got %d", cfg.Port)
	}
	if len(cfg.AdminIDs) != 3 || cfg.AdminIDs[2] != 3 {
		t.Errorf("expected admins [1 2 3], got %v", cfg.AdminIDs)
	}
	if cfg.SessionTTL != 10*time.Minute {
		t.Errorf("expected 10m ttl, got %s", cfg.SessionTTL)
	}
	if !cfg.GateFailOpen {
		t.Error("expected fail-open from env")
	}
}

func TestParseFlags_Defaults(t *testing.T) {
	t.Setenv("BOT_TOKEN", "123:abc")

	cfg, err := ParseFlags([]string{})
	if err != nil {
		t.Fatal(err)
	}

	if cfg.Port != 3318 {
		t.Errorf("expected default port 3318, got %d", cfg.Port)
	}
	if cfg.DatabaseType != DatabaseSQLite || cfg.Mode != ModeWebhook {
		t.Errorf("unexpected defaults %s/%s", cfg.DatabaseType, cfg.Mode)
	}
	if cfg.SessionTTL != 15*time.Minute {
		t.Errorf("expected 15m ttl, got %s", cfg.SessionTTL)
	}
	if cfg.GateFailOpen {
		t.Error("gate must fail closed by default")
	}
	if cfg.VoteRetries != 8 {
		t.Errorf("expected 8 retries, got %d", cfg.VoteRetries)
	}
}

func TestParseFlags_CLIOverridesEnv(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("BOT_TOKEN", "from-env")

	cfg, err := ParseFlags([]string{"-p", "8080", "-t", "memory", "-token", "from-flag", "-admins", "42", "-mode", "poll"})
	if err != nil {
		t.Fatal(err)
	}

	// CLI should override env
	if cfg.Port != 8080 {
		t.Errorf("CLI should override env: expected 8080, got %d", cfg.Port)
	}
	if cfg.BotToken != "from-flag" {
		t.Errorf("expected flag token, got %q", cfg.BotToken)
	}
	if len(cfg.AdminIDs) != 1 || cfg.AdminIDs[0] != 42 {
		t.Errorf("expected admins [42], got %v", cfg.AdminIDs)
	}
	if cfg.Mode != ModePoll {
		t.Errorf("expected poll mode, got %s", cfg.Mode)
	}
}

func TestParseFlags_Errors(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		args []string
	}{
		{"missing token", nil, []string{}},
		{"bad database type", map[string]string{"BOT_TOKEN": "x"}, []string{"-t", "mongo"}},
		{"bad mode", map[string]string{"BOT_TOKEN": "x"}, []string{"-mode", "carrier-pigeon"}},
		{"bad port env", map[string]string{"BOT_TOKEN": "x", "PORT": "abc"}, []string{}},
		{"bad admin id", map[string]string{"BOT_TOKEN": "x"}, []string{"-admins", "1,two"}},
		{"zero workers", map[string]string{"BOT_TOKEN": "x"}, []string{"-workers", "0"}},
		{"bad log level", map[string]string{"BOT_TOKEN": "x"}, []string{"-log-level", "loud"}},
		{"in-memory sqlite", map[string]string{"BOT_TOKEN": "x"}, []string{"-t", "sqlite", "-d", ":memory:"}},
		{"in-memory sqlite url", map[string]string{"BOT_TOKEN": "x", "DATABASE_URL": "file::memory:?cache=shared"}, []string{"-t", "sqlite"}},
		{"in-memory sqlite mode", map[string]string{"BOT_TOKEN": "x"}, []string{"-t", "sqlite", "-d", "file:likey?mode=memory"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("BOT_TOKEN", "")
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			if _, err := ParseFlags(tt.args); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestSlogLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"Warn", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
	}

	for _, tt := range tests {
		if got := (Config{LogLevel: tt.in}).SlogLevel(); got != tt.want {
			t.Errorf("SlogLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

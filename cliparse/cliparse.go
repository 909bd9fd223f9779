package cliparse

import (
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Transport modes
const (
	ModeWebhook = "webhook"
	ModePoll    = "poll"
)

// Database types
const (
	DatabaseSQLite   = "sqlite"
	DatabasePostgres = "postgres"
	DatabaseBolt     = "bolt"
	DatabaseMemory   = "memory"
)

type Config struct {
	Port         int    `env:"PORT" envDefault:"3318"`
	DatabaseURL  string `env:"DATABASE_URL" envDefault:"likey.db"`
	DatabaseType string `env:"DATABASE_TYPE" envDefault:"sqlite"`

	BotToken     string  `env:"BOT_TOKEN"`
	AdminIDs     []int64 `env:"ADMIN_IDS" envSeparator:","`
	ForceChannel string  `env:"FORCE_CHANNEL"`
	Mode         string  `env:"MODE" envDefault:"webhook"`
	APIURL       string  `env:"TELEGRAM_API_URL" envDefault:"https://api.telegram.org"`

	SessionTTL    time.Duration `env:"SESSION_TTL" envDefault:"15m"`
	OracleTimeout time.Duration `env:"ORACLE_TIMEOUT" envDefault:"5s"`
	GateFailOpen  bool          `env:"GATE_FAIL_OPEN" envDefault:"false"`
	VoteRetries   uint          `env:"VOTE_RETRIES" envDefault:"8"`
	Workers       int           `env:"WORKERS" envDefault:"8"`

	OTelEndpoint string `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	LogLevel     string `env:"LOG_LEVEL" envDefault:"info"`
}

// ParseFlags reads the environment, then lets flags override it
func ParseFlags(args []string) (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}

	fs := flag.NewFlagSet("likey", flag.ContinueOnError)

	// Network and storage
	fs.IntVar(&cfg.Port, "p", cfg.Port, "Server port")
	fs.StringVar(&cfg.DatabaseURL, "d", cfg.DatabaseURL, "Database URL or file path")
	fs.StringVar(&cfg.DatabaseType, "t", cfg.DatabaseType, "Database type (sqlite, postgres, bolt or memory)")
	fs.StringVar(&cfg.Mode, "mode", cfg.Mode, "Update source (webhook or poll)")

	// Secrets (prefer env variables, but allow CLI for dev)
	fs.StringVar(&cfg.BotToken, "token", cfg.BotToken, "Bot API token (prefer env)")

	fs.StringVar(&cfg.ForceChannel, "force-channel", cfg.ForceChannel, "Default required channel")
	fs.Func("admins", "Comma separated admin user ids", func(s string) error {
		ids, err := parseIDs(s)
		if err != nil {
			return err
		}
		cfg.AdminIDs = ids
		return nil
	})
	fs.BoolVar(&cfg.GateFailOpen, "fail-open", cfg.GateFailOpen, "Allow gated actions when membership cannot be checked")
	fs.IntVar(&cfg.Workers, "workers", cfg.Workers, "Updates processed concurrently in poll mode")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level (debug, info, warn, error)")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (cfg Config) validate() error {
	if cfg.Port <= 0 || cfg.Port > 65535 {
		return fmt.Errorf("invalid port %d", cfg.Port)
	}

	switch cfg.DatabaseType {
	case DatabaseSQLite, DatabasePostgres, DatabaseBolt:
		if cfg.DatabaseURL == "" {
			return errors.New("database URL required (use -d or DATABASE_URL env)")
		}
		if cfg.DatabaseType == DatabaseSQLite && sqliteInMemory(cfg.DatabaseURL) {
			return errors.New("in-memory sqlite is lost when the pool reconnects; use -t memory instead")
		}
	case DatabaseMemory:
	default:
		return fmt.Errorf("unsupported database type %q", cfg.DatabaseType)
	}

	if cfg.Mode != ModeWebhook && cfg.Mode != ModePoll {
		return fmt.Errorf("unsupported mode %q", cfg.Mode)
	}

	// Secrets - MUST be provided
	if cfg.BotToken == "" {
		return errors.New("BOT_TOKEN required")
	}

	if cfg.Workers < 1 {
		return errors.New("workers must be at least 1")
	}

	if _, ok := logLevels[strings.ToLower(cfg.LogLevel)]; !ok {
		return fmt.Errorf("unknown log level %q", cfg.LogLevel)
	}
	return nil
}

func sqliteInMemory(url string) bool {
	path, _, _ := strings.Cut(strings.TrimPrefix(url, "file:"), "?")
	return path == ":memory:" || strings.Contains(url, "mode=memory")
}

var logLevels = map[string]slog.Level{
	"debug": slog.LevelDebug,
	"info":  slog.LevelInfo,
	"warn":  slog.LevelWarn,
	"error": slog.LevelError,
}

// SlogLevel maps LogLevel onto slog, defaulting to info.
func (cfg Config) SlogLevel() slog.Level {
	if level, ok := logLevels[strings.ToLower(cfg.LogLevel)]; ok {
		return level
	}
	return slog.LevelInfo
}

func parseIDs(s string) ([]int64, error) {
	var ids []int64
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid admin id %q", part)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

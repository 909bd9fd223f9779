// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package cliparse handles command-line argument parsing and configuration.

# Configuration

ParseFlags returns a Config struct with all settings:

	cfg, err := cliparse.ParseFlags(os.Args[1:])

Environment variables are read first; flags override them.

# Config Fields

  - Port: Server listen port (default: 3318)
  - DatabaseURL, DatabaseType: Store location and backend (sqlite, postgres, bolt, memory)
  - BotToken: Bot API token (required)
  - AdminIDs: Users allowed to set the required channel
  - ForceChannel: Required channel used until an admin sets one
  - Mode: webhook or poll
  - SessionTTL: How long an unfinished conversation step lives (default: 15m)
  - OracleTimeout: Bound on each membership lookup (default: 5s)
  - GateFailOpen: Allow gated actions when membership is unknown (default: false)
  - VoteRetries: Commit attempts per vote before giving up (default: 8)
  - Workers: Senders served concurrently in poll mode (default: 8)
  - OTelEndpoint: OTLP/HTTP endpoint; tracing is off when empty
  - LogLevel: debug, info, warn or error

# CLI Flags

	-p <port>             Server port
	-d <url>              Database URL or file path
	-t <type>             Database type
	-mode <mode>          webhook or poll
	-token <token>        Bot token (prefer env)
	-force-channel <ch>   Default required channel
	-admins <ids>         Comma separated admin ids
	-fail-open            Fail open on unknown membership
	-workers <n>          Poll mode concurrency
	-log-level <level>    Log level

# Environment Variables

	PORT, DATABASE_URL, DATABASE_TYPE, BOT_TOKEN, ADMIN_IDS, FORCE_CHANNEL,
	MODE, TELEGRAM_API_URL, SESSION_TTL, ORACLE_TIMEOUT, GATE_FAIL_OPEN,
	VOTE_RETRIES, WORKERS, OTEL_EXPORTER_OTLP_ENDPOINT, LOG_LEVEL
*/
package cliparse

// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package main provides the entry point for the likey bot server.

likey is a Telegram bot for Like banners: a user creates a titled banner,
shares it into a channel, and everyone else taps ❤️ once. A banner can
require membership in a channel before it accepts a vote.

# Starting the Server

	BOT_TOKEN=123:abc go run .

Or with flags:

	go run . -token 123:abc -t bolt -d likey.bolt -mode poll

A .env file in the working directory is loaded first when present.

# Configuration

Required settings:

  - BOT_TOKEN (-token): Bot API token

Optional settings:

  - PORT (-p): Server port (default: 3318)
  - DATABASE_TYPE (-t), DATABASE_URL (-d): Store (default: sqlite at likey.db)
  - MODE (-mode): webhook or poll (default: webhook)
  - ADMIN_IDS (-admins): Users allowed to set the required channel

See package cliparse for the full list.

# Architecture

  - conversation: Turns updates into replies (commands, steps, votes)
  - ledger: Banners and exactly-once vote counting
  - session: Per-user conversation state with expiry
  - gate: Channel membership decisions
  - settings, users: Global config, user records and counters
  - kv: Versioned key-value store over memory, SQL or bbolt
  - telegram: Bot API client, update parsing and intent delivery
  - worker: Webhook processing and the getUpdates loop
  - handlers, router, middleware: HTTP surface
  - telemetry: OpenTelemetry setup
  - db, auth, cliparse, models: Schema, admins, configuration, shared types

See package documentation for each component.
*/
package main

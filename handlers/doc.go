// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package handlers contains HTTP request handlers for the likey bot.

# Handler Types

  - WebhookHandler: receives Telegram updates and hands them to a worker.Processor
  - BannerHandler: read-only JSON views of banners and counters

Handlers are created via constructor functions:

	webhook := handlers.NewWebhookHandler(proc)
	banners := handlers.NewBannerHandler(ledger, users)

# Webhook

	POST /webhook → Receive

The body is passed through unparsed. A 200 tells Telegram the update is done,
including updates that were dropped as malformed. A 500 is only sent for
retryable store failures so Telegram redelivers; a redelivered vote is a
no-op because markers are permanent.

# Read API

	GET /banners/{id}          → GetBanner
	GET /users/{id}/banners    → ListBanners (?limit=1..200, oldest first)
	GET /stats                 → GetStats

Store errors map to 404 for unknown banners, 400 for invalid input and 503
when the store is unavailable or contended.
*/
package handlers

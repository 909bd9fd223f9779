// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package router defines HTTP routes for the likey bot.

# Route Registration

	mux := router.NewRouter(router.Deps{Processor: proc, Ledger: l, Users: u})

# Endpoints

	GET  /health               - Liveness
	POST /webhook              - Telegram updates (webhook mode only)
	GET  /banners/{id}         - One banner with its count
	GET  /users/{id}/banners   - An owner's banners
	GET  /stats                - Users and likes created

Every route except /health and / goes through middleware.Chain, which adds a
request id, a log line and a server span.
*/
package router

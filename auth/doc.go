// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package auth provides admin authorization and request id generation.

# Admins

Admins are a fixed allow-list of user ids supplied by the deployment:

	admins := auth.NewAdminList(cfg.AdminIDs)
	if admins.IsAdmin(userID) { ... }

AdminList satisfies conversation.AdminChecker. The engine never derives admin
status on its own.

# Request IDs

	id := auth.NewRequestID()

Random UUIDs used by middleware.WithRequestID to tag log lines.
*/
package auth

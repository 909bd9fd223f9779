// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package session tracks the one in-flight multi-step interaction each user may
have.

# States

	idle --create--> awaiting_title --valid_title--> idle
	idle --set_channel--> awaiting_channel_input --channel_text--> idle
	idle --my_channel--> awaiting_user_channel --channel_text--> idle
	any  --command | cancel | expire--> idle

Invalid input keeps the session where it is. The full table lives in
machine.go and Next is the only way to read it.

# Expiry

Sessions are stored under session:<userId> with an absolute ExpiresAt. Get
treats an expired record as Idle and removes it with a conditional delete, so
there is no background sweep.
*/
package session

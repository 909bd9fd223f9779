// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package models defines domain, response, and error types shared by every
package.

# Domain Types

  - User: an observed user with display name and optional personal channel
  - Like: a votable banner with an immutable required channel snapshot
  - VoteMarker: the permanent (like, voter) fact
  - Session: one in-flight conversation step per user
  - GlobalConfig: the bot-wide forced channel singleton
  - Stats: user and banner counters

# Channels

ChannelRef is either "@username" or a numeric chat id:

	ch, err := models.ParseChannelRef("mychannel") // "@mychannel"

Malformed input yields an error wrapping ErrInvalidInput.

# Errors

Sentinel errors classify every failure the engine reports:

	ErrInvalidInput      bad title or channel reference
	ErrNotFound          unknown banner
	ErrGateDenied        membership check said no
	ErrGateIndeterminate membership check failed
	ErrTransientConflict optimistic commit retries exhausted
	ErrStoreUnavailable  storage backend failed

Use errors.Is; IsRetryable groups the last two.

# Session States

	StateIdle                 = "idle"
	StateAwaitingTitle        = "awaiting_title"
	StateAwaitingChannelInput = "awaiting_channel_input"
	StateAwaitingUserChannel  = "awaiting_user_channel"
*/
package models

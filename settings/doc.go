// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

// Package settings stores the bot-wide configuration singleton under
// config:global. Writes are last-writer-wins.
package settings

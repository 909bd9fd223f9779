// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

// Package users keeps one record per user under user:<id>, the optional
// personal channel each user shares banners to, and the users_count and
// likes_created statistics.
package users

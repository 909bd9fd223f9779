// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package ledger creates Like banners and counts their votes.

# Creating Banners

	like, err := l.CreateBanner(ctx, ownerID, "demo", nil)

Titles are trimmed and NFC-normalized, then must hold 1-100 code points.
Banner ids are UUIDv7. The banner record, its owner index entry, and the
stats:likes_created counter are written in one commit.

# Voting

	res, err := l.RegisterVote(ctx, like.ID, voterID)

Each (banner, voter) pair gets at most one vote marker, and the banner's
VoteCount always equals the number of markers. The marker create and the
counter bump are a single conditional commit: the banner must still be at
the version that was read and the marker must still be absent. Losing a race
retries the whole read-check-commit with backoff; after WithRetries attempts
the error wraps models.ErrTransientConflict.

A second vote from the same voter, whether a real double tap or a redelivered
update, returns Accepted false and the unchanged count. Votes are permanent.

# Listing

	for like, err := range l.ListBanners(ctx, ownerID) {
		...
	}

The sequence walks the owner index in creation order one page at a time.
*/
package ledger

// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package gate decides whether a user may vote on or create a gated banner.

	e := gate.NewEvaluator(oracle, 5*time.Second)
	switch e.Evaluate(ctx, userID, like.RequiredChannel) {
	case gate.Allowed:
	case gate.Denied:
	case gate.Indeterminate:
	}

creator, administrator and member are Allowed. restricted, left and kicked
are Denied. An oracle error, a timeout, or any other status is Indeterminate.
Policy turns Indeterminate into a decision; the default is fail-closed.
*/
package gate

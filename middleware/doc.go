// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package middleware provides HTTP middleware and helper functions.

# Request Chain

Every route is wrapped the same way:

	mux.HandleFunc("POST /webhook", middleware.Chain("webhook", handler))

Chain applies WithRequestID, WithLogging and WithTracing. The request id is
taken from X-Request-ID when present and echoed back. WithTracing continues an
incoming W3C traceparent.

# JSON Helpers

	middleware.JSONResponse(w, http.StatusOK, data)
	middleware.ErrorResponse(w, http.StatusNotFound, "banner not found")

# Bodies

	raw, err := middleware.ReadBody(r, 1<<20)

Returns ErrBodyTooLarge past the limit.

# Client IP Extraction

	ip := middleware.GetClientIP(r)

Handles X-Forwarded-For and X-Real-IP. Logged with every request.
*/
package middleware

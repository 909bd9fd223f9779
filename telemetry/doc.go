// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

// Package telemetry wires OpenTelemetry tracing. Spans are started by the
// ledger and by the HTTP middleware; Setup decides where they go.
package telemetry

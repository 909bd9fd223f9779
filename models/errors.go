// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package models

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidInput      = errors.New("invalid input")
	ErrNotFound          = errors.New("not found")
	ErrGateDenied        = errors.New("gate denied")
	ErrGateIndeterminate = errors.New("gate indeterminate")
	// ErrTransientConflict is retryable: the optimistic commit lost too many races.
	ErrTransientConflict = errors.New("transient store conflict")
	ErrStoreUnavailable  = errors.New("store unavailable")
)

// Invalid returns an ErrInvalidInput carrying a formatted reason.
func Invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

// IsRetryable reports whether the caller may safely redeliver the request.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrTransientConflict) || errors.Is(err, ErrStoreUnavailable)
}

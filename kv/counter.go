// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package kv

import (
	"context"
	"errors"
	"fmt"
	"strconv"
)

// GetCounter reads a decimal counter. A missing key reads as 0 at version 0.
func GetCounter(ctx context.Context, s Store, key string) (n int64, version int64, err error) {
	e, err := s.Get(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return 0, 0, nil
	}
	if err != nil {
		return 0, 0, err
	}
	n, err = strconv.ParseInt(string(e.Value), 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("counter %q: %w", key, err)
	}
	return n, e.Version, nil
}

// CounterOp sets key to n, conditional on the version it was read at.
func CounterOp(key string, n, version int64) Op {
	return Op{Key: key, Expect: version, Value: []byte(strconv.FormatInt(n, 10))}
}

// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package auth

import (
	"github.com/google/uuid"
)

// AdminList is a fixed allow-list of admin user ids
type AdminList struct {
	ids map[int64]struct{}
}

func NewAdminList(ids []int64) AdminList {
	m := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		m[id] = struct{}{}
	}
	return AdminList{ids: m}
}

// IsAdmin reports whether userID is on the list
func (a AdminList) IsAdmin(userID int64) bool {
	_, ok := a.ids[userID]
	return ok
}

func (a AdminList) Len() int { return len(a.ids) }

// NewRequestID returns a random id for correlating log lines of one request
func NewRequestID() string {
	return uuid.NewString()
}

package models

import (
	"fmt"
	"time"
)

// Store keys

const (
	ConfigKey          = "config:global"
	UsersCountKey      = "stats:users_count"
	LikesCreatedKey    = "stats:likes_created"
	ownerIndexTemplate = "index:owner:%d:"
)

func BannerKey(likeID string) string { return "banner:" + likeID }

func VoteKey(likeID string, voterID int64) string {
	return fmt.Sprintf("vote:%s:%d", likeID, voterID)
}

func SessionKey(userID int64) string { return fmt.Sprintf("session:%d", userID) }

func UserKey(userID int64) string { return fmt.Sprintf("user:%d", userID) }

// OwnerIndexPrefix is the scan prefix for every banner owned by ownerID.
// The trailing colon keeps owner 1 from matching owner 12.
func OwnerIndexPrefix(ownerID int64) string {
	return fmt.Sprintf(ownerIndexTemplate, ownerID)
}

// OwnerIndexKey sorts by creation time, then by id. The timestamp is zero
// padded so byte order matches numeric order.
func OwnerIndexKey(ownerID int64, createdAt time.Time, likeID string) string {
	return fmt.Sprintf("%s%020d:%s", OwnerIndexPrefix(ownerID), createdAt.UnixNano(), likeID)
}

package models

import (
	"regexp"
	"strings"
	"time"
)

// MaxTitleLength is the upper bound on a banner title, in code points.
const MaxTitleLength = 100

// Session states
const (
	StateIdle                 SessionState = "idle"
	StateAwaitingTitle        SessionState = "awaiting_title"
	StateAwaitingChannelInput SessionState = "awaiting_channel_input"
	StateAwaitingUserChannel  SessionState = "awaiting_user_channel"
)

// Membership statuses reported by the oracle
const (
	MemberCreator       MemberStatus = "creator"
	MemberAdministrator MemberStatus = "administrator"
	MemberMember        MemberStatus = "member"
	MemberRestricted    MemberStatus = "restricted"
	MemberLeft          MemberStatus = "left"
	MemberKicked        MemberStatus = "kicked"
)

type SessionState string

type MemberStatus string

// ChannelRef names a channel or group, either "@username" or a numeric chat id.
type ChannelRef string

var (
	channelUsername = regexp.MustCompile(`^@[A-Za-z0-9_]{3,32}$`)
	channelNumeric  = regexp.MustCompile(`^-?[0-9]+$`)
)

// ParseChannelRef normalizes free text into a ChannelRef.
// Numeric ids are kept verbatim, anything else gets an "@" prefix.
func ParseChannelRef(raw string) (ChannelRef, error) {
	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(s, "https://t.me/")
	if s == "" {
		return "", Invalid("channel reference is empty")
	}
	if channelNumeric.MatchString(s) {
		return ChannelRef(s), nil
	}
	if !strings.HasPrefix(s, "@") {
		s = "@" + s
	}
	if !channelUsername.MatchString(s) {
		return "", Invalid("malformed channel reference %q", raw)
	}
	return ChannelRef(s), nil
}

// URL returns the public join link, or "" for numeric ids.
func (c ChannelRef) URL() string {
	if !strings.HasPrefix(string(c), "@") {
		return ""
	}
	return "https://t.me/" + strings.TrimPrefix(string(c), "@")
}

func (c ChannelRef) String() string { return string(c) }

// Domain types

type User struct {
	ID          int64       `json:"id"`
	DisplayName string      `json:"display_name"`
	FirstSeenAt time.Time   `json:"first_seen_at"`
	Channel     *ChannelRef `json:"channel,omitempty"`
}

// Like is a votable banner.
type Like struct {
	ID              string      `json:"id"`
	OwnerID         int64       `json:"owner_id"`
	Title           string      `json:"title"`
	CreatedAt       time.Time   `json:"created_at"`
	RequiredChannel *ChannelRef `json:"required_channel,omitempty"`
	VoteCount       int64       `json:"vote_count"`
}

// VoteMarker records that VoterID has voted on LikeID. Markers are permanent.
type VoteMarker struct {
	LikeID  string    `json:"like_id"`
	VoterID int64     `json:"voter_id"`
	VotedAt time.Time `json:"voted_at"`
}

type VoteResult struct {
	Accepted bool  `json:"accepted"`
	NewCount int64 `json:"new_count"`
}

type Session struct {
	UserID    int64             `json:"user_id"`
	State     SessionState      `json:"state"`
	Payload   map[string]string `json:"payload,omitempty"`
	ExpiresAt time.Time         `json:"expires_at"`
}

// GlobalConfig is the bot-wide configuration singleton.
type GlobalConfig struct {
	ForcedChannel *ChannelRef `json:"forced_channel,omitempty"`
	UpdatedBy     int64       `json:"updated_by,omitempty"`
	UpdatedAt     time.Time   `json:"updated_at,omitempty"`
}

type Stats struct {
	Users        int64 `json:"users"`
	LikesCreated int64 `json:"likes_created"`
}

// Response types

type BannerListResponse struct {
	OwnerID int64  `json:"owner_id"`
	Banners []Like `json:"banners"`
}

type VoterResponse struct {
	LikeID  string `json:"like_id"`
	VoterID int64  `json:"voter_id"`
	Voted   bool   `json:"voted"`
}

// Error response

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package conversation

import (
	"context"

	"github.com/danielhkuo/likey/models"
)

type EventKind int

const (
	EventText EventKind = iota
	EventButton
)

func (k EventKind) String() string {
	if k == EventButton {
		return "button"
	}
	return "text"
}

// Event is one inbound message or button press.
type Event struct {
	Kind       EventKind
	SenderID   int64
	SenderName string
	ChatID     int64
	MessageID  int64
	// Payload is the message text or the button's action data.
	Payload    string
	CallbackID string
	// ForwardChatID and ForwardChatUsername identify the channel a forwarded
	// message came from. ForwardChatUsername has no leading "@".
	ForwardChatID       int64
	ForwardChatUsername string
}

// Button is either an action button or a link button when URL is set.
type Button struct {
	Label  string `json:"label"`
	Action string `json:"action,omitempty"`
	URL    string `json:"url,omitempty"`
}

// Reply is a new outbound message. Channel, when set, takes precedence over
// ChatID.
type Reply struct {
	ChatID  int64             `json:"chat_id,omitempty"`
	Channel models.ChannelRef `json:"channel,omitempty"`
	Text    string            `json:"text"`
	Buttons [][]Button        `json:"buttons,omitempty"`
}

// Edit replaces the buttons under an existing message.
type Edit struct {
	ChatID    int64      `json:"chat_id"`
	MessageID int64      `json:"message_id"`
	Buttons   [][]Button `json:"buttons"`
}

// Notice answers a button press with a toast, or a dialog when Alert is set.
type Notice struct {
	CallbackID string `json:"callback_id"`
	Text       string `json:"text,omitempty"`
	Alert      bool   `json:"alert,omitempty"`
}

// Intent is everything the gateway should do in response to an Event.
type Intent struct {
	Replies []Reply            `json:"replies,omitempty"`
	Edit    *Edit              `json:"edit,omitempty"`
	Notice  *Notice            `json:"notice,omitempty"`
	Vote    *models.VoteResult `json:"vote,omitempty"`
	Banner  *models.Like       `json:"banner,omitempty"`
	// Refused is set when the membership gate stopped the action. It wraps
	// models.ErrGateDenied or models.ErrGateIndeterminate.
	Refused error `json:"-"`
}

func (i *Intent) reply(r Reply) { i.Replies = append(i.Replies, r) }

// Poster publishes to a channel while an event is being handled, so the
// reply to the user can depend on whether the post went through.
type Poster interface {
	PostToChannel(ctx context.Context, ch models.ChannelRef, text string, buttons [][]Button, silent bool) error
}

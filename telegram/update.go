// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package telegram

import (
	"fmt"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/danielhkuo/likey/conversation"
)

// ParseUpdate decodes a webhook or getUpdates body. ok is false for update
// kinds the bot does not handle.
func ParseUpdate(raw []byte) (ev conversation.Event, ok bool, err error) {
	if !gjson.ValidBytes(raw) {
		return conversation.Event{}, false, fmt.Errorf("malformed update")
	}
	u := gjson.ParseBytes(raw)

	if msg := u.Get("message"); msg.Exists() {
		text := msg.Get("text")
		fwd := msg.Get("forward_from_chat")
		fromChannel := fwd.Get("type").String() == "channel"
		if (!text.Exists() && !fromChannel) || !msg.Get("from.id").Exists() {
			return conversation.Event{}, false, nil
		}
		ev := conversation.Event{
			Kind:       conversation.EventText,
			SenderID:   msg.Get("from.id").Int(),
			SenderName: displayName(msg.Get("from")),
			ChatID:     msg.Get("chat.id").Int(),
			MessageID:  msg.Get("message_id").Int(),
			Payload:    text.String(),
		}
		if fromChannel {
			ev.ForwardChatID = fwd.Get("id").Int()
			ev.ForwardChatUsername = fwd.Get("username").String()
		}
		return ev, true, nil
	}

	if cb := u.Get("callback_query"); cb.Exists() {
		if !cb.Get("from.id").Exists() || !cb.Get("data").Exists() {
			return conversation.Event{}, false, nil
		}
		return conversation.Event{
			Kind:       conversation.EventButton,
			SenderID:   cb.Get("from.id").Int(),
			SenderName: displayName(cb.Get("from")),
			ChatID:     cb.Get("message.chat.id").Int(),
			MessageID:  cb.Get("message.message_id").Int(),
			Payload:    cb.Get("data").String(),
			CallbackID: cb.Get("id").String(),
		}, true, nil
	}

	return conversation.Event{}, false, nil
}

func displayName(from gjson.Result) string {
	name := strings.TrimSpace(from.Get("first_name").String() + " " + from.Get("last_name").String())
	if name == "" {
		name = from.Get("username").String()
	}
	return name
}

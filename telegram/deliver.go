// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/danielhkuo/likey/conversation"
	"github.com/danielhkuo/likey/models"
)

type inlineButton struct {
	Text         string `json:"text"`
	CallbackData string `json:"callback_data,omitempty"`
	URL          string `json:"url,omitempty"`
}

type inlineKeyboard struct {
	InlineKeyboard [][]inlineButton `json:"inline_keyboard"`
}

func keyboard(rows [][]conversation.Button) *inlineKeyboard {
	if len(rows) == 0 {
		return nil
	}
	kb := &inlineKeyboard{InlineKeyboard: make([][]inlineButton, 0, len(rows))}
	for _, row := range rows {
		out := make([]inlineButton, 0, len(row))
		for _, b := range row {
			out = append(out, inlineButton{Text: b.Label, CallbackData: b.Action, URL: b.URL})
		}
		kb.InlineKeyboard = append(kb.InlineKeyboard, out)
	}
	return kb
}

// PostToChannel implements conversation.Poster. A silent post arrives
// without a notification.
func (c *Client) PostToChannel(ctx context.Context, ch models.ChannelRef, text string, buttons [][]conversation.Button, silent bool) error {
	payload := map[string]any{
		"chat_id": ch.String(),
		"text":    text,
	}
	if kb := keyboard(buttons); kb != nil {
		payload["reply_markup"] = kb
	}
	if silent {
		payload["disable_notification"] = true
	}
	if _, err := c.call(ctx, "sendMessage", payload); err != nil {
		return fmt.Errorf("post to %s: %w", ch, err)
	}
	return nil
}

// Deliver renders an intent as Bot API calls. The callback is answered
// first so the user's spinner stops even if later calls fail. A failed edit
// is logged and skipped; failed sends are returned joined.
func (c *Client) Deliver(ctx context.Context, intent conversation.Intent) error {
	var errs []error

	if n := intent.Notice; n != nil && n.CallbackID != "" {
		if err := c.AnswerCallbackQuery(ctx, n.CallbackID, n.Text, n.Alert); err != nil {
			errs = append(errs, fmt.Errorf("answer callback: %w", err))
		}
	}

	if e := intent.Edit; e != nil {
		if err := c.EditMessageReplyMarkup(ctx, e.ChatID, e.MessageID, keyboard(e.Buttons)); err != nil {
			slog.Warn("failed to refresh keyboard", "chat_id", e.ChatID, "message_id", e.MessageID, "error", err)
		}
	}

	for _, r := range intent.Replies {
		var chat any = r.ChatID
		if r.Channel != "" {
			chat = r.Channel.String()
		}

		var kb any
		if k := keyboard(r.Buttons); k != nil {
			kb = k
		}
		if _, err := c.SendMessage(ctx, chat, r.Text, kb); err != nil {
			errs = append(errs, fmt.Errorf("send to %v: %w", chat, err))
		}
	}

	return errors.Join(errs...)
}

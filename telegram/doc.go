// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package telegram adapts the Telegram Bot API to the conversation engine.

Client.IsMember is the membership oracle (getChatMember). ParseUpdate turns a
webhook or getUpdates body into a conversation.Event. Client.Deliver renders a
conversation.Intent into answerCallbackQuery, editMessageReplyMarkup and
sendMessage calls.

Every call goes through one http.Client with a bounded timeout, so a slow API
cannot hold a request open. Responses are read with gjson rather than full
structs since only a handful of fields matter.
*/
package telegram

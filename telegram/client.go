// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/danielhkuo/likey/models"
)

const (
	DefaultAPIURL  = "https://api.telegram.org"
	DefaultTimeout = 10 * time.Second
)

type Config struct {
	Token      string
	APIURL     string
	HTTPClient *http.Client
}

// Client calls the Bot API. It is both the membership oracle and the
// outbound half of the messaging gateway.
type Client struct {
	token  string
	apiURL string
	http   *http.Client
}

func NewClient(cfg Config) *Client {
	if cfg.APIURL == "" {
		cfg.APIURL = DefaultAPIURL
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: DefaultTimeout}
	}
	return &Client{
		token:  cfg.Token,
		apiURL: strings.TrimRight(cfg.APIURL, "/"),
		http:   cfg.HTTPClient,
	}
}

// APIError is an unsuccessful Bot API reply.
type APIError struct {
	Method      string
	Code        int64
	Description string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("telegram %s: %d %s", e.Method, e.Code, e.Description)
}

func (c *Client) call(ctx context.Context, method string, payload any) (gjson.Result, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return gjson.Result{}, fmt.Errorf("marshal %s request: %w", method, err)
	}

	url := fmt.Sprintf("%s/bot%s/%s", c.apiURL, c.token, method)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return gjson.Result{}, fmt.Errorf("build %s request: %w", method, err)
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := c.http.Do(req)
	if err != nil {
		return gjson.Result{}, fmt.Errorf("%s request failed: %w", method, err)
	}
	defer res.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(res.Body, 4<<20))
	if err != nil {
		return gjson.Result{}, fmt.Errorf("read %s response: %w", method, err)
	}
	if !gjson.ValidBytes(raw) {
		return gjson.Result{}, fmt.Errorf("%s response status %d: %s", method, res.StatusCode, strings.TrimSpace(string(raw)))
	}

	reply := gjson.ParseBytes(raw)
	if !reply.Get("ok").Bool() {
		code := reply.Get("error_code").Int()
		if code == 0 {
			code = int64(res.StatusCode)
		}
		return gjson.Result{}, &APIError{Method: method, Code: code, Description: reply.Get("description").String()}
	}
	return reply.Get("result"), nil
}

// IsMember implements the membership oracle with getChatMember.
func (c *Client) IsMember(ctx context.Context, channel models.ChannelRef, userID int64) (models.MemberStatus, error) {
	result, err := c.call(ctx, "getChatMember", map[string]any{
		"chat_id": channel.String(),
		"user_id": userID,
	})
	if err != nil {
		return "", err
	}
	status := result.Get("status").String()
	if status == "" {
		return "", fmt.Errorf("getChatMember response missing status")
	}
	return models.MemberStatus(status), nil
}

// SendMessage posts text to chat, which is a numeric id or "@channel".
// It returns the new message id.
func (c *Client) SendMessage(ctx context.Context, chat any, text string, keyboard any) (int64, error) {
	payload := map[string]any{
		"chat_id": chat,
		"text":    text,
	}
	if keyboard != nil {
		payload["reply_markup"] = keyboard
	}
	result, err := c.call(ctx, "sendMessage", payload)
	if err != nil {
		return 0, err
	}
	return result.Get("message_id").Int(), nil
}

func (c *Client) EditMessageReplyMarkup(ctx context.Context, chatID, messageID int64, keyboard any) error {
	_, err := c.call(ctx, "editMessageReplyMarkup", map[string]any{
		"chat_id":      chatID,
		"message_id":   messageID,
		"reply_markup": keyboard,
	})
	return err
}

func (c *Client) AnswerCallbackQuery(ctx context.Context, callbackID, text string, alert bool) error {
	payload := map[string]any{"callback_query_id": callbackID}
	if text != "" {
		payload["text"] = text
		payload["show_alert"] = alert
	}
	_, err := c.call(ctx, "answerCallbackQuery", payload)
	return err
}

// Update is one raw update from getUpdates.
type Update struct {
	ID  int64
	Raw []byte
}

// GetUpdates long-polls for updates after offset. timeout is in seconds and
// the http client's own timeout must exceed it.
func (c *Client) GetUpdates(ctx context.Context, offset int64, timeout int) ([]Update, error) {
	result, err := c.call(ctx, "getUpdates", map[string]any{
		"offset":          offset,
		"timeout":         timeout,
		"allowed_updates": []string{"message", "callback_query"},
	})
	if err != nil {
		return nil, err
	}

	var updates []Update
	for _, u := range result.Array() {
		updates = append(updates, Update{ID: u.Get("update_id").Int(), Raw: []byte(u.Raw)})
	}
	return updates, nil
}

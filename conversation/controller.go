// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package conversation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/danielhkuo/likey/gate"
	"github.com/danielhkuo/likey/ledger"
	"github.com/danielhkuo/likey/models"
	"github.com/danielhkuo/likey/session"
	"github.com/danielhkuo/likey/settings"
	"github.com/danielhkuo/likey/users"
)

var tracer = otel.Tracer("github.com/danielhkuo/likey/conversation")

// AdminChecker is supplied by the deployment.
type AdminChecker interface {
	IsAdmin(userID int64) bool
}

// Deps are the collaborators a Controller orchestrates.
type Deps struct {
	Ledger   *ledger.Ledger
	Sessions *session.Store
	Gate     *gate.Evaluator
	Policy   gate.Policy
	Settings *settings.Store
	Users    *users.Store
	Admins   AdminChecker
	Poster   Poster
}

// Controller turns inbound events into intents. It keeps no state of its
// own, so any number of controllers may serve the same store.
type Controller struct {
	Deps
}

func New(deps Deps) *Controller {
	return &Controller{Deps: deps}
}

// Handle processes one event. User mistakes become replies inside the
// Intent; the returned error is reserved for failures the transport should
// retry (see models.IsRetryable) or report.
func (c *Controller) Handle(ctx context.Context, ev Event) (intent Intent, err error) {
	ctx, span := tracer.Start(ctx, "conversation.Handle", trace.WithAttributes(
		attribute.String("kind", ev.Kind.String()),
		attribute.Int64("sender_id", ev.SenderID),
	))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	if _, _, err := c.Users.Touch(ctx, ev.SenderID, ev.SenderName); err != nil {
		return Intent{}, err
	}

	if ev.Kind == EventButton {
		return c.handleButton(ctx, ev)
	}
	return c.handleText(ctx, ev)
}

func (c *Controller) handleText(ctx context.Context, ev Event) (Intent, error) {
	if cmd, ok := parseCommand(ev.Payload); ok {
		return c.command(ctx, ev, cmd)
	}

	sess, err := c.Sessions.Get(ctx, ev.SenderID)
	if err != nil {
		return Intent{}, err
	}

	switch sess.State {
	case models.StateAwaitingTitle:
		return c.submitTitle(ctx, ev)
	case models.StateAwaitingChannelInput:
		return c.submitForcedChannel(ctx, ev)
	case models.StateAwaitingUserChannel:
		return c.submitUserChannel(ctx, ev)
	default:
		return textReply(ev, textIdleHint), nil
	}
}

func (c *Controller) handleButton(ctx context.Context, ev Event) (Intent, error) {
	data := ev.Payload
	switch {
	case strings.HasPrefix(data, actionPrefix):
		cmd, ok := commandNames[strings.TrimPrefix(data, actionPrefix)]
		if !ok {
			return notice(ev, "", false), nil
		}
		intent, err := c.command(ctx, ev, cmd)
		if err == nil && intent.Notice == nil {
			intent.Notice = &Notice{CallbackID: ev.CallbackID}
		}
		return intent, err

	case strings.HasPrefix(data, likePrefix):
		return c.vote(ctx, ev, strings.TrimPrefix(data, likePrefix))

	case strings.HasPrefix(data, shareSendPrefix):
		return c.shareSend(ctx, ev, strings.TrimPrefix(data, shareSendPrefix))

	case strings.HasPrefix(data, shareManualPrefix):
		return c.shareManual(ctx, ev, strings.TrimPrefix(data, shareManualPrefix))

	case strings.HasPrefix(data, manualChoosePrefix):
		return c.manualChoose(ctx, ev, strings.TrimPrefix(data, manualChoosePrefix))

	case strings.HasPrefix(data, sharePrefix):
		return c.share(ctx, ev, strings.TrimPrefix(data, sharePrefix))

	case data == actionClearChannel:
		if _, err := c.Users.ClearChannel(ctx, ev.SenderID); err != nil {
			return Intent{}, err
		}
		intent := textReply(ev, textChannelCleared)
		intent.Notice = &Notice{CallbackID: ev.CallbackID}
		return intent, c.Sessions.Clear(ctx, ev.SenderID)

	default:
		return notice(ev, "", false), nil
	}
}

// vote is available in every session state and never touches the session.
func (c *Controller) vote(ctx context.Context, ev Event, likeID string) (Intent, error) {
	like, err := c.Ledger.GetBanner(ctx, likeID)
	if errors.Is(err, models.ErrNotFound) || errors.Is(err, models.ErrInvalidInput) {
		return notice(ev, textGone, true), nil
	}
	if err != nil {
		return Intent{}, err
	}

	if d := c.Gate.Evaluate(ctx, ev.SenderID, like.RequiredChannel); !c.Policy.Permit(d) {
		intent := notice(ev, joinText(*like.RequiredChannel), true)
		if d == gate.Indeterminate {
			intent = notice(ev, textIndeterminate, true)
		}
		intent.Refused = fmt.Errorf("vote on %s: %w", likeID, d.Err())
		return intent, nil
	}

	res, err := c.Ledger.RegisterVote(ctx, likeID, ev.SenderID)
	if errors.Is(err, models.ErrNotFound) {
		return notice(ev, textGone, true), nil
	}
	if err != nil {
		return Intent{}, err
	}

	like.VoteCount = res.NewCount
	intent := Intent{Vote: &res, Banner: &like}
	if res.Accepted {
		intent.Notice = &Notice{CallbackID: ev.CallbackID, Text: fmt.Sprintf("❤️ %d now!", res.NewCount)}
	} else {
		intent.Notice = &Notice{CallbackID: ev.CallbackID, Text: fmt.Sprintf("You already liked this (%d).", res.NewCount)}
	}
	if ev.MessageID != 0 {
		intent.Edit = &Edit{ChatID: ev.ChatID, MessageID: ev.MessageID, Buttons: bannerKeyboard(like)}
	}
	return intent, nil
}

func (c *Controller) share(ctx context.Context, ev Event, likeID string) (Intent, error) {
	like, intent, ok, err := c.ownedBanner(ctx, ev, likeID)
	if !ok || err != nil {
		return intent, err
	}

	intent = notice(ev, "", false)
	intent.Banner = &like
	if ev.MessageID != 0 {
		intent.Edit = &Edit{ChatID: ev.ChatID, MessageID: ev.MessageID, Buttons: shareKeyboard(like)}
	}
	return intent, nil
}

func (c *Controller) shareSend(ctx context.Context, ev Event, likeID string) (Intent, error) {
	like, intent, ok, err := c.ownedBanner(ctx, ev, likeID)
	if !ok || err != nil {
		return intent, err
	}

	user, err := c.Users.Get(ctx, ev.SenderID)
	if err != nil {
		return Intent{}, err
	}

	intent = notice(ev, "", false)
	if user.Channel == nil {
		intent.reply(Reply{ChatID: ev.ChatID, Text: textNoChannel, Buttons: manageKeyboard()})
		return intent, nil
	}

	intent.Banner = &like
	if err := c.Poster.PostToChannel(ctx, *user.Channel, bannerText(like), bannerKeyboard(like), false); err != nil {
		slog.Warn("direct share failed", "like_id", like.ID, "channel", *user.Channel, "error", err)
		intent.reply(Reply{
			ChatID:  ev.ChatID,
			Text:    textDirectSendFailed,
			Buttons: [][]Button{{{Label: "🧰 Manual share", Action: shareManualPrefix + like.ID}}},
		})
		return intent, nil
	}
	slog.Info("banner shared", "like_id", like.ID, "channel", *user.Channel)
	intent.reply(Reply{ChatID: ev.ChatID, Text: textSentToChannel})
	return intent, nil
}

// shareManual swaps the message's buttons for a channel picker.
func (c *Controller) shareManual(ctx context.Context, ev Event, likeID string) (Intent, error) {
	like, intent, ok, err := c.ownedBanner(ctx, ev, likeID)
	if !ok || err != nil {
		return intent, err
	}

	user, err := c.Users.Get(ctx, ev.SenderID)
	if err != nil {
		return Intent{}, err
	}

	intent = notice(ev, "", false)
	intent.Banner = &like
	if ev.MessageID != 0 {
		intent.Edit = &Edit{ChatID: ev.ChatID, MessageID: ev.MessageID, Buttons: manualKeyboard(like, user.Channel)}
	}
	return intent, nil
}

func (c *Controller) manualChoose(ctx context.Context, ev Event, likeID string) (Intent, error) {
	like, intent, ok, err := c.ownedBanner(ctx, ev, likeID)
	if !ok || err != nil {
		return intent, err
	}

	user, err := c.Users.Get(ctx, ev.SenderID)
	if err != nil {
		return Intent{}, err
	}

	intent = notice(ev, "", false)
	if user.Channel == nil {
		intent.reply(Reply{ChatID: ev.ChatID, Text: textNoChannel, Buttons: manageKeyboard()})
		return intent, nil
	}

	intent.Banner = &like
	ch := *user.Channel
	err = c.Poster.PostToChannel(ctx, ch, textManualLead, nil, false)
	if err == nil {
		err = c.Poster.PostToChannel(ctx, ch, bannerText(like), bannerKeyboard(like), false)
	}
	if err != nil {
		slog.Warn("manual share failed", "like_id", like.ID, "channel", ch, "error", err)
		intent.reply(Reply{ChatID: ev.ChatID, Text: textManualSendFailed})
		return intent, nil
	}

	slog.Info("banner shared", "like_id", like.ID, "channel", ch, "manual", true)
	if ev.MessageID != 0 {
		intent.Edit = &Edit{ChatID: ev.ChatID, MessageID: ev.MessageID, Buttons: sentKeyboard(like)}
	}
	return intent, nil
}

// ownedBanner loads likeID and checks the sender created it. When ok is
// false the returned intent already explains why.
func (c *Controller) ownedBanner(ctx context.Context, ev Event, likeID string) (models.Like, Intent, bool, error) {
	like, err := c.Ledger.GetBanner(ctx, likeID)
	if errors.Is(err, models.ErrNotFound) || errors.Is(err, models.ErrInvalidInput) {
		return models.Like{}, notice(ev, textGone, true), false, nil
	}
	if err != nil {
		return models.Like{}, Intent{}, false, err
	}
	if like.OwnerID != ev.SenderID {
		return models.Like{}, notice(ev, textOwnerOnly, true), false, nil
	}
	return like, Intent{}, true, nil
}

func (c *Controller) submitTitle(ctx context.Context, ev Event) (Intent, error) {
	forced, err := c.Settings.ForcedChannel(ctx)
	if err != nil {
		return Intent{}, err
	}
	if blocked, ok := c.checkGate(ctx, ev, forced); !ok {
		if _, err := c.Sessions.Advance(ctx, ev.SenderID, session.TriggerCancel, nil); err != nil {
			return Intent{}, err
		}
		return blocked, nil
	}

	like, err := c.Ledger.CreateBanner(ctx, ev.SenderID, ev.Payload, forced)
	if errors.Is(err, models.ErrInvalidInput) {
		if _, err := c.Sessions.Advance(ctx, ev.SenderID, session.TriggerInvalidTitle, nil); err != nil {
			return Intent{}, err
		}
		return textReply(ev, textTitleInvalid), nil
	}
	if err != nil {
		return Intent{}, err
	}

	if _, err := c.Sessions.Advance(ctx, ev.SenderID, session.TriggerValidTitle, nil); err != nil {
		return Intent{}, err
	}

	intent := Intent{Banner: &like}
	intent.reply(Reply{
		ChatID:  ev.ChatID,
		Text:    bannerText(like),
		Buttons: [][]Button{{{Label: "📤 Share", Action: sharePrefix + like.ID}}},
	})
	return intent, nil
}

func (c *Controller) submitForcedChannel(ctx context.Context, ev Event) (Intent, error) {
	if !c.Admins.IsAdmin(ev.SenderID) {
		if _, err := c.Sessions.Advance(ctx, ev.SenderID, session.TriggerCancel, nil); err != nil {
			return Intent{}, err
		}
		return textReply(ev, textAdminOnly), nil
	}

	cfg, err := c.Settings.SetForcedChannel(ctx, ev.SenderID, ev.Payload)
	if errors.Is(err, models.ErrInvalidInput) {
		if _, err := c.Sessions.Advance(ctx, ev.SenderID, session.TriggerInvalidChannel, nil); err != nil {
			return Intent{}, err
		}
		return textReply(ev, textChannelInvalid), nil
	}
	if err != nil {
		return Intent{}, err
	}

	if _, err := c.Sessions.Advance(ctx, ev.SenderID, session.TriggerChannelText, nil); err != nil {
		return Intent{}, err
	}
	if cfg.ForcedChannel == nil {
		return textReply(ev, textForcedCleared), nil
	}
	return textReply(ev, "Required channel set: "+cfg.ForcedChannel.String()), nil
}

// submitUserChannel registers the channel only after a silent test post
// lands there. Either way the session returns to Idle.
func (c *Controller) submitUserChannel(ctx context.Context, ev Event) (Intent, error) {
	ch, err := forwardedOrTyped(ev)
	if err != nil {
		if _, err := c.Sessions.Advance(ctx, ev.SenderID, session.TriggerInvalidChannel, nil); err != nil {
			return Intent{}, err
		}
		return textReply(ev, textChannelInvalid), nil
	}

	if err := c.Poster.PostToChannel(ctx, ch, textChannelConnect, nil, true); err != nil {
		slog.Warn("channel not reachable", "user_id", ev.SenderID, "channel", ch, "error", err)
		if _, err := c.Sessions.Advance(ctx, ev.SenderID, session.TriggerCancel, nil); err != nil {
			return Intent{}, err
		}
		return textReply(ev, textChannelNoAccess), nil
	}

	if _, err := c.Users.SetChannel(ctx, ev.SenderID, ch); err != nil {
		return Intent{}, err
	}
	if _, err := c.Sessions.Advance(ctx, ev.SenderID, session.TriggerChannelText, nil); err != nil {
		return Intent{}, err
	}
	return textReply(ev, "Your channel is registered: "+ch.String()), nil
}

// forwardedOrTyped prefers the channel a forwarded post came from over the
// message text.
func forwardedOrTyped(ev Event) (models.ChannelRef, error) {
	switch {
	case ev.ForwardChatUsername != "":
		return models.ParseChannelRef(ev.ForwardChatUsername)
	case ev.ForwardChatID != 0:
		return models.ParseChannelRef(strconv.FormatInt(ev.ForwardChatID, 10))
	default:
		return models.ParseChannelRef(ev.Payload)
	}
}

// checkGate evaluates a forced channel for the sender. When the action may
// not proceed the returned intent tells the user why.
func (c *Controller) checkGate(ctx context.Context, ev Event, ch *models.ChannelRef) (Intent, bool) {
	d := c.Gate.Evaluate(ctx, ev.SenderID, ch)
	if c.Policy.Permit(d) {
		return Intent{}, true
	}

	text := textIndeterminate
	var buttons [][]Button
	if d == gate.Denied {
		text = joinText(*ch)
		buttons = joinKeyboard(*ch)
	}

	intent := Intent{Refused: d.Err()}
	intent.reply(Reply{ChatID: ev.ChatID, Text: text, Buttons: buttons})
	return intent, false
}

func textReply(ev Event, text string) Intent {
	return Intent{Replies: []Reply{{ChatID: ev.ChatID, Text: text}}}
}

func notice(ev Event, text string, alert bool) Intent {
	return Intent{Notice: &Notice{CallbackID: ev.CallbackID, Text: text, Alert: alert}}
}

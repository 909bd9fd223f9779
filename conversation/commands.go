// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package conversation

import (
	"context"
	"fmt"
	"strings"

	"github.com/danielhkuo/likey/models"
	"github.com/danielhkuo/likey/session"
)

type command string

const (
	cmdStart      command = "start"
	cmdHelp       command = "help"
	cmdCreate     command = "create"
	cmdSetChannel command = "set_channel"
	cmdMyChannel  command = "my_channel"
	cmdMyLikes    command = "my_likes"
	cmdStats      command = "stats"
	cmdCancel     command = "cancel"
)

// commandNames maps slash commands and menu actions onto commands. The
// create_like alias is what the menu button sends.
var commandNames = map[string]command{
	"start":       cmdStart,
	"help":        cmdHelp,
	"create":      cmdCreate,
	"create_like": cmdCreate,
	"set_channel": cmdSetChannel,
	"my_channel":  cmdMyChannel,
	"my_likes":    cmdMyLikes,
	"stats":       cmdStats,
	"cancel":      cmdCancel,
}

// parseCommand recognizes "/name", "/name@bot" and "/name args".
func parseCommand(text string) (command, bool) {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "/") {
		return "", false
	}
	name := strings.Fields(text[1:])
	if len(name) == 0 {
		return "", false
	}
	word, _, _ := strings.Cut(name[0], "@")
	cmd, ok := commandNames[strings.ToLower(word)]
	if !ok {
		// Unknown commands still abandon the current step and show the menu
		return cmdHelp, true
	}
	return cmd, true
}

// command abandons whatever step the user was in, then runs cmd from Idle.
func (c *Controller) command(ctx context.Context, ev Event, cmd command) (Intent, error) {
	if _, err := c.Sessions.Advance(ctx, ev.SenderID, session.TriggerCommand, nil); err != nil {
		return Intent{}, err
	}

	switch cmd {
	case cmdStart, cmdHelp:
		return c.start(ctx, ev)
	case cmdCreate:
		return c.create(ctx, ev)
	case cmdSetChannel:
		return c.setChannel(ctx, ev)
	case cmdMyChannel:
		return c.myChannel(ctx, ev)
	case cmdMyLikes:
		return c.myLikes(ctx, ev)
	case cmdStats:
		return c.stats(ctx, ev)
	case cmdCancel:
		return textReply(ev, textCancelled), nil
	default:
		return c.start(ctx, ev)
	}
}

func (c *Controller) start(ctx context.Context, ev Event) (Intent, error) {
	forced, err := c.Settings.ForcedChannel(ctx)
	if err != nil {
		return Intent{}, err
	}
	if blocked, ok := c.checkGate(ctx, ev, forced); !ok {
		return blocked, nil
	}

	intent := Intent{}
	intent.reply(Reply{
		ChatID:  ev.ChatID,
		Text:    homeText(forced),
		Buttons: homeKeyboard(forced, c.Admins.IsAdmin(ev.SenderID)),
	})
	return intent, nil
}

func (c *Controller) create(ctx context.Context, ev Event) (Intent, error) {
	forced, err := c.Settings.ForcedChannel(ctx)
	if err != nil {
		return Intent{}, err
	}
	if blocked, ok := c.checkGate(ctx, ev, forced); !ok {
		return blocked, nil
	}

	if _, err := c.Sessions.Advance(ctx, ev.SenderID, session.TriggerCreate, nil); err != nil {
		return Intent{}, err
	}
	return textReply(ev, textTitlePrompt), nil
}

func (c *Controller) setChannel(ctx context.Context, ev Event) (Intent, error) {
	if !c.Admins.IsAdmin(ev.SenderID) {
		if ev.Kind == EventButton {
			return notice(ev, textAdminOnly, true), nil
		}
		return textReply(ev, textAdminOnly), nil
	}

	forced, err := c.Settings.ForcedChannel(ctx)
	if err != nil {
		return Intent{}, err
	}
	if _, err := c.Sessions.Advance(ctx, ev.SenderID, session.TriggerSetChannel, nil); err != nil {
		return Intent{}, err
	}
	return textReply(ev, fmt.Sprintf(forcedChannelFormat, optional(forced))), nil
}

func (c *Controller) myChannel(ctx context.Context, ev Event) (Intent, error) {
	user, err := c.Users.Get(ctx, ev.SenderID)
	if err != nil {
		return Intent{}, err
	}
	if _, err := c.Sessions.Advance(ctx, ev.SenderID, session.TriggerMyChannel, nil); err != nil {
		return Intent{}, err
	}

	reply := Reply{ChatID: ev.ChatID, Text: userChannelPrompt(user.Channel)}
	if user.Channel != nil {
		reply.Buttons = [][]Button{{{Label: "❌ Remove registered channel", Action: actionClearChannel}}}
	}
	return Intent{Replies: []Reply{reply}}, nil
}

func (c *Controller) myLikes(ctx context.Context, ev Event) (Intent, error) {
	var likes []models.Like
	more := false
	for like, err := range c.Ledger.ListBanners(ctx, ev.SenderID) {
		if err != nil {
			return Intent{}, err
		}
		if len(likes) == maxListedLikes {
			more = true
			break
		}
		likes = append(likes, like)
	}

	if len(likes) == 0 {
		return textReply(ev, textNoLikes), nil
	}

	var buttons [][]Button
	for _, like := range likes {
		buttons = append(buttons, []Button{{Label: "📤 " + like.Title, Action: sharePrefix + like.ID}})
	}
	return Intent{Replies: []Reply{{ChatID: ev.ChatID, Text: likesText(likes, more), Buttons: buttons}}}, nil
}

func (c *Controller) stats(ctx context.Context, ev Event) (Intent, error) {
	s, err := c.Users.Stats(ctx)
	if err != nil {
		return Intent{}, err
	}
	return textReply(ev, statsText(s)), nil
}

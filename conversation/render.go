// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package conversation

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/danielhkuo/likey/models"
)

// Button actions
const (
	actionPrefix       = "act:"
	likePrefix         = "like:"
	sharePrefix        = "share:"
	shareSendPrefix    = "share_send:"
	shareManualPrefix  = "share_manual:"
	manualChoosePrefix = "manual_choose:"
	actionClearChannel = "my_channel_clear"
	actionNoop         = "noop"
)

func bannerText(like models.Like) string {
	return fmt.Sprintf("⭐️ New like!\n\n%s\n\nTap the button below to support it.", like.Title)
}

func bannerKeyboard(like models.Like) [][]Button {
	rows := [][]Button{likeRow(like)}
	if like.RequiredChannel != nil {
		if url := like.RequiredChannel.URL(); url != "" {
			rows = append(rows, []Button{{Label: "📥 Join channel", URL: url}})
		}
	}
	return rows
}

func shareKeyboard(like models.Like) [][]Button {
	rows := bannerKeyboard(like)
	return append(rows,
		[]Button{{Label: "📣 Send to my channel", Action: shareSendPrefix + like.ID}},
		[]Button{{Label: "🧰 Manual share", Action: shareManualPrefix + like.ID}},
		[]Button{{Label: "⚙️ Manage channel", Action: actionPrefix + string(cmdMyChannel)}},
	)
}

func manualKeyboard(like models.Like, ch *models.ChannelRef) [][]Button {
	rows := [][]Button{likeRow(like)}
	if ch != nil {
		rows = append(rows, []Button{{Label: "Choose: " + ch.String(), Action: manualChoosePrefix + like.ID}})
	} else {
		rows = append(rows, []Button{{Label: "⚙️ Manage channel (register first)", Action: actionPrefix + string(cmdMyChannel)}})
	}
	return append(rows, backRow(like))
}

func sentKeyboard(like models.Like) [][]Button {
	return [][]Button{
		likeRow(like),
		{{Label: "✅ Sent", Action: actionNoop}},
		backRow(like),
	}
}

func manageKeyboard() [][]Button {
	return [][]Button{{{Label: "📣 Manage channel", Action: actionPrefix + string(cmdMyChannel)}}}
}

func likeRow(like models.Like) []Button {
	return []Button{{Label: fmt.Sprintf("❤️ Like (%s)", humanize.Comma(like.VoteCount)), Action: likePrefix + like.ID}}
}

func backRow(like models.Like) []Button {
	return []Button{{Label: "⬅️ Back", Action: sharePrefix + like.ID}}
}

func homeKeyboard(forced *models.ChannelRef, admin bool) [][]Button {
	rows := [][]Button{
		{{Label: "➕ Create like", Action: actionPrefix + string(cmdCreate)}},
		{
			{Label: "📊 Stats", Action: actionPrefix + string(cmdStats)},
			{Label: "📣 Manage channel", Action: actionPrefix + string(cmdMyChannel)},
		},
		{{Label: "🗂 My likes", Action: actionPrefix + string(cmdMyLikes)}},
	}
	if admin {
		rows = append(rows, []Button{{Label: "🛠 Set channel", Action: actionPrefix + string(cmdSetChannel)}})
		if forced != nil {
			rows = append(rows, []Button{{Label: "Current channel: " + forced.String(), Action: actionNoop}})
		}
	}
	return rows
}

func homeText(forced *models.ChannelRef) string {
	var b strings.Builder
	b.WriteString("Hi! Welcome to likey ✨\n\n")
	if forced != nil {
		fmt.Fprintf(&b, "Required channel: %s\n", forced)
	}
	b.WriteString("Use the buttons below to get started.")
	return b.String()
}

func joinKeyboard(ch models.ChannelRef) [][]Button {
	if url := ch.URL(); url != "" {
		return [][]Button{{{Label: "📥 Join channel", URL: url}}}
	}
	return nil
}

func joinText(ch models.ChannelRef) string {
	return "To do that, join this channel first:\n" + ch.String()
}

const (
	textIndeterminate    = "Couldn't check your channel membership right now. Please try again in a moment."
	textGone             = "This like no longer exists."
	textAdminOnly        = "Only admins can set the channel."
	textOwnerOnly        = "Only the creator can share this like."
	textTitlePrompt      = "Send the title for your like (up to 100 characters):"
	textTitleInvalid     = "Please send a valid title (1 to 100 characters)."
	textChannelInvalid   = "That doesn't look like a channel. Send something like @YourChannel or a numeric id."
	textCancelled        = "Cancelled."
	textNoChannel        = "Register your channel first under 📣 Manage channel."
	textChannelCleared   = "Your registered channel was removed."
	textChannelConnect   = "🔗 likey is connected to this channel."
	textChannelNoAccess  = "Couldn't post to that channel. Make likey an admin there and try again."
	textSentToChannel    = "✅ Posted to your channel with a like button."
	textDirectSendFailed = "Direct send failed. Make likey an admin in your channel or use 🧰 Manual share."
	textManualSendFailed = "Sending to your channel failed. Check likey's admin rights there."
	textManualLead       = "👇 Tap the button below"
	textForcedCleared    = "Required channel removed."
	textNoLikes          = "You haven't created any likes yet."
	textIdleHint         = "Use /start to open the menu."
	maxListedLikes       = 20
	forcedChannelFormat  = "Send the channel username (for example @YourChannel).\nTo remove it send one of: - / off / none\nCurrent channel: %s"
)

func userChannelPrompt(current *models.ChannelRef) string {
	return "Send your channel username (for example @YourChannel) or forward any post from it. Make likey an admin there so it can post.\nCurrent channel: " + optional(current)
}

func statsText(s models.Stats) string {
	return fmt.Sprintf("📊 Stats\n\nUsers: %s\nLikes created: %s", humanize.Comma(s.Users), humanize.Comma(s.LikesCreated))
}

func likesText(likes []models.Like, more bool) string {
	var b strings.Builder
	b.WriteString("🗂 Your likes\n")
	for _, like := range likes {
		fmt.Fprintf(&b, "\n• %s · ❤️ %s · %s", like.Title, humanize.Comma(like.VoteCount), humanize.Time(like.CreatedAt))
	}
	if more {
		fmt.Fprintf(&b, "\n\nShowing the first %d.", maxListedLikes)
	}
	return b.String()
}

func optional(ch *models.ChannelRef) string {
	if ch == nil {
		return "none"
	}
	return ch.String()
}

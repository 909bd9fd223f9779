// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package conversation turns inbound chat events into outbound intents.

# Events

An Event is either a text message or a button press. Text starting with "/"
is a top-level command; any other text is input for the sender's current
session step. Button payloads are action strings:

	act:<command>      same as the slash command
	like:<id>          vote on a banner
	share:<id>         show the share keyboard (creator only)
	share_send:<id>    post the banner to the creator's registered channel
	share_manual:<id>  show the channel picker for a manual share
	manual_choose:<id> post a lead line and the banner to the picked channel
	my_channel_clear   forget the registered channel
	noop               acknowledge and do nothing

# Flow

Every command first abandons the sender's in-flight step, then runs from
Idle. Voting ignores the session entirely: it evaluates the banner's gate and
registers the vote. A gate result of Indeterminate is resolved by the
configured gate.Policy.

Channel posts that decide the reply go through the Poster while the event is
handled: a personal channel is saved only after a silent test post lands, and
a share reports success only when the banner was posted. A forwarded post
from a channel registers that channel.

# Errors

Handle reports user mistakes (bad title, unknown banner, gate refusal) as
replies or notices inside the Intent. A gate refusal also sets Intent.Refused. A returned error means the event was
not handled; when models.IsRetryable reports true the transport should let
the upstream redeliver it, which is safe because votes are idempotent.
*/
package conversation

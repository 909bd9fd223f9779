// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package session

import (
	"fmt"

	"github.com/danielhkuo/likey/models"
)

// Trigger is an input that can move a session between states.
type Trigger string

const (
	TriggerCreate         Trigger = "create"
	TriggerSetChannel     Trigger = "set_channel"
	TriggerMyChannel      Trigger = "my_channel"
	TriggerValidTitle     Trigger = "valid_title"
	TriggerInvalidTitle   Trigger = "invalid_title"
	TriggerChannelText    Trigger = "channel_text"
	TriggerInvalidChannel Trigger = "invalid_channel"
	TriggerCommand        Trigger = "command"
	TriggerCancel         Trigger = "cancel"
	TriggerExpire         Trigger = "expire"
)

// anyState matches every source state in the table.
const anyState models.SessionState = "*"

type edge struct {
	from    models.SessionState
	trigger Trigger
}

var transitions = map[edge]models.SessionState{
	{models.StateIdle, TriggerCreate}:     models.StateAwaitingTitle,
	{models.StateIdle, TriggerSetChannel}: models.StateAwaitingChannelInput,
	{models.StateIdle, TriggerMyChannel}:  models.StateAwaitingUserChannel,

	{models.StateAwaitingTitle, TriggerValidTitle}:   models.StateIdle,
	{models.StateAwaitingTitle, TriggerInvalidTitle}: models.StateAwaitingTitle,

	{models.StateAwaitingChannelInput, TriggerChannelText}:    models.StateIdle,
	{models.StateAwaitingChannelInput, TriggerInvalidChannel}: models.StateAwaitingChannelInput,

	{models.StateAwaitingUserChannel, TriggerChannelText}:    models.StateIdle,
	{models.StateAwaitingUserChannel, TriggerInvalidChannel}: models.StateAwaitingUserChannel,

	// A new top-level command abandons whatever was in flight
	{anyState, TriggerCommand}: models.StateIdle,
	{anyState, TriggerCancel}:  models.StateIdle,
	{anyState, TriggerExpire}:  models.StateIdle,
}

// Next looks up the state reached from "from" on trigger t.
func Next(from models.SessionState, t Trigger) (models.SessionState, bool) {
	if to, ok := transitions[edge{from, t}]; ok {
		return to, true
	}
	to, ok := transitions[edge{anyState, t}]
	return to, ok
}

// ErrIllegalTransition is returned when no table entry matches.
type ErrIllegalTransition struct {
	From    models.SessionState
	Trigger Trigger
}

func (e *ErrIllegalTransition) Error() string {
	return fmt.Sprintf("no transition from %s on %s", e.From, e.Trigger)
}

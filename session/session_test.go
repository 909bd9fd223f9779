// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package session_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/danielhkuo/likey/kv"
	"github.com/danielhkuo/likey/models"
	"github.com/danielhkuo/likey/session"
	"github.com/danielhkuo/likey/testutil"
)

func TestNext(t *testing.T) {
	tests := []struct {
		from    models.SessionState
		trigger session.Trigger
		want    models.SessionState
		ok      bool
	}{
		{models.StateIdle, session.TriggerCreate, models.StateAwaitingTitle, true},
		{models.StateIdle, session.TriggerSetChannel, models.StateAwaitingChannelInput, true},
		{models.StateIdle, session.TriggerMyChannel, models.StateAwaitingUserChannel, true},
		{models.StateAwaitingTitle, session.TriggerValidTitle, models.StateIdle, true},
		{models.StateAwaitingTitle, session.TriggerInvalidTitle, models.StateAwaitingTitle, true},
		{models.StateAwaitingChannelInput, session.TriggerChannelText, models.StateIdle, true},
		{models.StateAwaitingChannelInput, session.TriggerInvalidChannel, models.StateAwaitingChannelInput, true},
		{models.StateAwaitingUserChannel, session.TriggerChannelText, models.StateIdle, true},
		{models.StateAwaitingTitle, session.TriggerCommand, models.StateIdle, true},
		{models.StateAwaitingChannelInput, session.TriggerCancel, models.StateIdle, true},
		{models.StateAwaitingUserChannel, session.TriggerExpire, models.StateIdle, true},
		{models.StateIdle, session.TriggerCommand, models.StateIdle, true},

		{models.StateIdle, session.TriggerValidTitle, "", false},
		{models.StateAwaitingTitle, session.TriggerChannelText, "", false},
		{models.StateAwaitingChannelInput, session.TriggerCreate, "", false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"/"+string(tt.trigger), func(t *testing.T) {
			got, ok := session.Next(tt.from, tt.trigger)
			if ok != tt.ok {
				t.Fatalf("expected ok=%v, got %v", tt.ok, ok)
			}
			if ok && got != tt.want {
				t.Errorf("expected %s, got %s", tt.want, got)
			}
		})
	}
}

func TestGetDefaultsToIdle(t *testing.T) {
	s := session.New(kv.NewMemory(), 0)

	sess, err := s.Get(context.Background(), 5)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if sess.State != models.StateIdle || sess.UserID != 5 {
		t.Errorf("expected idle session for 5, got %+v", sess)
	}
}

func TestPutAndGet(t *testing.T) {
	s := session.New(testutil.SetupTestDB(t), time.Minute)
	ctx := context.Background()

	err := s.Put(ctx, 9, models.StateAwaitingTitle, map[string]string{"prompt": "42"}, 0)
	if err != nil {
		t.Fatalf("put: %v", err)
	}

	sess, err := s.Get(ctx, 9)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if sess.State != models.StateAwaitingTitle {
		t.Errorf("expected awaiting_title, got %s", sess.State)
	}
	if sess.Payload["prompt"] != "42" {
		t.Errorf("payload lost: %+v", sess.Payload)
	}

	// Sessions are per user
	other, _ := s.Get(ctx, 10)
	if other.State != models.StateIdle {
		t.Errorf("expected user 10 idle, got %s", other.State)
	}

	if err := s.Put(ctx, 9, models.StateIdle, nil, 0); err != nil {
		t.Fatalf("put idle: %v", err)
	}
	sess, _ = s.Get(ctx, 9)
	if sess.State != models.StateIdle {
		t.Errorf("expected idle after reset, got %s", sess.State)
	}
}

func TestLazyExpiry(t *testing.T) {
	clock := testutil.NewClock()
	store := kv.NewMemory()
	s := session.New(store, 15*time.Minute, session.WithClock(clock.Now))
	ctx := context.Background()

	if _, err := s.Advance(ctx, 3, session.TriggerCreate, nil); err != nil {
		t.Fatalf("advance: %v", err)
	}

	clock.Advance(14 * time.Minute)
	sess, _ := s.Get(ctx, 3)
	if sess.State != models.StateAwaitingTitle {
		t.Fatalf("expected still awaiting_title, got %s", sess.State)
	}

	clock.Advance(time.Minute)
	sess, err := s.Get(ctx, 3)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if sess.State != models.StateIdle || sess.Payload != nil {
		t.Errorf("expired session leaked: %+v", sess)
	}

	// The record is removed on read
	if _, err := store.Get(ctx, models.SessionKey(3)); !errors.Is(err, kv.ErrNotFound) {
		t.Errorf("expected expired record removed, got %v", err)
	}
}

func TestExpiryFromEveryState(t *testing.T) {
	tests := []models.SessionState{
		models.StateAwaitingTitle,
		models.StateAwaitingChannelInput,
		models.StateAwaitingUserChannel,
	}

	for _, state := range tests {
		t.Run(string(state), func(t *testing.T) {
			clock := testutil.NewClock()
			s := session.New(kv.NewMemory(), time.Minute, session.WithClock(clock.Now))
			ctx := context.Background()

			if err := s.Put(ctx, 8, state, map[string]string{"k": "v"}, 0); err != nil {
				t.Fatalf("put: %v", err)
			}
			clock.Advance(time.Minute)

			sess, err := s.Get(ctx, 8)
			if err != nil {
				t.Fatalf("get: %v", err)
			}
			if sess.State != models.StateIdle || sess.UserID != 8 || sess.Payload != nil {
				t.Errorf("expected idle session for user 8, got %+v", sess)
			}
		})
	}
}

func TestPerCallTTL(t *testing.T) {
	clock := testutil.NewClock()
	s := session.New(kv.NewMemory(), time.Hour, session.WithClock(clock.Now))
	ctx := context.Background()

	if err := s.Put(ctx, 1, models.StateAwaitingTitle, nil, time.Second); err != nil {
		t.Fatalf("put: %v", err)
	}
	clock.Advance(2 * time.Second)

	sess, _ := s.Get(ctx, 1)
	if sess.State != models.StateIdle {
		t.Errorf("expected per-call ttl to expire session, got %s", sess.State)
	}
}

func TestAdvance(t *testing.T) {
	s := session.New(kv.NewMemory(), 0)
	ctx := context.Background()

	sess, err := s.Advance(ctx, 1, session.TriggerCreate, map[string]string{"k": "v"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if sess.State != models.StateAwaitingTitle {
		t.Fatalf("expected awaiting_title, got %s", sess.State)
	}

	// Staying put keeps the payload
	sess, err = s.Advance(ctx, 1, session.TriggerInvalidTitle, nil)
	if err != nil {
		t.Fatalf("invalid title: %v", err)
	}
	if sess.State != models.StateAwaitingTitle || sess.Payload["k"] != "v" {
		t.Errorf("unexpected session after invalid title: %+v", sess)
	}

	var illegal *session.ErrIllegalTransition
	_, err = s.Advance(ctx, 1, session.TriggerChannelText, nil)
	if !errors.As(err, &illegal) {
		t.Fatalf("expected ErrIllegalTransition, got %v", err)
	}

	sess, err = s.Advance(ctx, 1, session.TriggerValidTitle, nil)
	if err != nil {
		t.Fatalf("valid title: %v", err)
	}
	if sess.State != models.StateIdle {
		t.Errorf("expected idle, got %s", sess.State)
	}

	stored, _ := s.Get(ctx, 1)
	if stored.State != models.StateIdle {
		t.Errorf("expected stored idle, got %s", stored.State)
	}
}

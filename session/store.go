// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/danielhkuo/likey/kv"
	"github.com/danielhkuo/likey/models"
)

// DefaultTTL bounds how long a half-finished conversation survives.
const DefaultTTL = 900 * time.Second

type Store struct {
	kv  kv.Store
	ttl time.Duration
	now func() time.Time
}

type Option func(*Store)

func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// New returns a Store whose sessions default to ttl. A non-positive ttl
// falls back to DefaultTTL so sessions always expire.
func New(store kv.Store, ttl time.Duration, opts ...Option) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	s := &Store{kv: store, ttl: ttl, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func idle(userID int64) models.Session {
	return models.Session{UserID: userID, State: models.StateIdle}
}

// Get returns the user's session, or an Idle session when none is stored or
// the stored one has expired.
func (s *Store) Get(ctx context.Context, userID int64) (models.Session, error) {
	entry, err := s.kv.Get(ctx, models.SessionKey(userID))
	if errors.Is(err, kv.ErrNotFound) {
		return idle(userID), nil
	}
	if err != nil {
		return models.Session{}, err
	}

	var sess models.Session
	if err := json.Unmarshal(entry.Value, &sess); err != nil {
		slog.Warn("dropping unreadable session", "user_id", userID, "error", err)
		return idle(userID), nil
	}

	if !s.now().Before(sess.ExpiresAt) {
		// Only remove the exact record we saw; a newer Put wins
		err := s.kv.Commit(ctx, kv.Op{Key: models.SessionKey(userID), Expect: entry.Version, Delete: true})
		if err != nil && !errors.Is(err, kv.ErrConflict) {
			slog.Warn("failed to remove expired session", "user_id", userID, "error", err)
		}
		state, _ := Next(sess.State, TriggerExpire)
		return models.Session{UserID: userID, State: state}, nil
	}
	return sess, nil
}

// Put replaces the user's session. Storing Idle clears it instead.
func (s *Store) Put(ctx context.Context, userID int64, state models.SessionState, payload map[string]string, ttl time.Duration) error {
	if state == models.StateIdle {
		return s.Clear(ctx, userID)
	}
	if ttl <= 0 {
		ttl = s.ttl
	}
	_, err := s.put(ctx, userID, state, payload, ttl)
	return err
}

func (s *Store) put(ctx context.Context, userID int64, state models.SessionState, payload map[string]string, ttl time.Duration) (models.Session, error) {
	sess := models.Session{
		UserID:    userID,
		State:     state,
		Payload:   payload,
		ExpiresAt: s.now().Add(ttl).UTC(),
	}
	raw, err := json.Marshal(sess)
	if err != nil {
		return models.Session{}, fmt.Errorf("encode session: %w", err)
	}
	if err := s.kv.Put(ctx, models.SessionKey(userID), raw); err != nil {
		return models.Session{}, err
	}
	return sess, nil
}

func (s *Store) Clear(ctx context.Context, userID int64) error {
	return s.kv.Delete(ctx, models.SessionKey(userID))
}

// Advance applies trigger t to the user's current session through the
// transition table and persists the result with the default ttl.
func (s *Store) Advance(ctx context.Context, userID int64, t Trigger, payload map[string]string) (models.Session, error) {
	cur, err := s.Get(ctx, userID)
	if err != nil {
		return models.Session{}, err
	}

	to, ok := Next(cur.State, t)
	if !ok {
		return cur, &ErrIllegalTransition{From: cur.State, Trigger: t}
	}

	if payload == nil && to == cur.State {
		payload = cur.Payload
	}
	if to == models.StateIdle {
		return idle(userID), s.Clear(ctx, userID)
	}
	return s.put(ctx, userID, to, payload, s.ttl)
}

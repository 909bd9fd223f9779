// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package users

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

const defaultRetries = 8

// Store records every user the bot has seen and keeps the user statistics.
type Store struct {
	kv      kv.Store
	retries uint
	now     func() time.Time
}

type Option func(*Store)

// WithRetries bounds the optimistic commit loop.
func WithRetries(n uint) Option {
	return func(s *Store) {
		if n > 0 {
			s.retries = n
		}
	}
}

func New(store kv.Store, opts ...Option) *Store {
	s := &Store{kv: store, retries: defaultRetries, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Touch records userID on first sight and refreshes the display name after.
// The users_count statistic is bumped in the same commit as the new record,
// so redelivered events never count a user twice.
func (s *Store) Touch(ctx context.Context, userID int64, displayName string) (user models.User, created bool, err error) {
	err = kv.Retry(ctx, s.retries, func() error {
		entry, cur, err := s.load(ctx, userID)
		switch {
		case err == nil:
			created = false
			user = cur
			if cur.DisplayName == displayName || displayName == "" {
				return nil
			}
			user.DisplayName = displayName
			return s.save(ctx, user, entry.Version)

		case errors.Is(err, models.ErrNotFound):
			created = true
			user = models.User{ID: userID, DisplayName: displayName, FirstSeenAt: s.now().UTC()}
			raw, err := json.Marshal(user)
			if err != nil {
				return fmt.Errorf("encode user: %w", err)
			}
			count, version, err := kv.GetCounter(ctx, s.kv, models.UsersCountKey)
			if err != nil {
				return err
			}
			return s.kv.Commit(ctx,
				kv.Op{Key: models.UserKey(userID), Expect: 0, Value: raw},
				kv.CounterOp(models.UsersCountKey, count+1, version),
			)

		default:
			return err
		}
	})
	if err != nil {
		return models.User{}, false, fmt.Errorf("touch user: %w", err)
	}
	if created {
		slog.Info("new user", "user_id", userID)
	}
	return user, created, nil
}

func (s *Store) Get(ctx context.Context, userID int64) (models.User, error) {
	_, user, err := s.load(ctx, userID)
	return user, err
}

// SetChannel registers the user's personal channel for direct sharing.
func (s *Store) SetChannel(ctx context.Context, userID int64, ch models.ChannelRef) (models.User, error) {
	return s.update(ctx, userID, func(u *models.User) { u.Channel = &ch })
}

func (s *Store) ClearChannel(ctx context.Context, userID int64) (models.User, error) {
	return s.update(ctx, userID, func(u *models.User) { u.Channel = nil })
}

func (s *Store) Stats(ctx context.Context) (models.Stats, error) {
	users, _, err := kv.GetCounter(ctx, s.kv, models.UsersCountKey)
	if err != nil {
		return models.Stats{}, err
	}
	likes, _, err := kv.GetCounter(ctx, s.kv, models.LikesCreatedKey)
	if err != nil {
		return models.Stats{}, err
	}
	return models.Stats{Users: users, LikesCreated: likes}, nil
}

func (s *Store) update(ctx context.Context, userID int64, fn func(*models.User)) (models.User, error) {
	var user models.User
	err := kv.Retry(ctx, s.retries, func() error {
		entry, cur, err := s.load(ctx, userID)
		if err != nil {
			return err
		}
		fn(&cur)
		user = cur
		return s.save(ctx, cur, entry.Version)
	})
	if err != nil {
		return models.User{}, err
	}
	return user, nil
}

func (s *Store) save(ctx context.Context, user models.User, version int64) error {
	raw, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("encode user: %w", err)
	}
	return s.kv.Commit(ctx, kv.Op{Key: models.UserKey(user.ID), Expect: version, Value: raw})
}

func (s *Store) load(ctx context.Context, userID int64) (kv.Entry, models.User, error) {
	entry, err := s.kv.Get(ctx, models.UserKey(userID))
	if errors.Is(err, kv.ErrNotFound) {
		return kv.Entry{}, models.User{}, fmt.Errorf("%w: user %d", models.ErrNotFound, userID)
	}
	if err != nil {
		return kv.Entry{}, models.User{}, err
	}

	var user models.User
	if err := json.Unmarshal(entry.Value, &user); err != nil {
		return kv.Entry{}, models.User{}, fmt.Errorf("decode user %d: %w", userID, err)
	}
	return entry, user, nil
}

// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package settings

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/danielhkuo/likey/kv"
	"github.com/danielhkuo/likey/models"
)

// clearWords turn the forced channel off when sent as channel input.
var clearWords = map[string]bool{
	"-":     true,
	"off":   true,
	"none":  true,
	"حذف":   true,
	"خاموش": true,
}

func IsClearWord(s string) bool {
	return clearWords[strings.ToLower(strings.TrimSpace(s))]
}

// Store holds the bot-wide configuration singleton.
type Store struct {
	kv       kv.Store
	fallback *models.ChannelRef
	now      func() time.Time
}

// New returns a Store that reports fallback as the forced channel until an
// admin saves a configuration.
func New(store kv.Store, fallback *models.ChannelRef) *Store {
	return &Store{kv: store, fallback: fallback, now: time.Now}
}

func (s *Store) Get(ctx context.Context) (models.GlobalConfig, error) {
	entry, err := s.kv.Get(ctx, models.ConfigKey)
	if errors.Is(err, kv.ErrNotFound) {
		return models.GlobalConfig{ForcedChannel: s.fallback}, nil
	}
	if err != nil {
		return models.GlobalConfig{}, err
	}

	var cfg models.GlobalConfig
	if err := json.Unmarshal(entry.Value, &cfg); err != nil {
		return models.GlobalConfig{}, fmt.Errorf("decode global config: %w", err)
	}
	return cfg, nil
}

func (s *Store) ForcedChannel(ctx context.Context) (*models.ChannelRef, error) {
	cfg, err := s.Get(ctx)
	if err != nil {
		return nil, err
	}
	return cfg.ForcedChannel, nil
}

// SetForcedChannel parses raw and saves it. A clear word saves an explicit
// empty record so the fallback does not come back.
func (s *Store) SetForcedChannel(ctx context.Context, adminID int64, raw string) (models.GlobalConfig, error) {
	cfg := models.GlobalConfig{UpdatedBy: adminID, UpdatedAt: s.now().UTC()}

	if !IsClearWord(raw) {
		ch, err := models.ParseChannelRef(raw)
		if err != nil {
			return models.GlobalConfig{}, err
		}
		cfg.ForcedChannel = &ch
	}

	data, err := json.Marshal(cfg)
	if err != nil {
		return models.GlobalConfig{}, fmt.Errorf("encode global config: %w", err)
	}
	if err := s.kv.Put(ctx, models.ConfigKey, data); err != nil {
		return models.GlobalConfig{}, err
	}

	slog.Info("forced channel updated", "admin_id", adminID, "channel", cfg.ForcedChannel)
	return cfg, nil
}

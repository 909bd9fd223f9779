// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/text/unicode/norm"

	"github.com/danielhkuo/likey/kv"
	"github.com/danielhkuo/likey/models"
)

const (
	DefaultRetries  = 8
	defaultPageSize = 50
)

var tracer = otel.Tracer("github.com/danielhkuo/likey/ledger")

// Ledger owns banners and their votes.
type Ledger struct {
	store    kv.Store
	retries  uint
	pageSize int
	now      func() time.Time
}

type Option func(*Ledger)

// WithRetries bounds the optimistic commit loop.
func WithRetries(n uint) Option {
	return func(l *Ledger) {
		if n > 0 {
			l.retries = n
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(l *Ledger) { l.now = now }
}

// WithPageSize sets how many index entries ListBanners fetches per scan.
func WithPageSize(n int) Option {
	return func(l *Ledger) {
		if n > 0 {
			l.pageSize = n
		}
	}
}

func New(store kv.Store, opts ...Option) *Ledger {
	l := &Ledger{
		store:    store,
		retries:  DefaultRetries,
		pageSize: defaultPageSize,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// NormalizeTitle trims and NFC-normalizes a title and enforces its bounds.
func NormalizeTitle(title string) (string, error) {
	t := norm.NFC.String(strings.TrimSpace(title))
	n := utf8.RuneCountInString(t)
	if n == 0 {
		return "", models.Invalid("title is required")
	}
	if n > models.MaxTitleLength {
		return "", models.Invalid("title is %d characters, limit is %d", n, models.MaxTitleLength)
	}
	return t, nil
}

// CreateBanner persists a new banner with zero votes, indexes it under its
// owner, and bumps the created-banners statistic in the same commit.
func (l *Ledger) CreateBanner(ctx context.Context, ownerID int64, title string, gate *models.ChannelRef) (like models.Like, err error) {
	ctx, span := tracer.Start(ctx, "ledger.CreateBanner", trace.WithAttributes(
		attribute.Int64("owner_id", ownerID),
	))
	defer func() { endSpan(span, err) }()

	title, err = NormalizeTitle(title)
	if err != nil {
		return models.Like{}, err
	}

	id, err := uuid.NewV7()
	if err != nil {
		return models.Like{}, fmt.Errorf("generate banner id: %w", err)
	}

	like = models.Like{
		ID:        id.String(),
		OwnerID:   ownerID,
		Title:     title,
		CreatedAt: l.now().UTC(),
	}
	if gate != nil {
		ch := *gate
		like.RequiredChannel = &ch
	}

	raw, err := json.Marshal(like)
	if err != nil {
		return models.Like{}, fmt.Errorf("encode banner: %w", err)
	}

	err = kv.Retry(ctx, l.retries, func() error {
		created, version, err := kv.GetCounter(ctx, l.store, models.LikesCreatedKey)
		if err != nil {
			return err
		}
		return l.store.Commit(ctx,
			kv.Op{Key: models.BannerKey(like.ID), Expect: 0, Value: raw},
			kv.Op{Key: models.OwnerIndexKey(ownerID, like.CreatedAt, like.ID), Expect: 0, Value: []byte(like.ID)},
			kv.CounterOp(models.LikesCreatedKey, created+1, version),
		)
	})
	if err != nil {
		return models.Like{}, fmt.Errorf("create banner: %w", err)
	}

	span.SetAttributes(attribute.String("like_id", like.ID))
	slog.Info("banner created", "like_id", like.ID, "owner_id", ownerID, "gated", gate != nil)
	return like, nil
}

// RegisterVote records voterID's vote on likeID at most once. A repeated vote
// is a no-op that reports the current count with Accepted false.
func (l *Ledger) RegisterVote(ctx context.Context, likeID string, voterID int64) (result models.VoteResult, err error) {
	ctx, span := tracer.Start(ctx, "ledger.RegisterVote", trace.WithAttributes(
		attribute.String("like_id", likeID),
		attribute.Int64("voter_id", voterID),
	))
	defer func() { endSpan(span, err) }()

	attempts := 0
	err = kv.Retry(ctx, l.retries, func() error {
		attempts++

		entry, like, err := l.load(ctx, likeID)
		if err != nil {
			return err
		}

		_, err = l.store.Get(ctx, models.VoteKey(likeID, voterID))
		if err == nil {
			result = models.VoteResult{Accepted: false, NewCount: like.VoteCount}
			return nil
		}
		if !errors.Is(err, kv.ErrNotFound) {
			return err
		}

		marker, err := json.Marshal(models.VoteMarker{LikeID: likeID, VoterID: voterID, VotedAt: l.now().UTC()})
		if err != nil {
			return fmt.Errorf("encode vote marker: %w", err)
		}
		like.VoteCount++
		raw, err := json.Marshal(like)
		if err != nil {
			return fmt.Errorf("encode banner: %w", err)
		}

		// Marker and counter move together or not at all
		err = l.store.Commit(ctx,
			kv.Op{Key: models.BannerKey(likeID), Expect: entry.Version, Value: raw},
			kv.Op{Key: models.VoteKey(likeID, voterID), Expect: 0, Value: marker},
		)
		if err != nil {
			return err
		}
		result = models.VoteResult{Accepted: true, NewCount: like.VoteCount}
		return nil
	})
	span.SetAttributes(attribute.Int("attempts", attempts))
	if err != nil {
		if models.IsRetryable(err) {
			slog.Warn("vote not registered", "like_id", likeID, "voter_id", voterID, "attempts", attempts, "error", err)
		}
		return models.VoteResult{}, err
	}

	span.SetAttributes(attribute.Bool("accepted", result.Accepted))
	if result.Accepted {
		slog.Info("vote registered", "like_id", likeID, "voter_id", voterID, "count", result.NewCount)
	} else {
		slog.Debug("duplicate vote ignored", "like_id", likeID, "voter_id", voterID)
	}
	return result, nil
}

// GetBanner returns models.ErrNotFound for unknown ids.
func (l *Ledger) GetBanner(ctx context.Context, likeID string) (models.Like, error) {
	_, like, err := l.load(ctx, likeID)
	return like, err
}

// HasVoted reports whether voterID already holds a marker on likeID.
func (l *Ledger) HasVoted(ctx context.Context, likeID string, voterID int64) (bool, error) {
	_, err := l.store.Get(ctx, models.VoteKey(likeID, voterID))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, kv.ErrNotFound):
		return false, nil
	default:
		return false, err
	}
}

// ListBanners yields ownerID's banners oldest first. The sequence reads the
// owner index a page at a time, stops as soon as the consumer does, and can
// be ranged over again to restart from the beginning.
func (l *Ledger) ListBanners(ctx context.Context, ownerID int64) iter.Seq2[models.Like, error] {
	return func(yield func(models.Like, error) bool) {
		prefix := models.OwnerIndexPrefix(ownerID)
		after := ""
		for {
			page, err := l.store.Scan(ctx, prefix, after, l.pageSize)
			if err != nil {
				yield(models.Like{}, fmt.Errorf("scan owner index: %w", err))
				return
			}

			for _, entry := range page {
				after = entry.Key
				like, err := l.GetBanner(ctx, string(entry.Value))
				if errors.Is(err, models.ErrNotFound) {
					slog.Warn("owner index points at missing banner", "key", entry.Key)
					continue
				}
				if !yield(like, err) || err != nil {
					return
				}
			}

			if len(page) < l.pageSize {
				return
			}
		}
	}
}

func (l *Ledger) load(ctx context.Context, likeID string) (kv.Entry, models.Like, error) {
	if strings.TrimSpace(likeID) == "" {
		return kv.Entry{}, models.Like{}, models.Invalid("banner id is required")
	}

	entry, err := l.store.Get(ctx, models.BannerKey(likeID))
	if errors.Is(err, kv.ErrNotFound) {
		return kv.Entry{}, models.Like{}, fmt.Errorf("%w: banner %s", models.ErrNotFound, likeID)
	}
	if err != nil {
		return kv.Entry{}, models.Like{}, err
	}

	var like models.Like
	if err := json.Unmarshal(entry.Value, &like); err != nil {
		return kv.Entry{}, models.Like{}, fmt.Errorf("decode banner %s: %w", likeID, err)
	}
	return entry, like, nil
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

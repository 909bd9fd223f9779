// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package ledger_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/danielhkuo/likey/kv"
	"github.com/danielhkuo/likey/ledger"
	"github.com/danielhkuo/likey/models"
	"github.com/danielhkuo/likey/testutil"
)

func TestCreateBannerTitleBounds(t *testing.T) {
	tests := []struct {
		name    string
		title   string
		wantErr bool
	}{
		{"empty", "", true},
		{"whitespace only", "   \n\t", true},
		{"single rune", "x", false},
		{"exactly 100", strings.Repeat("a", 100), false},
		{"101 runes", strings.Repeat("a", 101), true},
		{"100 multibyte runes", strings.Repeat("👍", 100), false},
		{"101 multibyte runes", strings.Repeat("ل", 101), true},
		{"decomposed accents normalize to 100", strings.Repeat("e\u0301", 100), false},
		{"padding is trimmed", "  " + strings.Repeat("a", 100) + "  ", false},
	}

	l := ledger.New(kv.NewMemory())
	ctx := context.Background()

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			like, err := l.CreateBanner(ctx, 1, tt.title, nil)
			if tt.wantErr {
				if !errors.Is(err, models.ErrInvalidInput) {
					t.Fatalf("expected ErrInvalidInput, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if like.VoteCount != 0 {
				t.Errorf("new banner has %d votes", like.VoteCount)
			}
			if like.ID == "" {
				t.Error("banner id is empty")
			}
		})
	}
}

func TestCreateBannerCopiesGate(t *testing.T) {
	l := ledger.New(kv.NewMemory())
	ctx := context.Background()

	gate := models.ChannelRef("@likey_news")
	like, err := l.CreateBanner(ctx, 1, "gated", &gate)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	// Changing the caller's value afterwards must not alter the banner
	gate = "@other"

	stored, err := l.GetBanner(ctx, like.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if stored.RequiredChannel == nil || *stored.RequiredChannel != "@likey_news" {
		t.Errorf("expected gate @likey_news, got %v", stored.RequiredChannel)
	}
}

func TestCreateBannerUniqueIDs(t *testing.T) {
	store := kv.NewMemory()
	l := ledger.New(store)
	ctx := context.Background()

	seen := make(map[string]bool)
	for i := 0; i < 200; i++ {
		like, err := l.CreateBanner(ctx, 1, "same title", nil)
		if err != nil {
			t.Fatalf("create %d: %v", i, err)
		}
		if seen[like.ID] {
			t.Fatalf("duplicate id %s", like.ID)
		}
		seen[like.ID] = true
	}

	created, _, err := kv.GetCounter(ctx, store, models.LikesCreatedKey)
	if err != nil {
		t.Fatalf("read counter: %v", err)
	}
	if created != 200 {
		t.Errorf("expected likes_created 200, got %d", created)
	}
}

func TestVoteScenario(t *testing.T) {
	l := ledger.New(testutil.SetupTestDB(t))
	ctx := context.Background()

	const userA, userB, userC = 100, 200, 300

	like, err := l.CreateBanner(ctx, userA, "demo", nil)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if like.VoteCount != 0 {
		t.Fatalf("expected 0 votes, got %d", like.VoteCount)
	}

	steps := []struct {
		voter    int64
		accepted bool
		count    int64
	}{
		{userB, true, 1},
		{userB, false, 1},
		{userC, true, 2},
	}

	for i, step := range steps {
		res, err := l.RegisterVote(ctx, like.ID, step.voter)
		if err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
		if res.Accepted != step.accepted || res.NewCount != step.count {
			t.Errorf("step %d: expected accepted=%v count=%d, got %+v", i, step.accepted, step.count, res)
		}
	}

	stored, err := l.GetBanner(ctx, like.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if stored.VoteCount != 2 {
		t.Errorf("expected stored count 2, got %d", stored.VoteCount)
	}

	voted, err := l.HasVoted(ctx, like.ID, userB)
	if err != nil || !voted {
		t.Errorf("expected userB marker, got %v %v", voted, err)
	}
	voted, err = l.HasVoted(ctx, like.ID, userA)
	if err != nil || voted {
		t.Errorf("expected no userA marker, got %v %v", voted, err)
	}
}

func TestRegisterVoteNotFound(t *testing.T) {
	l := ledger.New(kv.NewMemory())

	_, err := l.RegisterVote(context.Background(), "missing", 1)
	if !errors.Is(err, models.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	_, err = l.GetBanner(context.Background(), "missing")
	if !errors.Is(err, models.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

// TestDuplicateVotesConcurrent simulates redelivery: the same voter presses
// the button from many workers at once
func TestDuplicateVotesConcurrent(t *testing.T) {
	stores := map[string]kv.Store{
		"memory": kv.NewMemory(),
		"sqlite": testutil.SetupTestDB(t),
		"bolt":   testutil.SetupBoltStore(t),
	}

	for name, store := range stores {
		t.Run(name, func(t *testing.T) {
			l := ledger.New(store, ledger.WithRetries(100))
			ctx := context.Background()

			like, err := l.CreateBanner(ctx, 1, "dup", nil)
			if err != nil {
				t.Fatalf("create: %v", err)
			}

			const n = 20
			var wg sync.WaitGroup
			var accepted, failed atomic.Int32

			for i := 0; i < n; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					res, err := l.RegisterVote(ctx, like.ID, 42)
					if err != nil {
						failed.Add(1)
						return
					}
					if res.Accepted {
						accepted.Add(1)
					}
					if res.NewCount != 1 {
						t.Errorf("expected count 1, got %d", res.NewCount)
					}
				}()
			}
			wg.Wait()

			if failed.Load() != 0 {
				t.Fatalf("%d votes failed", failed.Load())
			}
			if accepted.Load() != 1 {
				t.Errorf("expected exactly 1 accepted vote, got %d", accepted.Load())
			}

			stored, _ := l.GetBanner(ctx, like.ID)
			if stored.VoteCount != 1 {
				t.Errorf("expected count 1, got %d", stored.VoteCount)
			}
		})
	}
}

// TestDistinctVotersConcurrent checks that racing voters never lose an update
func TestDistinctVotersConcurrent(t *testing.T) {
	stores := map[string]kv.Store{
		"memory": kv.NewMemory(),
		"sqlite": testutil.SetupTestDB(t),
		"bolt":   testutil.SetupBoltStore(t),
	}

	for name, store := range stores {
		t.Run(name, func(t *testing.T) {
			l := ledger.New(store, ledger.WithRetries(200))
			ctx := context.Background()

			like, err := l.CreateBanner(ctx, 1, "race", nil)
			if err != nil {
				t.Fatalf("create: %v", err)
			}

			const voters = 15
			var wg sync.WaitGroup
			var accepted atomic.Int32

			for i := 0; i < voters; i++ {
				wg.Add(1)
				go func(voter int64) {
					defer wg.Done()
					// Each voter's update is also delivered twice
					for j := 0; j < 2; j++ {
						res, err := l.RegisterVote(ctx, like.ID, voter)
						if err != nil {
							t.Errorf("voter %d: %v", voter, err)
							return
						}
						if res.Accepted {
							accepted.Add(1)
						}
					}
				}(int64(1000 + i))
			}
			wg.Wait()

			if accepted.Load() != voters {
				t.Errorf("expected %d accepted votes, got %d", voters, accepted.Load())
			}
			stored, _ := l.GetBanner(ctx, like.ID)
			if stored.VoteCount != voters {
				t.Errorf("expected count %d, got %d", voters, stored.VoteCount)
			}

			markers, err := store.Scan(ctx, "vote:"+like.ID+":", "", 0)
			if err != nil {
				t.Fatalf("scan markers: %v", err)
			}
			if int64(len(markers)) != stored.VoteCount {
				t.Errorf("count %d does not match %d markers", stored.VoteCount, len(markers))
			}
		})
	}
}

type conflictStore struct {
	kv.Store
	commits atomic.Int32
}

func (s *conflictStore) Commit(ctx context.Context, ops ...kv.Op) error {
	s.commits.Add(1)
	return kv.ErrConflict
}

func TestRegisterVoteGivesUp(t *testing.T) {
	mem := kv.NewMemory()
	ctx := context.Background()

	like, err := ledger.New(mem).CreateBanner(ctx, 1, "contended", nil)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	store := &conflictStore{Store: mem}
	l := ledger.New(store, ledger.WithRetries(3))

	_, err = l.RegisterVote(ctx, like.ID, 7)
	if !errors.Is(err, models.ErrTransientConflict) {
		t.Fatalf("expected ErrTransientConflict, got %v", err)
	}
	if !models.IsRetryable(err) {
		t.Error("expected retryable error")
	}
	if store.commits.Load() != 3 {
		t.Errorf("expected 3 commit attempts, got %d", store.commits.Load())
	}

	// Nothing leaked
	stored, _ := l.GetBanner(ctx, like.ID)
	if stored.VoteCount != 0 {
		t.Errorf("expected count 0, got %d", stored.VoteCount)
	}
}

func TestListBanners(t *testing.T) {
	clock := testutil.NewClock()
	store := kv.NewMemory()
	l := ledger.New(store, ledger.WithClock(func() time.Time {
		clock.Advance(time.Second)
		return clock.Now()
	}), ledger.WithPageSize(2))
	ctx := context.Background()

	var want []string
	for _, title := range []string{"first", "second", "third", "fourth", "fifth"} {
		like, err := l.CreateBanner(ctx, 7, title, nil)
		if err != nil {
			t.Fatalf("create %s: %v", title, err)
		}
		want = append(want, like.ID)
	}
	// Another owner whose id shares a prefix
	if _, err := l.CreateBanner(ctx, 77, "not mine", nil); err != nil {
		t.Fatalf("create: %v", err)
	}

	collect := func() []string {
		var ids []string
		for like, err := range l.ListBanners(ctx, 7) {
			if err != nil {
				t.Fatalf("list: %v", err)
			}
			ids = append(ids, like.ID)
		}
		return ids
	}

	first := collect()
	if strings.Join(first, ",") != strings.Join(want, ",") {
		t.Fatalf("expected %v, got %v", want, first)
	}

	// Restartable and stable
	second := collect()
	if strings.Join(first, ",") != strings.Join(second, ",") {
		t.Errorf("listing changed between runs: %v vs %v", first, second)
	}

	// Early stop
	count := 0
	for range l.ListBanners(ctx, 7) {
		count++
		if count == 3 {
			break
		}
	}
	if count != 3 {
		t.Errorf("expected to stop at 3, got %d", count)
	}

	// Empty owner
	for like := range l.ListBanners(ctx, 8) {
		t.Errorf("unexpected banner %s", like.ID)
	}
}

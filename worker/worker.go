// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v5"
	"golang.org/x/sync/errgroup"

	"github.com/danielhkuo/likey/conversation"
	"github.com/danielhkuo/likey/models"
	"github.com/danielhkuo/likey/telegram"
)

// EventHandler is satisfied by *conversation.Controller.
type EventHandler interface {
	Handle(ctx context.Context, ev conversation.Event) (conversation.Intent, error)
}

// Gateway is satisfied by *telegram.Client.
type Gateway interface {
	Deliver(ctx context.Context, intent conversation.Intent) error
}

// Source is satisfied by *telegram.Client.
type Source interface {
	GetUpdates(ctx context.Context, offset int64, timeout int) ([]telegram.Update, error)
}

// Processor runs one update end to end: parse, handle, deliver.
type Processor struct {
	Events  EventHandler
	Gateway Gateway
}

// Process handles a raw update body. Only retryable errors are returned;
// anything else is logged and swallowed so the update is not redelivered.
func (p *Processor) Process(ctx context.Context, raw []byte) error {
	ev, ok, err := telegram.ParseUpdate(raw)
	if err != nil {
		slog.Warn("dropping malformed update", "error", err)
		return nil
	}
	if !ok {
		return nil
	}
	return p.Dispatch(ctx, ev)
}

// Dispatch handles an already parsed event.
func (p *Processor) Dispatch(ctx context.Context, ev conversation.Event) error {
	intent, err := p.Events.Handle(ctx, ev)
	if err != nil {
		if models.IsRetryable(err) {
			return err
		}
		slog.Error("failed to handle event", "sender_id", ev.SenderID, "kind", ev.Kind.String(), "error", err)
		return nil
	}
	if intent.Refused != nil {
		slog.Info("action refused by gate", "sender_id", ev.SenderID, "kind", ev.Kind.String(), "reason", intent.Refused)
	}

	if err := p.Gateway.Deliver(ctx, intent); err != nil {
		// The state change is committed; resending would repeat it
		slog.Warn("failed to deliver intent", "sender_id", ev.SenderID, "error", err)
	}
	return nil
}

// Poller drives a Processor from getUpdates.
type Poller struct {
	Source    Source
	Processor *Processor
	// Workers bounds how many users are served concurrently within a batch.
	Workers int
	// Timeout is the long-poll timeout in seconds.
	Timeout int
	// Attempts bounds redelivery of an event that failed with a retryable error.
	Attempts uint
	// Pause is the wait after a failed getUpdates call.
	Pause time.Duration
}

// Run polls until ctx is cancelled. Events from the same sender are handled
// in arrival order; different senders run in parallel.
func (p *Poller) Run(ctx context.Context) error {
	var offset int64
	for {
		updates, err := p.Source.GetUpdates(ctx, offset, p.Timeout)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			slog.Warn("getUpdates failed", "error", err)
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(p.pause()):
			}
			continue
		}
		if len(updates) == 0 {
			continue
		}

		p.runBatch(ctx, updates)
		offset = updates[len(updates)-1].ID + 1

		if ctx.Err() != nil {
			return nil
		}
	}
}

func (p *Poller) runBatch(ctx context.Context, updates []telegram.Update) {
	var order []int64
	bySender := make(map[int64][]conversation.Event)
	for _, u := range updates {
		ev, ok, err := telegram.ParseUpdate(u.Raw)
		if err != nil {
			slog.Warn("dropping malformed update", "update_id", u.ID, "error", err)
			continue
		}
		if !ok {
			continue
		}
		if _, seen := bySender[ev.SenderID]; !seen {
			order = append(order, ev.SenderID)
		}
		bySender[ev.SenderID] = append(bySender[ev.SenderID], ev)
	}

	var g errgroup.Group
	g.SetLimit(max(p.Workers, 1))
	for _, sender := range order {
		events := bySender[sender]
		g.Go(func() error {
			for _, ev := range events {
				p.dispatch(ctx, ev)
			}
			return nil
		})
	}
	g.Wait()
}

// dispatch retries retryable failures in place since the offset moves on
// once the batch is done.
func (p *Poller) dispatch(ctx context.Context, ev conversation.Event) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 50 * time.Millisecond
	b.MaxInterval = time.Second

	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		return struct{}{}, p.Processor.Dispatch(ctx, ev)
	}, backoff.WithBackOff(b), backoff.WithMaxTries(max(p.Attempts, 1)))
	if err != nil {
		slog.Error("giving up on event", "sender_id", ev.SenderID, "error", err)
	}
}

func (p *Poller) pause() time.Duration {
	if p.Pause > 0 {
		return p.Pause
	}
	return 3 * time.Second
}

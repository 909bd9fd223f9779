// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package gate

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/danielhkuo/likey/models"
)

// DefaultTimeout bounds a single membership query.
const DefaultTimeout = 5 * time.Second

var tracer = otel.Tracer("github.com/danielhkuo/likey/gate")

type Decision int

const (
	Allowed Decision = iota
	Denied
	Indeterminate
)

func (d Decision) String() string {
	switch d {
	case Allowed:
		return "allowed"
	case Denied:
		return "denied"
	default:
		return "indeterminate"
	}
}

// Err maps a decision onto the error taxonomy; Allowed is nil.
func (d Decision) Err() error {
	switch d {
	case Allowed:
		return nil
	case Denied:
		return models.ErrGateDenied
	default:
		return models.ErrGateIndeterminate
	}
}

// Oracle answers channel membership queries.
type Oracle interface {
	IsMember(ctx context.Context, channel models.ChannelRef, userID int64) (models.MemberStatus, error)
}

// Evaluator decides whether a user may perform a gated action. It never
// caches: every call asks the oracle.
type Evaluator struct {
	oracle  Oracle
	timeout time.Duration
}

func NewEvaluator(oracle Oracle, timeout time.Duration) *Evaluator {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Evaluator{oracle: oracle, timeout: timeout}
}

// Evaluate returns Allowed when channel is nil. Oracle errors, timeouts, and
// statuses outside the known set are Indeterminate, never Allowed.
func (e *Evaluator) Evaluate(ctx context.Context, userID int64, channel *models.ChannelRef) Decision {
	if channel == nil || *channel == "" {
		return Allowed
	}

	ctx, span := tracer.Start(ctx, "gate.Evaluate", trace.WithAttributes(
		attribute.String("channel", channel.String()),
		attribute.Int64("user_id", userID),
	))
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	status, err := e.oracle.IsMember(ctx, *channel, userID)
	if err == nil && ctx.Err() != nil {
		err = ctx.Err()
	}
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			slog.Warn("membership check timed out", "channel", *channel, "user_id", userID, "timeout", e.timeout)
		} else {
			slog.Warn("membership check failed", "channel", *channel, "user_id", userID, "error", err)
		}
		span.RecordError(err)
		span.SetAttributes(attribute.String("decision", Indeterminate.String()))
		return Indeterminate
	}

	d := FromStatus(status)
	if d == Indeterminate {
		slog.Warn("unknown membership status", "channel", *channel, "status", status)
	}
	span.SetAttributes(attribute.String("status", string(status)), attribute.String("decision", d.String()))
	return d
}

func FromStatus(status models.MemberStatus) Decision {
	switch status {
	case models.MemberCreator, models.MemberAdministrator, models.MemberMember:
		return Allowed
	case models.MemberRestricted, models.MemberLeft, models.MemberKicked:
		return Denied
	default:
		return Indeterminate
	}
}

// Policy resolves Indeterminate into a final yes or no.
type Policy struct {
	FailOpen bool
}

// Permit reports whether the action may proceed under d.
func (p Policy) Permit(d Decision) bool {
	switch d {
	case Allowed:
		return true
	case Indeterminate:
		return p.FailOpen
	default:
		return false
	}
}

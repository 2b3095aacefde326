// Package retry implements the retry policy shared by every exchange-facing
// operation: transient failures back off and try again up to a fixed attempt
// ceiling, rejections terminate immediately, and unclassified failures
// propagate untouched.
//
// The classification decision is a pure function (Decide) kept separate from
// the effectful loop driver (Do) so the policy can be unit tested without
// real sleeps or network calls.
package retry

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/quantary/cryptobot/pkg/errors"
)

const (
	// DefaultMaxAttempts bounds the total number of tries, not just retries.
	DefaultMaxAttempts = 3
	// DefaultBackoff is the fixed pause between transient failures. No jitter
	// and no exponential growth; a latency-relevant but correctness-neutral
	// carry-over from the reference system.
	DefaultBackoff = 3 * time.Second
)

// Action is the next step after a failed attempt.
type Action int

const (
	// ActionRetry sleeps the backoff interval and tries again.
	ActionRetry Action = iota
	// ActionFail terminates the operation with a terminal, non-fatal error.
	ActionFail
	// ActionAbort propagates the failure as a fatal fault.
	ActionAbort
)

// Policy bounds the retry loop.
type Policy struct {
	MaxAttempts int
	Backoff     time.Duration
}

// DefaultPolicy returns the standard 3-attempt, 3-second-backoff policy.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts: DefaultMaxAttempts,
		Backoff:     DefaultBackoff,
	}
}

// Sleeper pauses between attempts. Tests substitute a recording fake so the
// policy runs without real delays.
type Sleeper interface {
	Sleep(d time.Duration)
}

// RealSleeper blocks with time.Sleep.
type RealSleeper struct{}

// Sleep implements Sleeper.
func (RealSleeper) Sleep(d time.Duration) {
	time.Sleep(d)
}

// Decide is the pure classification decision: given the failure kind of the
// last attempt and the attempt number, choose the next action. It performs no
// side effects.
func Decide(kind errors.Kind, attempt, maxAttempts int) Action {
	switch kind {
	case errors.KindTransient:
		if attempt < maxAttempts {
			return ActionRetry
		}

		return ActionFail
	case errors.KindRejected:
		return ActionFail
	default:
		return ActionAbort
	}
}

// Do drives the retry loop around fn. Each attempt's error must already be
// classified by the exchange boundary; unclassified errors abort immediately.
// On exhaustion the last transient error is wrapped with ErrCodeRetryExhausted
// and returned as a terminal value, never a panic.
func Do[T any](ctx context.Context, p Policy, sleeper Sleeper, log *zap.Logger, op string, fn func(context.Context) (T, error)) (T, error) {
	var zero T

	if p.MaxAttempts <= 0 {
		p.MaxAttempts = DefaultMaxAttempts
	}

	if p.Backoff <= 0 {
		p.Backoff = DefaultBackoff
	}

	if sleeper == nil {
		sleeper = RealSleeper{}
	}

	for attempt := 1; ; attempt++ {
		v, err := fn(ctx)
		if err == nil {
			return v, nil
		}

		kind := errors.KindOf(err)

		switch Decide(kind, attempt, p.MaxAttempts) {
		case ActionRetry:
			log.Warn("transient failure, retrying",
				zap.String("op", op),
				zap.Int("attempt", attempt),
				zap.Int("max_attempts", p.MaxAttempts),
				zap.Error(err),
			)
			sleeper.Sleep(p.Backoff)

		case ActionFail:
			if kind == errors.KindTransient {
				log.Error("retries exhausted",
					zap.String("op", op),
					zap.Int("attempts", attempt),
					zap.Error(err),
				)

				return zero, errors.Wrapf(errors.ErrCodeRetryExhausted, err, "%s failed after %d attempts", op, attempt)
			}

			log.Error("rejected by exchange",
				zap.String("op", op),
				zap.Int("attempt", attempt),
				zap.Error(err),
			)

			return zero, err

		case ActionAbort:
			log.Error("unexpected failure",
				zap.String("op", op),
				zap.Int("attempt", attempt),
				zap.Error(err),
			)

			return zero, err
		}
	}
}

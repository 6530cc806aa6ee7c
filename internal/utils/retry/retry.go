// Package retry runs an operation again on transient store failures with capped exponential backoff.
// Business outcomes such as a lost race are never retried; callers re-read state instead.
package retry

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Policy bounds the attempts and the delay between them.
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	// Jitter is the randomization factor applied to each delay, between 0 and 1.
	Jitter float64
}

// DefaultPolicy allows three attempts with exponential backoff capped at 30s.
var DefaultPolicy = Policy{
	MaxAttempts: 3,
	BaseDelay:   100 * time.Millisecond,
	MaxDelay:    30 * time.Second,
	Jitter:      backoff.DefaultRandomizationFactor,
}

// Classifier reports whether err is transient and worth another attempt.
type Classifier func(err error) bool

// backOff builds the schedule for p. The number of retries is MaxAttempts-1.
func (p Policy) backOff(ctx context.Context) backoff.BackOffContext {
	if p.MaxAttempts <= 1 {
		// WithMaxRetries treats zero as unlimited.
		return backoff.WithContext(&backoff.StopBackOff{}, ctx)
	}
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = p.BaseDelay
	exp.MaxInterval = p.MaxDelay
	exp.RandomizationFactor = p.Jitter
	exp.Multiplier = 2
	exp.MaxElapsedTime = 0
	exp.Reset()
	return backoff.WithContext(backoff.WithMaxRetries(exp, uint64(p.MaxAttempts-1)), ctx)
}

// Do calls fn until it succeeds, returns a non-transient error, the attempts run out or ctx ends.
// The last error from fn is returned unchanged so callers can still match it with errors.Is.
func Do(ctx context.Context, p Policy, transient Classifier, fn func(ctx context.Context) error) error {
	var last error
	err := backoff.Retry(func() error {
		last = fn(ctx)
		if last == nil {
			return nil
		}
		if transient == nil || !transient(last) {
			return backoff.Permanent(last)
		}
		return last
	}, p.backOff(ctx))
	if err != nil && last != nil && !errors.Is(err, last) {
		// The context ended while waiting; keep the store error visible.
		return errors.Join(last, err)
	}
	return err
}

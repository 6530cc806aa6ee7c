package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/stretchr/testify/assert"
)

var errTransient = errors.New("serialization failure")

func isTransient(err error) bool { return errors.Is(err, errTransient) }

func fastPolicy() Policy {
	return Policy{MaxAttempts: 3, BaseDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond}
}

func TestDo_RetriesTransientUpToMax(t *testing.T) {
	calls := 0
	err := Do(context.Background(), fastPolicy(), isTransient, func(ctx context.Context) error {
		calls++
		return errTransient
	})

	assert.ErrorIs(t, err, errTransient)
	assert.Equal(t, 3, calls)
}

func TestDo_StopsOnSuccess(t *testing.T) {
	calls := 0
	err := Do(context.Background(), fastPolicy(), isTransient, func(ctx context.Context) error {
		calls++
		if calls < 2 {
			return errTransient
		}
		return nil
	})

	assert.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestDo_DoesNotRetryPermanentErrors(t *testing.T) {
	permanent := errors.New("conflict")
	calls := 0
	err := Do(context.Background(), fastPolicy(), isTransient, func(ctx context.Context) error {
		calls++
		return permanent
	})

	assert.ErrorIs(t, err, permanent)
	assert.Equal(t, 1, calls)
}

func TestDo_HonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := Policy{MaxAttempts: 3, BaseDelay: time.Hour, MaxDelay: time.Hour}
	err := Do(ctx, p, isTransient, func(ctx context.Context) error { return errTransient })

	assert.ErrorIs(t, err, errTransient)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPolicy_BackOffScheduleIsCappedAndBounded(t *testing.T) {
	p := Policy{MaxAttempts: 5, BaseDelay: 10 * time.Second, MaxDelay: 30 * time.Second}
	b := p.backOff(context.Background())

	assert.Equal(t, 10*time.Second, b.NextBackOff())
	assert.Equal(t, 20*time.Second, b.NextBackOff())
	assert.Equal(t, 30*time.Second, b.NextBackOff())
	assert.Equal(t, 30*time.Second, b.NextBackOff())
	assert.Equal(t, backoff.Stop, b.NextBackOff(), "four retries after the first attempt")
}

func TestPolicy_DefaultPolicy(t *testing.T) {
	assert.Equal(t, 3, DefaultPolicy.MaxAttempts)
	assert.Equal(t, 100*time.Millisecond, DefaultPolicy.BaseDelay)
	assert.Equal(t, 30*time.Second, DefaultPolicy.MaxDelay)
}

func TestDo_SingleAttemptPolicyNeverRetries(t *testing.T) {
	calls := 0
	err := Do(context.Background(), Policy{MaxAttempts: 1}, isTransient, func(ctx context.Context) error {
		calls++
		return errTransient
	})

	assert.ErrorIs(t, err, errTransient)
	assert.Equal(t, 1, calls)
}

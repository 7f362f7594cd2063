package retry

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errFlaky = errors.New("flaky")

func TestDefaultPolicyDelays(t *testing.T) {
	assert.Equal(t,
		[]time.Duration{time.Second, 5 * time.Second, 25 * time.Second, 125 * time.Second},
		DefaultPolicy.Delays(4))
}

func TestPolicyMaxInterval(t *testing.T) {
	p := Policy{Initial: time.Second, Factor: 5, MaxInterval: 10 * time.Second}
	assert.Equal(t,
		[]time.Duration{time.Second, 5 * time.Second, 10 * time.Second, 10 * time.Second},
		p.Delays(4))
}

// instantAfter records every requested wait and fires immediately.
type instantAfter struct {
	mu    sync.Mutex
	waits []time.Duration
}

func (a *instantAfter) after(d time.Duration) <-chan time.Time {
	a.mu.Lock()
	a.waits = append(a.waits, d)
	a.mu.Unlock()
	ch := make(chan time.Time, 1)
	ch <- time.Time{}
	return ch
}

func TestEveryStopsAfterSuccess(t *testing.T) {
	clock := &instantAfter{}
	calls := 0
	task := Every(context.Background(), DefaultPolicy, func(ctx context.Context) error {
		calls++
		if calls < 4 {
			return errFlaky
		}
		return nil
	}, WithAfter(clock.after), WithName("test"))

	require.NoError(t, task.Wait())
	assert.Equal(t, 4, task.Attempts())
	assert.Equal(t, []time.Duration{time.Second, 5 * time.Second, 25 * time.Second}, clock.waits)
}

func TestEveryFirstAttemptSucceeds(t *testing.T) {
	clock := &instantAfter{}
	task := Every(context.Background(), DefaultPolicy, func(ctx context.Context) error {
		return nil
	}, WithAfter(clock.after))

	require.NoError(t, task.Wait())
	assert.Equal(t, 1, task.Attempts())
	assert.Empty(t, clock.waits)
}

func TestEveryCancelWhileWaiting(t *testing.T) {
	waiting := make(chan struct{})
	never := func(time.Duration) <-chan time.Time {
		close(waiting)
		return make(chan time.Time)
	}
	task := Every(context.Background(), DefaultPolicy, func(ctx context.Context) error {
		return errFlaky
	}, WithAfter(never))

	<-waiting
	task.Cancel()

	select {
	case <-task.Done():
	case <-time.After(time.Second):
		t.Fatal("task did not stop after Cancel")
	}
	assert.ErrorIs(t, task.Wait(), context.Canceled)
	assert.Equal(t, 1, task.Attempts())
}

func TestEveryParentContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	task := Every(ctx, DefaultPolicy, func(ctx context.Context) error {
		return ctx.Err()
	})
	assert.ErrorIs(t, task.Wait(), context.Canceled)
}

func TestDoRetriesUntilSuccess(t *testing.T) {
	calls := 0
	err := Do(context.Background(), Options{MaxRetries: 3, BaseDelay: time.Microsecond}, func() error {
		calls++
		if calls < 3 {
			return errFlaky
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestDoGivesUp(t *testing.T) {
	calls := 0
	err := Do(context.Background(), Options{MaxRetries: 2, BaseDelay: time.Microsecond}, func() error {
		calls++
		return errFlaky
	})
	assert.ErrorIs(t, err, errFlaky)
	assert.Equal(t, 3, calls)
}

func TestDoStopsOnPermanentError(t *testing.T) {
	calls := 0
	err := Do(context.Background(), Options{MaxRetries: 5, BaseDelay: time.Microsecond}, func() error {
		calls++
		return backoff.Permanent(fmt.Errorf("bad input: %w", errFlaky))
	})
	assert.ErrorIs(t, err, errFlaky)
	assert.Equal(t, 1, calls)
}

func TestDoStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := Do(ctx, Options{MaxRetries: 5, BaseDelay: time.Hour}, func() error {
		calls++
		cancel()
		return errFlaky
	})
	assert.Error(t, err)
	assert.Equal(t, 1, calls)
}

package retry

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"wrapsync/internal/infra/log"
)

// Policy is the schedule used by Every: the n-th retry waits
// Initial * Factor^n. MaxInterval caps a single wait; zero means no cap.
type Policy struct {
	Initial     time.Duration
	Factor      float64
	MaxInterval time.Duration
}

// DefaultPolicy waits 1s, 5s, 25s, ...
var DefaultPolicy = Policy{Initial: time.Second, Factor: 5}

func (p Policy) backOff() *backoff.ExponentialBackOff {
	if p.Initial <= 0 {
		p.Initial = DefaultPolicy.Initial
	}
	if p.Factor < 1 {
		p.Factor = DefaultPolicy.Factor
	}
	maxInterval := p.MaxInterval
	if maxInterval <= 0 {
		maxInterval = time.Duration(math.MaxInt64)
	}
	b := &backoff.ExponentialBackOff{
		InitialInterval:     p.Initial,
		RandomizationFactor: 0,
		Multiplier:          p.Factor,
		MaxInterval:         maxInterval,
		MaxElapsedTime:      0,
		Stop:                backoff.Stop,
		Clock:               backoff.SystemClock,
	}
	b.Reset()
	return b
}

// Delays returns the first n waits of the schedule.
func (p Policy) Delays(n int) []time.Duration {
	b := p.backOff()
	out := make([]time.Duration, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, b.NextBackOff())
	}
	return out
}

type Option func(*Task)

// WithAfter replaces time.After, mostly for tests.
func WithAfter(after func(time.Duration) <-chan time.Time) Option {
	return func(t *Task) { t.after = after }
}

// WithName tags the retry log lines.
func WithName(name string) Option {
	return func(t *Task) { t.name = name }
}

// Task is a callback scheduled by Every. At most one timer is pending at
// any time and nothing is re-armed after a successful attempt.
type Task struct {
	name   string
	after  func(time.Duration) <-chan time.Time
	cancel context.CancelFunc
	done   chan struct{}

	mu       sync.Mutex
	err      error
	attempts int
}

// Every runs fn in its own goroutine until it returns nil.
func Every(ctx context.Context, policy Policy, fn func(ctx context.Context) error, opts ...Option) *Task {
	ctx, cancel := context.WithCancel(ctx)
	t := &Task{
		name:   "task",
		after:  time.After,
		cancel: cancel,
		done:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(t)
	}
	go t.run(ctx, policy.backOff(), fn)
	return t
}

func (t *Task) run(ctx context.Context, b backoff.BackOff, fn func(ctx context.Context) error) {
	defer close(t.done)
	defer t.cancel()

	for {
		t.mu.Lock()
		t.attempts++
		t.mu.Unlock()

		err := fn(ctx)
		if err == nil {
			return
		}
		if ctx.Err() != nil {
			t.setErr(ctx.Err())
			return
		}

		wait := b.NextBackOff()
		log.LogWarn("Retrying",
			zap.String("task", t.name),
			zap.Duration("in", wait),
			zap.Error(err))

		select {
		case <-ctx.Done():
			t.setErr(ctx.Err())
			return
		case <-t.after(wait):
		}
	}
}

func (t *Task) setErr(err error) {
	t.mu.Lock()
	t.err = err
	t.mu.Unlock()
}

// Cancel stops the task. A pending timer never fires the callback again.
func (t *Task) Cancel() { t.cancel() }

// Done is closed once the task succeeded or was cancelled.
func (t *Task) Done() <-chan struct{} { return t.done }

// Wait blocks until Done and returns nil on success.
func (t *Task) Wait() error {
	<-t.done
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.err
}

// Attempts is the number of times the callback ran.
func (t *Task) Attempts() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.attempts
}

// Package retry has two helpers. Do retries a bounded number of times with
// jittered exponential backoff. Every keeps retrying on a fixed exponential
// schedule until the callback succeeds or the task is cancelled.
package retry

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

type Options struct {
	MaxRetries uint64
	BaseDelay  time.Duration
	MaxDelay   time.Duration
}

// Do runs fn until it succeeds, MaxRetries retries are spent or ctx is done.
// fn stops the loop early by returning backoff.Permanent(err); Do then
// returns err.
func Do(ctx context.Context, opts Options, fn func() error) error {
	if opts.BaseDelay <= 0 {
		opts.BaseDelay = 300 * time.Millisecond
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = opts.BaseDelay
	if opts.MaxDelay > 0 {
		b.MaxInterval = opts.MaxDelay
	}
	b.MaxElapsedTime = 0
	b.Reset()

	return backoff.Retry(fn, backoff.WithContext(backoff.WithMaxRetries(b, opts.MaxRetries), ctx))
}
